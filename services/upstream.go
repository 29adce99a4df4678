package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"socialfeed/models"
)

const (
	CollectionUsers    = "users"
	CollectionPosts    = "posts"
	CollectionComments = "comments"
)

// PageSource отдает одну страницу коллекции в виде сырого JSON-массива
type PageSource interface {
	FetchPage(ctx context.Context, collection string, limit, skip int) (json.RawMessage, error)
}

const defaultMaxBodyBytes = 16 << 20

var errBodyTooLarge = errors.New("upstream response exceeds size limit")

// HTTPSource - источник коллекций поверх REST апстрима (limit/skip пагинация).
// Ответ длиннее MaxBodyBytes считается ошибкой.
type HTTPSource struct {
	Client         *http.Client
	BaseURL        string
	RequestTimeout time.Duration
	MaxBodyBytes   int64
}

func NewHTTPSource(baseURL string, requestTimeout time.Duration) *HTTPSource {
	return &HTTPSource{
		BaseURL:        strings.TrimRight(baseURL, "/"),
		RequestTimeout: requestTimeout,
		MaxBodyBytes:   defaultMaxBodyBytes,
		Client: &http.Client{
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout:   5 * time.Second,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout: 5 * time.Second,
				MaxIdleConns:        100,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

func (s *HTTPSource) FetchPage(ctx context.Context, collection string, limit, skip int) (json.RawMessage, error) {
	query := url.Values{}
	query.Set("limit", strconv.Itoa(limit))
	query.Set("skip", strconv.Itoa(skip))

	body, err := s.get(ctx, fmt.Sprintf("%s/%s?%s", s.BaseURL, collection, query.Encode()))
	if err != nil {
		return nil, err
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("decode %s page: %w", collection, err)
	}
	items, ok := envelope[collection]
	if !ok {
		return nil, fmt.Errorf("response has no %q field", collection)
	}
	return items, nil
}

// FetchUser получает одного пользователя по id
func (s *HTTPSource) FetchUser(ctx context.Context, userID int64) (*models.User, error) {
	body, err := s.get(ctx, fmt.Sprintf("%s/%s/%d", s.BaseURL, CollectionUsers, userID))
	if err != nil {
		return nil, err
	}
	var user models.User
	if err := json.Unmarshal(body, &user); err != nil {
		return nil, fmt.Errorf("decode user %d: %w", userID, err)
	}
	return &user, nil
}

func (s *HTTPSource) get(ctx context.Context, rawURL string) ([]byte, error) {
	if s.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.RequestTimeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("upstream returned status %d", resp.StatusCode)
	}
	limit := s.MaxBodyBytes
	if limit <= 0 {
		limit = defaultMaxBodyBytes
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(body)) > limit {
		return nil, fmt.Errorf("%w: more than %d bytes", errBodyTooLarge, limit)
	}
	return body, nil
}
