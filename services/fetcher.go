package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"socialfeed/logger"
	"socialfeed/models"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var errTooManyPages = errors.New("page limit reached without a short page")

// FetchCollection выкачивает коллекцию целиком: страницы по pageSize, пока не придет неполная.
// При ошибке любой страницы накопленное отбрасывается.
func FetchCollection[T any](ctx context.Context, src PageSource, collection string, pageSize, maxPages int) ([]T, error) {
	if pageSize <= 0 {
		return nil, fmt.Errorf("invalid page size %d", pageSize)
	}

	start := time.Now()
	defer func() {
		upstreamFetchDuration.WithLabelValues(collection).Observe(time.Since(start).Seconds())
	}()

	items := make([]T, 0, pageSize)
	skip := 0
	for page := 0; maxPages <= 0 || page < maxPages; page++ {
		raw, err := src.FetchPage(ctx, collection, pageSize, skip)
		if err != nil {
			upstreamPagesTotal.WithLabelValues(collection, "error").Inc()
			return nil, &FetchError{Collection: collection, Skip: skip, Err: err}
		}

		var batch []T
		if err := json.Unmarshal(raw, &batch); err != nil {
			upstreamPagesTotal.WithLabelValues(collection, "error").Inc()
			return nil, &FetchError{Collection: collection, Skip: skip, Err: err}
		}
		upstreamPagesTotal.WithLabelValues(collection, "ok").Inc()

		items = append(items, batch...)
		if len(batch) < pageSize {
			logger.Log.Debug("collection fetched",
				zap.String("collection", collection),
				zap.Int("items", len(items)),
				zap.Int("pages", page+1))
			return items, nil
		}
		skip += pageSize
	}
	return nil, &FetchError{Collection: collection, Skip: skip, Err: errTooManyPages}
}

// Collections - три коллекции апстрима, загруженные полностью
type Collections struct {
	Users    []models.User
	Posts    []models.Post
	Comments []models.Comment
}

type Fetcher struct {
	source   PageSource
	pageSize int
	maxPages int
}

func NewFetcher(source PageSource, pageSize, maxPages int) *Fetcher {
	return &Fetcher{source: source, pageSize: pageSize, maxPages: maxPages}
}

// FetchUsers загружает только пользователей (лента профилей)
func (f *Fetcher) FetchUsers(ctx context.Context) ([]models.User, error) {
	return FetchCollection[models.User](ctx, f.source, CollectionUsers, f.pageSize, f.maxPages)
}

// FetchAll загружает пользователей, посты и комментарии параллельно.
// Возвращается только после завершения всех трех загрузок.
func (f *Fetcher) FetchAll(ctx context.Context) (*Collections, error) {
	var out Collections
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() (err error) {
		out.Users, err = FetchCollection[models.User](gctx, f.source, CollectionUsers, f.pageSize, f.maxPages)
		return err
	})
	g.Go(func() (err error) {
		out.Posts, err = FetchCollection[models.Post](gctx, f.source, CollectionPosts, f.pageSize, f.maxPages)
		return err
	})
	g.Go(func() (err error) {
		out.Comments, err = FetchCollection[models.Comment](gctx, f.source, CollectionComments, f.pageSize, f.maxPages)
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &out, nil
}
