package services

import (
	"errors"
	"fmt"
)

var (
	ErrNetworkFailure = errors.New("upstream fetch failed")
	ErrCacheWrite     = errors.New("cache write failed")
	ErrKeyNotFound    = errors.New("key not found")
	ErrFeedClosed     = errors.New("feed is closed")
	ErrPostNotFound   = errors.New("post not found")
	ErrUnknownFeed    = errors.New("unknown feed")
)

// FetchError - ошибка загрузки одной коллекции
type FetchError struct {
	Collection string
	Skip       int
	Err        error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s (skip=%d): %v", e.Collection, e.Skip, e.Err)
}

func (e *FetchError) Unwrap() []error {
	return []error{ErrNetworkFailure, e.Err}
}
