package services

import (
	"context"
	"errors"
	"sync"
	"time"
)

// fakeClock - управляемые часы для проверок TTL
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

var errStorageDown = errors.New("storage unavailable")

// flakyKV - MemoryKV, который умеет отказывать на чтение и запись
type flakyKV struct {
	*MemoryKV
	mu        sync.Mutex
	failRead  bool
	failWrite bool
}

func newFlakyKV() *flakyKV {
	return &flakyKV{MemoryKV: NewMemoryKV()}
}

func (f *flakyKV) set(read, write bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failRead, f.failWrite = read, write
}

func (f *flakyKV) readFails() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.failRead
}

func (f *flakyKV) writeFails() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.failWrite
}

func (f *flakyKV) MultiGet(ctx context.Context, keys ...string) (map[string]string, error) {
	if f.readFails() {
		return nil, errStorageDown
	}
	return f.MemoryKV.MultiGet(ctx, keys...)
}

func (f *flakyKV) MultiSet(ctx context.Context, pairs map[string]string) error {
	if f.writeFails() {
		return errStorageDown
	}
	return f.MemoryKV.MultiSet(ctx, pairs)
}
