package objfs

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/3leaps/nimbusfs/pkg/provider"
	"github.com/3leaps/nimbusfs/pkg/provider/memory"
)

var errInjected = errors.New("injected failure")

// faultyStore wraps the memory provider and fails selected calls.
type faultyStore struct {
	*memory.Provider

	mu         sync.Mutex
	failHead   func(key string) bool
	failList   func(call int) bool
	failCopy   func(src string) bool
	failDelete func(key string) bool
	failPut    func(key string) bool
	dropToken  func(opts provider.ListWithDelimiterOptions) bool
	lists      []provider.ListWithDelimiterOptions
	heads      int
}

func newFaultyStore() *faultyStore {
	return &faultyStore{Provider: memory.New("bkt")}
}

func (s *faultyStore) Head(ctx context.Context, key string) (*provider.ObjectMeta, error) {
	s.mu.Lock()
	s.heads++
	fail := s.failHead != nil && s.failHead(key)
	s.mu.Unlock()
	if fail {
		return nil, &provider.ProviderError{Op: "Head", Provider: provider.ProviderMemory, Key: key, Err: provider.ErrProviderUnavailable}
	}
	return s.Provider.Head(ctx, key)
}

func (s *faultyStore) ListWithDelimiter(ctx context.Context, opts provider.ListWithDelimiterOptions) (*provider.ListWithDelimiterResult, error) {
	s.mu.Lock()
	s.lists = append(s.lists, opts)
	fail := s.failList != nil && s.failList(len(s.lists))
	dropToken := s.dropToken != nil && s.dropToken(opts)
	s.mu.Unlock()
	if fail {
		return nil, &provider.ProviderError{Op: "ListWithDelimiter", Provider: provider.ProviderMemory, Err: errInjected}
	}
	res, err := s.Provider.ListWithDelimiter(ctx, opts)
	if err != nil || !dropToken {
		return res, err
	}
	malformed := *res
	malformed.ContinuationToken = ""
	return &malformed, nil
}

func (s *faultyStore) CopyObject(ctx context.Context, src, dst string) error {
	if s.failCopy != nil && s.failCopy(src) {
		return &provider.ProviderError{Op: "CopyObject", Provider: provider.ProviderMemory, Key: src, Err: errInjected}
	}
	return s.Provider.CopyObject(ctx, src, dst)
}

func (s *faultyStore) DeleteObject(ctx context.Context, key string) error {
	if s.failDelete != nil && s.failDelete(key) {
		return &provider.ProviderError{Op: "DeleteObject", Provider: provider.ProviderMemory, Key: key, Err: errInjected}
	}
	return s.Provider.DeleteObject(ctx, key)
}

func (s *faultyStore) PutObject(ctx context.Context, key string, body io.Reader, n int64) error {
	if s.failPut != nil && s.failPut(key) {
		return &provider.ProviderError{Op: "PutObject", Provider: provider.ProviderMemory, Key: key, Err: errInjected}
	}
	return s.Provider.PutObject(ctx, key, body, n)
}

func (s *faultyStore) listCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.lists)
}

// basicStore exposes only listing, get, put and delete: no server-side
// copy and no range reads.
type basicStore struct {
	inner *memory.Provider
}

func (s *basicStore) List(ctx context.Context, opts provider.ListOptions) (*provider.ListResult, error) {
	return s.inner.List(ctx, opts)
}

func (s *basicStore) ListWithDelimiter(ctx context.Context, opts provider.ListWithDelimiterOptions) (*provider.ListWithDelimiterResult, error) {
	return s.inner.ListWithDelimiter(ctx, opts)
}

func (s *basicStore) Head(ctx context.Context, key string) (*provider.ObjectMeta, error) {
	return s.inner.Head(ctx, key)
}

func (s *basicStore) GetObject(ctx context.Context, key string) (io.ReadCloser, int64, error) {
	return s.inner.GetObject(ctx, key)
}

func (s *basicStore) PutObject(ctx context.Context, key string, body io.Reader, n int64) error {
	return s.inner.PutObject(ctx, key, body, n)
}

func (s *basicStore) DeleteObject(ctx context.Context, key string) error {
	return s.inner.DeleteObject(ctx, key)
}

func (s *basicStore) Close() error { return s.inner.Close() }

// recordingObserver captures facade operations.
type recordingObserver struct {
	mu  sync.Mutex
	ops []string
}

func (o *recordingObserver) ObserveOperation(op string, _ time.Duration, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	status := "ok"
	if err != nil {
		status = "error"
	}
	o.ops = append(o.ops, op+":"+status)
}

func newTestFS(t *testing.T, p provider.Provider, mutate ...func(*Config)) *FileSystem {
	t.Helper()
	cfg := DefaultConfig()
	for _, m := range mutate {
		m(&cfg)
	}
	fsys, err := New(p, "bkt", cfg)
	require.NoError(t, err)
	return fsys
}

func put(t *testing.T, p provider.ObjectPutter, keys ...string) {
	t.Helper()
	for _, k := range keys {
		require.NoError(t, p.PutObject(context.Background(), k, strings.NewReader("data:"+k), int64(len("data:"+k))))
	}
}

func names(entries []FileStatus) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		n := e.Name
		if e.IsDir {
			n += "/"
		}
		out = append(out, n)
	}
	return out
}

// listOnlyStore is a read-only store.
type listOnlyStore struct {
	inner *memory.Provider
}

func (s *listOnlyStore) List(ctx context.Context, opts provider.ListOptions) (*provider.ListResult, error) {
	return s.inner.List(ctx, opts)
}

func (s *listOnlyStore) ListWithDelimiter(ctx context.Context, opts provider.ListWithDelimiterOptions) (*provider.ListWithDelimiterResult, error) {
	return s.inner.ListWithDelimiter(ctx, opts)
}

func (s *listOnlyStore) Head(ctx context.Context, key string) (*provider.ObjectMeta, error) {
	return s.inner.Head(ctx, key)
}

func (s *listOnlyStore) Close() error { return nil }
