// Package memory implements an in-process provider backed by an ordered
// B-tree. It honours the same listing contract as S3 (lexicographic order,
// delimiter grouping, continuation tokens) and is used for tests and
// scratch sessions.
package memory

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/tidwall/btree"

	"github.com/3leaps/nimbusfs/pkg/provider"
)

// DefaultMaxKeys is the page size used when a request does not set one.
const DefaultMaxKeys = 1000

type object struct {
	data     []byte
	etag     string
	modified time.Time
}

// Provider is an in-memory bucket.
type Provider struct {
	mu      sync.RWMutex
	bucket  string
	objects *btree.Map[string, *object]
	now     func() time.Time
	closed  bool
}

// Ensure Provider implements the interfaces.
var (
	_ provider.Provider        = (*Provider)(nil)
	_ provider.DelimiterLister = (*Provider)(nil)
	_ provider.ObjectPutter    = (*Provider)(nil)
	_ provider.ObjectDeleter   = (*Provider)(nil)
	_ provider.ObjectCopier    = (*Provider)(nil)
	_ provider.ObjectGetter    = (*Provider)(nil)
	_ provider.ObjectRanger    = (*Provider)(nil)
	_ provider.Typed           = (*Provider)(nil)
)

// New creates an empty in-memory bucket.
func New(bucket string) *Provider {
	return &Provider{
		bucket:  bucket,
		objects: btree.NewMap[string, *object](0),
		now:     time.Now,
	}
}

// WithClock replaces the modification-time source. Intended for tests.
func (p *Provider) WithClock(now func() time.Time) *Provider {
	p.now = now
	return p
}

// Type reports provider.ProviderMemory.
func (p *Provider) Type() provider.ProviderType { return provider.ProviderMemory }

// Bucket returns the bucket name given to New.
func (p *Provider) Bucket() string { return p.bucket }

// Len returns the number of stored objects.
func (p *Provider) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.objects.Len()
}

// Keys returns every stored key in lexicographic order.
func (p *Provider) Keys() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	keys := make([]string, 0, p.objects.Len())
	p.objects.Scan(func(k string, _ *object) bool {
		keys = append(keys, k)
		return true
	})
	return keys
}

// List returns a flat page of objects with the given prefix.
func (p *Provider) List(ctx context.Context, opts provider.ListOptions) (*provider.ListResult, error) {
	res, err := p.ListWithDelimiter(ctx, provider.ListWithDelimiterOptions{
		Prefix:            opts.Prefix,
		ContinuationToken: opts.ContinuationToken,
		MaxKeys:           opts.MaxKeys,
	})
	if err != nil {
		return nil, err
	}
	return &provider.ListResult{
		Objects:           res.Objects,
		ContinuationToken: res.ContinuationToken,
		IsTruncated:       res.IsTruncated,
	}, nil
}

// ListWithDelimiter returns a page of objects and common prefixes.
//
// The continuation token is the last key or common prefix returned; the next
// page starts strictly after it (and after every key it groups).
func (p *Provider) ListWithDelimiter(ctx context.Context, opts provider.ListWithDelimiterOptions) (*provider.ListWithDelimiterResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, &provider.ProviderError{Op: "ListWithDelimiter", Provider: provider.ProviderMemory, Bucket: p.bucket, Err: err}
	}
	maxKeys := opts.MaxKeys
	if maxKeys <= 0 {
		maxKeys = DefaultMaxKeys
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return nil, &provider.ProviderError{Op: "ListWithDelimiter", Provider: provider.ProviderMemory, Bucket: p.bucket, Err: provider.ErrProviderUnavailable}
	}

	token := opts.ContinuationToken
	tokenIsPrefix := opts.Delimiter != "" && strings.HasSuffix(token, opts.Delimiter)

	res := &provider.ListWithDelimiterResult{}
	count := 0
	last := ""
	pivot := opts.Prefix
	if token > pivot {
		pivot = token
	}
	p.objects.Ascend(pivot, func(key string, obj *object) bool {
		if !strings.HasPrefix(key, opts.Prefix) {
			return false
		}
		if token != "" {
			if key <= token {
				return true
			}
			if tokenIsPrefix && strings.HasPrefix(key, token) {
				return true
			}
		}

		if opts.Delimiter != "" {
			rest := key[len(opts.Prefix):]
			if idx := strings.Index(rest, opts.Delimiter); idx >= 0 {
				cp := opts.Prefix + rest[:idx+len(opts.Delimiter)]
				if cp == last {
					return true
				}
				if count == maxKeys {
					res.IsTruncated = true
					return false
				}
				res.CommonPrefixes = append(res.CommonPrefixes, cp)
				last = cp
				count++
				return true
			}
		}

		if count == maxKeys {
			res.IsTruncated = true
			return false
		}
		res.Objects = append(res.Objects, summarize(key, obj))
		last = key
		count++
		return true
	})

	if res.IsTruncated {
		res.ContinuationToken = last
	}
	return res, nil
}

// Head returns metadata for a single object.
func (p *Provider) Head(ctx context.Context, key string) (*provider.ObjectMeta, error) {
	obj, err := p.lookup(ctx, "Head", key)
	if err != nil {
		return nil, err
	}
	return &provider.ObjectMeta{ObjectSummary: summarize(key, obj)}, nil
}

// PutObject stores body under key, replacing any previous object.
func (p *Provider) PutObject(ctx context.Context, key string, body io.Reader, contentLength int64) error {
	if err := ctx.Err(); err != nil {
		return &provider.ProviderError{Op: "PutObject", Provider: provider.ProviderMemory, Bucket: p.bucket, Key: key, Err: err}
	}
	var data []byte
	var err error
	if contentLength >= 0 {
		data, err = io.ReadAll(io.LimitReader(body, contentLength))
		if err == nil && int64(len(data)) != contentLength {
			err = fmt.Errorf("short body: got %d bytes, want %d", len(data), contentLength)
		}
	} else {
		data, err = io.ReadAll(body)
	}
	if err != nil {
		return &provider.ProviderError{Op: "PutObject", Provider: provider.ProviderMemory, Bucket: p.bucket, Key: key, Err: err}
	}

	sum := md5.Sum(data)
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return &provider.ProviderError{Op: "PutObject", Provider: provider.ProviderMemory, Bucket: p.bucket, Key: key, Err: provider.ErrProviderUnavailable}
	}
	p.objects.Set(key, &object{data: data, etag: hex.EncodeToString(sum[:]), modified: p.now()})
	return nil
}

// DeleteObject removes key. Absent keys succeed, matching S3.
func (p *Provider) DeleteObject(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return &provider.ProviderError{Op: "DeleteObject", Provider: provider.ProviderMemory, Bucket: p.bucket, Key: key, Err: err}
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return &provider.ProviderError{Op: "DeleteObject", Provider: provider.ProviderMemory, Bucket: p.bucket, Key: key, Err: provider.ErrProviderUnavailable}
	}
	p.objects.Delete(key)
	return nil
}

// CopyObject duplicates srcKey under dstKey.
func (p *Provider) CopyObject(ctx context.Context, srcKey, dstKey string) error {
	src, err := p.lookup(ctx, "CopyObject", srcKey)
	if err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.objects.Set(dstKey, &object{data: src.data, etag: src.etag, modified: p.now()})
	return nil
}

// GetObject returns the full object body.
func (p *Provider) GetObject(ctx context.Context, key string) (io.ReadCloser, int64, error) {
	obj, err := p.lookup(ctx, "GetObject", key)
	if err != nil {
		return nil, 0, err
	}
	return io.NopCloser(bytes.NewReader(obj.data)), int64(len(obj.data)), nil
}

// GetRange returns bytes [start, endInclusive] of the object.
func (p *Provider) GetRange(ctx context.Context, key string, start, endInclusive int64) (io.ReadCloser, int64, error) {
	obj, err := p.lookup(ctx, "GetRange", key)
	if err != nil {
		return nil, 0, err
	}
	if start < 0 {
		return nil, 0, &provider.ProviderError{Op: "GetRange", Provider: provider.ProviderMemory, Bucket: p.bucket, Key: key, Err: fmt.Errorf("start must be >= 0")}
	}
	size := int64(len(obj.data))
	if start >= size {
		return io.NopCloser(bytes.NewReader(nil)), 0, nil
	}
	end := size - 1
	if endInclusive >= 0 && endInclusive < end {
		end = endInclusive
	}
	if end < start {
		return nil, 0, &provider.ProviderError{Op: "GetRange", Provider: provider.ProviderMemory, Bucket: p.bucket, Key: key, Err: fmt.Errorf("end must be >= start")}
	}
	return io.NopCloser(bytes.NewReader(obj.data[start : end+1])), end - start + 1, nil
}

// Close marks the provider closed; later calls fail as unavailable.
func (p *Provider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

func (p *Provider) lookup(ctx context.Context, op, key string) (*object, error) {
	if err := ctx.Err(); err != nil {
		return nil, &provider.ProviderError{Op: op, Provider: provider.ProviderMemory, Bucket: p.bucket, Key: key, Err: err}
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return nil, &provider.ProviderError{Op: op, Provider: provider.ProviderMemory, Bucket: p.bucket, Key: key, Err: provider.ErrProviderUnavailable}
	}
	obj, ok := p.objects.Get(key)
	if !ok {
		return nil, provider.NotFound(op, provider.ProviderMemory, p.bucket, key)
	}
	return obj, nil
}

func summarize(key string, obj *object) provider.ObjectSummary {
	return provider.ObjectSummary{
		Key:          key,
		Size:         int64(len(obj.data)),
		ETag:         obj.etag,
		LastModified: obj.modified,
	}
}
