// Package file implements the provider interfaces over a local directory,
// treating slash-separated keys as paths relative to a base directory.
package file

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"syscall"

	"github.com/3leaps/nimbusfs/pkg/provider"
)

const (
	defaultMaxKeys = 1000
	tempPrefix     = ".nimbusfs-put-"
)

// Provider implements provider.Provider for local filesystem paths.
//
// Keys are relative paths under BaseDir. Directories on disk are not
// objects; only regular files are listed. A key and a key nested beneath
// it (for example "a" and "a/b") cannot coexist on disk, and writing the
// second fails.
type Provider struct {
	baseDir string
}

// Ensure Provider implements provider capability interfaces.
var (
	_ provider.Provider        = (*Provider)(nil)
	_ provider.DelimiterLister = (*Provider)(nil)
	_ provider.ObjectGetter    = (*Provider)(nil)
	_ provider.ObjectRanger    = (*Provider)(nil)
	_ provider.ObjectPutter    = (*Provider)(nil)
	_ provider.ObjectDeleter   = (*Provider)(nil)
	_ provider.ObjectCopier    = (*Provider)(nil)
	_ provider.Typed           = (*Provider)(nil)
)

// Config configures a local provider.
type Config struct {
	BaseDir string
}

// Validate checks that a base directory was given.
func (c Config) Validate() error {
	if strings.TrimSpace(c.BaseDir) == "" {
		return fmt.Errorf("base dir is required")
	}
	return nil
}

// New creates a provider rooted at cfg.BaseDir, creating it if needed.
func New(cfg Config) (*Provider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	base := filepath.Clean(cfg.BaseDir)
	if err := os.MkdirAll(base, 0o755); err != nil {
		return nil, &provider.ProviderError{Op: "New", Provider: provider.ProviderFile, Bucket: base, Err: err}
	}
	return &Provider{baseDir: base}, nil
}

// BaseDir returns the cleaned root directory.
func (p *Provider) BaseDir() string { return p.baseDir }

// Type reports provider.ProviderFile.
func (p *Provider) Type() provider.ProviderType { return provider.ProviderFile }

// Close is a no-op.
func (p *Provider) Close() error { return nil }

// List returns a flat page of objects under opts.Prefix.
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

// ListWithDelimiter lists files whose keys start with opts.Prefix. The
// tree is walked on every call, so the cost of a page is proportional to
// the size of the subtree rather than the page.
func (p *Provider) ListWithDelimiter(ctx context.Context, opts provider.ListWithDelimiterOptions) (*provider.ListWithDelimiterResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, p.wrapError("ListWithDelimiter", opts.Prefix, err)
	}
	maxKeys := opts.MaxKeys
	if maxKeys <= 0 {
		maxKeys = defaultMaxKeys
	}

	objects, err := p.collect(opts.Prefix)
	if err != nil {
		return nil, p.wrapError("ListWithDelimiter", opts.Prefix, err)
	}
	return page(objects, opts, maxKeys), nil
}

// page cuts one page out of a sorted object set, grouping keys by the
// delimiter. The token is the last key or common prefix returned.
func page(objects []provider.ObjectSummary, opts provider.ListWithDelimiterOptions, maxKeys int) *provider.ListWithDelimiterResult {
	token := opts.ContinuationToken
	skipGroup := opts.Delimiter != "" && strings.HasSuffix(token, opts.Delimiter)

	start := sort.Search(len(objects), func(i int) bool { return objects[i].Key > token })
	res := &provider.ListWithDelimiterResult{}
	count := 0
	last := ""
	lastPrefix := ""
	for _, obj := range objects[start:] {
		if skipGroup && strings.HasPrefix(obj.Key, token) {
			continue
		}
		entry := obj.Key
		isPrefix := false
		if opts.Delimiter != "" {
			rest := strings.TrimPrefix(obj.Key, opts.Prefix)
			if i := strings.Index(rest, opts.Delimiter); i >= 0 {
				entry = opts.Prefix + rest[:i+len(opts.Delimiter)]
				isPrefix = true
				if entry == lastPrefix {
					continue
				}
			}
		}
		if count == maxKeys {
			res.IsTruncated = true
			res.ContinuationToken = last
			break
		}
		if isPrefix {
			res.CommonPrefixes = append(res.CommonPrefixes, entry)
			lastPrefix = entry
		} else {
			res.Objects = append(res.Objects, obj)
		}
		last = entry
		count++
	}
	return res
}

// Head returns metadata for a regular file.
func (p *Provider) Head(ctx context.Context, key string) (*provider.ObjectMeta, error) {
	if err := ctx.Err(); err != nil {
		return nil, p.wrapError("Head", key, err)
	}
	full, err := p.fullPath(key)
	if err != nil {
		return nil, p.wrapError("Head", key, err)
	}
	st, err := os.Stat(full)
	if err != nil {
		return nil, p.wrapError("Head", key, err)
	}
	if st.IsDir() {
		return nil, provider.NotFound("Head", provider.ProviderFile, p.baseDir, key)
	}

	return &provider.ObjectMeta{
		ObjectSummary: provider.ObjectSummary{Key: key, Size: st.Size(), LastModified: st.ModTime()},
	}, nil
}

// GetObject opens a file for streaming.
func (p *Provider) GetObject(ctx context.Context, key string) (io.ReadCloser, int64, error) {
	return p.GetRange(ctx, key, 0, -1)
}

// GetRange opens bytes [start, endInclusive]; a negative endInclusive
// reads to the end of the file. A start past the end yields an empty body.
func (p *Provider) GetRange(ctx context.Context, key string, start, endInclusive int64) (io.ReadCloser, int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, p.wrapError("GetRange", key, err)
	}
	if start < 0 {
		return nil, 0, p.wrapError("GetRange", key, fmt.Errorf("start must be >= 0"))
	}
	if endInclusive >= 0 && endInclusive < start {
		return nil, 0, p.wrapError("GetRange", key, fmt.Errorf("end must be >= start"))
	}

	full, err := p.fullPath(key)
	if err != nil {
		return nil, 0, p.wrapError("GetRange", key, err)
	}
	f, err := os.Open(full)
	if err != nil {
		return nil, 0, p.wrapError("GetRange", key, err)
	}
	st, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, 0, p.wrapError("GetRange", key, err)
	}
	if st.IsDir() {
		_ = f.Close()
		return nil, 0, provider.NotFound("GetRange", provider.ProviderFile, p.baseDir, key)
	}

	size := st.Size()
	if start >= size {
		_ = f.Close()
		return io.NopCloser(strings.NewReader("")), 0, nil
	}
	length := size - start
	if endInclusive >= 0 && endInclusive-start+1 < length {
		length = endInclusive - start + 1
	}
	return &sectionReadCloser{r: io.NewSectionReader(f, start, length), c: f}, length, nil
}

type sectionReadCloser struct {
	r io.Reader
	c io.Closer
}

func (s *sectionReadCloser) Read(p []byte) (int, error) { return s.r.Read(p) }
func (s *sectionReadCloser) Close() error               { return s.c.Close() }

// PutObject writes body to a temp file next to the target and renames it
// into place, so readers never observe a partial object.
func (p *Provider) PutObject(ctx context.Context, key string, body io.Reader, contentLength int64) error {
	_ = contentLength
	if err := ctx.Err(); err != nil {
		return p.wrapError("PutObject", key, err)
	}
	full, err := p.fullPath(key)
	if err != nil {
		return p.wrapError("PutObject", key, err)
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return p.wrapError("PutObject", key, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(full), tempPrefix+"*")
	if err != nil {
		return p.wrapError("PutObject", key, err)
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()

	if _, err := io.Copy(tmp, body); err != nil {
		return p.wrapError("PutObject", key, err)
	}
	if err := tmp.Close(); err != nil {
		return p.wrapError("PutObject", key, err)
	}
	if err := os.Rename(tmpName, full); err != nil {
		return p.wrapError("PutObject", key, err)
	}
	return nil
}

// CopyObject copies srcKey to dstKey through PutObject.
func (p *Provider) CopyObject(ctx context.Context, srcKey, dstKey string) error {
	body, size, err := p.GetObject(ctx, srcKey)
	if err != nil {
		return err
	}
	defer func() { _ = body.Close() }()
	return p.PutObject(ctx, dstKey, body, size)
}

// DeleteObject removes a file and prunes parent directories left empty.
// Deleting an absent key succeeds.
func (p *Provider) DeleteObject(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return p.wrapError("DeleteObject", key, err)
	}
	full, err := p.fullPath(key)
	if err != nil {
		return p.wrapError("DeleteObject", key, err)
	}
	st, err := os.Stat(full)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return p.wrapError("DeleteObject", key, err)
	}
	if st.IsDir() {
		return nil
	}
	if err := os.Remove(full); err != nil && !os.IsNotExist(err) {
		return p.wrapError("DeleteObject", key, err)
	}
	p.prune(filepath.Dir(full))
	return nil
}

// prune removes empty directories from dir up to, but excluding, the base.
func (p *Provider) prune(dir string) {
	for dir != p.baseDir && strings.HasPrefix(dir, p.baseDir) {
		if err := os.Remove(dir); err != nil {
			return
		}
		dir = filepath.Dir(dir)
	}
}

func (p *Provider) fullPath(key string) (string, error) {
	if key == "" {
		return "", fmt.Errorf("%w: empty key", provider.ErrInvalidKey)
	}
	clean := path.Clean("/" + key)
	clean = strings.TrimPrefix(clean, "/")
	if clean == "" || clean == ".." || strings.HasPrefix(clean, "../") || clean != key {
		return "", fmt.Errorf("%w: %q is not a clean relative path", provider.ErrInvalidKey, key)
	}
	return filepath.Join(p.baseDir, filepath.FromSlash(clean)), nil
}

// collect returns every file whose key starts with prefix, sorted by key.
// The walk starts at the deepest directory the prefix names.
func (p *Provider) collect(prefix string) ([]provider.ObjectSummary, error) {
	root := p.baseDir
	if i := strings.LastIndex(prefix, "/"); i >= 0 {
		root = filepath.Join(p.baseDir, filepath.FromSlash(prefix[:i]))
	}
	if _, err := os.Stat(root); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var out []provider.ObjectSummary
	err := filepath.WalkDir(root, func(full string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), tempPrefix) {
			return nil
		}
		rel, err := filepath.Rel(p.baseDir, full)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if !strings.HasPrefix(key, prefix) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		out = append(out, provider.ObjectSummary{Key: key, Size: info.Size(), LastModified: info.ModTime()})
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (p *Provider) wrapError(op, key string, err error) error {
	wrapped := &provider.ProviderError{Op: op, Provider: provider.ProviderFile, Bucket: p.baseDir, Key: key, Err: err}
	if err == nil {
		wrapped.Err = fmt.Errorf("unknown error")
	}
	// Normalize common filesystem errors to provider sentinels.
	switch {
	case os.IsNotExist(err), errors.Is(err, syscall.ENOTDIR):
		wrapped.Err = provider.ErrNotFound
	case os.IsPermission(err):
		wrapped.Err = provider.ErrAccessDenied
	}
	return wrapped
}
