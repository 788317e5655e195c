package minio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	miniogo "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/3leaps/nimbusfs/pkg/provider"
)

const delimiter = "/"

// Provider is a minio-go implementation of the provider interfaces.
// It is safe for concurrent use by multiple goroutines.
type Provider struct {
	client  *miniogo.Client
	bucket  string
	maxKeys int
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

// New creates a client for cfg and verifies that the bucket exists.
func New(ctx context.Context, cfg Config) (*Provider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	tr, err := miniogo.DefaultTransport(cfg.UseSSL)
	if err != nil {
		return nil, &provider.ProviderError{Op: "New", Provider: provider.ProviderMinIO, Bucket: cfg.Bucket, Err: err}
	}
	cfg.Client.ApplyTransport(tr)

	client, err := miniogo.New(cfg.Endpoint, &miniogo.Options{
		Creds:     credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure:    cfg.UseSSL,
		Region:    cfg.Region,
		Transport: tr,
	})
	if err != nil {
		return nil, &provider.ProviderError{Op: "New", Provider: provider.ProviderMinIO, Bucket: cfg.Bucket, Err: err}
	}

	p := NewWithClient(client, cfg.Bucket, cfg.MaxKeys)

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, p.wrapError("New", "", err)
	}
	if !exists {
		return nil, &provider.ProviderError{Op: "New", Provider: provider.ProviderMinIO, Bucket: cfg.Bucket, Err: provider.ErrBucketNotFound}
	}
	return p, nil
}

// NewWithClient wraps an existing client without contacting the server.
func NewWithClient(client *miniogo.Client, bucket string, maxKeys int) *Provider {
	if maxKeys <= 0 {
		maxKeys = DefaultMaxKeys
	}
	return &Provider{client: client, bucket: bucket, maxKeys: maxKeys}
}

// Type reports provider.ProviderMinIO.
func (p *Provider) Type() provider.ProviderType { return provider.ProviderMinIO }

// List returns a flat page of objects.
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

// ListWithDelimiter returns one page of a listing.
//
// minio-go streams listings over a channel and hides the server's page
// boundaries, so pages are cut client-side: the token is the last key or
// common prefix returned and the next page resumes with StartAfter.
// Only "/" is supported as a delimiter.
func (p *Provider) ListWithDelimiter(ctx context.Context, opts provider.ListWithDelimiterOptions) (*provider.ListWithDelimiterResult, error) {
	if opts.Delimiter != "" && opts.Delimiter != delimiter {
		return nil, p.wrapError("ListWithDelimiter", opts.Prefix, fmt.Errorf("unsupported delimiter %q", opts.Delimiter))
	}
	maxKeys := opts.MaxKeys
	if maxKeys <= 0 {
		maxKeys = p.maxKeys
	}
	recursive := opts.Delimiter == ""
	token := opts.ContinuationToken
	tokenIsPrefix := !recursive && strings.HasSuffix(token, delimiter)

	listCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	ch := p.client.ListObjects(listCtx, p.bucket, miniogo.ListObjectsOptions{
		Prefix:     opts.Prefix,
		Recursive:  recursive,
		StartAfter: token,
		MaxKeys:    maxKeys + 1,
	})

	res := &provider.ListWithDelimiterResult{}
	count := 0
	last := ""
	for obj := range ch {
		if obj.Err != nil {
			return nil, p.wrapError("ListWithDelimiter", opts.Prefix, obj.Err)
		}
		if token != "" && (obj.Key <= token || (tokenIsPrefix && strings.HasPrefix(obj.Key, token))) {
			continue
		}
		if count == maxKeys {
			res.IsTruncated = true
			res.ContinuationToken = last
			break
		}

		if !recursive && strings.HasSuffix(obj.Key, delimiter) && obj.Key != opts.Prefix {
			res.CommonPrefixes = append(res.CommonPrefixes, obj.Key)
		} else {
			res.Objects = append(res.Objects, provider.ObjectSummary{
				Key:          obj.Key,
				Size:         obj.Size,
				ETag:         strings.Trim(obj.ETag, `"`),
				LastModified: obj.LastModified,
			})
		}
		last = obj.Key
		count++
	}

	if err := ctx.Err(); err != nil {
		return nil, p.wrapError("ListWithDelimiter", opts.Prefix, err)
	}
	return res, nil
}

// Head returns metadata for a single object.
func (p *Provider) Head(ctx context.Context, key string) (*provider.ObjectMeta, error) {
	info, err := p.client.StatObject(ctx, p.bucket, key, miniogo.StatObjectOptions{})
	if err != nil {
		return nil, p.wrapError("Head", key, err)
	}
	return &provider.ObjectMeta{
		ObjectSummary: provider.ObjectSummary{
			Key:          key,
			Size:         info.Size,
			ETag:         strings.Trim(info.ETag, `"`),
			LastModified: info.LastModified,
		},
		ContentType: info.ContentType,
		Metadata:    info.UserMetadata,
	}, nil
}

// PutObject uploads body under key. A negative contentLength streams with
// multipart uploads.
func (p *Provider) PutObject(ctx context.Context, key string, body io.Reader, contentLength int64) error {
	_, err := p.client.PutObject(ctx, p.bucket, key, body, contentLength, miniogo.PutObjectOptions{})
	if err != nil {
		return p.wrapError("PutObject", key, err)
	}
	return nil
}

// DeleteObject deletes key.
func (p *Provider) DeleteObject(ctx context.Context, key string) error {
	if err := p.client.RemoveObject(ctx, p.bucket, key, miniogo.RemoveObjectOptions{}); err != nil {
		return p.wrapError("DeleteObject", key, err)
	}
	return nil
}

// CopyObject performs a server-side copy within the bucket.
func (p *Provider) CopyObject(ctx context.Context, srcKey, dstKey string) error {
	_, err := p.client.CopyObject(ctx,
		miniogo.CopyDestOptions{Bucket: p.bucket, Object: dstKey},
		miniogo.CopySrcOptions{Bucket: p.bucket, Object: srcKey},
	)
	if err != nil {
		return p.wrapError("CopyObject", srcKey, err)
	}
	return nil
}

// GetObject downloads an object as a stream.
func (p *Provider) GetObject(ctx context.Context, key string) (io.ReadCloser, int64, error) {
	return p.open(ctx, "GetObject", key, miniogo.GetObjectOptions{})
}

// GetRange downloads bytes [start, endInclusive]; a negative endInclusive
// reads to the end of the object.
func (p *Provider) GetRange(ctx context.Context, key string, start, endInclusive int64) (io.ReadCloser, int64, error) {
	if start < 0 {
		return nil, 0, p.wrapError("GetRange", key, fmt.Errorf("start must be >= 0"))
	}
	end := endInclusive
	if end < 0 {
		end = 0
	} else if end < start {
		return nil, 0, p.wrapError("GetRange", key, fmt.Errorf("end must be >= start"))
	}

	opts := miniogo.GetObjectOptions{}
	if start > 0 || end > 0 {
		if err := opts.SetRange(start, end); err != nil {
			return nil, 0, p.wrapError("GetRange", key, err)
		}
	}
	body, n, err := p.open(ctx, "GetRange", key, opts)
	if err != nil && minioCode(err) == "InvalidRange" {
		return io.NopCloser(strings.NewReader("")), 0, nil
	}
	return body, n, err
}

// open issues the GET and forces the response headers so that missing
// keys surface here rather than on the first Read.
func (p *Provider) open(ctx context.Context, op, key string, opts miniogo.GetObjectOptions) (io.ReadCloser, int64, error) {
	obj, err := p.client.GetObject(ctx, p.bucket, key, opts)
	if err != nil {
		return nil, 0, p.wrapError(op, key, err)
	}
	info, err := obj.Stat()
	if err != nil {
		_ = obj.Close()
		return nil, 0, p.wrapError(op, key, err)
	}
	return obj, info.Size, nil
}

// Close is a no-op; the SDK client holds no persistent resources.
func (p *Provider) Close() error {
	return nil
}

func minioCode(err error) string {
	return miniogo.ToErrorResponse(err).Code
}

// wrapError translates a minio-go error into a provider error carrying the
// matching sentinel.
func (p *Provider) wrapError(op, key string, err error) error {
	wrapped := &provider.ProviderError{
		Op:       op,
		Provider: provider.ProviderMinIO,
		Bucket:   p.bucket,
		Key:      key,
		Err:      err,
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return wrapped
	}

	resp := miniogo.ToErrorResponse(err)
	switch resp.Code {
	case "NoSuchKey", "NotFound":
		wrapped.Err = provider.ErrNotFound
		return wrapped
	case "NoSuchBucket":
		wrapped.Err = provider.ErrBucketNotFound
		return wrapped
	case "AccessDenied":
		wrapped.Err = provider.ErrAccessDenied
		return wrapped
	case "InvalidAccessKeyId", "SignatureDoesNotMatch":
		wrapped.Err = provider.ErrInvalidCredentials
		return wrapped
	case "SlowDown", "SlowDownRead", "SlowDownWrite":
		wrapped.Err = provider.ErrThrottled
		return wrapped
	case "InvalidObjectName", "KeyTooLongError":
		wrapped.Err = provider.ErrInvalidKey
		return wrapped
	}

	switch resp.StatusCode {
	case http.StatusNotFound:
		wrapped.Err = provider.ErrNotFound
	case http.StatusForbidden, http.StatusUnauthorized:
		wrapped.Err = provider.ErrAccessDenied
	case http.StatusTooManyRequests:
		wrapped.Err = provider.ErrThrottled
	case http.StatusServiceUnavailable, http.StatusInternalServerError:
		wrapped.Err = provider.ErrProviderUnavailable
	}
	return wrapped
}
