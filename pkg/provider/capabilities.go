package provider

import (
	"context"
	"io"
)

// Optional provider capability interfaces.
//
// These interfaces are used for feature detection (type assertions). The core
// Provider interface remains intentionally small.

// ObjectPutter can create/overwrite objects.
//
// contentLength may be zero (directory markers); a negative value means the
// length is unknown and the provider must stream until EOF.
type ObjectPutter interface {
	PutObject(ctx context.Context, key string, body io.Reader, contentLength int64) error
}

// ObjectDeleter can delete objects.
//
// Deleting an absent key either succeeds or returns an error satisfying
// IsNotFound; it never affects other keys.
type ObjectDeleter interface {
	DeleteObject(ctx context.Context, key string) error
}

// ObjectCopier can copy an object server-side within the same bucket.
type ObjectCopier interface {
	CopyObject(ctx context.Context, srcKey, dstKey string) error
}

// ObjectGetter can download objects as a stream.
type ObjectGetter interface {
	GetObject(ctx context.Context, key string) (body io.ReadCloser, contentLength int64, err error)
}

// ObjectRanger can download a byte range of an object.
//
// endInclusive < 0 reads from start to the end of the object. The returned
// length is the number of bytes the stream will yield, or -1 when unknown.
type ObjectRanger interface {
	GetRange(ctx context.Context, key string, start, endInclusive int64) (body io.ReadCloser, length int64, err error)
}
