package objfs

import (
	"context"
	"errors"
	"io"

	"github.com/3leaps/nimbusfs/pkg/provider"
)

// ListingChunk is the result of one listing request.
type ListingChunk struct {
	// ObjectKeys are the object keys in the page, in store order.
	ObjectKeys []string

	// CommonPrefixes are the grouped deeper prefixes, each ending with the
	// separator. Always empty for recursive listings.
	CommonPrefixes []string

	// Continuation is the token for the next page, or "" for the last.
	Continuation string

	// Objects carries the metadata that came with ObjectKeys.
	Objects []provider.ObjectSummary
}

// ChunkIterator lazily pages through one listing session. Each call to
// Next issues at most one request, so callers that stop early pay only
// for the pages they consumed. An iterator is single-use and not safe for
// concurrent use; start a new session to list again.
type ChunkIterator struct {
	fsys      *FileSystem
	op        string
	prefix    string
	delimiter string
	token     string
	done      bool
	pages     int
}

// ListChunks starts a listing session for the directory at path. A
// non-recursive session groups deeper keys into common prefixes; a
// recursive one returns every descendant key. No request is made until
// the first call to Next.
func (fsys *FileSystem) ListChunks(path string, recursive bool) (*ChunkIterator, error) {
	key, err := fsys.resolve("ListChunks", path)
	if err != nil {
		return nil, err
	}
	return fsys.listChunks("ListChunks", dirPrefix(key), recursive), nil
}

func (fsys *FileSystem) listChunks(op, prefix string, recursive bool) *ChunkIterator {
	it := &ChunkIterator{fsys: fsys, op: op, prefix: prefix}
	if !recursive {
		it.delimiter = Separator
	}
	return it
}

// Next fetches the next chunk. It returns io.EOF once the session is
// exhausted. A failed request or a cancelled context yields
// ErrListingFailed and ends the session; no page is retried or skipped.
// A truncated page that carries no continuation token is malformed and
// fails the same way.
func (it *ChunkIterator) Next(ctx context.Context) (*ListingChunk, error) {
	if it.done {
		return nil, io.EOF
	}
	if err := it.fsys.pace(ctx); err != nil {
		it.done = true
		return nil, newError(it.op, KeyToPath(it.prefix), it.prefix, ErrListingFailed, err)
	}

	res, err := it.fsys.lister.ListWithDelimiter(ctx, provider.ListWithDelimiterOptions{
		Prefix:            it.prefix,
		Delimiter:         it.delimiter,
		ContinuationToken: it.token,
		MaxKeys:           it.fsys.cfg.PageSize,
	})
	if err != nil {
		it.done = true
		return nil, newError(it.op, KeyToPath(it.prefix), it.prefix, ErrListingFailed, err)
	}
	it.pages++
	if res.IsTruncated && res.ContinuationToken == "" {
		it.done = true
		return nil, newError(it.op, KeyToPath(it.prefix), it.prefix, ErrListingFailed,
			errors.New("truncated page without continuation token"))
	}

	chunk := &ListingChunk{
		ObjectKeys:     make([]string, 0, len(res.Objects)),
		CommonPrefixes: res.CommonPrefixes,
		Objects:        res.Objects,
	}
	for _, obj := range res.Objects {
		chunk.ObjectKeys = append(chunk.ObjectKeys, obj.Key)
	}

	if res.IsTruncated {
		it.token = res.ContinuationToken
		chunk.Continuation = res.ContinuationToken
	} else {
		it.done = true
	}
	return chunk, nil
}

// Done reports whether the session is exhausted or failed.
func (it *ChunkIterator) Done() bool { return it.done }

// Pages returns the number of chunks fetched so far.
func (it *ChunkIterator) Pages() int { return it.pages }

// Prefix returns the key prefix being listed.
func (it *ChunkIterator) Prefix() string { return it.prefix }
