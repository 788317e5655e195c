package provider

import "context"

// DelimiterLister supports delimiter-based listing.
//
// This is the listing primitive behind directory emulation. A delimited
// listing returns:
//   - Objects directly under Prefix (no delimiter in the remainder)
//   - CommonPrefixes (immediate child prefixes, each ending in Delimiter)
//
// With an empty Delimiter the listing is flat: every descendant key is
// returned in Objects and CommonPrefixes is empty.
//
// Implementations should map to provider-native delimiter listing when available
// (e.g., S3 ListObjectsV2 with Delimiter).
type DelimiterLister interface {
	ListWithDelimiter(ctx context.Context, opts ListWithDelimiterOptions) (*ListWithDelimiterResult, error)
}

// ListWithDelimiterOptions configures a delimiter listing operation.
type ListWithDelimiterOptions struct {
	// Prefix filters results to keys starting with this value.
	Prefix string

	// Delimiter groups keys (e.g., "/"). Empty means a flat listing.
	Delimiter string

	// ContinuationToken resumes listing from a previous ListWithDelimiterResult.
	ContinuationToken string

	// MaxKeys limits the number of keys returned per page.
	// Objects and common prefixes both count toward the limit.
	MaxKeys int
}

// ListWithDelimiterResult contains a page of results from a delimiter listing.
type ListWithDelimiterResult struct {
	// Objects are object summaries directly under the requested Prefix.
	Objects []ObjectSummary

	// CommonPrefixes are the immediate child prefixes.
	CommonPrefixes []string

	// ContinuationToken is used to retrieve the next page.
	ContinuationToken string

	// IsTruncated indicates whether more results are available.
	IsTruncated bool
}
