package cmd

import (
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/3leaps/nimbusfs/pkg/match"
	"github.com/3leaps/nimbusfs/pkg/provider"
)

// URI parsing errors
var (
	// ErrInvalidURI indicates the URI could not be parsed.
	ErrInvalidURI = errors.New("invalid URI")

	// ErrUnsupportedProvider indicates the URI scheme is not supported.
	ErrUnsupportedProvider = errors.New("unsupported provider")

	// ErrMissingBucket indicates the URI is missing a bucket name.
	ErrMissingBucket = errors.New("missing bucket name")
)

var supportedSchemes = []provider.ProviderType{
	provider.ProviderS3,
	provider.ProviderMinIO,
	provider.ProviderFile,
	provider.ProviderMemory,
}

// ObjectURI represents a parsed store URI.
//
// Example URIs:
//   - s3://bucket/docs/report.txt
//   - minio://bucket/docs/
//   - file:///srv/data/docs
//   - mem://scratch/logs/**/*.log
type ObjectURI struct {
	// Provider is the URI scheme, one of s3, minio, file or mem.
	Provider string

	// Bucket is the bucket name. For file URIs it is the base directory,
	// "/" unless store.base_dir narrows it.
	Bucket string

	// Key is the object key, without a leading separator. For patterns it
	// is the static prefix before the first glob character.
	Key string

	// Pattern is set if the key contains glob characters.
	Pattern string
}

// String returns the URI in canonical form.
func (u *ObjectURI) String() string {
	bucket := u.Bucket
	if u.Provider == string(provider.ProviderFile) {
		bucket = strings.TrimSuffix(bucket, "/")
	}
	if u.Pattern != "" {
		return fmt.Sprintf("%s://%s/%s", u.Provider, bucket, u.Pattern)
	}
	return fmt.Sprintf("%s://%s/%s", u.Provider, bucket, u.Key)
}

// Path returns the hierarchical path the URI names inside its bucket.
func (u *ObjectURI) Path() string {
	return "/" + strings.TrimSuffix(u.Key, "/")
}

// PatternPath returns the glob pattern as an absolute path, or Path when
// the URI holds no pattern.
func (u *ObjectURI) PatternPath() string {
	if u.Pattern == "" {
		return u.Path()
	}
	return "/" + u.Pattern
}

// IsPattern returns true if the URI contains glob pattern characters.
func (u *ObjectURI) IsPattern() bool {
	return u.Pattern != ""
}

// IsPrefix returns true if the URI represents a prefix (ends with /).
func (u *ObjectURI) IsPrefix() bool {
	return strings.HasSuffix(u.Key, "/") || u.Key == ""
}

// Rebase moves a file URI's bucket down to baseDir when the URI lies
// inside it. Other URIs are returned unchanged.
func (u *ObjectURI) Rebase(baseDir string) *ObjectURI {
	if u.Provider != string(provider.ProviderFile) || baseDir == "" {
		return u
	}
	base := path.Clean("/" + baseDir)
	full := path.Clean("/" + u.Key)
	if base == "/" {
		return u
	}
	rest, ok := strings.CutPrefix(full, base)
	if !ok || (rest != "" && !strings.HasPrefix(rest, "/")) {
		return u
	}

	out := *u
	out.Bucket = base
	out.Key = strings.TrimPrefix(rest, "/")
	if u.Pattern != "" {
		out.Pattern = strings.TrimPrefix(strings.TrimPrefix(u.Pattern, strings.TrimPrefix(base, "/")), "/")
	}
	if strings.HasSuffix(u.Key, "/") && out.Key != "" {
		out.Key += "/"
	}
	return &out
}

// ParseURI parses a store URI into its components.
//
// Supported formats:
//   - s3://bucket, s3://bucket/, s3://bucket/key
//   - minio://bucket/prefix/
//   - file:///absolute/dir/file.txt
//   - mem://bucket/key
//   - any of the above with a glob pattern in the key
//
// Returns an error if the URI is malformed or uses an unsupported provider.
func ParseURI(uri string) (*ObjectURI, error) {
	if uri == "" {
		return nil, fmt.Errorf("%w: empty URI", ErrInvalidURI)
	}

	// Parse manually to handle glob characters like ? which url.Parse treats as query delimiter
	schemeEnd := strings.Index(uri, "://")
	if schemeEnd == -1 {
		return nil, fmt.Errorf("%w: missing scheme (expected s3://...)", ErrInvalidURI)
	}

	scheme := strings.ToLower(uri[:schemeEnd])
	if !isSupportedScheme(scheme) {
		return nil, fmt.Errorf("%w: %s (supported: s3, minio, file, mem)", ErrUnsupportedProvider, scheme)
	}

	remainder := uri[schemeEnd+3:]

	var bucket, key string
	if scheme == string(provider.ProviderFile) {
		if !strings.HasPrefix(remainder, "/") {
			return nil, fmt.Errorf("%w: file URIs take an absolute path (file:///dir)", ErrInvalidURI)
		}
		bucket = "/"
		key = strings.TrimLeft(remainder, "/")
	} else {
		if remainder == "" {
			return nil, fmt.Errorf("%w: in %s", ErrMissingBucket, uri)
		}
		slashIdx := strings.Index(remainder, "/")
		if slashIdx == -1 {
			bucket = remainder
		} else {
			bucket = remainder[:slashIdx]
			key = remainder[slashIdx+1:]
		}
		if bucket == "" {
			return nil, fmt.Errorf("%w: in %s", ErrMissingBucket, uri)
		}
		if _, err := url.Parse(scheme + "://" + bucket + "/"); err != nil {
			return nil, fmt.Errorf("%w: invalid bucket name %q", ErrInvalidURI, bucket)
		}
	}

	result := &ObjectURI{
		Provider: scheme,
		Bucket:   bucket,
	}

	// Escaped metacharacters such as \* stay literal.
	if match.IsGlobPattern(key) {
		result.Pattern = key
	}
	result.Key = match.DerivePrefix(key)

	return result, nil
}

func isSupportedScheme(s string) bool {
	for _, p := range supportedSchemes {
		if s == string(p) {
			return true
		}
	}
	return false
}
