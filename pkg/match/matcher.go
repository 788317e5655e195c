package match

import (
	"errors"

	"github.com/bmatcuk/doublestar/v4"
)

// Matcher evaluates glob patterns against object keys.
//
// A key matches when it matches at least one include pattern and no
// exclude pattern. Hidden keys (a segment starting with '.') are skipped
// unless IncludeHidden is set.
//
// The Matcher is safe for concurrent use after creation.
type Matcher struct {
	includes      []string
	excludes      []string
	prefix        string
	includeHidden bool
}

// Config configures a Matcher.
type Config struct {
	// Includes are glob patterns that keys must match (at least one).
	Includes []string

	// Excludes are glob patterns that keys must not match.
	Excludes []string

	// IncludeHidden controls whether hidden keys are matched.
	IncludeHidden bool
}

// Errors returned by Matcher operations.
var (
	// ErrNoIncludes is returned when no include patterns are provided.
	ErrNoIncludes = errors.New("at least one include pattern is required")

	// ErrInvalidPattern is returned when a pattern cannot be compiled.
	ErrInvalidPattern = errors.New("invalid glob pattern")
)

// PatternError wraps pattern-related errors with context.
type PatternError struct {
	Pattern string
	Err     error
}

func (e *PatternError) Error() string {
	return "pattern " + e.Pattern + ": " + e.Err.Error()
}

func (e *PatternError) Unwrap() error {
	return e.Err
}

// New compiles cfg into a Matcher.
func New(cfg Config) (*Matcher, error) {
	if len(cfg.Includes) == 0 {
		return nil, ErrNoIncludes
	}

	includes, err := compile(cfg.Includes)
	if err != nil {
		return nil, err
	}
	excludes, err := compile(cfg.Excludes)
	if err != nil {
		return nil, err
	}

	return &Matcher{
		includes:      includes,
		excludes:      excludes,
		prefix:        commonPrefix(includes),
		includeHidden: cfg.IncludeHidden,
	}, nil
}

func compile(raw []string) ([]string, error) {
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		p := NormalizePattern(r)
		if p == "" || !doublestar.ValidatePattern(p) {
			return nil, &PatternError{Pattern: r, Err: ErrInvalidPattern}
		}
		out = append(out, p)
	}
	return out, nil
}

// commonPrefix returns the longest segment-aligned prefix shared by the
// derived prefixes of all patterns.
func commonPrefix(patterns []string) string {
	prefix := DerivePrefix(patterns[0])
	for _, p := range patterns[1:] {
		other := DerivePrefix(p)
		n := 0
		for n < len(prefix) && n < len(other) && prefix[n] == other[n] {
			n++
		}
		prefix = prefix[:n]
	}
	if IsGlobPattern(patterns[0]) || len(patterns) > 1 {
		for len(prefix) > 0 && prefix[len(prefix)-1] != '/' {
			prefix = prefix[:len(prefix)-1]
		}
	}
	return prefix
}

// Match reports whether key passes the include, exclude and hidden rules.
// Keys are matched as-is; they are opaque strings.
func (m *Matcher) Match(key string) bool {
	if !m.includeHidden && IsHidden(key) {
		return false
	}

	matched := false
	for _, p := range m.includes {
		if matchPattern(p, key) {
			matched = true
			break
		}
	}
	if !matched {
		return false
	}

	for _, p := range m.excludes {
		if matchPattern(p, key) {
			return false
		}
	}
	return true
}

// Prefix returns the key prefix every matching key starts with. An empty
// prefix means the whole namespace must be listed.
func (m *Matcher) Prefix() string {
	return m.prefix
}

func matchPattern(pattern, key string) bool {
	matched, err := doublestar.Match(pattern, key)
	if err != nil {
		// Validated in New.
		return false
	}
	return matched
}
