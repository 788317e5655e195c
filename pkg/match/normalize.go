// Package match evaluates doublestar glob patterns against filesystem
// paths and derives the static listing prefix a pattern implies.
package match

import (
	"strings"
)

// Characters a backslash may escape in a pattern.
const globEscapable = `*?[]{}\`

// NormalizePattern converts a user pattern to the form matched against
// object keys:
//   - leading separators are dropped, since keys never start with "/"
//   - runs of "/" collapse to one
//   - a backslash before a glob metacharacter stays an escape; any other
//     backslash becomes "/" so Windows-style paths work
//
// Examples:
//
//	"/data/2024/**"    → "data/2024/**"
//	"data\2024\**"     → "data/2024/**"
//	"data/file\*.txt"  → "data/file\*.txt"
//	"data//x/*.csv"    → "data/x/*.csv"
func NormalizePattern(pattern string) string {
	if pattern == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(pattern))

	var last rune
	runes := []rune(pattern)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if r == '\\' {
			if i+1 < len(runes) && strings.ContainsRune(globEscapable, runes[i+1]) {
				b.WriteRune('\\')
				b.WriteRune(runes[i+1])
				last = runes[i+1]
				i++
				continue
			}
			r = '/'
		}
		if r == '/' && (b.Len() == 0 || last == '/') {
			continue
		}
		b.WriteRune(r)
		last = r
	}
	return b.String()
}

// IsHidden reports whether any segment of key starts with a dot.
//
//	"path/to/file.txt"      → false
//	"path/.hidden/file.txt" → true
//	"path/to/.gitignore"    → true
func IsHidden(key string) bool {
	for _, seg := range strings.Split(key, "/") {
		if seg != "" && seg[0] == '.' {
			return true
		}
	}
	return false
}
