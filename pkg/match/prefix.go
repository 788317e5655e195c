package match

import "strings"

// DerivePrefix returns the longest static key prefix of a pattern, cut back
// to the last complete path segment. Listing under this prefix is enough
// to find every key the pattern can match.
//
//	"data/2024/**/*.parquet" → "data/2024/"
//	"*.json"                 → ""
//	"logs/app-{a,b}/*.log"   → "logs/"
//	"exact/path/file.txt"    → "exact/path/file.txt"
//	"data/file\*.txt"        → "data/file*.txt"
func DerivePrefix(pattern string) string {
	pattern = NormalizePattern(pattern)
	if pattern == "" {
		return ""
	}

	idx := firstMeta(pattern)
	switch idx {
	case -1:
		return unescape(pattern)
	case 0:
		return ""
	}

	static := pattern[:idx]
	if slash := strings.LastIndex(static, "/"); slash >= 0 {
		return unescape(static[:slash+1])
	}
	return ""
}

// IsGlobPattern reports whether pattern contains an unescaped metacharacter.
func IsGlobPattern(pattern string) bool {
	return firstMeta(pattern) != -1
}

// firstMeta returns the index of the first unescaped * ? [ or {, or -1.
func firstMeta(pattern string) int {
	for i := 0; i < len(pattern); i++ {
		switch pattern[i] {
		case '\\':
			if i+1 < len(pattern) && strings.IndexByte(globEscapable, pattern[i+1]) >= 0 {
				i++
			}
		case '*', '?', '[', '{':
			return i
		}
	}
	return -1
}

// unescape turns a static pattern prefix into the literal key prefix.
func unescape(prefix string) string {
	if !strings.ContainsRune(prefix, '\\') {
		return prefix
	}

	var b strings.Builder
	b.Grow(len(prefix))
	for i := 0; i < len(prefix); i++ {
		c := prefix[i]
		if c == '\\' && i+1 < len(prefix) && strings.IndexByte(globEscapable, prefix[i+1]) >= 0 {
			b.WriteByte(prefix[i+1])
			i++
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}
