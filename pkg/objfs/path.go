package objfs

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// Separator is the path separator for both hierarchical paths and keys.
const Separator = "/"

// RootKey returns the key of the filesystem root: the empty prefix, which
// spans the whole bucket.
func RootKey() string {
	return ""
}

// PathToKey converts a hierarchical path to an object key. Leading
// separators are stripped and repeated separators collapse, so "/a//b/"
// and "a/b" both yield "a/b". The root ("", "/") yields RootKey().
//
// Paths containing "." or ".." segments, NUL bytes, invalid UTF-8 or a URI
// scheme are rejected with ErrInvalidPath. Use FileSystem methods to pass
// paths that carry the filesystem's own root URI.
func PathToKey(p string) (string, error) {
	if !utf8.ValidString(p) {
		return "", pathError(p, "path is not valid UTF-8")
	}
	if strings.ContainsRune(p, 0) {
		return "", pathError(p, "path contains a NUL byte")
	}
	if strings.Contains(p, "://") {
		return "", pathError(p, "path belongs to another filesystem root")
	}

	segments := strings.Split(p, Separator)
	kept := segments[:0]
	for _, seg := range segments {
		switch seg {
		case "":
			continue
		case ".", "..":
			return "", pathError(p, fmt.Sprintf("relative segment %q", seg))
		}
		kept = append(kept, seg)
	}
	return strings.Join(kept, Separator), nil
}

// KeyToPath converts a key returned by a listing back to an absolute
// hierarchical path. A trailing separator, as on common prefixes, is
// dropped.
func KeyToPath(key string) string {
	return Separator + strings.TrimSuffix(key, Separator)
}

// CleanPath returns the canonical form of p: absolute, without repeated or
// trailing separators. KeyToPath(PathToKey(p)) == CleanPath(p).
func CleanPath(p string) (string, error) {
	key, err := PathToKey(p)
	if err != nil {
		return "", err
	}
	return KeyToPath(key), nil
}

func pathError(p, msg string) error {
	return newError("PathToKey", p, "", ErrInvalidPath, errors.New(msg))
}

// parentKey returns the key of the directory containing key.
func parentKey(key string) string {
	if i := strings.LastIndex(key, Separator); i >= 0 {
		return key[:i]
	}
	return RootKey()
}

// baseName returns the last segment of key.
func baseName(key string) string {
	return key[strings.LastIndex(key, Separator)+1:]
}

// dirPrefix returns the listing prefix for the children of key.
func dirPrefix(key string) string {
	if key == RootKey() {
		return ""
	}
	return key + Separator
}

// depth counts the separators in key.
func depth(key string) int {
	return strings.Count(key, Separator)
}
