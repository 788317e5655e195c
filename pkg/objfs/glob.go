package objfs

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/3leaps/nimbusfs/pkg/match"
)

// Glob returns files and directories whose keys match a doublestar
// pattern such as "/logs/2026-*/**/*.gz". The static prefix of the pattern
// bounds the listing, so "/logs/**" never lists outside "logs/". Results
// carry Name set to the full key and are in key order.
func (fsys *FileSystem) Glob(ctx context.Context, pattern string) (entries []FileStatus, err error) {
	defer fsys.observe("Glob", time.Now(), &err)

	pattern = fsys.stripRoot(pattern)
	if strings.Contains(pattern, "://") {
		return nil, newError("Glob", pattern, "", ErrInvalidPath, errors.New("pattern names another store"))
	}
	m, err := match.New(match.Config{Includes: []string{pattern}, IncludeHidden: true})
	if err != nil {
		return nil, newError("Glob", pattern, "", ErrInvalidPath, err)
	}

	base := parentKey(m.Prefix())
	if !match.IsGlobPattern(match.NormalizePattern(pattern)) {
		base = parentKey(strings.TrimSuffix(m.Prefix(), Separator))
	}
	if _, err := PathToKey(base); err != nil {
		return nil, newError("Glob", pattern, base, ErrInvalidPath, err)
	}

	err = fsys.walk(ctx, "Glob", KeyToPath(base), base, func(e FileStatus) error {
		if m.Match(e.Key) {
			e.Name = e.Key
			entries = append(entries, e)
		}
		return nil
	})
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrNotDirectory) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return entries, nil
}
