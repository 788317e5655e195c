package objfs

import (
	"context"
	"os"
)

// DefaultMode is reported for every file and directory. Object stores
// have no permission model.
const DefaultMode os.FileMode = 0o777

// Owner returns the owner of path, always "".
func (fsys *FileSystem) Owner(_ context.Context, path string) (string, error) {
	_, err := fsys.resolve("Owner", path)
	return "", err
}

// Group returns the group of path, always "".
func (fsys *FileSystem) Group(_ context.Context, path string) (string, error) {
	_, err := fsys.resolve("Group", path)
	return "", err
}

// Mode returns the permission bits of path, always DefaultMode.
func (fsys *FileSystem) Mode(_ context.Context, path string) (os.FileMode, error) {
	if _, err := fsys.resolve("Mode", path); err != nil {
		return 0, err
	}
	return DefaultMode, nil
}

// SetOwner accepts and ignores an ownership change.
func (fsys *FileSystem) SetOwner(_ context.Context, path, _, _ string) error {
	_, err := fsys.resolve("SetOwner", path)
	return err
}

// SetMode accepts and ignores a permission change.
func (fsys *FileSystem) SetMode(_ context.Context, path string, _ os.FileMode) error {
	_, err := fsys.resolve("SetMode", path)
	return err
}
