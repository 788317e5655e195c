package objfs

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds. Every error returned by a FileSystem satisfies errors.Is
// against exactly one of these, so callers branch on the kind and never on
// message text.
var (
	// ErrInvalidPath marks malformed or unsupported path syntax. It is
	// raised before any store request and is never worth retrying.
	ErrInvalidPath = errors.New("invalid path")

	// ErrInvalidArgument marks an option outside its domain, such as a
	// negative read offset.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrNotFound means the target key or prefix is absent.
	ErrNotFound = errors.New("not found")

	// ErrExist means the target already exists.
	ErrExist = errors.New("already exists")

	// ErrNotDirectory means a directory was required but a file was found.
	ErrNotDirectory = errors.New("not a directory")

	// ErrIsDirectory means a file was required but a directory was found.
	ErrIsDirectory = errors.New("is a directory")

	// ErrDirectoryNotEmpty means a non-recursive delete hit a directory
	// with children.
	ErrDirectoryNotEmpty = errors.New("directory not empty")

	// ErrStatusQueryFailed means a single-key lookup failed for a reason
	// other than absence; existence is unknown.
	ErrStatusQueryFailed = errors.New("status query failed")

	// ErrListingFailed means a listing page request failed.
	ErrListingFailed = errors.New("listing failed")

	// ErrReadFailed means opening an object for reading failed.
	ErrReadFailed = errors.New("read failed")

	// ErrWriteFailed means an object upload failed.
	ErrWriteFailed = errors.New("write failed")

	// ErrDeleteFailed means an object delete failed.
	ErrDeleteFailed = errors.New("delete failed")

	// ErrCopyFailed means an object copy failed.
	ErrCopyFailed = errors.New("copy failed")

	// ErrPartialRename means a rename stopped after moving or copying some
	// objects; both source and destination keys may be present.
	ErrPartialRename = errors.New("partial rename")

	// ErrUnsupported means the store does not offer a capability the
	// operation needs. It is wrapped inside the operation's own kind.
	ErrUnsupported = errors.New("operation not supported by store")
)

// Error describes a failed filesystem operation.
//
// errors.Is matches both Kind and anything Err wraps, so a failed listing
// caused by a cancelled context satisfies both ErrListingFailed and
// context.Canceled.
type Error struct {
	// Op is the facade operation, e.g. "Rename".
	Op string

	// Path is the hierarchical path the caller passed, if any.
	Path string

	// Key is the store key the failure concerns, if any.
	Key string

	// Kind is one of the package sentinels.
	Kind error

	// Err is the underlying cause, often a *provider.ProviderError.
	Err error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString("objfs ")
	b.WriteString(e.Op)
	if e.Path != "" {
		b.WriteString(" ")
		b.WriteString(e.Path)
	}
	if e.Key != "" && e.Key != strings.TrimPrefix(e.Path, "/") {
		fmt.Fprintf(&b, " (key %q)", e.Key)
	}
	b.WriteString(": ")
	b.WriteString(e.Kind.Error())
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the error's kind.
func (e *Error) Is(target error) bool {
	return target == e.Kind
}

func newError(op, path, key string, kind, err error) *Error {
	return &Error{Op: op, Path: path, Key: key, Kind: kind, Err: err}
}

// PartialRenameError reports a rename that stopped after changing the
// store. SourceKey and DestinationKey name the object being moved when the
// failure occurred; if the copy of that object had succeeded, both keys
// exist.
type PartialRenameError struct {
	// SourceKey is the source object being moved at the failure.
	SourceKey string

	// DestinationKey is the destination of SourceKey.
	DestinationKey string

	// Renamed lists source keys that were fully moved before the failure.
	Renamed []string

	// Remaining counts source keys not yet moved, SourceKey included
	// unless its copy landed. It is -1 when listing pages remained unread.
	Remaining int

	// Copied reports whether SourceKey had already been copied, leaving
	// both keys present.
	Copied bool

	// Err is the failure that stopped the rename.
	Err error
}

func (e *PartialRenameError) Error() string {
	state := "source untouched"
	if e.Copied {
		state = "both keys present"
	}
	return fmt.Sprintf("objfs Rename: %s: stopped at %q -> %q (%s, %d moved): %v",
		ErrPartialRename, e.SourceKey, e.DestinationKey, state, len(e.Renamed), e.Err)
}

// Unwrap returns the underlying failure.
func (e *PartialRenameError) Unwrap() error {
	return e.Err
}

// Is matches ErrPartialRename.
func (e *PartialRenameError) Is(target error) bool {
	return target == ErrPartialRename
}

// PartialDeleteError reports a recursive delete that stopped partway.
type PartialDeleteError struct {
	// Path is the directory being deleted.
	Path string

	// FailedKey is the key whose delete failed.
	FailedKey string

	// Deleted is the number of keys removed before the failure.
	Deleted int

	// Err is the failure that stopped the delete.
	Err error
}

func (e *PartialDeleteError) Error() string {
	return fmt.Sprintf("objfs Delete %s: %s: stopped at %q after %d keys: %v",
		e.Path, ErrDeleteFailed, e.FailedKey, e.Deleted, e.Err)
}

// Unwrap returns the underlying failure.
func (e *PartialDeleteError) Unwrap() error {
	return e.Err
}

// Is matches ErrDeleteFailed.
func (e *PartialDeleteError) Is(target error) bool {
	return target == ErrDeleteFailed
}

// IsNotFound reports whether err is an ErrNotFound failure.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsPartial reports whether err left the store in a partially modified
// state that needs cleanup or a retry.
func IsPartial(err error) bool {
	var pr *PartialRenameError
	var pd *PartialDeleteError
	return errors.As(err, &pr) || errors.As(err, &pd)
}
