package output

import (
	"context"
	"errors"

	"github.com/3leaps/nimbusfs/pkg/objfs"
	"github.com/3leaps/nimbusfs/pkg/provider"
)

// Error codes for ErrorRecord.
const (
	ErrCodeInvalidPath      = "INVALID_PATH"
	ErrCodeInvalidArgument  = "INVALID_ARGUMENT"
	ErrCodeNotFound         = "NOT_FOUND"
	ErrCodeExists           = "ALREADY_EXISTS"
	ErrCodeNotDirectory     = "NOT_A_DIRECTORY"
	ErrCodeIsDirectory      = "IS_A_DIRECTORY"
	ErrCodeNotEmpty         = "DIRECTORY_NOT_EMPTY"
	ErrCodePartialRename    = "PARTIAL_RENAME"
	ErrCodePartialDelete    = "PARTIAL_DELETE"
	ErrCodeUnsupported      = "UNSUPPORTED"
	ErrCodeAccessDenied     = "ACCESS_DENIED"
	ErrCodeThrottled        = "THROTTLED"
	ErrCodeTimeout          = "TIMEOUT"
	ErrCodeCanceled         = "CANCELED"
	ErrCodeStoreUnavailable = "STORE_UNAVAILABLE"
	ErrCodeInternal         = "INTERNAL"
)

// CodeOf classifies err into one of the ErrorRecord codes. Partial
// outcomes are checked first since they also match their failure kind.
func CodeOf(err error) string {
	var pd *objfs.PartialDeleteError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, objfs.ErrPartialRename):
		return ErrCodePartialRename
	case errors.As(err, &pd):
		return ErrCodePartialDelete
	case errors.Is(err, objfs.ErrInvalidPath):
		return ErrCodeInvalidPath
	case errors.Is(err, objfs.ErrInvalidArgument):
		return ErrCodeInvalidArgument
	case errors.Is(err, objfs.ErrNotFound):
		return ErrCodeNotFound
	case errors.Is(err, objfs.ErrExist):
		return ErrCodeExists
	case errors.Is(err, objfs.ErrNotDirectory):
		return ErrCodeNotDirectory
	case errors.Is(err, objfs.ErrIsDirectory):
		return ErrCodeIsDirectory
	case errors.Is(err, objfs.ErrDirectoryNotEmpty):
		return ErrCodeNotEmpty
	case errors.Is(err, objfs.ErrUnsupported):
		return ErrCodeUnsupported
	case errors.Is(err, context.DeadlineExceeded):
		return ErrCodeTimeout
	case errors.Is(err, context.Canceled):
		return ErrCodeCanceled
	case provider.IsAccessDenied(err), provider.IsInvalidCredentials(err):
		return ErrCodeAccessDenied
	case provider.IsThrottled(err):
		return ErrCodeThrottled
	case errors.Is(err, objfs.ErrStatusQueryFailed), errors.Is(err, objfs.ErrListingFailed),
		provider.IsProviderUnavailable(err), provider.IsBucketNotFound(err):
		return ErrCodeStoreUnavailable
	default:
		return ErrCodeInternal
	}
}

// NewErrorRecord builds an ErrorRecord for err, filling Path and Key from
// an *objfs.Error when one is in the chain.
func NewErrorRecord(err error) *ErrorRecord {
	rec := &ErrorRecord{Code: CodeOf(err), Message: err.Error()}

	var fsErr *objfs.Error
	if errors.As(err, &fsErr) {
		rec.Path = fsErr.Path
		rec.Key = fsErr.Key
	}
	var pr *objfs.PartialRenameError
	if errors.As(err, &pr) {
		rec.Key = pr.SourceKey
		rec.Details = map[string]any{
			"destination_key": pr.DestinationKey,
			"renamed":         len(pr.Renamed),
			"remaining":       pr.Remaining,
			"copied":          pr.Copied,
		}
	}
	var pd *objfs.PartialDeleteError
	if errors.As(err, &pd) {
		rec.Path = pd.Path
		rec.Key = pd.FailedKey
		rec.Details = map[string]any{"deleted": pd.Deleted}
	}
	return rec
}

// EntryFromStatus converts a filesystem status into an EntryRecord.
func EntryFromStatus(st *objfs.FileStatus) *EntryRecord {
	return &EntryRecord{
		Path:    st.Path,
		Name:    st.Name,
		Key:     st.Key,
		IsDir:   st.IsDir,
		Size:    st.Size,
		ModTime: st.ModTime,
		Mode:    st.Mode.String(),
	}
}
