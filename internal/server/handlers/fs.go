// Package handlers implements the gateway's HTTP handlers.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	apperrors "github.com/3leaps/nimbusfs/internal/errors"
	"github.com/3leaps/nimbusfs/pkg/objfs"
	"github.com/3leaps/nimbusfs/pkg/output"
)

// maxJSONBody bounds request bodies of the JSON endpoints.
const maxJSONBody = 1 << 20

// FS serves filesystem operations over HTTP.
type FS struct {
	fs       *objfs.FileSystem
	readOnly bool
	log      *zap.Logger
}

// NewFS creates the filesystem handlers. With readOnly set every mutating
// route answers 403 READ_ONLY.
func NewFS(fsys *objfs.FileSystem, readOnly bool, logger *zap.Logger) *FS {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FS{fs: fsys, readOnly: readOnly, log: logger}
}

// ListResponse is the body of /v1/list and /v1/glob.
type ListResponse struct {
	Path    string                `json:"path"`
	Entries []*output.EntryRecord `json:"entries"`
}

// RenameRequest is the body of POST /v1/rename.
type RenameRequest struct {
	Source      string `json:"source"`
	Destination string `json:"destination"`
}

// MkdirsRequest is the body of POST /v1/mkdirs.
type MkdirsRequest struct {
	Path    string `json:"path"`
	Parents bool   `json:"parents"`
}

// errBadRequest marks client errors detected before reaching the store.
var errBadRequest = errors.New("bad request")

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errBadRequest, fmt.Sprintf(format, args...))
}

func (h *FS) fail(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, errBadRequest) {
		apperrors.Write(w, r, http.StatusBadRequest, apperrors.CodeBadRequest, err.Error(), nil)
		return
	}
	respondWithError(w, r, err)
}

// Writable wraps a mutating handler with the read-only guard.
func (h *FS) Writable(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if h.readOnly {
			apperrors.Write(w, r, http.StatusForbidden, apperrors.CodeReadOnly, "gateway is read-only", nil)
			return
		}
		next(w, r)
	}
}

// Stat handles GET /v1/stat?path=.
func (h *FS) Stat(w http.ResponseWriter, r *http.Request) {
	path, err := requiredParam(r, "path")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	st, err := h.fs.GetStatus(r.Context(), path)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, output.EntryFromStatus(st))
}

// List handles GET /v1/list?path=&recursive=.
func (h *FS) List(w http.ResponseWriter, r *http.Request) {
	path, err := requiredParam(r, "path")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	recursive, err := boolParam(r, "recursive")
	if err != nil {
		h.fail(w, r, err)
		return
	}

	entries, err := h.fs.List(r.Context(), path, objfs.ListOptions{Recursive: recursive})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toListResponse(path, entries))
}

// Glob handles GET /v1/glob?pattern=.
func (h *FS) Glob(w http.ResponseWriter, r *http.Request) {
	pattern, err := requiredParam(r, "pattern")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	matches, err := h.fs.Glob(r.Context(), pattern)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toListResponse(pattern, matches))
}

// GetContent handles GET /v1/content?path=&offset=. Bytes before offset
// are never fetched from the store.
func (h *FS) GetContent(w http.ResponseWriter, r *http.Request) {
	path, err := requiredParam(r, "path")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var offset int64
	if s := r.URL.Query().Get("offset"); s != "" {
		offset, err = strconv.ParseInt(s, 10, 64)
		if err != nil {
			h.fail(w, r, badRequest("invalid offset %q", s))
			return
		}
	}

	rd, err := h.fs.Open(r.Context(), path, objfs.OpenOptions{Offset: offset})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	defer func() { _ = rd.Close() }()

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Length", strconv.FormatInt(rd.Size(), 10))
	w.Header().Set("X-Object-Key", rd.Key())
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, rd); err != nil {
		h.log.Warn("Failed to stream object", zap.String("key", rd.Key()), zap.Error(err))
	}
}

// PutContent handles PUT /v1/content?path=&overwrite=&parents=. The body
// becomes the object's content; it is visible only once fully received.
func (h *FS) PutContent(w http.ResponseWriter, r *http.Request) {
	path, err := requiredParam(r, "path")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	overwrite, err := boolParam(r, "overwrite")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	parents, err := boolParam(r, "parents")
	if err != nil {
		h.fail(w, r, err)
		return
	}

	sink, err := h.fs.Create(r.Context(), path, objfs.CreateOptions{Overwrite: overwrite, CreateParent: parents})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if _, err := io.Copy(sink, r.Body); err != nil {
		if aerr := sink.Abort(); aerr != nil {
			h.log.Warn("Failed to discard write", zap.String("path", path), zap.Error(aerr))
		}
		h.fail(w, r, err)
		return
	}
	if err := sink.Close(); err != nil {
		h.fail(w, r, err)
		return
	}

	st, err := h.fs.GetStatus(r.Context(), path)
	if err != nil {
		writeJSON(w, http.StatusCreated, &output.EntryRecord{Path: path, Key: sink.Key(), Size: sink.Size()})
		return
	}
	writeJSON(w, http.StatusCreated, output.EntryFromStatus(st))
}

// DeleteContent handles DELETE /v1/content?path=&recursive=.
func (h *FS) DeleteContent(w http.ResponseWriter, r *http.Request) {
	path, err := requiredParam(r, "path")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	recursive, err := boolParam(r, "recursive")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.fs.Delete(r.Context(), path, objfs.DeleteOptions{Recursive: recursive}); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Rename handles POST /v1/rename.
func (h *FS) Rename(w http.ResponseWriter, r *http.Request) {
	var req RenameRequest
	if err := decodeJSON(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	if req.Source == "" || req.Destination == "" {
		h.fail(w, r, badRequest("source and destination are required"))
		return
	}

	res, err := h.fs.Rename(r.Context(), req.Source, req.Destination)
	if err != nil {
		h.log.Error("Failed to rename", zap.String("source", req.Source),
			zap.String("destination", req.Destination), zap.Stringer("outcome", res.Outcome), zap.Error(err))
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, &output.RenameRecord{
		Source:      res.Source,
		Destination: res.Destination,
		Outcome:     res.Outcome.String(),
		Directory:   res.Directory,
		Objects:     res.Objects,
	})
}

// Mkdirs handles POST /v1/mkdirs.
func (h *FS) Mkdirs(w http.ResponseWriter, r *http.Request) {
	var req MkdirsRequest
	if err := decodeJSON(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	if req.Path == "" {
		h.fail(w, r, badRequest("path is required"))
		return
	}
	if err := h.fs.Mkdirs(r.Context(), req.Path, objfs.MkdirsOptions{CreateParent: req.Parents}); err != nil {
		h.fail(w, r, err)
		return
	}
	st, err := h.fs.GetStatus(r.Context(), req.Path)
	if err != nil {
		w.WriteHeader(http.StatusCreated)
		return
	}
	writeJSON(w, http.StatusCreated, output.EntryFromStatus(st))
}

func toListResponse(path string, entries []objfs.FileStatus) ListResponse {
	resp := ListResponse{Path: path, Entries: make([]*output.EntryRecord, 0, len(entries))}
	for i := range entries {
		resp.Entries = append(resp.Entries, output.EntryFromStatus(&entries[i]))
	}
	return resp
}

func requiredParam(r *http.Request, name string) (string, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return "", badRequest("query parameter %q is required", name)
	}
	return v, nil
}

func boolParam(r *http.Request, name string) (bool, error) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, badRequest("invalid %s %q", name, s)
	}
	return b, nil
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxJSONBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return badRequest("invalid JSON body: %v", err)
	}
	return nil
}
