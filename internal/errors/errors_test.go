package errors

import (
	"encoding/json"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/3leaps/nimbusfs/pkg/objfs"
	"github.com/3leaps/nimbusfs/pkg/output"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		code string
		want int
	}{
		{output.ErrCodeInvalidPath, http.StatusBadRequest},
		{output.ErrCodeNotFound, http.StatusNotFound},
		{output.ErrCodeExists, http.StatusConflict},
		{output.ErrCodeNotEmpty, http.StatusConflict},
		{output.ErrCodeAccessDenied, http.StatusForbidden},
		{CodeReadOnly, http.StatusForbidden},
		{output.ErrCodeThrottled, http.StatusTooManyRequests},
		{output.ErrCodeUnsupported, http.StatusNotImplemented},
		{output.ErrCodeStoreUnavailable, http.StatusBadGateway},
		{output.ErrCodePartialRename, http.StatusInternalServerError},
		{"SOMETHING_ELSE", http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.want, StatusFor(tt.code))
		})
	}
}

func TestRespondWithError(t *testing.T) {
	orig := RequestIDFunc
	defer func() { RequestIDFunc = orig }()
	RequestIDFunc = func(*http.Request) string { return "req-1" }

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/stat?path=/a", nil)
	RespondWithError(rec, req, &objfs.Error{Op: "GetStatus", Path: "/a", Key: "a", Kind: objfs.ErrNotFound})

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body HTTPErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, output.ErrCodeNotFound, body.Error.Code)
	assert.Equal(t, "req-1", body.Error.RequestID)
	assert.Equal(t, "/a", body.Error.Details["path"])
	assert.Equal(t, "a", body.Error.Details["key"])
}

func TestRespondWithError_Plain(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondWithError(rec, httptest.NewRequest(http.MethodGet, "/", nil), stderrors.New("boom"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var body HTTPErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, output.ErrCodeInternal, body.Error.Code)
	assert.Nil(t, body.Error.Details)
}
