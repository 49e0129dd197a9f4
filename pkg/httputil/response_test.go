package httputil

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteJSON(t *testing.T) {
	recorder := httptest.NewRecorder()
	require.NoError(t, WriteJSON(recorder, http.StatusCreated, map[string]string{"id": "7"}))

	assert.Equal(t, http.StatusCreated, recorder.Code)
	assert.Equal(t, "application/json", recorder.Header().Get("Content-Type"))

	var body map[string]string
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
	assert.Equal(t, "7", body["id"])
}

func TestWriteErrorMessage(t *testing.T) {
	recorder := httptest.NewRecorder()
	WriteErrorMessage(recorder, http.StatusBadRequest, "name is required")

	assert.Equal(t, http.StatusBadRequest, recorder.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
	assert.Equal(t, "name is required", body["error"])
}

func TestWriteInternalError(t *testing.T) {
	recorder := httptest.NewRecorder()
	WriteInternalError(recorder, errors.New("boom"))
	assert.Equal(t, http.StatusInternalServerError, recorder.Code)
}

func TestParseJSONOrError(t *testing.T) {
	var dest map[string]string

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"a":"b"}`))
	recorder := httptest.NewRecorder()
	assert.True(t, ParseJSONOrError(recorder, req, &dest))
	assert.Equal(t, "b", dest["a"])

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{broken"))
	recorder = httptest.NewRecorder()
	assert.False(t, ParseJSONOrError(recorder, req, &dest))
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}
