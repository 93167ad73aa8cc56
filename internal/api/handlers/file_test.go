package handlers_test

import (
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/obsidian-cms/obsidian/internal/testutil/apitest"
)

func TestFileHandler_UploadAndDownload(t *testing.T) {
	ts := apitest.NewTestServer(t)
	bearer := ts.RegisterAndLogin(t, "alice@example.com", "Sup3rSecret!")

	resp := ts.UploadFile(t, bearer, "notes.txt", "text/plain", "hello world", nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created nodeResp
	apitest.DecodeJSON(t, resp, &created)
	assert.Equal(t, "notes.txt", created.Properties["Name"])

	// Guests can download public files.
	resp = ts.Do(t, http.MethodGet, "/api/v1/files/notes.txt/content", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	data, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(data))
	assert.Equal(t, "text/plain", resp.Header.Get("Content-Type"))
}

func TestFileHandler_UploadRequiresAuth(t *testing.T) {
	ts := apitest.NewTestServer(t)

	resp := ts.UploadFile(t, "", "notes.txt", "text/plain", "hello", nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestFileHandler_DuplicateAndOverwrite(t *testing.T) {
	ts := apitest.NewTestServer(t)
	bearer := ts.RegisterAndLogin(t, "alice@example.com", "Sup3rSecret!")

	resp := ts.UploadFile(t, bearer, "a.txt", "text/plain", "one", nil)
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = ts.UploadFile(t, bearer, "a.txt", "text/plain", "two", nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = ts.UploadFile(t, bearer, "a.txt", "text/plain", "two", map[string]string{"overwrite": "true"})
	resp.Body.Close()
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
}

func TestFileHandler_PrivateFile(t *testing.T) {
	ts := apitest.NewTestServer(t)
	bearer := ts.RegisterAndLogin(t, "alice@example.com", "Sup3rSecret!")

	resp := ts.UploadFile(t, bearer, "secret.txt", "text/plain", "classified", map[string]string{"private": "true"})
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = ts.Do(t, http.MethodGet, "/api/v1/files/secret.txt/content", "", nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = ts.Do(t, http.MethodGet, "/api/v1/files/secret.txt/content", bearer, nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestFileHandler_Delete(t *testing.T) {
	ts := apitest.NewTestServer(t)
	bearer := ts.RegisterAndLogin(t, "alice@example.com", "Sup3rSecret!")
	other := ts.RegisterAndLogin(t, "bob@example.com", "Sup3rSecret!")

	resp := ts.UploadFile(t, bearer, "a.txt", "text/plain", "x", nil)
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = ts.Do(t, http.MethodDelete, "/api/v1/files/a.txt", other, nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = ts.Do(t, http.MethodDelete, "/api/v1/files/a.txt", bearer, nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.False(t, ts.Blobs.Has("a.txt"))
}
