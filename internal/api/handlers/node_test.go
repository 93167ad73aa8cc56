package handlers_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/obsidian-cms/obsidian/internal/testutil/apitest"
)

type nodeResp struct {
	UUID       string         `json:"uuid"`
	Labels     []string       `json:"labels"`
	Properties map[string]any `json:"properties"`
}

func TestNodeHandler_CRUD(t *testing.T) {
	ts := apitest.NewTestServer(t)
	bearer := ts.RegisterAndLogin(t, "alice@example.com", "Sup3rSecret!")

	// Create
	resp := ts.Do(t, http.MethodPost, "/api/v1/graph/nodes/", bearer, map[string]any{
		"label":      "Article",
		"properties": map[string]any{"Title": "hello"},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created nodeResp
	apitest.DecodeJSON(t, resp, &created)
	require.NotEmpty(t, created.UUID)
	assert.Equal(t, []string{"Article"}, created.Labels)

	// Read back, as a guest
	resp = ts.Do(t, http.MethodGet, "/api/v1/graph/nodes/"+created.UUID, "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var got nodeResp
	apitest.DecodeJSON(t, resp, &got)
	assert.Equal(t, "hello", got.Properties["Title"])

	// Update
	resp = ts.Do(t, http.MethodPut, "/api/v1/graph/nodes/"+created.UUID, bearer, map[string]any{
		"properties": map[string]any{"Title": "updated"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	apitest.DecodeJSON(t, resp, &got)
	assert.Equal(t, "updated", got.Properties["Title"])

	// Delete
	resp = ts.Do(t, http.MethodDelete, "/api/v1/graph/nodes/"+created.UUID, bearer, nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = ts.Do(t, http.MethodGet, "/api/v1/graph/nodes/"+created.UUID, "", nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestNodeHandler_WriteRequiresAuth(t *testing.T) {
	ts := apitest.NewTestServer(t)

	resp := ts.Do(t, http.MethodPost, "/api/v1/graph/nodes/", "", map[string]any{"label": "Article"})
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestNodeHandler_ProtectedProperties(t *testing.T) {
	ts := apitest.NewTestServer(t)
	bearer := ts.RegisterAndLogin(t, "alice@example.com", "Sup3rSecret!")

	resp := ts.Do(t, http.MethodPost, "/api/v1/graph/nodes/", bearer, map[string]any{
		"label":      "Article",
		"properties": map[string]any{"UUID": "forged"},
	})
	resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestNodeHandler_GatedVisibility(t *testing.T) {
	ts := apitest.NewTestServer(t)
	bearer := ts.RegisterAndLogin(t, "alice@example.com", "Sup3rSecret!")

	resp := ts.Do(t, http.MethodPost, "/api/v1/graph/nodes/", bearer, map[string]any{
		"label":      "Article",
		"properties": map[string]any{"Title": "secret", "RequiresAuth": true},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created nodeResp
	apitest.DecodeJSON(t, resp, &created)

	resp = ts.Do(t, http.MethodGet, "/api/v1/graph/nodes/"+created.UUID, "", nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = ts.Do(t, http.MethodGet, "/api/v1/graph/nodes/"+created.UUID, bearer, nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestNodeHandler_Search(t *testing.T) {
	ts := apitest.NewTestServer(t)
	bearer := ts.RegisterAndLogin(t, "alice@example.com", "Sup3rSecret!")

	resp := ts.Do(t, http.MethodPost, "/api/v1/graph/nodes/", bearer, map[string]any{
		"label":      "Article",
		"properties": map[string]any{"Category": "go"},
	})
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = ts.Do(t, http.MethodGet, "/api/v1/graph/nodes/search?property=Category&value=go", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var results []nodeResp
	apitest.DecodeJSON(t, resp, &results)
	require.Len(t, results, 1)
	assert.Equal(t, "go", results[0].Properties["Category"])

	resp = ts.Do(t, http.MethodGet, "/api/v1/graph/nodes/search", "", nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRelationshipHandler_CRUD(t *testing.T) {
	ts := apitest.NewTestServer(t)
	bearer := ts.RegisterAndLogin(t, "alice@example.com", "Sup3rSecret!")

	var a, b nodeResp
	resp := ts.Do(t, http.MethodPost, "/api/v1/graph/nodes/", bearer, map[string]any{"label": "Article", "properties": map[string]any{"Title": "a"}})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	apitest.DecodeJSON(t, resp, &a)
	resp = ts.Do(t, http.MethodPost, "/api/v1/graph/nodes/", bearer, map[string]any{"label": "Article", "properties": map[string]any{"Title": "b"}})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	apitest.DecodeJSON(t, resp, &b)

	resp = ts.Do(t, http.MethodPost, "/api/v1/graph/relationships/", bearer, map[string]any{
		"type":   "REFERENCES",
		"source": map[string]any{"value": a.UUID},
		"target": map[string]any{"value": b.UUID},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var rel struct {
		UUID   string `json:"uuid"`
		Type   string `json:"type"`
		Source string `json:"source"`
		Target string `json:"target"`
	}
	apitest.DecodeJSON(t, resp, &rel)
	assert.Equal(t, "REFERENCES", rel.Type)
	assert.Equal(t, a.UUID, rel.Source)
	assert.Equal(t, b.UUID, rel.Target)

	resp = ts.Do(t, http.MethodGet, "/api/v1/graph/relationships/"+rel.UUID, "", nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = ts.Do(t, http.MethodDelete, "/api/v1/graph/relationships/"+rel.UUID, bearer, nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}
