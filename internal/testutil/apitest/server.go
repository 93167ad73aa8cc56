package apitest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/obsidian-cms/obsidian/internal/api"
	"github.com/obsidian-cms/obsidian/internal/credential"
	"github.com/obsidian-cms/obsidian/internal/repository"
	"github.com/obsidian-cms/obsidian/internal/service"
	"github.com/obsidian-cms/obsidian/internal/testutil"
	"github.com/obsidian-cms/obsidian/internal/token"
)

// TestServer runs the full HTTP stack over the in-memory repositories.
type TestServer struct {
	Server   *httptest.Server
	Entities *testutil.MemEntityStore
	Users    *testutil.MemUserRepo
	Blobs    *testutil.MemBlob
	Services *service.Services
}

func NewTestServer(t *testing.T) *TestServer {
	t.Helper()

	entities := testutil.NewMemEntityStore()
	users := testutil.NewMemUserRepo()
	blobs := testutil.NewMemBlob()
	repos := &repository.Repositories{Entities: entities, Users: users, Blobs: blobs}

	creds := credential.NewManager(credential.DefaultSaltLength, bcrypt.MinCost, true)
	tokens, err := token.NewService("test-secret", 15*time.Minute)
	require.NoError(t, err)

	services := service.NewServices(repos, creds, tokens)
	srv := httptest.NewServer(api.NewRouter(services))
	t.Cleanup(srv.Close)

	return &TestServer{
		Server:   srv,
		Entities: entities,
		Users:    users,
		Blobs:    blobs,
		Services: services,
	}
}

// Do sends a request with an optional JSON body and bearer token.
func (ts *TestServer) Do(t *testing.T, method, path, bearer string, body any) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, ts.Server.URL+path, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := ts.Server.Client().Do(req)
	require.NoError(t, err)
	return resp
}

// UploadFile posts a multipart upload to /api/v1/files.
func (ts *TestServer) UploadFile(t *testing.T, bearer, filename, contentType, content string, fields map[string]string) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
	header.Set("Content-Type", contentType)
	part, err := mw.CreatePart(header)
	require.NoError(t, err)
	_, err = io.WriteString(part, content)
	require.NoError(t, err)
	for key, value := range fields {
		require.NoError(t, mw.WriteField(key, value))
	}
	require.NoError(t, mw.Close())

	req, err := http.NewRequest(http.MethodPost, ts.Server.URL+"/api/v1/files/", &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := ts.Server.Client().Do(req)
	require.NoError(t, err)
	return resp
}

// RegisterAndLogin creates an account through the API and returns its
// bearer token.
func (ts *TestServer) RegisterAndLogin(t *testing.T, email, password string) string {
	t.Helper()

	resp := ts.Do(t, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"screenName": "user",
		"email":      email,
		"password":   password,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp = ts.Do(t, http.MethodPost, "/api/v1/auth/token", "", map[string]string{
		"email":    email,
		"password": password,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var tokenResp struct {
		AccessToken string `json:"accessToken"`
	}
	DecodeJSON(t, resp, &tokenResp)
	require.NotEmpty(t, tokenResp.AccessToken)
	return tokenResp.AccessToken
}

// DecodeJSON reads and closes a response body into out.
func DecodeJSON(t *testing.T, resp *http.Response, out any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}
