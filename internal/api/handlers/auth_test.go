package handlers_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/obsidian-cms/obsidian/internal/testutil/apitest"
)

func TestAuthHandler_Register(t *testing.T) {
	tests := []struct {
		name           string
		request        map[string]string
		expectedStatus int
	}{
		{
			name: "successful registration",
			request: map[string]string{
				"screenName": "newuser",
				"email":      "new@example.com",
				"password":   "Sup3rSecret!",
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name: "missing email",
			request: map[string]string{
				"password": "Sup3rSecret!",
			},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "missing password",
			request: map[string]string{
				"email": "new@example.com",
			},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "invalid email",
			request: map[string]string{
				"email":    "not-an-email",
				"password": "Sup3rSecret!",
			},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "weak password",
			request: map[string]string{
				"email":    "weak@example.com",
				"password": "password",
			},
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := apitest.NewTestServer(t)

			resp := ts.Do(t, http.MethodPost, "/api/v1/auth/register", "", tt.request)
			defer resp.Body.Close()
			assert.Equal(t, tt.expectedStatus, resp.StatusCode)
		})
	}
}

func TestAuthHandler_Register_Duplicate(t *testing.T) {
	ts := apitest.NewTestServer(t)

	body := map[string]string{"email": "dup@example.com", "password": "Sup3rSecret!"}
	resp := ts.Do(t, http.MethodPost, "/api/v1/auth/register", "", body)
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = ts.Do(t, http.MethodPost, "/api/v1/auth/register", "", body)
	resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestAuthHandler_Token(t *testing.T) {
	ts := apitest.NewTestServer(t)
	ts.RegisterAndLogin(t, "alice@example.com", "Sup3rSecret!")

	resp := ts.Do(t, http.MethodPost, "/api/v1/auth/token", "", map[string]string{
		"email":    "alice@example.com",
		"password": "WrongPass1!",
	})
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAuthHandler_Me(t *testing.T) {
	ts := apitest.NewTestServer(t)
	bearer := ts.RegisterAndLogin(t, "alice@example.com", "Sup3rSecret!")

	resp := ts.Do(t, http.MethodGet, "/api/v1/auth/me", bearer, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var me struct {
		Email string `json:"email"`
		UUID  string `json:"uuid"`
	}
	apitest.DecodeJSON(t, resp, &me)
	assert.Equal(t, "alice@example.com", me.Email)
	assert.NotEmpty(t, me.UUID)

	resp = ts.Do(t, http.MethodGet, "/api/v1/auth/me", "", nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = ts.Do(t, http.MethodGet, "/api/v1/auth/me", "garbage", nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
