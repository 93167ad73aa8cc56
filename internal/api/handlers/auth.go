package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/obsidian-cms/obsidian/internal/api/middleware"
	"github.com/obsidian-cms/obsidian/internal/domain"
	"github.com/obsidian-cms/obsidian/internal/service"
)

type AuthHandler struct {
	authService *service.AuthService
}

func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

type RegisterRequest struct {
	ScreenName string `json:"screenName"`
	Email      string `json:"email"`
	Password   string `json:"password"`
	Phone      string `json:"phone,omitempty"`
	FirstName  string `json:"firstName,omitempty"`
	MiddleName string `json:"middleName,omitempty"`
	LastName   string `json:"lastName,omitempty"`
}

type TokenRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type TokenResponse struct {
	AccessToken string `json:"accessToken"`
	TokenType   string `json:"tokenType"`
}

type UserResponse struct {
	UUID       string `json:"uuid"`
	ScreenName string `json:"screenName"`
	Email      string `json:"email"`
	FirstName  string `json:"firstName,omitempty"`
	MiddleName string `json:"middleName,omitempty"`
	LastName   string `json:"lastName,omitempty"`
	Phone      string `json:"phone,omitempty"`
	Admin      bool   `json:"admin"`
	Joined     string `json:"joined"`
	LastSeen   string `json:"lastSeen"`
}

func userResponse(user *domain.User) UserResponse {
	return UserResponse{
		UUID:       user.UUID,
		ScreenName: user.ScreenName,
		Email:      user.Email,
		FirstName:  user.FirstName,
		MiddleName: user.MiddleName,
		LastName:   user.LastName,
		Phone:      user.Phone,
		Admin:      user.Admin,
		Joined:     user.Joined.UTC().Format(time.RFC3339),
		LastSeen:   user.LastSeen.UTC().Format(time.RFC3339),
	}
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if req.Email == "" || req.Password == "" {
		http.Error(w, "Email and password are required", http.StatusBadRequest)
		return
	}

	user, err := h.authService.Register(r.Context(), service.RegisterInput{
		ScreenName: req.ScreenName,
		Email:      req.Email,
		Password:   req.Password,
		Phone:      req.Phone,
		FirstName:  req.FirstName,
		MiddleName: req.MiddleName,
		LastName:   req.LastName,
	})
	if err != nil {
		writeError(w, "AuthHandler.Register", err)
		return
	}

	writeJSON(w, http.StatusCreated, userResponse(user))
}

// Token implements the password grant.
func (h *AuthHandler) Token(w http.ResponseWriter, r *http.Request) {
	var req TokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if req.Email == "" || req.Password == "" {
		http.Error(w, "Email and password are required", http.StatusBadRequest)
		return
	}

	token, err := h.authService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, "AuthHandler.Token", err)
		return
	}

	writeJSON(w, http.StatusOK, TokenResponse{AccessToken: token, TokenType: "bearer"})
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user := middleware.CurrentUser(r.Context())
	if user == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	writeJSON(w, http.StatusOK, userResponse(user))
}
