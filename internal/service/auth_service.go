package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/obsidian-cms/obsidian/internal/credential"
	"github.com/obsidian-cms/obsidian/internal/domain"
	"github.com/obsidian-cms/obsidian/internal/repository"
	"github.com/obsidian-cms/obsidian/internal/token"
)

// AuthService handles registration, the password grant and resolution of
// the calling user from a bearer token.
type AuthService struct {
	users  repository.UserRepository
	creds  *credential.Manager
	tokens *token.Service
}

func NewAuthService(users repository.UserRepository, creds *credential.Manager, tokens *token.Service) *AuthService {
	return &AuthService{users: users, creds: creds, tokens: tokens}
}

type RegisterInput struct {
	ScreenName string
	Email      string
	Password   string
	Phone      string
	FirstName  string
	MiddleName string
	LastName   string
}

// Register validates the input, builds a credential and persists the new
// user. The returned user never carries credential material outward; the
// Credential field is excluded from serialization.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*domain.User, error) {
	if !credential.ValidateEmail(input.Email) {
		return nil, fmt.Errorf("%w: %s is not a valid email address", domain.ErrValidation, input.Email)
	}
	if !s.creds.ValidatePasswordComplexity(input.Password) {
		return nil, fmt.Errorf("%w: password must have at least 8 characters with one upper case, one lower case, one number and one special character", domain.ErrValidation)
	}

	if _, err := s.users.GetByEmail(ctx, input.Email); err == nil {
		return nil, fmt.Errorf("%w: user with email %s", domain.ErrConflict, input.Email)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	cred, err := s.creds.New(input.Password)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	user := &domain.User{
		UUID:       uuid.NewString(),
		ScreenName: input.ScreenName,
		Email:      input.Email,
		Phone:      input.Phone,
		FirstName:  input.FirstName,
		MiddleName: input.MiddleName,
		LastName:   input.LastName,
		Joined:     now,
		LastSeen:   now,
		Credential: cred,
	}

	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Login verifies the password grant and returns a signed bearer token.
// Unknown emails and wrong passwords fail identically.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "", domain.ErrAuthenticationFailed
		}
		return "", err
	}

	ok, err := s.creds.VerifyPassword(user.Credential, password)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", domain.ErrAuthenticationFailed
	}

	// LastSeen is advisory; a failure here must not fail the login.
	_ = s.users.UpdateLastSeen(ctx, user.UUID, time.Now().UTC())

	return s.tokens.Issue(user.Email)
}

// ResolveRequired verifies the token and loads the subject user.
func (s *AuthService) ResolveRequired(ctx context.Context, tokenString string) (*domain.User, error) {
	claims, err := s.tokens.Verify(tokenString)
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetByEmail(ctx, claims.Email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrAuthenticationFailed
		}
		return nil, err
	}
	return user, nil
}

// ResolveActive rejects users whose accounts are disabled or banned.
func (s *AuthService) ResolveActive(user *domain.User) error {
	if user.Disabled {
		return domain.ErrAccountDisabled
	}
	if user.Banned {
		return domain.ErrAccountBanned
	}
	return nil
}

// ResolveOptional resolves a caller for endpoints that serve both public
// and gated content. With required unset, a missing or unverifiable token
// yields a nil user rather than an error; downstream visibility checks
// still apply to the nil (guest) caller.
func (s *AuthService) ResolveOptional(ctx context.Context, tokenString string, required bool) (*domain.User, error) {
	if tokenString == "" {
		if required {
			return nil, domain.ErrAuthenticationFailed
		}
		return nil, nil
	}

	user, err := s.ResolveRequired(ctx, tokenString)
	if err != nil {
		if required {
			return nil, err
		}
		return nil, nil
	}
	if err := s.ResolveActive(user); err != nil {
		if required {
			return nil, err
		}
		return nil, nil
	}
	return user, nil
}
