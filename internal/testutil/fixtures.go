package testutil

import (
	"time"

	"github.com/google/uuid"
	"github.com/obsidian-cms/obsidian/internal/domain"
)

// UserBuilder builds domain users for tests.
type UserBuilder struct {
	user domain.User
}

func NewUserBuilder() *UserBuilder {
	now := time.Now().UTC()
	return &UserBuilder{user: domain.User{
		UUID:       uuid.NewString(),
		ScreenName: "testuser",
		Email:      "test@example.com",
		Joined:     now,
		LastSeen:   now,
	}}
}

func (b *UserBuilder) WithEmail(email string) *UserBuilder {
	b.user.Email = email
	return b
}

func (b *UserBuilder) WithScreenName(name string) *UserBuilder {
	b.user.ScreenName = name
	return b
}

func (b *UserBuilder) WithAdmin() *UserBuilder {
	b.user.Admin = true
	return b
}

func (b *UserBuilder) WithDisabled() *UserBuilder {
	b.user.Disabled = true
	return b
}

func (b *UserBuilder) WithBanned() *UserBuilder {
	b.user.Banned = true
	return b
}

func (b *UserBuilder) WithCredential(cred domain.Credential) *UserBuilder {
	b.user.Credential = cred
	return b
}

func (b *UserBuilder) Build() *domain.User {
	u := b.user
	return &u
}
