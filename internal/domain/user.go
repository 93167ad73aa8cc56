package domain

import "time"

// Credential holds the stored secret material for a user. It is created once
// at registration and read only during login; there is no password-change
// flow, so Salt, SaltPos and HashedPassword never change independently.
type Credential struct {
	Salt           string `json:"-"`
	SaltPos        int    `json:"-"`
	HashedPassword string `json:"-"`
}

type User struct {
	UUID       string    `json:"uuid"`
	ScreenName string    `json:"screenName"`
	Email      string    `json:"email"`
	FirstName  string    `json:"firstName,omitempty"`
	MiddleName string    `json:"middleName,omitempty"`
	LastName   string    `json:"lastName,omitempty"`
	Phone      string    `json:"phone,omitempty"`
	Disabled   bool      `json:"disabled"`
	Banned     bool      `json:"banned"`
	Admin      bool      `json:"admin"`
	LastSeen   time.Time `json:"lastSeen"`
	Joined     time.Time `json:"joined"`

	Credential Credential `json:"-"`
}
