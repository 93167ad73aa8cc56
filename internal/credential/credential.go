// Package credential implements password salting, adaptive hashing and the
// syntactic checks applied to registration input.
//
// Passwords are salted twice: an application-level salt is inserted at a
// random offset inside the plaintext, and bcrypt applies its own salt on top.
// The manual layer adds little beyond bcrypt's salt and cost, but it is part
// of the stored credential format and is kept for compatibility.
package credential

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"regexp"
	"strings"

	"github.com/obsidian-cms/obsidian/internal/domain"
	"golang.org/x/crypto/bcrypt"
)

const (
	// DefaultSaltLength matches the length of salts already in the graph.
	DefaultSaltLength = 32

	saltAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

	// Character classes required by the complexity policy.
	specialChars      = "#?!@$%^&*-"
	minPasswordLength = 8
)

// RFC 5322 syntactic email pattern. Matching is done on the lowercased
// address; no DNS or mailbox lookup is performed.
const emailLocalChars = "a-z0-9!#$%&'*+/=?^_`{|}~-"

var emailRe = regexp.MustCompile(
	`^(?:[` + emailLocalChars + `]+(?:\.[` + emailLocalChars + `]+)*` +
		`|"(?:[\x01-\x08\x0b\x0c\x0e-\x1f\x21\x23-\x5b\x5d-\x7f]|\\[\x01-\x09\x0b\x0c\x0e-\x7f])*")` +
		`@(?:(?:[a-z0-9](?:[a-z0-9-]*[a-z0-9])?\.)+[a-z0-9](?:[a-z0-9-]*[a-z0-9])?` +
		`|\[(?:(?:25[0-5]|2[0-4][0-9]|[01]?[0-9][0-9]?)\.){3}` +
		`(?:25[0-5]|2[0-4][0-9]|[01]?[0-9][0-9]?|[a-z0-9-]*[a-z0-9]:` +
		`(?:[\x01-\x08\x0b\x0c\x0e-\x1f\x21-\x5a\x53-\x7f]|\\[\x01-\x09\x0b\x0c\x0e-\x7f])+)\])$`)

// Manager creates and verifies stored credentials. It is immutable after
// construction and safe for concurrent use.
type Manager struct {
	saltLength   int
	cost         int
	forceComplex bool
}

func NewManager(saltLength, cost int, forceComplex bool) *Manager {
	if saltLength <= 0 {
		saltLength = DefaultSaltLength
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &Manager{saltLength: saltLength, cost: cost, forceComplex: forceComplex}
}

// CreateSalt returns a random letter salt and a uniformly random insertion
// offset in [0, passwordLength).
func (m *Manager) CreateSalt(passwordLength int) (string, int, error) {
	if passwordLength == 0 {
		return "", 0, fmt.Errorf("%w: password must not be empty", domain.ErrValidation)
	}

	var sb strings.Builder
	sb.Grow(m.saltLength)
	for i := 0; i < m.saltLength; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(saltAlphabet))))
		if err != nil {
			return "", 0, fmt.Errorf("generate salt: %w", err)
		}
		sb.WriteByte(saltAlphabet[n.Int64()])
	}

	pos, err := rand.Int(rand.Reader, big.NewInt(int64(passwordLength)))
	if err != nil {
		return "", 0, fmt.Errorf("generate salt position: %w", err)
	}

	return sb.String(), int(pos.Int64()), nil
}

// SaltPassword inserts salt into password at saltPos. A saltPos beyond the
// end of the password means the stored credential no longer matches the
// password it was created from; that state is never silently tolerated.
func SaltPassword(password, salt string, saltPos int) (string, error) {
	if saltPos < 0 || saltPos > len(password) {
		return "", fmt.Errorf("%w: salt position %d outside password bounds", domain.ErrCorruptCredential, saltPos)
	}
	return password[:saltPos] + salt + password[saltPos:], nil
}

// HashPassword applies bcrypt to the salted password. The returned hash
// embeds the algorithm identifier, cost and bcrypt's own salt, so
// verification needs no side-channel state.
func (m *Manager) HashPassword(salted string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(salted), m.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// New builds a complete credential for a plaintext password.
func (m *Manager) New(password string) (domain.Credential, error) {
	salt, saltPos, err := m.CreateSalt(len(password))
	if err != nil {
		return domain.Credential{}, err
	}
	salted, err := SaltPassword(password, salt, saltPos)
	if err != nil {
		return domain.Credential{}, err
	}
	hash, err := m.HashPassword(salted)
	if err != nil {
		return domain.Credential{}, err
	}
	return domain.Credential{Salt: salt, SaltPos: saltPos, HashedPassword: hash}, nil
}

// VerifyPassword recomputes the salted password from the stored salt and
// offset and compares it against the stored hash in constant time.
func (m *Manager) VerifyPassword(cred domain.Credential, plaintext string) (bool, error) {
	salted, err := SaltPassword(plaintext, cred.Salt, cred.SaltPos)
	if err != nil {
		return false, err
	}
	err = bcrypt.CompareHashAndPassword([]byte(cred.HashedPassword), []byte(salted))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	return false, fmt.Errorf("%w: %v", domain.ErrCorruptCredential, err)
}

// ValidateEmail reports whether s is a syntactically valid address.
func ValidateEmail(s string) bool {
	return emailRe.MatchString(strings.ToLower(s))
}

// ValidatePasswordComplexity requires at least 8 characters with one upper
// case letter, one lower case letter, one digit and one special character.
// Always true when the complexity policy is disabled by configuration.
func (m *Manager) ValidatePasswordComplexity(s string) bool {
	if !m.forceComplex {
		return true
	}
	if len(s) < minPasswordLength {
		return false
	}
	var upper, lower, digit, special bool
	for _, r := range s {
		switch {
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= '0' && r <= '9':
			digit = true
		case strings.ContainsRune(specialChars, r):
			special = true
		}
	}
	return upper && lower && digit && special
}
