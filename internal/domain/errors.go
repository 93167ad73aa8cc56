package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Input and uniqueness errors
var (
	ErrValidation = errors.New("validation failed")
	ErrConflict   = errors.New("resource already exists")
	ErrNotFound   = errors.New("resource not found")
	ErrAmbiguous  = errors.New("match resolved to more than one node")
)

// Authentication errors
var (
	ErrAuthenticationFailed = errors.New("incorrect username or password")
	ErrAccountDisabled      = errors.New("account is disabled")
	ErrAccountBanned        = errors.New("account is banned")
	ErrCorruptCredential    = errors.New("stored credential is corrupt")
)

// Token errors
var (
	ErrTokenExpired   = errors.New("token has expired")
	ErrBadSignature   = errors.New("token signature is invalid")
	ErrMalformedToken = errors.New("token is malformed")
)

// Authorization and graph policy errors
var (
	ErrUnauthorized    = errors.New("insufficient rights for this resource")
	ErrPolicyViolation = errors.New("operation not permitted by graph policy")
)

// Storage errors
var (
	ErrFileExists = errors.New("file already exists")
	ErrStorage    = errors.New("storage operation failed")
)

// PartialFailureError reports a cascading delete that left some owned
// sub-resources undeleted. The parent resource is never removed while any
// sub-resource remains, so callers can retry the whole delete.
type PartialFailureError struct {
	Failed []string
}

func (e *PartialFailureError) Error() string {
	return fmt.Sprintf("cascade delete failed for %d sub-resources: %s",
		len(e.Failed), strings.Join(e.Failed, ", "))
}
