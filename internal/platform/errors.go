package platform

import (
	"errors"
	"fmt"
)

// ErrMalformedResponse is returned when a platform response is not the
// JSON document the endpoint promises.
var ErrMalformedResponse = errors.New("malformed platform response")

// Error is a non-zero errcode returned by the platform.
type Error struct {
	Code    int    `json:"errcode"`
	Message string `json:"errmsg"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("platform error %d: %s", e.Code, e.Message)
}

// Error codes that mean the bearer token was rejected and a fresh one
// should be obtained.
const (
	CodeInvalidCredential  = 40001
	CodeInvalidAccessToken = 40014
	CodeAccessTokenExpired = 42001
)

// IsTokenInvalid reports whether err is a platform error caused by a stale
// or revoked access token.
func IsTokenInvalid(err error) bool {
	var pe *Error
	if !errors.As(err, &pe) {
		return false
	}
	switch pe.Code {
	case CodeInvalidCredential, CodeInvalidAccessToken, CodeAccessTokenExpired:
		return true
	}
	return false
}

// Code extracts the platform errcode from err, or 0.
func Code(err error) int {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Code
	}
	return 0
}
