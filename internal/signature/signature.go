// Package signature computes and checks the webhook handshake signature.
package signature

import (
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// ErrMissingParameter is returned when a required query parameter is absent.
var ErrMissingParameter = errors.New("missing signature parameter")

// Inputs holds the values a signature is computed from, plus the
// signature the platform sent.
type Inputs struct {
	Token     string
	Timestamp string
	Nonce     string
	Signature string
}

// Sign returns the lowercase hex SHA-1 of token, timestamp and nonce
// sorted lexicographically and concatenated without a separator.
func Sign(token, timestamp, nonce string) string {
	parts := []string{token, timestamp, nonce}
	sort.Strings(parts)
	sum := sha1.Sum([]byte(strings.Join(parts, "")))
	return hex.EncodeToString(sum[:])
}

// Verify reports whether signature matches Sign(token, timestamp, nonce).
// The comparison is exact: no trimming or case folding.
func Verify(token, timestamp, nonce, signature string) bool {
	return Sign(token, timestamp, nonce) == signature
}

// FromQuery extracts signature inputs from webhook query parameters.
func FromQuery(q url.Values, token string) (Inputs, error) {
	in := Inputs{Token: token}
	for _, p := range []struct {
		name string
		dst  *string
	}{
		{"signature", &in.Signature},
		{"timestamp", &in.Timestamp},
		{"nonce", &in.Nonce},
	} {
		if _, ok := q[p.name]; !ok {
			return Inputs{}, fmt.Errorf("%w: %s", ErrMissingParameter, p.name)
		}
		*p.dst = q.Get(p.name)
	}
	return in, nil
}

// Valid reports whether the inputs carry a correct signature.
func (in Inputs) Valid() bool {
	return Verify(in.Token, in.Timestamp, in.Nonce, in.Signature)
}

// Expected returns the signature the inputs should carry.
func (in Inputs) Expected() string {
	return Sign(in.Token, in.Timestamp, in.Nonce)
}
