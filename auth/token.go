package auth

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

// RefreshBuffer is how long before hard expiry a credential is refreshed
// pre-emptively.
const RefreshBuffer = 300 * time.Second

// Claims is the part of a credential token payload the client cares about.
type Claims struct {
	Expiry  time.Time
	Subject string
	Name    string
}

// ParseClaims decodes the payload segment of token.
// It fails on any structural defect, including a missing "exp" claim.
func ParseClaims(token string) (Claims, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return Claims{}, fmt.Errorf("invalid token format: %d segments", len(parts))
	}
	payload, err := decodeSegment(parts[1])
	if err != nil {
		return Claims{}, fmt.Errorf("cannot decode token payload: %w", err)
	}
	var raw struct {
		Exp  *float64 `json:"exp"`
		Sub  any      `json:"sub"`
		Name string   `json:"name"`
	}
	if err := json.Unmarshal(payload, &raw); err != nil {
		return Claims{}, fmt.Errorf("cannot decode token claims: %w", err)
	}
	if raw.Exp == nil {
		return Claims{}, errors.New("token has no expiry claim")
	}
	sec, frac := math.Modf(*raw.Exp)
	c := Claims{
		Expiry: time.Unix(int64(sec), int64(frac*1e9)).UTC(),
		Name:   raw.Name,
	}
	if raw.Sub != nil {
		c.Subject = fmt.Sprint(raw.Sub)
	}
	return c, nil
}

// Valid reports whether token is structurally sound and does not expire
// within buffer of now. It never panics and fails closed.
func Valid(token string, now time.Time, buffer time.Duration) bool {
	if token == "" {
		return false
	}
	c, err := ParseClaims(token)
	if err != nil {
		return false
	}
	return c.Expiry.After(now.Add(buffer))
}

// decodeSegment accepts both base64 alphabets, padded or not. Issuers
// differ and browsers' atob only knows the standard one.
func decodeSegment(s string) ([]byte, error) {
	var err error
	for _, enc := range []*base64.Encoding{
		base64.RawURLEncoding,
		base64.URLEncoding,
		base64.RawStdEncoding,
		base64.StdEncoding,
	} {
		var b []byte
		if b, err = enc.DecodeString(s); err == nil {
			return b, nil
		}
	}
	return nil, err
}
