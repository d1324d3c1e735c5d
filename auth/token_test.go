package auth

import (
	"encoding/base64"
	"encoding/json"
	"strings"
	"testing"
	"time"
)

var epoch = time.Date(2025, 6, 4, 12, 0, 0, 0, time.UTC)

// mint builds an unsigned token whose payload holds claims.
func mint(t *testing.T, claims map[string]any) string {
	t.Helper()
	payload, err := json.Marshal(claims)
	if err != nil {
		t.Fatalf("cannot marshal claims: %v", err)
	}
	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"HS256","typ":"JWT"}`))
	return header + "." + base64.RawURLEncoding.EncodeToString(payload) + ".c2ln"
}

// expiring returns a token expiring d after epoch.
func expiring(t *testing.T, d time.Duration) string {
	t.Helper()
	return mint(t, map[string]any{"exp": epoch.Add(d).Unix(), "sub": 42, "name": "Asha"})
}

func TestValid(t *testing.T) {
	stdPayload := base64.StdEncoding.EncodeToString([]byte(`{"exp":` + jsonInt(epoch.Add(time.Hour).Unix()) + `}`))
	tests := []struct {
		name   string
		token  string
		buffer time.Duration
		want   bool
	}{
		{"empty", "", 0, false},
		{"two segments", "a.b", 0, false},
		{"four segments", "a.b.c.d", 0, false},
		{"undecodable payload", "a.!!!.c", 0, false},
		{"payload not json", "a." + base64.RawURLEncoding.EncodeToString([]byte("nope")) + ".c", 0, false},
		{"missing exp", mint(t, map[string]any{"sub": "1"}), 0, false},
		{"exp not a number", mint(t, map[string]any{"exp": "tomorrow"}), 0, false},
		{"expired", expiring(t, -time.Second), 0, false},
		{"expires exactly now", expiring(t, 0), 0, false},
		{"valid without buffer", expiring(t, time.Minute), 0, true},
		{"inside refresh buffer", expiring(t, time.Minute), RefreshBuffer, false},
		{"at refresh buffer edge", expiring(t, RefreshBuffer), RefreshBuffer, false},
		{"beyond refresh buffer", expiring(t, RefreshBuffer+time.Second), RefreshBuffer, true},
		{"standard base64 payload", "a." + stdPayload + ".c", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Valid(tt.token, epoch, tt.buffer); got != tt.want {
				t.Errorf("Valid(%q, buffer=%v) = %v, want %v", tt.token, tt.buffer, got, tt.want)
			}
		})
	}
}

func TestParseClaims(t *testing.T) {
	c, err := ParseClaims(expiring(t, time.Hour))
	if err != nil {
		t.Fatalf("ParseClaims() error = %v", err)
	}
	if !c.Expiry.Equal(epoch.Add(time.Hour)) {
		t.Errorf("Expiry = %v, want %v", c.Expiry, epoch.Add(time.Hour))
	}
	if c.Subject != "42" || c.Name != "Asha" {
		t.Errorf("Subject, Name = %q, %q, want %q, %q", c.Subject, c.Name, "42", "Asha")
	}

	_, err = ParseClaims("only.two")
	if err == nil || !strings.Contains(err.Error(), "segments") {
		t.Errorf("ParseClaims(only.two) error = %v, want segment error", err)
	}
}

func jsonInt(v int64) string {
	b, _ := json.Marshal(v)
	return string(b)
}
