package renderer

import (
	"fmt"
	"time"

	"github.com/etnz/moneymanager/auth"
)

// Session describes s, without its tokens.
func Session(s auth.Session, now time.Time) string {
	data := struct {
		Name, Subject, Credential, Error string
		Refresh                          bool
	}{Name: s.DisplayName, Refresh: s.RefreshToken != ""}

	claims, err := auth.ParseClaims(s.Token)
	if err != nil {
		data.Error = err.Error()
		return renderTemplate("session", "session.md", nil, data)
	}
	data.Subject = claims.Subject
	if data.Name == "" {
		data.Name = claims.Name
	}
	switch left := claims.Expiry.Sub(now).Round(time.Second); {
	case left <= 0:
		data.Credential = fmt.Sprintf("expired at %s", claims.Expiry.Format(time.RFC3339))
	case left <= auth.RefreshBuffer:
		data.Credential = fmt.Sprintf("expires in %s, due for refresh", left)
	default:
		data.Credential = fmt.Sprintf("expires in %s", left)
	}
	return renderTemplate("session", "session.md", nil, data)
}
