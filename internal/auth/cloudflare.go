// Package auth resolves the authenticated user identity forwarded by
// Cloudflare Access in front of the application.
package auth

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

const (
	emailHeader     = "Cf-Access-Authenticated-User-Email"
	forwardedHeader = "X-Forwarded-User"
	assertionHeader = "Cf-Access-Jwt-Assertion"
	accessCookie    = "CF_Authorization"
)

// UserEmail returns the email of the authenticated user, or an empty
// string when the request carries no identity.
//
// Cloudflare Access sets the identity header on proxied requests. The
// JWT assertion header and CF_Authorization cookie are fallbacks for
// paths the header does not reach; the proxy already verified their
// signatures, so the claims are read without re-verifying. A forwarded
// user value without an @ is some proxy's username, not an email, and
// is ignored.
func UserEmail(r *http.Request) string {
	if email := strings.TrimSpace(r.Header.Get(emailHeader)); email != "" {
		return email
	}
	if forwarded := strings.TrimSpace(r.Header.Get(forwardedHeader)); strings.Contains(forwarded, "@") {
		return forwarded
	}

	token := ""
	if cookie, err := r.Cookie(accessCookie); err == nil {
		token = cookie.Value
	}
	if token == "" {
		token = strings.TrimSpace(r.Header.Get(assertionHeader))
	}
	if token == "" {
		return ""
	}
	return emailFromAccessToken(token)
}

func emailFromAccessToken(raw string) string {
	claims := jwt.MapClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(raw, claims); err != nil {
		return ""
	}

	// Access tokens carry email; some identity providers only fill sub.
	for _, key := range []string{"email", "sub"} {
		if value, ok := claims[key].(string); ok {
			if trimmed := strings.TrimSpace(value); strings.Contains(trimmed, "@") {
				return trimmed
			}
		}
	}
	return ""
}
