package session

import (
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

const anonymousName = "Genius"

type Identity struct {
	UserID    string `json:"user_id,omitempty"`
	Name      string `json:"name"`
	Email     string `json:"email,omitempty"`
	Anonymous bool   `json:"anonymous"`
}

// DecodeIdentity reads display claims from the token without verifying its
// signature; the server is the only verifier. ok is false when the token is not
// a parseable JWT.
func DecodeIdentity(token string) (Identity, bool) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Identity{}, false
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return Identity{}, false
	}
	id := Identity{
		Name:  claimString(claims, "name"),
		Email: claimString(claims, "email"),
	}
	if sub, err := claims.GetSubject(); err == nil && sub != "" {
		id.UserID = sub
	} else {
		id.UserID = claimString(claims, "user_id")
	}
	return id, true
}

func claimString(c jwt.MapClaims, key string) string {
	if v, ok := c[key].(string); ok {
		return strings.TrimSpace(v)
	}
	return ""
}

// resolveIdentity fills display fields from the token, then the cached user,
// then the anonymous placeholder. decoded reports whether the token parsed.
func resolveIdentity(s Snapshot) (id Identity, decoded bool) {
	id, decoded = DecodeIdentity(s.Token)
	if s.User != nil {
		if id.UserID == "" {
			id.UserID = s.User.ID
		}
		if id.Name == "" {
			id.Name = strings.TrimSpace(s.User.Name)
		}
		if id.Email == "" {
			id.Email = strings.TrimSpace(s.User.Email)
		}
	}
	if id.Name == "" {
		id.Name = anonymousName
		id.Anonymous = id.Email == "" && id.UserID == ""
	}
	return id, decoded
}
