package token

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/go-teamchat/internal/errors"
)

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

// Claims are the identity claims carried by an ID token.
type Claims struct {
	Email         string   `json:"email,omitempty"`
	EmailVerified flexBool `json:"email_verified,omitempty"`
	GivenName     string   `json:"given_name,omitempty"`
	FamilyName    string   `json:"family_name,omitempty"`
	Name          string   `json:"name,omitempty"`
	Picture       string   `json:"picture,omitempty"`
	jwtlib.RegisteredClaims
}

// Expiry returns the exp claim and whether it was present.
func (c *Claims) Expiry() (time.Time, bool) {
	if c == nil || c.ExpiresAt == nil {
		return time.Time{}, false
	}
	return c.ExpiresAt.Time, true
}

// Decode parses the payload of a JWT without checking its signature.
// Anything that cannot be parsed yields an error wrapping errors.ErrInvalidToken.
func Decode(raw string) (*Claims, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, errors.Kind(errors.ErrInvalidToken, nil, "decode: empty token")
	}

	claims := &Claims{}
	if _, _, err := jwtlib.NewParser().ParseUnverified(raw, claims); err != nil {
		return nil, errors.Kind(errors.ErrInvalidToken, err, "decode")
	}
	return claims, nil
}

// IsLive reports whether raw decodes and expires strictly after now.
// A token without an exp claim is never live.
func IsLive(raw string, now time.Time) bool {
	claims, err := Decode(raw)
	if err != nil {
		return false
	}
	return claims.LiveAt(now)
}

// LiveAt compares the exp claim with now at second resolution.
func (c *Claims) LiveAt(now time.Time) bool {
	exp, ok := c.Expiry()
	if !ok {
		return false
	}
	return exp.Unix() > now.Unix()
}

// flexBool accepts both true and "true"; some identity providers send booleans as strings.
type flexBool bool

func (b *flexBool) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch t := v.(type) {
	case bool:
		*b = flexBool(t)
	case string:
		parsed, _ := strconv.ParseBool(t)
		*b = flexBool(parsed)
	default:
		*b = false
	}
	return nil
}
