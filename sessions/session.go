package sessions

import (
	"strings"
	"time"

	"github.com/jrsteele09/go-teamchat/token"
)

// Session is the browser-held login state. Tokens are immutable once issued.
type Session struct {
	AccessToken  string
	IDToken      string
	RefreshToken string
	TokenType    string
	ExpiresAt    time.Time // ID token expiry
	Profile      UserProfile
}

// UserProfile is derived once from the ID token at login and cached in the userInfo cookie.
type UserProfile struct {
	Sub        string `json:"sub"`
	Email      string `json:"email"`
	Name       string `json:"name,omitempty"`
	GivenName  string `json:"given_name,omitempty"`
	FamilyName string `json:"family_name,omitempty"`
	Picture    string `json:"picture,omitempty"`
}

// ProfileFromClaims builds the cached profile. Name is "given family" trimmed.
func ProfileFromClaims(c *token.Claims) UserProfile {
	name := strings.TrimSpace(c.GivenName + " " + c.FamilyName)
	if name == "" {
		name = c.Name
	}
	return UserProfile{
		Sub:        c.Subject,
		Email:      c.Email,
		Name:       name,
		GivenName:  c.GivenName,
		FamilyName: c.FamilyName,
		Picture:    c.Picture,
	}
}

// DisplayName prefers the full name, then the given name.
func (p UserProfile) DisplayName() string {
	switch {
	case p.Name != "":
		return p.Name
	case p.GivenName != "":
		return p.GivenName
	}
	return "User"
}

// Initials returns the upper-cased first letters of each name part, or "U".
func (p UserProfile) Initials() string {
	return Initials(p.Name, "U")
}

// Initials of a display name, e.g. "Alice Johnson" -> "AJ".
func Initials(name, fallback string) string {
	var b strings.Builder
	for _, part := range strings.Fields(name) {
		b.WriteString(strings.ToUpper(string([]rune(part)[0])))
	}
	if b.Len() == 0 {
		return fallback
	}
	return b.String()
}
