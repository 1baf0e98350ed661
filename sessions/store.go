package sessions

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jrsteele09/go-teamchat/internal/errors"
	"github.com/jrsteele09/go-teamchat/token"
	"github.com/rs/zerolog/log"
)

// Cookie names shared with the browser. userInfo is the only one scripts can read.
const (
	CookieAccessToken  = "accessToken"
	CookieIDToken      = "idToken"
	CookieRefreshToken = "refreshToken"
	CookieUserInfo     = "userInfo"
)

var allCookies = []string{CookieAccessToken, CookieIDToken, CookieRefreshToken, CookieUserInfo}

// Store reads and writes Session state into a request's cookies. It holds no per-user state.
type Store struct {
	secure          bool
	refreshLifetime time.Duration
	verifier        token.Verifier
}

// NewStore creates a cookie session store. verifier may be nil, in which case the
// ID token is only decoded and its expiry compared.
func NewStore(secure bool, refreshLifetime time.Duration, verifier token.Verifier) *Store {
	return &Store{
		secure:          secure,
		refreshLifetime: refreshLifetime,
		verifier:        verifier,
	}
}

// Persist writes the four session cookies.
func (s *Store) Persist(sc *Context, session Session) error {
	profile, err := json.Marshal(session.Profile)
	if err != nil {
		return err
	}

	sc.SetCookie(s.cookie(CookieAccessToken, session.AccessToken, session.ExpiresAt, true))
	sc.SetCookie(s.cookie(CookieIDToken, session.IDToken, session.ExpiresAt, true))
	sc.SetCookie(s.cookie(CookieRefreshToken, session.RefreshToken, token.NowTimeFunc().Add(s.refreshLifetime), true))
	sc.SetCookie(s.cookie(CookieUserInfo, encodeURIComponent(string(profile)), session.ExpiresAt, false))
	return nil
}

// CurrentUser returns the cached profile, or nil when it is absent or malformed.
func (s *Store) CurrentUser(sc *Context) *UserProfile {
	raw, ok := sc.Cookie(CookieUserInfo)
	if !ok {
		return nil
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		log.Debug().Err(err).Msg("userInfo cookie is not url encoded")
		return nil
	}
	var profile UserProfile
	if err := json.Unmarshal([]byte(decoded), &profile); err != nil || profile.Sub == "" {
		log.Debug().Err(err).Msg("userInfo cookie is malformed")
		return nil
	}
	return &profile
}

// IsAuthenticated needs both token cookies and a live ID token.
func (s *Store) IsAuthenticated(sc *Context) bool {
	access, ok := sc.Cookie(CookieAccessToken)
	if !ok || access == "" {
		return false
	}
	idToken, ok := sc.Cookie(CookieIDToken)
	if !ok {
		return false
	}
	if _, err := s.LiveClaims(sc.Context(), idToken); err != nil {
		log.Debug().Err(err).Msg("id token rejected")
		return false
	}
	return true
}

// LiveClaims returns the claims of an unexpired ID token, checking its signature when the
// store has a verifier.
func (s *Store) LiveClaims(ctx context.Context, raw string) (*token.Claims, error) {
	claims, err := token.Decode(raw)
	if err != nil {
		return nil, err
	}
	if !claims.LiveAt(token.NowTimeFunc()) {
		return nil, errors.Kind(errors.ErrTokenExpired, nil, "id token")
	}
	if s.verifier != nil {
		return s.verifier.Verify(ctx, raw)
	}
	return claims, nil
}

// AccessToken returns the bearer token for backend calls, or "".
func (s *Store) AccessToken(sc *Context) string {
	access, _ := sc.Cookie(CookieAccessToken)
	return access
}

// Clear deletes every session cookie. Deleting an absent cookie is not an error.
func (s *Store) Clear(sc *Context) {
	for _, name := range allCookies {
		sc.SetCookie(&http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			HttpOnly: name != CookieUserInfo,
			Secure:   s.secure,
			SameSite: http.SameSiteStrictMode,
			MaxAge:   -1,
		})
	}
}

func (s *Store) cookie(name, value string, expires time.Time, httpOnly bool) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		HttpOnly: httpOnly,
		Secure:   s.secure,
		SameSite: http.SameSiteStrictMode,
	}
}

// encodeURIComponent escapes like the browser function of that name, so scripts can read
// the cookie with decodeURIComponent. QueryEscape already turns a literal "+" into "%2B".
func encodeURIComponent(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
