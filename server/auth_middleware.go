package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/jrsteele09/go-teamchat/guard"
	"github.com/jrsteele09/go-teamchat/sessions"
	"github.com/rs/zerolog/log"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	// ContextKeyUser stores the *sessions.UserProfile of the signed in user
	ContextKeyUser ContextKey = "user"
	// ContextKeyAccessToken stores the bearer token forwarded to the board backend
	ContextKeyAccessToken ContextKey = "access_token"
)

// GuardMiddleware applies the route guard to every request before routing.
func (s *Server) GuardMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.rules.Applies(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		sc := sessions.NewContext(w, r)
		decision := s.rules.Decide(s.sessions.IsAuthenticated(sc), r.URL.Path)
		if decision.Action == guard.Redirect {
			redirectSuccess(w, r, decision.Location)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireSessionUser loads the cached profile for page routes. The guard has already
// checked the tokens; a session whose profile cookie is missing or broken is cleared.
func (s *Server) RequireSessionUser(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sc := sessions.NewContext(w, r)
		if !s.sessions.IsAuthenticated(sc) {
			redirectSuccess(w, r, RouteLogin)
			return
		}
		user := s.sessions.CurrentUser(sc)
		if user == nil {
			log.Warn().Str("path", r.URL.Path).Msg("Session without user info, signing out")
			redirectSuccess(w, r, s.identity.Logout(sc))
			return
		}

		ctx := context.WithValue(r.Context(), ContextKeyUser, user)
		ctx = context.WithValue(ctx, ContextKeyAccessToken, s.sessions.AccessToken(sc))
		next(w, r.WithContext(ctx))
	}
}

// RequireAuth guards API routes. It accepts a live bearer ID token in the Authorization
// header or, failing that, the session cookies.
func (s *Server) RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if raw, ok := bearerToken(r); ok {
			claims, err := s.sessions.LiveClaims(r.Context(), raw)
			if err != nil || claims.Subject == "" {
				writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Invalid or expired token")
				return
			}
			user := sessions.ProfileFromClaims(claims)
			ctx := context.WithValue(r.Context(), ContextKeyUser, &user)
			ctx = context.WithValue(ctx, ContextKeyAccessToken, raw)
			next(w, r.WithContext(ctx))
			return
		}

		sc := sessions.NewContext(w, r)
		user := s.sessions.CurrentUser(sc)
		if !s.sessions.IsAuthenticated(sc) || user == nil {
			writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Missing session")
			return
		}
		ctx := context.WithValue(r.Context(), ContextKeyUser, user)
		ctx = context.WithValue(ctx, ContextKeyAccessToken, s.sessions.AccessToken(sc))
		next(w, r.WithContext(ctx))
	}
}

func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", false
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

func userFromContext(ctx context.Context) *sessions.UserProfile {
	user, _ := ctx.Value(ContextKeyUser).(*sessions.UserProfile)
	return user
}

func accessTokenFromContext(ctx context.Context) string {
	raw, _ := ctx.Value(ContextKeyAccessToken).(string)
	return raw
}
