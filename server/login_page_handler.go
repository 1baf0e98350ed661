package server

import (
	"net/http"
	"strings"

	"github.com/jrsteele09/go-teamchat/sessions"
	"github.com/rs/zerolog/log"
)

// LoginPageData contains data for rendering the login page
type LoginPageData struct {
	AppName string
	Error   string
	Email   string // Preserve email on error
}

// LoginPageHandler displays the login page (GET /login). The guard has already sent signed
// in users to their boards.
func (s *Server) LoginPageHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		flash := s.flash.Pop(w, r, flashError, flashEmail)
		s.render(w, http.StatusOK, pageLogin, LoginPageData{
			AppName: s.config.GetAppName(),
			Error:   flash[flashError],
			Email:   flash[flashEmail],
		})
	}
}

// LoginSubmissionHandler processes the login form submission
func (s *Server) LoginSubmissionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form data", http.StatusBadRequest)
			return
		}

		email := strings.TrimSpace(r.FormValue("email"))
		password := r.FormValue("password")

		if email == "" || password == "" {
			s.renderLoginError(w, r, "Email and password are required", email)
			return
		}

		if !s.limiter.Allow(r) {
			log.Warn().Str("ip", clientIP(r, s.limiter.proxies)).Msg("Login rate limited")
			s.renderLoginError(w, r, "Too many login attempts. Please wait a minute and try again.", email)
			return
		}

		result := s.identity.Login(r.Context(), sessions.NewContext(w, r), email, password)
		if !result.Success {
			s.renderLoginError(w, r, result.Message, email)
			return
		}

		redirectSuccess(w, r, s.rules.HomePath)
	}
}

// LogoutHandler clears the session cookies and returns to the login page.
func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		redirectSuccess(w, r, s.identity.Logout(sessions.NewContext(w, r)))
	}
}

// renderLoginError redirects to login page with an error message
func (s *Server) renderLoginError(w http.ResponseWriter, r *http.Request, errorMsg, email string) {
	s.flash.Set(w, r, map[string]string{flashError: errorMsg, flashEmail: email})
	redirectSuccess(w, r, RouteLogin)
}
