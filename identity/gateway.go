// Package identity signs users in against the identity backend and turns its tokens into a
// cookie session.
package identity

import (
	"context"
	"net/http"

	"github.com/jrsteele09/go-teamchat/graphql"
	"github.com/jrsteele09/go-teamchat/internal/errors"
	"github.com/jrsteele09/go-teamchat/sessions"
	"github.com/jrsteele09/go-teamchat/token"
	"github.com/rs/zerolog/log"
)

const (
	LoginPath = "/login"

	msgSuccess       = "Login successful"
	msgFailed        = "Login failed"
	msgUnexpected    = "An error occurred during login"
	msgTokenUnusable = "Failed to decode ID token"
)

const loginMutation = `mutation LoginUser($input: LoginInput!) {
  loginUser(input: $input) {
    success
    message
    data {
      accessToken
      idToken
      refreshToken
      tokenType
      expiresIn
    }
    error
  }
}`

// Result is what the login form shows. Login never returns an error.
type Result struct {
	Success bool
	Message string
}

type authToken struct {
	AccessToken  string `json:"accessToken"`
	IDToken      string `json:"idToken"`
	RefreshToken string `json:"refreshToken"`
	TokenType    string `json:"tokenType"`
	ExpiresIn    int64  `json:"expiresIn"`
}

type loginResponse struct {
	Success bool       `json:"success"`
	Message string     `json:"message"`
	Data    *authToken `json:"data"`
	Error   string     `json:"error"`
}

// Config wires the gateway. Verifier may be nil, in which case ID tokens are decoded
// without a signature check.
type Config struct {
	Endpoint   string
	APIKey     string
	HTTPClient *http.Client
	Store      *sessions.Store
	Verifier   token.Verifier
}

type Gateway struct {
	client    *graphql.Client
	configErr error
	store     *sessions.Store
	verifier  token.Verifier
}

// NewGateway keeps a configuration problem for Login to report instead of failing here.
func NewGateway(cfg Config) *Gateway {
	client, err := graphql.NewClient("Auth", cfg.Endpoint, cfg.APIKey, cfg.HTTPClient)
	return &Gateway{
		client:    client,
		configErr: err,
		store:     cfg.Store,
		verifier:  cfg.Verifier,
	}
}

// Login posts the credentials and, on success, persists the session into sc.
func (g *Gateway) Login(ctx context.Context, sc *sessions.Context, email, password string) Result {
	if g.configErr != nil {
		log.Error().Err(g.configErr).Msg("Login error")
		return Result{Message: "Auth AppSync configuration is missing"}
	}

	result, err := graphql.Query[struct {
		Login *loginResponse `json:"loginUser"`
	}](ctx, g.client, graphql.Request{
		OperationName: "LoginUser",
		Query:         loginMutation,
		Variables: map[string]any{
			"input": map[string]string{"email": email, "password": password},
		},
	}, "")
	if err != nil {
		log.Err(err).Str("email", email).Msg("Login error")
		return Result{Message: failureMessage(err)}
	}

	resp := result.Login
	if resp == nil || !resp.Success || resp.Data == nil {
		return Result{Message: rejectionMessage(resp)}
	}

	claims, err := g.claims(ctx, resp.Data.IDToken)
	if err != nil {
		log.Err(err).Str("email", email).Msg("Error decoding ID token")
		return Result{Message: msgTokenUnusable}
	}
	expiresAt, _ := claims.Expiry()

	tokenType := resp.Data.TokenType
	if tokenType == "" {
		tokenType = "Bearer"
	}
	session := sessions.Session{
		AccessToken:  resp.Data.AccessToken,
		IDToken:      resp.Data.IDToken,
		RefreshToken: resp.Data.RefreshToken,
		TokenType:    tokenType,
		ExpiresAt:    expiresAt,
		Profile:      sessions.ProfileFromClaims(claims),
	}
	if err := g.store.Persist(sc, session); err != nil {
		log.Err(err).Str("email", email).Msg("Error persisting session")
		return Result{Message: msgUnexpected}
	}

	log.Info().Str("sub", session.Profile.Sub).Msg("User signed in")
	return Result{Success: true, Message: msgSuccess}
}

// Logout clears the session and returns where the caller should send the user.
func (g *Gateway) Logout(sc *sessions.Context) string {
	g.store.Clear(sc)
	return LoginPath
}

// claims decodes or verifies the ID token. A token without exp cannot back a session.
func (g *Gateway) claims(ctx context.Context, idToken string) (*token.Claims, error) {
	var (
		claims *token.Claims
		err    error
	)
	if g.verifier != nil {
		claims, err = g.verifier.Verify(ctx, idToken)
	} else {
		claims, err = token.Decode(idToken)
	}
	if err != nil {
		return nil, err
	}
	if _, ok := claims.Expiry(); !ok {
		return nil, errors.Kind(errors.ErrInvalidToken, nil, "id token has no exp")
	}
	if claims.Subject == "" {
		return nil, errors.Kind(errors.ErrInvalidToken, nil, "id token has no sub")
	}
	return claims, nil
}

func rejectionMessage(resp *loginResponse) string {
	switch {
	case resp == nil:
		return msgFailed
	case resp.Message != "":
		return resp.Message
	case resp.Error != "":
		return resp.Error
	}
	return msgFailed
}

func failureMessage(err error) string {
	var respErr *graphql.ResponseError
	if errors.As(err, &respErr) {
		return respErr.Error()
	}
	return msgUnexpected
}
