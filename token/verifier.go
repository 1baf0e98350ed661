package token

import (
	"context"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/jrsteele09/go-teamchat/internal/errors"
)

// Verifier checks an ID token's signature and standard claims.
type Verifier interface {
	Verify(ctx context.Context, raw string) (*Claims, error)
}

// OIDCVerifier verifies ID tokens against the identity provider's published keys.
type OIDCVerifier struct {
	verifier *oidc.IDTokenVerifier
}

var _ Verifier = (*OIDCVerifier)(nil)

// NewOIDCVerifier fetches signing keys lazily from jwksURL. ctx bounds the lifetime of the key set.
// clientID may be empty, in which case the audience is not checked.
func NewOIDCVerifier(ctx context.Context, issuer, jwksURL, clientID string) (*OIDCVerifier, error) {
	if issuer == "" || jwksURL == "" {
		return nil, errors.Kind(errors.ErrConfiguration, nil, "oidc verifier needs an issuer and a JWKS URL")
	}
	return NewOIDCVerifierWithKeySet(issuer, clientID, oidc.NewRemoteKeySet(ctx, jwksURL)), nil
}

// NewOIDCVerifierWithKeySet builds a verifier over an explicit key set.
func NewOIDCVerifierWithKeySet(issuer, clientID string, keySet oidc.KeySet) *OIDCVerifier {
	return &OIDCVerifier{
		verifier: oidc.NewVerifier(issuer, keySet, &oidc.Config{
			ClientID:          clientID,
			SkipClientIDCheck: clientID == "",
			Now:               func() time.Time { return NowTimeFunc() },
		}),
	}
}

func (v *OIDCVerifier) Verify(ctx context.Context, raw string) (*Claims, error) {
	idToken, err := v.verifier.Verify(ctx, raw)
	if err != nil {
		var expired *oidc.TokenExpiredError
		if errors.As(err, &expired) {
			return nil, errors.Kind(errors.ErrTokenExpired, err, "verify")
		}
		return nil, errors.Kind(errors.ErrInvalidToken, err, "verify")
	}

	claims := &Claims{}
	if err := idToken.Claims(claims); err != nil {
		return nil, errors.Kind(errors.ErrInvalidToken, err, "verify: claims")
	}
	return claims, nil
}
