package token_test

import (
	"context"
	"crypto"
	"testing"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/jrsteele09/go-teamchat/internal/errors"
	"github.com/jrsteele09/go-teamchat/internal/testutil"
	"github.com/jrsteele09/go-teamchat/token"
	"github.com/stretchr/testify/require"
)

func TestOIDCVerifier(t *testing.T) {
	key := testutil.RSAKey(t)
	keySet := &oidc.StaticKeySet{PublicKeys: []crypto.PublicKey{&key.PublicKey}}
	v := token.NewOIDCVerifierWithKeySet(testutil.TestIssuer, "", keySet)
	ctx := context.Background()

	t.Run("valid signature", func(t *testing.T) {
		raw := testutil.SignedToken(t, key, testutil.IDTokenClaims(time.Now().Add(time.Hour)))
		claims, err := v.Verify(ctx, raw)
		require.NoError(t, err)
		require.Equal(t, testutil.TestSub, claims.Subject)
		require.Equal(t, testutil.TestEmail, claims.Email)
	})

	t.Run("foreign key", func(t *testing.T) {
		raw := testutil.SignedToken(t, testutil.RSAKey(t), testutil.IDTokenClaims(time.Now().Add(time.Hour)))
		_, err := v.Verify(ctx, raw)
		require.True(t, errors.Is(err, errors.ErrInvalidToken))
	})

	t.Run("unsigned HS256 token is rejected", func(t *testing.T) {
		_, err := v.Verify(ctx, testutil.IDToken(t, time.Now().Add(time.Hour)))
		require.Error(t, err)
	})

	t.Run("expired", func(t *testing.T) {
		raw := testutil.SignedToken(t, key, testutil.IDTokenClaims(time.Now().Add(-time.Hour)))
		_, err := v.Verify(ctx, raw)
		require.True(t, errors.Is(err, errors.ErrTokenExpired))
	})

	t.Run("wrong issuer", func(t *testing.T) {
		claims := testutil.IDTokenClaims(time.Now().Add(time.Hour))
		claims["iss"] = "https://elsewhere.example.com"
		_, err := v.Verify(ctx, testutil.SignedToken(t, key, claims))
		require.True(t, errors.Is(err, errors.ErrInvalidToken))
	})

	t.Run("audience checked when client id set", func(t *testing.T) {
		strict := token.NewOIDCVerifierWithKeySet(testutil.TestIssuer, "web-client", keySet)
		claims := testutil.IDTokenClaims(time.Now().Add(time.Hour))
		_, err := strict.Verify(ctx, testutil.SignedToken(t, key, claims))
		require.Error(t, err)

		claims["aud"] = "web-client"
		_, err = strict.Verify(ctx, testutil.SignedToken(t, key, claims))
		require.NoError(t, err)
	})
}

func TestNewOIDCVerifier_RequiresConfiguration(t *testing.T) {
	_, err := token.NewOIDCVerifier(context.Background(), "", "", "")
	require.True(t, errors.Is(err, errors.ErrConfiguration))
}
