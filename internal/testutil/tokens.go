// Package testutil holds helpers shared by package tests.
package testutil

import (
	"crypto/rand"
	"crypto/rsa"
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

const (
	TestSub        = "user-1"
	TestEmail      = "alice@company.com"
	TestGivenName  = "Alice"
	TestFamilyName = "Johnson"
	TestIssuer     = "https://issuer.example.com"
)

// IDTokenClaims returns the claims of a typical ID token expiring at exp.
func IDTokenClaims(exp time.Time) jwtlib.MapClaims {
	return jwtlib.MapClaims{
		"sub":            TestSub,
		"email":          TestEmail,
		"email_verified": true,
		"given_name":     TestGivenName,
		"family_name":    TestFamilyName,
		"picture":        "https://cdn.example.com/alice.png",
		"iss":            TestIssuer,
		"iat":            exp.Add(-time.Hour).Unix(),
		"exp":            exp.Unix(),
	}
}

// UnsignedToken mints an HS256 token. Signature checks are irrelevant to decode-only paths.
func UnsignedToken(t *testing.T, claims jwtlib.MapClaims) string {
	t.Helper()
	raw, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return raw
}

// IDToken mints a decode-only ID token for the standard test user.
func IDToken(t *testing.T, exp time.Time) string {
	t.Helper()
	return UnsignedToken(t, IDTokenClaims(exp))
}

// RSAKey generates a signing key for verifier tests.
func RSAKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return key
}

// SignedToken mints an RS256 token with key.
func SignedToken(t *testing.T, key *rsa.PrivateKey, claims jwtlib.MapClaims) string {
	t.Helper()
	raw, err := jwtlib.NewWithClaims(jwtlib.SigningMethodRS256, claims).SignedString(key)
	require.NoError(t, err)
	return raw
}
