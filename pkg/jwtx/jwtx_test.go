package jwtx

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func testClaims(ttl time.Duration) Claims {
	return NewAccessClaims(
		"user-1",
		"grace@example.com",
		"Grace Fielder",
		"owner-1",
		[]string{"Owner"},
		ttl,
		"test-issuer",
		[]string{"test-audience"},
		time.Now().UTC(),
	)
}

func TestHS256RoundTrip(t *testing.T) {
	t.Parallel()

	key := []byte("0123456789abcdef0123456789abcdef")
	signer, err := NewSignerHS256(key)
	require.NoError(t, err)
	require.NoError(t, signer.Validate())

	token, err := signer.Sign(testClaims(time.Minute))
	require.NoError(t, err)

	verifier := NewVerifierHS256(key, "test-issuer", []string{"test-audience"})
	claims, err := verifier.Verify(token)
	require.NoError(t, err)
	require.Equal(t, "user-1", claims.Subject)
	require.Equal(t, "owner-1", claims.OwnerID)
	require.True(t, claims.HasRole("Owner"))
	require.False(t, claims.HasRole("Worker"))
}

func TestHS256RejectsWeakKey(t *testing.T) {
	t.Parallel()

	_, err := NewSignerHS256([]byte("short"))
	require.Error(t, err)
}

func TestHS256VerifyFailures(t *testing.T) {
	t.Parallel()

	key := []byte("0123456789abcdef0123456789abcdef")
	signer, err := NewSignerHS256(key)
	require.NoError(t, err)

	t.Run("wrong key", func(t *testing.T) {
		token, err := signer.Sign(testClaims(time.Minute))
		require.NoError(t, err)

		other := NewVerifierHS256([]byte("ffffffffffffffffffffffffffffffff"), "", nil)
		_, err = other.Verify(token)
		require.ErrorIs(t, err, ErrInvalidSig)
	})

	t.Run("expired", func(t *testing.T) {
		token, err := signer.Sign(testClaims(-time.Minute))
		require.NoError(t, err)

		verifier := NewVerifierHS256(key, "", nil)
		_, err = verifier.Verify(token)
		require.ErrorIs(t, err, ErrExpired)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		token, err := signer.Sign(testClaims(time.Minute))
		require.NoError(t, err)

		verifier := NewVerifierHS256(key, "someone-else", nil)
		_, err = verifier.Verify(token)
		require.ErrorIs(t, err, ErrIssuer)
	})

	t.Run("wrong audience", func(t *testing.T) {
		token, err := signer.Sign(testClaims(time.Minute))
		require.NoError(t, err)

		verifier := NewVerifierHS256(key, "", []string{"other-api"})
		_, err = verifier.Verify(token)
		require.ErrorIs(t, err, ErrAudience)
	})

	t.Run("garbage token", func(t *testing.T) {
		verifier := NewVerifierHS256(key, "", nil)
		_, err := verifier.Verify("not.a.jwt")
		require.Error(t, err)
	})
}

func TestEdDSARoundTrip(t *testing.T) {
	t.Parallel()

	_, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	der, err := x509.MarshalPKCS8PrivateKey(priv)
	require.NoError(t, err)
	pemKey := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der})

	signer, err := NewSignerEdDSA(pemKey)
	require.NoError(t, err)
	require.NoError(t, signer.Validate())

	token, err := signer.Sign(testClaims(time.Minute))
	require.NoError(t, err)

	verifier := NewVerifierEdDSA(signer.PublicKey(), "test-issuer", []string{"test-audience"})
	claims, err := verifier.Verify(token)
	require.NoError(t, err)
	require.Equal(t, "user-1", claims.Subject)

	t.Run("foreign key rejected", func(t *testing.T) {
		otherPub, _, err := ed25519.GenerateKey(rand.Reader)
		require.NoError(t, err)

		foreign := NewVerifierEdDSA(otherPub, "test-issuer", nil)
		_, err = foreign.Verify(token)
		require.Error(t, err)
	})
}

func TestNewSignerEdDSARejectsBadPEM(t *testing.T) {
	t.Parallel()

	_, err := NewSignerEdDSA([]byte("not pem at all"))
	require.Error(t, err)
}

func TestNewJTIUnique(t *testing.T) {
	t.Parallel()

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		jti := NewJTI()
		require.NotEmpty(t, jti)
		require.False(t, seen[jti])
		seen[jti] = true
	}
}
