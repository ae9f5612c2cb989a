package cryptox

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerateToken(t *testing.T) {
	t.Parallel()

	a, err := GenerateToken(TokenSize256)
	require.NoError(t, err)
	b, err := GenerateToken(TokenSize256)
	require.NoError(t, err)
	require.NotEqual(t, a, b)

	raw, err := base64.RawURLEncoding.DecodeString(a)
	require.NoError(t, err)
	require.Len(t, raw, TokenSize256)
}

func TestFingerprintToken(t *testing.T) {
	t.Parallel()

	fp := FingerprintToken("some-opaque-token")
	require.Equal(t, fp, FingerprintToken("some-opaque-token"))
	require.NotEqual(t, fp, FingerprintToken("other-token"))
	require.NotEqual(t, fp, "some-opaque-token")
}
