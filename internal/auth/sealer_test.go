package auth

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bhagwatcoding/cms-winfoa-sub000/pkg/crypto"
)

func TestSealerRoundTrip(t *testing.T) {
	sealer := newTestSealer(t)

	sealed, err := sealer.Seal("raw-token")
	require.NoError(t, err)
	require.NotContains(t, sealed, "raw-token")

	opened, err := sealer.Open(sealed)
	require.NoError(t, err)
	require.Equal(t, "raw-token", opened)
}

func TestSealerRejectsTampering(t *testing.T) {
	sealer := newTestSealer(t)

	sealed, err := sealer.Seal("raw-token")
	require.NoError(t, err)

	raw, err := base64.RawURLEncoding.DecodeString(sealed)
	require.NoError(t, err)
	raw[len(raw)-1] ^= 0x01
	flipped := base64.RawURLEncoding.EncodeToString(raw)

	for _, value := range []string{"", "not-a-seal", sealed[:len(sealed)/2], flipped} {
		_, err := sealer.Open(value)
		require.ErrorIs(t, err, ErrInvalidSeal, "value %q", value)
	}
}

func TestSealerSupportsRotation(t *testing.T) {
	old := newTestSealer(t, previousSecret)
	sealed, err := old.Seal("raw-token")
	require.NoError(t, err)

	rotated := newTestSealer(t, primarySecret, previousSecret)
	opened, err := rotated.Open(sealed)
	require.NoError(t, err)
	require.Equal(t, "raw-token", opened)

	resealed, err := rotated.Seal("raw-token")
	require.NoError(t, err)
	_, err = old.Open(resealed)
	require.ErrorIs(t, err, ErrInvalidSeal)

	retired := newTestSealer(t, primarySecret)
	_, err = retired.Open(sealed)
	require.ErrorIs(t, err, ErrInvalidSeal)
}

func TestSealerBindsPurpose(t *testing.T) {
	params := WithArgon2Parameters(crypto.LowCostArgon2Params())
	a, err := NewSealer([]string{primarySecret}, "session", params)
	require.NoError(t, err)
	b, err := NewSealer([]string{primarySecret}, "csrf", params)
	require.NoError(t, err)

	sealed, err := a.Seal("raw-token")
	require.NoError(t, err)
	_, err = b.Open(sealed)
	require.ErrorIs(t, err, ErrInvalidSeal)
}

func TestNewSealerValidatesSecrets(t *testing.T) {
	params := WithArgon2Parameters(crypto.LowCostArgon2Params())

	_, err := NewSealer(nil, "session", params)
	require.ErrorIs(t, err, ErrNoSecret)

	_, err = NewSealer([]string{"  ", ""}, "session", params)
	require.ErrorIs(t, err, ErrNoSecret)

	_, err = NewSealer([]string{strings.Repeat("x", MinSecretLength-1)}, "session", params)
	require.Error(t, err)

	_, err = NewSealer([]string{primarySecret}, " ", params)
	require.Error(t, err)
}
