package crypto

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDeriveKeyArgon2idDeterministic(t *testing.T) {
	params := LowCostArgon2Params()
	secret := []byte("super-secret-passphrase")
	salt := bytes.Repeat([]byte{0xA5}, 16)

	key1, err := DeriveKeyArgon2id(secret, salt, params)
	require.NoError(t, err)
	key2, err := DeriveKeyArgon2id(secret, salt, params)
	require.NoError(t, err)

	require.Equal(t, key1, key2)
	require.Len(t, key1, int(params.KeyLength))

	other, err := DeriveKeyArgon2id(secret, bytes.Repeat([]byte{0x01}, 16), params)
	require.NoError(t, err)
	require.NotEqual(t, key1, other)
}

func TestDeriveKeyArgon2idValidatesInput(t *testing.T) {
	params := LowCostArgon2Params()
	salt := bytes.Repeat([]byte{0x01}, 16)

	_, err := DeriveKeyArgon2id(nil, salt, params)
	require.Error(t, err)

	_, err = DeriveKeyArgon2id([]byte("secret"), []byte("short"), params)
	require.Error(t, err)

	bad := params
	bad.KeyLength = 20
	_, err = DeriveKeyArgon2id([]byte("secret"), salt, bad)
	require.Error(t, err)
}

func TestArgon2ParametersValidate(t *testing.T) {
	cases := []struct {
		name   string
		params Argon2Parameters
		valid  bool
	}{
		{"default", DefaultArgon2Params(), true},
		{"low cost", LowCostArgon2Params(), true},
		{"zero time", Argon2Parameters{Time: 0, Memory: 64 * 1024, Threads: 4, KeyLength: 32}, false},
		{"zero threads", Argon2Parameters{Time: 2, Memory: 64 * 1024, Threads: 0, KeyLength: 32}, false},
		{"low memory", Argon2Parameters{Time: 2, Memory: 16, Threads: 4, KeyLength: 32}, false},
		{"invalid key length", Argon2Parameters{Time: 2, Memory: 64 * 1024, Threads: 4, KeyLength: 48}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.params.Validate()
			if tc.valid {
				require.NoError(t, err)
			} else {
				require.Error(t, err)
			}
		})
	}
}
