package domain

import (
	"crypto/rand"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMasterKey(t *testing.T) {
	t.Run("accepts 32-byte key", func(t *testing.T) {
		raw := make([]byte, 32)
		_, err := rand.Read(raw)
		require.NoError(t, err)

		key, err := NewMasterKey(raw)
		require.NoError(t, err)
		assert.Len(t, key.Key, 32)
	})

	t.Run("rejects short key", func(t *testing.T) {
		_, err := NewMasterKey(make([]byte, 16))
		assert.ErrorIs(t, err, ErrInvalidKeyFormat)
	})

	t.Run("rejects long key", func(t *testing.T) {
		_, err := NewMasterKey(make([]byte, 64))
		assert.ErrorIs(t, err, ErrInvalidKeyFormat)
	})

	t.Run("rejects nil key", func(t *testing.T) {
		_, err := NewMasterKey(nil)
		assert.ErrorIs(t, err, ErrInvalidKeyFormat)
	})
}

func TestGenerateMasterKey(t *testing.T) {
	t.Run("generates 32-byte keys", func(t *testing.T) {
		key, err := GenerateMasterKey()
		require.NoError(t, err)
		assert.Len(t, key.Key, 32)
	})

	t.Run("generates distinct keys", func(t *testing.T) {
		key1, err := GenerateMasterKey()
		require.NoError(t, err)
		key2, err := GenerateMasterKey()
		require.NoError(t, err)
		assert.NotEqual(t, key1.Key, key2.Key)
	})
}

func TestDecodeMasterKey(t *testing.T) {
	t.Run("decodes valid base64 key", func(t *testing.T) {
		raw := make([]byte, 32)
		_, err := rand.Read(raw)
		require.NoError(t, err)

		key, err := DecodeMasterKey(base64.StdEncoding.EncodeToString(raw))
		require.NoError(t, err)
		assert.Equal(t, raw, key.Key)
	})

	t.Run("rejects invalid base64", func(t *testing.T) {
		_, err := DecodeMasterKey("not-base64!!!")
		assert.ErrorIs(t, err, ErrInvalidKeyFormat)
	})

	t.Run("rejects base64 of wrong-size key", func(t *testing.T) {
		short := base64.StdEncoding.EncodeToString(make([]byte, 16))
		_, err := DecodeMasterKey(short)
		assert.ErrorIs(t, err, ErrInvalidKeyFormat)
	})
}

func TestLoadMasterKeyFromEnv(t *testing.T) {
	t.Run("loads key from environment", func(t *testing.T) {
		raw := make([]byte, 32)
		_, err := rand.Read(raw)
		require.NoError(t, err)
		t.Setenv(KeyEnvVar, base64.StdEncoding.EncodeToString(raw))

		key, err := LoadMasterKeyFromEnv()
		require.NoError(t, err)
		assert.Equal(t, raw, key.Key)
	})

	t.Run("fails when variable is unset", func(t *testing.T) {
		t.Setenv(KeyEnvVar, "")

		_, err := LoadMasterKeyFromEnv()
		assert.ErrorIs(t, err, ErrEncryptionKeyNotSet)
	})

	t.Run("fails on malformed value", func(t *testing.T) {
		t.Setenv(KeyEnvVar, "%%%")

		_, err := LoadMasterKeyFromEnv()
		assert.ErrorIs(t, err, ErrInvalidKeyFormat)
	})
}

func TestMasterKey_EncodeRoundTrip(t *testing.T) {
	key, err := GenerateMasterKey()
	require.NoError(t, err)

	decoded, err := DecodeMasterKey(key.Encode())
	require.NoError(t, err)
	assert.Equal(t, key.Key, decoded.Key)
}

func TestMasterKey_Close(t *testing.T) {
	t.Run("zeroes key material", func(t *testing.T) {
		key, err := GenerateMasterKey()
		require.NoError(t, err)

		raw := key.Key
		key.Close()

		assert.Nil(t, key.Key)
		for _, b := range raw {
			assert.Zero(t, b)
		}
	})

	t.Run("safe on nil receiver", func(t *testing.T) {
		var key *MasterKey
		assert.NotPanics(t, func() { key.Close() })
	})
}
