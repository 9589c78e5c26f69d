package commands

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	cryptoDomain "github.com/allisson/configvault/internal/crypto/domain"
	cryptoService "github.com/allisson/configvault/internal/crypto/service"
)

type mockKMSKeeper struct {
	mock.Mock
}

func (m *mockKMSKeeper) Encrypt(ctx context.Context, plaintext []byte) ([]byte, error) {
	args := m.Called(ctx, plaintext)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *mockKMSKeeper) Decrypt(ctx context.Context, ciphertext []byte) ([]byte, error) {
	args := m.Called(ctx, ciphertext)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *mockKMSKeeper) Close() error {
	args := m.Called()
	return args.Error(0)
}

type mockKMSService struct {
	mock.Mock
}

func (m *mockKMSService) OpenKeeper(ctx context.Context, keyURI string) (cryptoService.KMSKeeper, error) {
	args := m.Called(ctx, keyURI)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(cryptoService.KMSKeeper), args.Error(1)
}

func TestRunGenerateKey(t *testing.T) {
	ctx := context.Background()

	t.Run("success without KMS", func(t *testing.T) {
		var out bytes.Buffer
		err := RunGenerateKey(ctx, &mockKMSService{}, &out, "")
		require.NoError(t, err)

		require.Contains(t, out.String(), cryptoDomain.KeyEnvVar+"=\"")

		// The printed key is a valid 32-byte base64 key.
		for _, line := range strings.Split(out.String(), "\n") {
			if !strings.HasPrefix(line, cryptoDomain.KeyEnvVar+"=") {
				continue
			}
			encoded := strings.Trim(strings.TrimPrefix(line, cryptoDomain.KeyEnvVar+"="), "\"")
			key, err := cryptoDomain.DecodeMasterKey(encoded)
			require.NoError(t, err)
			key.Close()
		}
	})

	t.Run("success with KMS wrapping", func(t *testing.T) {
		kmsKeyURI := "base64key://YWJjZGVmZ2hpamtsbW5vcHFyc3R1dnd4eXoxMjM0NTY="
		kmsService := &mockKMSService{}
		keeper := &mockKMSKeeper{}

		kmsService.On("OpenKeeper", ctx, kmsKeyURI).Return(keeper, nil)
		keeper.On("Encrypt", ctx, mock.AnythingOfType("[]uint8")).Return([]byte("wrapped-key"), nil)
		keeper.On("Close").Return(nil)

		var out bytes.Buffer
		err := RunGenerateKey(ctx, kmsService, &out, kmsKeyURI)
		require.NoError(t, err)

		expected := base64.StdEncoding.EncodeToString([]byte("wrapped-key"))
		assert.Contains(t, out.String(), cryptoDomain.KeyEnvVar+"_WRAPPED=\""+expected+"\"")

		kmsService.AssertExpectations(t)
		keeper.AssertExpectations(t)
	})

	t.Run("kms-open-error", func(t *testing.T) {
		kmsKeyURI := "base64key://invalid"
		kmsService := &mockKMSService{}
		kmsService.On("OpenKeeper", ctx, kmsKeyURI).Return(nil, errors.New("kms error"))

		var out bytes.Buffer
		err := RunGenerateKey(ctx, kmsService, &out, kmsKeyURI)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to open KMS keeper")
	})
}
