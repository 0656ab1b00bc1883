package keystore_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github/chapool/signing-gateway/internal/wallet/keystore"
)

const testMnemonic = "test test test test test test test test test test test junk"

// cheap parameters keep the tests fast
var testParams = keystore.ScryptParams{N: 1024, R: 8, P: 1}

func TestCreateAndDecrypt(t *testing.T) {
	ctx := t.Context()
	path := filepath.Join(t.TempDir(), "keystore.json")
	s := keystore.NewService(testParams)

	ks, err := s.Create(ctx, path, testMnemonic, "secret")
	require.NoError(t, err)
	assert.Equal(t, 3, ks.Version)
	assert.Equal(t, "aes-128-ctr", ks.Crypto.Cipher)
	assert.Equal(t, 1024, ks.Crypto.KDFParams.N)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "junk")

	mnemonic, err := s.Decrypt(ctx, path, "secret")
	require.NoError(t, err)
	assert.Equal(t, testMnemonic, mnemonic)
}

func TestDecryptWrongPassword(t *testing.T) {
	ctx := t.Context()
	path := filepath.Join(t.TempDir(), "keystore.json")
	s := keystore.NewService(testParams)

	_, err := s.Create(ctx, path, testMnemonic, "secret")
	require.NoError(t, err)

	_, err = s.Decrypt(ctx, path, "wrong")
	assert.True(t, errors.Is(err, keystore.ErrInvalidPassword))
}

func TestCreateNeverOverwrites(t *testing.T) {
	ctx := t.Context()
	path := filepath.Join(t.TempDir(), "keystore.json")
	s := keystore.NewService(testParams)

	_, err := s.Create(ctx, path, testMnemonic, "secret")
	require.NoError(t, err)

	_, err = s.Create(ctx, path, testMnemonic, "other")
	assert.True(t, errors.Is(err, keystore.ErrExists))

	mnemonic, err := s.Decrypt(ctx, path, "secret")
	require.NoError(t, err)
	assert.Equal(t, testMnemonic, mnemonic)
}

func TestDecryptRejectsUnsupportedFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keystore.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"version":3,"crypto":{"cipher":"aes-128-cbc","kdf":"scrypt"}}`), 0o600))

	_, err := keystore.NewService(testParams).Decrypt(t.Context(), path, "secret")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported keystore")
}
