package hd_test

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github/chapool/signing-gateway/internal/wallet/hd"
)

const testMnemonic = "test test test test test test test test test test test junk"

func TestDeriveAccounts(t *testing.T) {
	seed, err := hd.Seed(testMnemonic, "")
	require.NoError(t, err)

	accounts, err := hd.DeriveAccounts(seed, 2)
	require.NoError(t, err)
	require.Len(t, accounts, 2)

	assert.Equal(t, common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"), accounts[0].Address)
	assert.Equal(t, "m/44'/60'/0'/0/0", accounts[0].Path)
	assert.Equal(t, common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8"), accounts[1].Address)
	assert.Equal(t, uint32(1), accounts[1].Index)
	assert.Equal(t, accounts[1].Address, crypto.PubkeyToAddress(accounts[1].Key.PublicKey))

	key, err := hd.DeriveKey(seed, hd.Path(1))
	require.NoError(t, err)
	assert.Equal(t, accounts[1].Key.D, key.D)
}

func TestSeedNormalizesWhitespace(t *testing.T) {
	a, err := hd.Seed(testMnemonic, "secret")
	require.NoError(t, err)

	b, err := hd.Seed("  test test test test test test\ttest test test test test   junk\n", "secret")
	require.NoError(t, err)
	assert.Equal(t, a, b)

	c, err := hd.Seed(testMnemonic, "")
	require.NoError(t, err)
	assert.NotEqual(t, a, c)
}

func TestSeedRejectsWordCount(t *testing.T) {
	_, err := hd.Seed("test test test", "")
	assert.True(t, errors.Is(err, hd.ErrInvalidMnemonic))
}

func TestDeriveAccountsRejectsCount(t *testing.T) {
	seed, err := hd.Seed(testMnemonic, "")
	require.NoError(t, err)

	_, err = hd.DeriveAccounts(seed, 0)
	require.Error(t, err)
}

func TestParsePath(t *testing.T) {
	indices, err := hd.ParsePath("m/44'/60'/0'/0/7")
	require.NoError(t, err)
	assert.Equal(t, []uint32{0x8000002c, 0x8000003c, 0x80000000, 0, 7}, indices)

	indices, err = hd.ParsePath("m")
	require.NoError(t, err)
	assert.Empty(t, indices)

	for _, path := range []string{"", "44'/60'", "m/44'/x", "m//1", "m/2147483648"} {
		_, err := hd.ParsePath(path)
		assert.Error(t, err, path)
	}
}
