package signer_test

import (
	"bytes"
	"encoding/json"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github/chapool/signing-gateway/internal/signing/request"
	"github/chapool/signing-gateway/internal/wallet/signer"
)

const testMnemonic = "test test test test test test test test test test test junk"

var (
	account0 = common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")
	account1 = common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")
)

func newKeyring(t *testing.T) signer.Service {
	t.Helper()

	s, err := signer.NewServiceFromMnemonic(testMnemonic, "", 2)
	require.NoError(t, err)

	return s
}

func TestAccounts(t *testing.T) {
	s := newKeyring(t)
	assert.Equal(t, []common.Address{account0, account1}, s.Accounts())

	// callers cannot mutate the keyring's list
	s.Accounts()[0] = common.Address{}
	assert.Equal(t, account0, s.Accounts()[0])
}

func TestSignMessage(t *testing.T) {
	s := newKeyring(t)

	signature, err := s.SignMessage(t.Context(), account1, []byte("hello"))
	require.NoError(t, err)
	require.Len(t, signature, 65)
	assert.Contains(t, []byte{27, 28}, signature[64])

	recovered, err := signer.RecoverMessageSigner([]byte("hello"), signature)
	require.NoError(t, err)
	assert.Equal(t, account1, recovered)
}

func TestSignTypedData(t *testing.T) {
	s := newKeyring(t)

	data, err := request.ParseTypedData(json.RawMessage(`{
		"types": {
			"EIP712Domain": [{"name": "name", "type": "string"}, {"name": "chainId", "type": "uint256"}],
			"Mail": [{"name": "contents", "type": "string"}]
		},
		"primaryType": "Mail",
		"domain": {"name": "Ether Mail", "chainId": "0x1"},
		"message": {"contents": "Hello, Bob!"}
	}`))
	require.NoError(t, err)

	signature, err := s.SignTypedData(t.Context(), account0, data)
	require.NoError(t, err)

	hash, err := data.Hash()
	require.NoError(t, err)

	recovered, err := signer.RecoverHashSigner(hash, signature)
	require.NoError(t, err)
	assert.Equal(t, account0, recovered)
}

func TestSignTransaction(t *testing.T) {
	s := newKeyring(t)
	chainID := big.NewInt(100)
	to := common.HexToAddress("0x0000000000000000000000000000000000000001")

	tx := types.NewTx(&types.DynamicFeeTx{
		ChainID:   chainID,
		Nonce:     6,
		GasTipCap: big.NewInt(1),
		GasFeeCap: big.NewInt(10),
		Gas:       21000,
		To:        &to,
		Value:     big.NewInt(1),
	})

	signed, err := s.SignTransaction(t.Context(), account0, tx, chainID)
	require.NoError(t, err)

	sender, err := types.Sender(types.LatestSignerForChainID(chainID), signed)
	require.NoError(t, err)
	assert.Equal(t, account0, sender)
	assert.Equal(t, uint64(6), signed.Nonce())
}

func TestSignUnknownAccount(t *testing.T) {
	s := newKeyring(t)

	_, err := s.SignMessage(t.Context(), common.HexToAddress("0x01"), []byte("hello"))
	assert.True(t, errors.Is(err, signer.ErrUnknownAccount))
}

func TestClearDropsKeys(t *testing.T) {
	s := newKeyring(t)

	clearer, ok := s.(interface{ Clear() })
	require.True(t, ok)
	clearer.Clear()

	assert.Empty(t, s.Accounts())
	_, err := s.SignMessage(t.Context(), account0, []byte("hello"))
	assert.True(t, errors.Is(err, signer.ErrUnknownAccount))
}

func TestNewServiceRequiresAccounts(t *testing.T) {
	_, err := signer.NewService(nil)
	require.Error(t, err)

	_, err = signer.NewServiceFromMnemonic("too short", "", 1)
	require.Error(t, err)
}

func TestLogRecorder(t *testing.T) {
	var buf bytes.Buffer
	ctx := zerolog.New(&buf).WithContext(t.Context())

	s := signer.NewLogRecorder(newKeyring(t))
	assert.Equal(t, []common.Address{account0, account1}, s.Accounts())

	signature, err := s.SignMessage(ctx, account0, []byte("hello"))
	require.NoError(t, err)
	assert.Len(t, signature, 65)
	assert.Contains(t, buf.String(), `"message":"Signed message"`)
	assert.Contains(t, buf.String(), `"account":"`+account0.Hex()+`"`)

	buf.Reset()
	_, err = s.SignMessage(ctx, common.HexToAddress("0x01"), []byte("hello"))
	require.Error(t, err)
	assert.Empty(t, buf.String())
}
