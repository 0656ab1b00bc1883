package signer

import (
	"context"
	"crypto/ecdsa"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
	"github/chapool/signing-gateway/internal/signing/request"
	"github/chapool/signing-gateway/internal/wallet/hd"
)

// keyring holds the private keys derived at startup
type keyring struct {
	mu        sync.RWMutex
	addresses []common.Address
	keys      map[common.Address]*ecdsa.PrivateKey
}

// NewService creates a new keyring signer from derived accounts
//
//nolint:ireturn // Returning interface is intentional for dependency injection
func NewService(accounts []hd.Account) (Service, error) {
	if len(accounts) == 0 {
		return nil, errors.New("signer needs at least one account")
	}

	k := &keyring{
		addresses: make([]common.Address, 0, len(accounts)),
		keys:      make(map[common.Address]*ecdsa.PrivateKey, len(accounts)),
	}

	for _, account := range accounts {
		if _, ok := k.keys[account.Address]; ok {
			return nil, errors.Errorf("duplicate signer account %s", account.Address.Hex())
		}

		k.addresses = append(k.addresses, account.Address)
		k.keys[account.Address] = account.Key
	}

	return k, nil
}

// NewServiceFromMnemonic derives count accounts from the mnemonic and wraps them in a keyring
//
//nolint:ireturn // Returning interface is intentional for dependency injection
func NewServiceFromMnemonic(mnemonic string, password string, count int) (Service, error) {
	seed, err := hd.Seed(mnemonic, password)
	if err != nil {
		return nil, err
	}
	defer clear(seed)

	accounts, err := hd.DeriveAccounts(seed, count)
	if err != nil {
		return nil, errors.Wrap(err, "failed to derive accounts")
	}

	return NewService(accounts)
}

func (k *keyring) Accounts() []common.Address {
	k.mu.RLock()
	defer k.mu.RUnlock()

	return append([]common.Address(nil), k.addresses...)
}

func (k *keyring) SignTransaction(_ context.Context, account common.Address, tx *types.Transaction, chainID *big.Int) (*types.Transaction, error) {
	key, err := k.key(account)
	if err != nil {
		return nil, err
	}

	signed, err := types.SignTx(tx, types.LatestSignerForChainID(chainID), key)
	if err != nil {
		return nil, errors.Wrap(err, "failed to sign transaction")
	}

	return signed, nil
}

func (k *keyring) SignTypedData(_ context.Context, account common.Address, data *request.TypedData) ([]byte, error) {
	hash, err := data.Hash()
	if err != nil {
		return nil, errors.Wrap(err, "failed to hash typed data")
	}

	return k.signHash(account, hash)
}

func (k *keyring) SignMessage(_ context.Context, account common.Address, message []byte) ([]byte, error) {
	return k.signHash(account, messageHash(message))
}

// Clear drops all keys; every later signature fails with ErrUnknownAccount.
func (k *keyring) Clear() {
	k.mu.Lock()
	defer k.mu.Unlock()

	for address, key := range k.keys {
		key.D.SetInt64(0)
		delete(k.keys, address)
	}
	k.addresses = nil
}

func (k *keyring) key(account common.Address) (*ecdsa.PrivateKey, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()

	key, ok := k.keys[account]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownAccount, "account %s", account.Hex())
	}

	return key, nil
}

func (k *keyring) signHash(account common.Address, hash []byte) ([]byte, error) {
	key, err := k.key(account)
	if err != nil {
		return nil, err
	}

	signature, err := crypto.Sign(hash, key)
	if err != nil {
		return nil, errors.Wrap(err, "failed to sign hash")
	}

	// legacy recovery id as returned by eth_sign
	signature[crypto.RecoveryIDOffset] += 27

	return signature, nil
}
