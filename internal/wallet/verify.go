package wallet

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github/chapool/signing-gateway/internal/wallet/hd"
)

// VerificationAccountIndex is the address index used to recognize a wallet.
const VerificationAccountIndex = 0

// ErrVerificationFailed is returned when the derived accounts do not belong to the expected wallet.
var ErrVerificationFailed = errors.New("wallet verification failed")

// VerificationAddress derives the address at VerificationAccountIndex. Any mnemonic password
// yields a valid wallet, so comparing this address is the only way to detect a wrong one.
func VerificationAddress(mnemonic string, password string) (common.Address, error) {
	seed, err := hd.Seed(mnemonic, password)
	if err != nil {
		return common.Address{}, err
	}

	accounts, err := hd.DeriveAccounts(seed, VerificationAccountIndex+1)
	if err != nil {
		return common.Address{}, err
	}

	return accounts[VerificationAccountIndex].Address, nil
}

// VerifyAccounts checks that accounts were derived from the wallet whose verification
// address is expected.
func VerifyAccounts(accounts []common.Address, expected common.Address) error {
	if len(accounts) <= VerificationAccountIndex {
		return errors.Wrap(ErrVerificationFailed, "no accounts derived")
	}

	if accounts[VerificationAccountIndex] != expected {
		return errors.Wrapf(ErrVerificationFailed, "derived %s, expected %s (wrong mnemonic password?)",
			accounts[VerificationAccountIndex].Hex(), expected.Hex())
	}

	return nil
}
