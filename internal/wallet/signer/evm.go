package signer

import (
	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
)

const signatureLength = crypto.SignatureLength

// messageHash returns the EIP-191 hash of a personal message:
// keccak256("\x19Ethereum Signed Message:\n" + len(message) + message).
func messageHash(message []byte) []byte {
	return accounts.TextHash(message)
}

// RecoverMessageSigner returns the address that produced signature over message.
// It accepts recovery ids 0/1 as well as 27/28.
func RecoverMessageSigner(message []byte, signature []byte) (common.Address, error) {
	return RecoverHashSigner(messageHash(message), signature)
}

// RecoverHashSigner returns the address that produced signature over a 32 byte hash.
func RecoverHashSigner(hash []byte, signature []byte) (common.Address, error) {
	if len(signature) != signatureLength {
		return common.Address{}, errors.Errorf("signature must be %d bytes, got %d", signatureLength, len(signature))
	}

	sig := append([]byte(nil), signature...)
	if sig[crypto.RecoveryIDOffset] >= 27 { //nolint:mnd
		sig[crypto.RecoveryIDOffset] -= 27
	}

	pub, err := crypto.SigToPub(hash, sig)
	if err != nil {
		return common.Address{}, errors.Wrap(err, "failed to recover public key")
	}

	return crypto.PubkeyToAddress(*pub), nil
}
