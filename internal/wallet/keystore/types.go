package keystore

import (
	"context"

	"github.com/pkg/errors"
)

var (
	ErrExists          = errors.New("keystore already exists")
	ErrInvalidPassword = errors.New("invalid keystore password")
)

// Service encrypts the wallet mnemonic into a keystore file and decrypts it at startup
type Service interface {
	// Create encrypts mnemonic with password and writes it to path; an existing file is never overwritten
	Create(ctx context.Context, path string, mnemonic string, password string) (*KeystoreJSON, error)

	// Decrypt reads the keystore at path and returns the mnemonic
	Decrypt(ctx context.Context, path string, password string) (string, error)
}

// KeystoreJSON is the Ethereum keystore v3 layout with the mnemonic as plaintext
//
//nolint:revive // KeystoreJSON is the standard name for Ethereum keystore JSON structure
type KeystoreJSON struct {
	Version int    `json:"version"`
	ID      string `json:"id"`
	Crypto  Crypto `json:"crypto"`
}

type Crypto struct {
	Ciphertext   string       `json:"ciphertext"`
	CipherParams CipherParams `json:"cipherparams"`
	Cipher       string       `json:"cipher"`
	KDF          string       `json:"kdf"`
	KDFParams    KDFParams    `json:"kdfparams"`
	MAC          string       `json:"mac"`
}

type CipherParams struct {
	IV string `json:"iv"`
}

type KDFParams struct {
	DKLen int    `json:"dklen"`
	Salt  string `json:"salt"`
	N     int    `json:"n"`
	R     int    `json:"r"`
	P     int    `json:"p"`
}

// ScryptParams defines scrypt KDF parameters
type ScryptParams struct {
	N int // CPU/memory cost parameter
	R int // Block size parameter
	P int // Parallelization parameter
}

// DefaultScryptParams returns the standard scrypt parameters of Ethereum keystore v3
func DefaultScryptParams() ScryptParams {
	const (
		scryptN = 262144 // 2^18
		scryptR = 8
		scryptP = 1
	)

	return ScryptParams{N: scryptN, R: scryptR, P: scryptP}
}
