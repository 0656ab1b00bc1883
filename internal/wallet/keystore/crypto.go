package keystore

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/crypto/scrypt"
)

const (
	keystoreVersion = 3
	cipherName      = "aes-128-ctr"
	kdfName         = "scrypt"
	derivedKeyLen   = 32
	saltLen         = 32
	ivLen           = aes.BlockSize
)

func encrypt(plaintext []byte, password string, params ScryptParams) (*KeystoreJSON, error) {
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return nil, errors.Wrap(err, "failed to generate salt")
	}

	iv := make([]byte, ivLen) //nolint:varnamelen // iv is a common abbreviation for initialization vector
	if _, err := rand.Read(iv); err != nil {
		return nil, errors.Wrap(err, "failed to generate IV")
	}

	derivedKey, err := scrypt.Key([]byte(password), salt, params.N, params.R, params.P, derivedKeyLen)
	if err != nil {
		return nil, errors.Wrap(err, "failed to derive key")
	}
	defer clear(derivedKey)

	ciphertext, err := aesCTR(derivedKey[:16], iv, plaintext)
	if err != nil {
		return nil, err
	}

	return &KeystoreJSON{
		Version: keystoreVersion,
		ID:      uuid.New().String(),
		Crypto: Crypto{
			Ciphertext:   hex.EncodeToString(ciphertext),
			CipherParams: CipherParams{IV: hex.EncodeToString(iv)},
			Cipher:       cipherName,
			KDF:          kdfName,
			KDFParams: KDFParams{
				DKLen: derivedKeyLen,
				Salt:  hex.EncodeToString(salt),
				N:     params.N,
				R:     params.R,
				P:     params.P,
			},
			MAC: hex.EncodeToString(mac(derivedKey, ciphertext)),
		},
	}, nil
}

func decrypt(ks *KeystoreJSON, password string) ([]byte, error) {
	if ks.Version != keystoreVersion || ks.Crypto.Cipher != cipherName || ks.Crypto.KDF != kdfName {
		return nil, errors.Errorf("unsupported keystore: version %d, cipher %s, kdf %s", ks.Version, ks.Crypto.Cipher, ks.Crypto.KDF)
	}

	params := ks.Crypto.KDFParams
	if params.DKLen < derivedKeyLen {
		return nil, errors.Errorf("keystore derived key length %d is too short", params.DKLen)
	}

	salt, err := hex.DecodeString(params.Salt)
	if err != nil {
		return nil, errors.Wrap(err, "failed to decode salt")
	}

	iv, err := hex.DecodeString(ks.Crypto.CipherParams.IV) //nolint:varnamelen
	if err != nil {
		return nil, errors.Wrap(err, "failed to decode IV")
	}

	ciphertext, err := hex.DecodeString(ks.Crypto.Ciphertext)
	if err != nil {
		return nil, errors.Wrap(err, "failed to decode ciphertext")
	}

	expectedMAC, err := hex.DecodeString(ks.Crypto.MAC)
	if err != nil {
		return nil, errors.Wrap(err, "failed to decode MAC")
	}

	derivedKey, err := scrypt.Key([]byte(password), salt, params.N, params.R, params.P, params.DKLen)
	if err != nil {
		return nil, errors.Wrap(err, "failed to derive key")
	}
	defer clear(derivedKey)

	if subtle.ConstantTimeCompare(mac(derivedKey, ciphertext), expectedMAC) != 1 {
		return nil, ErrInvalidPassword
	}

	return aesCTR(derivedKey[:16], iv, ciphertext)
}

// mac is keccak256(derivedKey[16:32] || ciphertext)
func mac(derivedKey []byte, ciphertext []byte) []byte {
	return crypto.Keccak256(derivedKey[16:32], ciphertext)
}

// aesCTR encrypts and decrypts alike
func aesCTR(key []byte, iv []byte, in []byte) ([]byte, error) { //nolint:varnamelen
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create cipher")
	}

	if len(iv) != block.BlockSize() {
		return nil, errors.Errorf("IV must be %d bytes, got %d", block.BlockSize(), len(iv))
	}

	out := make([]byte, len(in))
	cipher.NewCTR(block, iv).XORKeyStream(out, in)

	return out, nil
}
