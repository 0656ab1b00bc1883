package hd

import (
	"crypto/ecdsa"
	"crypto/sha512"
	"fmt"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
	"github.com/tyler-smith/go-bip32"
	"golang.org/x/crypto/pbkdf2"
	"golang.org/x/text/unicode/norm"
)

const (
	// BasePath is the BIP-44 account path for Ethereum; the address index is appended.
	BasePath = "m/44'/60'/0'/0"

	pbkdf2Iterations = 2048 // BIP39 standard iterations
	pbkdf2KeyLength  = 64   // BIP39 standard key length (512 bits)
	privateKeyLength = 32
)

var ErrInvalidMnemonic = errors.New("invalid mnemonic")

// Account is a key derived from the wallet seed.
type Account struct {
	Index   uint32
	Path    string
	Address common.Address
	Key     *ecdsa.PrivateKey
}

// Seed converts a mnemonic to its BIP-39 seed:
// PBKDF2(mnemonic, "mnemonic" + password, 2048, 64, SHA512).
// Both inputs are NFKD normalized and words are joined by single spaces; the word list
// itself is not checked.
func Seed(mnemonic string, password string) ([]byte, error) {
	words := strings.Fields(norm.NFKD.String(mnemonic))

	switch len(words) {
	case 12, 15, 18, 21, 24: //nolint:mnd // BIP39 sentence lengths
	default:
		return nil, errors.Wrapf(ErrInvalidMnemonic, "expected 12-24 words, got %d", len(words))
	}

	return pbkdf2.Key(
		[]byte(strings.Join(words, " ")),
		[]byte("mnemonic"+norm.NFKD.String(password)),
		pbkdf2Iterations,
		pbkdf2KeyLength,
		sha512.New,
	), nil
}

// Path returns the derivation path of the account at index.
func Path(index uint32) string {
	return fmt.Sprintf("%s/%d", BasePath, index)
}

// DeriveAccounts derives the first count accounts of the seed.
func DeriveAccounts(seed []byte, count int) ([]Account, error) {
	if count <= 0 {
		return nil, errors.Errorf("account count must be positive, got %d", count)
	}

	masterKey, err := bip32.NewMasterKey(seed)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create master key")
	}

	parent, err := deriveKeyFromPath(masterKey, BasePath)
	if err != nil {
		return nil, err
	}

	accounts := make([]Account, 0, count)
	for i := range count {
		index := uint32(i) //nolint:gosec // count is a small configured value

		child, err := parent.NewChildKey(index)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to derive child key at index %d", index)
		}

		key, err := toECDSA(child)
		if err != nil {
			return nil, err
		}

		accounts = append(accounts, Account{
			Index:   index,
			Path:    Path(index),
			Address: crypto.PubkeyToAddress(key.PublicKey),
			Key:     key,
		})
	}

	return accounts, nil
}

// DeriveKey derives the private key at an arbitrary BIP-32 path.
func DeriveKey(seed []byte, path string) (*ecdsa.PrivateKey, error) {
	masterKey, err := bip32.NewMasterKey(seed)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create master key")
	}

	key, err := deriveKeyFromPath(masterKey, path)
	if err != nil {
		return nil, err
	}

	return toECDSA(key)
}

func toECDSA(key *bip32.Key) (*ecdsa.PrivateKey, error) {
	raw := common.LeftPadBytes(key.Key, privateKeyLength)
	defer clear(raw)

	privateKey, err := crypto.ToECDSA(raw)
	if err != nil {
		return nil, errors.Wrap(err, "failed to convert to ECDSA private key")
	}

	return privateKey, nil
}

func deriveKeyFromPath(masterKey *bip32.Key, path string) (*bip32.Key, error) {
	indices, err := ParsePath(path)
	if err != nil {
		return nil, err
	}

	key := masterKey
	for _, index := range indices {
		key, err = key.NewChildKey(index)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to derive child key at index %d", index)
		}
	}

	return key, nil
}

// ParsePath parses a BIP-32 path such as "m/44'/60'/0'/0/0" into child indices.
func ParsePath(path string) ([]uint32, error) {
	rest, ok := strings.CutPrefix(path, "m")
	if !ok {
		return nil, errors.Errorf("invalid derivation path %q", path)
	}

	rest = strings.TrimPrefix(rest, "/")
	if rest == "" {
		return []uint32{}, nil
	}

	segments := strings.Split(rest, "/")
	indices := make([]uint32, 0, len(segments))
	for _, segment := range segments {
		number, hardened := strings.CutSuffix(segment, "'")

		parsed, err := strconv.ParseUint(number, 10, 31)
		if err != nil {
			return nil, errors.Errorf("invalid path segment %q in %q", segment, path)
		}

		index := uint32(parsed)
		if hardened {
			index += bip32.FirstHardenedChild
		}

		indices = append(indices, index)
	}

	return indices, nil
}
