package keystore

import (
	"context"
	"encoding/json"
	"os"

	"github.com/pkg/errors"
	"github/chapool/signing-gateway/internal/util"
)

type service struct {
	params ScryptParams
}

// NewService creates a new file keystore service using the given scrypt cost
//
//nolint:ireturn // Returning interface is intentional for dependency injection
func NewService(params ScryptParams) Service {
	return &service{params: params}
}

// Create encrypts the mnemonic and writes the keystore file with owner-only permissions
func (s *service) Create(ctx context.Context, path string, mnemonic string, password string) (*KeystoreJSON, error) {
	log := util.LogFromContext(ctx)

	if _, err := os.Stat(path); err == nil {
		return nil, errors.Wrapf(ErrExists, "file %s", path)
	}

	ks, err := encrypt([]byte(mnemonic), password, s.params)
	if err != nil {
		log.Error().Err(err).Msg("Failed to encrypt mnemonic")
		return nil, errors.Wrap(err, "failed to encrypt mnemonic")
	}

	data, err := json.MarshalIndent(ks, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal keystore JSON")
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600) //nolint:mnd
	if err != nil {
		if os.IsExist(err) {
			return nil, errors.Wrapf(ErrExists, "file %s", path)
		}
		return nil, errors.Wrap(err, "failed to create keystore file")
	}
	defer f.Close()

	if _, err := f.Write(data); err != nil {
		return nil, errors.Wrap(err, "failed to write keystore file")
	}

	log.Info().Str("path", path).Str("id", ks.ID).Msg("Created keystore")

	return ks, nil
}

// Decrypt reads and decrypts the keystore file
func (s *service) Decrypt(ctx context.Context, path string, password string) (string, error) {
	log := util.LogFromContext(ctx)

	data, err := os.ReadFile(path)
	if err != nil {
		return "", errors.Wrap(err, "failed to read keystore file")
	}

	var ks KeystoreJSON
	if err := json.Unmarshal(data, &ks); err != nil {
		return "", errors.Wrap(err, "failed to unmarshal keystore JSON")
	}

	mnemonic, err := decrypt(&ks, password)
	if err != nil {
		log.Error().Err(err).Str("path", path).Msg("Failed to decrypt mnemonic")
		return "", errors.Wrap(err, "failed to decrypt mnemonic")
	}

	return string(mnemonic), nil
}
