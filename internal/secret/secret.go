// Package secret is a small encrypted key value store for device secrets,
// like the signed in worker.
package secret

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/nacl/secretbox"

	"github.com/slok/fieldwork/internal/storage"
)

const (
	keyPrefix = "secret/"
	nonceSize = 24
)

// ErrDecrypt is returned when a stored value can't be opened with the store key.
var ErrDecrypt = errors.New("could not decrypt secret")

// Store seals values with NaCl secretbox before saving them on a local KV.
type Store struct {
	kv  storage.KV
	key [32]byte
}

// NewStore returns a new secret store whose key is derived from the passphrase.
func NewStore(kv storage.KV, passphrase string) (*Store, error) {
	if kv == nil {
		return nil, fmt.Errorf("kv is required")
	}
	if passphrase == "" {
		return nil, fmt.Errorf("passphrase is required")
	}

	return &Store{
		kv:  kv,
		key: sha256.Sum256([]byte(passphrase)),
	}, nil
}

// Get returns a secret, model.ErrNotFound if missing.
func (s *Store) Get(ctx context.Context, key string) (string, error) {
	sealed, err := s.kv.GetValue(ctx, keyPrefix+key)
	if err != nil {
		return "", err
	}
	if len(sealed) < nonceSize {
		return "", fmt.Errorf("secret %s: %w", key, ErrDecrypt)
	}

	var nonce [nonceSize]byte
	copy(nonce[:], sealed[:nonceSize])
	value, ok := secretbox.Open(nil, sealed[nonceSize:], &nonce, &s.key)
	if !ok {
		return "", fmt.Errorf("secret %s: %w", key, ErrDecrypt)
	}

	return string(value), nil
}

// Set seals and stores a secret.
func (s *Store) Set(ctx context.Context, key, value string) error {
	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return fmt.Errorf("could not generate nonce: %w", err)
	}

	sealed := secretbox.Seal(nonce[:], []byte(value), &nonce, &s.key)
	if err := s.kv.SetValue(ctx, keyPrefix+key, sealed); err != nil {
		return fmt.Errorf("could not store secret: %w", err)
	}

	return nil
}

// Delete removes a secret, missing secrets are ignored.
func (s *Store) Delete(ctx context.Context, key string) error {
	return s.kv.DeleteValue(ctx, keyPrefix+key)
}
