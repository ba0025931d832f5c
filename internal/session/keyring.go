package session

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/99designs/keyring"
)

// KeyringService is the service name entries are stored under.
const KeyringService = "woodsreport"

// KeyringStore keeps the session record in the OS keychain, falling back to
// an encrypted file when no native backend is available.
type KeyringStore struct {
	ring keyring.Keyring
}

// NewKeyringStore wraps an opened keyring.
func NewKeyringStore(ring keyring.Keyring) *KeyringStore {
	return &KeyringStore{ring: ring}
}

// OpenKeyring opens the platform keyring. Encrypted file entries live under
// dataDir and are protected by passphrase.
func OpenKeyring(dataDir string, passphrase func(string) (string, error)) (*KeyringStore, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName:      KeyringService,
		KeychainName:     KeyringService,
		PassPrefix:       KeyringService,
		WinCredPrefix:    KeyringService,
		FileDir:          filepath.Join(dataDir, "keyring"),
		FilePasswordFunc: passphrase,
	})
	if err != nil {
		return nil, fmt.Errorf("open keyring: %w", err)
	}
	return NewKeyringStore(ring), nil
}

func (s *KeyringStore) Get(key string) (string, bool, error) {
	item, err := s.ring.Get(key)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return string(item.Data), true, nil
}

func (s *KeyringStore) Set(key, value string) error {
	return s.ring.Set(keyring.Item{
		Key:   key,
		Data:  []byte(value),
		Label: "woodsreport session",
	})
}

func (s *KeyringStore) Keys(prefix string) ([]string, error) {
	keys, err := s.ring.Keys()
	if err != nil {
		return nil, fmt.Errorf("list keyring: %w", err)
	}
	return matchPrefix(keys, prefix), nil
}

func (s *KeyringStore) Delete(keys ...string) error {
	var errs []error
	for _, k := range keys {
		if err := s.ring.Remove(k); err != nil && !errors.Is(err, keyring.ErrKeyNotFound) {
			errs = append(errs, fmt.Errorf("remove %s: %w", k, err))
		}
	}
	return errors.Join(errs...)
}
