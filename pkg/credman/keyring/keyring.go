// Package keyring provides storage for the cookie encryption key using the
// operating system's native keyring service, with a file-based fallback.
package keyring

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/zalando/go-keyring"
)

// KeySize is the length in bytes of generated keys (AES-256).
const KeySize = 32

// KeyStore stores a single symmetric key.
type KeyStore interface {
	GetKey() ([]byte, error)
	SetKey() ([]byte, error)
	DeleteKey() error
}

// Keyring stores the key hex-encoded in the OS keyring under AppName/KeyField.
type Keyring struct {
	AppName  string
	KeyField string
}

var (
	keyringSet    = keyring.Set
	keyringGet    = keyring.Get
	keyringDelete = keyring.Delete
	randRead      = rand.Read
)

func NewKeyring() *Keyring {
	return &Keyring{
		AppName:  "cookiestore",
		KeyField: "cookies",
	}
}

func (k *Keyring) SetKey() ([]byte, error) {
	key := make([]byte, KeySize)
	if _, err := randRead(key); err != nil {
		return nil, err
	}
	if err := keyringSet(k.AppName, k.KeyField, hex.EncodeToString(key)); err != nil {
		return nil, err
	}
	return key, nil
}

func (k *Keyring) GetKey() ([]byte, error) {
	keyHex, err := keyringGet(k.AppName, k.KeyField)
	if err != nil {
		return nil, err
	}
	key, err := hex.DecodeString(keyHex)
	if err != nil {
		return nil, fmt.Errorf("invalid key format: %w", err)
	}
	return key, nil
}

func (k *Keyring) DeleteKey() error {
	return keyringDelete(k.AppName, k.KeyField)
}

// Password reads a raw secret (such as a browser's "Safe Storage" password)
// from the OS keyring.
func Password(service, account string) (string, error) {
	return keyringGet(service, account)
}

// GetOrCreate returns the key held by store, generating and storing a new
// one when none exists yet.
func GetOrCreate(store KeyStore) ([]byte, error) {
	key, err := store.GetKey()
	if err == nil {
		return key, nil
	}
	key, err = store.SetKey()
	if err != nil {
		return nil, fmt.Errorf("create key: %w", err)
	}
	return key, nil
}

// Fallback tries each store in order and uses the first one that works.
type Fallback []KeyStore

func (f Fallback) GetKey() ([]byte, error) {
	var firstErr error
	for _, s := range f {
		key, err := s.GetKey()
		if err == nil {
			return key, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	if firstErr == nil {
		firstErr = fmt.Errorf("no key store configured")
	}
	return nil, firstErr
}

func (f Fallback) SetKey() ([]byte, error) {
	var firstErr error
	for _, s := range f {
		key, err := s.SetKey()
		if err == nil {
			return key, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	if firstErr == nil {
		firstErr = fmt.Errorf("no key store configured")
	}
	return nil, firstErr
}

// DeleteKey removes the key from every store and returns the first error.
func (f Fallback) DeleteKey() error {
	var firstErr error
	for _, s := range f {
		if err := s.DeleteKey(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

var (
	_ KeyStore = (*Keyring)(nil)
	_ KeyStore = Fallback(nil)
)
