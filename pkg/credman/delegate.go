// Package credman provides the crypto delegates the cookie store uses to
// encrypt cookie values at rest.
package credman

import (
	"errors"
	"fmt"

	"github.com/warpdl/cookiestore/pkg/credman/encryption"
	"github.com/warpdl/cookiestore/pkg/credman/keyring"
)

var (
	// ErrEncrypt wraps every failure to encrypt a value.
	ErrEncrypt = errors.New("encrypt cookie value")
	// ErrDecrypt wraps every failure to decrypt a value.
	ErrDecrypt = errors.New("decrypt cookie value")
	// ErrInvalidKey is returned for keys that are not keyring.KeySize bytes.
	ErrInvalidKey = errors.New("invalid key length")
)

// Delegate encrypts and decrypts cookie values.
type Delegate interface {
	// ShouldEncrypt reports whether new values should be written encrypted.
	ShouldEncrypt() bool
	EncryptString(plaintext string) ([]byte, error)
	DecryptString(ciphertext []byte) (string, error)
}

// NopDelegate never encrypts. Ciphertexts it is asked to decrypt are
// returned verbatim.
type NopDelegate struct{}

func (NopDelegate) ShouldEncrypt() bool { return false }

func (NopDelegate) EncryptString(plaintext string) ([]byte, error) {
	return []byte(plaintext), nil
}

func (NopDelegate) DecryptString(ciphertext []byte) (string, error) {
	return string(ciphertext), nil
}

// KeyringDelegate encrypts values with AES-256-GCM under a key held in a
// keyring.KeyStore.
type KeyringDelegate struct {
	key []byte
}

// NewKeyringDelegate loads the key from store, creating one if needed.
func NewKeyringDelegate(store keyring.KeyStore) (*KeyringDelegate, error) {
	key, err := keyring.GetOrCreate(store)
	if err != nil {
		return nil, err
	}
	return NewKeyDelegate(key)
}

// NewKeyDelegate uses key directly (e.g. from an environment variable).
func NewKeyDelegate(key []byte) (*KeyringDelegate, error) {
	if len(key) != keyring.KeySize {
		return nil, fmt.Errorf("%w: expected %d, got %d", ErrInvalidKey, keyring.KeySize, len(key))
	}
	return &KeyringDelegate{key: append([]byte(nil), key...)}, nil
}

func (d *KeyringDelegate) ShouldEncrypt() bool { return true }

func (d *KeyringDelegate) EncryptString(plaintext string) ([]byte, error) {
	out, err := encryption.EncryptValue(plaintext, d.key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncrypt, err)
	}
	return out, nil
}

func (d *KeyringDelegate) DecryptString(ciphertext []byte) (string, error) {
	out, err := encryption.DecryptValue(ciphertext, d.key)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecrypt, err)
	}
	return string(out), nil
}

// OSCryptDelegate reads and writes Chromium-compatible "v10"/"v11" values.
// v10 values are always readable; v11 is written and read only when a
// keyring password is configured.
type OSCryptDelegate struct {
	keys    map[string][]byte
	version string
}

// Iteration counts used by Chromium for the OSCrypt key derivation.
const (
	LinuxIterations = 1
	MacIterations   = 1003
)

// NewOSCryptDelegate builds a delegate for password (empty for the v10
// fallback password only).
func NewOSCryptDelegate(password string, iterations int) *OSCryptDelegate {
	d := &OSCryptDelegate{
		keys: map[string][]byte{
			encryption.OSCryptV10: encryption.DeriveOSCryptKey(encryption.FallbackPassword, iterations),
		},
		version: encryption.OSCryptV10,
	}
	if password != "" {
		d.keys[encryption.OSCryptV11] = encryption.DeriveOSCryptKey(password, iterations)
		d.version = encryption.OSCryptV11
	}
	return d
}

// NewOSCryptDelegateFromKeyring reads the browser's "Safe Storage" password
// from the OS keyring, falling back to v10 when it is unavailable.
func NewOSCryptDelegateFromKeyring(service, account string, iterations int) *OSCryptDelegate {
	password, err := keyring.Password(service, account)
	if err != nil {
		password = ""
	}
	return NewOSCryptDelegate(password, iterations)
}

func (d *OSCryptDelegate) ShouldEncrypt() bool { return true }

// Version returns the prefix new values are written with.
func (d *OSCryptDelegate) Version() string { return d.version }

func (d *OSCryptDelegate) EncryptString(plaintext string) ([]byte, error) {
	out, err := encryption.EncryptOSCrypt(plaintext, d.keys[d.version], d.version)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncrypt, err)
	}
	return out, nil
}

func (d *OSCryptDelegate) DecryptString(ciphertext []byte) (string, error) {
	out, err := encryption.DecryptOSCrypt(ciphertext, d.keys)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecrypt, err)
	}
	return string(out), nil
}

var (
	_ Delegate = NopDelegate{}
	_ Delegate = (*KeyringDelegate)(nil)
	_ Delegate = (*OSCryptDelegate)(nil)
)
