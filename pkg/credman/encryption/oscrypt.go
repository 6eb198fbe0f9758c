package encryption

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha1"
	"errors"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

// OSCrypt version prefixes. v10 values are keyed by the fixed fallback
// password, v11 values by a password held in the OS keyring.
const (
	OSCryptV10 = "v10"
	OSCryptV11 = "v11"
)

const (
	osCryptSalt    = "saltysalt"
	osCryptKeySize = 16
	// FallbackPassword is the password used when no keyring is available.
	FallbackPassword = "peanuts"
)

var osCryptIV = bytes.Repeat([]byte{' '}, aes.BlockSize)

// ErrUnknownPrefix is returned for OSCrypt values with an unknown version tag.
var ErrUnknownPrefix = errors.New("unknown oscrypt version prefix")

// DeriveOSCryptKey derives the AES-128 key for password. Linux uses a single
// PBKDF2 iteration, macOS 1003.
func DeriveOSCryptKey(password string, iterations int) []byte {
	return pbkdf2.Key([]byte(password), []byte(osCryptSalt), iterations, osCryptKeySize, sha1.New)
}

// EncryptOSCrypt encrypts value with AES-128-CBC/PKCS#7 under key and tags
// the result with version.
func EncryptOSCrypt(value string, key []byte, version string) ([]byte, error) {
	if version != OSCryptV10 && version != OSCryptV11 {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPrefix, version)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	padded := pkcs7Pad([]byte(value), aes.BlockSize)
	out := make([]byte, len(version)+len(padded))
	copy(out, version)
	cipher.NewCBCEncrypter(block, osCryptIV).CryptBlocks(out[len(version):], padded)
	return out, nil
}

// DecryptOSCrypt reverses EncryptOSCrypt. keys maps a version prefix to its key.
func DecryptOSCrypt(ciphertext []byte, keys map[string][]byte) ([]byte, error) {
	if len(ciphertext) < 3 {
		return nil, ErrCiphertextTooShort
	}
	key, ok := keys[string(ciphertext[:3])]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPrefix, ciphertext[:3])
	}
	data := ciphertext[3:]
	if len(data) == 0 || len(data)%aes.BlockSize != 0 {
		return nil, fmt.Errorf("oscrypt: ciphertext is not a whole number of blocks")
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	plain := make([]byte, len(data))
	cipher.NewCBCDecrypter(block, osCryptIV).CryptBlocks(plain, data)
	return pkcs7Unpad(plain, aes.BlockSize)
}

func pkcs7Pad(b []byte, size int) []byte {
	n := size - len(b)%size
	return append(append([]byte(nil), b...), bytes.Repeat([]byte{byte(n)}, n)...)
}

func pkcs7Unpad(b []byte, size int) ([]byte, error) {
	if len(b) == 0 {
		return nil, errors.New("oscrypt: empty plaintext")
	}
	n := int(b[len(b)-1])
	if n == 0 || n > size || n > len(b) {
		return nil, errors.New("oscrypt: invalid padding")
	}
	for _, p := range b[len(b)-n:] {
		if int(p) != n {
			return nil, errors.New("oscrypt: invalid padding")
		}
	}
	return b[:len(b)-n], nil
}
