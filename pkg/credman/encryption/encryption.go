// Package encryption implements the value ciphers used to encrypt cookie
// values at rest.
//
// Two formats are supported:
//   - "gcm1": AES-GCM with a random nonce, keyed by a 32-byte key kept in the
//     OS keyring. Values without the prefix are decrypted with the legacy
//     AES-CFB scheme.
//   - OSCrypt "v10"/"v11": AES-128-CBC with a PBKDF2-derived key, the format
//     Chromium-family browsers write on Linux and macOS.
package encryption

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"io"
)

const gcmPrefix = "gcm1"

// ErrCiphertextTooShort is returned when a ciphertext cannot hold its header.
var ErrCiphertextTooShort = errors.New("ciphertext too short")

// randReader is the nonce source; tests replace it.
var randReader io.Reader = rand.Reader

// EncryptValue seals value with AES-GCM under key and returns
// "gcm1" || nonce || ciphertext.
func EncryptValue(value string, key []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(randReader, nonce); err != nil {
		return nil, err
	}

	ciphertext := gcm.Seal(nil, nonce, []byte(value), nil)
	out := make([]byte, 0, len(gcmPrefix)+len(nonce)+len(ciphertext))
	out = append(out, gcmPrefix...)
	out = append(out, nonce...)
	out = append(out, ciphertext...)
	return out, nil
}

// DecryptValue reverses EncryptValue. Ciphertexts without the "gcm1" prefix
// are treated as legacy AES-CFB (iv || data).
func DecryptValue(ciphertext []byte, key []byte) ([]byte, error) {
	if !HasGCMPrefix(ciphertext) {
		return decryptLegacy(ciphertext, key)
	}
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	nonceSize := gcm.NonceSize()
	if len(ciphertext) < len(gcmPrefix)+nonceSize {
		return nil, ErrCiphertextTooShort
	}
	nonce := ciphertext[len(gcmPrefix) : len(gcmPrefix)+nonceSize]
	data := ciphertext[len(gcmPrefix)+nonceSize:]
	return gcm.Open(nil, nonce, data, nil)
}

// HasGCMPrefix reports whether ciphertext was produced by EncryptValue.
func HasGCMPrefix(ciphertext []byte) bool {
	return len(ciphertext) >= len(gcmPrefix) && string(ciphertext[:len(gcmPrefix)]) == gcmPrefix
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

func decryptLegacy(ciphertext []byte, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	if len(ciphertext) < aes.BlockSize {
		return nil, ErrCiphertextTooShort
	}

	iv := ciphertext[:aes.BlockSize]
	ciphertext = ciphertext[aes.BlockSize:]

	stream := cipher.NewCFBDecrypter(block, iv)
	plaintext := make([]byte, len(ciphertext))
	stream.XORKeyStream(plaintext, ciphertext)

	return plaintext, nil
}
