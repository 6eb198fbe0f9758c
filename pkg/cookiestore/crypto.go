package cookiestore

import (
	"time"

	"github.com/warpdl/cookiestore/pkg/credman"
	"github.com/warpdl/cookiestore/pkg/logger"
)

// cryptoAdapter wraps the optional crypto delegate.
type cryptoAdapter struct {
	delegate credman.Delegate
	watchdog time.Duration
	log      logger.Logger
	m        *metrics
}

func (a *cryptoAdapter) encrypting() bool {
	return a.delegate != nil && a.delegate.ShouldEncrypt()
}

// maybeEncrypt returns the (value, encrypted_value) column pair for
// plaintext. Exactly one is populated.
func (a *cryptoAdapter) maybeEncrypt(plaintext string) (string, []byte, error) {
	if !a.encrypting() {
		return plaintext, []byte{}, nil
	}
	ct, err := a.delegate.EncryptString(plaintext)
	if err != nil {
		return "", nil, err
	}
	return "", ct, nil
}

// maybeDecrypt decrypts an encrypted_value column. Slow decryptions are
// flagged by the watchdog but never cancelled.
func (a *cryptoAdapter) maybeDecrypt(ciphertext []byte) (string, error) {
	if a.delegate == nil {
		return "", credman.ErrDecrypt
	}
	timer := time.AfterFunc(a.watchdog, func() {
		a.log.Warning("cookie decryption exceeded %s", a.watchdog)
		a.m.slowDecrypts.Inc()
	})
	defer timer.Stop()
	return a.delegate.DecryptString(ciphertext)
}
