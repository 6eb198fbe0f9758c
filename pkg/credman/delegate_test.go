package credman

import (
	"bytes"
	"errors"
	"testing"

	"github.com/spf13/afero"
	zkeyring "github.com/zalando/go-keyring"

	"github.com/warpdl/cookiestore/pkg/credman/encryption"
	"github.com/warpdl/cookiestore/pkg/credman/keyring"
)

func TestNopDelegate(t *testing.T) {
	var d NopDelegate
	if d.ShouldEncrypt() {
		t.Fatal("NopDelegate must not request encryption")
	}
	ct, _ := d.EncryptString("v")
	pt, err := d.DecryptString(ct)
	if err != nil || pt != "v" {
		t.Fatalf("round trip = %q, %v", pt, err)
	}
}

func TestKeyringDelegateWithMockKeyring(t *testing.T) {
	zkeyring.MockInit()

	d, err := NewKeyringDelegate(keyring.NewKeyring())
	if err != nil {
		t.Fatalf("NewKeyringDelegate: %v", err)
	}
	if !d.ShouldEncrypt() {
		t.Fatal("expected encryption to be requested")
	}
	ct, err := d.EncryptString("session=42")
	if err != nil {
		t.Fatalf("EncryptString: %v", err)
	}
	if bytes.Contains(ct, []byte("session=42")) {
		t.Fatal("ciphertext leaks the plaintext")
	}

	// A second delegate over the same keyring reuses the stored key.
	d2, err := NewKeyringDelegate(keyring.NewKeyring())
	if err != nil {
		t.Fatalf("NewKeyringDelegate: %v", err)
	}
	pt, err := d2.DecryptString(ct)
	if err != nil || pt != "session=42" {
		t.Fatalf("DecryptString = %q, %v", pt, err)
	}
}

func TestKeyringDelegateFileFallback(t *testing.T) {
	store := keyring.NewFileKeyStore(afero.NewMemMapFs(), "/profile")
	d, err := NewKeyringDelegate(store)
	if err != nil {
		t.Fatalf("NewKeyringDelegate: %v", err)
	}
	ct, _ := d.EncryptString("x")
	if !encryption.HasGCMPrefix(ct) {
		t.Fatal("expected gcm1 ciphertext")
	}
}

func TestKeyDelegateErrors(t *testing.T) {
	if _, err := NewKeyDelegate([]byte{1, 2, 3}); !errors.Is(err, ErrInvalidKey) {
		t.Fatal("expected key length error")
	}
	d, err := NewKeyDelegate(bytes.Repeat([]byte{7}, keyring.KeySize))
	if err != nil {
		t.Fatalf("NewKeyDelegate: %v", err)
	}
	if _, err := d.DecryptString([]byte("gcm1short")); !errors.Is(err, ErrDecrypt) {
		t.Fatalf("expected ErrDecrypt, got %v", err)
	}
}

func TestOSCryptDelegate(t *testing.T) {
	v10 := NewOSCryptDelegate("", LinuxIterations)
	if v10.Version() != encryption.OSCryptV10 {
		t.Fatalf("expected v10 writer, got %s", v10.Version())
	}
	v11 := NewOSCryptDelegate("hunter2", LinuxIterations)
	if v11.Version() != encryption.OSCryptV11 {
		t.Fatalf("expected v11 writer, got %s", v11.Version())
	}

	old, err := v10.EncryptString("legacy")
	if err != nil {
		t.Fatalf("EncryptString: %v", err)
	}
	// v11 delegates still read v10 values.
	if pt, err := v11.DecryptString(old); err != nil || pt != "legacy" {
		t.Fatalf("DecryptString(v10) = %q, %v", pt, err)
	}
	cur, _ := v11.EncryptString("current")
	if _, err := v10.DecryptString(cur); !errors.Is(err, ErrDecrypt) {
		t.Fatalf("v10-only delegate must fail on v11 values, got %v", err)
	}
}

func TestOSCryptDelegateFromKeyring(t *testing.T) {
	zkeyring.MockInit()
	if err := zkeyring.Set("Chromium Safe Storage", "Chromium", "pw"); err != nil {
		t.Fatalf("keyring.Set: %v", err)
	}
	d := NewOSCryptDelegateFromKeyring("Chromium Safe Storage", "Chromium", LinuxIterations)
	if d.Version() != encryption.OSCryptV11 {
		t.Fatalf("expected v11 with keyring password, got %s", d.Version())
	}
	missing := NewOSCryptDelegateFromKeyring("Nope", "Nope", LinuxIterations)
	if missing.Version() != encryption.OSCryptV10 {
		t.Fatalf("expected v10 fallback, got %s", missing.Version())
	}
}
