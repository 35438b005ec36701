package secrets

import (
	"strings"
	"testing"
)

func testCipher(t *testing.T) *Cipher {
	t.Helper()
	c, err := NewCipher("unit-test-master-key", "unit-test-salt")
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	c := testCipher(t)

	for _, secret := range []string{"p@ss", "", "a much longer credential with spaces", "ключ"} {
		sealed, err := c.Encrypt(secret)
		if err != nil {
			t.Fatal(err)
		}
		if !strings.HasPrefix(sealed, "enc:v1:") {
			t.Fatalf("missing envelope prefix: %s", sealed)
		}
		if strings.Contains(sealed, secret) && secret != "" {
			t.Fatalf("plaintext leaked into envelope")
		}

		plain, err := c.Decrypt(sealed)
		if err != nil {
			t.Fatal(err)
		}
		if plain != secret {
			t.Fatalf("round trip %q → %q", secret, plain)
		}
	}
}

func TestEncryptNonDeterministic(t *testing.T) {
	c := testCipher(t)

	a, _ := c.Encrypt("same")
	b, _ := c.Encrypt("same")
	if a == b {
		t.Fatalf("nonce reuse: identical ciphertexts")
	}
}

func TestDecryptPlaintextPassthrough(t *testing.T) {
	c := testCipher(t)

	plain, err := c.Decrypt("legacy-plaintext-password")
	if err != nil {
		t.Fatal(err)
	}
	if plain != "legacy-plaintext-password" {
		t.Fatalf("passthrough broken: %q", plain)
	}
}

func TestDecryptWrongKeyFails(t *testing.T) {
	sealed, err := testCipher(t).Encrypt("secret")
	if err != nil {
		t.Fatal(err)
	}

	other, err := NewCipher("a-different-master-key", "unit-test-salt")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := other.Decrypt(sealed); err == nil {
		t.Fatalf("decrypt under the wrong key must fail")
	}
}

func TestNewCipherEmptyKey(t *testing.T) {
	if _, err := NewCipher("  ", "salt"); err == nil {
		t.Fatalf("empty master key must be rejected")
	}
}
