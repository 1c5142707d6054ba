package internal

import (
	"errors"
	"testing"
)

// TestVerifySignatureValid tests that a correctly signed body verifies.
func TestVerifySignatureValid(t *testing.T) {
	body := []byte(`{"action":"opened"}`)
	secret := "s3cr3t"

	if err := VerifySignature(body, SignBody(body, secret), secret); err != nil {
		t.Fatalf("expected valid signature, got %v", err)
	}
}

// TestVerifySignatureFlippedBody tests that changing any byte of the body
// fails verification.
func TestVerifySignatureFlippedBody(t *testing.T) {
	body := []byte(`{"action":"opened"}`)
	secret := "s3cr3t"
	header := SignBody(body, secret)

	for i := range body {
		flipped := append([]byte(nil), body...)
		flipped[i] ^= 0x01
		if err := VerifySignature(flipped, header, secret); !errors.Is(err, ErrSignatureMismatch) {
			t.Fatalf("expected mismatch for flipped byte %d, got %v", i, err)
		}
	}
}

// TestVerifySignatureWrongSecret tests that a different secret fails
// verification.
func TestVerifySignatureWrongSecret(t *testing.T) {
	body := []byte(`{"action":"opened"}`)
	header := SignBody(body, "s3cr3t")

	if err := VerifySignature(body, header, "s3cr4t"); !errors.Is(err, ErrSignatureMismatch) {
		t.Fatalf("expected mismatch, got %v", err)
	}
}

// TestVerifySignatureSkipped tests the permissive default: verification is
// skipped when the secret or the header is absent.
func TestVerifySignatureSkipped(t *testing.T) {
	body := []byte(`{}`)

	if err := VerifySignature(body, "sha256=deadbeef", ""); err != nil {
		t.Fatalf("expected skip with empty secret, got %v", err)
	}
	if err := VerifySignature(body, "", "s3cr3t"); err != nil {
		t.Fatalf("expected skip with missing header, got %v", err)
	}
}

// TestVerifySignatureMalformed tests that malformed encodings fail closed.
func TestVerifySignatureMalformed(t *testing.T) {
	body := []byte(`{}`)
	secret := "s3cr3t"

	if err := VerifySignature(body, "sha256=not-hex", secret); !errors.Is(err, ErrBadSignatureEncoding) {
		t.Fatalf("expected encoding error, got %v", err)
	}
	// A signature without the expected prefix is still compared; it
	// cannot match.
	if err := VerifySignature(body, "deadbeef", secret); !errors.Is(err, ErrSignatureMismatch) {
		t.Fatalf("expected mismatch for prefixless header, got %v", err)
	}
}
