package security

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadPEM_Inline(t *testing.T) {
	pemBytes, err := LoadPEM(testPrivateKeyPEM)
	if err != nil {
		t.Fatalf("LoadPEM: %v", err)
	}
	if !strings.Contains(string(pemBytes), "-----BEGIN") {
		t.Error("LoadPEM did not return PEM content")
	}
}

func TestLoadPEM_LiteralNewlines(t *testing.T) {
	escaped := strings.ReplaceAll(testPublicKeyPEM, "\n", `\n`)
	pub, err := ParsePublicKey(escaped)
	if err != nil {
		t.Fatalf("ParsePublicKey with escaped newlines: %v", err)
	}
	if KeyAlg(pub) != "RS256" {
		t.Errorf("KeyAlg = %q, want RS256", KeyAlg(pub))
	}
}

func TestLoadPEM_FilePath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.pem")
	if err := os.WriteFile(path, []byte(testPrivateKeyPEM), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := ParsePrivateKey(path); err != nil {
		t.Fatalf("ParsePrivateKey from file: %v", err)
	}
}

func TestLoadPEM_Empty(t *testing.T) {
	if _, err := LoadPEM("  "); err != ErrInvalidKey {
		t.Errorf("LoadPEM empty: want ErrInvalidKey, got %v", err)
	}
}

func TestParsePrivateKey_NotPEM(t *testing.T) {
	if _, err := ParsePrivateKey("-----BEGIN garbage"); err != ErrInvalidKey {
		t.Errorf("want ErrInvalidKey, got %v", err)
	}
}

func TestLoadKeyPair_DerivesPublic(t *testing.T) {
	signer, pub, err := LoadKeyPair(testPrivateKeyPEM, "")
	if err != nil {
		t.Fatalf("LoadKeyPair: %v", err)
	}
	if signer == nil || pub == nil {
		t.Fatal("LoadKeyPair returned nil key")
	}
}

func TestLoadKeyPair_AlgorithmMismatch(t *testing.T) {
	ecKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	der, err := x509.MarshalPKIXPublicKey(&ecKey.PublicKey)
	if err != nil {
		t.Fatalf("MarshalPKIXPublicKey: %v", err)
	}
	ecPub := string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}))

	if _, _, err := LoadKeyPair(testPrivateKeyPEM, ecPub); err != ErrInvalidKey {
		t.Errorf("RSA private with EC public: want ErrInvalidKey, got %v", err)
	}
}

func TestLoadKeyPair_ForeignPublicKey(t *testing.T) {
	other, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	der, err := x509.MarshalPKIXPublicKey(&other.PublicKey)
	if err != nil {
		t.Fatalf("MarshalPKIXPublicKey: %v", err)
	}
	otherPub := string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}))

	if _, _, err := LoadKeyPair(testPrivateKeyPEM, otherPub); err != ErrKeyMismatch {
		t.Errorf("foreign RSA public key: want ErrKeyMismatch, got %v", err)
	}
	if _, _, err := LoadKeyPair(testPrivateKeyPEM, testPublicKeyPEM); err != nil {
		t.Errorf("matching pair: %v", err)
	}
}

func TestGenerateEphemeralKey(t *testing.T) {
	key, err := GenerateEphemeralKey()
	if err != nil {
		t.Fatalf("GenerateEphemeralKey: %v", err)
	}
	if KeyAlg(key.Public()) != "ES256" {
		t.Errorf("KeyAlg = %q, want ES256", KeyAlg(key.Public()))
	}
	p384, err := ecdsa.GenerateKey(elliptic.P384(), rand.Reader)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	if KeyAlg(&p384.PublicKey) != "" {
		t.Error("P-384 keys should have no supported algorithm")
	}
}
