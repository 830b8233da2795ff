package security

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"os"
	"strings"
)

// ErrInvalidKey is returned when PEM or key type is invalid.
var ErrInvalidKey = errors.New("invalid key")

// ErrKeyMismatch is returned when the configured public key does not belong to the private key.
var ErrKeyMismatch = errors.New("public key does not match private key")

const pemPrefix = "-----BEGIN"

var privateParsers = map[string]func([]byte) (any, error){
	"RSA PRIVATE KEY": func(b []byte) (any, error) { return x509.ParsePKCS1PrivateKey(b) },
	"EC PRIVATE KEY":  func(b []byte) (any, error) { return x509.ParseECPrivateKey(b) },
	"PRIVATE KEY":     x509.ParsePKCS8PrivateKey,
}

var publicParsers = map[string]func([]byte) (any, error){
	"RSA PUBLIC KEY": func(b []byte) (any, error) { return x509.ParsePKCS1PublicKey(b) },
	"PUBLIC KEY":     x509.ParsePKIXPublicKey,
}

// LoadPEM returns s itself when it is inline PEM and the content of the file at s otherwise.
// Env files often carry inline PEM with literal "\n" sequences; those become real newlines.
func LoadPEM(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	switch {
	case s == "":
		return nil, ErrInvalidKey
	case strings.HasPrefix(s, pemPrefix):
		return []byte(strings.ReplaceAll(s, `\n`, "\n")), nil
	default:
		return os.ReadFile(s)
	}
}

// ParsePrivateKey parses a PEM private key (PKCS#1, SEC 1 or PKCS#8). s may be inline PEM or a file path.
func ParsePrivateKey(s string) (crypto.Signer, error) {
	key, err := parseWith(s, privateParsers)
	if err != nil {
		return nil, err
	}
	signer, ok := key.(crypto.Signer)
	if !ok || KeyAlg(signer.Public()) == "" {
		return nil, ErrInvalidKey
	}
	return signer, nil
}

// ParsePublicKey parses a PEM public key (PKCS#1 or PKIX). s may be inline PEM or a file path.
func ParsePublicKey(s string) (crypto.PublicKey, error) {
	key, err := parseWith(s, publicParsers)
	if err != nil {
		return nil, err
	}
	if KeyAlg(key) == "" {
		return nil, ErrInvalidKey
	}
	return key, nil
}

// LoadKeyPair parses the session signing key and its verification key. An empty public uses the
// public half of the private key. A public key of another algorithm is ErrInvalidKey; one of the
// same algorithm that is not the private key's own half is ErrKeyMismatch.
func LoadKeyPair(private, public string) (crypto.Signer, crypto.PublicKey, error) {
	signer, err := ParsePrivateKey(private)
	if err != nil {
		return nil, nil, err
	}
	if strings.TrimSpace(public) == "" {
		return signer, signer.Public(), nil
	}
	pub, err := ParsePublicKey(public)
	if err != nil {
		return nil, nil, err
	}
	if KeyAlg(pub) != KeyAlg(signer.Public()) {
		return nil, nil, ErrInvalidKey
	}
	if eq, ok := signer.Public().(interface{ Equal(crypto.PublicKey) bool }); ok && !eq.Equal(pub) {
		return nil, nil, ErrKeyMismatch
	}
	return signer, pub, nil
}

// GenerateEphemeralKey returns a fresh P-256 signing key. Sessions signed with it do not survive a restart.
func GenerateEphemeralKey() (crypto.Signer, error) {
	return ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
}

// KeyAlg returns the JWS algorithm for pub: RS256 for RSA, ES256 for ECDSA P-256, empty otherwise.
func KeyAlg(pub crypto.PublicKey) string {
	switch k := pub.(type) {
	case *rsa.PublicKey:
		return "RS256"
	case *ecdsa.PublicKey:
		if k.Curve == elliptic.P256() {
			return "ES256"
		}
	}
	return ""
}

func parseWith(s string, parsers map[string]func([]byte) (any, error)) (any, error) {
	raw, err := LoadPEM(s)
	if err != nil {
		return nil, err
	}
	block, _ := pem.Decode(raw)
	if block == nil {
		return nil, ErrInvalidKey
	}
	parse, ok := parsers[block.Type]
	if !ok {
		return nil, ErrInvalidKey
	}
	return parse(block.Bytes)
}
