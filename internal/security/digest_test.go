package security

import "testing"

func TestHashSecret_Consistent(t *testing.T) {
	h1 := HashSecret("482913")
	h2 := HashSecret("482913")
	if h1 != h2 {
		t.Errorf("HashSecret not consistent: %q != %q", h1, h2)
	}
	if len(h1) != 64 {
		t.Errorf("hash length = %d, want 64 (SHA-256 hex)", len(h1))
	}
	if h1 == "482913" {
		t.Error("HashSecret must not return the plain secret")
	}
}

func TestHashSecret_DifferentSecrets(t *testing.T) {
	if HashSecret("111111") == HashSecret("111112") {
		t.Error("HashSecret produced same hash for different secrets")
	}
}

