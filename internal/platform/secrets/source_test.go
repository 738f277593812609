package secrets

import (
	"bytes"
	"errors"
	"testing"
)

type fixedSource struct {
	b byte
}

func (s fixedSource) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = s.b
	}
	return len(p), nil
}

type failingSource struct{}

func (failingSource) Read(p []byte) (int, error) {
	return 0, errors.New("entropy exhausted")
}

func TestNewToken_Deterministic(t *testing.T) {
	a, err := NewToken(fixedSource{b: 0x42})
	if err != nil {
		t.Fatalf("NewToken: %v", err)
	}
	b, err := NewToken(fixedSource{b: 0x42})
	if err != nil {
		t.Fatalf("NewToken: %v", err)
	}
	if a != b {
		t.Errorf("same source must yield same token: %q vs %q", a, b)
	}
}

func TestNewToken_Length(t *testing.T) {
	tok, err := NewToken(CryptoSource{})
	if err != nil {
		t.Fatalf("NewToken: %v", err)
	}
	// 32 bytes in unpadded URL-safe base64 is 43 characters.
	if len(tok) != 43 {
		t.Errorf("expected 43-char token, got %d (%q)", len(tok), tok)
	}
	if bytes.ContainsAny([]byte(tok), "+/=") {
		t.Errorf("token must be URL-safe, got %q", tok)
	}
}

func TestNewToken_CryptoUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 64; i++ {
		tok, err := NewToken(CryptoSource{})
		if err != nil {
			t.Fatalf("NewToken: %v", err)
		}
		if seen[tok] {
			t.Fatalf("duplicate token from crypto source: %q", tok)
		}
		seen[tok] = true
	}
}

func TestNewToken_SourceFailure(t *testing.T) {
	if _, err := NewToken(failingSource{}); err == nil {
		t.Error("expected error from failing source")
	}
}
