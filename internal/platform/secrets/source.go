// Package secrets generates opaque capability token strings from a
// pluggable entropy source. Production uses crypto/rand; tests inject a
// deterministic source.
package secrets

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
)

// TokenBytes is the raw entropy per token: 32 bytes = 256 bits, large
// enough that birthday collisions are negligible.
const TokenBytes = 32

// Source yields random bytes for token generation.
type Source interface {
	Read(p []byte) (int, error)
}

// CryptoSource reads from the operating system CSPRNG.
type CryptoSource struct{}

func (CryptoSource) Read(p []byte) (int, error) {
	return rand.Read(p)
}

// NewToken returns an unguessable URL-safe token string drawn from src.
func NewToken(src Source) (string, error) {
	buf := make([]byte, TokenBytes)
	if _, err := io.ReadFull(src, buf); err != nil {
		return "", fmt.Errorf("read token entropy: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
