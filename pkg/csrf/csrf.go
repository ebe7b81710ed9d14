// Package csrf issues and checks tokens that bind a state changing request
// to the browser context that loaded the page.
package csrf

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

const (
	MinKeyLength = 32
	nonceLength  = 32
)

var ErrShortKey = fmt.Errorf("csrf key must be at least %d bytes", MinKeyLength)

type Signer struct {
	key []byte
}

func NewSigner(key []byte) (*Signer, error) {
	if len(key) < MinKeyLength {
		return nil, ErrShortKey
	}

	return &Signer{key: key}, nil
}

// Token returns a fresh token for the client. Every token returned for a
// client stays valid for it.
func (s *Signer) Token(clientID string) string {
	buf := make([]byte, nonceLength)
	_, _ = rand.Read(buf)
	nonce := hex.EncodeToString(buf)

	return hex.EncodeToString(s.mac(clientID, nonce)) + "." + nonce
}

func (s *Signer) Valid(token, clientID string) bool {
	received, nonce, err := split(token)
	if err != nil {
		return false
	}

	return hmac.Equal(received, s.mac(clientID, nonce))
}

func (s *Signer) mac(clientID, nonce string) []byte {
	hash := hmac.New(sha256.New, s.key)
	hash.Write(fmt.Appendf(nil, "%d!%s!%d!%s", len(clientID), clientID, len(nonce), nonce))

	return hash.Sum(nil)
}

func split(token string) ([]byte, string, error) {
	macHex, nonce, ok := strings.Cut(token, ".")
	if !ok || nonce == "" {
		return nil, "", errors.New("malformed token")
	}

	received, err := hex.DecodeString(macHex)
	if err != nil {
		return nil, "", fmt.Errorf("decoding mac: %w", err)
	}

	return received, nonce, nil
}
