package session

import (
	"time"

	"github.com/go-jose/go-jose/v4"
)

// SetClock replaces the time source of the manager.
func (m *Manager) SetClock(now func() time.Time) {
	m.now = now
}

func TokenExpiry(token string, algs []string) (time.Time, error) {
	sigAlgs := make([]jose.SignatureAlgorithm, 0, len(algs))
	for _, alg := range algs {
		sigAlgs = append(sigAlgs, jose.SignatureAlgorithm(alg))
	}

	return tokenExpiry(token, sigAlgs)
}
