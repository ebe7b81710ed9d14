package session_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-jose/go-jose/v4"
	"github.com/go-jose/go-jose/v4/jwt"
	"github.com/stretchr/testify/require"

	"github.com/openkcm/postboard/internal/authapi"
)

const (
	validAccessToken  = "valid-access-token"
	validRefreshToken = "valid-refresh-token"
	refreshedBody     = `{"id":1,"username":"emilys","accessToken":"new-access-token","refreshToken":"new-refresh-token"}`
)

// identityServer is a fake identity service. Only validAccessToken passes
// the probe and only validRefreshToken can be refreshed.
type identityServer struct {
	*httptest.Server

	meCalls      atomic.Int32
	refreshCalls atomic.Int32
}

func startIdentityServer(t *testing.T) *identityServer {
	t.Helper()

	s := &identityServer{}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /auth/me", func(w http.ResponseWriter, r *http.Request) {
		s.meCalls.Add(1)
		if r.Header.Get("Authorization") != "Bearer "+validAccessToken {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"message":"Token Expired!"}`))

			return
		}

		_, _ = w.Write([]byte(`{"id":1}`))
	})
	mux.HandleFunc("POST /auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		s.refreshCalls.Add(1)

		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["refreshToken"] != validRefreshToken {
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte(`{"message":"Invalid refresh token"}`))

			return
		}

		_, _ = w.Write([]byte(refreshedBody))
	})

	s.Server = httptest.NewServer(mux)
	t.Cleanup(s.Close)

	return s
}

func (s *identityServer) client() *authapi.Client {
	return authapi.NewClient(s.URL, s.Client())
}

// rotatingIdentityServer is a fake identity service that accepts every
// refresh token once and answers with a new pair each time.
type rotatingIdentityServer struct {
	*httptest.Server

	mu           sync.Mutex
	current      string
	issued       int
	refreshCalls atomic.Int32
}

func startRotatingIdentityServer(t *testing.T, refreshToken string) *rotatingIdentityServer {
	t.Helper()

	s := &rotatingIdentityServer{current: refreshToken}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /auth/me", func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.Header.Get("Authorization"), "Bearer at-") {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		_, _ = w.Write([]byte(`{"id":1}`))
	})
	mux.HandleFunc("POST /auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		s.refreshCalls.Add(1)

		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)

		// Widens the window in which a second refresh could overlap.
		time.Sleep(50 * time.Millisecond)

		s.mu.Lock()
		defer s.mu.Unlock()

		if body["refreshToken"] != s.current {
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte(`{"message":"Invalid refresh token"}`))

			return
		}

		s.issued++
		s.current = fmt.Sprintf("rt-%d", s.issued)
		_, _ = fmt.Fprintf(w, `{"accessToken":"at-%d","refreshToken":%q}`, s.issued, s.current)
	})

	s.Server = httptest.NewServer(mux)
	t.Cleanup(s.Close)

	return s
}

func (s *rotatingIdentityServer) client() *authapi.Client {
	return authapi.NewClient(s.URL, s.Client())
}

func (s *rotatingIdentityServer) currentRefreshToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.current
}

// unreachableIdentity returns a client whose every call fails in transport.
func unreachableIdentity(t *testing.T) *authapi.Client {
	t.Helper()

	server := httptest.NewServer(http.NotFoundHandler())
	server.Close()

	return authapi.NewClient(server.URL, server.Client())
}

func signedToken(t *testing.T, expiry time.Time) string {
	t.Helper()

	signer, err := jose.NewSigner(jose.SigningKey{
		Algorithm: jose.HS256,
		Key:       []byte("12345678901234567890123456789012"),
	}, nil)
	require.NoError(t, err)

	token, err := jwt.Signed(signer).Claims(jwt.Claims{
		Subject: "emilys",
		Expiry:  jwt.NewNumericDate(expiry),
	}).Serialize()
	require.NoError(t, err)

	return token
}
