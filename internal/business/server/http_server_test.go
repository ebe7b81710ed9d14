package server

import (
	"context"
	"net"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sessionmock "github.com/openkcm/postboard/pkg/session/mock"
)

func TestStartHTTPServer_ContextCancellation(t *testing.T) {
	t.Run("gracefully shuts down when context is cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(t.Context())

		ta := newTestApp(t, sessionmock.NewInMemRepository(), &fakeIdentity{}, &fakePosts{})
		cfg := testConfig()

		errChan := make(chan error, 1)
		go func() {
			errChan <- StartHTTPServer(ctx, cfg, ta.app)
		}()

		// Give the server a moment to start
		time.Sleep(100 * time.Millisecond)

		cancel()

		select {
		case err := <-errChan:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Fatal("Server did not shut down within timeout")
		}
	})

	t.Run("serves on a unix socket", func(t *testing.T) {
		ctx, cancel := context.WithCancel(t.Context())
		defer cancel()

		ta := newTestApp(t, sessionmock.NewInMemRepository(), &fakeIdentity{}, &fakePosts{})
		socket := filepath.Join(t.TempDir(), "postboard.sock")
		cfg := testConfig()
		cfg.HTTP.Address = "unix://" + socket

		errChan := make(chan error, 1)
		go func() {
			errChan <- StartHTTPServer(ctx, cfg, ta.app)
		}()

		client := &http.Client{Transport: &http.Transport{
			DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
				return new(net.Dialer).DialContext(ctx, "unix", socket)
			},
		}}

		require.Eventually(t, func() bool {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, "http://postboard/login", nil)
			if err != nil {
				return false
			}

			resp, err := client.Do(req)
			if err != nil {
				return false
			}
			defer resp.Body.Close()

			return resp.StatusCode == http.StatusOK
		}, 5*time.Second, 20*time.Millisecond)

		cancel()
		assert.NoError(t, <-errChan)
	})

	t.Run("fails on an unsupported network", func(t *testing.T) {
		ta := newTestApp(t, sessionmock.NewInMemRepository(), &fakeIdentity{}, &fakePosts{})
		cfg := testConfig()
		cfg.HTTP.Address = "carrier-pigeon://nowhere"

		err := StartHTTPServer(t.Context(), cfg, ta.app)

		assert.Error(t, err)
	})
}

func TestCreateHTTPServer(t *testing.T) {
	ta := newTestApp(t, sessionmock.NewInMemRepository(), &fakeIdentity{}, &fakePosts{})
	cfg := testConfig()
	cfg.HTTP.Address = "localhost:8080"

	server := createHTTPServer(t.Context(), cfg, ta.app)

	assert.Equal(t, "localhost:8080", server.Addr)
	assert.NotNil(t, server.Handler)
}
