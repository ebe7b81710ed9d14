package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/openkcm/common-sdk/pkg/commoncfg"
	"github.com/stretchr/testify/require"

	"github.com/openkcm/postboard/internal/authapi"
	"github.com/openkcm/postboard/internal/config"
	"github.com/openkcm/postboard/internal/postsapi"
	"github.com/openkcm/postboard/internal/serviceerr"
	"github.com/openkcm/postboard/pkg/csrf"
	"github.com/openkcm/postboard/pkg/session"
	sessionmock "github.com/openkcm/postboard/pkg/session/mock"
)

const (
	testClientID   = "6f1c2a1e-2a4f-4d1e-9a55-0f1a3c5e7b21"
	testCookieName = "postboard_client"
)

type fakeIdentity struct {
	loginErr error
	meErr    error
	logins   atomic.Int32
}

func (f *fakeIdentity) Login(_ context.Context, username, _ string) (authapi.Tokens, error) {
	f.logins.Add(1)
	if f.loginErr != nil {
		return authapi.Tokens{}, f.loginErr
	}

	return authapi.Tokens{
		AccessToken:  "access-" + username,
		RefreshToken: "refresh-" + username,
		UserData:     json.RawMessage(`{"username":"` + username + `"}`),
	}, nil
}

func (f *fakeIdentity) Me(context.Context, string) error {
	return f.meErr
}

func (f *fakeIdentity) Refresh(context.Context, string) (authapi.Tokens, error) {
	return authapi.Tokens{}, serviceerr.ErrAuth
}

type fakePosts struct {
	posts []postsapi.Post
	err   error
}

func (f *fakePosts) List(context.Context) ([]postsapi.Post, error) {
	if f.err != nil {
		return nil, f.err
	}

	return f.posts, nil
}

func (f *fakePosts) Get(_ context.Context, id int) (postsapi.Post, error) {
	for _, p := range f.posts {
		if p.ID == id {
			return p, nil
		}
	}

	return postsapi.Post{}, serviceerr.ErrNotFound
}

var samplePosts = []postsapi.Post{
	{ID: 1, Title: "sunt aut facere", Body: "quia et suscipit"},
	{ID: 2, Title: "qui est esse", Body: "est rerum tempore"},
	{ID: 3, Title: "ea molestias quasi", Body: "et iusto sed quo iure"},
}

func testConfig() *config.Config {
	return &config.Config{
		BaseConfig: commoncfg.BaseConfig{
			Application: commoncfg.Application{
				Name: "test-app",
			},
		},
		HTTP: config.HTTPServer{
			Address:         "localhost:0",
			ShutdownTimeout: time.Second,
		},
		UI: config.UI{
			SearchDebounce:  10 * time.Millisecond,
			NoticeDuration:  time.Minute,
			PageIdleTimeout: time.Hour,
		},
		Client: config.Client{
			CookieTemplate: config.CookieTemplate{
				Name: testCookieName,
				Path: "/",
			},
		},
	}
}

type testApp struct {
	app      *App
	handler  http.Handler
	repo     *sessionmock.Repository
	identity *fakeIdentity
	signer   *csrf.Signer
}

func newTestApp(t *testing.T, repo *sessionmock.Repository, identity *fakeIdentity, posts *fakePosts) *testApp {
	t.Helper()

	signer, err := csrf.NewSigner([]byte(strings.Repeat("k", csrf.MinKeyLength)))
	require.NoError(t, err)

	manager := session.NewManager(repo, identity, time.Minute, []string{"HS256"})
	app := NewApp(testConfig(), manager, identity, posts, signer)
	t.Cleanup(app.Close)

	return &testApp{
		app:      app,
		handler:  app.Handler(),
		repo:     repo,
		identity: identity,
		signer:   signer,
	}
}

func completeSession() session.Session {
	return session.Session{
		ClientID:     testClientID,
		AccessToken:  "access-token",
		RefreshToken: "refresh-token",
		UserData:     `{"id":1}`,
	}
}

// do sends a request as the test browser context. POST requests carry a
// valid CSRF token.
func (ta *testApp) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body == "" {
		req = httptest.NewRequestWithContext(t.Context(), method, target, nil)
	} else {
		req = httptest.NewRequestWithContext(t.Context(), method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}

	req.AddCookie(&http.Cookie{Name: testCookieName, Value: testClientID})
	if method == http.MethodPost {
		req.Header.Set(csrfHeader, ta.signer.Token(testClientID))
	}

	rec := httptest.NewRecorder()
	ta.handler.ServeHTTP(rec, req)

	return rec
}

type decodedPage[T any] struct {
	Surface   string `json:"surface"`
	CSRFToken string `json:"csrfToken"`
	View      T      `json:"view"`
}

func decodePage[T any](t *testing.T, rec *httptest.ResponseRecorder) decodedPage[T] {
	t.Helper()

	var p decodedPage[T]
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p), rec.Body.String())

	return p
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorModel {
	t.Helper()

	var e errorModel
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &e), rec.Body.String())

	return e
}
