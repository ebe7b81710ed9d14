//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/goccy/go-yaml"
	"github.com/stretchr/testify/require"

	"github.com/openkcm/postboard/internal/dbtest/postgrestest"
	"github.com/openkcm/postboard/internal/dbtest/valkeytest"
)

type closeFunc func(ctx context.Context)

type infraStat struct {
	PostgresPort   nat.Port
	ValKeyPort     nat.Port
	ConfigFilePath string
	Procdir        string
	Socket         string
	Cfg            map[string]any
	Upstreams      *upstreams

	closeFuncs []closeFunc
}

// initInfra prepares the process directory. Everything it sets up is
// released when the test ends, after the started command stopped.
func initInfra(t *testing.T, name string) *infraStat {
	t.Helper()

	istat := &infraStat{}
	t.Cleanup(func() { istat.Close(context.Background()) })

	// The config is read from $PWD/config.yaml, so each process runs in its
	// own subdirectory.
	wd, err := os.Getwd()
	require.NoError(t, err, "failed to get wd")
	istat.Procdir = filepath.Join(wd, name+"-test")
	istat.ConfigFilePath = filepath.Join(istat.Procdir, "config.yaml")

	err = os.MkdirAll(istat.Procdir, fs.ModePerm)
	require.NoError(t, err, "failed to create a dir for the process")

	err = yaml.Unmarshal(validConfig, &istat.Cfg)
	require.NoError(t, err, "failed to parse the config")

	istat.Socket = filepath.Join(istat.Procdir, name+".sock")
	istat.set("http", "address", "unix://"+istat.Socket)
	istat.set("logger", "level", "debug")
	istat.set("client", "cookie", map[string]any{"name": "postboard_client", "path": "/"})
	istat.set("ui", "searchDebounce", "20ms")

	return istat
}

func (istat *infraStat) set(section, key string, value any) {
	m, ok := istat.Cfg[section].(map[string]any)
	if !ok {
		m = map[string]any{}
		istat.Cfg[section] = m
	}
	m[key] = value
}

func embedded(value string) map[string]any {
	return map[string]any{"source": "embedded", "value": value}
}

func (istat *infraStat) PreparePostgres(t *testing.T) {
	t.Helper()

	pgClient, pgPort, pgTerminate := postgrestest.Start(t.Context())
	pgClient.Close()

	istat.PostgresPort = pgPort
	istat.closeFuncs = append(istat.closeFuncs, pgTerminate)

	istat.set("sessionStore", "type", "postgres")
	istat.set("database", "name", postgrestest.DBName)
	istat.set("database", "port", pgPort.Port())
	istat.set("database", "host", embedded(postgrestest.DBHost))
	istat.set("database", "user", embedded(postgrestest.DBUser))
	istat.set("database", "password", embedded(postgrestest.DBPassword))
}

func (istat *infraStat) PrepareValKey(t *testing.T) {
	t.Helper()

	vkClient, vkPort, vkTerminate := valkeytest.Start(t.Context())
	vkClient.Close()

	istat.ValKeyPort = vkPort
	istat.closeFuncs = append(istat.closeFuncs, vkTerminate)

	istat.set("sessionStore", "type", "valkey")
	istat.set("valkey", "host", embedded(valkeytest.Addr(vkPort)))
}

// PrepareUpstreams points the identity and posts services at in-process
// fakes.
func (istat *infraStat) PrepareUpstreams(t *testing.T) {
	t.Helper()

	istat.Upstreams = newUpstreams(t)

	istat.set("identity", "baseURL", istat.Upstreams.identity.URL)
	istat.set("posts", "baseURL", istat.Upstreams.posts.URL)
}

// PrepareConfig writes a config file for running the test into the ConfigFilePath.
func (istat *infraStat) PrepareConfig(t *testing.T) {
	t.Helper()

	out, err := yaml.Marshal(istat.Cfg)
	require.NoError(t, err, "failed to encode config")

	err = os.WriteFile(istat.ConfigFilePath, out, fs.ModePerm)
	require.NoError(t, err, "failed to write config")
}

func (istat *infraStat) Close(ctx context.Context) {
	os.RemoveAll(istat.Procdir)

	for _, close := range istat.closeFuncs {
		close(ctx)
	}
}

// StartCommand runs a postboard subcommand in the process directory and
// stops it with SIGTERM when the test ends.
func (istat *infraStat) StartCommand(t *testing.T, cmdName string) {
	t.Helper()

	currdir, err := os.Getwd()
	require.NoError(t, err, "failed to get wd")

	cmd := exec.Command(filepath.Join(currdir, binary), cmdName)
	cmd.Dir = istat.Procdir

	cmdOutPath := filepath.Join(currdir, cmdName+".log")
	cmdOut, err := os.Create(cmdOutPath)
	require.NoError(t, err, "failed to create a log file")

	cmd.Stdout = cmdOut
	cmd.Stderr = cmdOut
	t.Logf("starting an app process. Logs will be saved into %s", cmdOutPath)

	require.NoError(t, cmd.Start(), "could not start command")

	// stop gracefully so that coverprofiles are written
	t.Cleanup(func() {
		_ = syscall.Kill(cmd.Process.Pid, syscall.SIGTERM)
		_ = cmd.Wait()
		cmdOut.Close()
	})
}

// Client returns an HTTP client that talks to the API server over its unix
// socket and keeps the client cookie.
func (istat *infraStat) Client(t *testing.T) *http.Client {
	t.Helper()

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)

	client := &http.Client{
		Jar: jar,
		Transport: &http.Transport{
			DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
				return new(net.Dialer).DialContext(ctx, "unix", istat.Socket)
			},
		},
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
		Timeout: 5 * time.Second,
	}

	require.Eventually(t, func() bool {
		_, err := os.Stat(istat.Socket)
		return err == nil
	}, 10*time.Second, 50*time.Millisecond, "the api server did not start")

	return client
}

type upstreams struct {
	identity *httptest.Server
	posts    *httptest.Server

	mu       sync.Mutex
	refreshs int
	access   string
}

const (
	testUser     = "emilys"
	testPassword = "emilyspass"
)

func newUpstreams(t *testing.T) *upstreams {
	t.Helper()

	u := &upstreams{access: "access-1"}

	identity := http.NewServeMux()
	identity.HandleFunc("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
		var req struct{ Username, Password string }
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Username != testUser || req.Password != testPassword {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"message":"Invalid credentials"}`))
			return
		}

		u.mu.Lock()
		access := u.access
		u.mu.Unlock()

		writeJSON(w, map[string]any{"id": 1, "username": testUser, "accessToken": access, "refreshToken": "refresh-1"})
	})
	identity.HandleFunc("GET /auth/me", func(w http.ResponseWriter, r *http.Request) {
		u.mu.Lock()
		access := u.access
		u.mu.Unlock()

		if r.Header.Get("Authorization") != "Bearer "+access {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		writeJSON(w, map[string]any{"id": 1, "username": testUser})
	})
	identity.HandleFunc("POST /auth/refresh", func(w http.ResponseWriter, _ *http.Request) {
		u.mu.Lock()
		u.refreshs++
		u.access = "access-refreshed"
		u.mu.Unlock()

		writeJSON(w, map[string]any{"accessToken": "access-refreshed", "refreshToken": "refresh-2"})
	})

	posts := http.NewServeMux()
	posts.HandleFunc("GET /posts", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, []map[string]any{
			{"id": 1, "title": "sunt aut facere", "body": "quia et suscipit"},
			{"id": 2, "title": "qui est esse", "body": "est rerum tempore"},
		})
	})
	posts.HandleFunc("GET /posts/{id}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") != "1" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		writeJSON(w, map[string]any{"id": 1, "title": "sunt aut facere", "body": "quia et suscipit"})
	})

	u.identity = httptest.NewServer(identity)
	u.posts = httptest.NewServer(posts)
	t.Cleanup(u.identity.Close)
	t.Cleanup(u.posts.Close)

	return u
}

func (u *upstreams) Refreshes() int {
	u.mu.Lock()
	defer u.mu.Unlock()

	return u.refreshs
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		panic(errors.Join(errors.New("encoding fake response"), err))
	}
}
