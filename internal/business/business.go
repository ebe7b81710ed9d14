package business

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/exaring/otelpgx"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/openkcm/common-sdk/pkg/commoncfg"
	"github.com/samber/oops"
	"github.com/valkey-io/valkey-go"

	slogctx "github.com/veqryn/slog-context"

	"github.com/openkcm/postboard/internal/authapi"
	"github.com/openkcm/postboard/internal/business/server"
	"github.com/openkcm/postboard/internal/config"
	"github.com/openkcm/postboard/internal/postsapi"
	"github.com/openkcm/postboard/pkg/csrf"
	"github.com/openkcm/postboard/pkg/session"
	sessionmemory "github.com/openkcm/postboard/pkg/session/memory"
	sessionsql "github.com/openkcm/postboard/pkg/session/sql"
	sessionvalkey "github.com/openkcm/postboard/pkg/session/valkey"
)

var errSharedStoreRequired = errors.New("the token refresher needs a valkey or postgres session store")

// Main starts the HTTP server. With the memory session store the token
// refresher runs in the same process, since no other process can reach the
// sessions.
func Main(ctx context.Context, cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return oops.In("main").Wrapf(err, "validating configuration")
	}

	sessionManager, closeFn, err := initSessionManager(ctx, cfg)
	if err != nil {
		return fmt.Errorf("initialising the session manager: %w", err)
	}

	defer closeFn()

	app, err := initApp(ctx, cfg, sessionManager)
	if err != nil {
		return fmt.Errorf("initialising the application: %w", err)
	}

	defer app.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// errChan is used to capture the first error and shutdown the workers.
	errChan := make(chan error, 2)

	// wg is used to wait for all workers to shutdown.
	var wg sync.WaitGroup

	wg.Go(func() {
		errChan <- server.StartHTTPServer(ctx, cfg, app)
	})

	if cfg.SessionStore.Type == config.SessionStoreMemory {
		wg.Go(func() {
			errChan <- startTokenRefresher(ctx, sessionManager, cfg)
		})
	}

	// wait for any error to initiate the shutdown
	err = <-errChan
	if err != nil {
		slogctx.Error(ctx, "Shutting down", "error", err)
	}
	cancel()

	wg.Wait()

	return err
}

// TokenRefresherMain refreshes the access tokens of the shared session
// store until the context is done.
func TokenRefresherMain(ctx context.Context, cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return oops.In("main").Wrapf(err, "validating configuration")
	}

	if cfg.SessionStore.Type == config.SessionStoreMemory {
		return errSharedStoreRequired
	}

	sessionManager, closeFn, err := initSessionManager(ctx, cfg)
	if err != nil {
		return fmt.Errorf("initialising the session manager: %w", err)
	}

	defer closeFn()

	slogctx.Info(ctx, "Starting token refresh job")
	return startTokenRefresher(ctx, sessionManager, cfg)
}

func startTokenRefresher(ctx context.Context, sessionManager *session.Manager, cfg *config.Config) error {
	c := time.Tick(cfg.TokenRefresher.RefreshInterval)
	for {
		slogctx.Debug(ctx, "Triggering tokens refresh")
		if err := sessionManager.RefreshExpiringSessions(ctx); err != nil {
			slogctx.Error(ctx, "Failed to refresh tokens", "error", err)
		}

		select {
		case <-c:
			continue
		case <-ctx.Done():
			return nil
		}
	}
}

func initSessionManager(ctx context.Context, cfg *config.Config) (_ *session.Manager, closeFn func(), _ error) {
	repo, closeFn, err := initSessionRepository(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	identity := authapi.NewClient(cfg.Identity.BaseURL, httpClient(cfg.Identity))
	sessManager := session.NewManager(
		repo,
		identity,
		cfg.TokenRefresher.RefreshWindow,
		cfg.TokenRefresher.JWSSigAlgs,
	)

	return sessManager, closeFn, nil
}

func initSessionRepository(ctx context.Context, cfg *config.Config) (_ session.Repository, closeFn func(), _ error) {
	switch cfg.SessionStore.Type {
	case config.SessionStoreMemory:
		return sessionmemory.NewRepository(cfg.SessionStore.IdleTimeout), func() {}, nil
	case config.SessionStoreValKey:
		valkeyOpts, err := config.MakeValKeyOption(cfg.ValKey)
		if err != nil {
			return nil, nil, fmt.Errorf("making valkey options from config: %w", err)
		}

		valkeyClient, err := valkey.NewClient(valkeyOpts)
		if err != nil {
			return nil, nil, fmt.Errorf("creating a new valkey client: %w", err)
		}

		return sessionvalkey.NewRepository(valkeyClient, cfg.ValKey.Prefix), valkeyClient.Close, nil
	case config.SessionStorePostgres:
		connStr, err := config.MakeConnStr(cfg.Database)
		if err != nil {
			return nil, nil, fmt.Errorf("making dsn from config: %w", err)
		}

		poolCfg, err := pgxpool.ParseConfig(connStr)
		if err != nil {
			return nil, nil, fmt.Errorf("parsing pgxpool config: %w", err)
		}

		poolCfg.ConnConfig.Tracer = otelpgx.NewTracer()

		db, err := pgxpool.NewWithConfig(ctx, poolCfg)
		if err != nil {
			return nil, nil, fmt.Errorf("initialising pgxpool connection: %w", err)
		}

		return sessionsql.NewRepository(db), db.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown session store type %q", cfg.SessionStore.Type)
	}
}

func initApp(ctx context.Context, cfg *config.Config, sessionManager *session.Manager) (*server.App, error) {
	signer, err := loadCSRFSigner(ctx, cfg.Client.CSRFSecret)
	if err != nil {
		return nil, err
	}

	identity := authapi.NewClient(cfg.Identity.BaseURL, httpClient(cfg.Identity))
	posts := postsapi.NewClient(cfg.Posts.BaseURL, httpClient(cfg.Posts))

	return server.NewApp(cfg, sessionManager, identity, posts, signer), nil
}

// loadCSRFSigner uses the configured secret. Without one a random key is
// generated, and tokens do not survive a restart.
func loadCSRFSigner(ctx context.Context, secret commoncfg.SourceRef) (*csrf.Signer, error) {
	if secret.Source == "" {
		slogctx.Warn(ctx, "No CSRF secret configured, using a random key")

		key := make([]byte, csrf.MinKeyLength)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("generating csrf key: %w", err)
		}

		return csrf.NewSigner(key)
	}

	key, err := commoncfg.LoadValueFromSourceRef(secret)
	if err != nil {
		return nil, fmt.Errorf("loading csrf secret: %w", err)
	}

	signer, err := csrf.NewSigner(key)
	if err != nil {
		return nil, fmt.Errorf("creating csrf signer: %w", err)
	}

	return signer, nil
}

// httpClient returns the client for an upstream. A zero timeout keeps the
// default client.
func httpClient(upstream config.Upstream) *http.Client {
	if upstream.Timeout == 0 {
		return http.DefaultClient
	}

	return &http.Client{Timeout: upstream.Timeout}
}
