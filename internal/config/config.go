// Package config defines the necessary types to configure the application.
// An example config file config.yaml is provided in the repository.
package config

import (
	"time"

	"github.com/openkcm/common-sdk/pkg/commoncfg"
)

type Config struct {
	commoncfg.BaseConfig `mapstructure:",squash" yaml:",inline"`

	HTTP HTTPServer `yaml:"http"`

	SessionStore   SessionStore   `yaml:"sessionStore"`
	Database       Database       `yaml:"database"`
	ValKey         ValKey         `yaml:"valkey"`
	Migrate        Migrate        `yaml:"migrate"`
	Identity       Upstream       `yaml:"identity"`
	Posts          Upstream       `yaml:"posts"`
	UI             UI             `yaml:"ui"`
	Client         Client         `yaml:"client"`
	TokenRefresher TokenRefresher `yaml:"tokenRefresher"`
}

type HTTPServer struct {
	Address         string        `yaml:"address" default:":8080" validate:"required"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout" default:"5s"`
}

// SessionStoreType selects the backend that persists the session values of
// a browser context.
type SessionStoreType string

const (
	SessionStoreMemory   SessionStoreType = "memory"
	SessionStoreValKey   SessionStoreType = "valkey"
	SessionStorePostgres SessionStoreType = "postgres"
)

type SessionStore struct {
	Type SessionStoreType `yaml:"type" default:"memory" validate:"oneof=memory valkey postgres"`
	// IdleTimeout only applies to the memory store.
	IdleTimeout time.Duration `yaml:"idleTimeout" default:"24h"`
}

type Database struct {
	Name     string              `yaml:"name"`
	Port     string              `yaml:"port"`
	Host     commoncfg.SourceRef `yaml:"host"`
	User     commoncfg.SourceRef `yaml:"user"`
	Password commoncfg.SourceRef `yaml:"password"`
}

type ValKey struct {
	Host     commoncfg.SourceRef `yaml:"host"`
	User     commoncfg.SourceRef `yaml:"user"`
	Password commoncfg.SourceRef `yaml:"password"`
	Prefix   string              `yaml:"prefix" default:"postboard"`
}

// Migrate.Source is "embedded" for the migrations built into the binary, or
// a file:// directory.
type Migrate struct {
	Source string `yaml:"source" default:"embedded"`
}

// Upstream is a remote HTTP service. A zero Timeout keeps the platform
// default, which is no timeout.
type Upstream struct {
	BaseURL string        `yaml:"baseURL" validate:"required,url"`
	Timeout time.Duration `yaml:"timeout"`
}

type UI struct {
	SearchDebounce  time.Duration `yaml:"searchDebounce" default:"300ms" validate:"gt=0"`
	NoticeDuration  time.Duration `yaml:"noticeDuration" default:"5s" validate:"gt=0"`
	PageIdleTimeout time.Duration `yaml:"pageIdleTimeout" default:"30m"`
}

type Client struct {
	CookieTemplate CookieTemplate      `yaml:"cookie"`
	CSRFSecret     commoncfg.SourceRef `yaml:"csrfSecret"`
}

type TokenRefresher struct {
	RefreshInterval time.Duration `yaml:"refreshInterval" default:"1m" validate:"gt=0"`
	RefreshWindow   time.Duration `yaml:"refreshWindow" default:"5m"`
	JWSSigAlgs      []string      `yaml:"jwsSigAlgs" default:"[\"HS256\",\"RS256\",\"ES256\"]" validate:"dive,jws_alg"`
}

type CookieSameSite string

const (
	CookieSameSiteNone   CookieSameSite = "None"
	CookieSameSiteLax    CookieSameSite = "Lax"
	CookieSameSiteStrict CookieSameSite = "Strict"
)

type CookieTemplate struct {
	Name     string         `yaml:"name" default:"postboard_client" validate:"required"`
	MaxAge   int            `yaml:"maxAge"`
	Path     string         `yaml:"path" default:"/"`
	Domain   string         `yaml:"domain"`
	Secure   bool           `yaml:"secure"`
	SameSite CookieSameSite `yaml:"sameSite" default:"Lax" validate:"omitempty,oneof=None Lax Strict"`
	HTTPOnly bool           `yaml:"httpOnly" default:"true"`
}
