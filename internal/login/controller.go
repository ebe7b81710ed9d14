// Package login implements the login page: credential submission, the busy
// state of the submit control and the dismissible error notice.
package login

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	slogctx "github.com/veqryn/slog-context"

	"github.com/openkcm/postboard/internal/authapi"
	"github.com/openkcm/postboard/internal/notice"
	"github.com/openkcm/postboard/internal/page"
	"github.com/openkcm/postboard/internal/serviceerr"
)

const (
	LabelIdle = "Sign in"
	LabelBusy = "Signing in..."

	MessageValidation         = "Please fill in all fields."
	MessageInvalidCredentials = "Invalid credentials. Please try again."
	MessageConnection         = "Connection error. Check your internet connection and try again."
	MessageUnexpected         = "Something went wrong. Please try again."
)

var errBusy = serviceerr.New(serviceerr.CodeInvalidRequest, "a login is already in progress")

type Authenticator interface {
	Login(ctx context.Context, username, password string) (authapi.Tokens, error)
}

type SessionWriter interface {
	Establish(ctx context.Context, clientID string, tokens authapi.Tokens) error
}

type Button struct {
	Label    string `json:"label"`
	Disabled bool   `json:"disabled"`
}

type Notice struct {
	Message string `json:"message,omitempty"`
	Visible bool   `json:"visible"`
}

type View struct {
	Button Button `json:"button"`
	Notice Notice `json:"notice"`
}

// Controller is the login page of one browser context.
type Controller struct {
	mu       sync.Mutex
	clientID string
	auth     Authenticator
	sessions SessionWriter
	notice   *notice.Notice
	busy     bool
}

func NewController(clientID string, auth Authenticator, sessions SessionWriter, noticeDuration time.Duration) *Controller {
	return &Controller{
		clientID: clientID,
		auth:     auth,
		sessions: sessions,
		notice:   notice.New(noticeDuration),
	}
}

// SubmitLogin authenticates with the trimmed credentials. On success the
// session is established and the posts surface is returned; on failure the
// notice explains why and no session is written.
func (c *Controller) SubmitLogin(ctx context.Context, username, password string) (page.Surface, error) {
	username = strings.TrimSpace(username)
	password = strings.TrimSpace(password)

	c.mu.Lock()
	if c.busy {
		c.mu.Unlock()
		return page.SurfaceNone, errBusy
	}

	if username == "" || password == "" {
		c.notice.Show(MessageValidation)
		c.mu.Unlock()

		return page.SurfaceNone, serviceerr.ErrValidation
	}

	c.busy = true
	c.notice.Hide()
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.busy = false
		c.mu.Unlock()
	}()

	ctx = slogctx.With(ctx, "client_id", c.clientID)

	// The call completes even when the browser goes away.
	tokens, err := c.auth.Login(context.WithoutCancel(ctx), username, password)
	if err != nil {
		slogctx.Warn(ctx, "Login failed", "error", err)
		c.notice.Show(messageFor(err))

		return page.SurfaceNone, err
	}

	if err := c.sessions.Establish(ctx, c.clientID, tokens); err != nil {
		slogctx.Error(ctx, "Failed to store the session", "error", err)
		c.notice.Show(MessageUnexpected)

		return page.SurfaceNone, err
	}

	slogctx.Info(ctx, "Logged in")

	return page.SurfacePosts, nil
}

func (c *Controller) View() View {
	c.mu.Lock()
	busy := c.busy
	c.mu.Unlock()

	label := LabelIdle
	if busy {
		label = LabelBusy
	}

	message, visible := c.notice.Current()
	if !visible {
		message = ""
	}

	return View{
		Button: Button{Label: label, Disabled: busy},
		Notice: Notice{Message: message, Visible: visible},
	}
}

func (c *Controller) Close() {
	c.notice.Stop()
}

// messageFor prefers the message of the identity service for rejected
// credentials.
func messageFor(err error) string {
	var serviceErr *serviceerr.Error
	switch {
	case errors.Is(err, serviceerr.ErrAuth):
		if errors.As(err, &serviceErr) && serviceErr.Description != "" {
			return serviceErr.Description
		}

		return MessageInvalidCredentials
	case errors.Is(err, serviceerr.ErrNetwork):
		return MessageConnection
	default:
		return MessageUnexpected
	}
}
