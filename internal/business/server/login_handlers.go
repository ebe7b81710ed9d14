package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/openkcm/postboard/internal/login"
	"github.com/openkcm/postboard/internal/middleware/clientid"
	"github.com/openkcm/postboard/internal/page"
	"github.com/openkcm/postboard/internal/serviceerr"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// loadLogin sends a browser with a usable session to the posts page and
// opens a fresh login page otherwise.
func (a *App) loadLogin(ctx context.Context, _ *http.Request) (response, error) {
	id, err := clientid.FromContext(ctx)
	if err != nil {
		return response{}, err
	}

	var resp response
	err = a.sessions.CheckAndProceed(ctx, id,
		func(context.Context) error {
			a.loginPages.Delete(id)
			resp = redirect(page.SurfacePosts)

			return nil
		},
		func(context.Context) error {
			p := login.NewController(id, a.identity, a.sessions, a.cfg.UI.NoticeDuration)
			a.loginPages.Put(id, p)
			resp = a.pageResponse(id, page.SurfaceLogin, p.View(), http.StatusOK)

			return nil
		},
	)
	if err != nil {
		return response{}, err
	}

	return resp, nil
}

func (a *App) viewLogin(ctx context.Context, _ *http.Request) (response, error) {
	id, p, ok, err := livePage(ctx, a.loginPages.Get)
	if err != nil || !ok {
		return redirect(page.SurfaceLogin), err
	}

	return a.pageResponse(id, page.SurfaceLogin, p.View(), http.StatusOK), nil
}

// submitLogin answers a successful login with the posts page and a failed
// one with the login view carrying the notice.
func (a *App) submitLogin(ctx context.Context, r *http.Request) (response, error) {
	id, p, ok, err := livePage(ctx, a.loginPages.Get)
	if err != nil || !ok {
		return redirect(page.SurfaceLogin), err
	}

	var req loginRequest
	if err := a.decodeRequest(r, &req); err != nil {
		return response{}, err
	}

	next, err := p.SubmitLogin(ctx, req.Username, req.Password)
	if err != nil {
		if errors.Is(err, serviceerr.ErrInvalidRequest) {
			return response{}, err
		}

		return a.pageResponse(id, page.SurfaceLogin, p.View(), statusOf(err)), nil
	}

	a.loginPages.Delete(id)

	return redirect(next), nil
}

func (a *App) logout(ctx context.Context, _ *http.Request) (response, error) {
	id, err := clientid.FromContext(ctx)
	if err != nil {
		return response{}, err
	}

	if err := a.sessions.Logout(ctx, id); err != nil {
		return response{}, err
	}

	a.loginPages.Delete(id)
	a.postsPages.Delete(id)

	return redirect(page.SurfaceLogin), nil
}

// livePage looks up the page of the requesting browser context.
func livePage[T any](ctx context.Context, get func(string) (T, bool)) (string, T, bool, error) {
	var zero T

	id, err := clientid.FromContext(ctx)
	if err != nil {
		return "", zero, false, err
	}

	p, ok := get(id)

	return id, p, ok, nil
}
