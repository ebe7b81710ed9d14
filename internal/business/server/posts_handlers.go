package server

import (
	"context"
	"net/http"
	"strconv"

	"github.com/openkcm/postboard/internal/middleware/clientid"
	"github.com/openkcm/postboard/internal/page"
	"github.com/openkcm/postboard/internal/posts"
	"github.com/openkcm/postboard/internal/serviceerr"
)

type searchRequest struct {
	Term string `json:"term"`
}

type clickRequest struct {
	Target posts.ClickTarget `json:"target" validate:"required,oneof=backdrop content"`
}

type keyDownRequest struct {
	Key string `json:"key" validate:"required"`
}

// loadPosts sends a browser without a usable session to the login page and
// opens a fresh posts page otherwise.
func (a *App) loadPosts(ctx context.Context, _ *http.Request) (response, error) {
	id, err := clientid.FromContext(ctx)
	if err != nil {
		return response{}, err
	}

	var resp response
	err = a.sessions.CheckAndProceed(ctx, id,
		func(ctx context.Context) error {
			p := posts.NewController(id, a.posts, a.cfg.UI.SearchDebounce)
			a.postsPages.Put(id, p)

			status := http.StatusOK
			if err := p.LoadPosts(ctx); err != nil {
				status = statusOf(err)
			}
			resp = a.pageResponse(id, page.SurfacePosts, p.View(), status)

			return nil
		},
		func(context.Context) error {
			a.postsPages.Delete(id)
			resp = redirect(page.SurfaceLogin)

			return nil
		},
	)
	if err != nil {
		return response{}, err
	}

	return resp, nil
}

func (a *App) viewPosts(ctx context.Context, _ *http.Request) (response, error) {
	return a.withPostsPage(ctx, func(*posts.Controller) int {
		return http.StatusOK
	})
}

func (a *App) reloadPosts(ctx context.Context, _ *http.Request) (response, error) {
	return a.withPostsPage(ctx, func(p *posts.Controller) int {
		if err := p.LoadPosts(ctx); err != nil {
			return statusOf(err)
		}

		return http.StatusOK
	})
}

func (a *App) searchPosts(ctx context.Context, r *http.Request) (response, error) {
	term := r.URL.Query().Get("q")

	return a.withPostsPage(ctx, func(p *posts.Controller) int {
		p.Search(ctx, term)
		return http.StatusOK
	})
}

// inputSearch schedules a search with the debounce delay of the page.
func (a *App) inputSearch(ctx context.Context, r *http.Request) (response, error) {
	var req searchRequest
	if err := a.decodeRequest(r, &req); err != nil {
		return response{}, err
	}

	return a.withPostsPage(ctx, func(p *posts.Controller) int {
		p.Input(ctx, req.Term)
		return http.StatusAccepted
	})
}

func (a *App) openDetail(ctx context.Context, r *http.Request) (response, error) {
	postID, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		return response{}, serviceerr.New(serviceerr.CodeInvalidRequest, "post id must be a number")
	}

	var openErr error
	resp, err := a.withPostsPage(ctx, func(p *posts.Controller) int {
		openErr = p.OpenDetail(postID)
		return http.StatusOK
	})
	if err != nil {
		return response{}, err
	}
	if openErr != nil {
		return response{}, openErr
	}

	return resp, nil
}

func (a *App) closeDetail(ctx context.Context, _ *http.Request) (response, error) {
	return a.withPostsPage(ctx, func(p *posts.Controller) int {
		p.CloseDetail()
		return http.StatusOK
	})
}

func (a *App) clickDetail(ctx context.Context, r *http.Request) (response, error) {
	var req clickRequest
	if err := a.decodeRequest(r, &req); err != nil {
		return response{}, err
	}

	return a.withPostsPage(ctx, func(p *posts.Controller) int {
		p.Click(req.Target)
		return http.StatusOK
	})
}

func (a *App) keyDownDetail(ctx context.Context, r *http.Request) (response, error) {
	var req keyDownRequest
	if err := a.decodeRequest(r, &req); err != nil {
		return response{}, err
	}

	return a.withPostsPage(ctx, func(p *posts.Controller) int {
		p.KeyDown(req.Key)
		return http.StatusOK
	})
}

// getPost returns a single post as served by the posts service.
func (a *App) getPost(ctx context.Context, r *http.Request) (response, error) {
	postID, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		return response{}, serviceerr.New(serviceerr.CodeInvalidRequest, "post id must be a number")
	}

	post, err := a.posts.Get(context.WithoutCancel(ctx), postID)
	if err != nil {
		return response{}, err
	}

	return response{status: http.StatusOK, body: post}, nil
}

// withPostsPage runs action on the live posts page and answers with its
// view. Without a live page the browser is sent to load one.
func (a *App) withPostsPage(ctx context.Context, action func(*posts.Controller) int) (response, error) {
	id, p, ok, err := livePage(ctx, a.postsPages.Get)
	if err != nil {
		return response{}, err
	}
	if !ok {
		return redirect(page.SurfacePosts), nil
	}

	status := action(p)

	return a.pageResponse(id, page.SurfacePosts, p.View(), status), nil
}
