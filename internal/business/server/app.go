package server

import (
	"context"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/openkcm/postboard/internal/config"
	"github.com/openkcm/postboard/internal/login"
	"github.com/openkcm/postboard/internal/middleware/clientid"
	"github.com/openkcm/postboard/internal/page"
	"github.com/openkcm/postboard/internal/posts"
	"github.com/openkcm/postboard/internal/postsapi"
	"github.com/openkcm/postboard/pkg/csrf"
	"github.com/openkcm/postboard/pkg/session"
)

// PostsService is the posts upstream as used by the pages and the single
// post endpoint.
type PostsService interface {
	posts.Lister
	Get(ctx context.Context, id int) (postsapi.Post, error)
}

// App holds the page instances of every browser context and the services
// they talk to.
type App struct {
	cfg      *config.Config
	sessions *session.Manager
	identity login.Authenticator
	posts    PostsService
	csrf     *csrf.Signer
	validate *validator.Validate
	trace    func(operation string, next handlerFunc) handlerFunc

	loginPages *page.Registry[*login.Controller]
	postsPages *page.Registry[*posts.Controller]
}

func NewApp(
	cfg *config.Config,
	sessions *session.Manager,
	identity login.Authenticator,
	postsService PostsService,
	signer *csrf.Signer,
) *App {
	return &App{
		cfg:        cfg,
		sessions:   sessions,
		identity:   identity,
		posts:      postsService,
		csrf:       signer,
		validate:   validator.New(validator.WithRequiredStructEnabled()),
		trace:      newTraceMiddleware(cfg),
		loginPages: page.NewRegistry[*login.Controller](cfg.UI.PageIdleTimeout),
		postsPages: page.NewRegistry[*posts.Controller](cfg.UI.PageIdleTimeout),
	}
}

// Handler returns the routes of the application behind the client ID
// middleware.
func (a *App) Handler() http.Handler {
	mux := http.NewServeMux()

	a.route(mux, "GET /login", "LoadLogin", a.loadLogin)
	a.route(mux, "GET /login/view", "ViewLogin", a.viewLogin)
	a.route(mux, "POST /login", "SubmitLogin", a.submitLogin)
	a.route(mux, "POST /logout", "Logout", a.logout)

	a.route(mux, "GET /posts", "LoadPosts", a.loadPosts)
	a.route(mux, "GET /posts/view", "ViewPosts", a.viewPosts)
	a.route(mux, "POST /posts/reload", "ReloadPosts", a.reloadPosts)
	a.route(mux, "GET /posts/search", "SearchPosts", a.searchPosts)
	a.route(mux, "POST /posts/search", "InputSearch", a.inputSearch)
	a.route(mux, "POST /posts/{id}/open", "OpenDetail", a.openDetail)
	a.route(mux, "POST /posts/detail/close", "CloseDetail", a.closeDetail)
	a.route(mux, "POST /posts/detail/click", "ClickDetail", a.clickDetail)
	a.route(mux, "POST /posts/detail/keydown", "KeyDownDetail", a.keyDownDetail)

	a.route(mux, "GET /api/posts/{id}", "GetPost", a.getPost)

	return clientid.Middleware(a.cfg.Client.CookieTemplate)(mux)
}

// Close stops the timers of every live page.
func (a *App) Close() {
	a.loginPages.Close()
	a.postsPages.Close()
}
