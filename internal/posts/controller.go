// Package posts implements the posts page: loading the collection,
// debounced title search and the detail overlay.
package posts

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	slogctx "github.com/veqryn/slog-context"

	"github.com/openkcm/postboard/internal/debounce"
	"github.com/openkcm/postboard/internal/postsapi"
	"github.com/openkcm/postboard/internal/serviceerr"
)

const (
	KeyEscape = "Escape"

	ReloadPath   = "/posts/reload"
	errorTitle   = "Oops! Something went wrong"
	noPostsTitle = "No posts found"
)

// ClickTarget is the part of the overlay a click landed on.
type ClickTarget string

const (
	TargetBackdrop ClickTarget = "backdrop"
	TargetContent  ClickTarget = "content"
)

type Lister interface {
	List(ctx context.Context) ([]postsapi.Post, error)
}

type Card struct {
	ID    int    `json:"id"`
	Title string `json:"title"`
	Label string `json:"label"`
}

type Detail struct {
	Visible bool   `json:"visible"`
	ID      int    `json:"id,omitempty"`
	Title   string `json:"title,omitempty"`
	Body    string `json:"body,omitempty"`
}

type Message struct {
	Title     string `json:"title"`
	Message   string `json:"message"`
	RetryPath string `json:"retryPath,omitempty"`
}

type View struct {
	Loading      bool     `json:"loading"`
	ListVisible  bool     `json:"listVisible"`
	Term         string   `json:"term"`
	Cards        []Card   `json:"cards"`
	Empty        *Message `json:"empty,omitempty"`
	Error        *Message `json:"error,omitempty"`
	Detail       Detail   `json:"detail"`
	ScrollLocked bool     `json:"scrollLocked"`
}

// Controller is the posts page of one browser context.
type Controller struct {
	mu        sync.Mutex
	clientID  string
	posts     Lister
	debouncer *debounce.Debouncer

	all      []postsapi.Post
	filtered []postsapi.Post
	term     string
	loading  bool
	loaded   bool
	loadErr  error

	detail       *postsapi.Post
	scrollLocked bool
	savedScroll  bool

	recomputes int
}

func NewController(clientID string, posts Lister, searchDebounce time.Duration) *Controller {
	return &Controller{
		clientID:  clientID,
		posts:     posts,
		debouncer: debounce.New(searchDebounce),
	}
}

// LoadPosts fetches the whole collection and applies the current search
// term. The list is hidden while the fetch is pending.
func (c *Controller) LoadPosts(ctx context.Context) error {
	ctx = slogctx.With(ctx, "client_id", c.clientID)

	c.mu.Lock()
	c.loading = true
	c.loadErr = nil
	c.mu.Unlock()

	// The call completes even when the browser goes away.
	all, err := c.posts.List(context.WithoutCancel(ctx))

	c.mu.Lock()
	defer c.mu.Unlock()

	c.loading = false
	if err != nil {
		slogctx.Error(ctx, "Failed to load posts", "error", err)
		c.loadErr = err

		return err
	}

	c.all = all
	c.loaded = true
	c.recompute(ctx)

	return nil
}

// Search replaces the rendered list with the posts matching term.
func (c *Controller) Search(ctx context.Context, term string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.term = term
	c.recompute(slogctx.With(ctx, "client_id", c.clientID))
}

// Input searches for term once the input has been quiet for the debounce
// window. Only the last input of a burst is searched for.
func (c *Controller) Input(ctx context.Context, term string) {
	ctx = context.WithoutCancel(ctx)
	c.debouncer.Trigger(func() {
		c.Search(ctx, term)
	})
}

// OpenDetail shows the post in the overlay and locks page scrolling.
func (c *Controller) OpenDetail(id int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	idx := -1
	for i, p := range c.all {
		if p.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return serviceerr.New(serviceerr.CodeNotFound, fmt.Sprintf("post %d not found", id))
	}

	if c.detail == nil {
		c.savedScroll = c.scrollLocked
	}

	post := c.all[idx]
	c.detail = &post
	c.scrollLocked = true

	return nil
}

// CloseDetail hides the overlay and restores the scroll lock saved when it
// was opened. It reports whether the overlay was open.
func (c *Controller) CloseDetail() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.detail == nil {
		return false
	}

	c.detail = nil
	c.scrollLocked = c.savedScroll

	return true
}

// Click closes the overlay when the click landed outside its content.
func (c *Controller) Click(target ClickTarget) bool {
	if target != TargetBackdrop {
		return false
	}

	return c.CloseDetail()
}

// KeyDown closes the overlay on Escape.
func (c *Controller) KeyDown(key string) bool {
	if key != KeyEscape {
		return false
	}

	return c.CloseDetail()
}

func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()

	v := View{
		Loading:      c.loading,
		ListVisible:  !c.loading,
		Term:         c.term,
		Cards:        []Card{},
		ScrollLocked: c.scrollLocked,
	}

	if c.detail != nil {
		v.Detail = Detail{
			Visible: true,
			ID:      c.detail.ID,
			Title:   Capitalize(c.detail.Title),
			Body:    Capitalize(c.detail.Body),
		}
	}

	switch {
	case c.loading:
	case c.loadErr != nil:
		v.Error = &Message{
			Title:     errorTitle,
			Message:   serviceerr.ErrFetch.Description,
			RetryPath: ReloadPath,
		}
	case !c.loaded:
	case len(c.filtered) == 0:
		v.Empty = &Message{Title: noPostsTitle, Message: emptyMessage(c.term)}
	default:
		for _, p := range c.filtered {
			v.Cards = append(v.Cards, Card{
				ID:    p.ID,
				Title: Capitalize(p.Title),
				Label: fmt.Sprintf("Post #%d", p.ID),
			})
		}
	}

	return v
}

func (c *Controller) Close() {
	c.debouncer.Stop()
}

func (c *Controller) recompute(ctx context.Context) {
	c.filtered = Filter(c.all, c.term)
	c.recomputes++

	slogctx.Debug(ctx, "Filtered posts",
		"total", len(c.all),
		"filtered", len(c.filtered),
		"term", c.term,
	)
}

func emptyMessage(term string) string {
	term = strings.TrimSpace(term)
	if term == "" {
		return "No posts available"
	}

	return `No posts found for "` + term + `"`
}
