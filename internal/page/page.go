// Package page names the navigation surfaces and keeps the live page
// instances of every browser context.
package page

import (
	"time"

	"github.com/patrickmn/go-cache"
)

type Surface string

const (
	SurfaceNone  Surface = ""
	SurfaceLogin Surface = "login"
	SurfacePosts Surface = "posts"
)

// Path is the URL path the surface is served at.
func (s Surface) Path() string {
	if s == SurfaceNone {
		return ""
	}

	return "/" + string(s)
}

type Closer interface {
	Close()
}

// Registry holds one page instance per client. Instances idle for longer
// than the timeout are closed and dropped.
type Registry[T Closer] struct {
	cache *cache.Cache
}

func NewRegistry[T Closer](idleTimeout time.Duration) *Registry[T] {
	c := cache.New(idleTimeout, idleTimeout)
	c.OnEvicted(func(_ string, v any) {
		if p, ok := v.(T); ok {
			p.Close()
		}
	})

	return &Registry[T]{cache: c}
}

// Put registers the page of a client, closing the one it replaces.
func (r *Registry[T]) Put(clientID string, p T) {
	if old, ok := r.cache.Get(clientID); ok {
		if oldPage, ok := old.(T); ok {
			oldPage.Close()
		}
	}

	r.cache.SetDefault(clientID, p)
}

// Get returns the page of a client and extends its idle timeout.
func (r *Registry[T]) Get(clientID string) (T, bool) {
	var zero T

	v, ok := r.cache.Get(clientID)
	if !ok {
		return zero, false
	}

	p, ok := v.(T)
	if !ok {
		return zero, false
	}

	r.cache.SetDefault(clientID, p)

	return p, true
}

// Delete closes and drops the page of a client.
func (r *Registry[T]) Delete(clientID string) {
	r.cache.Delete(clientID)
}

func (r *Registry[T]) Len() int {
	return r.cache.ItemCount()
}

// Close closes and drops every page.
func (r *Registry[T]) Close() {
	for clientID := range r.cache.Items() {
		r.cache.Delete(clientID)
	}
}
