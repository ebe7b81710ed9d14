// Package postsapi is a client of the public posts service.
package postsapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/openkcm/postboard/internal/serviceerr"
)

type Post struct {
	ID    int    `json:"id"`
	Title string `json:"title"`
	Body  string `json:"body"`
}

type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: httpClient,
	}
}

// List returns the whole post collection in the order of the service.
func (c *Client) List(ctx context.Context) ([]Post, error) {
	var posts []Post
	if err := c.get(ctx, "/posts", &posts); err != nil {
		return nil, err
	}

	return posts, nil
}

// Get returns a single post. A missing post is reported as not found.
func (c *Client) Get(ctx context.Context, id int) (Post, error) {
	var post Post
	if err := c.get(ctx, "/posts/"+strconv.Itoa(id), &post); err != nil {
		return Post{}, err
	}

	return post, nil
}

func (c *Client) get(ctx context.Context, path string, into any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return errors.Join(serviceerr.ErrFetch, fmt.Errorf("creating a new HTTP request: %w", err))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Join(serviceerr.ErrFetch, fmt.Errorf("executing an http request: %w", err))
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return serviceerr.ErrNotFound
	case resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices:
		return errors.Join(serviceerr.ErrFetch, fmt.Errorf("unexpected status code %d", resp.StatusCode))
	}

	if err := json.NewDecoder(resp.Body).Decode(into); err != nil {
		return errors.Join(serviceerr.ErrFetch, fmt.Errorf("decoding response: %w", err))
	}

	return nil
}
