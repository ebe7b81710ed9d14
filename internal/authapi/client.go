// Package authapi is a client of the identity service that issues and
// refreshes the session tokens.
package authapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	slogctx "github.com/veqryn/slog-context"

	"github.com/openkcm/postboard/internal/serviceerr"
)

var errMissingTokens = errors.New("response carries no tokens")

// Tokens is a successful login or refresh response. UserData holds the
// complete response body.
type Tokens struct {
	AccessToken  string
	RefreshToken string
	UserData     json.RawMessage
}

type tokenResponse struct {
	Token        string `json:"token"`
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type errorResponse struct {
	Message string `json:"message"`
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

// Login exchanges the credentials for a pair of tokens.
func (c *Client) Login(ctx context.Context, username, password string) (Tokens, error) {
	body := map[string]string{
		"username": username,
		"password": password,
	}

	return c.postForTokens(ctx, "/auth/login", body)
}

// Refresh mints a new pair of tokens from a refresh token.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (Tokens, error) {
	body := map[string]string{
		"refreshToken": refreshToken,
	}

	return c.postForTokens(ctx, "/auth/refresh", body)
}

// Me probes the identity service with the access token. A rejected token is
// reported as an auth error, a failed exchange as a network error.
func (c *Client) Me(ctx context.Context, accessToken string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/auth/me", nil)
	if err != nil {
		return errors.Join(serviceerr.ErrNetwork, fmt.Errorf("creating a new HTTP request: %w", err))
	}

	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Join(serviceerr.ErrNetwork, fmt.Errorf("executing an http request: %w", err))
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Join(serviceerr.ErrNetwork, fmt.Errorf("reading response body: %w", err))
	}

	if !isSuccess(resp.StatusCode) {
		slogctx.Debug(ctx, "Access token rejected", "status", resp.StatusCode)
		return authError(data)
	}

	return nil
}

func (c *Client) postForTokens(ctx context.Context, path string, body any) (Tokens, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return Tokens{}, fmt.Errorf("encoding request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return Tokens{}, errors.Join(serviceerr.ErrNetwork, fmt.Errorf("creating a new HTTP request: %w", err))
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Tokens{}, errors.Join(serviceerr.ErrNetwork, fmt.Errorf("executing an http request: %w", err))
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return Tokens{}, errors.Join(serviceerr.ErrNetwork, fmt.Errorf("reading response body: %w", err))
	}

	if !isSuccess(resp.StatusCode) {
		slogctx.Debug(ctx, "Identity service rejected the request", "path", path, "status", resp.StatusCode)
		return Tokens{}, authError(data)
	}

	tokens, err := decodeTokens(data)
	if err != nil {
		return Tokens{}, errors.Join(serviceerr.ErrNetwork, err)
	}

	return tokens, nil
}

func decodeTokens(data []byte) (Tokens, error) {
	var tr tokenResponse
	if err := json.Unmarshal(data, &tr); err != nil {
		return Tokens{}, fmt.Errorf("decoding token response: %w", err)
	}

	accessToken := tr.Token
	if accessToken == "" {
		accessToken = tr.AccessToken
	}

	if accessToken == "" || tr.RefreshToken == "" {
		return Tokens{}, errMissingTokens
	}

	return Tokens{
		AccessToken:  accessToken,
		RefreshToken: tr.RefreshToken,
		UserData:     json.RawMessage(data),
	}, nil
}

// authError prefers the message of the identity service over the generic
// description.
func authError(data []byte) error {
	var er errorResponse
	if err := json.Unmarshal(data, &er); err != nil || er.Message == "" {
		return serviceerr.ErrAuth
	}

	return serviceerr.New(serviceerr.CodeAuth, er.Message)
}

func isSuccess(status int) bool {
	return status >= http.StatusOK && status < http.StatusMultipleChoices
}
