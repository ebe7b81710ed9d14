package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	slogctx "github.com/veqryn/slog-context"

	"github.com/openkcm/postboard/internal/middleware/clientid"
	"github.com/openkcm/postboard/internal/page"
	"github.com/openkcm/postboard/internal/serviceerr"
)

const (
	csrfHeader   = "X-CSRF-Token"
	maxBodyBytes = 1 << 20
)

// handlerFunc handles one request and returns what to write, or an error
// that is written as an error model.
type handlerFunc func(ctx context.Context, r *http.Request) (response, error)

type response struct {
	status   int
	location string
	body     any
}

type errorModel struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

// pageModel is the body of every page response. The CSRF token must be sent
// back in the X-CSRF-Token header of state changing requests.
type pageModel struct {
	Surface   page.Surface `json:"surface"`
	CSRFToken string       `json:"csrfToken"`
	View      any          `json:"view"`
}

func redirect(s page.Surface) response {
	return response{status: http.StatusSeeOther, location: s.Path()}
}

// route registers the handler under the pattern. POST handlers require a
// valid CSRF token.
func (a *App) route(mux *http.ServeMux, pattern, operation string, h handlerFunc) {
	if strings.HasPrefix(pattern, http.MethodPost+" ") {
		h = a.requireCSRF(h)
	}

	mux.Handle(pattern, dispatch(a.trace(operation, h)))
}

func dispatch(h handlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		resp, err := h(ctx, r)
		if err != nil {
			body, status := toErrorModel(err)
			if status >= http.StatusInternalServerError {
				slogctx.Error(ctx, "Request failed", "error", err)
			} else {
				slogctx.Debug(ctx, "Request rejected", "error", err)
			}

			writeJSON(ctx, w, status, body)

			return
		}

		if resp.location != "" {
			w.Header().Set("Location", resp.location)
			w.WriteHeader(resp.status)

			return
		}

		status := resp.status
		if status == 0 {
			status = http.StatusOK
		}

		writeJSON(ctx, w, status, resp.body)
	})
}

func (a *App) requireCSRF(next handlerFunc) handlerFunc {
	return func(ctx context.Context, r *http.Request) (response, error) {
		id, err := clientid.FromContext(ctx)
		if err != nil {
			return response{}, err
		}

		if !a.csrf.Valid(r.Header.Get(csrfHeader), id) {
			return response{}, serviceerr.ErrInvalidCSRFToken
		}

		return next(ctx, r)
	}
}

func (a *App) pageResponse(clientID string, surface page.Surface, view any, status int) response {
	return response{
		status: status,
		body: pageModel{
			Surface:   surface,
			CSRFToken: a.csrf.Token(clientID),
			View:      view,
		},
	}
}

func toErrorModel(err error) (errorModel, int) {
	var serviceErr *serviceerr.Error
	if !errors.As(err, &serviceErr) {
		serviceErr = serviceerr.ErrUnknown
	}

	return errorModel{
		Error:            string(serviceErr.Err),
		ErrorDescription: serviceErr.Description,
	}, serviceErr.HTTPStatus()
}

// statusOf is the HTTP status of a page that failed with err.
func statusOf(err error) int {
	_, status := toErrorModel(err)
	return status
}

func writeJSON(ctx context.Context, w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		slogctx.Error(ctx, "Failed to write the response", "error", err)
	}
}

// decodeRequest reads a JSON body into v and validates it.
func (a *App) decodeRequest(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return serviceerr.New(serviceerr.CodeInvalidRequest, "malformed request body")
	}

	if err := a.validate.Struct(v); err != nil {
		return serviceerr.New(serviceerr.CodeInvalidRequest, describeValidation(err))
	}

	return nil
}

func describeValidation(err error) string {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return err.Error()
	}

	messages := make([]string, 0, len(validationErrors))
	for _, e := range validationErrors {
		switch e.Tag() {
		case "required":
			messages = append(messages, e.Field()+" is required")
		case "oneof":
			messages = append(messages, fmt.Sprintf("%s must be one of: %s", e.Field(), e.Param()))
		default:
			messages = append(messages, fmt.Sprintf("%s failed validation: %s", e.Field(), e.Tag()))
		}
	}

	return strings.Join(messages, "; ")
}
