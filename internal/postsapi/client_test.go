package postsapi_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openkcm/postboard/internal/postsapi"
	"github.com/openkcm/postboard/internal/serviceerr"
)

func startPostsServer(t *testing.T) *postsapi.Client {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /posts", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[{"userId":1,"id":1,"title":"hello world","body":"first"},{"userId":1,"id":2,"title":"Foo Bar","body":"second"}]`))
	})
	mux.HandleFunc("GET /posts/1", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"userId":1,"id":1,"title":"hello world","body":"first"}`))
	})
	mux.HandleFunc("GET /posts/500", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	mux.HandleFunc("GET /posts/7", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{`))
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	return postsapi.NewClient(server.URL, server.Client())
}

func TestClient_List(t *testing.T) {
	client := startPostsServer(t)

	posts, err := client.List(t.Context())
	require.NoError(t, err)

	want := []postsapi.Post{
		{ID: 1, Title: "hello world", Body: "first"},
		{ID: 2, Title: "Foo Bar", Body: "second"},
	}
	if diff := cmp.Diff(want, posts); diff != "" {
		t.Errorf("List() mismatch (-want +got):\n%s", diff)
	}
}

func TestClient_Get(t *testing.T) {
	client := startPostsServer(t)

	tests := []struct {
		name     string
		id       int
		wantPost postsapi.Post
		wantErr  error
	}{
		{name: "existing post", id: 1, wantPost: postsapi.Post{ID: 1, Title: "hello world", Body: "first"}},
		{name: "missing post", id: 404, wantErr: serviceerr.ErrNotFound},
		{name: "server failure", id: 500, wantErr: serviceerr.ErrFetch},
		{name: "malformed body", id: 7, wantErr: serviceerr.ErrFetch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			post, err := client.Get(t.Context(), tt.id)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.wantPost, post)
		})
	}
}

func TestClient_List_TransportFailure(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	client := postsapi.NewClient(server.URL, server.Client())
	server.Close()

	_, err := client.List(t.Context())

	assert.ErrorIs(t, err, serviceerr.ErrFetch)
}
