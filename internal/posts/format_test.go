package posts_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/openkcm/postboard/internal/posts"
)

func TestCapitalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "hello", want: "Hello"},
		{in: "", want: ""},
		{in: "Hello", want: "Hello"},
		{in: "hello WORLD", want: "Hello WORLD"},
		{in: "sunt aut facere repellat", want: "Sunt aut facere repellat"},
		{in: "égalité", want: "Égalité"},
		{in: "1 thing", want: "1 thing"},
		{in: " leading space", want: " leading space"},
		{in: "\xffbroken", want: "\xffbroken"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := posts.Capitalize(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, posts.Capitalize(got), "idempotent")
		})
	}
}
