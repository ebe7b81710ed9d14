package posts

import (
	"slices"
	"strings"

	"github.com/openkcm/postboard/internal/postsapi"
)

// Filter returns the posts whose title contains the trimmed term, ignoring
// case, in their original order. An empty term keeps every post.
func Filter(all []postsapi.Post, term string) []postsapi.Post {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return slices.Clone(all)
	}

	matches := make([]postsapi.Post, 0, len(all))
	for _, p := range all {
		if strings.Contains(strings.ToLower(p.Title), term) {
			matches = append(matches, p)
		}
	}

	return matches
}
