package chat

import (
	"context"
	"fmt"
	"regexp"

	"github.com/zaederex/prattle/internal/models"
	"github.com/zaederex/prattle/internal/store"
)

var hashtagPattern = regexp.MustCompile(`#(\w+)`)

// HashtagExtractor pulls #tag tokens out of message bodies and resolves
// them against the tag store. Tokens keep their case; "#Launch" and
// "#launch" resolve to different tags.
type HashtagExtractor struct {
	tags store.TagStore
}

func NewHashtagExtractor(ts store.TagStore) *HashtagExtractor {
	return &HashtagExtractor{tags: ts}
}

// Extract resolves every distinct tag token in body, creating records on
// first use and linking them to messageID. A token repeated in the same
// body yields a single attachment.
func (h *HashtagExtractor) Extract(ctx context.Context, body string, messageID int) ([]models.Hashtag, error) {
	var out []models.Hashtag
	seen := make(map[string]struct{})
	for _, match := range hashtagPattern.FindAllStringSubmatch(body, -1) {
		token := match[1]
		if _, dup := seen[token]; dup {
			continue
		}
		seen[token] = struct{}{}
		tag, err := h.tags.GetOrCreate(ctx, token, messageID)
		if err != nil {
			return nil, fmt.Errorf("resolve hashtag %q: %w", token, err)
		}
		out = append(out, *tag)
	}
	return out, nil
}
