package chat

import (
	"context"
	"strings"

	"github.com/zaederex/prattle/internal/store"
)

// RecipientFilter decides per recipient whether a message body trips the
// recipient's personal block-list. Matching is case-insensitive
// substring; the filter has no side effects and may be evaluated
// concurrently for many targets of the same message.
type RecipientFilter struct {
	filters store.FilterStore
}

func NewRecipientFilter(fs store.FilterStore) *RecipientFilter {
	return &RecipientFilter{filters: fs}
}

func (f *RecipientFilter) Blocked(ctx context.Context, userID int, body string) (bool, error) {
	keywords, err := f.filters.FiltersFor(ctx, userID)
	if err != nil {
		return false, err
	}
	return Matches(keywords, body), nil
}

// Matches reports whether body contains any of the keywords, ignoring
// case.
func Matches(keywords []string, body string) bool {
	lower := strings.ToLower(body)
	for _, kw := range keywords {
		if kw == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}
