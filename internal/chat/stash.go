package chat

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/zaederex/prattle/internal/models"
	"github.com/zaederex/prattle/internal/store"
)

// StashDeliverer replays the messages a user was sent while offline to
// the single connection that just opened.
type StashDeliverer struct {
	messages store.MessageStore
	filter   *RecipientFilter
	fanout   Fanout
	log      *zap.SugaredLogger
}

func NewStashDeliverer(ms store.MessageStore, rf *RecipientFilter, f Fanout, log *zap.SugaredLogger) *StashDeliverer {
	return &StashDeliverer{messages: ms, filter: rf, fanout: f, log: log}
}

// DeliverStashed fetches messages addressed to user since their last
// logout, drops expired self-destruct messages and filter-blocked
// bodies, and pushes the rest to connID in ascending message-id order.
// Other open sessions of the same user are not touched.
func (d *StashDeliverer) DeliverStashed(ctx context.Context, user *models.User, connID string) error {
	stashed, err := d.messages.FindUndeliveredFor(ctx, user.ID, user.LastLogout)
	if err != nil {
		return fmt.Errorf("fetch stash for %s: %w", user.Username, err)
	}

	keywords, err := d.filter.filters.FiltersFor(ctx, user.ID)
	if err != nil {
		d.log.Warnw("stash filter lookup failed", "username", user.Username, "err", err)
		keywords = nil
	}

	now := time.Now().UTC()
	kept := stashed[:0]
	for _, m := range stashed {
		if m.Expired(now) {
			continue
		}
		if Matches(keywords, m.Body) {
			continue
		}
		kept = append(kept, m)
	}
	sort.Slice(kept, func(i, j int) bool { return kept[i].ID < kept[j].ID })

	for _, m := range kept {
		if err := d.fanout.Push(connID, m); err != nil {
			// the connection died mid-replay; the rest stays stashed
			return fmt.Errorf("replay message %d: %w", m.ID, err)
		}
	}
	d.log.Infow("stashed messages delivered", "username", user.Username, "count", len(kept))
	return nil
}
