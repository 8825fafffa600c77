package chat

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/zaederex/prattle/internal/models"
	"github.com/zaederex/prattle/internal/store"
)

// RecipientNotFoundBody replaces the original body when a direct message
// targets an unknown user; the substitution is echoed to the sender.
const RecipientNotFoundBody = "The target recipient is not a registered user!"

// Outcome is the per-target result of one routing pass.
type Outcome int

const (
	OutcomeDeliveredLive Outcome = iota
	OutcomeStoredOnly
	OutcomeSuppressed
	OutcomeTargetNotFound
)

func (o Outcome) String() string {
	switch o {
	case OutcomeDeliveredLive:
		return "delivered-live"
	case OutcomeStoredOnly:
		return "stored-only"
	case OutcomeSuppressed:
		return "suppressed-by-filter"
	default:
		return "target-not-found"
	}
}

// TargetResult records what happened for one resolved target user.
type TargetResult struct {
	Username    string  `json:"username"`
	Outcome     Outcome `json:"outcome"`
	Connections int     `json:"connections"`
}

// DeliveryReport summarizes one routed message. It feeds logs and the
// event bus; it is never sent back over the wire.
type DeliveryReport struct {
	MessageID int            `json:"message_id"`
	Mode      string         `json:"mode"`
	Targets   []TargetResult `json:"targets"`
}

// Uploader offloads inline attachment payloads to blob storage.
type Uploader interface {
	Upload(ctx context.Context, key, contentType string, data []byte) (string, error)
}

// Publisher receives the delivery report of every routed message.
type Publisher interface {
	MessageRouted(ctx context.Context, report *DeliveryReport)
}

// Forwarder replicates a message for a user whose live sessions may be
// held by a sibling instance. A Fanout that also implements Forwarder
// gets handed every target with no local connections.
type Forwarder interface {
	Forward(ctx context.Context, username string, m *models.Message) error
}

// Router persists an inbound message, attaches its hashtags, resolves
// the recipient set for its delivery mode, applies each recipient's
// filter and pushes to every live connection. Uploader and Publisher are
// optional; a nil value disables that step.
type Router struct {
	fanout    Fanout
	messages  store.MessageStore
	directory store.Directory
	filter    *RecipientFilter
	hashtags  *HashtagExtractor
	groups    *GroupResolver
	blobs     Uploader
	events    Publisher
	log       *zap.SugaredLogger
}

func NewRouter(f Fanout, ms store.MessageStore, d store.Directory, rf *RecipientFilter,
	he *HashtagExtractor, gr *GroupResolver, up Uploader, pub Publisher, log *zap.SugaredLogger) *Router {
	return &Router{
		fanout:    f,
		messages:  ms,
		directory: d,
		filter:    rf,
		hashtags:  he,
		groups:    gr,
		blobs:     up,
		events:    pub,
		log:       log,
	}
}

// Route runs the full pipeline for one inbound message. A duplicate id
// fails the whole call with store.ErrDuplicateMessage; everything past
// the save is per-target and never aborts the remaining targets.
func (r *Router) Route(ctx context.Context, msg *models.Message) (*DeliveryReport, error) {
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}
	r.offloadAttachments(ctx, msg)

	if err := r.messages.Save(ctx, msg); err != nil {
		if errors.Is(err, store.ErrDuplicateMessage) {
			return nil, fmt.Errorf("save message %d: %w", msg.ID, err)
		}
		return nil, fmt.Errorf("save message: %w", err)
	}

	tags, err := r.hashtags.Extract(ctx, msg.Body, msg.ID)
	if err != nil {
		// tag resolution failing must not block delivery
		r.log.Warnw("hashtag extraction failed", "message_id", msg.ID, "err", err)
	} else {
		msg.Hashtags = tags
	}

	mode := Classify(msg)
	report := &DeliveryReport{MessageID: msg.ID, Mode: mode.String()}

	switch mode {
	case ModeBroadcast:
		r.routeBroadcast(ctx, msg, report)
	case ModeGroup:
		r.routeGroup(ctx, msg, report)
	default:
		r.routeDirect(ctx, msg, report)
	}

	if r.events != nil {
		r.events.MessageRouted(ctx, report)
	}
	r.log.Infow("message routed",
		"message_id", msg.ID, "mode", report.Mode, "targets", len(report.Targets))
	return report, nil
}

func (r *Router) routeBroadcast(ctx context.Context, msg *models.Message, report *DeliveryReport) {
	for _, username := range r.fanout.ActiveUsernames() {
		user, err := r.directory.FindUserByName(ctx, username)
		if err != nil {
			r.log.Warnw("broadcast target lookup failed", "username", username, "err", err)
			report.Targets = append(report.Targets,
				TargetResult{Username: username, Outcome: OutcomeTargetNotFound})
			continue
		}
		if r.blocked(ctx, user.ID, msg.Body) {
			report.Targets = append(report.Targets,
				TargetResult{Username: username, Outcome: OutcomeSuppressed})
			continue
		}
		n := r.pushToUser(username, msg)
		report.Targets = append(report.Targets,
			TargetResult{Username: username, Outcome: OutcomeDeliveredLive, Connections: n})
	}
}

func (r *Router) routeGroup(ctx context.Context, msg *models.Message, report *DeliveryReport) {
	members, err := r.groups.MembersOf(ctx, msg.TargetID, RoleFilter{})
	if err != nil {
		// an unresolvable group produces zero deliveries and is not
		// surfaced to the sender
		r.log.Warnw("group resolution failed", "group_id", msg.TargetID, "err", err)
		return
	}
	for _, member := range members {
		if r.blocked(ctx, member.ID, msg.Body) {
			report.Targets = append(report.Targets,
				TargetResult{Username: member.Username, Outcome: OutcomeSuppressed})
			continue
		}
		report.Targets = append(report.Targets, r.deliver(ctx, member.Username, msg))
	}
}

func (r *Router) routeDirect(ctx context.Context, msg *models.Message, report *DeliveryReport) {
	target, err := r.directory.FindUserByID(ctx, msg.TargetID)
	if err != nil {
		// the sender sees the substituted body instead of the original
		r.log.Warnw("direct target does not exist", "target_id", msg.TargetID)
		substitute := *msg
		substitute.Body = RecipientNotFoundBody
		r.echoToSender(ctx, msg, &substitute)
		report.Targets = append(report.Targets,
			TargetResult{Outcome: OutcomeTargetNotFound})
		return
	}
	// the sender's own connections always see the resolved message,
	// whatever the recipient's filter decides
	r.echoToSender(ctx, msg, msg)
	if r.blocked(ctx, target.ID, msg.Body) {
		report.Targets = append(report.Targets,
			TargetResult{Username: target.Username, Outcome: OutcomeSuppressed})
		return
	}
	report.Targets = append(report.Targets, r.deliver(ctx, target.Username, msg))
}

// deliver pushes to every live connection of username. With none open
// locally the message is handed to the Forwarder, if the fanout carries
// one, and stays stored for stash replay on reconnect either way.
func (r *Router) deliver(ctx context.Context, username string, msg *models.Message) TargetResult {
	n := r.pushToUser(username, msg)
	if n == 0 {
		if fw, ok := r.fanout.(Forwarder); ok {
			if err := fw.Forward(ctx, username, msg); err != nil {
				r.log.Warnw("forward failed", "username", username, "err", err)
			}
		}
		return TargetResult{Username: username, Outcome: OutcomeStoredOnly}
	}
	return TargetResult{Username: username, Outcome: OutcomeDeliveredLive, Connections: n}
}

func (r *Router) pushToUser(username string, msg *models.Message) int {
	n := 0
	for _, connID := range r.fanout.ConnectionsFor(username) {
		if err := r.fanout.Push(connID, msg); err != nil {
			// a dead peer is a per-target failure only
			r.log.Warnw("push failed", "conn_id", connID, "username", username, "err", err)
			continue
		}
		n++
	}
	return n
}

func (r *Router) echoToSender(ctx context.Context, original, payload *models.Message) {
	sender, err := r.directory.FindUserByID(ctx, original.SenderID)
	if err != nil {
		r.log.Warnw("echo sender lookup failed", "sender_id", original.SenderID, "err", err)
		return
	}
	r.pushToUser(sender.Username, payload)
}

// blocked fails open: an unreadable filter list never suppresses
// delivery.
func (r *Router) blocked(ctx context.Context, userID int, body string) bool {
	hit, err := r.filter.Blocked(ctx, userID, body)
	if err != nil {
		r.log.Warnw("filter lookup failed", "user_id", userID, "err", err)
		return false
	}
	return hit
}

func (r *Router) offloadAttachments(ctx context.Context, msg *models.Message) {
	if r.blobs == nil {
		return
	}
	for i := range msg.Attachments {
		att := &msg.Attachments[i]
		if len(att.Data) == 0 {
			continue
		}
		key := fmt.Sprintf("attachments/%s-%s", uuid.New().String(), att.FileName)
		url, err := r.blobs.Upload(ctx, key, att.ContentType, att.Data)
		if err != nil {
			r.log.Warnw("attachment upload failed", "file", att.FileName, "err", err)
			continue
		}
		att.WebURL = url
		att.Data = nil
	}
}
