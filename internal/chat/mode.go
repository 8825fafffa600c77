package chat

import "github.com/zaederex/prattle/internal/models"

// DeliveryMode is the single classification a routed message falls
// into. The flag precedence is broadcast over group over direct; flags
// never combine.
type DeliveryMode int

const (
	ModeDirect DeliveryMode = iota
	ModeBroadcast
	ModeGroup
)

func (m DeliveryMode) String() string {
	switch m {
	case ModeBroadcast:
		return "broadcast"
	case ModeGroup:
		return "group"
	default:
		return "direct"
	}
}

// Classify collapses the message's delivery flags into one mode.
func Classify(m *models.Message) DeliveryMode {
	switch {
	case m.Broadcast:
		return ModeBroadcast
	case m.Group:
		return ModeGroup
	default:
		return ModeDirect
	}
}
