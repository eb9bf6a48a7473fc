package app

import (
	"time"

	"github.com/jaakkos/helmpanel/internal/domain"
)

// Policy is the configuration port used by the panel.
// Implemented by internal/policy.Policy.
type Policy interface {
	Subsystem() string
	ClickEvent() string
	ReplyTag() string
	CommandTimeout() time.Duration
	LiveUpdateInterval() time.Duration
	DebugBroadcasts() bool
	Layout() domain.Layout
}
