package app

import (
	"encoding/json"
	"log"

	"github.com/jaakkos/helmpanel/internal/domain"
	"github.com/jaakkos/helmpanel/internal/snapshot"
)

// Router classifies inbound messages. Command replies carrying a snapshot
// and broadcast snapshots both come out as a decoded snapshot; everything
// else is logged and dropped.
type Router struct {
	replyTag string
	debug    bool
	logger   *log.Logger
}

// NewRouter creates a router accepting replyTag as the snapshot-bearing
// reply status. debug enables broadcast logging.
func NewRouter(replyTag string, debug bool, logger *log.Logger) *Router {
	return &Router{replyTag: replyTag, debug: debug, logger: logger}
}

// Reply handles the outcome of pushing event. ok is false when the reply
// carries nothing to project.
func (r *Router) Reply(event string, reply domain.Reply) (domain.Snapshot, bool) {
	switch reply.Tag {
	case r.replyTag:
	case domain.TagOK:
		// Some handlers answer with a bare ok; only a status section is a snapshot.
		if !snapshot.HasStatus(reply.Payload) {
			return domain.Snapshot{}, false
		}
	case domain.TagNop:
		return domain.Snapshot{}, false
	case domain.TagTimeout:
		r.logger.Printf("Dispatcher: %s timeout: no reply", event)
		return domain.Snapshot{}, false
	case domain.TagError:
		r.logger.Printf("Dispatcher: %s error: %s", event, reason(reply))
		return domain.Snapshot{}, false
	default:
		r.logger.Printf("Dispatcher: %s %s: unexpected reply tag", event, reply.Tag)
		return domain.Snapshot{}, false
	}

	snap, err := snapshot.Decode(reply.Payload)
	if err != nil {
		r.logger.Printf("Router: %s reply: %v", event, err)
		return domain.Snapshot{}, false
	}
	r.logger.Printf("Router: %s reply %s: %d workers", event, reply.Tag, len(snap.Workers))
	return snap, true
}

// Broadcast handles an unsolicited push. Payloads without a status
// section are not snapshots and are dropped.
func (r *Router) Broadcast(payload json.RawMessage) (domain.Snapshot, bool) {
	if !snapshot.HasStatus(payload) {
		if r.debug {
			r.logger.Printf("Router: broadcast without status: %s", payload)
		}
		return domain.Snapshot{}, false
	}
	snap, err := snapshot.Decode(payload)
	if err != nil {
		r.logger.Printf("Router: broadcast: %v", err)
		return domain.Snapshot{}, false
	}
	if r.debug {
		r.logger.Printf("Router: broadcast: %d workers (liveUpdate=%v)", len(snap.Workers), snap.Broadcast)
	}
	return snap, true
}

func reason(reply domain.Reply) string {
	if reply.Err != nil {
		return reply.Err.Error()
	}
	if len(reply.Payload) > 0 {
		return string(reply.Payload)
	}
	return "unknown"
}
