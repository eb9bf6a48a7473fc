package domain

import "encoding/json"

// Reply tags every push resolves to besides the server-chosen success tag.
const (
	TagOK      = "ok"
	TagNop     = "nop"
	TagError   = "error"
	TagTimeout = "timeout"
)

// Reply is the single outcome of a push: the server's reply status with
// its response payload, an error, or a timeout.
type Reply struct {
	Tag     string
	Payload json.RawMessage
	Err     error
}

// ErrorReply builds an error-tagged reply.
func ErrorReply(err error) Reply {
	return Reply{Tag: TagError, Err: err}
}

// TimeoutReply builds a timeout-tagged reply.
func TimeoutReply() Reply {
	return Reply{Tag: TagTimeout}
}
