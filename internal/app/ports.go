package app

import (
	"context"
	"time"

	"github.com/jaakkos/helmpanel/internal/domain"
)

// Channel is the topic-scoped transport a subsystem view pushes on.
// Implemented by internal/transport/phoenix.Channel. Push must yield exactly
// one reply: the server's tag, error or timeout.
type Channel interface {
	Push(ctx context.Context, event string, payload any, timeout time.Duration) domain.Reply
}

// Renderer applies render directives to the presentation layer.
// Implemented by internal/render.Board and render.Terminal.
type Renderer interface {
	Apply(directives []domain.Directive)
	// Reset clears everything rendered so far.
	Reset()
}
