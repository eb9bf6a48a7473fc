package phoenix

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/jaakkos/helmpanel/internal/domain"
)

// Handler receives the payload of a server push on a channel.
type Handler func(payload json.RawMessage)

// Channel is one topic on a Socket.
type Channel struct {
	socket *Socket
	topic  string
	params map[string]any

	mu       sync.Mutex
	joinRef  string
	joined   bool
	handlers map[string][]Handler
}

func newChannel(s *Socket, topic string, params map[string]any) *Channel {
	if params == nil {
		params = map[string]any{}
	}
	return &Channel{
		socket:   s,
		topic:    topic,
		params:   params,
		handlers: make(map[string][]Handler),
	}
}

// Topic returns the channel's topic.
func (c *Channel) Topic() string {
	return c.topic
}

// Joined reports whether the last join succeeded and the channel is open.
func (c *Channel) Joined() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.joined
}

// Join sends phx_join with the channel params. An ok reply marks the
// channel joined; any other reply is returned as is.
func (c *Channel) Join(ctx context.Context, timeout time.Duration) domain.Reply {
	payload, err := json.Marshal(c.params)
	if err != nil {
		return domain.ErrorReply(fmt.Errorf("encode join params: %w", err))
	}
	ref := c.socket.nextRef()
	c.mu.Lock()
	c.joinRef = ref
	c.mu.Unlock()

	reply := c.socket.push(ctx, Message{JoinRef: ref, Ref: ref, Topic: c.topic, Event: EventJoin, Payload: payload}, timeout)
	if reply.Tag == domain.TagOK {
		c.mu.Lock()
		c.joined = true
		c.mu.Unlock()
	}
	return reply
}

// Push sends event with payload and waits for exactly one outcome.
func (c *Channel) Push(ctx context.Context, event string, payload any, timeout time.Duration) domain.Reply {
	c.mu.Lock()
	joined, joinRef := c.joined, c.joinRef
	c.mu.Unlock()
	if !joined {
		return domain.ErrorReply(fmt.Errorf("push %s on %s: %w", event, c.topic, ErrNotJoined))
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return domain.ErrorReply(fmt.Errorf("encode %s payload: %w", event, err))
	}
	return c.socket.push(ctx, Message{JoinRef: joinRef, Ref: c.socket.nextRef(), Topic: c.topic, Event: event, Payload: body}, timeout)
}

// On registers a handler for server-initiated events on this topic.
func (c *Channel) On(event string, h Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[event] = append(c.handlers[event], h)
}

// Leave sends phx_leave. The channel is unjoined whatever the reply.
func (c *Channel) Leave(ctx context.Context, timeout time.Duration) domain.Reply {
	c.mu.Lock()
	joinRef := c.joinRef
	c.mu.Unlock()
	reply := c.socket.push(ctx, Message{JoinRef: joinRef, Ref: c.socket.nextRef(), Topic: c.topic, Event: EventLeave}, timeout)
	c.markLeft()
	return reply
}

func (c *Channel) markLeft() {
	c.mu.Lock()
	c.joined = false
	c.mu.Unlock()
}

func (c *Channel) dispatch(msg Message) {
	switch msg.Event {
	case EventClose, EventError:
		c.mu.Lock()
		stale := msg.JoinRef != "" && msg.JoinRef != c.joinRef
		if !stale {
			c.joined = false
		}
		c.mu.Unlock()
		if !stale {
			c.socket.logger.Printf("Channel %s: %s", c.topic, msg.Event)
		}
		return
	}

	c.mu.Lock()
	handlers := make([]Handler, len(c.handlers[msg.Event]))
	copy(handlers, c.handlers[msg.Event])
	c.mu.Unlock()

	for _, h := range handlers {
		h(msg.Payload)
	}
}
