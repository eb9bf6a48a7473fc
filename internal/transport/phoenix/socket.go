package phoenix

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/url"
	"strconv"
	"sync"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/jaakkos/helmpanel/internal/domain"
)

var (
	// ErrNotJoined is returned when pushing on a channel that has not joined.
	ErrNotJoined = errors.New("channel not joined")
	// ErrClosed is returned when the socket is closed or its connection dropped.
	ErrClosed = errors.New("socket closed")
)

const (
	defaultHeartbeat = 30 * time.Second
	dialTimeout      = 10 * time.Second
	readLimit        = 1 << 20
)

// Option configures a Socket.
type Option func(*Socket)

// WithHeartbeat sets the keepalive period. Zero disables heartbeats.
func WithHeartbeat(d time.Duration) Option {
	return func(s *Socket) { s.heartbeat = d }
}

// Socket is one websocket connection multiplexing any number of channels.
type Socket struct {
	conn      *websocket.Conn
	logger    *log.Logger
	heartbeat time.Duration

	ctx    context.Context
	cancel context.CancelFunc

	writeMu sync.Mutex

	mu       sync.Mutex
	ref      uint64
	pending  map[string]chan domain.Reply
	channels map[string]*Channel
	closed   bool

	doneCh chan struct{}
}

// Dial connects to endpoint with vsn=2.0.0 and params added to the query
// string, then starts the read and heartbeat loops.
func Dial(ctx context.Context, endpoint string, params map[string]string, logger *log.Logger, opts ...Option) (*Socket, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("parse endpoint: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}
	q := u.Query()
	for k, v := range params {
		q.Set(k, v)
	}
	q.Set("vsn", protocolVersion)
	u.RawQuery = q.Encode()

	dialCtx, cancelDial := context.WithTimeout(ctx, dialTimeout)
	defer cancelDial()
	conn, _, err := websocket.Dial(dialCtx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("dial websocket: %w", err)
	}
	conn.SetReadLimit(readLimit)

	sctx, cancel := context.WithCancel(context.Background())
	s := &Socket{
		conn:      conn,
		logger:    logger,
		heartbeat: defaultHeartbeat,
		ctx:       sctx,
		cancel:    cancel,
		pending:   make(map[string]chan domain.Reply),
		channels:  make(map[string]*Channel),
		doneCh:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	go s.readLoop()
	if s.heartbeat > 0 {
		go s.heartbeatLoop()
	}
	return s, nil
}

// Channel returns the channel for topic, creating it on first use.
// The channel must still be joined before pushing.
func (s *Socket) Channel(topic string, params map[string]any) *Channel {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ch, ok := s.channels[topic]; ok {
		return ch
	}
	ch := newChannel(s, topic, params)
	s.channels[topic] = ch
	return ch
}

// Done is closed once the connection has shut down.
func (s *Socket) Done() <-chan struct{} {
	return s.doneCh
}

// Close shuts the connection and fails every pending push.
func (s *Socket) Close() error {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return nil
	}
	err := s.conn.Close(websocket.StatusNormalClosure, "closing")
	s.shutdown()
	if err != nil {
		return fmt.Errorf("close websocket: %w", err)
	}
	return nil
}

func (s *Socket) shutdown() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	pending := s.pending
	s.pending = make(map[string]chan domain.Reply)
	channels := make([]*Channel, 0, len(s.channels))
	for _, ch := range s.channels {
		channels = append(channels, ch)
	}
	s.mu.Unlock()

	for _, ch := range channels {
		ch.markLeft()
	}
	for _, reply := range pending {
		reply <- domain.ErrorReply(ErrClosed)
	}
	s.cancel()
	close(s.doneCh)
}

func (s *Socket) nextRef() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ref++
	return strconv.FormatUint(s.ref, 10)
}

// push writes msg and waits for its phx_reply, the timeout, or shutdown.
func (s *Socket) push(ctx context.Context, msg Message, timeout time.Duration) domain.Reply {
	wait := make(chan domain.Reply, 1)
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return domain.ErrorReply(ErrClosed)
	}
	s.pending[msg.Ref] = wait
	s.mu.Unlock()

	if err := s.write(ctx, msg); err != nil {
		s.forget(msg.Ref)
		return domain.ErrorReply(err)
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case reply := <-wait:
		return reply
	case <-timer.C:
		s.forget(msg.Ref)
		return domain.TimeoutReply()
	case <-ctx.Done():
		s.forget(msg.Ref)
		return domain.TimeoutReply()
	}
}

func (s *Socket) forget(ref string) {
	s.mu.Lock()
	delete(s.pending, ref)
	s.mu.Unlock()
}

func (s *Socket) write(ctx context.Context, msg Message) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := wsjson.Write(ctx, s.conn, msg); err != nil {
		return fmt.Errorf("write %s %s: %w", msg.Topic, msg.Event, err)
	}
	return nil
}

func (s *Socket) readLoop() {
	defer s.shutdown()
	for {
		_, data, err := s.conn.Read(s.ctx)
		if err != nil {
			if s.ctx.Err() == nil && websocket.CloseStatus(err) != websocket.StatusNormalClosure {
				s.logger.Printf("Socket: read: %v", err)
			}
			return
		}
		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			s.logger.Printf("Socket: skipping malformed frame: %v", err)
			continue
		}
		s.route(msg)
	}
}

func (s *Socket) route(msg Message) {
	if msg.Event == EventReply && msg.Ref != "" {
		s.mu.Lock()
		wait, ok := s.pending[msg.Ref]
		delete(s.pending, msg.Ref)
		s.mu.Unlock()
		if !ok {
			return
		}
		var body replyPayload
		if err := json.Unmarshal(msg.Payload, &body); err != nil || body.Status == "" {
			wait <- domain.ErrorReply(fmt.Errorf("malformed reply for ref %s", msg.Ref))
			return
		}
		wait <- domain.Reply{Tag: body.Status, Payload: body.Response}
		return
	}

	s.mu.Lock()
	ch, ok := s.channels[msg.Topic]
	s.mu.Unlock()
	if !ok {
		return
	}
	ch.dispatch(msg)
}

func (s *Socket) heartbeatLoop() {
	ticker := time.NewTicker(s.heartbeat)
	defer ticker.Stop()
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			reply := s.push(s.ctx, Message{Ref: s.nextRef(), Topic: TopicPhoenix, Event: EventHeartbeat}, s.heartbeat)
			switch reply.Tag {
			case domain.TagOK:
			case domain.TagTimeout:
				s.logger.Printf("Socket: heartbeat timed out, closing")
				s.Close()
				return
			default:
				if s.ctx.Err() != nil {
					return
				}
				s.logger.Printf("Socket: heartbeat %s: %v", reply.Tag, reply.Err)
			}
		}
	}
}
