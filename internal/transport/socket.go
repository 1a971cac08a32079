package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"

	"github.com/tomikjetu/vpwa26/internal/logger"
	"github.com/tomikjetu/vpwa26/internal/protocol"
)

// frame is the wire envelope: one named event with a JSON payload.
type frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// SocketOptions tune the reconnect policy.
type SocketOptions struct {
	ReconnectInitial time.Duration
	ReconnectMax     time.Duration
	// Reconnect disables automatic reconnection when false.
	Reconnect bool
}

// DefaultSocketOptions mirror the usual client defaults: retry from one
// second, backing off to thirty.
func DefaultSocketOptions() SocketOptions {
	return SocketOptions{
		ReconnectInitial: time.Second,
		ReconnectMax:     30 * time.Second,
		Reconnect:        true,
	}
}

// Socket is the production Transport over a websocket. A single read loop
// dispatches inbound frames, so handlers observe events in delivery order.
type Socket struct {
	url  string
	log  *logger.Logger
	opts SocketOptions

	mu        sync.RWMutex
	conn      *websocket.Conn
	handlers  map[string]Handler
	lifecycle Lifecycle
	token     string
	connID    string
	closed    bool

	writeMu sync.Mutex
}

// NewSocket builds a disconnected socket for the given server URL.
func NewSocket(url string, log *logger.Logger, opts SocketOptions) *Socket {
	return &Socket{
		url:      url,
		log:      log,
		opts:     opts,
		handlers: make(map[string]Handler),
	}
}

// SetLifecycle installs the connection state callbacks. Must be called
// before Connect.
func (s *Socket) SetLifecycle(l Lifecycle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lifecycle = l
}

// On registers the handler for a named event, replacing any previous one.
func (s *Socket) On(event string, h Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[event] = h
}

// Off removes the handler for a named event.
func (s *Socket) Off(event string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.handlers, event)
}

// Connected reports whether a connection is currently established.
func (s *Socket) Connected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.conn != nil
}

// Connect dials the server presenting the bearer token, then starts the
// read loop. An authentication rejection is terminal; other failures kick
// off the reconnect policy after the error callback fires.
func (s *Socket) Connect(ctx context.Context, token string) error {
	s.mu.Lock()
	s.token = token
	s.closed = false
	lifecycle := s.lifecycle
	s.mu.Unlock()

	conn, err := s.dial(ctx, token)
	if err != nil {
		if lifecycle.OnConnectError != nil {
			lifecycle.OnConnectError(err)
		}
		if s.opts.Reconnect && !protocol.IsAuthError(err.Error()) {
			go s.reconnectLoop()
		}
		return err
	}

	s.attach(conn, lifecycle)
	return nil
}

func (s *Socket) dial(ctx context.Context, token string) (*websocket.Conn, error) {
	tracer := otel.Tracer("vpwa26/transport")
	ctx, span := tracer.Start(ctx, "socket.handshake")
	defer span.End()

	header := http.Header{}
	if token != "" {
		header.Set("Authorization", "Bearer "+token)
	}

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, s.url, header)
	if err != nil {
		if resp != nil {
			defer resp.Body.Close()
			// The handshake rejection body carries the server's error
			// message, including authentication failure signatures.
			if body, readErr := io.ReadAll(io.LimitReader(resp.Body, 512)); readErr == nil && len(body) > 0 {
				return nil, fmt.Errorf("%s", body)
			}
			return nil, fmt.Errorf("handshake rejected: %s", resp.Status)
		}
		return nil, fmt.Errorf("dial %s: %w", s.url, err)
	}
	return conn, nil
}

func (s *Socket) attach(conn *websocket.Conn, lifecycle Lifecycle) {
	s.mu.Lock()
	s.conn = conn
	s.connID = newConnID()
	connID := s.connID
	s.mu.Unlock()

	s.log.Debugw("socket connected", "conn_id", connID, "url", s.url)
	if lifecycle.OnConnect != nil {
		lifecycle.OnConnect()
	}

	go s.readLoop(conn, connID)
}

func (s *Socket) readLoop(conn *websocket.Conn, connID string) {
	var reason string
	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			reason = err.Error()
			break
		}
		var f frame
		if err := json.Unmarshal(payload, &f); err != nil {
			s.log.Warnw("dropping malformed frame", "conn_id", connID, "error", err)
			continue
		}
		s.dispatch(f)
	}

	s.mu.Lock()
	if s.conn == conn {
		s.conn = nil
	}
	closed := s.closed
	lifecycle := s.lifecycle
	s.mu.Unlock()
	_ = conn.Close()

	if closed {
		return
	}
	s.log.Debugw("socket disconnected", "conn_id", connID, "reason", reason)
	if lifecycle.OnDisconnect != nil {
		lifecycle.OnDisconnect(reason)
	}
	if s.opts.Reconnect {
		s.reconnectLoop()
	}
}

func (s *Socket) dispatch(f frame) {
	s.mu.RLock()
	h := s.handlers[f.Event]
	s.mu.RUnlock()
	if h == nil {
		s.log.Debugw("no handler for event", "event", f.Event)
		return
	}
	h(f.Data)
}

func (s *Socket) reconnectLoop() {
	delay := s.opts.ReconnectInitial
	for {
		time.Sleep(delay)

		s.mu.RLock()
		closed := s.closed
		token := s.token
		lifecycle := s.lifecycle
		s.mu.RUnlock()
		if closed {
			return
		}

		conn, err := s.dial(context.Background(), token)
		if err == nil {
			s.attach(conn, lifecycle)
			return
		}
		if lifecycle.OnConnectError != nil {
			lifecycle.OnConnectError(err)
		}
		if protocol.IsAuthError(err.Error()) {
			// Retrying with a rejected credential cannot succeed.
			return
		}
		delay *= 2
		if delay > s.opts.ReconnectMax {
			delay = s.opts.ReconnectMax
		}
	}
}

// Emit sends one named event. Fire-and-forget: a nil return means the frame
// was handed to the connection, not that the server processed it.
func (s *Socket) Emit(event string, payload any) error {
	s.mu.RLock()
	conn := s.conn
	s.mu.RUnlock()
	if conn == nil {
		return ErrNotConnected
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", event, err)
	}
	body, err := json.Marshal(frame{Event: event, Data: data})
	if err != nil {
		return fmt.Errorf("marshal %s frame: %w", event, err)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := conn.WriteMessage(websocket.TextMessage, body); err != nil {
		return fmt.Errorf("write %s: %w", event, err)
	}
	return nil
}

// Close tears the connection down and stops reconnecting.
func (s *Socket) Close() error {
	s.mu.Lock()
	s.closed = true
	conn := s.conn
	s.conn = nil
	s.mu.Unlock()
	if conn != nil {
		return conn.Close()
	}
	return nil
}

var _ Transport = (*Socket)(nil)
