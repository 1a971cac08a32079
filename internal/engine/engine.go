package engine

import (
	"context"
	"errors"
	"sync"

	"github.com/tomikjetu/vpwa26/internal/bus"
	"github.com/tomikjetu/vpwa26/internal/logger"
	"github.com/tomikjetu/vpwa26/internal/notify"
	"github.com/tomikjetu/vpwa26/internal/observability"
	"github.com/tomikjetu/vpwa26/internal/protocol"
	"github.com/tomikjetu/vpwa26/internal/state"
	"github.com/tomikjetu/vpwa26/internal/telemetry"
	"github.com/tomikjetu/vpwa26/internal/transport"
)

var (
	// ErrNotConnected rejects a command issued without a live connection.
	ErrNotConnected = errors.New("engine: not connected")

	// ErrNoCredentials rejects a connect attempt without a stored token.
	ErrNoCredentials = errors.New("engine: no credentials")
)

// Credentials supplies the bearer token presented at connect time. Clear is
// invoked on terminal authentication failure.
type Credentials interface {
	Token() (string, error)
	Clear() error
}

// Confirmer asks the user to confirm a destructive command. A decline
// resolves to false rather than an error.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) (bool, error)
}

// AutoConfirm answers every confirmation the same way. Used by headless
// deployments and tests.
type AutoConfirm bool

func (a AutoConfirm) Confirm(context.Context, string) (bool, error) { return bool(a), nil }

// router is one domain event router: a fixed set of named inbound events
// with exactly one handler each.
type router interface {
	Register(t transport.Transport)
	Cleanup(t transport.Transport)
}

// Options wires an Engine. Transport, Store, Session, Bus, Notifier and
// Credentials are required; the rest default to inert implementations.
type Options struct {
	Transport   transport.Transport
	Store       *state.Store
	Session     *state.Session
	Bus         *bus.Bus
	Notifier    notify.Notifier
	Visibility  notify.Visibility
	Confirmer   Confirmer
	Credentials Credentials
	Audit       *telemetry.AuditEmitter
	Log         *logger.Logger
}

// Engine is the real-time channel synchronization engine: it owns the
// transport lifecycle, registers the domain routers, and issues outbound
// commands against the canonical state store.
type Engine struct {
	transport transport.Transport
	store     *state.Store
	session   *state.Session
	bus       *bus.Bus
	notifier  notify.Notifier
	visible   notify.Visibility
	confirm   Confirmer
	creds     Credentials
	audit     *telemetry.AuditEmitter
	log       *logger.Logger

	routers []router

	mu            sync.RWMutex
	connected     bool
	manualOffline bool
}

// New builds an engine and its five domain routers. Nothing is registered
// on the transport until Connect.
func New(opts Options) *Engine {
	if opts.Log == nil {
		opts.Log = logger.Nop()
	}
	if opts.Visibility == nil {
		opts.Visibility = notify.StaticVisibility(true)
	}
	if opts.Confirmer == nil {
		opts.Confirmer = AutoConfirm(true)
	}

	e := &Engine{
		transport: opts.Transport,
		store:     opts.Store,
		session:   opts.Session,
		bus:       opts.Bus,
		notifier:  opts.Notifier,
		visible:   opts.Visibility,
		confirm:   opts.Confirmer,
		creds:     opts.Credentials,
		audit:     opts.Audit,
		log:       opts.Log,
	}

	e.routers = []router{
		newConnectionRouter(e.store, e.session, e.notifier, e.log),
		newChannelRouter(e.store, e.session, e.bus, e.notifier, e.log),
		newMemberRouter(e.store, e.session, e.bus, e.notifier, e.log),
		newInviteRouter(e.store, e.session, e.notifier, e.log),
		newMessageRouter(e.store, e.session, e.bus, e.notifier, e.visible, e.log),
	}
	return e
}

// Connect presents the stored credential and establishes the duplex
// connection. It returns once the handshake settles; domain events flow in
// on the transport's read loop afterwards.
func (e *Engine) Connect(ctx context.Context) error {
	token, err := e.creds.Token()
	if err != nil {
		return err
	}
	if token == "" {
		return ErrNoCredentials
	}

	e.mu.Lock()
	e.manualOffline = false
	e.mu.Unlock()

	e.transport.SetLifecycle(transport.Lifecycle{
		OnConnect:      e.handleConnect,
		OnDisconnect:   e.handleDisconnect,
		OnConnectError: e.handleConnectError,
	})
	return e.transport.Connect(ctx, token)
}

// Disconnect goes manually offline: the connection closes and offline
// warnings stay silent until a manual reconnect is requested.
func (e *Engine) Disconnect() error {
	e.mu.Lock()
	e.manualOffline = true
	e.connected = false
	e.mu.Unlock()
	observability.SetConnected(false)
	return e.transport.Close()
}

// Reconnect clears the manual-offline flag and connects again.
func (e *Engine) Reconnect(ctx context.Context) error {
	return e.Connect(ctx)
}

// Connected reports whether commands may currently be issued.
func (e *Engine) Connected() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.connected
}

// ManuallyOffline reports whether the user asked to go offline.
func (e *Engine) ManuallyOffline() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.manualOffline
}

// handleConnect runs on every successful (re)connect. Routers are
// deregistered before being registered again, so repeated reconnects never
// double-bind a handler.
func (e *Engine) handleConnect() {
	for _, r := range e.routers {
		r.Cleanup(e.transport)
	}
	for _, r := range e.routers {
		r.Register(e.transport)
	}

	e.mu.Lock()
	e.connected = true
	e.mu.Unlock()
	observability.SetConnected(true)
	e.audit.Emit(context.Background(), "INFO", "session connected", e.session.UserID())
	e.log.Infow("connected")

	// Seed the local model; the server answers with channel:list and
	// invite:list broadcasts.
	if err := e.transport.Emit(protocol.EmitChannelList, struct{}{}); err != nil {
		e.log.Warnw("initial channel list request failed", "error", err)
	}
	if err := e.transport.Emit(protocol.EmitInviteList, struct{}{}); err != nil {
		e.log.Warnw("initial invite list request failed", "error", err)
	}
}

func (e *Engine) handleDisconnect(reason string) {
	e.mu.Lock()
	e.connected = false
	manual := e.manualOffline
	e.mu.Unlock()
	observability.SetConnected(false)
	e.audit.Emit(context.Background(), "INFO", "session disconnected: "+reason, e.session.UserID())
	e.log.Infow("disconnected", "reason", reason)

	if !manual {
		e.notifier.Notify(notify.Notice{Level: notify.Warning, Message: "Connection lost. Trying to reconnect..."})
	}
}

// handleConnectError distinguishes terminal authentication failures, which
// clear the credential and force the consumer to a logged-out state, from
// transient connectivity problems.
func (e *Engine) handleConnectError(err error) {
	if protocol.IsAuthError(err.Error()) {
		e.log.Warnw("authentication failed", "error", err)
		e.audit.Emit(context.Background(), "WARN", "authentication failed", e.session.UserID())
		if clearErr := e.creds.Clear(); clearErr != nil {
			e.log.Errorw("clearing credentials failed", "error", clearErr)
		}
		e.session.Clear()
		e.bus.Publish(bus.Event{Topic: bus.TopicSessionEnded, Payload: bus.SessionEnded{Reason: err.Error()}})
		e.notifier.Notify(notify.Notice{Level: notify.Negative, Message: "Your session has expired. Please log in again."})
		return
	}

	e.mu.RLock()
	manual := e.manualOffline
	e.mu.RUnlock()
	e.log.Warnw("connect failed", "error", err)
	if !manual {
		e.notifier.Notify(notify.Notice{Level: notify.Warning, Message: "Could not reach the server."})
	}
}
