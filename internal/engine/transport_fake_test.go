package engine_test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/tomikjetu/vpwa26/internal/bus"
	"github.com/tomikjetu/vpwa26/internal/engine"
	"github.com/tomikjetu/vpwa26/internal/logger"
	"github.com/tomikjetu/vpwa26/internal/notify"
	"github.com/tomikjetu/vpwa26/internal/state"
	"github.com/tomikjetu/vpwa26/internal/transport"
)

// fakeTransport satisfies transport.Transport in-memory. Tests drive inbound
// events with fire and inspect outbound frames via emitted.
type fakeTransport struct {
	mu        sync.Mutex
	handlers  map[string]transport.Handler
	lifecycle transport.Lifecycle
	connected bool
	emitted   []fakeFrame
	emitErr   error
}

type fakeFrame struct {
	Event   string
	Payload any
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{handlers: make(map[string]transport.Handler)}
}

var _ transport.Transport = (*fakeTransport)(nil)

func (f *fakeTransport) Connect(ctx context.Context, token string) error {
	f.mu.Lock()
	f.connected = true
	onConnect := f.lifecycle.OnConnect
	f.mu.Unlock()
	if onConnect != nil {
		onConnect()
	}
	return nil
}

func (f *fakeTransport) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connected = false
	return nil
}

func (f *fakeTransport) Connected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

func (f *fakeTransport) Emit(event string, payload any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.emitErr != nil {
		return f.emitErr
	}
	f.emitted = append(f.emitted, fakeFrame{Event: event, Payload: payload})
	return nil
}

func (f *fakeTransport) On(event string, h transport.Handler) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[event] = h
}

func (f *fakeTransport) Off(event string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.handlers, event)
}

func (f *fakeTransport) SetLifecycle(lc transport.Lifecycle) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lifecycle = lc
}

// fire dispatches one inbound event to its registered handler.
func (f *fakeTransport) fire(t *testing.T, event string, payload any) {
	t.Helper()
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal %s payload: %v", event, err)
	}
	f.mu.Lock()
	h, ok := f.handlers[event]
	f.mu.Unlock()
	if !ok {
		t.Fatalf("no handler registered for %s", event)
	}
	h(data)
}

func (f *fakeTransport) frames(event string) []fakeFrame {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []fakeFrame
	for _, fr := range f.emitted {
		if fr.Event == event {
			out = append(out, fr)
		}
	}
	return out
}

func (f *fakeTransport) disconnect(reason string) {
	f.mu.Lock()
	f.connected = false
	onDisconnect := f.lifecycle.OnDisconnect
	f.mu.Unlock()
	if onDisconnect != nil {
		onDisconnect(reason)
	}
}

func (f *fakeTransport) connectError(err error) {
	f.mu.Lock()
	onErr := f.lifecycle.OnConnectError
	f.mu.Unlock()
	if onErr != nil {
		onErr(err)
	}
}

// recordingNotifier captures every notice for assertions.
type recordingNotifier struct {
	mu      sync.Mutex
	notices []notify.Notice
	system  []string
}

var _ notify.Notifier = (*recordingNotifier)(nil)

func (r *recordingNotifier) Notify(n notify.Notice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, n)
}

func (r *recordingNotifier) System(title, body string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.system = append(r.system, title+": "+body)
}

func (r *recordingNotifier) all() []notify.Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]notify.Notice(nil), r.notices...)
}

func (r *recordingNotifier) systemCalls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.system...)
}

func (r *recordingNotifier) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = nil
	r.system = nil
}

func (r *recordingNotifier) hasLevel(level notify.Level) bool {
	for _, n := range r.all() {
		if n.Level == level {
			return true
		}
	}
	return false
}

// testHarness bundles a fully wired engine over the fake transport.
type testHarness struct {
	eng      *engine.Engine
	socket   *fakeTransport
	store    *state.Store
	session  *state.Session
	bus      *bus.Bus
	notifier *recordingNotifier
	visible  *notify.StaticVisibility
	creds    engine.Credentials
}

type harnessOption func(*engine.Options)

func withConfirmer(c engine.Confirmer) harnessOption {
	return func(o *engine.Options) { o.Confirmer = c }
}

func withCredentials(c engine.Credentials) harnessOption {
	return func(o *engine.Options) { o.Credentials = c }
}

func newHarness(t *testing.T, opts ...harnessOption) *testHarness {
	t.Helper()

	h := &testHarness{
		socket:   newFakeTransport(),
		store:    state.New(),
		session:  state.NewSession(),
		bus:      bus.New(),
		notifier: &recordingNotifier{},
	}
	visible := notify.StaticVisibility(true)
	h.visible = &visible
	h.creds = engine.NewStaticCredentials("test-token")

	options := engine.Options{
		Transport:   h.socket,
		Store:       h.store,
		Session:     h.session,
		Bus:         h.bus,
		Notifier:    h.notifier,
		Visibility:  h.visible,
		Credentials: h.creds,
		Log:         logger.Nop(),
	}
	for _, opt := range opts {
		opt(&options)
	}
	h.creds = options.Credentials

	h.eng = engine.New(options)
	h.session.SetUser(state.User{ID: 100, Nick: "alice", Email: "alice@example.com"})
	return h
}

// connect brings the harness online and discards the bootstrap notices.
func (h *testHarness) connect(t *testing.T) {
	t.Helper()
	if err := h.eng.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	h.notifier.reset()
}
