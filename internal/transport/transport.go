package transport

import (
	"context"
	"encoding/json"
	"errors"
)

// ErrNotConnected is returned by Emit when no connection is established.
var ErrNotConnected = errors.New("transport: not connected")

// Handler consumes the raw payload of one named inbound event. Handlers for
// a given connection are invoked sequentially in delivery order.
type Handler func(data json.RawMessage)

// Lifecycle carries the connection state callbacks the engine hooks into.
type Lifecycle struct {
	// OnConnect fires after every successful (re)connect, before any event
	// is dispatched.
	OnConnect func()
	// OnDisconnect fires when an established connection drops.
	OnDisconnect func(reason string)
	// OnConnectError fires when a connection attempt fails.
	OnConnectError func(err error)
}

// Transport is the bidirectional named-event messaging channel the engine
// drives. On replaces any previous handler for the event, so repeated
// registration cannot double-deliver.
type Transport interface {
	Connect(ctx context.Context, token string) error
	Close() error
	Connected() bool
	Emit(event string, payload any) error
	On(event string, h Handler)
	Off(event string)
	SetLifecycle(l Lifecycle)
}
