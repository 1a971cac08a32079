package engine

import (
	"encoding/json"

	"github.com/tomikjetu/vpwa26/internal/logger"
	"github.com/tomikjetu/vpwa26/internal/notify"
	"github.com/tomikjetu/vpwa26/internal/protocol"
	"github.com/tomikjetu/vpwa26/internal/state"
	"github.com/tomikjetu/vpwa26/internal/transport"
)

const domainConnection = "connection"

// connectionRouter owns the session-level events: the user:event tagged
// union (presence, profile) and server-reported command errors.
type connectionRouter struct {
	store    *state.Store
	session  *state.Session
	notifier notify.Notifier
	log      *logger.Logger
}

func newConnectionRouter(store *state.Store, session *state.Session, n notify.Notifier, log *logger.Logger) *connectionRouter {
	return &connectionRouter{store: store, session: session, notifier: n, log: log}
}

func (r *connectionRouter) Register(t transport.Transport) {
	t.On(protocol.EventUser, r.handleUserEvent)
	t.On(protocol.EventError, r.handleError)
}

func (r *connectionRouter) Cleanup(t transport.Transport) {
	t.Off(protocol.EventUser)
	t.Off(protocol.EventError)
}

// handleUserEvent dispatches on the union's type tag. Unknown tags are
// dropped; a server newer than this client must not crash it.
func (r *connectionRouter) handleUserEvent(data json.RawMessage) {
	payload, ok := decode[protocol.UserEvent](r.log, domainConnection, protocol.EventUser, data)
	if !ok {
		return
	}

	switch payload.Type {
	case protocol.UserEventStateChanged:
		// Another user's presence changed; mirror it across every roster
		// that user appears in. The local user's echo updates the session.
		r.store.UpdateMemberState(payload.UserID, payload.Status, payload.IsConnected)
		if payload.UserID == r.session.UserID() && payload.Status != "" {
			r.session.SetStatus(payload.Status)
		}

	case protocol.UserEventStatusUpdated:
		// Confirmation of the local user's own status change.
		r.session.SetStatus(payload.Status)
		r.store.UpdateMemberStatus(r.session.UserID(), payload.Status)

	case protocol.UserEventProfile:
		if payload.User == nil {
			drop(r.log, domainConnection, protocol.EventUser, "type", payload.Type)
			return
		}
		p := payload.User
		r.session.SetUser(state.User{
			ID:        p.ID,
			Nick:      p.Nick,
			Email:     p.Email,
			FirstName: p.FirstName,
			LastName:  p.LastName,
			Status:    p.Status,
		})

	default:
		drop(r.log, domainConnection, protocol.EventUser, "type", payload.Type)
	}
}

// handleError surfaces a server-side command rejection verbatim.
func (r *connectionRouter) handleError(data json.RawMessage) {
	payload, ok := decode[protocol.ErrorEvent](r.log, domainConnection, protocol.EventError, data)
	if !ok {
		return
	}
	r.log.Warnw("server error", "error", payload.Error)
	r.notifier.Notify(notify.Notice{Level: notify.Negative, Message: payload.Error})
}
