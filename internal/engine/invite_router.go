package engine

import (
	"encoding/json"
	"fmt"

	"github.com/tomikjetu/vpwa26/internal/logger"
	"github.com/tomikjetu/vpwa26/internal/notify"
	"github.com/tomikjetu/vpwa26/internal/protocol"
	"github.com/tomikjetu/vpwa26/internal/state"
	"github.com/tomikjetu/vpwa26/internal/transport"
)

const domainInvite = "invite"

// inviteRouter owns the invitation lifecycle. Invites are keyed by channel
// id throughout; a channel carries at most one pending invite.
type inviteRouter struct {
	store    *state.Store
	session  *state.Session
	notifier notify.Notifier
	log      *logger.Logger
}

func newInviteRouter(store *state.Store, session *state.Session, n notify.Notifier, log *logger.Logger) *inviteRouter {
	return &inviteRouter{store: store, session: session, notifier: n, log: log}
}

func (r *inviteRouter) Register(t transport.Transport) {
	t.On(protocol.EventInviteList, r.handleList)
	t.On(protocol.EventInviteSent, r.handleSent)
	t.On(protocol.EventInviteReceived, r.handleReceived)
	t.On(protocol.EventInviteAccepted, r.handleAccepted)
	t.On(protocol.EventInviteDeclined, r.handleDeclined)
}

func (r *inviteRouter) Cleanup(t transport.Transport) {
	t.Off(protocol.EventInviteList)
	t.Off(protocol.EventInviteSent)
	t.Off(protocol.EventInviteReceived)
	t.Off(protocol.EventInviteAccepted)
	t.Off(protocol.EventInviteDeclined)
}

// handleList appends the listed invites. Unlike channel:list this is not a
// replacement; duplicates by channel are discarded.
func (r *inviteRouter) handleList(data json.RawMessage) {
	payload, ok := decode[protocol.InviteListEvent](r.log, domainInvite, protocol.EventInviteList, data)
	if !ok {
		return
	}
	for _, inv := range payload.Invites {
		r.store.AddInvite(state.Invite{
			ID:        inv.ID,
			ChannelID: inv.ChannelID,
			Name:      inv.ChannelName,
			InvitedAt: inv.CreatedAt,
		})
	}
}

// handleSent confirms an invite the local user issued.
func (r *inviteRouter) handleSent(data json.RawMessage) {
	payload, ok := decode[protocol.InviteSentEvent](r.log, domainInvite, protocol.EventInviteSent, data)
	if !ok {
		return
	}
	r.notifier.Notify(notify.Notice{
		Level:   notify.Positive,
		Message: fmt.Sprintf("You've invited %s to the channel %s", payload.Nickname, payload.ChannelName),
	})
}

func (r *inviteRouter) handleReceived(data json.RawMessage) {
	payload, ok := decode[protocol.InviteReceivedEvent](r.log, domainInvite, protocol.EventInviteReceived, data)
	if !ok {
		return
	}
	if !r.store.AddInvite(state.Invite{
		ID:        payload.InviteID,
		ChannelID: payload.ChannelID,
		Name:      payload.ChannelName,
		InvitedAt: payload.InvitedAt,
	}) {
		return
	}
	r.notifier.Notify(notify.Notice{
		Level:   notify.Info,
		Message: fmt.Sprintf("You've been invited to channel %q", payload.ChannelName),
	})
}

// handleAccepted diverges on who accepted. The local user's acceptance
// removes the invite and materializes the channel; any other member's
// acceptance only refreshes the roster of a channel we already hold.
func (r *inviteRouter) handleAccepted(data json.RawMessage) {
	payload, ok := decode[protocol.InviteAcceptedEvent](r.log, domainInvite, protocol.EventInviteAccepted, data)
	if !ok {
		return
	}
	if payload.UserID == r.session.UserID() {
		r.store.RemoveInvite(payload.Channel.ID)
		r.store.AddChannel(payload.Channel)
		r.notifier.Notify(notify.Notice{
			Level:   notify.Positive,
			Message: fmt.Sprintf("You joined channel %q", payload.Channel.Name),
		})
		return
	}
	if !r.store.UpdateChannel(payload.Channel) {
		drop(r.log, domainInvite, protocol.EventInviteAccepted, "channelId", payload.Channel.ID)
	}
}

func (r *inviteRouter) handleDeclined(data json.RawMessage) {
	payload, ok := decode[protocol.InviteDeclinedEvent](r.log, domainInvite, protocol.EventInviteDeclined, data)
	if !ok {
		return
	}
	if !r.store.RemoveInvite(payload.ChannelID) {
		drop(r.log, domainInvite, protocol.EventInviteDeclined, "channelId", payload.ChannelID)
	}
}
