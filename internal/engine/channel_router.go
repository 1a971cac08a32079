package engine

import (
	"encoding/json"
	"fmt"

	"github.com/tomikjetu/vpwa26/internal/bus"
	"github.com/tomikjetu/vpwa26/internal/logger"
	"github.com/tomikjetu/vpwa26/internal/notify"
	"github.com/tomikjetu/vpwa26/internal/protocol"
	"github.com/tomikjetu/vpwa26/internal/state"
	"github.com/tomikjetu/vpwa26/internal/transport"
)

const domainChannel = "channel"

// channelRouter owns the channel lifecycle events: list snapshots, creation,
// joins, metadata updates, deletion and the local user leaving.
type channelRouter struct {
	store    *state.Store
	session  *state.Session
	bus      *bus.Bus
	notifier notify.Notifier
	log      *logger.Logger
}

func newChannelRouter(store *state.Store, session *state.Session, b *bus.Bus, n notify.Notifier, log *logger.Logger) *channelRouter {
	return &channelRouter{store: store, session: session, bus: b, notifier: n, log: log}
}

func (r *channelRouter) Register(t transport.Transport) {
	t.On(protocol.EventChannelList, r.handleList)
	t.On(protocol.EventChannelCreated, r.handleCreated)
	t.On(protocol.EventChannelJoined, r.handleJoined)
	t.On(protocol.EventChannelListMembers, r.handleMembers)
	t.On(protocol.EventChannelUpdated, r.handleUpdated)
	t.On(protocol.EventChannelLeft, r.handleLeft)
	t.On(protocol.EventChannelDeleted, r.handleDeleted)
}

func (r *channelRouter) Cleanup(t transport.Transport) {
	t.Off(protocol.EventChannelList)
	t.Off(protocol.EventChannelCreated)
	t.Off(protocol.EventChannelJoined)
	t.Off(protocol.EventChannelListMembers)
	t.Off(protocol.EventChannelUpdated)
	t.Off(protocol.EventChannelLeft)
	t.Off(protocol.EventChannelDeleted)
}

// handleList replaces the channel collection wholesale. The snapshot is
// authoritative; channels absent from it are gone.
func (r *channelRouter) handleList(data json.RawMessage) {
	payload, ok := decode[protocol.ChannelListEvent](r.log, domainChannel, protocol.EventChannelList, data)
	if !ok {
		return
	}
	r.store.SetChannels(payload.Channels)
}

func (r *channelRouter) handleCreated(data json.RawMessage) {
	payload, ok := decode[protocol.ChannelCreatedEvent](r.log, domainChannel, protocol.EventChannelCreated, data)
	if !ok {
		return
	}
	if !r.store.AddChannel(payload.Channel) {
		return
	}
	r.notifier.Notify(notify.Notice{
		Level:   notify.Positive,
		Message: fmt.Sprintf("Channel %q created successfully", payload.Channel.Name),
	})
}

// handleJoined merges the joined channel. The broadcast goes to every member
// of the channel; only the joining user gets the confirmation notice.
func (r *channelRouter) handleJoined(data json.RawMessage) {
	payload, ok := decode[protocol.ChannelJoinedEvent](r.log, domainChannel, protocol.EventChannelJoined, data)
	if !ok {
		return
	}
	r.store.MergeChannel(payload.Channel)
	if payload.UserID == r.session.UserID() {
		r.notifier.Notify(notify.Notice{
			Level:   notify.Positive,
			Message: fmt.Sprintf("You joined channel %q", payload.Channel.Name),
		})
	}
}

// handleMembers answers a channel:list-members request. The roster goes out
// on the bus for whoever asked; the store keeps its own copy fresh too.
func (r *channelRouter) handleMembers(data json.RawMessage) {
	payload, ok := decode[protocol.ChannelMembersEvent](r.log, domainChannel, protocol.EventChannelListMembers, data)
	if !ok {
		return
	}
	members := make(map[int]protocol.Member, len(payload.Members))
	for _, m := range payload.Members {
		members[m.ID] = m
	}
	r.store.MergeMembers(payload.ChannelID, members)
	r.bus.Publish(bus.Event{Topic: bus.TopicMemberList, Payload: bus.MemberList{ChannelID: payload.ChannelID, Members: payload.Members}})
}

func (r *channelRouter) handleUpdated(data json.RawMessage) {
	payload, ok := decode[protocol.ChannelUpdatedEvent](r.log, domainChannel, protocol.EventChannelUpdated, data)
	if !ok {
		return
	}
	if !r.store.UpdateChannel(payload.Channel) {
		drop(r.log, domainChannel, protocol.EventChannelUpdated, "channelId", payload.Channel.ID)
	}
}

// handleLeft confirms the local user's own departure after channel:quit.
func (r *channelRouter) handleLeft(data json.RawMessage) {
	payload, ok := decode[protocol.ChannelLeftEvent](r.log, domainChannel, protocol.EventChannelLeft, data)
	if !ok {
		return
	}
	r.remove(payload.ChannelID, "left", notify.Notice{Level: notify.Info, Message: "You have left the channel"})
}

func (r *channelRouter) handleDeleted(data json.RawMessage) {
	payload, ok := decode[protocol.ChannelDeletedEvent](r.log, domainChannel, protocol.EventChannelDeleted, data)
	if !ok {
		return
	}
	r.remove(payload.ChannelID, "deleted", notify.Notice{Level: notify.Warning, Message: "Channel has been deleted"})
}

// remove drops a channel and, when its chat was open, closes the chat view.
func (r *channelRouter) remove(channelID int, reason string, notice notify.Notice) {
	removed, chatClosed := r.store.RemoveChannel(channelID)
	if !removed {
		drop(r.log, domainChannel, "channel:"+reason, "channelId", channelID)
		return
	}
	r.notifier.Notify(notice)
	r.bus.Publish(bus.Event{Topic: bus.TopicChannelRemoved, Payload: bus.ChannelRemoved{ChannelID: channelID, Reason: reason}})
	if chatClosed {
		r.bus.Publish(bus.Event{Topic: bus.TopicChatClosed, Payload: bus.ChatClosed{ChannelID: channelID}})
	}
}
