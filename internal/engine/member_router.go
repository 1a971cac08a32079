package engine

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tomikjetu/vpwa26/internal/bus"
	"github.com/tomikjetu/vpwa26/internal/logger"
	"github.com/tomikjetu/vpwa26/internal/notify"
	"github.com/tomikjetu/vpwa26/internal/protocol"
	"github.com/tomikjetu/vpwa26/internal/state"
	"github.com/tomikjetu/vpwa26/internal/transport"
)

const domainMember = "member"

// memberRouter owns roster mutations within channels: joins, departures,
// kick votes, evictions and notification-preference changes.
type memberRouter struct {
	store    *state.Store
	session  *state.Session
	bus      *bus.Bus
	notifier notify.Notifier
	log      *logger.Logger
}

func newMemberRouter(store *state.Store, session *state.Session, b *bus.Bus, n notify.Notifier, log *logger.Logger) *memberRouter {
	return &memberRouter{store: store, session: session, bus: b, notifier: n, log: log}
}

func (r *memberRouter) Register(t transport.Transport) {
	t.On(protocol.EventMemberJoined, r.handleJoined)
	t.On(protocol.EventMemberLeft, r.handleLeft)
	t.On(protocol.EventMemberKickVoted, r.handleKickVoted)
	t.On(protocol.EventMemberKicked, r.handleKicked)
	t.On(protocol.EventMemberNotifStatusUpdated, r.handleNotifStatusUpdated)
}

func (r *memberRouter) Cleanup(t transport.Transport) {
	t.Off(protocol.EventMemberJoined)
	t.Off(protocol.EventMemberLeft)
	t.Off(protocol.EventMemberKickVoted)
	t.Off(protocol.EventMemberKicked)
	t.Off(protocol.EventMemberNotifStatusUpdated)
}

func (r *memberRouter) handleJoined(data json.RawMessage) {
	payload, ok := decode[protocol.MemberJoinedEvent](r.log, domainMember, protocol.EventMemberJoined, data)
	if !ok {
		return
	}
	if err := r.store.AddMember(payload.ChannelID, payload.Member); err != nil {
		drop(r.log, domainMember, protocol.EventMemberJoined, "channelId", payload.ChannelID)
		return
	}
	if ch, ok := r.store.ChannelByID(payload.ChannelID); ok && payload.Member.UserID != r.session.UserID() {
		r.notifier.Notify(notify.Notice{
			Level:   notify.Info,
			Message: fmt.Sprintf("%s joined %s", payload.Member.Nickname, ch.Name),
		})
	}
}

// handleLeft removes a departed member. The nickname is captured from the
// roster before removal so the notice can still name them.
func (r *memberRouter) handleLeft(data json.RawMessage) {
	payload, ok := decode[protocol.MemberLeftEvent](r.log, domainMember, protocol.EventMemberLeft, data)
	if !ok {
		return
	}
	member, err := r.store.RemoveMember(payload.ChannelID, payload.MemberID)
	if err != nil {
		drop(r.log, domainMember, protocol.EventMemberLeft, "channelId", payload.ChannelID, "memberId", payload.MemberID)
		return
	}
	if ch, ok := r.store.ChannelByID(payload.ChannelID); ok {
		r.notifier.Notify(notify.Notice{
			Level:   notify.Info,
			Message: fmt.Sprintf("%s left %s", member.Nickname, ch.Name),
		})
	}
	r.bus.Publish(bus.Event{Topic: bus.TopicMemberRemoved, Payload: bus.MemberRemoved{
		ChannelID: payload.ChannelID,
		MemberID:  payload.MemberID,
		Nickname:  member.Nickname,
	}})
}

// handleKickVoted folds one vote into the target's tally. The broadcast
// carries the server's authoritative count, which overrides the local one.
// Votes are rendering state only; eviction arrives as member:kicked.
func (r *memberRouter) handleKickVoted(data json.RawMessage) {
	payload, ok := decode[protocol.MemberKickVotedEvent](r.log, domainMember, protocol.EventMemberKickVoted, data)
	if !ok {
		return
	}
	_, err := r.store.ApplyKickVote(payload.ChannelID, payload.TargetMemberID, payload.VoterID, payload.VoteCount)
	switch {
	case errors.Is(err, state.ErrOwnerImmune):
		// A vote against the owner never mutates anything.
		r.log.Debugw("kick vote against owner ignored", "channelId", payload.ChannelID)
	case err != nil:
		drop(r.log, domainMember, protocol.EventMemberKickVoted, "channelId", payload.ChannelID, "memberId", payload.TargetMemberID)
	}
}

// handleKicked is the only path that evicts a member. For the local user it
// tears the whole channel down; for others it is a roster removal.
func (r *memberRouter) handleKicked(data json.RawMessage) {
	payload, ok := decode[protocol.MemberKickedEvent](r.log, domainMember, protocol.EventMemberKicked, data)
	if !ok {
		return
	}

	if payload.UserID == r.session.UserID() {
		name := ""
		if ch, ok := r.store.ChannelByID(payload.ChannelID); ok {
			name = ch.Name
		}
		removed, chatClosed := r.store.RemoveChannel(payload.ChannelID)
		if !removed {
			drop(r.log, domainMember, protocol.EventMemberKicked, "channelId", payload.ChannelID)
			return
		}
		r.notifier.Notify(notify.Notice{
			Level:   notify.Negative,
			Message: fmt.Sprintf("You have been kicked from %s", name),
		})
		r.bus.Publish(bus.Event{Topic: bus.TopicChannelRemoved, Payload: bus.ChannelRemoved{ChannelID: payload.ChannelID, Reason: "kicked"}})
		r.bus.Publish(bus.Event{Topic: bus.TopicMemberRemoved, Payload: bus.MemberRemoved{ChannelID: payload.ChannelID, MemberID: payload.MemberID}})
		if chatClosed {
			r.bus.Publish(bus.Event{Topic: bus.TopicChatClosed, Payload: bus.ChatClosed{ChannelID: payload.ChannelID}})
		}
		return
	}

	member, err := r.store.RemoveMember(payload.ChannelID, payload.MemberID)
	if err != nil {
		drop(r.log, domainMember, protocol.EventMemberKicked, "channelId", payload.ChannelID, "memberId", payload.MemberID)
		return
	}
	if ch, ok := r.store.ChannelByID(payload.ChannelID); ok {
		r.notifier.Notify(notify.Notice{
			Level:   notify.Info,
			Message: fmt.Sprintf("%s was kicked from %s", member.Nickname, ch.Name),
		})
	}
	r.bus.Publish(bus.Event{Topic: bus.TopicMemberRemoved, Payload: bus.MemberRemoved{
		ChannelID: payload.ChannelID,
		MemberID:  payload.MemberID,
		Nickname:  member.Nickname,
	}})
}

func (r *memberRouter) handleNotifStatusUpdated(data json.RawMessage) {
	payload, ok := decode[protocol.NotifStatusUpdatedEvent](r.log, domainMember, protocol.EventMemberNotifStatusUpdated, data)
	if !ok {
		return
	}
	if !r.store.UpdateNotifStatus(payload.ChannelID, payload.NotifStatus) {
		drop(r.log, domainMember, protocol.EventMemberNotifStatusUpdated, "channelId", payload.ChannelID)
	}
}
