package engine

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tomikjetu/vpwa26/internal/bus"
	"github.com/tomikjetu/vpwa26/internal/logger"
	"github.com/tomikjetu/vpwa26/internal/notify"
	"github.com/tomikjetu/vpwa26/internal/protocol"
	"github.com/tomikjetu/vpwa26/internal/state"
	"github.com/tomikjetu/vpwa26/internal/transport"
)

const domainMessage = "message"

// notifPreviewLen bounds the message preview in a notification.
const notifPreviewLen = 50

// messageRouter owns the message stream: history pages, live messages with
// their notification gate, deletions, edits and typing broadcasts.
type messageRouter struct {
	store    *state.Store
	session  *state.Session
	bus      *bus.Bus
	notifier notify.Notifier
	visible  notify.Visibility
	log      *logger.Logger
}

func newMessageRouter(store *state.Store, session *state.Session, b *bus.Bus, n notify.Notifier, v notify.Visibility, log *logger.Logger) *messageRouter {
	return &messageRouter{store: store, session: session, bus: b, notifier: n, visible: v, log: log}
}

func (r *messageRouter) Register(t transport.Transport) {
	t.On(protocol.EventMessageList, r.handleList)
	t.On(protocol.EventMessageNew, r.handleNew)
	t.On(protocol.EventMessageDeleted, r.handleDeleted)
	t.On(protocol.EventMessageEdited, r.handleEdited)
	t.On(protocol.EventMessageTyping, r.handleTyping)
}

func (r *messageRouter) Cleanup(t transport.Transport) {
	t.Off(protocol.EventMessageList)
	t.Off(protocol.EventMessageNew)
	t.Off(protocol.EventMessageDeleted)
	t.Off(protocol.EventMessageEdited)
	t.Off(protocol.EventMessageTyping)
}

// handleList prepends one history page to the open sequence and resolves the
// pending backfill. The server sends pages newest-first; prepending keeps
// the sequence in chronological order.
func (r *messageRouter) handleList(data json.RawMessage) {
	payload, ok := decode[protocol.MessageListEvent](r.log, domainMessage, protocol.EventMessageList, data)
	if !ok {
		return
	}

	batch := make([]state.Message, 0, len(payload.Messages))
	for i := len(payload.Messages) - 1; i >= 0; i-- {
		wire := payload.Messages[i]
		batch = append(batch, state.MessageFromWire(wire, r.nickname(wire)))
	}
	r.store.PrependMessages(batch)
	r.store.ResolveBackfill()
}

// handleNew applies a live message and decides whether the user hears about
// it. The gate is ordered: a message for the open channel applies silently
// and marks it read; do-not-disturb suppresses everything else; otherwise
// foreground gets an in-app notice and background a system notification.
func (r *messageRouter) handleNew(data json.RawMessage) {
	payload, ok := decode[protocol.MessageNewEvent](r.log, domainMessage, protocol.EventMessageNew, data)
	if !ok {
		return
	}
	ch, ok := r.store.ChannelByID(payload.ChannelID)
	if !ok {
		drop(r.log, domainMessage, protocol.EventMessageNew, "channelId", payload.ChannelID)
		return
	}

	msg := state.MessageFromWire(payload.Message, r.nickname(payload.Message))
	if msg.MemberID == 0 {
		msg.MemberID = payload.MemberID
	}

	open := r.store.IsOpen(payload.ChannelID)
	if open {
		r.store.AddMessage(payload.ChannelID, msg)
	} else {
		r.store.SetChannelUnread(payload.ChannelID, true)
	}

	r.bus.Publish(bus.Event{Topic: bus.TopicMessageReceived, Payload: bus.MessageReceived{
		ChannelID: payload.ChannelID,
		MessageID: msg.ID,
		MemberID:  msg.MemberID,
		Nickname:  msg.Nickname,
		Text:      msg.Text,
		Time:      msg.Time,
		Files:     msg.Files,
	}})

	fromSelf := payload.Message.User.ID == r.session.UserID()
	if open || fromSelf || r.session.DND() {
		return
	}
	if ch.NotifStatus == protocol.NotifMentions && !r.mentioned(msg.Text) {
		return
	}

	title := fmt.Sprintf("New message in %s", ch.Name)
	if r.visible.Foreground() {
		r.notifier.Notify(notify.Notice{Level: notify.Info, Message: title, Caption: preview(msg.Text)})
	} else {
		r.notifier.System(title, fmt.Sprintf("%s: %s", msg.Nickname, preview(msg.Text)))
	}
}

// handleDeleted removes a message from the open sequence. Deletions for
// channels whose chat is not open have nothing to mutate.
func (r *messageRouter) handleDeleted(data json.RawMessage) {
	payload, ok := decode[protocol.MessageDeletedEvent](r.log, domainMessage, protocol.EventMessageDeleted, data)
	if !ok {
		return
	}
	if !r.store.IsOpen(payload.ChannelID) {
		return
	}
	if !r.store.RemoveMessage(payload.MessageID) {
		drop(r.log, domainMessage, protocol.EventMessageDeleted, "messageId", payload.MessageID)
	}
}

func (r *messageRouter) handleEdited(data json.RawMessage) {
	payload, ok := decode[protocol.MessageEditedEvent](r.log, domainMessage, protocol.EventMessageEdited, data)
	if !ok {
		return
	}
	if !r.store.IsOpen(payload.ChannelID) {
		return
	}
	if !r.store.EditMessage(state.MessageFromWire(payload.Message, r.nickname(payload.Message))) {
		drop(r.log, domainMessage, protocol.EventMessageEdited, "messageId", payload.Message.ID)
	}
}

// handleTyping replaces the channel's live typing set. The local user's own
// entry is excluded; echoing your own draft back is noise.
func (r *messageRouter) handleTyping(data json.RawMessage) {
	payload, ok := decode[protocol.TypingBroadcastEvent](r.log, domainMessage, protocol.EventMessageTyping, data)
	if !ok {
		return
	}
	r.store.SetTyping(payload.ChannelID, payload.Typing, r.session.UserID())
}

// nickname resolves a message author against the owning channel's roster,
// falling back to the author reference in the payload. The roster lookup can
// miss when the author already left the channel.
func (r *messageRouter) nickname(m protocol.Message) string {
	if member, ok := r.store.MemberByID(m.ChannelID, m.MemberID); ok {
		return member.Nickname
	}
	return m.User.Nick
}

func (r *messageRouter) mentioned(text string) bool {
	u, ok := r.session.User()
	if !ok {
		return false
	}
	return strings.Contains(text, "@"+u.Nick)
}

func preview(text string) string {
	if len(text) <= notifPreviewLen {
		return text
	}
	return text[:notifPreviewLen] + "..."
}
