package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/tomikjetu/vpwa26/internal/notify"
	"github.com/tomikjetu/vpwa26/internal/observability"
	"github.com/tomikjetu/vpwa26/internal/protocol"
	"github.com/tomikjetu/vpwa26/internal/state"
)

// ensure rejects commands issued while offline. Silent commands (typing)
// skip the user-facing warning; manual offline suppresses it as well.
func (e *Engine) ensure(silent bool) error {
	e.mu.RLock()
	connected, manual := e.connected, e.manualOffline
	e.mu.RUnlock()
	if connected {
		return nil
	}
	observability.IncCommandRejected()
	if !silent && !manual {
		e.notifier.Notify(notify.Notice{Level: notify.Warning, Message: "You are offline. The command was not sent."})
	}
	return ErrNotConnected
}

func (e *Engine) emit(command, event string, payload any) error {
	if err := e.transport.Emit(event, payload); err != nil {
		return fmt.Errorf("emit %s: %w", event, err)
	}
	observability.IncCommand(command)
	return nil
}

// LoadChannels asks the server to rebroadcast the full channel list.
func (e *Engine) LoadChannels() error {
	if err := e.ensure(false); err != nil {
		return err
	}
	return e.emit("channel_list", protocol.EmitChannelList, struct{}{})
}

// LoadInvites asks the server to rebroadcast the pending invite list.
func (e *Engine) LoadInvites() error {
	if err := e.ensure(false); err != nil {
		return err
	}
	return e.emit("invite_list", protocol.EmitInviteList, struct{}{})
}

// CreateChannel requests a new channel. The channel materializes locally
// only when channel:created comes back.
func (e *Engine) CreateChannel(name string, private bool) error {
	if err := e.ensure(false); err != nil {
		return err
	}
	return e.emit("channel_create", protocol.EmitChannelCreate, protocol.ChannelCreateRequest{Name: name, IsPrivate: private})
}

// JoinChannel joins a public channel by name, creating it server-side if it
// does not exist yet.
func (e *Engine) JoinChannel(name string) error {
	if err := e.ensure(false); err != nil {
		return err
	}
	return e.emit("channel_join", protocol.EmitChannelJoin, protocol.ChannelJoinRequest{Name: name})
}

// ListMembers requests the member roster of a channel. The reply is
// published on the bus.
func (e *Engine) ListMembers(channelID int) error {
	if err := e.ensure(false); err != nil {
		return err
	}
	return e.emit("channel_list_members", protocol.EmitChannelListMembers, protocol.ChannelListMembersRequest{ChannelID: channelID})
}

// QuitChannel leaves a channel after confirmation. It reports false when
// the user declined; local removal happens on the channel:left broadcast.
func (e *Engine) QuitChannel(ctx context.Context, channelID int) (bool, error) {
	if err := e.ensure(false); err != nil {
		return false, err
	}
	ok, err := e.confirm.Confirm(ctx, "Do you really want to leave this channel?")
	if err != nil || !ok {
		return false, err
	}
	return true, e.emit("channel_quit", protocol.EmitChannelQuit, protocol.ChannelQuitRequest{ChannelID: channelID})
}

// CancelChannel deletes an owned channel after confirmation.
func (e *Engine) CancelChannel(ctx context.Context, channelID int) (bool, error) {
	if err := e.ensure(false); err != nil {
		return false, err
	}
	ok, err := e.confirm.Confirm(ctx, "Do you really want to delete this channel?")
	if err != nil || !ok {
		return false, err
	}
	return true, e.emit("channel_cancel", protocol.EmitChannelCancel, protocol.ChannelCancelRequest{ChannelID: channelID})
}

// VoteKick casts a kick vote against a channel member. Votes against the
// channel owner are rejected locally and never reach the wire. The local
// tally is advanced optimistically; the member:kick-voted broadcast carries
// the authoritative count.
func (e *Engine) VoteKick(channelID, targetMemberID int) error {
	if err := e.ensure(false); err != nil {
		return err
	}
	target, ok := e.store.MemberByID(channelID, targetMemberID)
	if !ok {
		return fmt.Errorf("vote kick: %w", state.ErrNotFound)
	}

	voterID := e.session.UserID()
	votes, err := e.store.ApplyKickVote(channelID, targetMemberID, voterID, -1)
	if err != nil {
		if errors.Is(err, state.ErrOwnerImmune) {
			e.notifier.Notify(notify.Notice{Level: notify.Negative, Message: "You cannot vote to kick the channel owner."})
		}
		return fmt.Errorf("vote kick: %w", err)
	}

	if err := e.emit("member_kick_vote", protocol.EmitMemberKickVote, protocol.MemberKickVoteRequest{ChannelID: channelID, TargetMemberID: targetMemberID}); err != nil {
		return err
	}
	e.notifier.Notify(notify.Notice{
		Level:   notify.Info,
		Message: fmt.Sprintf("You have voted to kick %s. Total votes: %d/%d", target.Nickname, votes, state.KickQuorum),
	})
	return nil
}

// InviteUser invites a user by nickname into a channel.
func (e *Engine) InviteUser(channelID int, nickname string) error {
	if err := e.ensure(false); err != nil {
		return err
	}
	return e.emit("invite_create", protocol.EmitInviteCreate, protocol.InviteCreateRequest{ChannelID: channelID, Nickname: nickname})
}

// AcceptInvite accepts a pending invite. The invite is removed and the
// channel materialized when invite:accepted comes back.
func (e *Engine) AcceptInvite(channelID int) error {
	if err := e.ensure(false); err != nil {
		return err
	}
	return e.emit("invite_accept", protocol.EmitInviteAccept, protocol.InviteAcceptRequest{ChannelID: channelID})
}

// DeclineInvite declines a pending invite.
func (e *Engine) DeclineInvite(channelID int) error {
	if err := e.ensure(false); err != nil {
		return err
	}
	return e.emit("invite_decline", protocol.EmitInviteDecline, protocol.InviteDeclineRequest{ChannelID: channelID})
}

// SendMessage sends a message, optionally with file attachments. Delivery
// is confirmed by the message:new broadcast.
func (e *Engine) SendMessage(channelID int, text string, files []protocol.FileAttachment) error {
	if err := e.ensure(false); err != nil {
		return err
	}
	return e.emit("message_send", protocol.EmitMessageSend, protocol.MessageSendRequest{ChannelID: channelID, Content: text, Files: files})
}

// SendTyping shares the current draft with other channel members. Offline
// it fails silently; a typing probe is not worth a warning.
func (e *Engine) SendTyping(channelID int, text string) error {
	if err := e.ensure(true); err != nil {
		return err
	}
	return e.emit("message_typing", protocol.EmitMessageTyping, protocol.MessageTypingRequest{ChannelID: channelID, Message: text})
}

// UpdateStatus changes the local user's presence status. The session is
// updated optimistically; user:event confirms and fans out to the rosters.
func (e *Engine) UpdateStatus(status protocol.UserStatus) error {
	if err := e.ensure(false); err != nil {
		return err
	}
	e.session.SetStatus(status)
	return e.emit("user_status", protocol.EmitUserStatus, protocol.UserStatusRequest{Status: status})
}

// UpdateNotifStatus changes the per-channel notification preference.
func (e *Engine) UpdateNotifStatus(channelID int, status protocol.NotifStatus) error {
	if err := e.ensure(false); err != nil {
		return err
	}
	return e.emit("member_notif_status", protocol.EmitMemberNotifStatusUpdate, protocol.MemberNotifStatusUpdateRequest{ChannelID: channelID, Status: status})
}

// OpenChat opens a channel's chat view and backfills its newest page of
// history. Opening clears any previous channel's message sequence.
func (e *Engine) OpenChat(ctx context.Context, channelID int) error {
	if _, ok := e.store.ChannelByID(channelID); !ok {
		return fmt.Errorf("open chat: %w", state.ErrNotFound)
	}
	e.store.OpenChannel(channelID)
	e.store.MarkChannelRead(channelID)
	return e.loadMessages(ctx, channelID, 0)
}

// CloseChat closes the open chat view, if any.
func (e *Engine) CloseChat() {
	e.store.CloseChat()
}

// LoadOlderMessages backfills one more page of history before the oldest
// loaded message.
func (e *Engine) LoadOlderMessages(ctx context.Context, channelID, offset int) error {
	return e.loadMessages(ctx, channelID, offset)
}

// MarkRead folds buffered unread messages into the open sequence and clears
// the channel's unread flag. Purely local.
func (e *Engine) MarkRead(channelID int) {
	e.store.MarkChannelRead(channelID)
}

// loadMessages arms the single backfill slot, requests a page and waits for
// the matching msg:list reply to resolve it. A newer request abandons the
// previous waiter, which then unblocks only through its own context.
func (e *Engine) loadMessages(ctx context.Context, channelID, offset int) error {
	if err := e.ensure(false); err != nil {
		return err
	}

	ctx, span := otel.Tracer("vpwa26/engine").Start(ctx, "engine.backfill")
	span.SetAttributes(attribute.Int("channel.id", channelID), attribute.Int("offset", offset))
	defer span.End()

	done := e.store.ArmBackfill()
	start := time.Now()
	if err := e.emit("message_list", protocol.EmitMessageList, protocol.MessageListRequest{ChannelID: channelID, Offset: offset}); err != nil {
		return err
	}

	select {
	case <-done:
		observability.ObserveBackfill(time.Since(start))
		return nil
	case <-ctx.Done():
		return fmt.Errorf("backfill channel %d: %w", channelID, ctx.Err())
	}
}
