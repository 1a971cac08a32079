package engine_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/tomikjetu/vpwa26/internal/engine"
	"github.com/tomikjetu/vpwa26/internal/mocks"
	"github.com/tomikjetu/vpwa26/internal/notify"
	"github.com/tomikjetu/vpwa26/internal/protocol"
	"github.com/tomikjetu/vpwa26/internal/state"
)

func TestCommandsRejectedOffline(t *testing.T) {
	h := newHarness(t)

	err := h.eng.SendMessage(1, "hello", nil)
	require.ErrorIs(t, err, engine.ErrNotConnected)
	assert.True(t, h.notifier.hasLevel(notify.Warning))
	assert.Empty(t, h.socket.frames(protocol.EmitMessageSend))
}

func TestTypingRejectedSilentlyOffline(t *testing.T) {
	h := newHarness(t)

	err := h.eng.SendTyping(1, "draft")
	require.ErrorIs(t, err, engine.ErrNotConnected)
	assert.Empty(t, h.notifier.all())
}

func TestCreateChannelEmits(t *testing.T) {
	h := newHarness(t)
	h.connect(t)

	require.NoError(t, h.eng.CreateChannel("general", true))

	frames := h.socket.frames(protocol.EmitChannelCreate)
	require.Len(t, frames, 1)
	req := frames[0].Payload.(protocol.ChannelCreateRequest)
	assert.Equal(t, "general", req.Name)
	assert.True(t, req.IsPrivate)

	// Nothing materializes before channel:created comes back.
	assert.Zero(t, h.store.TotalChannels())
}

func TestQuitChannelDeclined(t *testing.T) {
	confirmer := new(mocks.ConfirmerMock)
	confirmer.On("Confirm", mock.Anything, mock.Anything).Return(false, nil).Once()

	h := newHarness(t, withConfirmer(confirmer))
	h.connect(t)

	proceeded, err := h.eng.QuitChannel(context.Background(), 1)
	require.NoError(t, err)
	assert.False(t, proceeded)
	assert.Empty(t, h.socket.frames(protocol.EmitChannelQuit))
	confirmer.AssertExpectations(t)
}

func TestQuitChannelConfirmed(t *testing.T) {
	h := newHarness(t)
	h.connect(t)

	proceeded, err := h.eng.QuitChannel(context.Background(), 1)
	require.NoError(t, err)
	assert.True(t, proceeded)
	assert.Len(t, h.socket.frames(protocol.EmitChannelQuit), 1)
}

func TestVoteKickOwnerRejectedLocally(t *testing.T) {
	h := newHarness(t)
	h.connect(t)
	h.store.AddChannel(protocol.Channel{ID: 1, OwnerID: 3, Name: "general", Members: map[int]protocol.Member{
		3: {ID: 3, UserID: 3, Nickname: "owner", IsOwner: true},
	}})

	err := h.eng.VoteKick(1, 3)
	require.ErrorIs(t, err, state.ErrOwnerImmune)
	assert.Empty(t, h.socket.frames(protocol.EmitMemberKickVote))
	assert.True(t, h.notifier.hasLevel(notify.Negative))
}

func TestVoteKickEmitsAndTalliesOptimistically(t *testing.T) {
	h := newHarness(t)
	h.connect(t)
	h.store.AddChannel(protocol.Channel{ID: 1, OwnerID: 3, Name: "general", Members: map[int]protocol.Member{
		3: {ID: 3, UserID: 3, Nickname: "owner", IsOwner: true},
		4: {ID: 4, UserID: 4, Nickname: "target"},
	}})

	require.NoError(t, h.eng.VoteKick(1, 4))

	frames := h.socket.frames(protocol.EmitMemberKickVote)
	require.Len(t, frames, 1)
	req := frames[0].Payload.(protocol.MemberKickVoteRequest)
	assert.Equal(t, 4, req.TargetMemberID)

	target, ok := h.store.MemberByID(1, 4)
	require.True(t, ok)
	assert.Equal(t, 1, target.KickVotes)
	assert.True(t, h.notifier.hasLevel(notify.Info))
}

func TestOpenChatBackfillsAndResolves(t *testing.T) {
	h := newHarness(t)
	h.connect(t)
	h.store.AddChannel(protocol.Channel{ID: 1, OwnerID: 100, Name: "general", Members: map[int]protocol.Member{
		10: {ID: 10, UserID: 100, Nickname: "alice"},
	}})

	done := make(chan error, 1)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		done <- h.eng.OpenChat(ctx, 1)
	}()

	// Wait for the backfill request, then answer it.
	require.Eventually(t, func() bool {
		return len(h.socket.frames(protocol.EmitMessageList)) == 1
	}, 2*time.Second, 5*time.Millisecond)

	h.socket.fire(t, protocol.EventMessageList, protocol.MessageListEvent{Messages: []protocol.Message{
		{ID: 2, Content: "newer", ChannelID: 1, MemberID: 10},
		{ID: 1, Content: "older", ChannelID: 1, MemberID: 10},
	}})

	require.NoError(t, <-done)
	msgs := h.store.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "older", msgs[0].Text)
	assert.Equal(t, "newer", msgs[1].Text)
	assert.Equal(t, 1, h.store.OpenChannelID())
}

func TestOpenChatUnknownChannel(t *testing.T) {
	h := newHarness(t)
	h.connect(t)

	err := h.eng.OpenChat(context.Background(), 404)
	require.ErrorIs(t, err, state.ErrNotFound)
}

func TestLoadOlderMessagesAbandonedByContext(t *testing.T) {
	h := newHarness(t)
	h.connect(t)
	h.store.AddChannel(protocol.Channel{ID: 1, OwnerID: 100, Name: "general"})
	h.store.OpenChannel(1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := h.eng.LoadOlderMessages(ctx, 1, 20)
	require.ErrorIs(t, err, context.Canceled)
}

func TestUpdateStatusOptimistic(t *testing.T) {
	h := newHarness(t)
	h.connect(t)

	require.NoError(t, h.eng.UpdateStatus(protocol.StatusDND))

	assert.True(t, h.session.DND())
	frames := h.socket.frames(protocol.EmitUserStatus)
	require.Len(t, frames, 1)
	assert.Equal(t, protocol.StatusDND, frames[0].Payload.(protocol.UserStatusRequest).Status)
}
