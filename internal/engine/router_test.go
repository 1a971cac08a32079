package engine_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomikjetu/vpwa26/internal/bus"
	"github.com/tomikjetu/vpwa26/internal/notify"
	"github.com/tomikjetu/vpwa26/internal/protocol"
	"github.com/tomikjetu/vpwa26/internal/state"
)

func stateInvite(id, channelID int, name string) state.Invite {
	return state.Invite{ID: id, ChannelID: channelID, Name: name}
}

func testChannel(id, ownerID int, name string, members ...protocol.Member) protocol.Channel {
	roster := make(map[int]protocol.Member, len(members))
	for _, m := range members {
		roster[m.ID] = m
	}
	return protocol.Channel{ID: id, OwnerID: ownerID, Name: name, Members: roster}
}

func TestChannelListReplaces(t *testing.T) {
	h := newHarness(t)
	h.connect(t)
	h.store.AddChannel(testChannel(9, 1, "stale"))

	h.socket.fire(t, protocol.EventChannelList, protocol.ChannelListEvent{Channels: []protocol.Channel{
		testChannel(1, 1, "general"),
		testChannel(2, 1, "random"),
	}})

	require.Equal(t, 2, h.store.TotalChannels())
	_, ok := h.store.ChannelByID(9)
	assert.False(t, ok)
}

func TestChannelJoinedNotifiesOnlySelf(t *testing.T) {
	h := newHarness(t)
	h.connect(t)

	h.socket.fire(t, protocol.EventChannelJoined, protocol.ChannelJoinedEvent{
		UserID:  200,
		Channel: testChannel(1, 200, "general"),
	})
	assert.Empty(t, h.notifier.all())

	h.socket.fire(t, protocol.EventChannelJoined, protocol.ChannelJoinedEvent{
		UserID:  100,
		Channel: testChannel(2, 200, "random"),
	})
	assert.True(t, h.notifier.hasLevel(notify.Positive))
	assert.Equal(t, 2, h.store.TotalChannels())
}

func TestChannelListMembersPublishesRoster(t *testing.T) {
	h := newHarness(t)
	h.connect(t)
	h.store.AddChannel(testChannel(1, 1, "general"))

	var rosters []bus.MemberList
	h.bus.Subscribe(bus.TopicMemberList, func(ev bus.Event) {
		rosters = append(rosters, ev.Payload.(bus.MemberList))
	})

	h.socket.fire(t, protocol.EventChannelListMembers, protocol.ChannelMembersEvent{
		ChannelID: 1,
		Members:   []protocol.Member{{ID: 10, UserID: 100, Nickname: "alice"}},
	})

	require.Len(t, rosters, 1)
	require.Len(t, rosters[0].Members, 1)
	assert.Equal(t, "alice", rosters[0].Members[0].Nickname)

	// The store roster refreshes too, without disturbing metadata.
	ch, _ := h.store.ChannelByID(1)
	assert.Equal(t, "general", ch.Name)
	assert.Len(t, ch.Members, 1)
}

func TestChannelDeletedClosesOpenChat(t *testing.T) {
	h := newHarness(t)
	h.connect(t)
	h.store.AddChannel(testChannel(1, 1, "general"))
	h.store.OpenChannel(1)

	var closed []bus.ChatClosed
	h.bus.Subscribe(bus.TopicChatClosed, func(ev bus.Event) {
		closed = append(closed, ev.Payload.(bus.ChatClosed))
	})

	h.socket.fire(t, protocol.EventChannelDeleted, protocol.ChannelDeletedEvent{ChannelID: 1})

	require.Len(t, closed, 1)
	assert.Zero(t, h.store.TotalChannels())
	assert.Zero(t, h.store.OpenChannelID())
	assert.True(t, h.notifier.hasLevel(notify.Warning))
}

func TestChannelDeletedUnknownIsNoOp(t *testing.T) {
	h := newHarness(t)
	h.connect(t)

	h.socket.fire(t, protocol.EventChannelDeleted, protocol.ChannelDeletedEvent{ChannelID: 404})

	assert.Empty(t, h.notifier.all())
}

func TestMemberLeftCapturesNickname(t *testing.T) {
	h := newHarness(t)
	h.connect(t)
	h.store.AddChannel(testChannel(1, 1, "general",
		protocol.Member{ID: 10, UserID: 101, Nickname: "bob"},
	))

	var removed []bus.MemberRemoved
	h.bus.Subscribe(bus.TopicMemberRemoved, func(ev bus.Event) {
		removed = append(removed, ev.Payload.(bus.MemberRemoved))
	})

	h.socket.fire(t, protocol.EventMemberLeft, protocol.MemberLeftEvent{ChannelID: 1, MemberID: 10})

	require.Len(t, removed, 1)
	assert.Equal(t, "bob", removed[0].Nickname)
	_, ok := h.store.MemberByID(1, 10)
	assert.False(t, ok)
}

func TestMemberKickedSelfRemovesChannel(t *testing.T) {
	h := newHarness(t)
	h.connect(t)
	h.store.AddChannel(testChannel(1, 1, "general",
		protocol.Member{ID: 10, UserID: 100, Nickname: "alice"},
	))
	h.store.OpenChannel(1)

	var closed int
	h.bus.Subscribe(bus.TopicChatClosed, func(bus.Event) { closed++ })

	h.socket.fire(t, protocol.EventMemberKicked, protocol.MemberKickedEvent{
		ChannelID: 1, MemberID: 10, UserID: 100, KickedBy: 3,
	})

	assert.Zero(t, h.store.TotalChannels())
	assert.Equal(t, 1, closed)
	assert.True(t, h.notifier.hasLevel(notify.Negative))
}

func TestMemberKickedOtherRemovesMemberOnly(t *testing.T) {
	h := newHarness(t)
	h.connect(t)
	h.store.AddChannel(testChannel(1, 1, "general",
		protocol.Member{ID: 10, UserID: 100, Nickname: "alice"},
		protocol.Member{ID: 11, UserID: 101, Nickname: "bob"},
	))

	h.socket.fire(t, protocol.EventMemberKicked, protocol.MemberKickedEvent{
		ChannelID: 1, MemberID: 11, UserID: 101, KickedBy: 3,
	})

	assert.Equal(t, 1, h.store.TotalChannels())
	_, ok := h.store.MemberByID(1, 11)
	assert.False(t, ok)
}

func TestKickVotedAppliesServerCount(t *testing.T) {
	h := newHarness(t)
	h.connect(t)
	h.store.AddChannel(testChannel(1, 1, "general",
		protocol.Member{ID: 2, UserID: 2, Nickname: "target"},
	))

	h.socket.fire(t, protocol.EventMemberKickVoted, protocol.MemberKickVotedEvent{
		ChannelID: 1, TargetMemberID: 2, VoterID: 5, VoteCount: 2,
	})

	target, ok := h.store.MemberByID(1, 2)
	require.True(t, ok)
	assert.Equal(t, 2, target.KickVotes)
}

func TestKickVotedAgainstOwnerMutatesNothing(t *testing.T) {
	h := newHarness(t)
	h.connect(t)
	h.store.AddChannel(testChannel(1, 3, "general",
		protocol.Member{ID: 3, UserID: 3, Nickname: "owner", IsOwner: true},
	))

	h.socket.fire(t, protocol.EventMemberKickVoted, protocol.MemberKickVotedEvent{
		ChannelID: 1, TargetMemberID: 3, VoterID: 5, VoteCount: 1,
	})

	owner, ok := h.store.MemberByID(1, 3)
	require.True(t, ok)
	assert.Zero(t, owner.KickVotes)
}

func TestInviteReceivedThenDeclined(t *testing.T) {
	h := newHarness(t)
	h.connect(t)

	h.socket.fire(t, protocol.EventInviteReceived, protocol.InviteReceivedEvent{
		InviteID: 7, ChannelID: 5, ChannelName: "secret",
	})
	require.Len(t, h.store.Invites(), 1)
	assert.True(t, h.notifier.hasLevel(notify.Info))

	h.socket.fire(t, protocol.EventInviteDeclined, protocol.InviteDeclinedEvent{ChannelID: 5, UserID: 100})
	assert.Empty(t, h.store.Invites())
	_, ok := h.store.ChannelByID(5)
	assert.False(t, ok)
}

func TestInviteAcceptedBySelfMaterializesChannel(t *testing.T) {
	h := newHarness(t)
	h.connect(t)
	h.store.AddInvite(stateInvite(7, 5, "secret"))

	h.socket.fire(t, protocol.EventInviteAccepted, protocol.InviteAcceptedEvent{
		UserID:  100,
		Channel: testChannel(5, 1, "secret"),
	})

	assert.Empty(t, h.store.Invites())
	_, ok := h.store.ChannelByID(5)
	assert.True(t, ok)
}

func TestInviteAcceptedByOtherOnlyUpdatesExisting(t *testing.T) {
	h := newHarness(t)
	h.connect(t)

	// Channel unknown locally: nothing materializes.
	h.socket.fire(t, protocol.EventInviteAccepted, protocol.InviteAcceptedEvent{
		UserID:  200,
		Channel: testChannel(5, 1, "secret"),
	})
	_, ok := h.store.ChannelByID(5)
	assert.False(t, ok)

	// Known channel: roster refreshes.
	h.store.AddChannel(testChannel(6, 1, "shared"))
	h.socket.fire(t, protocol.EventInviteAccepted, protocol.InviteAcceptedEvent{
		UserID:  200,
		Channel: testChannel(6, 1, "shared", protocol.Member{ID: 20, UserID: 200, Nickname: "carol"}),
	})
	_, ok = h.store.MemberByID(6, 20)
	assert.True(t, ok)
}

func TestUserEventUnion(t *testing.T) {
	h := newHarness(t)
	h.connect(t)
	h.store.AddChannel(testChannel(1, 1, "general",
		protocol.Member{ID: 11, UserID: 101, Nickname: "bob"},
	))

	h.socket.fire(t, protocol.EventUser, protocol.UserEvent{
		Type: protocol.UserEventStateChanged, UserID: 101, Status: protocol.StatusDND, IsConnected: true,
	})
	bob, _ := h.store.MemberByID(1, 11)
	assert.Equal(t, protocol.StatusDND, bob.Status)
	assert.True(t, bob.IsConnected)

	h.socket.fire(t, protocol.EventUser, protocol.UserEvent{
		Type: protocol.UserEventStatusUpdated, Status: protocol.StatusDND,
	})
	assert.True(t, h.session.DND())

	h.socket.fire(t, protocol.EventUser, protocol.UserEvent{
		Type: protocol.UserEventProfile,
		User: &protocol.Profile{ID: 100, Nick: "alice2", Status: protocol.StatusActive},
	})
	u, ok := h.session.User()
	require.True(t, ok)
	assert.Equal(t, "alice2", u.Nick)

	// Unknown tags are dropped without side effects.
	h.socket.fire(t, protocol.EventUser, protocol.UserEvent{Type: "future_event"})
}

func TestServerErrorSurfacedVerbatim(t *testing.T) {
	h := newHarness(t)
	h.connect(t)

	h.socket.fire(t, protocol.EventError, protocol.ErrorEvent{Error: "Channel name already taken"})

	notices := h.notifier.all()
	require.Len(t, notices, 1)
	assert.Equal(t, notify.Negative, notices[0].Level)
	assert.Equal(t, "Channel name already taken", notices[0].Message)
}

func TestMalformedPayloadIsDropped(t *testing.T) {
	h := newHarness(t)
	h.connect(t)

	h.socket.fire(t, protocol.EventChannelList, "not an object")

	assert.Zero(t, h.store.TotalChannels())
}
