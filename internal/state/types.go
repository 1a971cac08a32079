package state

import (
	"fmt"
	"time"

	"github.com/tomikjetu/vpwa26/internal/protocol"
)

// Member is one user's membership record within one channel, extended with
// the ephemeral typing text that never comes from the server.
type Member struct {
	ID                int
	UserID            int
	Nickname          string
	IsOwner           bool
	KickVotes         int
	ReceivedKickVotes map[int]struct{}
	Status            protocol.UserStatus
	IsConnected       bool
	CurrentlyTyping   string
}

// Channel is the locally materialized channel with its member roster.
type Channel struct {
	ID          int
	OwnerID     int
	Name        string
	IsPrivate   bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
	NotifStatus protocol.NotifStatus
	HasUnread   bool
	Members     map[int]*Member
}

// Invite is a pending channel invitation, keyed by channel id.
type Invite struct {
	ID        int
	ChannelID int
	Name      string
	InvitedAt time.Time
}

// Message is one entry of the open-channel message sequence. ID is zero for
// locally composed messages that have not been persisted yet.
type Message struct {
	ID       int
	MemberID int
	Nickname string
	Text     string
	Time     time.Time
	Files    []string
}

// memberFromWire materializes a server member snapshot. Typing text always
// starts empty; it is local-only state.
func memberFromWire(m protocol.Member) *Member {
	votes := make(map[int]struct{}, len(m.ReceivedKickVotes))
	for _, voter := range m.ReceivedKickVotes {
		votes[voter] = struct{}{}
	}
	status := m.Status
	if status == "" {
		status = protocol.StatusActive
	}
	return &Member{
		ID:                m.ID,
		UserID:            m.UserID,
		Nickname:          m.Nickname,
		IsOwner:           m.IsOwner,
		KickVotes:         m.KickVotes,
		ReceivedKickVotes: votes,
		Status:            status,
		IsConnected:       m.IsConnected,
		CurrentlyTyping:   "",
	}
}

// channelFromWire materializes a full channel snapshot.
func channelFromWire(ch protocol.Channel) *Channel {
	members := make(map[int]*Member, len(ch.Members))
	for id, m := range ch.Members {
		members[id] = memberFromWire(m)
	}
	notif := ch.NotifStatus
	if notif == "" {
		notif = protocol.NotifAll
	}
	return &Channel{
		ID:          ch.ID,
		OwnerID:     ch.OwnerID,
		Name:        ch.Name,
		IsPrivate:   ch.IsPrivate,
		CreatedAt:   ch.CreatedAt,
		UpdatedAt:   ch.UpdatedAt,
		NotifStatus: notif,
		Members:     members,
	}
}

// mergeMembers folds a wire roster into an existing channel. Existing
// members keep their locally-set typing text; new ones start with none.
// Fields outside the roster are untouched.
func mergeMembers(dst *Channel, incoming map[int]protocol.Member) {
	for id, wire := range incoming {
		merged := memberFromWire(wire)
		if existing, ok := dst.Members[id]; ok {
			merged.CurrentlyTyping = existing.CurrentlyTyping
		}
		dst.Members[id] = merged
	}
}

// applyChannelUpdate patches exactly the fields a channel:updated event may
// change. Enumerated on purpose: blind struct assignment loses local state
// when payload shapes drift.
func applyChannelUpdate(dst *Channel, wire protocol.Channel) {
	dst.Name = wire.Name
	dst.IsPrivate = wire.IsPrivate
	dst.UpdatedAt = wire.UpdatedAt
	if wire.Members != nil {
		mergeMembers(dst, wire.Members)
	}
}

// MessageFromWire converts a server message, resolving the author nickname
// from the provided value (the owning roster, or the payload's author ref).
// File attachments flatten to "name.mime" display strings.
func MessageFromWire(m protocol.Message, nickname string) Message {
	files := make([]string, 0, len(m.Files))
	for _, f := range m.Files {
		files = append(files, fmt.Sprintf("%s.%s", f.Name, f.Mime))
	}
	return Message{
		ID:       m.ID,
		MemberID: m.MemberID,
		Nickname: nickname,
		Text:     m.Content,
		Time:     m.CreatedAt,
		Files:    files,
	}
}

func (m *Member) clone() Member {
	out := *m
	out.ReceivedKickVotes = make(map[int]struct{}, len(m.ReceivedKickVotes))
	for voter := range m.ReceivedKickVotes {
		out.ReceivedKickVotes[voter] = struct{}{}
	}
	return out
}

func (c *Channel) clone() Channel {
	out := *c
	out.Members = make(map[int]*Member, len(c.Members))
	for id, m := range c.Members {
		copied := m.clone()
		out.Members[id] = &copied
	}
	return out
}
