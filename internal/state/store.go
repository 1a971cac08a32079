package state

import (
	"errors"
	"sync"

	"github.com/tomikjetu/vpwa26/internal/protocol"
)

// KickQuorum is the number of distinct voters after which the server evicts
// a non-owner. The client only renders the tally; eviction always arrives as
// a member:kicked broadcast.
const KickQuorum = 3

var (
	// ErrNotFound marks a mutation that referenced an unknown channel or
	// member. Routers treat it as a silent no-op: the server may broadcast
	// to a channel this client already departed.
	ErrNotFound = errors.New("state: not found")

	// ErrOwnerImmune rejects kick votes against the channel owner.
	ErrOwnerImmune = errors.New("state: cannot kick the channel owner")
)

// Store is the canonical local model: channels, memberships, invitations and
// the message sequence of the one currently open channel. It is mutated only
// by the domain event routers and the command layer; everything else reads
// through projections, which return defensive copies.
type Store struct {
	mu sync.RWMutex

	channels []*Channel
	invites  []Invite

	// Message sequence for the open channel only; reset when it changes.
	messages []Message
	unread   []Message

	openChannelID int

	// Single pending-completion slot for the message backfill. At most one
	// backfill is in flight; arming again abandons the earlier waiter.
	pending chan struct{}
}

// New creates an empty store.
func New() *Store {
	return &Store{}
}

func (s *Store) channelByID(id int) *Channel {
	for _, c := range s.channels {
		if c.ID == id {
			return c
		}
	}
	return nil
}

// --- channel mutations ---

// SetChannels replaces the channel list wholesale from a full snapshot.
func (s *Store) SetChannels(snapshot []protocol.Channel) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.channels = make([]*Channel, 0, len(snapshot))
	for _, ch := range snapshot {
		s.channels = append(s.channels, channelFromWire(ch))
	}
}

// AddChannel inserts a channel if absent. Reports whether it was inserted.
func (s *Store) AddChannel(ch protocol.Channel) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.channelByID(ch.ID) != nil {
		return false
	}
	s.channels = append(s.channels, channelFromWire(ch))
	return true
}

// MergeChannel inserts the channel if absent, otherwise folds the incoming
// roster into the existing one, keeping locally-set typing text.
func (s *Store) MergeChannel(ch protocol.Channel) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing := s.channelByID(ch.ID)
	if existing == nil {
		s.channels = append(s.channels, channelFromWire(ch))
		return
	}
	mergeMembers(existing, ch.Members)
}

// MergeMembers folds a roster into an existing channel, touching nothing
// else. Reports false when the channel is unknown.
func (s *Store) MergeMembers(channelID int, members map[int]protocol.Member) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing := s.channelByID(channelID)
	if existing == nil {
		return false
	}
	mergeMembers(existing, members)
	return true
}

// UpdateChannel patches an existing channel from a channel:updated payload.
func (s *Store) UpdateChannel(ch protocol.Channel) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing := s.channelByID(ch.ID)
	if existing == nil {
		return false
	}
	applyChannelUpdate(existing, ch)
	return true
}

// RemoveChannel deletes a channel. Its messages cascade: if the channel is
// the open one, the open-chat reference and the message sequence are cleared.
// Reports whether a channel was removed and whether the open chat was closed.
func (s *Store) RemoveChannel(channelID int) (removed, chatClosed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.channels[:0]
	for _, c := range s.channels {
		if c.ID == channelID {
			removed = true
			continue
		}
		kept = append(kept, c)
	}
	s.channels = kept
	if removed && s.openChannelID == channelID {
		s.closeChatLocked()
		chatClosed = true
	}
	return removed, chatClosed
}

// --- invite mutations ---

// SetInvites replaces the invite list.
func (s *Store) SetInvites(invites []Invite) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.invites = append([]Invite(nil), invites...)
}

// AddInvite appends an invite unless one for the same channel exists.
// Invites are keyed by channel id throughout.
func (s *Store) AddInvite(inv Invite) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.invites {
		if existing.ChannelID == inv.ChannelID {
			return false
		}
	}
	s.invites = append(s.invites, inv)
	return true
}

// RemoveInvite drops the invite for a channel.
func (s *Store) RemoveInvite(channelID int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.invites[:0]
	removed := false
	for _, inv := range s.invites {
		if inv.ChannelID == channelID {
			removed = true
			continue
		}
		kept = append(kept, inv)
	}
	s.invites = kept
	return removed
}

// --- message mutations ---

// ClearMessages resets the open-channel message sequence.
func (s *Store) ClearMessages() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = nil
	s.unread = nil
}

// AddMessage appends a live message for the open channel and marks the
// channel read first, folding any buffered unread messages into the sequence.
func (s *Store) AddMessage(channelID int, msg Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.markReadLocked(channelID)
	s.messages = append(s.messages, msg)
}

// PrependMessages pushes a backfill batch onto the front of the sequence,
// preserving the batch's own order.
func (s *Store) PrependMessages(batch []Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(append([]Message(nil), batch...), s.messages...)
}

// RemoveMessage deletes a message from the open sequence by id.
func (s *Store) RemoveMessage(messageID int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, m := range s.messages {
		if m.ID == messageID {
			s.messages = append(s.messages[:i], s.messages[i+1:]...)
			return true
		}
	}
	return false
}

// EditMessage patches text, time and files of a message in the open
// sequence. Fields are enumerated; author identity never changes.
func (s *Store) EditMessage(msg Message) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.messages {
		if s.messages[i].ID == msg.ID {
			s.messages[i].Text = msg.Text
			s.messages[i].Time = msg.Time
			if msg.Files != nil {
				s.messages[i].Files = msg.Files
			}
			return true
		}
	}
	return false
}

// AddUnreadMessage buffers a message that arrived while its channel was not
// being viewed.
func (s *Store) AddUnreadMessage(msg Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unread = append(s.unread, msg)
}

// MarkChannelRead folds unread messages into the sequence and clears the
// channel's unread flag.
func (s *Store) MarkChannelRead(channelID int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.markReadLocked(channelID)
}

func (s *Store) markReadLocked(channelID int) {
	s.messages = append(s.messages, s.unread...)
	s.unread = nil
	if c := s.channelByID(channelID); c != nil {
		c.HasUnread = false
	}
}

// SetChannelUnread flips the unread flag of a channel.
func (s *Store) SetChannelUnread(channelID int, unread bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.channelByID(channelID)
	if c == nil {
		return false
	}
	c.HasUnread = unread
	return true
}

// --- member mutations ---

// AddMember inserts or overwrites a member in a channel's roster with empty
// typing text. Repeated member:joined for the same id must not duplicate.
func (s *Store) AddMember(channelID int, m protocol.Member) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.channelByID(channelID)
	if c == nil {
		return ErrNotFound
	}
	c.Members[m.ID] = memberFromWire(m)
	return nil
}

// RemoveMember deletes a member and returns a copy of the removed record so
// callers can still surface the nickname after removal.
func (s *Store) RemoveMember(channelID, memberID int) (Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.channelByID(channelID)
	if c == nil {
		return Member{}, ErrNotFound
	}
	m, ok := c.Members[memberID]
	if !ok {
		return Member{}, ErrNotFound
	}
	removed := m.clone()
	delete(c.Members, memberID)
	return removed, nil
}

// ApplyKickVote records one kick vote against a member. Votes are a set
// keyed by voter user id, so re-votes never double count. Votes against the
// channel owner are rejected with ErrOwnerImmune and mutate nothing.
// serverCount, when non-negative, overrides the local tally with the
// authoritative count from a member:kick-voted broadcast.
// Returns the resulting tally.
func (s *Store) ApplyKickVote(channelID, targetMemberID, voterID, serverCount int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.channelByID(channelID)
	if c == nil {
		return 0, ErrNotFound
	}
	target, ok := c.Members[targetMemberID]
	if !ok {
		return 0, ErrNotFound
	}
	if target.ID == c.OwnerID || target.IsOwner {
		return target.KickVotes, ErrOwnerImmune
	}
	if _, voted := target.ReceivedKickVotes[voterID]; !voted {
		target.ReceivedKickVotes[voterID] = struct{}{}
		target.KickVotes++
	}
	if serverCount >= 0 {
		target.KickVotes = serverCount
	}
	return target.KickVotes, nil
}

// UpdateNotifStatus patches the notification status of one channel.
func (s *Store) UpdateNotifStatus(channelID int, status protocol.NotifStatus) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.channelByID(channelID)
	if c == nil {
		return false
	}
	c.NotifStatus = status
	return true
}

// UpdateMemberStatus mirrors a presence status change into every member
// sharing the user id, across all visible channels.
func (s *Store) UpdateMemberStatus(userID int, status protocol.UserStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.channels {
		for _, m := range c.Members {
			if m.UserID == userID {
				m.Status = status
			}
		}
	}
}

// UpdateMemberConnection mirrors a connectivity change the same way.
func (s *Store) UpdateMemberConnection(userID int, connected bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.channels {
		for _, m := range c.Members {
			if m.UserID == userID {
				m.IsConnected = connected
			}
		}
	}
}

// UpdateMemberState applies status and connectivity together.
func (s *Store) UpdateMemberState(userID int, status protocol.UserStatus, connected bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.channels {
		for _, m := range c.Members {
			if m.UserID == userID {
				m.Status = status
				m.IsConnected = connected
			}
		}
	}
}

// UpdateMemberTyping sets one member's live typing text. Empty means not
// typing.
func (s *Store) UpdateMemberTyping(channelID, memberID int, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.channelByID(channelID)
	if c == nil {
		return
	}
	if m, ok := c.Members[memberID]; ok {
		m.CurrentlyTyping = text
	}
}

// SetTyping replaces the typing state of a whole roster from a broadcast:
// everything is cleared first, then each entry applied, skipping the member
// owned by excludeUserID (the local user's own echo).
func (s *Store) SetTyping(channelID int, entries []protocol.TypingEntry, excludeUserID int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.channelByID(channelID)
	if c == nil {
		return
	}
	for _, m := range c.Members {
		m.CurrentlyTyping = ""
	}
	for _, entry := range entries {
		m, ok := c.Members[entry.MemberID]
		if !ok || m.UserID == excludeUserID {
			continue
		}
		m.CurrentlyTyping = entry.Message
	}
}

// --- open chat ---

// OpenChannel binds the message sequence to a channel, clearing whatever the
// previous channel left behind.
func (s *Store) OpenChannel(channelID int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.openChannelID = channelID
	s.messages = nil
	s.unread = nil
}

// CloseChat clears the open-chat reference and its message sequence.
func (s *Store) CloseChat() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeChatLocked()
}

func (s *Store) closeChatLocked() {
	s.openChannelID = 0
	s.messages = nil
	s.unread = nil
}

// --- backfill slot ---

// ArmBackfill installs the single pending-completion slot and returns the
// channel the caller waits on. Arming while a backfill is already in flight
// overwrites the slot: the earlier waiter is abandoned and only unblocks
// through its own context.
func (s *Store) ArmBackfill() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = make(chan struct{})
	return s.pending
}

// ResolveBackfill completes and clears the pending slot, if armed.
func (s *Store) ResolveBackfill() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending == nil {
		return false
	}
	close(s.pending)
	s.pending = nil
	return true
}

// --- projections ---

// Channels returns a snapshot of every channel.
func (s *Store) Channels() []Channel {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Channel, 0, len(s.channels))
	for _, c := range s.channels {
		out = append(out, c.clone())
	}
	return out
}

// ChannelByID returns a snapshot of one channel.
func (s *Store) ChannelByID(id int) (Channel, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c := s.channelByID(id)
	if c == nil {
		return Channel{}, false
	}
	return c.clone(), true
}

// ChannelByName looks a channel up by its globally unique name.
func (s *Store) ChannelByName(name string) (Channel, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.channels {
		if c.Name == name {
			return c.clone(), true
		}
	}
	return Channel{}, false
}

// OwnedChannels returns the channels the given user owns.
func (s *Store) OwnedChannels(userID int) []Channel {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Channel
	for _, c := range s.channels {
		if c.OwnerID == userID {
			out = append(out, c.clone())
		}
	}
	return out
}

// JoinedChannels returns the channels the given user is a member of but does
// not own.
func (s *Store) JoinedChannels(userID int) []Channel {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Channel
	for _, c := range s.channels {
		if c.OwnerID != userID {
			out = append(out, c.clone())
		}
	}
	return out
}

// TotalChannels reports the channel count.
func (s *Store) TotalChannels() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.channels)
}

// Invites returns a snapshot of pending invitations.
func (s *Store) Invites() []Invite {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Invite(nil), s.invites...)
}

// InviteByChannel returns the pending invite for a channel.
func (s *Store) InviteByChannel(channelID int) (Invite, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, inv := range s.invites {
		if inv.ChannelID == channelID {
			return inv, true
		}
	}
	return Invite{}, false
}

// Messages returns the open-channel message sequence.
func (s *Store) Messages() []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Message(nil), s.messages...)
}

// UnreadMessages returns messages buffered while the channel was unwatched.
func (s *Store) UnreadMessages() []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Message(nil), s.unread...)
}

// MemberByID returns a snapshot of one membership record.
func (s *Store) MemberByID(channelID, memberID int) (Member, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c := s.channelByID(channelID)
	if c == nil {
		return Member{}, false
	}
	m, ok := c.Members[memberID]
	if !ok {
		return Member{}, false
	}
	return m.clone(), true
}

// MemberByUserID finds the membership a user holds in one channel.
func (s *Store) MemberByUserID(channelID, userID int) (Member, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c := s.channelByID(channelID)
	if c == nil {
		return Member{}, false
	}
	for _, m := range c.Members {
		if m.UserID == userID {
			return m.clone(), true
		}
	}
	return Member{}, false
}

// OpenChannelID returns the id of the open channel, zero when none.
func (s *Store) OpenChannelID() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.openChannelID
}

// IsOpen reports whether the given channel is the open one.
func (s *Store) IsOpen(channelID int) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.openChannelID != 0 && s.openChannelID == channelID
}

// BackfillPending reports whether a backfill completion is armed.
func (s *Store) BackfillPending() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pending != nil
}
