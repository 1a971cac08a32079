package protocol

import (
	"strings"
	"time"
)

// NotifStatus controls which incoming messages raise a notification for a
// channel: every message, or only ones mentioning the member.
type NotifStatus string

const (
	NotifAll      NotifStatus = "all"
	NotifMentions NotifStatus = "mentions"
)

// UserStatus is the user-selected presence status. Connectivity is tracked
// separately; offline is not a status.
type UserStatus string

const (
	StatusActive UserStatus = "active"
	StatusDND    UserStatus = "dnd"
)

// UserRef is the minimal author reference embedded in message payloads.
type UserRef struct {
	ID   int    `json:"id"`
	Nick string `json:"nick"`
}

// Profile is the local user's full profile, delivered on (re)connect.
type Profile struct {
	ID          int        `json:"id"`
	Nick        string     `json:"nick"`
	Email       string     `json:"email"`
	FirstName   string     `json:"firstName"`
	LastName    string     `json:"lastName"`
	Status      UserStatus `json:"status"`
	IsConnected bool       `json:"isConnected"`
}

// Member is a membership record within one channel as the server sends it.
type Member struct {
	ID                int        `json:"id"`
	UserID            int        `json:"userId"`
	ChannelID         int        `json:"channelId"`
	Nickname          string     `json:"nickname"`
	IsOwner           bool       `json:"isOwner"`
	JoinedAt          time.Time  `json:"joinedAt"`
	KickVotes         int        `json:"kickVotes"`
	ReceivedKickVotes []int      `json:"receivedKickVotes"`
	Status            UserStatus `json:"status"`
	IsConnected       bool       `json:"isConnected"`
}

// Channel is a channel snapshot with its full member roster.
type Channel struct {
	ID          int            `json:"id"`
	OwnerID     int            `json:"ownerId"`
	Name        string         `json:"name"`
	IsPrivate   bool           `json:"isPrivate"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
	Members     map[int]Member `json:"members"`
	NotifStatus NotifStatus    `json:"notifStatus"`
}

// Invite is a pending channel invitation.
type Invite struct {
	ID          int       `json:"id"`
	UserID      int       `json:"userId"`
	ChannelID   int       `json:"channelId"`
	ChannelName string    `json:"channelName"`
	CreatedAt   time.Time `json:"createdAt"`
}

// FileAttachment describes a file referenced by a message. Only metadata
// travels over the socket; content is uploaded out of band.
type FileAttachment struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	Mime string `json:"mime_type"`
	Size int64  `json:"size"`
}

// Message is a persisted channel message as the server sends it.
type Message struct {
	ID        int              `json:"id"`
	Content   string           `json:"content"`
	CreatedAt time.Time        `json:"createdAt"`
	ChannelID int              `json:"channelId"`
	MemberID  int              `json:"memberId"`
	Files     []FileAttachment `json:"files"`
	User      UserRef          `json:"user"`
}

// TypingEntry is one member's live typing text.
type TypingEntry struct {
	MemberID int    `json:"memberId"`
	Message  string `json:"message"`
}

// Outbound request payloads.

type ChannelCreateRequest struct {
	Name      string `json:"name"`
	IsPrivate bool   `json:"isPrivate"`
}

type ChannelJoinRequest struct {
	Name string `json:"name"`
}

type ChannelListMembersRequest struct {
	ChannelID int `json:"channelId"`
}

type ChannelCancelRequest struct {
	ChannelID int `json:"channelId"`
}

type ChannelQuitRequest struct {
	ChannelID int `json:"channelId"`
}

type MemberKickVoteRequest struct {
	ChannelID      int `json:"channelId"`
	TargetMemberID int `json:"targetMemberId"`
}

type MemberNotifStatusUpdateRequest struct {
	ChannelID int         `json:"channelId"`
	Status    NotifStatus `json:"status"`
}

type InviteCreateRequest struct {
	ChannelID int    `json:"channelId"`
	Nickname  string `json:"nickname"`
}

type InviteAcceptRequest struct {
	ChannelID int `json:"channelId"`
}

type InviteDeclineRequest struct {
	ChannelID int `json:"channelId"`
}

type MessageListRequest struct {
	ChannelID int `json:"channelId"`
	Offset    int `json:"offset"`
}

type MessageSendRequest struct {
	ChannelID int              `json:"channelId"`
	Content   string           `json:"content,omitempty"`
	Files     []FileAttachment `json:"files,omitempty"`
}

type MessageTypingRequest struct {
	ChannelID int    `json:"channelId"`
	Message   string `json:"message"`
}

type UserStatusRequest struct {
	Status UserStatus `json:"status"`
}

// Inbound event payloads.

type ChannelListEvent struct {
	Channels []Channel `json:"channels"`
}

type ChannelCreatedEvent struct {
	Channel Channel `json:"channel"`
}

type ChannelJoinedEvent struct {
	UserID  int     `json:"userId"`
	Channel Channel `json:"channel"`
}

type ChannelMembersEvent struct {
	ChannelID int      `json:"channelId"`
	Members   []Member `json:"members"`
}

type ChannelUpdatedEvent struct {
	Channel Channel `json:"channel"`
}

type ChannelLeftEvent struct {
	ChannelID int `json:"channelId"`
}

type ChannelDeletedEvent struct {
	ChannelID int `json:"channelId"`
}

type MemberJoinedEvent struct {
	ChannelID int    `json:"channelId"`
	Member    Member `json:"member"`
}

type MemberLeftEvent struct {
	ChannelID int `json:"channelId"`
	MemberID  int `json:"memberId"`
}

type MemberKickedEvent struct {
	ChannelID int `json:"channelId"`
	MemberID  int `json:"memberId"`
	UserID    int `json:"userId"`
	KickedBy  int `json:"kickedBy"`
}

type MemberKickVotedEvent struct {
	ChannelID      int `json:"channelId"`
	TargetMemberID int `json:"targetMemberId"`
	VoterID        int `json:"voterId"`
	VoteCount      int `json:"voteCount"`
}

type NotifStatusUpdatedEvent struct {
	ChannelID   int         `json:"channelId"`
	NotifStatus NotifStatus `json:"notifStatus"`
}

type InviteListEvent struct {
	Invites []Invite `json:"invites"`
}

type InviteSentEvent struct {
	InviteID    int       `json:"inviteId"`
	ChannelName string    `json:"channelName"`
	Nickname    string    `json:"nickname"`
	InvitedAt   time.Time `json:"invitedAt"`
}

type InviteReceivedEvent struct {
	InviteID    int       `json:"inviteId"`
	ChannelID   int       `json:"channelId"`
	ChannelName string    `json:"channelName"`
	InvitedAt   time.Time `json:"invitedAt"`
}

type InviteAcceptedEvent struct {
	UserID  int     `json:"userId"`
	Channel Channel `json:"channel"`
}

type InviteDeclinedEvent struct {
	ChannelID int `json:"channelId"`
	UserID    int `json:"userId"`
}

type MessageListEvent struct {
	Messages []Message `json:"messages"`
}

type MessageNewEvent struct {
	ChannelID int     `json:"channelId"`
	MemberID  int     `json:"memberId"`
	Message   Message `json:"message"`
}

type MessageDeletedEvent struct {
	ChannelID int `json:"channelId"`
	MessageID int `json:"messageId"`
}

type MessageEditedEvent struct {
	ChannelID int     `json:"channelId"`
	Message   Message `json:"message"`
}

type TypingBroadcastEvent struct {
	ChannelID int           `json:"channelId"`
	Typing    []TypingEntry `json:"typing"`
}

// UserEvent is the tagged union delivered on user:event. Type selects which
// of the remaining fields are populated.
type UserEvent struct {
	Type        string     `json:"type"`
	UserID      int        `json:"userId,omitempty"`
	Status      UserStatus `json:"status,omitempty"`
	IsConnected bool       `json:"isConnected,omitempty"`
	User        *Profile   `json:"user,omitempty"`
}

type ErrorEvent struct {
	Error string `json:"error"`
}

// authErrorPrefix matches every authentication failure the server produces
// ("Authentication error: No token provided", "... Invalid token",
// "... Token expired" and the bare form).
const authErrorPrefix = "Authentication error"

// IsAuthError reports whether a connect error message is a terminal
// authentication failure rather than a transient connectivity problem.
func IsAuthError(msg string) bool {
	return strings.HasPrefix(msg, authErrorPrefix)
}
