package protocol

// Client-to-server events.
const (
	EmitChannelList        = "channel:list"
	EmitChannelCreate      = "channel:create"
	EmitChannelJoin        = "channel:join"
	EmitChannelListMembers = "channel:list-members"
	EmitChannelCancel      = "channel:cancel"
	EmitChannelQuit        = "channel:quit"

	EmitMemberKickVote          = "member:kick-vote"
	EmitMemberNotifStatusUpdate = "member:notif-status:update"

	EmitInviteList    = "invite:list"
	EmitInviteCreate  = "invite:create"
	EmitInviteAccept  = "invite:accept"
	EmitInviteDecline = "invite:decline"

	EmitMessageList   = "msg:list"
	EmitMessageSend   = "msg:send"
	EmitMessageTyping = "msg:typing"

	EmitUserStatus = "user:status"
)

// Server-to-client events.
const (
	EventChannelList        = "channel:list"
	EventChannelCreated     = "channel:created"
	EventChannelJoined      = "channel:joined"
	EventChannelListMembers = "channel:list-members"
	EventChannelUpdated     = "channel:updated"
	EventChannelLeft        = "channel:left"
	EventChannelDeleted     = "channel:deleted"

	EventMemberJoined             = "member:joined"
	EventMemberLeft               = "member:left"
	EventMemberKickVoted          = "member:kick-voted"
	EventMemberKicked             = "member:kicked"
	EventMemberNotifStatusUpdated = "member:notif-status:updated"

	EventInviteList     = "invite:list"
	EventInviteSent     = "invite:sent"
	EventInviteReceived = "channel:invite:received"
	EventInviteAccepted = "channel:invite:accepted"
	EventInviteDeclined = "channel:invite:declined"

	EventMessageList    = "msg:list"
	EventMessageNew     = "message:new"
	EventMessageDeleted = "message:deleted"
	EventMessageEdited  = "message:edited"
	EventMessageTyping  = "msg:typing"

	EventUser  = "user:event"
	EventError = "error"
)

// user:event discriminator values.
const (
	UserEventStatusUpdated = "status_update_success"
	UserEventStateChanged  = "user_state_changed"
	UserEventProfile       = "profile"
)
