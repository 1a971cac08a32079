package bus

import (
	"time"

	"github.com/tomikjetu/vpwa26/internal/protocol"
)

// ChatClosed is published when the currently open chat must be cleared.
type ChatClosed struct {
	ChannelID int
}

// MemberRemoved is published after a member leaves the local model.
type MemberRemoved struct {
	ChannelID int
	MemberID  int
	Nickname  string
}

// MemberList carries a roster response destined for a member-list dialog.
type MemberList struct {
	ChannelID int
	Members   []protocol.Member
}

// MessageReceived is the archive/view feed for every applied message:new.
type MessageReceived struct {
	ChannelID int
	MessageID int
	MemberID  int
	Nickname  string
	Text      string
	Time      time.Time
	Files     []string
}

// ChannelRemoved is published when a channel leaves the local model.
type ChannelRemoved struct {
	ChannelID int
	Reason    string
}

// SessionEnded signals a terminal auth failure; consumers must re-authenticate.
type SessionEnded struct {
	Reason string
}
