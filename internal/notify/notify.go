package notify

import "github.com/tomikjetu/vpwa26/internal/logger"

// Level classifies a transient notice.
type Level string

const (
	Positive Level = "positive"
	Negative Level = "negative"
	Info     Level = "info"
	Warning  Level = "warning"
)

// Notice is a single fire-and-forget user-facing message.
type Notice struct {
	Level   Level
	Message string
	Caption string
}

// Notifier surfaces transient notices to the user. The engine never blocks
// on it and never observes delivery.
type Notifier interface {
	// Notify shows an in-app transient notice.
	Notify(n Notice)
	// System raises an OS-level notification, used when the app is backgrounded.
	System(title, body string)
}

// Visibility reports whether the host application is foregrounded. Incoming
// message notices escalate to system notifications when it is not.
type Visibility interface {
	Foreground() bool
}

// StaticVisibility is a fixed visibility answer, for headless deployments
// and tests.
type StaticVisibility bool

func (v StaticVisibility) Foreground() bool { return bool(v) }

// LogNotifier writes notices to the structured log. It is the notifier for
// headless deployments where no UI is attached.
type LogNotifier struct {
	Log *logger.Logger
}

func (n *LogNotifier) Notify(notice Notice) {
	n.Log.Infow("notice", "level", string(notice.Level), "message", notice.Message, "caption", notice.Caption)
}

func (n *LogNotifier) System(title, body string) {
	n.Log.Infow("system notice", "title", title, "body", body)
}

var _ Notifier = (*LogNotifier)(nil)
