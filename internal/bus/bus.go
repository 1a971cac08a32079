package bus

import "sync"

// Topics published by the engine. View-layer collaborators subscribe to these
// instead of being called into directly, so the core stays UI-agnostic.
const (
	TopicChatClosed      = "chat.closed"       // open-chat view must clear; payload ChatClosed
	TopicMemberRemoved   = "member.removed"    // member gone, close detail views; payload MemberRemoved
	TopicMemberList      = "members.listed"    // roster response for a dialog; payload MemberList
	TopicMessageReceived = "message.received"  // delivered message:new; payload MessageReceived
	TopicChannelRemoved  = "channel.removed"   // channel left local model; payload ChannelRemoved
	TopicSessionEnded    = "session.ended"     // terminal auth failure, force re-login; payload SessionEnded
)

// Event is a single domain notification.
type Event struct {
	Topic   string
	Payload any
}

// Handler consumes one event. Handlers run synchronously on the publishing
// goroutine and must not block.
type Handler func(Event)

// Bus is a minimal in-process publish/subscribe fan-out.
type Bus struct {
	mu   sync.RWMutex
	subs map[string][]Handler
}

// New creates an empty bus.
func New() *Bus {
	return &Bus{subs: make(map[string][]Handler)}
}

// Subscribe registers a handler for a topic.
func (b *Bus) Subscribe(topic string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[topic] = append(b.subs[topic], h)
}

// Publish delivers the event to every subscriber of its topic.
func (b *Bus) Publish(evt Event) {
	b.mu.RLock()
	handlers := b.subs[evt.Topic]
	b.mu.RUnlock()

	for _, h := range handlers {
		h(evt)
	}
}
