package archive

import (
	"context"
	"fmt"
	"time"

	"github.com/tomikjetu/vpwa26/internal/bus"
	"github.com/tomikjetu/vpwa26/internal/logger"
)

// recorderTimeout bounds one archive write. Bus fan-out is synchronous with
// the transport read loop, so writes must not stall it for long.
const recorderTimeout = 5 * time.Second

// Recorder subscribes to the engine bus and persists what flows past.
// Write failures are logged and dropped; archiving is best effort.
type Recorder struct {
	repo Repository
	log  *logger.Logger
}

// NewRecorder builds a recorder and attaches it to the bus.
func NewRecorder(repo Repository, b *bus.Bus, log *logger.Logger) *Recorder {
	r := &Recorder{repo: repo, log: log}
	b.Subscribe(bus.TopicMessageReceived, r.onMessage)
	b.Subscribe(bus.TopicChannelRemoved, r.onChannelRemoved)
	b.Subscribe(bus.TopicMemberRemoved, r.onMemberRemoved)
	b.Subscribe(bus.TopicSessionEnded, r.onSessionEnded)
	return r
}

func (r *Recorder) onMessage(ev bus.Event) {
	payload, ok := ev.Payload.(bus.MessageReceived)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), recorderTimeout)
	defer cancel()
	err := r.repo.SaveMessage(ctx, ArchivedMessage{
		ChannelID: payload.ChannelID,
		MessageID: payload.MessageID,
		MemberID:  payload.MemberID,
		Nickname:  payload.Nickname,
		Content:   payload.Text,
		Files:     JoinFiles(payload.Files),
		SentAt:    payload.Time,
	})
	if err != nil {
		r.log.Warnw("archive message failed", "channelId", payload.ChannelID, "error", err)
	}
}

func (r *Recorder) onChannelRemoved(ev bus.Event) {
	payload, ok := ev.Payload.(bus.ChannelRemoved)
	if !ok {
		return
	}
	r.saveEvent(ev.Topic, payload.ChannelID, payload.Reason)
}

func (r *Recorder) onMemberRemoved(ev bus.Event) {
	payload, ok := ev.Payload.(bus.MemberRemoved)
	if !ok {
		return
	}
	r.saveEvent(ev.Topic, payload.ChannelID, fmt.Sprintf("member %d (%s)", payload.MemberID, payload.Nickname))
}

func (r *Recorder) onSessionEnded(ev bus.Event) {
	payload, ok := ev.Payload.(bus.SessionEnded)
	if !ok {
		return
	}
	r.saveEvent(ev.Topic, 0, payload.Reason)
}

func (r *Recorder) saveEvent(topic string, channelID int, detail string) {
	ctx, cancel := context.WithTimeout(context.Background(), recorderTimeout)
	defer cancel()
	if err := r.repo.SaveEvent(ctx, topic, channelID, detail); err != nil {
		r.log.Warnw("archive event failed", "topic", topic, "error", err)
	}
}
