package archive

import (
	"context"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
)

// ArchivedMessage is one persisted channel message.
type ArchivedMessage struct {
	ID         int       `db:"id"`
	ChannelID  int       `db:"channel_id"`
	MessageID  int       `db:"message_id"`
	MemberID   int       `db:"member_id"`
	Nickname   string    `db:"nickname"`
	Content    string    `db:"content"`
	Files      string    `db:"files"`
	SentAt     time.Time `db:"sent_at"`
	ArchivedAt time.Time `db:"archived_at"`
}

// SessionEvent is one persisted lifecycle event.
type SessionEvent struct {
	ID         int       `db:"id"`
	Topic      string    `db:"topic"`
	ChannelID  int       `db:"channel_id"`
	Detail     string    `db:"detail"`
	OccurredAt time.Time `db:"occurred_at"`
}

// Repository abstracts archive persistence.
type Repository interface {
	SaveMessage(ctx context.Context, msg ArchivedMessage) error
	SaveEvent(ctx context.Context, topic string, channelID int, detail string) error
	RecentMessages(ctx context.Context, channelID, limit int) ([]ArchivedMessage, error)
}

// Repo is a sqlx implementation of Repository.
type Repo struct {
	db *sqlx.DB
}

var _ Repository = (*Repo)(nil)

// NewRepo constructs a Repo.
func NewRepo(db *sqlx.DB) *Repo {
	return &Repo{db: db}
}

// SaveMessage upserts one message. Reconnects replay recent history, so the
// same message id can arrive more than once.
func (r *Repo) SaveMessage(ctx context.Context, msg ArchivedMessage) error {
	_, err := r.db.ExecContext(ctx, `
        INSERT INTO archived_messages (channel_id, message_id, member_id, nickname, content, files, sent_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        ON CONFLICT (channel_id, message_id) DO NOTHING`,
		msg.ChannelID, msg.MessageID, msg.MemberID, msg.Nickname, msg.Content, msg.Files, msg.SentAt)
	return err
}

// SaveEvent records one lifecycle event.
func (r *Repo) SaveEvent(ctx context.Context, topic string, channelID int, detail string) error {
	_, err := r.db.ExecContext(ctx, `
        INSERT INTO session_events (topic, channel_id, detail)
        VALUES ($1, $2, $3)`,
		topic, channelID, detail)
	return err
}

// RecentMessages returns the newest messages of a channel, newest first.
func (r *Repo) RecentMessages(ctx context.Context, channelID, limit int) ([]ArchivedMessage, error) {
	messages := []ArchivedMessage{}
	err := r.db.SelectContext(ctx, &messages, `
        SELECT id, channel_id, message_id, member_id, nickname, content, files, sent_at, archived_at
        FROM archived_messages
        WHERE channel_id = $1
        ORDER BY sent_at DESC
        LIMIT $2`,
		channelID, limit)
	return messages, err
}

// JoinFiles flattens attachment display names for the files column.
func JoinFiles(files []string) string {
	return strings.Join(files, ",")
}
