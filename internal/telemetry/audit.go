package telemetry

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/tomikjetu/vpwa26/internal/logger"
)

// Publisher publishes audit events.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, event any) error
	Close() error
}

// AuditEmitter publishes session-lifecycle audit events for one engine run.
// A nil emitter is valid and drops everything, so callers never guard.
type AuditEmitter struct {
	publisher   Publisher
	routingKey  string
	service     string
	environment string
	sessionID   string
	log         *logger.Logger
}

// AuditEnvelope is the wire shape of one audit event.
type AuditEnvelope struct {
	SchemaVersion int          `json:"schema_version"`
	EventType     string       `json:"event_type"`
	OccurredAt    string       `json:"occurred_at"`
	Service       string       `json:"service"`
	Environment   string       `json:"environment"`
	SessionID     string       `json:"session_id"`
	UserID        int          `json:"user_id,omitempty"`
	Payload       AuditPayload `json:"payload"`
}

type AuditPayload struct {
	Level string `json:"level"`
	Text  string `json:"text"`
}

// NewAuditEmitter builds an emitter stamped with a fresh session id.
func NewAuditEmitter(publisher Publisher, routingKey, service, environment string, log *logger.Logger) *AuditEmitter {
	return &AuditEmitter{
		publisher:   publisher,
		routingKey:  routingKey,
		service:     service,
		environment: environment,
		sessionID:   uuid.NewString(),
		log:         log,
	}
}

// SessionID returns the id stamped on every event of this run.
func (e *AuditEmitter) SessionID() string {
	if e == nil {
		return ""
	}
	return e.sessionID
}

// Emit publishes one audit event. Publish failures are logged, never
// surfaced; auditing must not disturb the session it describes.
func (e *AuditEmitter) Emit(ctx context.Context, level, text string, userID int) {
	if e == nil || e.publisher == nil {
		return
	}

	envelope := AuditEnvelope{
		SchemaVersion: 1,
		EventType:     "session_audit",
		OccurredAt:    time.Now().UTC().Format(time.RFC3339Nano),
		Service:       e.service,
		Environment:   e.environment,
		SessionID:     e.sessionID,
		UserID:        userID,
		Payload: AuditPayload{
			Level: level,
			Text:  text,
		},
	}

	if err := e.publisher.Publish(ctx, e.routingKey, envelope); err != nil {
		e.log.Warnw("audit publish failed", "error", err)
	}
}
