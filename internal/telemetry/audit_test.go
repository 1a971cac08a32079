package telemetry_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/tomikjetu/vpwa26/internal/logger"
	"github.com/tomikjetu/vpwa26/internal/mocks"
	"github.com/tomikjetu/vpwa26/internal/telemetry"
)

func TestEmitPublishesEnvelope(t *testing.T) {
	publisher := new(mocks.PublisherMock)
	emitter := telemetry.NewAuditEmitter(publisher, "audit.session", "vpwa26-engine", "test", logger.Nop())

	var captured telemetry.AuditEnvelope
	publisher.On("Publish", mock.Anything, "audit.session", mock.MatchedBy(func(event any) bool {
		envelope, ok := event.(telemetry.AuditEnvelope)
		if ok {
			captured = envelope
		}
		return ok
	})).Return(nil).Once()

	emitter.Emit(context.Background(), "INFO", "session connected", 42)

	publisher.AssertExpectations(t)
	assert.Equal(t, 1, captured.SchemaVersion)
	assert.Equal(t, "session_audit", captured.EventType)
	assert.Equal(t, "vpwa26-engine", captured.Service)
	assert.Equal(t, 42, captured.UserID)
	assert.Equal(t, emitter.SessionID(), captured.SessionID)
	assert.Equal(t, "INFO", captured.Payload.Level)
	require.NotEmpty(t, captured.OccurredAt)
}

func TestEmitSwallowsPublishErrors(t *testing.T) {
	publisher := new(mocks.PublisherMock)
	emitter := telemetry.NewAuditEmitter(publisher, "audit.session", "vpwa26-engine", "test", logger.Nop())

	publisher.On("Publish", mock.Anything, "audit.session", mock.Anything).Return(assert.AnError).Once()

	emitter.Emit(context.Background(), "WARN", "disconnected", 0)
	publisher.AssertExpectations(t)
}

func TestNilEmitterIsInert(t *testing.T) {
	var emitter *telemetry.AuditEmitter

	emitter.Emit(context.Background(), "INFO", "ignored", 0)
	assert.Empty(t, emitter.SessionID())
}
