package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"group-service/internal/mocks"
)

func TestEmitPublishesEnvelope(t *testing.T) {
	publisher := new(mocks.PublisherMock)
	emitter := NewAuditEmitter(publisher, "audit_log.group_service", "group-service", "test")

	var captured AuditEnvelope
	publisher.On("Publish", mock.Anything, "audit_log.group_service", mock.Anything).
		Run(func(args mock.Arguments) {
			captured = args.Get(2).(AuditEnvelope)
		}).
		Return(nil).Once()

	userID := int64(42)
	emitter.Emit(context.Background(), "INFO", "Group created", "req-1", &userID)

	publisher.AssertExpectations(t)
	require.Equal(t, 1, captured.SchemaVersion)
	require.Equal(t, "audit_log", captured.EventType)
	require.Equal(t, "group-service", captured.Service)
	require.Equal(t, "req-1", captured.RequestID)
	require.NotNil(t, captured.UserID)
	require.Equal(t, int64(42), *captured.UserID)
	require.Equal(t, "INFO", captured.Payload.Level)
	require.Equal(t, "Group created", captured.Payload.Text)
	require.NotEmpty(t, captured.OccurredAt)
}

func TestEmitSwallowsPublishErrors(t *testing.T) {
	publisher := new(mocks.PublisherMock)
	emitter := NewAuditEmitter(publisher, "audit_log.group_service", "group-service", "test")

	publisher.On("Publish", mock.Anything, mock.Anything, mock.Anything).
		Return(errors.New("broker down")).Once()

	emitter.Emit(context.Background(), "ERROR", "boom", "req-2", nil)
	publisher.AssertExpectations(t)
}

func TestEmitOnNilEmitter(t *testing.T) {
	var emitter *AuditEmitter
	emitter.Emit(context.Background(), "INFO", "ignored", "req-3", nil)
}
