package mail

import (
	"context"

	"go.uber.org/zap"

	"github.com/agencydesk/backend/internal/domain/notification"
)

// StubTransport logs messages instead of sending them.
// Use this for development until a real mail provider is configured.
type StubTransport struct {
	logger *zap.Logger
}

// NewStubTransport creates a new StubTransport
func NewStubTransport(logger *zap.Logger) *StubTransport {
	return &StubTransport{logger: logger}
}

// Send logs the message and reports success
func (t *StubTransport) Send(_ context.Context, msg notification.Message) error {
	t.logger.Info("Stub mail transport: message not sent",
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject))
	return nil
}

// Ensure StubTransport implements Transport
var _ notification.Transport = (*StubTransport)(nil)
