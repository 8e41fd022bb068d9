package automation

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/agencydesk/backend/internal/domain/notification"
)

const (
	defaultMaxRetries = 3
	defaultBaseDelay  = time.Second
)

// DeliveryOutcome is the terminal result of one delivery attempt sequence
type DeliveryOutcome struct {
	Sent     bool
	Attempts int
	Err      error
}

// DeliveryExecutor sends reminder messages through the configured
// transport, retrying transient failures with exponential backoff
// (1s, 2s, 4s with the default policy). Permanent errors and retry
// exhaustion both end in a failed outcome; the caller persists either way.
type DeliveryExecutor struct {
	transport  notification.Transport
	maxRetries int
	baseDelay  time.Duration
	logger     *zap.Logger
	sleep      func(ctx context.Context, d time.Duration) error
}

// NewDeliveryExecutor creates an executor with the default retry policy
func NewDeliveryExecutor(transport notification.Transport, logger *zap.Logger) *DeliveryExecutor {
	return &DeliveryExecutor{
		transport:  transport,
		maxRetries: defaultMaxRetries,
		baseDelay:  defaultBaseDelay,
		logger:     logger,
		sleep:      sleepContext,
	}
}

// WithRetryPolicy overrides the retry count and base delay
func (e *DeliveryExecutor) WithRetryPolicy(maxRetries int, baseDelay time.Duration) *DeliveryExecutor {
	if maxRetries >= 0 {
		e.maxRetries = maxRetries
	}
	if baseDelay > 0 {
		e.baseDelay = baseDelay
	}
	return e
}

// WithSleep overrides the backoff sleeper, for tests
func (e *DeliveryExecutor) WithSleep(sleep func(ctx context.Context, d time.Duration) error) *DeliveryExecutor {
	e.sleep = sleep
	return e
}

// Deliver runs the bounded retry loop for one message. The backoff doubles
// per attempt; only errors classified transient are retried.
func (e *DeliveryExecutor) Deliver(ctx context.Context, msg notification.Message) DeliveryOutcome {
	var lastErr error
	for attempt := 0; ; attempt++ {
		err := e.transport.Send(ctx, msg)
		if err == nil {
			return DeliveryOutcome{Sent: true, Attempts: attempt + 1}
		}
		lastErr = err
		if !notification.IsTransient(err) {
			e.logger.Warn("delivery failed permanently",
				zap.String("recipient", msg.To),
				zap.Int("attempt", attempt+1),
				zap.Error(err))
			return DeliveryOutcome{Attempts: attempt + 1, Err: lastErr}
		}
		if attempt >= e.maxRetries {
			e.logger.Warn("delivery retries exhausted",
				zap.String("recipient", msg.To),
				zap.Int("attempts", attempt+1),
				zap.Error(err))
			return DeliveryOutcome{Attempts: attempt + 1, Err: lastErr}
		}
		delay := e.baseDelay << uint(attempt)
		e.logger.Debug("transient delivery error, retrying",
			zap.String("recipient", msg.To),
			zap.Int("attempt", attempt+1),
			zap.Duration("backoff", delay),
			zap.Error(err))
		if err := e.sleep(ctx, delay); err != nil {
			return DeliveryOutcome{Attempts: attempt + 1, Err: lastErr}
		}
	}
}

// sleepContext suspends for d or until the context is done
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
