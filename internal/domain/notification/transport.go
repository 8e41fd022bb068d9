package notification

import (
	"context"
	"errors"
	"net"
	"syscall"
)

// Message is one outbound reminder handed to the delivery transport
type Message struct {
	To      string
	ToName  string
	Subject string
	Body    string
}

// Transport sends reminder messages through an external provider. The
// implementation is a black box; errors it returns are classified by
// IsTransient to decide retry behavior.
type Transport interface {
	Send(ctx context.Context, msg Message) error
}

// TransientError wraps a transport failure that is worth retrying
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	return "transient delivery error: " + e.Err.Error()
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// MarkTransient wraps err so IsTransient reports it retryable
func MarkTransient(err error) error {
	if err == nil {
		return nil
	}
	return &TransientError{Err: err}
}

// IsTransient classifies a delivery error. Timeouts and the
// connection-reset/refused family are retryable; everything else is
// permanent.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var transient *TransientError
	if errors.As(err, &transient) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	if errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.EPIPE) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	return false
}
