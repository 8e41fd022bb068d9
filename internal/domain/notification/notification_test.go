package notification

import (
	"context"
	"errors"
	"fmt"
	"net"
	"syscall"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRecord(t *testing.T) {
	t.Run("creates pending record", func(t *testing.T) {
		rec, err := NewRecord(uuid.New(), uuid.New(), "student@example.com", "Mei Lin", KindDueSoon)
		require.NoError(t, err)
		assert.Equal(t, StatusPending, rec.Status)
		assert.Nil(t, rec.SentAt)
	})

	t.Run("rejects unknown kind", func(t *testing.T) {
		_, err := NewRecord(uuid.New(), uuid.New(), "student@example.com", "", Kind("SMS"))
		assert.Error(t, err)
	})

	t.Run("rejects empty recipient", func(t *testing.T) {
		_, err := NewRecord(uuid.New(), uuid.New(), "  ", "", KindOverdue)
		assert.Error(t, err)
	})

	t.Run("rejects missing installment", func(t *testing.T) {
		_, err := NewRecord(uuid.New(), uuid.Nil, "student@example.com", "", KindOverdue)
		assert.Error(t, err)
	})
}

func TestRecordOutcomes(t *testing.T) {
	rec, err := NewRecord(uuid.New(), uuid.New(), "student@example.com", "", KindOverdue)
	require.NoError(t, err)

	at := time.Now()
	rec.MarkSent(at)
	assert.Equal(t, StatusSent, rec.Status)
	require.NotNil(t, rec.SentAt)
	assert.Equal(t, at, *rec.SentAt)

	rec2, err := NewRecord(uuid.New(), uuid.New(), "student@example.com", "", KindOverdue)
	require.NoError(t, err)
	rec2.MarkFailed("mailbox unavailable")
	assert.Equal(t, StatusFailed, rec2.Status)
	assert.Equal(t, "mailbox unavailable", rec2.ErrorDetail)
	assert.Nil(t, rec2.SentAt)
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"marked transient", MarkTransient(errors.New("503 from provider")), true},
		{"wrapped marked transient", fmt.Errorf("send: %w", MarkTransient(errors.New("429"))), true},
		{"net timeout", &net.OpError{Op: "dial", Err: timeoutErr{}}, true},
		{"connection refused", &net.OpError{Op: "dial", Err: syscall.ECONNREFUSED}, true},
		{"connection reset", fmt.Errorf("write: %w", syscall.ECONNRESET), true},
		{"deadline exceeded", context.DeadlineExceeded, true},
		{"plain error", errors.New("invalid recipient"), false},
		{"canceled context", context.Canceled, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTransient(tt.err))
		})
	}
}
