// Package mail provides outbound delivery transports for reminder messages.
package mail

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/agencydesk/backend/internal/domain/notification"
)

// maxResponseSize limits the response body size to prevent memory exhaustion
const maxResponseSize = 1 * 1024 * 1024 // 1MB max response

// Config holds the mail provider connection settings
type Config struct {
	Endpoint    string
	APIKey      string
	FromAddress string
	FromName    string
	Timeout     time.Duration
}

// Validate checks the required provider settings
func (c *Config) Validate() error {
	if c.Endpoint == "" {
		return fmt.Errorf("mail endpoint is required")
	}
	if c.FromAddress == "" {
		return fmt.Errorf("mail from address is required")
	}
	return nil
}

// HTTPTransport delivers messages through an HTTP mail provider API.
// Provider-side throttling and outages surface as transient errors so the
// delivery executor retries them; rejection of the message itself is
// permanent.
type HTTPTransport struct {
	config     Config
	httpClient *http.Client
	logger     *zap.Logger
}

// NewHTTPTransport creates a new HTTP mail transport
func NewHTTPTransport(config Config, logger *zap.Logger) (*HTTPTransport, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	timeout := config.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &HTTPTransport{
		config: config,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}, nil
}

// mailAddress is one address in the provider payload
type mailAddress struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

// sendRequest is the provider API payload
type sendRequest struct {
	From    mailAddress `json:"from"`
	To      mailAddress `json:"to"`
	Subject string      `json:"subject"`
	Body    string      `json:"body"`
}

// Send posts the message to the provider API
func (t *HTTPTransport) Send(ctx context.Context, msg notification.Message) error {
	payload := sendRequest{
		From:    mailAddress{Email: t.config.FromAddress, Name: t.config.FromName},
		To:      mailAddress{Email: msg.To, Name: msg.ToName},
		Subject: msg.Subject,
		Body:    msg.Body,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal mail payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.config.Endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build mail request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if t.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+t.config.APIKey)
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		// Connection failures and timeouts are worth retrying
		return notification.MarkTransient(fmt.Errorf("mail provider request failed: %w", err))
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	detail, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	sendErr := fmt.Errorf("mail provider returned status %d: %s", resp.StatusCode, string(detail))

	t.logger.Warn("Mail provider rejected request",
		zap.Int("status", resp.StatusCode),
		zap.String("recipient", msg.To))

	switch {
	case resp.StatusCode == http.StatusTooManyRequests,
		resp.StatusCode == http.StatusRequestTimeout,
		resp.StatusCode >= 500:
		return notification.MarkTransient(sendErr)
	default:
		return sendErr
	}
}

// Ensure HTTPTransport implements Transport
var _ notification.Transport = (*HTTPTransport)(nil)
