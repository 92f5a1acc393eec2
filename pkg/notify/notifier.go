// Package notify carries pipeline failure diagnostics to the operator.
// Notification delivery is best-effort: the pipeline never fails because a
// notification could not be sent.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

// Notifier is the outbound notification port.
type Notifier interface {
	Notify(ctx context.Context, message string) error
}

// Config selects and configures the notifier implementation.
type Config struct {
	// WebhookURL enables the webhook notifier when set; otherwise
	// notifications go to the log.
	WebhookURL string        `yaml:"webhookUrl"`
	Timeout    time.Duration `yaml:"timeout"`
}

// SetDefaults sets default values for the configuration
func (c *Config) SetDefaults() {
	if c.Timeout == 0 {
		c.Timeout = 5 * time.Second
	}
}

// New builds the configured notifier wrapped in best-effort delivery.
func New(log logrus.FieldLogger, cfg *Config) Notifier {
	cfg.SetDefaults()

	var inner Notifier
	if cfg.WebhookURL != "" {
		inner = &WebhookNotifier{
			url:     cfg.WebhookURL,
			timeout: cfg.Timeout,
			client:  &http.Client{},
		}
	} else {
		inner = &LogNotifier{log: log}
	}

	return &BestEffort{log: log.WithField("component", "notifier"), inner: inner}
}

// LogNotifier writes notifications to the service log.
type LogNotifier struct {
	log logrus.FieldLogger
}

// NewLogNotifier creates a log-backed notifier.
func NewLogNotifier(log logrus.FieldLogger) *LogNotifier {
	return &LogNotifier{log: log}
}

// Notify logs the message at warning level.
func (n *LogNotifier) Notify(_ context.Context, message string) error {
	n.log.WithField("component", "notifier").Warn(message)
	return nil
}

// WebhookNotifier posts notifications as JSON to an operator-provided URL.
type WebhookNotifier struct {
	url     string
	timeout time.Duration
	client  *http.Client
}

// Notify posts {"text": message} to the webhook.
func (n *WebhookNotifier) Notify(ctx context.Context, message string) error {
	body, err := json.Marshal(map[string]string{"text": message})
	if err != nil {
		return fmt.Errorf("failed to encode notification: %w", err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create notification request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to deliver notification: %w", err)
	}

	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("notification rejected with status %d", resp.StatusCode)
	}

	return nil
}

// BestEffort wraps a notifier and swallows delivery failures with a log
// line, as the pipeline treats notification failure as non-fatal.
type BestEffort struct {
	log   logrus.FieldLogger
	inner Notifier
}

// Notify delivers via the inner notifier, logging failures.
func (n *BestEffort) Notify(ctx context.Context, message string) error {
	if err := n.inner.Notify(ctx, message); err != nil {
		n.log.WithError(err).Warn("Failed to deliver notification")
	}

	return nil
}
