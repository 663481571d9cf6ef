// Package mailer sends outbound notices through the mail gateway as
// replies to the original inbound message.
package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/paperco/orderdesk/internal/platform/timeouts"
)

// Config configures the mail gateway endpoint and credentials.
type Config struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
}

// Mailer replies to spooled messages through the gateway's REST API.
type Mailer struct {
	cfg Config
}

// New builds a mail gateway adapter.
func New(cfg Config) *Mailer {
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: timeouts.HTTPCall}
	}
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	return &Mailer{cfg: cfg}
}

// Reply sends body as a reply to the message, optionally referencing an
// attachment by location.
func (m *Mailer) Reply(ctx context.Context, messageID string, body string, attachment string) error {
	if strings.TrimSpace(m.cfg.BaseURL) == "" {
		return fmt.Errorf("mail gateway url is required")
	}
	if strings.TrimSpace(messageID) == "" {
		return fmt.Errorf("message id is required")
	}

	payload := map[string]string{"body": body}
	if strings.TrimSpace(attachment) != "" {
		payload["attachment"] = attachment
	}
	requestBody, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal reply request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/messages/%s/reply", m.cfg.BaseURL, url.PathEscape(messageID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(requestBody))
	if err != nil {
		return fmt.Errorf("build reply request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token := strings.TrimSpace(m.cfg.Token); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	res, err := m.cfg.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("reply request failed: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		raw, err := io.ReadAll(io.LimitReader(res.Body, 4096))
		if err != nil {
			return fmt.Errorf("read reply error body: %w", err)
		}
		return fmt.Errorf("reply to %s status %d: %s", messageID, res.StatusCode, strings.TrimSpace(string(raw)))
	}
	return nil
}
