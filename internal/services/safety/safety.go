// Package safety screens inbound messages against a content-safety
// service before any model sees them.
package safety

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/paperco/orderdesk/internal/platform/timeouts"
	"github.com/paperco/orderdesk/internal/services/pipeline/domain"
)

// Config configures the content-safety endpoint. An empty BaseURL
// disables screening and every message passes.
type Config struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
}

// Screen calls the content-safety service for each inbound message.
type Screen struct {
	cfg Config
}

// New builds a content-safety adapter.
func New(cfg Config) *Screen {
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: timeouts.HTTPCall}
	}
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	return &Screen{cfg: cfg}
}

type screenRequest struct {
	Subject string `json:"subject"`
	Sender  string `json:"sender"`
	Body    string `json:"body"`
}

type screenResponse struct {
	Flagged bool   `json:"flagged"`
	Reason  string `json:"reason"`
}

// Screen submits the message for analysis. A flagged verdict carries
// the service's reason for the audit log.
func (s *Screen) Screen(ctx context.Context, msg domain.InboundMessage) (domain.SafetyVerdict, error) {
	if s == nil || s.cfg.BaseURL == "" {
		return domain.SafetyVerdict{Safe: true}, nil
	}

	requestBody, err := json.Marshal(screenRequest{
		Subject: msg.Subject,
		Sender:  msg.Sender,
		Body:    msg.Body,
	})
	if err != nil {
		return domain.SafetyVerdict{}, fmt.Errorf("marshal screen request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.BaseURL+"/v1/screen", bytes.NewReader(requestBody))
	if err != nil {
		return domain.SafetyVerdict{}, fmt.Errorf("build screen request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token := strings.TrimSpace(s.cfg.Token); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	res, err := s.cfg.HTTPClient.Do(req)
	if err != nil {
		return domain.SafetyVerdict{}, fmt.Errorf("screen request failed: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		raw, err := io.ReadAll(io.LimitReader(res.Body, 4096))
		if err != nil {
			return domain.SafetyVerdict{}, fmt.Errorf("read screen error body: %w", err)
		}
		return domain.SafetyVerdict{}, fmt.Errorf("screen message %s status %d: %s", msg.ID, res.StatusCode, strings.TrimSpace(string(raw)))
	}

	var verdict screenResponse
	if err := json.NewDecoder(res.Body).Decode(&verdict); err != nil {
		return domain.SafetyVerdict{}, fmt.Errorf("decode screen response: %w", err)
	}
	if verdict.Flagged && strings.TrimSpace(verdict.Reason) == "" {
		verdict.Reason = "flagged by content safety"
	}
	return domain.SafetyVerdict{Safe: !verdict.Flagged, Reason: verdict.Reason}, nil
}
