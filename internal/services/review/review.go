// Package review posts approval requests to a Slack-compatible review
// channel and reads back thread replies for the approval gate.
package review

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

// Config configures the review channel endpoints and credentials.
type Config struct {
	BaseURL    string
	Token      string
	ChannelID  string
	HTTPClient *http.Client
}

// Channel is a Slack-compatible review channel. Post publishes the
// approval summary and returns the thread timestamp; Replies lists the
// reply texts under that thread.
type Channel struct {
	cfg Config
}

// New builds a review channel adapter.
func New(cfg Config) *Channel {
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: timeouts.HTTPCall}
	}
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = "https://slack.com/api"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Channel{cfg: cfg}
}

// Post publishes text to the configured channel and returns the thread
// handle replies will arrive under.
func (c *Channel) Post(ctx context.Context, text string) (string, error) {
	if strings.TrimSpace(c.cfg.ChannelID) == "" {
		return "", fmt.Errorf("channel id is required")
	}
	requestBody, err := json.Marshal(map[string]string{
		"channel": c.cfg.ChannelID,
		"text":    text,
	})
	if err != nil {
		return "", fmt.Errorf("marshal post request: %w", err)
	}

	var payload struct {
		OK    bool   `json:"ok"`
		Error string `json:"error"`
		TS    string `json:"ts"`
	}
	if err := c.call(ctx, http.MethodPost, "/chat.postMessage", bytes.NewReader(requestBody), "application/json; charset=utf-8", &payload); err != nil {
		return "", err
	}
	if !payload.OK {
		return "", fmt.Errorf("post message: %s", payload.Error)
	}
	if strings.TrimSpace(payload.TS) == "" {
		return "", fmt.Errorf("post message: response missing thread timestamp")
	}
	return payload.TS, nil
}

// Replies lists the texts posted under the thread, excluding the
// original message.
func (c *Channel) Replies(ctx context.Context, thread string) ([]string, error) {
	if strings.TrimSpace(thread) == "" {
		return nil, fmt.Errorf("thread is required")
	}
	query := url.Values{}
	query.Set("channel", c.cfg.ChannelID)
	query.Set("ts", thread)

	var payload struct {
		OK       bool   `json:"ok"`
		Error    string `json:"error"`
		Messages []struct {
			TS   string `json:"ts"`
			Text string `json:"text"`
		} `json:"messages"`
	}
	if err := c.call(ctx, http.MethodGet, "/conversations.replies?"+query.Encode(), nil, "", &payload); err != nil {
		return nil, err
	}
	if !payload.OK {
		return nil, fmt.Errorf("list replies: %s", payload.Error)
	}

	var replies []string
	for _, msg := range payload.Messages {
		// The thread root is returned alongside its replies.
		if msg.TS == thread {
			continue
		}
		if strings.TrimSpace(msg.Text) != "" {
			replies = append(replies, msg.Text)
		}
	}
	return replies, nil
}

func (c *Channel) call(ctx context.Context, method, path string, body io.Reader, contentType string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, body)
	if err != nil {
		return fmt.Errorf("build %s request: %w", path, err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Authorization", "Bearer "+strings.TrimSpace(c.cfg.Token))

	res, err := c.cfg.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s request failed: %w", path, err)
	}
	defer res.Body.Close()
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		raw, err := io.ReadAll(io.LimitReader(res.Body, 4096))
		if err != nil {
			return fmt.Errorf("read %s error body: %w", path, err)
		}
		return fmt.Errorf("%s status %d: %s", path, res.StatusCode, strings.TrimSpace(string(raw)))
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}
