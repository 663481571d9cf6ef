// Package extract holds the model-backed collaborators of the
// pipeline: message classification, order parsing, and grounding
// evaluation, all speaking the OpenAI Responses API over plain HTTP.
// Model output crossing into the domain is decoded strictly so an
// unexpected field fails the stage instead of smuggling data
// downstream.
package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/paperco/orderdesk/internal/platform/timeouts"
)

// Config configures the Responses endpoint and HTTP behavior shared by
// every model collaborator.
type Config struct {
	ResponsesURL string
	APIKey       string
	Model        string
	HTTPClient   *http.Client
}

func (cfg Config) withDefaults() Config {
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: timeouts.HTTPCall}
	}
	if strings.TrimSpace(cfg.ResponsesURL) == "" {
		cfg.ResponsesURL = "https://api.openai.com/v1/responses"
	}
	return cfg
}

type client struct {
	cfg Config
}

// respond posts one instruction/input pair to the Responses endpoint
// and returns the model's output text.
func (c client) respond(ctx context.Context, instructions, input string) (string, error) {
	apiKey := strings.TrimSpace(c.cfg.APIKey)
	model := strings.TrimSpace(c.cfg.Model)
	if apiKey == "" {
		return "", fmt.Errorf("api key is required")
	}
	if model == "" {
		return "", fmt.Errorf("model is required")
	}
	if strings.TrimSpace(input) == "" {
		return "", fmt.Errorf("input is required")
	}

	requestBody, err := json.Marshal(map[string]any{
		"model":        model,
		"instructions": instructions,
		"input":        input,
	})
	if err != nil {
		return "", fmt.Errorf("marshal responses request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.ResponsesURL, bytes.NewReader(requestBody))
	if err != nil {
		return "", fmt.Errorf("build responses request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	// Credential material is sent only as an Authorization header and is
	// never echoed in errors or logs.
	req.Header.Set("Authorization", "Bearer "+apiKey)

	res, err := c.cfg.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("responses request failed: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		body, err := io.ReadAll(io.LimitReader(res.Body, 4096))
		if err != nil {
			return "", fmt.Errorf("read responses error body: %w", err)
		}
		return "", fmt.Errorf("responses request status %d: %s", res.StatusCode, strings.TrimSpace(string(body)))
	}

	var payload struct {
		OutputText string `json:"output_text"`
		Output     []struct {
			Content []struct {
				Type string `json:"type"`
				Text string `json:"text"`
			} `json:"content"`
		} `json:"output"`
	}
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("decode responses payload: %w", err)
	}
	outputText := strings.TrimSpace(payload.OutputText)
	if outputText == "" {
		for _, item := range payload.Output {
			for _, content := range item.Content {
				if strings.TrimSpace(content.Text) != "" {
					outputText = strings.TrimSpace(content.Text)
					break
				}
			}
			if outputText != "" {
				break
			}
		}
	}
	if outputText == "" {
		return "", fmt.Errorf("responses payload missing output text")
	}
	return outputText, nil
}

// decodeStrict parses model output as JSON, rejecting unknown fields
// and trailing content. A fenced code block around the JSON is
// tolerated since models add it despite instructions.
func decodeStrict(text string, v any) error {
	dec := json.NewDecoder(strings.NewReader(stripCodeFence(text)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decode model output: %w", err)
	}
	if dec.More() {
		return fmt.Errorf("decode model output: trailing content after JSON document")
	}
	return nil
}

func stripCodeFence(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}
