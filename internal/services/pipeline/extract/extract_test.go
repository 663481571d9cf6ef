package extract

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"
)

type roundTripFunc func(req *http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func response(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     make(http.Header),
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

// modelConfig wires a Config whose endpoint always answers with the
// given output text.
func modelConfig(t *testing.T, outputText string) Config {
	t.Helper()
	return modelConfigFunc(t, func(*http.Request) string { return outputText })
}

func modelConfigFunc(t *testing.T, outputFor func(*http.Request) string) Config {
	t.Helper()
	client := &http.Client{
		Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
			body, err := json.Marshal(map[string]any{"output_text": outputFor(req)})
			if err != nil {
				t.Fatalf("marshal fake response: %v", err)
			}
			return response(http.StatusOK, string(body)), nil
		}),
	}
	return Config{
		ResponsesURL: "https://model.test/v1/responses",
		APIKey:       "test-key",
		Model:        "test-model",
		HTTPClient:   client,
	}
}

func TestClientRespond(t *testing.T) {
	t.Parallel()

	t.Run("sends bearer auth and model", func(t *testing.T) {
		t.Parallel()
		var seenAuth string
		var seenBody map[string]any
		client := &http.Client{
			Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
				seenAuth = req.Header.Get("Authorization")
				raw, _ := io.ReadAll(req.Body)
				_ = json.Unmarshal(raw, &seenBody)
				return response(http.StatusOK, `{"output_text":"ok"}`), nil
			}),
		}
		c := newTestClient(Config{ResponsesURL: "https://model.test", APIKey: "secret", Model: "m1", HTTPClient: client})
		got, err := c.respond(context.Background(), "inst", "input")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != "ok" {
			t.Errorf("unexpected output: %q", got)
		}
		if seenAuth != "Bearer secret" {
			t.Errorf("unexpected auth header: %q", seenAuth)
		}
		if seenBody["model"] != "m1" || seenBody["instructions"] != "inst" || seenBody["input"] != "input" {
			t.Errorf("unexpected request body: %v", seenBody)
		}
	})

	t.Run("falls back to output content items", func(t *testing.T) {
		t.Parallel()
		body := `{"output":[{"content":[{"type":"output_text","text":"from items"}]}]}`
		client := &http.Client{
			Transport: roundTripFunc(func(*http.Request) (*http.Response, error) {
				return response(http.StatusOK, body), nil
			}),
		}
		c := newTestClient(Config{ResponsesURL: "https://model.test", APIKey: "k", Model: "m", HTTPClient: client})
		got, err := c.respond(context.Background(), "", "input")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != "from items" {
			t.Errorf("unexpected output: %q", got)
		}
	})

	t.Run("non-2xx status surfaces body", func(t *testing.T) {
		t.Parallel()
		client := &http.Client{
			Transport: roundTripFunc(func(*http.Request) (*http.Response, error) {
				return response(http.StatusTooManyRequests, `rate limited`), nil
			}),
		}
		c := newTestClient(Config{ResponsesURL: "https://model.test", APIKey: "k", Model: "m", HTTPClient: client})
		_, err := c.respond(context.Background(), "", "input")
		if err == nil || !strings.Contains(err.Error(), "429") {
			t.Fatalf("expected status error, got %v", err)
		}
	})

	t.Run("missing output text", func(t *testing.T) {
		t.Parallel()
		client := &http.Client{
			Transport: roundTripFunc(func(*http.Request) (*http.Response, error) {
				return response(http.StatusOK, `{"output":[]}`), nil
			}),
		}
		c := newTestClient(Config{ResponsesURL: "https://model.test", APIKey: "k", Model: "m", HTTPClient: client})
		if _, err := c.respond(context.Background(), "", "input"); err == nil {
			t.Fatal("expected error for missing output")
		}
	})

	t.Run("missing credentials", func(t *testing.T) {
		t.Parallel()
		c := newTestClient(Config{ResponsesURL: "https://model.test", Model: "m"}.withDefaults())
		if _, err := c.respond(context.Background(), "", "input"); err == nil {
			t.Fatal("expected error for missing api key")
		}
	})
}

func newTestClient(cfg Config) client {
	return client{cfg: cfg}
}

func TestDecodeStrict(t *testing.T) {
	t.Parallel()

	type doc struct {
		A string `json:"a"`
	}

	t.Run("plain json", func(t *testing.T) {
		t.Parallel()
		var d doc
		if err := decodeStrict(`{"a":"x"}`, &d); err != nil || d.A != "x" {
			t.Fatalf("unexpected result: %v %+v", err, d)
		}
	})

	t.Run("fenced json", func(t *testing.T) {
		t.Parallel()
		var d doc
		input := "```json\n{\"a\":\"x\"}\n```"
		if err := decodeStrict(input, &d); err != nil || d.A != "x" {
			t.Fatalf("unexpected result: %v %+v", err, d)
		}
	})

	t.Run("unknown field rejected", func(t *testing.T) {
		t.Parallel()
		var d doc
		if err := decodeStrict(`{"a":"x","smuggled":"y"}`, &d); err == nil {
			t.Fatal("expected error for unknown field")
		}
	})

	t.Run("trailing content rejected", func(t *testing.T) {
		t.Parallel()
		var d doc
		if err := decodeStrict(`{"a":"x"} {"a":"y"}`, &d); err == nil {
			t.Fatal("expected error for trailing content")
		}
	})
}

func TestConfigDefaults(t *testing.T) {
	t.Parallel()
	cfg := Config{}.withDefaults()
	if cfg.HTTPClient == nil {
		t.Error("expected default http client")
	}
	if cfg.ResponsesURL != "https://api.openai.com/v1/responses" {
		t.Errorf("unexpected default url %q", cfg.ResponsesURL)
	}
}

