package review

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

func testChannel(fn roundTripFunc) *Channel {
	return New(Config{
		BaseURL:    "https://chat.test/api",
		Token:      "xoxb-test",
		ChannelID:  "C123",
		HTTPClient: &http.Client{Transport: fn},
	})
}

func TestChannelPost(t *testing.T) {
	t.Parallel()

	t.Run("returns thread timestamp", func(t *testing.T) {
		t.Parallel()
		var seenAuth, seenPath string
		var seenBody map[string]string
		ch := testChannel(func(req *http.Request) (*http.Response, error) {
			seenAuth = req.Header.Get("Authorization")
			seenPath = req.URL.Path
			raw, _ := io.ReadAll(req.Body)
			_ = json.Unmarshal(raw, &seenBody)
			return response(http.StatusOK, `{"ok":true,"ts":"1717230000.000100"}`), nil
		})
		thread, err := ch.Post(context.Background(), "Order awaiting approval")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if thread != "1717230000.000100" {
			t.Errorf("unexpected thread %q", thread)
		}
		if seenAuth != "Bearer xoxb-test" {
			t.Errorf("unexpected auth %q", seenAuth)
		}
		if seenPath != "/api/chat.postMessage" {
			t.Errorf("unexpected path %q", seenPath)
		}
		if seenBody["channel"] != "C123" || seenBody["text"] != "Order awaiting approval" {
			t.Errorf("unexpected body %v", seenBody)
		}
	})

	t.Run("api error is surfaced", func(t *testing.T) {
		t.Parallel()
		ch := testChannel(func(*http.Request) (*http.Response, error) {
			return response(http.StatusOK, `{"ok":false,"error":"channel_not_found"}`), nil
		})
		if _, err := ch.Post(context.Background(), "x"); err == nil || !strings.Contains(err.Error(), "channel_not_found") {
			t.Fatalf("expected api error, got %v", err)
		}
	})

	t.Run("http error is surfaced", func(t *testing.T) {
		t.Parallel()
		ch := testChannel(func(*http.Request) (*http.Response, error) {
			return response(http.StatusBadGateway, `upstream down`), nil
		})
		if _, err := ch.Post(context.Background(), "x"); err == nil || !strings.Contains(err.Error(), "502") {
			t.Fatalf("expected status error, got %v", err)
		}
	})

	t.Run("missing channel id", func(t *testing.T) {
		t.Parallel()
		ch := New(Config{HTTPClient: &http.Client{Transport: roundTripFunc(func(*http.Request) (*http.Response, error) {
			t.Fatal("no request expected")
			return nil, nil
		})}})
		if _, err := ch.Post(context.Background(), "x"); err == nil {
			t.Fatal("expected error for missing channel id")
		}
	})
}

func TestChannelReplies(t *testing.T) {
	t.Parallel()

	t.Run("skips the thread root", func(t *testing.T) {
		t.Parallel()
		var seenQuery string
		ch := testChannel(func(req *http.Request) (*http.Response, error) {
			seenQuery = req.URL.RawQuery
			return response(http.StatusOK, `{"ok":true,"messages":[
				{"ts":"1.0","text":"Order awaiting approval"},
				{"ts":"1.1","text":"approve"},
				{"ts":"1.2","text":"  "}
			]}`), nil
		})
		replies, err := ch.Replies(context.Background(), "1.0")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(replies) != 1 || replies[0] != "approve" {
			t.Errorf("unexpected replies %v", replies)
		}
		if !strings.Contains(seenQuery, "channel=C123") || !strings.Contains(seenQuery, "ts=1.0") {
			t.Errorf("unexpected query %q", seenQuery)
		}
	})

	t.Run("empty thread handle", func(t *testing.T) {
		t.Parallel()
		ch := testChannel(func(*http.Request) (*http.Response, error) {
			t.Fatal("no request expected")
			return nil, nil
		})
		if _, err := ch.Replies(context.Background(), " "); err == nil {
			t.Fatal("expected error for empty thread")
		}
	})

	t.Run("api error", func(t *testing.T) {
		t.Parallel()
		ch := testChannel(func(*http.Request) (*http.Response, error) {
			return response(http.StatusOK, `{"ok":false,"error":"thread_not_found"}`), nil
		})
		if _, err := ch.Replies(context.Background(), "1.0"); err == nil || !strings.Contains(err.Error(), "thread_not_found") {
			t.Fatalf("expected api error, got %v", err)
		}
	})
}
