package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestGroqClient_Complete(t *testing.T) {
	var got chatCompletionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer gsk_test" {
			t.Errorf("authorization header = %q", r.Header.Get("Authorization"))
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"{\"tasks\":[]}"}}]}`))
	}))
	defer srv.Close()

	c := NewGroqClient(srv.URL+"/", "gsk_test", "llama-3.3-70b-versatile")
	text, err := c.Complete(context.Background(), "hello")
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if text != `{"tasks":[]}` {
		t.Fatalf("text = %q", text)
	}
	if got.Model != "llama-3.3-70b-versatile" || got.Temperature != 0.7 || got.MaxTokens != 2000 {
		t.Fatalf("unexpected request %+v", got)
	}
	if len(got.Messages) != 1 || got.Messages[0].Role != "user" || got.Messages[0].Content != "hello" {
		t.Fatalf("unexpected messages %+v", got.Messages)
	}
}

func TestGroqClient_Errors(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantStatus int
	}{
		{"non 2xx", http.StatusTooManyRequests, `{"error":{"message":"rate limited"}}`, http.StatusTooManyRequests},
		{"empty choices", http.StatusOK, `{"choices":[]}`, http.StatusOK},
		{"bad json", http.StatusOK, `not json`, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewGroqClient(srv.URL, "k", "m").Complete(context.Background(), "p")
			var upstream *UpstreamError
			if !errors.As(err, &upstream) {
				t.Fatalf("expected UpstreamError, got %v", err)
			}
			if upstream.Status != tt.wantStatus {
				t.Fatalf("status = %d want %d", upstream.Status, tt.wantStatus)
			}
		})
	}
}
