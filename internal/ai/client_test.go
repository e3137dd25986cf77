package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func completionServer(t *testing.T, content string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); !strings.HasPrefix(auth, "Bearer ") {
			t.Errorf("missing bearer token, got %q", auth)
		}
		payload := map[string]any{
			"choices": []any{
				map[string]any{
					"message": map[string]any{"content": content},
				},
			},
		}
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			t.Fatalf("encode response: %v", err)
		}
	}))
}

func TestCompleteJSON(t *testing.T) {
	server := completionServer(t, `{"recommendations":[]}`)
	defer server.Close()

	client := NewClient("test-key", server.URL, "demo-model")
	content, err := client.CompleteJSON(context.Background(), "system", "user", 1024)
	if err != nil {
		t.Fatalf("CompleteJSON returned error: %v", err)
	}
	if content != `{"recommendations":[]}` {
		t.Fatalf("unexpected content %q", content)
	}
}

func TestCompleteJSONMissingKey(t *testing.T) {
	client := NewClient("", "http://localhost:1", "demo-model")
	if _, err := client.CompleteJSON(context.Background(), "system", "user", 0); err == nil {
		t.Fatal("expected error for missing api key")
	}
}

func TestCompleteJSONErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"rate limited"}}`))
	}))
	defer server.Close()

	client := NewClient("test-key", server.URL, "demo-model")
	if _, err := client.CompleteJSON(context.Background(), "system", "user", 0); err == nil {
		t.Fatal("expected error for non-200 status")
	}
}

func TestCompleteJSONAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"error":{"message":"model overloaded"}}`))
	}))
	defer server.Close()

	client := NewClient("test-key", server.URL, "demo-model")
	_, err := client.CompleteJSON(context.Background(), "system", "user", 0)
	if err == nil || !strings.Contains(err.Error(), "model overloaded") {
		t.Fatalf("expected api error, got %v", err)
	}
}

func TestCompleteJSONEmptyContent(t *testing.T) {
	server := completionServer(t, "")
	defer server.Close()

	client := NewClient("test-key", server.URL, "demo-model")
	if _, err := client.CompleteJSON(context.Background(), "system", "user", 0); err == nil {
		t.Fatal("expected error for empty content")
	}
}

func TestDecodeJSON(t *testing.T) {
	type payload struct {
		Titles []string `json:"titles"`
	}

	tests := []struct {
		name    string
		content string
		wantErr bool
		want    int
	}{
		{"plain object", `{"titles":["Heat"]}`, false, 1},
		{"code fence", "```json\n{\"titles\":[\"Heat\",\"Ronin\"]}\n```", false, 2},
		{"bare fence", "```\n{\"titles\":[]}\n```", false, 0},
		{"empty", "", true, 0},
		{"prose", "I'd recommend Heat.", true, 0},
		{"truncated", `{"titles":["Heat"`, true, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var p payload
			err := DecodeJSON(tt.content, &p)
			if (err != nil) != tt.wantErr {
				t.Fatalf("DecodeJSON error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && len(p.Titles) != tt.want {
				t.Fatalf("decoded %d titles, want %d", len(p.Titles), tt.want)
			}
		})
	}
}
