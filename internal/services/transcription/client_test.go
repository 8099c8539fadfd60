package transcription

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/meetscribe/scribe-api/internal/services/resilience"
)

func TestClient_Transcribe(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/transcribe" {
			t.Errorf("Expected path /v1/transcribe, got %s", r.URL.Path)
		}
		if r.Method != http.MethodPost {
			t.Errorf("Expected POST, got %s", r.Method)
		}

		var req transcribeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("Failed to decode request: %v", err)
		}
		if req.AudioPath != "/data/audio/session-1.wav" {
			t.Errorf("Expected audio path /data/audio/session-1.wav, got %s", req.AudioPath)
		}

		response := `{
			"segments": [
				{"start": 0.0, "end": 4.2, "text": "Welcome to the meeting."},
				{"start": 4.2, "end": 9.8, "text": "Let's get started."}
			],
			"full_text": "Welcome to the meeting. Let's get started.",
			"language": "en",
			"duration": 9.8
		}`
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(response))
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL})

	result, err := client.Transcribe(context.Background(), "/data/audio/session-1.wav")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if len(result.Segments) != 2 {
		t.Fatalf("Expected 2 segments, got %d", len(result.Segments))
	}
	if result.Segments[0].Text != "Welcome to the meeting." {
		t.Errorf("Unexpected first segment text: %s", result.Segments[0].Text)
	}
	if result.Segments[1].Start != 4.2 {
		t.Errorf("Expected second segment start 4.2, got %v", result.Segments[1].Start)
	}
	if result.Language != "en" {
		t.Errorf("Expected language en, got %s", result.Language)
	}
	if result.DurationSeconds != 9.8 {
		t.Errorf("Expected duration 9.8, got %v", result.DurationSeconds)
	}
}

func TestClient_Transcribe_ErrorClassification(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		wantKind   resilience.ErrorKind
	}{
		{"rate limited", http.StatusTooManyRequests, resilience.KindRateLimited},
		{"server error", http.StatusInternalServerError, resilience.KindServerError},
		{"bad gateway", http.StatusBadGateway, resilience.KindServerError},
		{"gateway timeout", http.StatusGatewayTimeout, resilience.KindTimeout},
		{"validation", http.StatusUnprocessableEntity, resilience.KindValidation},
		{"bad request", http.StatusBadRequest, resilience.KindBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.statusCode)
			}))
			defer server.Close()

			client := NewClient(Config{BaseURL: server.URL})

			_, err := client.Transcribe(context.Background(), "/data/audio/session-1.wav")
			if err == nil {
				t.Fatal("Expected error, got nil")
			}
			if kind := resilience.KindOf(err); kind != tt.wantKind {
				t.Errorf("Expected kind %s, got %s", tt.wantKind, kind)
			}
		})
	}
}

func TestClient_Transcribe_EmptyAudioPath(t *testing.T) {
	client := NewClient(Config{BaseURL: "http://localhost:9000"})

	_, err := client.Transcribe(context.Background(), "")
	if err == nil {
		t.Fatal("Expected error for empty audio path")
	}
	if kind := resilience.KindOf(err); kind != resilience.KindValidation {
		t.Errorf("Expected validation kind, got %s", kind)
	}
	if resilience.IsRetryable(err) {
		t.Error("Validation errors must not be retryable")
	}
}

func TestClient_Transcribe_ConnectionFailure(t *testing.T) {
	// Server that is immediately closed produces a connection error.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	client := NewClient(Config{BaseURL: server.URL})

	_, err := client.Transcribe(context.Background(), "/data/audio/session-1.wav")
	if err == nil {
		t.Fatal("Expected error, got nil")
	}
	if kind := resilience.KindOf(err); kind != resilience.KindConnectionFailed {
		t.Errorf("Expected connection_failed kind, got %s", kind)
	}
	if !resilience.IsRetryable(err) {
		t.Error("Connection failures should be retryable")
	}
}

func TestClient_Transcribe_Cancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Transcribe(ctx, "/data/audio/session-1.wav")
	if err == nil {
		t.Fatal("Expected error, got nil")
	}
	if resilience.IsRetryable(err) {
		t.Error("Cancellation must not be classified as retryable")
	}
}
