package transcription

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/meetscribe/scribe-api/internal/models"
	"github.com/meetscribe/scribe-api/internal/services/resilience"
)

// ServiceName identifies this client in tagged errors and breaker state.
const ServiceName = "transcription"

// Config holds configuration for the transcription client
type Config struct {
	BaseURL  string        // Default: http://localhost:9000
	Timeout  time.Duration // Default: 120s (model inference is slow)
	Language string        // Default: en
}

// Client calls the remote speech-to-text service. Failures are tagged with
// a resilience.ErrorKind at this boundary so retry classification never
// inspects error text.
type Client struct {
	httpClient *http.Client
	config     Config

	// Metrics
	requests atomic.Int64
	failures atomic.Int64
}

// NewClient creates a new transcription service client
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:9000"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 120 * time.Second
	}
	if cfg.Language == "" {
		cfg.Language = "en"
	}

	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		config:     cfg,
	}
}

// transcribeRequest is the wire format sent to the service
type transcribeRequest struct {
	AudioPath string `json:"audio_path"`
	Language  string `json:"language,omitempty"`
}

// transcribeResponse is the wire format returned by the service
type transcribeResponse struct {
	Segments []struct {
		Start float64 `json:"start"`
		End   float64 `json:"end"`
		Text  string  `json:"text"`
	} `json:"segments"`
	FullText string  `json:"full_text"`
	Language string  `json:"language"`
	Duration float64 `json:"duration"`
}

// Transcribe sends audio for transcription
func (c *Client) Transcribe(ctx context.Context, audioPath string) (*Result, error) {
	if audioPath == "" {
		return nil, resilience.NewServiceError(ServiceName, resilience.KindValidation, errors.New("audio path cannot be empty"))
	}

	c.requests.Add(1)

	body, err := json.Marshal(transcribeRequest{AudioPath: audioPath, Language: c.config.Language})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	url := c.config.BaseURL + "/v1/transcribe"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.failures.Add(1)
		return nil, classifyTransportError(ServiceName, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.failures.Add(1)
		return nil, statusError(ServiceName, resp.StatusCode)
	}

	var wire transcribeResponse
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		c.failures.Add(1)
		return nil, resilience.NewServiceError(ServiceName, resilience.KindServerError, fmt.Errorf("decode response: %w", err))
	}

	result := &Result{
		Segments:        make([]models.TranscriptSegment, 0, len(wire.Segments)),
		FullText:        wire.FullText,
		Language:        wire.Language,
		DurationSeconds: wire.Duration,
	}
	for _, seg := range wire.Segments {
		result.Segments = append(result.Segments, models.TranscriptSegment{
			Start: seg.Start,
			End:   seg.End,
			Text:  seg.Text,
		})
	}

	return result, nil
}

// Metrics returns current client usage counters
func (c *Client) Metrics() map[string]int64 {
	return map[string]int64{
		"requests": c.requests.Load(),
		"failures": c.failures.Load(),
	}
}

// statusError maps an HTTP status code to a tagged service error.
func statusError(service string, status int) error {
	var kind resilience.ErrorKind
	switch {
	case status == http.StatusTooManyRequests:
		kind = resilience.KindRateLimited
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		kind = resilience.KindTimeout
	case status == http.StatusUnprocessableEntity:
		kind = resilience.KindValidation
	case status >= 500:
		kind = resilience.KindServerError
	case status >= 400:
		kind = resilience.KindBadRequest
	default:
		kind = resilience.KindUnknown
	}
	return resilience.NewServiceError(service, kind, fmt.Errorf("unexpected status: %d", status))
}

// classifyTransportError maps a transport-level failure to a tagged service
// error. Caller cancellation passes through untagged so it is never
// mistaken for a service failure.
func classifyTransportError(service string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	if netErr, ok := err.(interface{ Timeout() bool }); ok && netErr.Timeout() {
		return resilience.NewServiceError(service, resilience.KindTimeout, err)
	}

	return resilience.NewServiceError(service, resilience.KindConnectionFailed, err)
}
