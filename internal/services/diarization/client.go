package diarization

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
const ServiceName = "diarization"

// Config holds configuration for the diarization client
type Config struct {
	BaseURL string        // Default: http://localhost:9001
	Timeout time.Duration // Default: 120s
}

// Client calls the remote speaker diarization service. Like the
// transcription client, it tags every failure with a resilience.ErrorKind
// at the HTTP boundary.
type Client struct {
	httpClient *http.Client
	config     Config

	// Metrics
	requests atomic.Int64
	failures atomic.Int64
}

// NewClient creates a new diarization service client
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:9001"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 120 * time.Second
	}

	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		config:     cfg,
	}
}

// diarizeRequest is the wire format sent to the service
type diarizeRequest struct {
	AudioPath   string `json:"audio_path"`
	NumSpeakers int    `json:"num_speakers,omitempty"`
}

// diarizeResponse is the wire format returned by the service
type diarizeResponse struct {
	Turns []struct {
		Speaker string  `json:"speaker"`
		Start   float64 `json:"start"`
		End     float64 `json:"end"`
	} `json:"turns"`
}

// Diarize partitions audio into speaker turns
func (c *Client) Diarize(ctx context.Context, audioPath string, numSpeakers int) ([]models.DiarizationTurn, error) {
	if audioPath == "" {
		return nil, resilience.NewServiceError(ServiceName, resilience.KindValidation, errors.New("audio path cannot be empty"))
	}
	if numSpeakers < 0 {
		return nil, resilience.NewServiceError(ServiceName, resilience.KindValidation, fmt.Errorf("invalid speaker count: %d", numSpeakers))
	}

	c.requests.Add(1)

	body, err := json.Marshal(diarizeRequest{AudioPath: audioPath, NumSpeakers: numSpeakers})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	url := c.config.BaseURL + "/v1/diarize"
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

	var wire diarizeResponse
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		c.failures.Add(1)
		return nil, resilience.NewServiceError(ServiceName, resilience.KindServerError, fmt.Errorf("decode response: %w", err))
	}

	turns := make([]models.DiarizationTurn, 0, len(wire.Turns))
	for _, turn := range wire.Turns {
		turns = append(turns, models.DiarizationTurn{
			Speaker: turn.Speaker,
			Start:   turn.Start,
			End:     turn.End,
		})
	}

	return turns, nil
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
// error, letting caller cancellation pass through untagged.
func classifyTransportError(service string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	if netErr, ok := err.(interface{ Timeout() bool }); ok && netErr.Timeout() {
		return resilience.NewServiceError(service, resilience.KindTimeout, err)
	}

	return resilience.NewServiceError(service, resilience.KindConnectionFailed, err)
}
