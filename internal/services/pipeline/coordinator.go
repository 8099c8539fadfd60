package pipeline

import (
	"context"
	"errors"
	"log"

	"golang.org/x/time/rate"

	"github.com/meetscribe/scribe-api/internal/models"
	"github.com/meetscribe/scribe-api/internal/services/resilience"
	"github.com/meetscribe/scribe-api/internal/services/transcription"
)

// TranscribeFunc runs one transcription call.
type TranscribeFunc func(ctx context.Context) (*transcription.Result, error)

// DiarizeFunc runs one diarization call.
type DiarizeFunc func(ctx context.Context) ([]models.DiarizationTurn, error)

// StageOutcome is the result of the concurrent transcription+diarization
// stage. Transcription is always present; when DiarizationDegraded is set,
// Turns is empty and DiarizationErr carries the reason.
type StageOutcome struct {
	Transcription       *transcription.Result
	Turns               []models.DiarizationTurn
	DiarizationDegraded bool
	DiarizationErr      error
}

// serviceGate bundles the per-service resilience pieces: the outbound
// quota limiter, the circuit breaker, and the shared retry executor.
type serviceGate struct {
	name    string
	breaker *resilience.CircuitBreaker
	limiter *rate.Limiter
}

// StageCoordinator launches the two remote calls concurrently, each gated
// by its own circuit breaker and rate limiter, and classifies the combined
// outcome. A failure on one path never cancels the other.
type StageCoordinator struct {
	retry         *resilience.RetryExecutor
	transcription serviceGate
	diarization   serviceGate
}

// NewStageCoordinator creates a stage coordinator. Limiters may be nil
// when no outbound quota applies.
func NewStageCoordinator(
	retry *resilience.RetryExecutor,
	transcriptionBreaker, diarizationBreaker *resilience.CircuitBreaker,
	transcriptionLimiter, diarizationLimiter *rate.Limiter,
) *StageCoordinator {
	return &StageCoordinator{
		retry: retry,
		transcription: serviceGate{
			name:    transcription.ServiceName,
			breaker: transcriptionBreaker,
			limiter: transcriptionLimiter,
		},
		diarization: serviceGate{
			name:    "diarization",
			breaker: diarizationBreaker,
			limiter: diarizationLimiter,
		},
	}
}

// stageResult carries one goroutine's outcome back to RunStage.
type stageResult[T any] struct {
	value T
	err   error
}

// RunStage executes both remote calls concurrently and classifies the
// result. Transcription failure is fatal and returns a
// ParallelProcessingError carrying both causes; diarization failure alone
// is recoverable and produces a degraded outcome.
func (c *StageCoordinator) RunStage(ctx context.Context, transcribeFn TranscribeFunc, diarizeFn DiarizeFunc) (*StageOutcome, error) {
	transcriptionCh := make(chan stageResult[*transcription.Result], 1)
	diarizationCh := make(chan stageResult[[]models.DiarizationTurn], 1)

	go func() {
		var result *transcription.Result
		err := c.callService(ctx, c.transcription, func(ctx context.Context) error {
			var callErr error
			result, callErr = transcribeFn(ctx)
			return callErr
		})
		transcriptionCh <- stageResult[*transcription.Result]{value: result, err: err}
	}()

	go func() {
		var turns []models.DiarizationTurn
		err := c.callService(ctx, c.diarization, func(ctx context.Context) error {
			var callErr error
			turns, callErr = diarizeFn(ctx)
			return callErr
		})
		diarizationCh <- stageResult[[]models.DiarizationTurn]{value: turns, err: err}
	}()

	// Await both outcomes independently; neither failure cancels the other.
	transcriptionRes := <-transcriptionCh
	diarizationRes := <-diarizationCh

	if transcriptionRes.err != nil {
		log.Printf("[ERROR] Transcription stage failed: %v", transcriptionRes.err)
		perr := &ParallelProcessingError{
			TranscriptionCause: &TranscriptionError{
				Retryable: resilience.IsRetryable(transcriptionRes.err),
				Cause:     transcriptionRes.err,
			},
		}
		if diarizationRes.err != nil {
			perr.DiarizationCause = &DiarizationError{Cause: diarizationRes.err}
		}
		return nil, perr
	}

	outcome := &StageOutcome{
		Transcription: transcriptionRes.value,
		Turns:         diarizationRes.value,
	}

	if diarizationRes.err != nil {
		log.Printf("[WARN] Diarization stage failed, continuing without speaker labels: %v", diarizationRes.err)
		outcome.Turns = nil
		outcome.DiarizationDegraded = true
		outcome.DiarizationErr = &DiarizationError{FallbackAvailable: true, Cause: diarizationRes.err}
	}

	return outcome, nil
}

// callService is the gated path for one remote call: quota delay, breaker
// decision, then the retry loop, with the breaker updated from the final
// outcome. The quota wait happens before the breaker decision so limiter
// delay is accounted as part of the call's latency, not as breaker open
// time.
func (c *StageCoordinator) callService(ctx context.Context, gate serviceGate, op resilience.Operation) error {
	if gate.limiter != nil {
		if err := gate.limiter.Wait(ctx); err != nil {
			return err
		}
	}

	if err := gate.breaker.CanAttempt(); err != nil {
		log.Printf("[WARN] Short-circuiting %s call: %v", gate.name, err)
		return err
	}

	err := c.retry.Execute(ctx, gate.name, op)
	if err != nil {
		// Caller cancellation is not a service failure.
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		gate.breaker.CallFailed()
		return err
	}

	gate.breaker.CallSucceeded()
	return nil
}
