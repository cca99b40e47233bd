// Package generation orchestrates one complaint-to-drafts request: it drives
// the primary and fallback backends through a bounded retry state machine
// and assembles the validated drafts into the result returned to callers.
package generation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/escalateai/api/internal/complaint"
	"github.com/escalateai/api/internal/llm"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const tracerName = "github.com/escalateai/api/internal/generation"

// Role identifies which backend served an attempt
type Role string

const (
	RolePrimary  Role = "primary"
	RoleFallback Role = "fallback"
)

// AttemptOutcome classifies a single backend call
type AttemptOutcome string

const (
	OutcomeSuccess   AttemptOutcome = "success"
	OutcomeTransient AttemptOutcome = "transient_failure"
	OutcomeSchema    AttemptOutcome = "schema_failure"
	OutcomePermanent AttemptOutcome = "permanent_failure"
	OutcomeCancelled AttemptOutcome = "cancelled"
)

// Attempt describes one call to one backend. It only leaves the invoker
// through a Recorder.
type Attempt struct {
	Role     Role
	Model    string
	Index    int
	Outcome  AttemptOutcome
	Err      error
	Duration time.Duration
}

// Recorder observes every attempt
type Recorder interface {
	RecordAttempt(a Attempt)
}

// Sleeper waits between attempts. Sleep must return early with ctx.Err()
// when ctx is done.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

type timerSleeper struct{}

func (timerSleeper) Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

type nopRecorder struct{}

func (nopRecorder) RecordAttempt(Attempt) {}

// BackoffConfig is the exponential schedule between attempts on one backend
type BackoffConfig struct {
	Initial             time.Duration
	Max                 time.Duration
	Multiplier          float64
	RandomizationFactor float64
}

// InvokerConfig is fixed for the lifetime of an Invoker
type InvokerConfig struct {
	MaxAttempts    int
	AttemptTimeout time.Duration
	Backoff        BackoffConfig
}

// Outcome is the first accepted backend answer
type Outcome struct {
	Drafts   *complaint.Drafts
	Role     Role
	Model    string
	Attempts int
}

// Invoker calls the primary backend, then the fallback, until one returns
// drafts that pass the response schema
type Invoker struct {
	cfg      InvokerConfig
	primary  llm.Backend
	fallback llm.Backend
	sleeper  Sleeper
	recorder Recorder
	logger   *zap.Logger
	tracer   trace.Tracer
}

// Option customises an Invoker
type Option func(*Invoker)

// WithSleeper replaces the wall-clock sleeper
func WithSleeper(s Sleeper) Option {
	return func(inv *Invoker) { inv.sleeper = s }
}

// WithRecorder registers an attempt observer
func WithRecorder(r Recorder) Option {
	return func(inv *Invoker) { inv.recorder = r }
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(inv *Invoker) { inv.logger = l.Named("invoker") }
}

// NewInvoker creates an Invoker. fallback may be nil.
func NewInvoker(cfg InvokerConfig, primary, fallback llm.Backend, opts ...Option) *Invoker {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if cfg.AttemptTimeout <= 0 {
		cfg.AttemptTimeout = 60 * time.Second
	}
	if cfg.Backoff.Multiplier < 1 {
		cfg.Backoff.Multiplier = 1
	}
	if cfg.Backoff.Max < cfg.Backoff.Initial {
		cfg.Backoff.Max = cfg.Backoff.Initial
	}

	inv := &Invoker{
		cfg:      cfg,
		primary:  primary,
		fallback: fallback,
		sleeper:  timerSleeper{},
		recorder: nopRecorder{},
		logger:   zap.NewNop(),
		tracer:   otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(inv)
	}
	return inv
}

// Primary returns the primary backend
func (inv *Invoker) Primary() llm.Backend { return inv.primary }

// Fallback returns the fallback backend, or nil
func (inv *Invoker) Fallback() llm.Backend { return inv.fallback }

type state int

const (
	stateTryingPrimary state = iota
	stateTryingFallback
	stateFailed
)

var errNoFallback = errors.New("no fallback backend configured")

// Invoke returns the first accepted answer or an *UnavailableError. When ctx
// is cancelled no further attempts start and the returned error wraps
// ctx.Err().
func (inv *Invoker) Invoke(ctx context.Context, prompt complaint.Prompt) (*Outcome, error) {
	st := stateTryingPrimary
	failed := &UnavailableError{}
	total := 0

	for {
		switch st {
		case stateTryingPrimary, stateTryingFallback:
			role, backend := RolePrimary, inv.primary
			if st == stateTryingFallback {
				role, backend = RoleFallback, inv.fallback
			}

			drafts, attempts, err := inv.tryBackend(ctx, role, backend, prompt)
			total += attempts
			if err == nil {
				return &Outcome{Drafts: drafts, Role: role, Model: backend.Model(), Attempts: total}, nil
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, fmt.Errorf("generation cancelled after %d attempts: %w", total, ctxErr)
			}

			if st == stateTryingPrimary {
				failed.PrimaryErr = err
				st = stateTryingFallback
				if inv.fallback == nil {
					failed.FallbackErr = errNoFallback
					st = stateFailed
				}
			} else {
				failed.FallbackErr = err
				st = stateFailed
			}

		case stateFailed:
			return nil, failed
		}
	}
}

// tryBackend spends the attempt budget of one backend. It returns the number
// of attempts actually made.
func (inv *Invoker) tryBackend(ctx context.Context, role Role, backend llm.Backend, prompt complaint.Prompt) (*complaint.Drafts, int, error) {
	b := inv.newBackOff()
	var lastErr error

	for n := 1; n <= inv.cfg.MaxAttempts; n++ {
		if n > 1 {
			if err := inv.sleeper.Sleep(ctx, b.NextBackOff()); err != nil {
				return nil, n - 1, err
			}
		}
		if err := ctx.Err(); err != nil {
			return nil, n - 1, err
		}

		drafts, err := inv.attempt(ctx, role, backend, n, prompt)
		if err == nil {
			return drafts, n, nil
		}
		lastErr = err
		if ctx.Err() != nil || llm.IsPermanent(err) {
			return nil, n, err
		}
	}
	return nil, inv.cfg.MaxAttempts, lastErr
}

func (inv *Invoker) attempt(ctx context.Context, role Role, backend llm.Backend, n int, prompt complaint.Prompt) (*complaint.Drafts, error) {
	actx, cancel := context.WithTimeout(ctx, inv.cfg.AttemptTimeout)
	defer cancel()

	actx, span := inv.tracer.Start(actx, "generation.attempt", trace.WithAttributes(
		attribute.String("backend.role", string(role)),
		attribute.String("backend.model", backend.Model()),
		attribute.Int("attempt", n),
	))
	defer span.End()

	start := time.Now()
	drafts, err := generateDrafts(actx, backend, prompt)
	if err != nil && ctx.Err() == nil && errors.Is(actx.Err(), context.DeadlineExceeded) && !llm.IsPermanent(err) {
		err = llm.Transient(backend.Model(), 0, fmt.Errorf("attempt timed out after %s: %w", inv.cfg.AttemptTimeout, err))
	}

	a := Attempt{
		Role:     role,
		Model:    backend.Model(),
		Index:    n,
		Outcome:  classify(ctx, err),
		Err:      err,
		Duration: time.Since(start),
	}
	inv.recorder.RecordAttempt(a)
	span.SetAttributes(attribute.String("attempt.outcome", string(a.Outcome)))

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(a.Outcome))
		inv.logger.Warn("model attempt failed",
			zap.String("role", string(role)),
			zap.String("model", a.Model),
			zap.Int("attempt", n),
			zap.Int("max_attempts", inv.cfg.MaxAttempts),
			zap.String("outcome", string(a.Outcome)),
			zap.Duration("duration", a.Duration),
			zap.Error(err),
		)
		return nil, err
	}

	inv.logger.Debug("model attempt succeeded",
		zap.String("role", string(role)),
		zap.String("model", a.Model),
		zap.Int("attempt", n),
		zap.Duration("duration", a.Duration),
	)
	return drafts, nil
}

// generateDrafts validates the whole answer of one call; nothing is kept
// from a rejected answer
func generateDrafts(ctx context.Context, backend llm.Backend, prompt complaint.Prompt) (*complaint.Drafts, error) {
	text, err := backend.Generate(ctx, prompt)
	if err != nil {
		return nil, err
	}
	raw, err := complaint.DecodeModelText(text)
	if err != nil {
		return nil, err
	}
	return complaint.ParseResponse(raw)
}

func classify(ctx context.Context, err error) AttemptOutcome {
	var sv *complaint.SchemaViolation
	switch {
	case err == nil:
		return OutcomeSuccess
	case ctx.Err() != nil:
		return OutcomeCancelled
	case errors.As(err, &sv):
		return OutcomeSchema
	case llm.IsPermanent(err):
		return OutcomePermanent
	default:
		return OutcomeTransient
	}
}

func (inv *Invoker) newBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = inv.cfg.Backoff.Initial
	b.MaxInterval = inv.cfg.Backoff.Max
	b.Multiplier = inv.cfg.Backoff.Multiplier
	b.RandomizationFactor = inv.cfg.Backoff.RandomizationFactor
	b.Reset()
	return b
}
