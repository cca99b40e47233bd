package generation

import (
	"context"
	"fmt"
	"time"

	"github.com/escalateai/api/internal/complaint"
	"github.com/escalateai/api/internal/models"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// EventPublisher receives metadata about finished generations
type EventPublisher interface {
	PublishGenerated(ctx context.Context, evt models.GenerationEvent) error
}

// Service runs the complaint pipeline:
// validate, build prompt, invoke, extract placeholders, assemble.
type Service struct {
	invoker   *Invoker
	publisher EventPublisher
	newID     func() string
	now       func() time.Time
	logger    *zap.Logger
	tracer    trace.Tracer
}

// ServiceOption customises a Service
type ServiceOption func(*Service)

// WithPublisher sets where generation events are sent
func WithPublisher(p EventPublisher) ServiceOption {
	return func(s *Service) { s.publisher = p }
}

// WithIDGenerator replaces the request id source
func WithIDGenerator(fn func() string) ServiceOption {
	return func(s *Service) { s.newID = fn }
}

// NewService creates a Service around inv
func NewService(inv *Invoker, logger *zap.Logger, opts ...ServiceOption) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		invoker: inv,
		newID:   NewRequestID,
		now:     time.Now,
		logger:  logger.Named("generation"),
		tracer:  otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Invoker returns the invoker used by the service
func (s *Service) Invoker() *Invoker {
	return s.invoker
}

// Generate turns req into a complete result. It returns a
// *complaint.ValidationError before any backend call when req is invalid,
// and an error matching ErrGenerationUnavailable when no backend produced
// valid drafts. No partial result is ever returned.
func (s *Service) Generate(ctx context.Context, req *models.ComplaintRequest) (*models.GenerationResult, error) {
	if err := complaint.Validate(req); err != nil {
		return nil, err
	}

	requestID := s.newID()
	start := s.now()

	ctx, span := s.tracer.Start(ctx, "generation.generate", trace.WithAttributes(
		attribute.String("request.id", requestID),
		attribute.String("complaint.category", string(req.Category)),
		attribute.String("complaint.tone", string(req.Tone)),
	))
	defer span.End()

	log := s.logger.With(zap.String("request_id", requestID))
	log.Info("generating complaint",
		zap.String("category", string(req.Category)),
		zap.String("tone", string(req.Tone)),
		zap.String("title", preview(req.Title, 60)),
	)

	prompt := complaint.BuildPrompt(*req)

	out, err := s.invoker.Invoke(ctx, prompt)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "generation failed")
		log.Error("all models failed", zap.Error(err))
		return nil, fmt.Errorf("generate %s: %w", requestID, err)
	}

	placeholders := out.Drafts.Placeholders()
	result := Assemble(requestID, out.Drafts, placeholders)

	latency := s.now().Sub(start)
	span.SetAttributes(
		attribute.String("backend.role", string(out.Role)),
		attribute.String("backend.model", out.Model),
		attribute.Int("attempts", out.Attempts),
		attribute.Int("placeholders", len(placeholders)),
	)
	log.Info("generated successfully",
		zap.String("backend", string(out.Role)),
		zap.String("model", out.Model),
		zap.Int("attempts", out.Attempts),
		zap.Strings("placeholders", placeholders),
		zap.Duration("latency", latency),
	)

	if s.publisher != nil {
		evt := models.GenerationEvent{
			RequestID:        requestID,
			Category:         req.Category,
			Tone:             req.Tone,
			Backend:          string(out.Role),
			Model:            out.Model,
			Attempts:         out.Attempts,
			PlaceholderCount: len(placeholders),
			LatencyMs:        latency.Milliseconds(),
			Timestamp:        s.now().UTC(),
		}
		if err := s.publisher.PublishGenerated(ctx, evt); err != nil {
			log.Warn("failed to publish generation event", zap.Error(err))
		}
	}

	return result, nil
}

func preview(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
