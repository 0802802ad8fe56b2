package ingest

import (
	"context"
	"errors"
	"hash/fnv"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/signalsfoundry/memory-orbs/internal/logging"
	"github.com/signalsfoundry/memory-orbs/internal/observability"
)

// Texts shown while a caption is pending and when it cannot be produced.
const (
	PlaceholderCaption = "Waking the memory..."
	EmptyCaption       = "A blurry memory..."
	FailedCaption      = "A fragment of memory just out of reach..."
)

// Image is one uploaded file.
type Image struct {
	Name     string
	MIMEType string
	Data     []byte
}

// Captioner turns an image into a short description.
type Captioner interface {
	Caption(ctx context.Context, img Image) (string, error)
}

// CaptionerFunc adapts a function to Captioner.
type CaptionerFunc func(ctx context.Context, img Image) (string, error)

// Caption implements Captioner.
func (f CaptionerFunc) Caption(ctx context.Context, img Image) (string, error) {
	return f(ctx, img)
}

// PhraseCaptioner is an offline captioner that picks a phrase from the
// image bytes, so the same file always gets the same caption.
type PhraseCaptioner struct {
	// Delay simulates a remote call.
	Delay   time.Duration
	Phrases []string
}

var defaultPhrases = []string{
	"Light that stayed a little longer than it should have.",
	"An afternoon folded into a single breath.",
	"Somewhere between leaving and arriving.",
	"The colour of a voice I almost remember.",
	"Warmth that outlived the moment it belonged to.",
	"A quiet that still hums when I close my eyes.",
	"The edge of a day slipping out of focus.",
}

// Caption implements Captioner.
func (p PhraseCaptioner) Caption(ctx context.Context, img Image) (string, error) {
	if p.Delay > 0 {
		timer := time.NewTimer(p.Delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-timer.C:
		}
	}
	phrases := p.Phrases
	if len(phrases) == 0 {
		phrases = defaultPhrases
	}
	h := fnv.New32a()
	_, _ = h.Write(img.Data)
	return phrases[h.Sum32()%uint32(len(phrases))], nil
}

// BreakerConfig tunes ResilientCaptioner.
type BreakerConfig struct {
	Name        string
	Timeout     time.Duration
	MaxFailures uint32
	OpenTimeout time.Duration
}

// DefaultBreakerConfig returns production defaults.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		Name:        "captioner",
		Timeout:     8 * time.Second,
		MaxFailures: 3,
		OpenTimeout: 30 * time.Second,
	}
}

// ResilientCaptioner wraps a Captioner with a per-call timeout and a
// circuit breaker, and never fails: errors become FailedCaption and empty
// answers become EmptyCaption.
type ResilientCaptioner struct {
	next    Captioner
	timeout time.Duration
	cb      *gobreaker.CircuitBreaker
	log     logging.Logger
	metrics *observability.IngestCollector
}

// NewResilientCaptioner wraps next. metrics may be nil.
func NewResilientCaptioner(next Captioner, cfg BreakerConfig, log logging.Logger, metrics *observability.IngestCollector) *ResilientCaptioner {
	if log == nil {
		log = logging.Noop()
	}
	if cfg.MaxFailures == 0 {
		cfg.MaxFailures = DefaultBreakerConfig().MaxFailures
	}
	rc := &ResilientCaptioner{
		next:    next,
		timeout: cfg.Timeout,
		log:     log,
		metrics: metrics,
	}
	rc.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: 1,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.MaxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn(context.Background(), "caption breaker state changed",
				logging.String("breaker", name),
				logging.String("from", from.String()),
				logging.String("to", to.String()),
			)
			metrics.SetBreakerOpen(to == gobreaker.StateOpen)
		},
	})
	return rc
}

// State reports the breaker state.
func (r *ResilientCaptioner) State() gobreaker.State {
	return r.cb.State()
}

// Describe captions img. fellBack is true when a fallback text was used.
func (r *ResilientCaptioner) Describe(ctx context.Context, img Image) (text string, fellBack bool) {
	ctx, span := observability.Tracer().Start(ctx, "ingest.caption")
	defer span.End()
	span.SetAttributes(
		attribute.String("image.name", img.Name),
		attribute.String("image.mime_type", img.MIMEType),
		attribute.Int("image.bytes", len(img.Data)),
	)

	res, err := r.cb.Execute(func() (interface{}, error) {
		callCtx := ctx
		if r.timeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, r.timeout)
			defer cancel()
		}
		caption, err := r.next.Caption(callCtx, img)
		return caption, err
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		r.log.Warn(ctx, "caption failed; using fallback",
			logging.String("image", img.Name),
			logging.Bool("breaker_open", errors.Is(err, gobreaker.ErrOpenState)),
			logging.Err(err),
		)
		return FailedCaption, true
	}

	caption, _ := res.(string)
	text = strings.TrimSpace(caption)
	if text == "" {
		span.SetAttributes(attribute.Bool("caption.empty", true))
		return EmptyCaption, true
	}
	return text, false
}
