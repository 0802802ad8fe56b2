// Package ingest feeds memories into the scene: the seed collection at
// startup and user uploads, whose captions resolve asynchronously.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/signalsfoundry/memory-orbs/core"
	"github.com/signalsfoundry/memory-orbs/internal/logging"
	"github.com/signalsfoundry/memory-orbs/internal/observability"
	"github.com/signalsfoundry/memory-orbs/internal/scene"
	"github.com/signalsfoundry/memory-orbs/model"
)

// ErrClosed is returned by Upload after Close.
var ErrClosed = errors.New("ingestor closed")

// Ingestor places new memories in front of the viewer and captions them in
// the background.
type Ingestor struct {
	scene     *scene.Scene
	captioner *ResilientCaptioner
	log       logging.Logger
	metrics   *observability.IngestCollector

	now   func() time.Time
	newID func() string

	rngMu sync.Mutex
	rng   *rand.Rand

	// ctx parents every caption call and is cancelled when Close runs out
	// of time.
	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// Option customises an Ingestor.
type Option func(*Ingestor)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(in *Ingestor) { in.now = now }
}

// WithIDGenerator overrides uuid.NewString.
func WithIDGenerator(gen func() string) Option {
	return func(in *Ingestor) { in.newID = gen }
}

// WithRand sets the source for per-orb scale, tilt and drift.
func WithRand(r *rand.Rand) Option {
	return func(in *Ingestor) { in.rng = r }
}

// WithLogger attaches a structured logger.
func WithLogger(l logging.Logger) Option {
	return func(in *Ingestor) {
		if l != nil {
			in.log = l
		}
	}
}

// WithMetrics attaches ingestion metrics.
func WithMetrics(m *observability.IngestCollector) Option {
	return func(in *Ingestor) { in.metrics = m }
}

// New builds an Ingestor feeding s through captioner.
func New(s *scene.Scene, captioner *ResilientCaptioner, opts ...Option) *Ingestor {
	ctx, cancel := context.WithCancel(context.Background())
	in := &Ingestor{
		scene:     s,
		captioner: captioner,
		log:       logging.Noop(),
		now:       time.Now,
		newID:     uuid.NewString,
		ctx:       ctx,
		cancel:    cancel,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(in)
		}
	}
	if in.rng == nil {
		seed := uint64(in.now().UnixNano())
		in.rng = rand.New(rand.NewPCG(seed, seed>>7|1))
	}
	return in
}

// Seed loads the initial collection into the scene.
func (in *Ingestor) Seed() error {
	in.rngMu.Lock()
	batch := Seed(in.now(), in.rng)
	in.rngMu.Unlock()
	if err := in.scene.AddMemories(batch); err != nil {
		return fmt.Errorf("seed memories: %w", err)
	}
	in.log.Info(in.ctx, "seed memories loaded", logging.Int("count", len(batch)))
	return nil
}

// IsImage reports whether a MIME type is accepted for upload.
func IsImage(mimeType string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(mimeType)), "image/")
}

// Upload adds every image in files around the point currently facing the
// viewer and starts one caption request per image. Non-image files are
// skipped. It returns the memories as added, still analysing.
func (in *Ingestor) Upload(ctx context.Context, files []Image) ([]model.Memory, error) {
	// Held throughout so Close cannot start waiting between the closed
	// check and the caption goroutines being registered.
	in.mu.Lock()
	defer in.mu.Unlock()
	if in.closed {
		return nil, ErrClosed
	}

	theta, phi := in.scene.CurrentFrontFacingSphericalPoint()
	center := core.Spherical{Theta: theta, Phi: phi}
	spread := in.scene.Tuning().UploadSpread
	now := in.now()

	batch := make([]model.Memory, 0, len(files))
	images := make([]Image, 0, len(files))
	for _, f := range files {
		if !IsImage(f.MIMEType) {
			in.metrics.RecordUpload(false)
			in.log.Debug(ctx, "skipping non-image upload",
				logging.String("name", f.Name),
				logging.String("mime_type", f.MIMEType),
			)
			continue
		}
		in.metrics.RecordUpload(true)

		pos := core.SpreadAround(center, len(batch), spread)
		id := in.newID()

		in.rngMu.Lock()
		scale := 0.9 + in.rng.Float64()*0.3
		tilt := in.rng.Float64()*30 - 15
		drift := driftSpeed(in.rng)
		in.rngMu.Unlock()

		batch = append(batch, model.Memory{
			ID:          id,
			URL:         "memory://" + id + "/" + url.PathEscape(f.Name),
			Description: PlaceholderCaption,
			Timestamp:   now,
			Theta:       pos.Theta,
			Phi:         pos.Phi,
			Scale:       scale,
			Rotation:    tilt,
			DriftSpeed:  drift,
			IsAnalyzing: true,
		})
		images = append(images, f)
	}
	if len(batch) == 0 {
		return nil, nil
	}

	if err := in.scene.AddMemories(batch); err != nil {
		return nil, fmt.Errorf("add uploads: %w", err)
	}
	in.log.Info(ctx, "uploads accepted",
		logging.Int("accepted", len(batch)),
		logging.Int("skipped", len(files)-len(batch)),
	)

	// Captions outlive the request but keep its trace.
	parent := trace.ContextWithSpanContext(in.ctx, trace.SpanContextFromContext(ctx))

	for i := range batch {
		in.wg.Add(1)
		go in.caption(parent, batch[i].ID, images[i], now)
	}
	return batch, nil
}

func (in *Ingestor) caption(ctx context.Context, id string, img Image, started time.Time) {
	defer in.wg.Done()

	text, fellBack := in.captioner.Describe(ctx, img)
	applied := in.scene.ApplyCaption(id, text)

	outcome := observability.CaptionOK
	switch {
	case !applied:
		outcome = observability.CaptionStale
	case fellBack:
		outcome = observability.CaptionFallback
	}
	in.metrics.RecordCaption(outcome, in.now().Sub(started))
	in.log.Debug(ctx, "caption resolved",
		logging.String("id", id),
		logging.String("outcome", outcome),
	)
}

// Close stops accepting uploads and waits for in-flight captions. If ctx
// expires first, pending captions are cancelled and ctx's error returned.
func (in *Ingestor) Close(ctx context.Context) error {
	in.mu.Lock()
	in.closed = true
	in.mu.Unlock()

	done := make(chan struct{})
	go func() {
		in.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		in.cancel()
		return nil
	case <-ctx.Done():
		in.cancel()
		<-done
		return ctx.Err()
	}
}
