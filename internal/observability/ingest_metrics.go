package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Caption outcomes recorded on orbs_captions_total.
const (
	CaptionOK       = "ok"
	CaptionFallback = "fallback"
	CaptionStale    = "stale"
)

// IngestCollector exposes upload and captioning metrics.
type IngestCollector struct {
	gatherer prometheus.Gatherer

	Uploads         *prometheus.CounterVec
	Captions        *prometheus.CounterVec
	CaptionDuration prometheus.Histogram
	BreakerOpen     prometheus.Gauge
}

// NewIngestCollector registers ingestion metrics against the provided registerer.
func NewIngestCollector(reg prometheus.Registerer) (*IngestCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	uploads, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "orbs_uploads_total",
		Help: "Files offered for upload, labeled by whether they were accepted or skipped.",
	}, []string{"result"}), "orbs_uploads_total")
	if err != nil {
		return nil, err
	}

	captions, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "orbs_captions_total",
		Help: "Caption resolutions, labeled by outcome.",
	}, []string{"outcome"}), "orbs_captions_total")
	if err != nil {
		return nil, err
	}

	duration, err := register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "orbs_caption_duration_seconds",
		Help:    "Time from upload to caption resolution.",
		Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
	}), "orbs_caption_duration_seconds")
	if err != nil {
		return nil, err
	}

	breaker, err := register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "orbs_caption_breaker_open",
		Help: "1 while the captioning circuit breaker is open.",
	}), "orbs_caption_breaker_open")
	if err != nil {
		return nil, err
	}

	return &IngestCollector{
		gatherer:        gathererFor(reg),
		Uploads:         uploads,
		Captions:        captions,
		CaptionDuration: duration,
		BreakerOpen:     breaker,
	}, nil
}

// Gatherer returns the Prometheus gatherer associated with the collector.
func (c *IngestCollector) Gatherer() prometheus.Gatherer {
	if c == nil {
		return nil
	}
	return c.gatherer
}

// RecordUpload counts one offered file.
func (c *IngestCollector) RecordUpload(accepted bool) {
	if c == nil {
		return
	}
	if accepted {
		c.Uploads.WithLabelValues("accepted").Inc()
		return
	}
	c.Uploads.WithLabelValues("skipped").Inc()
}

// RecordCaption records a caption outcome and its latency.
func (c *IngestCollector) RecordCaption(outcome string, d time.Duration) {
	if c == nil {
		return
	}
	c.Captions.WithLabelValues(outcome).Inc()
	c.CaptionDuration.Observe(d.Seconds())
}

// SetBreakerOpen updates the breaker gauge.
func (c *IngestCollector) SetBreakerOpen(open bool) {
	if c == nil {
		return
	}
	if open {
		c.BreakerOpen.Set(1)
		return
	}
	c.BreakerOpen.Set(0)
}
