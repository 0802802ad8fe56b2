package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Navigation results recorded on orbs_navigations_total.
const (
	NavigationMoved   = "moved"
	NavigationClamped = "clamped"
)

// SceneCollector bundles Prometheus metrics for the orb scene and the HTTP
// surface in front of it.
type SceneCollector struct {
	gatherer prometheus.Gatherer

	Memories          prometheus.Gauge
	MemoriesAnalyzing prometheus.Gauge
	FocusedIndex      prometheus.Gauge
	Zoom              prometheus.Gauge
	SphereRadius      prometheus.Gauge
	ViewMode          prometheus.Gauge

	Drags        prometheus.Counter
	Navigations  *prometheus.CounterVec
	MemoryEvents *prometheus.CounterVec

	HTTPRequests  *prometheus.CounterVec
	HTTPDurations *prometheus.HistogramVec
}

// NewSceneCollector registers scene metrics against the provided
// registerer, defaulting to the global Prometheus registry when nil.
func NewSceneCollector(reg prometheus.Registerer) (*SceneCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	c := &SceneCollector{gatherer: gathererFor(reg)}

	gauges := []struct {
		dst  *prometheus.Gauge
		name string
		help string
	}{
		{&c.Memories, "orbs_memories", "Current number of memories in the scene."},
		{&c.MemoriesAnalyzing, "orbs_memories_analyzing", "Memories still waiting for a caption."},
		{&c.FocusedIndex, "orbs_focused_index", "Focused gallery index."},
		{&c.Zoom, "orbs_zoom", "Current zoom factor."},
		{&c.SphereRadius, "orbs_sphere_radius", "Current sphere radius in scene units."},
		{&c.ViewMode, "orbs_view_mode", "Active view mode (0 sphere, 1 gallery)."},
	}
	for _, g := range gauges {
		gauge, err := register(reg, prometheus.NewGauge(prometheus.GaugeOpts{Name: g.name, Help: g.help}), g.name)
		if err != nil {
			return nil, err
		}
		*g.dst = gauge
	}

	var err error
	c.Drags, err = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "orbs_drags_total",
		Help: "World rotation drags that changed the orientation.",
	}), "orbs_drags_total")
	if err != nil {
		return nil, err
	}

	c.Navigations, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "orbs_navigations_total",
		Help: "Gallery navigation requests, labeled by direction and result.",
	}, []string{"direction", "result"}), "orbs_navigations_total")
	if err != nil {
		return nil, err
	}

	c.MemoryEvents, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "orbs_memory_events_total",
		Help: "Memory store changes, labeled by event type.",
	}, []string{"type"}), "orbs_memory_events_total")
	if err != nil {
		return nil, err
	}

	c.HTTPRequests, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "orbs_http_requests_total",
		Help: "Handled HTTP requests, labeled by route, method, and status code.",
	}, []string{"route", "method", "code"}), "orbs_http_requests_total")
	if err != nil {
		return nil, err
	}

	c.HTTPDurations, err = register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "orbs_http_request_duration_seconds",
		Help:    "HTTP request latency in seconds.",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
	}, []string{"route", "method"}), "orbs_http_request_duration_seconds")
	if err != nil {
		return nil, err
	}

	return c, nil
}

// Handler exposes a ready-to-use /metrics handler.
func (c *SceneCollector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetSceneState satisfies scene.MetricsRecorder so the Scene can drive
// gauge values directly from its mutators.
func (c *SceneCollector) SetSceneState(memories, analyzing, focused int, zoom, radius float64, gallery bool) {
	if c == nil {
		return
	}
	c.Memories.Set(float64(memories))
	c.MemoriesAnalyzing.Set(float64(analyzing))
	c.FocusedIndex.Set(float64(focused))
	c.Zoom.Set(zoom)
	c.SphereRadius.Set(radius)
	if gallery {
		c.ViewMode.Set(1)
	} else {
		c.ViewMode.Set(0)
	}
}

// RecordDrag counts one applied world drag.
func (c *SceneCollector) RecordDrag() {
	if c == nil {
		return
	}
	c.Drags.Inc()
}

// RecordNavigation counts a gallery navigation request.
func (c *SceneCollector) RecordNavigation(direction string, moved bool) {
	if c == nil {
		return
	}
	result := NavigationClamped
	if moved {
		result = NavigationMoved
	}
	c.Navigations.WithLabelValues(direction, result).Inc()
}

// RecordMemoryEvent counts one memory store change. It is meant to be
// subscribed to the store, so it must not call back into the scene.
func (c *SceneCollector) RecordMemoryEvent(kind string) {
	if c == nil {
		return
	}
	c.MemoryEvents.WithLabelValues(kind).Inc()
}

// Middleware records request counts and durations labeled by the matched
// chi route pattern.
func (c *SceneCollector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		if c == nil {
			return
		}
		route := RoutePattern(r)
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		c.HTTPRequests.WithLabelValues(route, r.Method, strconv.Itoa(status)).Inc()
		c.HTTPDurations.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
	})
}

// RoutePattern returns the chi route pattern matched for r, or "unknown"
// when the request was not routed through chi.
func RoutePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return "unknown"
}
