package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// PipelineMetrics tracks identification requests end to end
type PipelineMetrics struct {
	registry *prometheus.Registry

	requestsTotal      *prometheus.CounterVec
	requestDuration    prometheus.Histogram
	stageDuration      *prometheus.HistogramVec
	extractionTotal    *prometheus.CounterVec
	reviewReasonsTotal *prometheus.CounterVec
	confidence         prometheus.Histogram
	imageBytes         prometheus.Histogram
	cacheHits          prometheus.Counter
	cacheMisses        prometheus.Counter
	inFlight           prometheus.Gauge
}

// NewPipelineMetrics creates and registers pipeline metrics
func NewPipelineMetrics(registry *prometheus.Registry) (*PipelineMetrics, error) {
	m := &PipelineMetrics{registry: registry}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register pipeline metrics: %w", err)
	}
	return m, nil
}

func (m *PipelineMetrics) initMetrics() {
	m.requestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trapcam_identify_requests_total",
			Help: "Identification requests by outcome",
		},
		[]string{"outcome"}, // identified, rejected, needs_review, error
	)

	m.requestDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "trapcam_identify_duration_seconds",
		Help:    "End-to-end identification latency",
		Buckets: prometheus.ExponentialBuckets(BucketStart100ms, BucketFactor2, BucketCount10),
	})

	m.stageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "trapcam_stage_duration_seconds",
			Help:    "Latency of each model stage including retries",
			Buckets: prometheus.ExponentialBuckets(BucketStart100ms, BucketFactor2, BucketCount10),
		},
		[]string{"stage"},
	)

	m.extractionTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trapcam_extraction_total",
			Help: "JSON extraction results by stage and strategy",
		},
		[]string{"stage", "strategy"}, // strategy: direct, fenced, braces, none
	)

	m.reviewReasonsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trapcam_review_flags_total",
			Help: "Results flagged for human review by image type",
		},
		[]string{"image_type"},
	)

	m.confidence = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "trapcam_calibrated_confidence",
		Help:    "Distribution of calibrated species confidence",
		Buckets: prometheus.LinearBuckets(0.1, 0.1, 10),
	})

	m.imageBytes = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "trapcam_image_bytes",
		Help:    "Decoded image payload size",
		Buckets: prometheus.ExponentialBuckets(BucketStart1KB, BucketFactor4, BucketCount8),
	})

	m.cacheHits = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "trapcam_result_cache_hits_total",
		Help: "Identification results served from cache",
	})

	m.cacheMisses = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "trapcam_result_cache_misses_total",
		Help: "Identification requests that missed the cache",
	})

	m.inFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "trapcam_identify_in_flight",
		Help: "Identification requests currently running",
	})
}

// RecordRequest counts a finished request and its latency
func (m *PipelineMetrics) RecordRequest(outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.requestsTotal.WithLabelValues(outcome).Inc()
	m.requestDuration.Observe(seconds)
}

// ObserveStage records how long a model stage took
func (m *PipelineMetrics) ObserveStage(stage string, seconds float64) {
	if m == nil {
		return
	}
	m.stageDuration.WithLabelValues(stage).Observe(seconds)
}

// RecordExtraction counts which extraction strategy handled a response
func (m *PipelineMetrics) RecordExtraction(stage, strategy string) {
	if m == nil {
		return
	}
	m.extractionTotal.WithLabelValues(stage, strategy).Inc()
}

// RecordReview counts a result flagged for review
func (m *PipelineMetrics) RecordReview(imageType string) {
	if m == nil {
		return
	}
	m.reviewReasonsTotal.WithLabelValues(imageType).Inc()
}

// ObserveConfidence records a final calibrated confidence
func (m *PipelineMetrics) ObserveConfidence(c float64) {
	if m == nil {
		return
	}
	m.confidence.Observe(c)
}

// ObserveImageSize records a decoded payload size in bytes
func (m *PipelineMetrics) ObserveImageSize(n int) {
	if m == nil {
		return
	}
	m.imageBytes.Observe(float64(n))
}

// RecordCache counts a cache lookup
func (m *PipelineMetrics) RecordCache(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.cacheHits.Inc()
		return
	}
	m.cacheMisses.Inc()
}

// TrackInFlight increments the in-flight gauge and returns the matching decrement
func (m *PipelineMetrics) TrackInFlight() func() {
	if m == nil {
		return func() {}
	}
	m.inFlight.Inc()
	return m.inFlight.Dec
}

// Collect implements prometheus.Collector
func (m *PipelineMetrics) Collect(ch chan<- prometheus.Metric) {
	m.requestsTotal.Collect(ch)
	ch <- m.requestDuration
	m.stageDuration.Collect(ch)
	m.extractionTotal.Collect(ch)
	m.reviewReasonsTotal.Collect(ch)
	ch <- m.confidence
	ch <- m.imageBytes
	ch <- m.cacheHits
	ch <- m.cacheMisses
	ch <- m.inFlight
}

// Describe implements prometheus.Collector
func (m *PipelineMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.requestsTotal.Describe(ch)
	ch <- m.requestDuration.Desc()
	m.stageDuration.Describe(ch)
	m.extractionTotal.Describe(ch)
	m.reviewReasonsTotal.Describe(ch)
	ch <- m.confidence.Desc()
	ch <- m.imageBytes.Desc()
	ch <- m.cacheHits.Desc()
	ch <- m.cacheMisses.Desc()
	ch <- m.inFlight.Desc()
}
