package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder holds the pipeline's Prometheus collectors. A nil *Recorder is a no-op.
type Recorder struct {
	gatherer prometheus.Gatherer

	cyclesTotal      *prometheus.CounterVec
	providerRequests *prometheus.CounterVec
	analysisResults  *prometheus.CounterVec
	snapshotsTotal   *prometheus.CounterVec
	publishTotal     *prometheus.CounterVec
	lastPrice        *prometheus.GaugeVec
	lastConfidence   *prometheus.GaugeVec
	cycleDuration    prometheus.Histogram
	providerLatency  *prometheus.HistogramVec
}

// New registers the collectors on reg. Pass prometheus.NewRegistry() in tests
// to avoid duplicate registration on the default registry.
func New(reg *prometheus.Registry) *Recorder {
	factory := promauto.With(reg)
	return &Recorder{
		gatherer: reg,
		cyclesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "freeco_signal_cycles_total",
				Help: "Signal cycles by result (completed, skipped)",
			},
			[]string{"result"},
		),
		providerRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "freeco_provider_requests_total",
				Help: "AI provider calls by provider and outcome",
			},
			[]string{"provider", "outcome"},
		),
		analysisResults: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "freeco_analysis_results_total",
				Help: "Analysis results by source and action",
			},
			[]string{"source", "action"},
		),
		snapshotsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "freeco_market_snapshots_total",
				Help: "Market snapshots by source",
			},
			[]string{"source"},
		),
		publishTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "freeco_signal_publish_total",
				Help: "Signal publishes by sink and result",
			},
			[]string{"sink", "result"},
		),
		lastPrice: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "freeco_last_price",
				Help: "Last snapshot price for a pair",
			},
			[]string{"pair"},
		),
		lastConfidence: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "freeco_last_confidence",
				Help: "Confidence of the last published signal",
			},
			[]string{"pair"},
		),
		cycleDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "freeco_signal_cycle_seconds",
				Help:    "Duration of a full signal cycle",
				Buckets: prometheus.DefBuckets,
			},
		),
		providerLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "freeco_provider_request_seconds",
				Help:    "AI provider call latency",
				Buckets: []float64{0.25, 0.5, 1, 2.5, 5, 10, 20, 30},
			},
			[]string{"provider"},
		),
	}
}

func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(r.gatherer, promhttp.HandlerOpts{})
}

func (r *Recorder) RecordCycle(result string, dur time.Duration) {
	if r == nil {
		return
	}
	r.cyclesTotal.WithLabelValues(result).Inc()
	if result == "completed" {
		r.cycleDuration.Observe(dur.Seconds())
	}
}

func (r *Recorder) RecordProviderCall(provider, outcome string, dur time.Duration) {
	if r == nil {
		return
	}
	r.providerRequests.WithLabelValues(provider, outcome).Inc()
	r.providerLatency.WithLabelValues(provider).Observe(dur.Seconds())
}

func (r *Recorder) RecordAnalysis(source, action string) {
	if r == nil {
		return
	}
	r.analysisResults.WithLabelValues(source, action).Inc()
}

func (r *Recorder) RecordSnapshot(pair, source string, price float64) {
	if r == nil {
		return
	}
	r.snapshotsTotal.WithLabelValues(source).Inc()
	r.lastPrice.WithLabelValues(pair).Set(price)
}

func (r *Recorder) RecordPublish(sink string, err error) {
	if r == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	r.publishTotal.WithLabelValues(sink, result).Inc()
}

func (r *Recorder) RecordConfidence(pair string, confidence float64) {
	if r == nil {
		return
	}
	r.lastConfidence.WithLabelValues(pair).Set(confidence)
}
