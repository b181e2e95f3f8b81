package metrics

import (
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	buildDuration  prom.Histogram
	buildOutcome   *prom.CounterVec
	draftCache     *prom.CounterVec
	pluginDuration *prom.HistogramVec
}

// NewPrometheusRecorder constructs and registers the packsmith metrics on reg.
// A nil registry gets a fresh one.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		buildDuration: prom.NewHistogram(prom.HistogramOpts{
			Namespace: "packsmith",
			Name:      "build_duration_seconds",
			Help:      "Total build duration",
			Buckets:   prom.DefBuckets,
		}),
		buildOutcome: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "packsmith",
			Name:      "build_outcomes_total",
			Help:      "Build outcomes by final status",
		}, []string{"outcome"}),
		draftCache: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "packsmith",
			Name:      "draft_cache_total",
			Help:      "Draft cache lookups by bucket and result",
		}, []string{"bucket", "result"}),
		pluginDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "packsmith",
			Name:      "plugin_duration_seconds",
			Help:      "Duration of individual pipeline plugins",
			Buckets:   prom.DefBuckets,
		}, []string{"plugin"}),
	}
	reg.MustRegister(pr.buildDuration, pr.buildOutcome, pr.draftCache, pr.pluginDuration)
	return pr
}

func (p *PrometheusRecorder) ObserveBuildDuration(d time.Duration) {
	if p == nil || p.buildDuration == nil {
		return
	}
	p.buildDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncBuildOutcome(outcome string) {
	if p == nil || p.buildOutcome == nil {
		return
	}
	p.buildOutcome.WithLabelValues(outcome).Inc()
}

func (p *PrometheusRecorder) IncDraftCache(name string, hit bool) {
	if p == nil || p.draftCache == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	p.draftCache.WithLabelValues(name, result).Inc()
}

func (p *PrometheusRecorder) ObservePluginDuration(plugin string, d time.Duration) {
	if p == nil || p.pluginDuration == nil {
		return
	}
	p.pluginDuration.WithLabelValues(plugin).Observe(d.Seconds())
}
