// Package metrics provides observability hooks for builds. Components take a
// Recorder through dependency injection and default to NoopRecorder, so
// metrics stay zero-cost until a real implementation is wired in (watch mode
// with --metrics-addr installs the Prometheus one).
package metrics

import "time"

// Outcome labels for IncBuildOutcome.
const (
	OutcomeSuccess = "success"
	OutcomeFailed  = "failed"
)

// Recorder defines the observability hooks packsmith emits during builds.
// Implementations must be safe for concurrent use.
type Recorder interface {
	ObserveBuildDuration(d time.Duration)
	IncBuildOutcome(outcome string)
	IncDraftCache(name string, hit bool)
	ObservePluginDuration(plugin string, d time.Duration)
}

// NoopRecorder is a Recorder that does nothing (default when metrics are not
// configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveBuildDuration(time.Duration)          {}
func (NoopRecorder) IncBuildOutcome(string)                      {}
func (NoopRecorder) IncDraftCache(string, bool)                  {}
func (NoopRecorder) ObservePluginDuration(string, time.Duration) {}
