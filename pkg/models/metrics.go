package models

import (
	"fmt"
	"time"
)

// ResourceKind identifies which container resource a series measures.
type ResourceKind string

const (
	ResourceCPU    ResourceKind = "cpu"    // values in millicores
	ResourceMemory ResourceKind = "memory" // values in bytes
)

// SeriesKey identifies one metric series: a single resource kind of a
// single container of a single workload.
type SeriesKey struct {
	Namespace string
	Workload  string
	Container string
	Kind      ResourceKind
}

func (k SeriesKey) String() string {
	return fmt.Sprintf("%s/%s/%s/%s", k.Namespace, k.Workload, k.Container, k.Kind)
}

// Window is the half-open analysis interval [Start, End).
type Window struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

func (w Window) Hours() float64 {
	return w.End.Sub(w.Start).Hours()
}

// MetricSample is one observation of a resource kind at an instant.
type MetricSample struct {
	Timestamp time.Time
	Value     float64
}

// MetricSeries holds the ordered samples of one series inside a window.
// Samples are non-decreasing in timestamp and all fall within Window.
// A series with zero samples is valid but yields no recommendation.
type MetricSeries struct {
	Key     SeriesKey
	Window  Window
	Samples []MetricSample
}

// StatisticalSummary is the reduction of exactly one MetricSeries.
// Invariants: Min <= Mean <= Max and Min <= P95 <= Max.
type StatisticalSummary struct {
	Mean        float64
	P95         float64
	Min         float64
	Max         float64
	SampleCount int
}
