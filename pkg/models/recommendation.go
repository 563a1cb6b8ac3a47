package models

import (
	"sort"
	"time"

	"k8s.io/apimachinery/pkg/api/resource"
)

// ChangeDirection classifies a recommendation relative to the current spec.
type ChangeDirection string

const (
	ChangeIncrease ChangeDirection = "increase"
	ChangeDecrease ChangeDirection = "decrease"
	ChangeNoChange ChangeDirection = "nochange"
	ChangeNewlySet ChangeDirection = "newlySet"
)

// CurrentSpec is the request/limit pair read from the live cluster for one
// (workload, container, kind). Nil pointers mean "unset", never zero.
type CurrentSpec struct {
	Request *resource.Quantity
	Limit   *resource.Quantity
}

// Unset reports whether the container has neither a request nor a limit
// configured for this kind.
func (s CurrentSpec) Unset() bool {
	return s.Request == nil && s.Limit == nil
}

// ContainerSpec is one container of a scanned workload together with its
// current cpu and memory specs.
type ContainerSpec struct {
	Namespace    string
	Workload     string
	WorkloadKind string // Deployment, StatefulSet, DaemonSet
	Container    string
	CPU          CurrentSpec
	Memory       CurrentSpec
}

// Recommendation is the policy output for one (workload, container, kind).
// It is immutable once created and never persisted across runs.
type Recommendation struct {
	Namespace string
	Workload  string
	Container string
	Kind      ResourceKind

	Current CurrentSpec
	Request resource.Quantity
	Limit   resource.Quantity

	BufferPercent int
	Direction     ChangeDirection

	// Summary the recommendation was derived from, carried for reporting.
	Summary StatisticalSummary
}

// SkippedSeries records a series that yielded no recommendation.
type SkippedSeries struct {
	Key    SeriesKey
	Reason string
}

// ReportBundle is the ordered result of one recommendation cycle, the unit
// handed to rendering and delivery.
type ReportBundle struct {
	ID            string
	Window        Window
	BufferPercent int
	GeneratedAt   time.Time

	Recommendations []Recommendation
	Skipped         []SkippedSeries
}

// Sort establishes the canonical ordering: namespace, workload, container,
// kind, all ascending. Both renderers rely on it.
func (b *ReportBundle) Sort() {
	sort.Slice(b.Recommendations, func(i, j int) bool {
		a, c := b.Recommendations[i], b.Recommendations[j]
		if a.Namespace != c.Namespace {
			return a.Namespace < c.Namespace
		}
		if a.Workload != c.Workload {
			return a.Workload < c.Workload
		}
		if a.Container != c.Container {
			return a.Container < c.Container
		}
		return a.Kind < c.Kind
	})
	sort.Slice(b.Skipped, func(i, j int) bool {
		a, c := b.Skipped[i].Key, b.Skipped[j].Key
		if a.Namespace != c.Namespace {
			return a.Namespace < c.Namespace
		}
		if a.Workload != c.Workload {
			return a.Workload < c.Workload
		}
		if a.Container != c.Container {
			return a.Container < c.Container
		}
		return a.Kind < c.Kind
	})
}
