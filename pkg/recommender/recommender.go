package recommender

import (
	"math"

	"k8s.io/apimachinery/pkg/api/resource"

	"github.com/kubewise/k8s-resource-recommender/pkg/config"
	"github.com/kubewise/k8s-resource-recommender/pkg/models"
)

const mi = int64(1024 * 1024)

// KindPolicy holds the rounding unit and floor for one resource kind, in
// that kind's base units (millicores for cpu, bytes for memory).
type KindPolicy struct {
	RoundingUnit int64
	Floor        int64
}

// Policy maps a statistical summary plus the current spec into a
// recommendation. Purely functional: it never mutates its inputs.
type Policy struct {
	BufferPercent    int
	TolerancePercent float64
	CPU              KindPolicy
	Memory           KindPolicy
}

// FromConfig builds a Policy from run configuration, converting the
// memory unit and floor from Mi to bytes.
func FromConfig(cfg *config.Config) Policy {
	return Policy{
		BufferPercent:    cfg.BufferPercent,
		TolerancePercent: cfg.TolerancePercent,
		CPU: KindPolicy{
			RoundingUnit: cfg.CPURoundingMilli,
			Floor:        cfg.CPUFloorMilli,
		},
		Memory: KindPolicy{
			RoundingUnit: cfg.MemoryRoundingMi * mi,
			Floor:        cfg.MemoryFloorMi * mi,
		},
	}
}

// Recommend derives the request from the mean (steady-state load) and the
// limit from the P95 (near-peak load), applies the safety buffer, rounds up
// to the kind's unit, and enforces the floor. Rounding is always toward the
// higher value: under-rounding risks throttling or OOM kills.
func (p Policy) Recommend(key models.SeriesKey, summary models.StatisticalSummary, current models.CurrentSpec) models.Recommendation {
	kp := p.kindPolicy(key.Kind)
	factor := 1.0 + float64(p.BufferPercent)/100.0

	request := ceilToUnit(summary.Mean*factor, kp.RoundingUnit)
	limit := ceilToUnit(summary.P95*factor, kp.RoundingUnit)

	if request < kp.Floor {
		request = kp.Floor
	}
	// The limit never falls below the request.
	if limit < request {
		limit = request
	}

	return models.Recommendation{
		Namespace:     key.Namespace,
		Workload:      key.Workload,
		Container:     key.Container,
		Kind:          key.Kind,
		Current:       current,
		Request:       quantityFor(key.Kind, request),
		Limit:         quantityFor(key.Kind, limit),
		BufferPercent: p.BufferPercent,
		Direction:     p.direction(key.Kind, request, current),
		Summary:       summary,
	}
}

func (p Policy) kindPolicy(kind models.ResourceKind) KindPolicy {
	if kind == models.ResourceMemory {
		return p.Memory
	}
	return p.CPU
}

// direction compares the recommended request against the current one using
// a tolerance band so noise-level deltas are not flagged as changes. The
// current limit stands in when no request is set.
func (p Policy) direction(kind models.ResourceKind, recommended int64, current models.CurrentSpec) models.ChangeDirection {
	if current.Unset() {
		return models.ChangeNewlySet
	}

	reference := current.Request
	if reference == nil {
		reference = current.Limit
	}
	cur := baseValue(kind, reference)
	if cur <= 0 {
		return models.ChangeNewlySet
	}

	deltaPercent := (float64(recommended) - float64(cur)) / float64(cur) * 100.0
	switch {
	case math.Abs(deltaPercent) <= p.TolerancePercent:
		return models.ChangeNoChange
	case deltaPercent > 0:
		return models.ChangeIncrease
	default:
		return models.ChangeDecrease
	}
}

// ceilToUnit rounds v up to the next multiple of unit. The epsilon absorbs
// float noise from the buffer multiplication so exact multiples are not
// bumped a whole unit.
func ceilToUnit(v float64, unit int64) int64 {
	if v <= 0 {
		return 0
	}
	return int64(math.Ceil(v/float64(unit)-1e-9)) * unit
}

// quantityFor renders a base-unit value as a canonical Kubernetes quantity:
// decimal millicores for cpu, binary suffixes for memory. Canonical
// formatting keeps repeated runs byte-identical.
func quantityFor(kind models.ResourceKind, v int64) resource.Quantity {
	if kind == models.ResourceMemory {
		return *resource.NewQuantity(v, resource.BinarySI)
	}
	return *resource.NewMilliQuantity(v, resource.DecimalSI)
}

// baseValue reads a quantity in the kind's base units (millicores or
// bytes). Nil quantities yield -1, meaning unset.
func baseValue(kind models.ResourceKind, q *resource.Quantity) int64 {
	if q == nil {
		return -1
	}
	if kind == models.ResourceMemory {
		return q.Value()
	}
	return q.MilliValue()
}
