package aggregator

import (
	"sort"
	"time"

	"github.com/kubewise/k8s-resource-recommender/pkg/models"
)

// RawSample is one observation as delivered by a metrics source, tagged
// with the labels identifying its series.
type RawSample struct {
	Namespace string
	Workload  string
	Container string
	Kind      models.ResourceKind
	Timestamp time.Time
	Value     float64
}

// Aggregator groups raw samples into MetricSeries. Pure transformation,
// no side effects.
type Aggregator struct {
	minSamples int
}

// New creates an Aggregator. Series with fewer than minSamples in-window
// samples are flagged as skipped instead of being returned.
func New(minSamples int) *Aggregator {
	if minSamples < 1 {
		minSamples = 1
	}
	return &Aggregator{minSamples: minSamples}
}

// Aggregate groups raw samples by series key, sorts each group by
// timestamp, and discards samples outside the requested window (clock skew
// from the source). Series that end up below the minimum sample count are
// reported as InsufficientDataError, a per-series soft failure.
func (a *Aggregator) Aggregate(raw []RawSample, window models.Window) (map[models.SeriesKey]models.MetricSeries, []*models.InsufficientDataError) {
	grouped := make(map[models.SeriesKey][]models.MetricSample)
	for _, rs := range raw {
		key := models.SeriesKey{
			Namespace: rs.Namespace,
			Workload:  rs.Workload,
			Container: rs.Container,
			Kind:      rs.Kind,
		}
		if !window.Contains(rs.Timestamp) {
			// Still register the key so an all-out-of-window series is
			// flagged rather than silently dropped.
			if _, seen := grouped[key]; !seen {
				grouped[key] = nil
			}
			continue
		}
		grouped[key] = append(grouped[key], models.MetricSample{
			Timestamp: rs.Timestamp,
			Value:     rs.Value,
		})
	}

	series := make(map[models.SeriesKey]models.MetricSeries, len(grouped))
	var insufficient []*models.InsufficientDataError

	for key, samples := range grouped {
		if len(samples) < a.minSamples {
			insufficient = append(insufficient, &models.InsufficientDataError{
				Key:    key,
				Reason: reasonForCount(len(samples), a.minSamples),
			})
			continue
		}
		sort.Slice(samples, func(i, j int) bool {
			return samples[i].Timestamp.Before(samples[j].Timestamp)
		})
		series[key] = models.MetricSeries{
			Key:     key,
			Window:  window,
			Samples: samples,
		}
	}

	return series, insufficient
}

func reasonForCount(got, want int) string {
	if got == 0 {
		return "no samples in window"
	}
	if want > 1 {
		return "fewer samples than configured minimum"
	}
	return "no samples in window"
}
