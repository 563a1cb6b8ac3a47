package analyzer

import (
	"math"
	"sort"

	"github.com/kubewise/k8s-resource-recommender/pkg/models"
)

// Summarize reduces a MetricSeries to its statistical summary. Deterministic
// and side-effect-free: identical input always yields identical output.
// A series with zero samples is rejected; the aggregator flags that case
// before it can reach here.
func Summarize(series models.MetricSeries) (models.StatisticalSummary, error) {
	if len(series.Samples) == 0 {
		return models.StatisticalSummary{}, &models.InsufficientDataError{
			Key:    series.Key,
			Reason: "summary undefined for empty series",
		}
	}

	values := make([]float64, len(series.Samples))
	for i, sample := range series.Samples {
		values[i] = sample.Value
	}
	sort.Float64s(values)

	return models.StatisticalSummary{
		Mean:        mean(values),
		P95:         percentile(values, 95),
		Min:         values[0],
		Max:         values[len(values)-1],
		SampleCount: len(values),
	}, nil
}

// percentile computes the Nth percentile of sorted values using linear
// interpolation between order statistics: rank = (p/100) * (n-1), value
// interpolated between the floor and ceiling indices.
func percentile(sortedValues []float64, p float64) float64 {
	if len(sortedValues) == 0 {
		return 0
	}
	if len(sortedValues) == 1 {
		return sortedValues[0]
	}

	n := float64(len(sortedValues))
	rank := (p / 100.0) * (n - 1)

	lowerIndex := int(math.Floor(rank))
	upperIndex := int(math.Ceil(rank))
	if lowerIndex == upperIndex {
		return sortedValues[lowerIndex]
	}

	lowerValue := sortedValues[lowerIndex]
	upperValue := sortedValues[upperIndex]
	fraction := rank - float64(lowerIndex)

	return lowerValue + (upperValue-lowerValue)*fraction
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
