package analyzer

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/kubewise/k8s-resource-recommender/pkg/models"
)

func seriesOf(values ...float64) models.MetricSeries {
	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	samples := make([]models.MetricSample, len(values))
	for i, v := range values {
		samples[i] = models.MetricSample{
			Timestamp: start.Add(time.Duration(i) * time.Minute),
			Value:     v,
		}
	}
	return models.MetricSeries{
		Key: models.SeriesKey{
			Namespace: "default", Workload: "web", Container: "app", Kind: models.ResourceCPU,
		},
		Window:  models.Window{Start: start, End: start.Add(time.Hour)},
		Samples: samples,
	}
}

func TestSummarize(t *testing.T) {
	// Values 1..10
	s, err := Summarize(seriesOf(1, 2, 3, 4, 5, 6, 7, 8, 9, 10))
	if err != nil {
		t.Fatalf("Summarize failed: %v", err)
	}

	if s.Mean != 5.5 {
		t.Errorf("Expected mean 5.5, got %.2f", s.Mean)
	}
	if s.Min != 1 || s.Max != 10 {
		t.Errorf("Expected min 1 max 10, got %.0f/%.0f", s.Min, s.Max)
	}
	// rank = 0.95 * 9 = 8.55 -> 9 + 0.55*(10-9) = 9.55
	if math.Abs(s.P95-9.55) > 1e-9 {
		t.Errorf("Expected P95 9.55, got %.4f", s.P95)
	}
	if s.SampleCount != 10 {
		t.Errorf("Expected 10 samples, got %d", s.SampleCount)
	}
}

func TestSummarizeInvariants(t *testing.T) {
	inputs := [][]float64{
		{42},
		{0, 0, 0},
		{1, 1000},
		{3, 1, 4, 1, 5, 9, 2, 6},
		{100, 100, 100, 100, 100, 200},
	}

	for _, values := range inputs {
		s, err := Summarize(seriesOf(values...))
		if err != nil {
			t.Fatalf("Summarize(%v) failed: %v", values, err)
		}
		if s.Min > s.Mean || s.Mean > s.Max {
			t.Errorf("min <= mean <= max violated for %v: %+v", values, s)
		}
		if s.Min > s.P95 || s.P95 > s.Max {
			t.Errorf("min <= p95 <= max violated for %v: %+v", values, s)
		}
	}
}

func TestSummarizeSingleSample(t *testing.T) {
	s, err := Summarize(seriesOf(7.5))
	if err != nil {
		t.Fatalf("Summarize failed: %v", err)
	}
	if s.Mean != 7.5 || s.P95 != 7.5 || s.Min != 7.5 || s.Max != 7.5 {
		t.Errorf("n=1 must collapse all statistics to the value, got %+v", s)
	}
}

func TestSummarizeIdenticalValues(t *testing.T) {
	s, err := Summarize(seriesOf(250, 250, 250, 250))
	if err != nil {
		t.Fatalf("Summarize failed: %v", err)
	}
	if s.P95 != 250 {
		t.Errorf("P95 of identical values must equal the value, got %.2f", s.P95)
	}
}

func TestSummarizeInterpolation(t *testing.T) {
	// Sorted [100,100,100,100,100,200]: rank = 0.95*5 = 4.75
	// -> 100 + 0.75*(200-100) = 175
	s, err := Summarize(seriesOf(100, 100, 100, 100, 100, 200))
	if err != nil {
		t.Fatalf("Summarize failed: %v", err)
	}
	if math.Abs(s.P95-175) > 1e-9 {
		t.Errorf("Expected interpolated P95 175, got %.4f", s.P95)
	}
}

func TestSummarizeEmptySeries(t *testing.T) {
	_, err := Summarize(models.MetricSeries{
		Key: models.SeriesKey{Namespace: "default", Workload: "web", Container: "app", Kind: models.ResourceCPU},
	})
	if err == nil {
		t.Fatal("Expected error for empty series")
	}
	var insufficient *models.InsufficientDataError
	if !errors.As(err, &insufficient) {
		t.Errorf("Expected InsufficientDataError, got %T", err)
	}
}

func TestSummarizeDeterministic(t *testing.T) {
	series := seriesOf(3, 1, 4, 1, 5, 9, 2, 6, 5, 3)
	first, err := Summarize(series)
	if err != nil {
		t.Fatalf("Summarize failed: %v", err)
	}
	for i := 0; i < 5; i++ {
		again, err := Summarize(series)
		if err != nil {
			t.Fatalf("Summarize failed: %v", err)
		}
		if again != first {
			t.Fatalf("Summary not deterministic: %+v vs %+v", first, again)
		}
	}
}
