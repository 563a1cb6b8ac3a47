// Package reporter renders a ReportBundle in human-readable forms. The
// plain-text table and the HTML table consume the same row set, so both
// always list identical rows in identical order.
package reporter

import (
	"fmt"
	"sort"

	"k8s.io/apimachinery/pkg/api/resource"

	"github.com/kubewise/k8s-resource-recommender/pkg/models"
)

const mi = 1024 * 1024

// Reporter renders report bundles. Colors apply to the plain-text table
// only and carry no semantic weight.
type Reporter struct {
	colors bool
}

func New(colors bool) *Reporter {
	return &Reporter{colors: colors}
}

// Row is one rendered line: a single (workload, container, kind).
type Row struct {
	Namespace string
	Workload  string
	Container string
	Kind      string

	CurrentRequest     string
	RecommendedRequest string
	CurrentLimit       string
	RecommendedLimit   string

	Mean    string
	P95     string
	Samples int

	Direction models.ChangeDirection
}

// Rows converts the bundle into the canonical row ordering: namespace,
// workload, container, kind, all ascending. Sorting here keeps the two
// renderers consistent even if the caller forgot to sort the bundle.
func (r *Reporter) Rows(bundle *models.ReportBundle) []Row {
	out := make([]Row, 0, len(bundle.Recommendations))
	for _, rec := range bundle.Recommendations {
		out = append(out, Row{
			Namespace:          rec.Namespace,
			Workload:           rec.Workload,
			Container:          rec.Container,
			Kind:               string(rec.Kind),
			CurrentRequest:     quantityOrNA(rec.Current.Request),
			RecommendedRequest: rec.Request.String(),
			CurrentLimit:       quantityOrNA(rec.Current.Limit),
			RecommendedLimit:   rec.Limit.String(),
			Mean:               formatValue(rec.Kind, rec.Summary.Mean),
			P95:                formatValue(rec.Kind, rec.Summary.P95),
			Samples:            rec.Summary.SampleCount,
			Direction:          rec.Direction,
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Namespace != out[j].Namespace {
			return out[i].Namespace < out[j].Namespace
		}
		if out[i].Workload != out[j].Workload {
			return out[i].Workload < out[j].Workload
		}
		if out[i].Container != out[j].Container {
			return out[i].Container < out[j].Container
		}
		return out[i].Kind < out[j].Kind
	})

	return out
}

func quantityOrNA(q *resource.Quantity) string {
	if q == nil {
		return "N/A"
	}
	return q.String()
}

// formatValue renders a raw statistic with a fixed unit and precision:
// millicores for cpu, mebibytes for memory.
func formatValue(kind models.ResourceKind, v float64) string {
	if kind == models.ResourceMemory {
		return fmt.Sprintf("%.1fMi", v/float64(mi))
	}
	return fmt.Sprintf("%.1fm", v)
}
