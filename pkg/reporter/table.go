package reporter

import (
	"bytes"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/kubewise/k8s-resource-recommender/pkg/models"
)

var (
	styleIncrease = lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Bold(true) // green
	styleNew      = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	styleDecrease = lipgloss.NewStyle().Foreground(lipgloss.Color("4")) // blue
	styleNoChange = lipgloss.NewStyle().Faint(true)
	styleHeader   = lipgloss.NewStyle().Bold(true)
)

// Table renders the bundle as a plain-text table. Emphasis is derived from
// each recommendation's change direction and is rendering-only.
func (r *Reporter) Table(bundle *models.ReportBundle) string {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Resource recommendations %s to %s (buffer %d%%)\n",
		bundle.Window.Start.UTC().Format(time.RFC3339),
		bundle.Window.End.UTC().Format(time.RFC3339),
		bundle.BufferPercent)
	fmt.Fprintf(&buf, "Generated at %s\n\n", bundle.GeneratedAt.UTC().Format(time.RFC3339))

	rows := r.Rows(bundle)
	if len(rows) == 0 {
		buf.WriteString("No recommendations - all resources are already optimized.\n")
	} else {
		w := tabwriter.NewWriter(&buf, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, r.emphasize(styleHeader,
			"NAMESPACE\tWORKLOAD\tCONTAINER\tKIND\tCURR REQ\tRECO REQ\tCURR LIMIT\tRECO LIMIT\tMEAN\tP95\tSAMPLES\tCHANGE"))
		for _, rw := range rows {
			style := r.directionStyle(rw.Direction)
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%d\t%s\n",
				rw.Namespace,
				rw.Workload,
				rw.Container,
				rw.Kind,
				rw.CurrentRequest,
				r.emphasize(style, rw.RecommendedRequest),
				rw.CurrentLimit,
				r.emphasize(style, rw.RecommendedLimit),
				rw.Mean,
				rw.P95,
				rw.Samples,
				r.emphasize(style, string(rw.Direction)),
			)
		}
		w.Flush()
	}

	if len(bundle.Skipped) > 0 {
		buf.WriteString("\nSkipped: insufficient data\n")
		for _, s := range bundle.Skipped {
			fmt.Fprintf(&buf, "  %s (%s)\n", s.Key, s.Reason)
		}
	}

	return buf.String()
}

func (r *Reporter) directionStyle(d models.ChangeDirection) lipgloss.Style {
	switch d {
	case models.ChangeIncrease:
		return styleIncrease
	case models.ChangeNewlySet:
		return styleNew
	case models.ChangeDecrease:
		return styleDecrease
	default:
		return styleNoChange
	}
}

func (r *Reporter) emphasize(style lipgloss.Style, s string) string {
	if !r.colors {
		return s
	}
	return style.Render(s)
}
