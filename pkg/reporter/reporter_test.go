package reporter

import (
	"strings"
	"testing"
	"time"

	"k8s.io/apimachinery/pkg/api/resource"

	"github.com/kubewise/k8s-resource-recommender/pkg/models"
)

func testBundle() *models.ReportBundle {
	end := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	mk := func(ns, workload, container string, kind models.ResourceKind, request, limit string, dir models.ChangeDirection) models.Recommendation {
		return models.Recommendation{
			Namespace: ns, Workload: workload, Container: container, Kind: kind,
			Request: resource.MustParse(request), Limit: resource.MustParse(limit),
			BufferPercent: 20, Direction: dir,
			Summary: models.StatisticalSummary{Mean: 100, P95: 150, Min: 50, Max: 200, SampleCount: 42},
		}
	}

	return &models.ReportBundle{
		ID:            "test-run",
		Window:        models.Window{Start: end.Add(-168 * time.Hour), End: end},
		BufferPercent: 20,
		GeneratedAt:   end,
		Recommendations: []models.Recommendation{
			// Deliberately unsorted.
			mk("default", "web", "sidecar", models.ResourceCPU, "50m", "100m", models.ChangeDecrease),
			mk("backend", "worker", "app", models.ResourceMemory, "240Mi", "360Mi", models.ChangeIncrease),
			mk("default", "web", "app", models.ResourceMemory, "128Mi", "192Mi", models.ChangeNewlySet),
			mk("default", "web", "app", models.ResourceCPU, "160m", "210m", models.ChangeNoChange),
		},
		Skipped: []models.SkippedSeries{
			{
				Key:    models.SeriesKey{Namespace: "default", Workload: "idle", Container: "app", Kind: models.ResourceCPU},
				Reason: "no samples in window",
			},
		},
	}
}

func TestRowsOrdering(t *testing.T) {
	rows := New(false).Rows(testBundle())
	if len(rows) != 4 {
		t.Fatalf("Expected 4 rows, got %d", len(rows))
	}

	want := []string{
		"backend/worker/app/memory",
		"default/web/app/cpu",
		"default/web/app/memory",
		"default/web/sidecar/cpu",
	}
	for i, rw := range rows {
		got := rw.Namespace + "/" + rw.Workload + "/" + rw.Container + "/" + rw.Kind
		if got != want[i] {
			t.Errorf("Row %d: expected %s, got %s", i, want[i], got)
		}
	}
}

func TestTableAndHTMLRowParity(t *testing.T) {
	bundle := testBundle()
	r := New(false)

	table := r.Table(bundle)
	html, err := r.HTML(bundle)
	if err != nil {
		t.Fatalf("HTML failed: %v", err)
	}

	// Identical rows in identical order in both outputs: the ordered list
	// of recommended request strings must appear in sequence in each.
	markers := []string{"240Mi", "160m", "128Mi", "50m"}
	for _, out := range []string{table, html} {
		pos := -1
		for _, m := range markers {
			idx := strings.Index(out, m)
			if idx < 0 {
				t.Fatalf("Marker %s missing from output:\n%s", m, out)
			}
			if idx < pos {
				t.Errorf("Marker %s out of order", m)
			}
			pos = idx
		}
	}
}

func TestTableContents(t *testing.T) {
	out := New(false).Table(testBundle())

	for _, want := range []string{
		"buffer 20%",
		"NAMESPACE",
		"default", "web", "sidecar",
		"N/A", // current specs were never set in the fixture
		"Skipped: insufficient data",
		"default/idle/app/cpu",
		"no samples in window",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Table missing %q:\n%s", want, out)
		}
	}
}

func TestTableNoColorsByDefault(t *testing.T) {
	out := New(false).Table(testBundle())
	if strings.Contains(out, "\x1b[") {
		t.Error("Table must not contain ANSI escapes when colors are disabled")
	}
}

func TestHTMLClasses(t *testing.T) {
	html, err := New(false).HTML(testBundle())
	if err != nil {
		t.Fatalf("HTML failed: %v", err)
	}

	for _, want := range []string{
		`class="increase"`,
		`class="decrease"`,
		`class="new"`,
		`class="minor"`,
		"Skipped: insufficient data",
	} {
		if !strings.Contains(html, want) {
			t.Errorf("HTML missing %q", want)
		}
	}
}

func TestEmptyBundle(t *testing.T) {
	bundle := &models.ReportBundle{
		Window:        models.Window{Start: time.Now().Add(-time.Hour), End: time.Now()},
		BufferPercent: 20,
		GeneratedAt:   time.Now(),
	}
	r := New(false)

	table := r.Table(bundle)
	if !strings.Contains(table, "No recommendations") {
		t.Errorf("Expected empty-bundle marker in table:\n%s", table)
	}

	html, err := r.HTML(bundle)
	if err != nil {
		t.Fatalf("HTML failed: %v", err)
	}
	if !strings.Contains(html, "No recommendations") {
		t.Error("Expected empty-bundle marker in HTML")
	}
}
