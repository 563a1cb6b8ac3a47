// Package engine runs one recommendation cycle: it enumerates workload
// containers, retrieves their usage history, and reduces each series to a
// recommendation, producing a ReportBundle for rendering and delivery.
package engine

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/kubewise/k8s-resource-recommender/pkg/aggregator"
	"github.com/kubewise/k8s-resource-recommender/pkg/analyzer"
	"github.com/kubewise/k8s-resource-recommender/pkg/config"
	"github.com/kubewise/k8s-resource-recommender/pkg/datasource"
	"github.com/kubewise/k8s-resource-recommender/pkg/models"
	"github.com/kubewise/k8s-resource-recommender/pkg/recommender"
)

// ClusterSource enumerates workload containers and their current specs.
type ClusterSource interface {
	ListContainerSpecs(ctx context.Context, targets, excluded []string) ([]models.ContainerSpec, error)
}

// Engine wires the pipeline together. All state is read-only during a run;
// workers share nothing but the result accumulator.
type Engine struct {
	cfg      *config.Config
	metrics  datasource.MetricsSource
	fallback datasource.MetricsSource // optional, may be nil
	cluster  ClusterSource
	agg      *aggregator.Aggregator
	policy   recommender.Policy
	log      *logrus.Entry
}

// New creates an engine. fallback may be nil.
func New(cfg *config.Config, metrics datasource.MetricsSource, fallback datasource.MetricsSource, cluster ClusterSource) *Engine {
	return &Engine{
		cfg:      cfg,
		metrics:  metrics,
		fallback: fallback,
		cluster:  cluster,
		agg:      aggregator.New(cfg.MinSamples),
		policy:   recommender.FromConfig(cfg),
		log:      logrus.WithField("component", "engine"),
	}
}

// RunCycle performs one single-pass recommendation cycle over the window
// [now-H, now). Per-series failures are isolated into the bundle's skipped
// list; only backend-wide unavailability aborts the cycle.
func (e *Engine) RunCycle(ctx context.Context) (*models.ReportBundle, error) {
	now := time.Now().UTC()
	window := e.cfg.Window(now)

	if err := e.metrics.Available(ctx); err != nil {
		return nil, err
	}

	specs, err := e.cluster.ListContainerSpecs(ctx, e.cfg.TargetNamespaces, e.cfg.ExcludedNamespaces)
	if err != nil {
		return nil, err
	}

	e.log.WithFields(logrus.Fields{
		"containers": len(specs),
		"window":     window.Hours(),
		"buffer":     e.cfg.BufferPercent,
	}).Info("starting recommendation cycle")

	bundle := &models.ReportBundle{
		ID:            uuid.NewString(),
		Window:        window,
		BufferPercent: e.cfg.BufferPercent,
		GeneratedAt:   now,
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.MaxConcurrentQueries)

	for _, spec := range specs {
		spec := spec
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			recs, skipped := e.processContainer(gctx, window, spec)
			mu.Lock()
			bundle.Recommendations = append(bundle.Recommendations, recs...)
			bundle.Skipped = append(bundle.Skipped, skipped...)
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Ordering is established once, after all workers complete.
	bundle.Sort()

	e.log.WithFields(logrus.Fields{
		"recommendations": len(bundle.Recommendations),
		"skipped":         len(bundle.Skipped),
	}).Info("cycle complete")

	return bundle, nil
}

// processContainer retrieves and reduces both resource kinds of one
// container. It never fails the run: retrieval problems degrade to skipped
// series.
func (e *Engine) processContainer(ctx context.Context, window models.Window, spec models.ContainerSpec) ([]models.Recommendation, []models.SkippedSeries) {
	// The timeout bounds only the retrieval; summaries are fast in-memory
	// reductions and are never canceled mid-way.
	tctx, cancel := context.WithTimeout(ctx, e.cfg.QueryTimeout)
	cpu, mem, err := e.metrics.ContainerSamples(tctx, spec.Namespace, spec.Workload, spec.Container, window)
	cancel()
	if err != nil {
		reason := "metrics retrieval failed: " + err.Error()
		if errors.Is(err, context.DeadlineExceeded) {
			reason = "metrics retrieval timed out"
		}
		e.log.WithFields(logrus.Fields{
			"namespace": spec.Namespace,
			"workload":  spec.Workload,
			"container": spec.Container,
		}).WithError(err).Warn("skipping container")
		return nil, skippedBothKinds(spec, reason)
	}

	if e.fallback != nil && (len(cpu) == 0 || len(mem) == 0) {
		cpu, mem = e.fillFromFallback(ctx, window, spec, cpu, mem)
	}

	raw := make([]aggregator.RawSample, 0, len(cpu)+len(mem))
	for _, s := range cpu {
		raw = append(raw, rawSample(spec, models.ResourceCPU, s))
	}
	for _, s := range mem {
		raw = append(raw, rawSample(spec, models.ResourceMemory, s))
	}

	series, insufficient := e.agg.Aggregate(raw, window)

	reasons := make(map[models.SeriesKey]string, len(insufficient))
	for _, ie := range insufficient {
		reasons[ie.Key] = ie.Reason
	}

	var recs []models.Recommendation
	var skipped []models.SkippedSeries

	for _, kind := range []models.ResourceKind{models.ResourceCPU, models.ResourceMemory} {
		key := seriesKey(spec, kind)
		ms, ok := series[key]
		if !ok {
			reason, flagged := reasons[key]
			if !flagged {
				reason = "no samples in window"
			}
			skipped = append(skipped, models.SkippedSeries{Key: key, Reason: reason})
			continue
		}

		summary, err := analyzer.Summarize(ms)
		if err != nil {
			skipped = append(skipped, models.SkippedSeries{Key: key, Reason: err.Error()})
			continue
		}

		recs = append(recs, e.policy.Recommend(key, summary, currentFor(spec, kind)))
	}

	return recs, skipped
}

// fillFromFallback fetches instant usage for the kinds the primary source
// had no history for. Instant samples may be stamped at or after the
// window end, so they are clamped just inside it.
func (e *Engine) fillFromFallback(ctx context.Context, window models.Window, spec models.ContainerSpec, cpu, mem []models.MetricSample) ([]models.MetricSample, []models.MetricSample) {
	tctx, cancel := context.WithTimeout(ctx, e.cfg.QueryTimeout)
	defer cancel()

	fcpu, fmem, err := e.fallback.ContainerSamples(tctx, spec.Namespace, spec.Workload, spec.Container, window)
	if err != nil {
		e.log.WithError(err).Debug("fallback source failed")
		return cpu, mem
	}

	if len(cpu) == 0 && len(fcpu) > 0 {
		cpu = clampIntoWindow(fcpu, window)
		e.logFallback(spec, models.ResourceCPU)
	}
	if len(mem) == 0 && len(fmem) > 0 {
		mem = clampIntoWindow(fmem, window)
		e.logFallback(spec, models.ResourceMemory)
	}
	return cpu, mem
}

func (e *Engine) logFallback(spec models.ContainerSpec, kind models.ResourceKind) {
	e.log.WithFields(logrus.Fields{
		"namespace": spec.Namespace,
		"workload":  spec.Workload,
		"container": spec.Container,
		"kind":      kind,
		"source":    e.fallback.Name(),
	}).Info("no history from primary source, using instant usage")
}

func clampIntoWindow(samples []models.MetricSample, window models.Window) []models.MetricSample {
	out := make([]models.MetricSample, len(samples))
	for i, s := range samples {
		if !window.Contains(s.Timestamp) {
			s.Timestamp = window.End.Add(-time.Millisecond)
		}
		out[i] = s
	}
	return out
}

func rawSample(spec models.ContainerSpec, kind models.ResourceKind, s models.MetricSample) aggregator.RawSample {
	return aggregator.RawSample{
		Namespace: spec.Namespace,
		Workload:  spec.Workload,
		Container: spec.Container,
		Kind:      kind,
		Timestamp: s.Timestamp,
		Value:     s.Value,
	}
}

func seriesKey(spec models.ContainerSpec, kind models.ResourceKind) models.SeriesKey {
	return models.SeriesKey{
		Namespace: spec.Namespace,
		Workload:  spec.Workload,
		Container: spec.Container,
		Kind:      kind,
	}
}

func currentFor(spec models.ContainerSpec, kind models.ResourceKind) models.CurrentSpec {
	if kind == models.ResourceMemory {
		return spec.Memory
	}
	return spec.CPU
}

func skippedBothKinds(spec models.ContainerSpec, reason string) []models.SkippedSeries {
	return []models.SkippedSeries{
		{Key: seriesKey(spec, models.ResourceCPU), Reason: reason},
		{Key: seriesKey(spec, models.ResourceMemory), Reason: reason},
	}
}
