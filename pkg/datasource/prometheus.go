package datasource

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/api"
	promv1 "github.com/prometheus/client_golang/api/prometheus/v1"
	"github.com/prometheus/common/model"
	"github.com/sirupsen/logrus"

	"github.com/kubewise/k8s-resource-recommender/pkg/models"
	"github.com/kubewise/k8s-resource-recommender/pkg/retry"
)

// PrometheusSource retrieves historical samples via range queries. The
// cpu query is rated over 5m and scaled to millicores in PromQL; memory is
// the working-set gauge in bytes.
type PrometheusSource struct {
	promAPI promv1.API
	url     string
	step    time.Duration
	retry   retry.Policy
	log     *logrus.Entry
}

// NewPrometheusSource creates a source against the given server URL.
func NewPrometheusSource(url string, step time.Duration, policy retry.Policy) (*PrometheusSource, error) {
	client, err := api.NewClient(api.Config{Address: url})
	if err != nil {
		return nil, fmt.Errorf("failed to create Prometheus client: %w", err)
	}
	return &PrometheusSource{
		promAPI: promv1.NewAPI(client),
		url:     url,
		step:    step,
		retry:   policy,
		log:     logrus.WithField("source", "prometheus"),
	}, nil
}

func (p *PrometheusSource) Name() string { return "prometheus" }

// Available probes the backend with a trivial instant query, retrying per
// the source's policy.
func (p *PrometheusSource) Available(ctx context.Context) error {
	err := p.retry.Do(ctx, "prometheus availability probe", func(ctx context.Context) error {
		_, _, err := p.promAPI.Query(ctx, "up", time.Now())
		return err
	})
	if err != nil {
		return &models.SourceUnavailableError{Source: "prometheus", Err: err}
	}
	return nil
}

// ContainerSamples runs both range queries for one container. Pods are
// matched by workload-name prefix, so all replicas of the workload
// contribute samples.
func (p *PrometheusSource) ContainerSamples(ctx context.Context, namespace, workload, container string, window models.Window) ([]models.MetricSample, []models.MetricSample, error) {
	cpuQuery := fmt.Sprintf(
		`rate(container_cpu_usage_seconds_total{namespace=%q,pod=~"^%s-.*",container=%q}[5m]) * 1000`,
		namespace, workload, container,
	)
	cpu, err := p.queryRange(ctx, cpuQuery, window)
	if err != nil {
		return nil, nil, fmt.Errorf("cpu query for %s/%s/%s: %w", namespace, workload, container, err)
	}

	memQuery := fmt.Sprintf(
		`container_memory_working_set_bytes{namespace=%q,pod=~"^%s-.*",container=%q}`,
		namespace, workload, container,
	)
	mem, err := p.queryRange(ctx, memQuery, window)
	if err != nil {
		return nil, nil, fmt.Errorf("memory query for %s/%s/%s: %w", namespace, workload, container, err)
	}

	return cpu, mem, nil
}

func (p *PrometheusSource) queryRange(ctx context.Context, query string, window models.Window) ([]models.MetricSample, error) {
	r := promv1.Range{
		Start: window.Start,
		End:   window.End,
		Step:  p.step,
	}

	p.log.WithFields(logrus.Fields{
		"query": query,
		"start": window.Start.Format(time.RFC3339),
		"end":   window.End.Format(time.RFC3339),
		"step":  p.step.String(),
	}).Debug("running range query")

	var result model.Value
	err := p.retry.Do(ctx, "prometheus range query", func(ctx context.Context) error {
		var warnings promv1.Warnings
		var err error
		result, warnings, err = p.promAPI.QueryRange(ctx, query, r)
		if len(warnings) > 0 {
			p.log.WithField("warnings", warnings).Debug("prometheus warnings")
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	return parseMatrix(result)
}

// parseMatrix flattens a range-query result into samples. Multiple series
// (replica pods) all contribute; ordering is the aggregator's job. An empty
// matrix is valid and means "no data".
func parseMatrix(result model.Value) ([]models.MetricSample, error) {
	matrix, ok := result.(model.Matrix)
	if !ok {
		return nil, fmt.Errorf("unexpected result type: %T", result)
	}

	var samples []models.MetricSample
	for _, series := range matrix {
		for _, value := range series.Values {
			samples = append(samples, models.MetricSample{
				Timestamp: value.Timestamp.Time(),
				Value:     float64(value.Value),
			})
		}
	}
	return samples, nil
}
