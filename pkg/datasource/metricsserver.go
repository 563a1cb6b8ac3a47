package datasource

import (
	"context"
	"fmt"
	"strings"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	metricsv "k8s.io/metrics/pkg/client/clientset/versioned"

	"github.com/kubewise/k8s-resource-recommender/pkg/models"
)

// MetricsServerSource reads instant usage from the metrics.k8s.io API. It
// only ever yields one sample per replica pod, so it serves as a fallback
// when Prometheus has no history for a container (fresh deployments,
// scrape gaps) rather than as a primary source.
type MetricsServerSource struct {
	client metricsv.Interface
}

func NewMetricsServerSource(client metricsv.Interface) *MetricsServerSource {
	return &MetricsServerSource{client: client}
}

func (s *MetricsServerSource) Name() string { return "metrics-server" }

func (s *MetricsServerSource) Available(ctx context.Context) error {
	_, err := s.client.MetricsV1beta1().NodeMetricses().List(ctx, metav1.ListOptions{Limit: 1})
	if err != nil {
		return &models.SourceUnavailableError{Source: "metrics-server", Err: err}
	}
	return nil
}

// ContainerSamples returns the current usage of every replica pod of the
// workload as single-sample series. The window is not consulted: callers
// clamp the sample timestamps into their window.
func (s *MetricsServerSource) ContainerSamples(ctx context.Context, namespace, workload, container string, _ models.Window) ([]models.MetricSample, []models.MetricSample, error) {
	podMetrics, err := s.client.MetricsV1beta1().PodMetricses(namespace).List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list pod metrics in %s: %w", namespace, err)
	}

	var cpu, mem []models.MetricSample
	for _, pod := range podMetrics.Items {
		if !podBelongsToWorkload(pod.Name, workload) {
			continue
		}
		for _, c := range pod.Containers {
			if c.Name != container {
				continue
			}
			ts := pod.Timestamp.Time
			if q, ok := c.Usage[corev1.ResourceCPU]; ok {
				cpu = append(cpu, models.MetricSample{Timestamp: ts, Value: float64(q.MilliValue())})
			}
			if q, ok := c.Usage[corev1.ResourceMemory]; ok {
				mem = append(mem, models.MetricSample{Timestamp: ts, Value: float64(q.Value())})
			}
		}
	}

	return cpu, mem, nil
}

func podBelongsToWorkload(podName, workload string) bool {
	return podName == workload || strings.HasPrefix(podName, workload+"-")
}
