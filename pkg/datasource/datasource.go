// Package datasource contains the boundary adapters that retrieve raw usage
// samples for the recommendation engine.
package datasource

import (
	"context"

	"github.com/kubewise/k8s-resource-recommender/pkg/models"
)

// MetricsSource retrieves raw cpu and memory samples for one container of a
// workload over a window. CPU values are in millicores, memory in bytes.
// An empty result is valid ("no data"); transport failures are retried by
// the adapter and surface as SourceUnavailableError once exhausted.
type MetricsSource interface {
	ContainerSamples(ctx context.Context, namespace, workload, container string, window models.Window) (cpu, mem []models.MetricSample, err error)
	Available(ctx context.Context) error
	Name() string
}
