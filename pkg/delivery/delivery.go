// Package delivery pushes rendered cycle artifacts to outbound sinks.
// Delivery is best-effort: a failing sink is reported and logged but never
// invalidates the computed recommendations.
package delivery

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/kubewise/k8s-resource-recommender/pkg/models"
)

// Artifacts bundles every rendered form of one cycle's output.
type Artifacts struct {
	Bundle    *models.ReportBundle
	Table     string // plain-text table, no ANSI sequences
	HTML      string
	PatchYAML []byte
}

// Sink delivers artifacts somewhere outside the process.
type Sink interface {
	Deliver(ctx context.Context, artifacts Artifacts) error
	Name() string
}

// Fanout delivers to every sink and collects the failures. Each failure is
// wrapped in a DeliveryError naming the sink.
func Fanout(ctx context.Context, sinks []Sink, artifacts Artifacts) []*models.DeliveryError {
	var failures []*models.DeliveryError
	for _, sink := range sinks {
		if err := sink.Deliver(ctx, artifacts); err != nil {
			derr := &models.DeliveryError{Sink: sink.Name(), Err: err}
			logrus.WithField("sink", sink.Name()).WithError(err).Error("delivery failed")
			failures = append(failures, derr)
			continue
		}
		logrus.WithField("sink", sink.Name()).Info("delivered report")
	}
	return failures
}
