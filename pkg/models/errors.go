package models

import "fmt"

// InsufficientDataError marks a single series that cannot produce a
// recommendation. It is a soft, per-series failure: the run continues and
// the series is listed as skipped in the report.
type InsufficientDataError struct {
	Key    SeriesKey
	Reason string
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient data for %s: %s", e.Key, e.Reason)
}

// SourceUnavailableError means a metrics or cluster-state backend could not
// be reached after retries. Fatal to the run when it prevents retrieving
// any data at all.
type SourceUnavailableError struct {
	Source string
	Err    error
}

func (e *SourceUnavailableError) Error() string {
	return fmt.Sprintf("%s unavailable: %v", e.Source, e.Err)
}

func (e *SourceUnavailableError) Unwrap() error { return e.Err }

// DeliveryError means a sink failed to accept rendered artifacts. It is
// logged but never invalidates the computed recommendations.
type DeliveryError struct {
	Sink string
	Err  error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("delivery to %s failed: %v", e.Sink, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }
