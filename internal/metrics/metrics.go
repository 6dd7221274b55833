// Package metrics defines the minimal metrics interface the ETL pipeline
// and the API server emit against. Concrete backends live in
// subpackages; core code depends only on Backend.
package metrics

import "context"

// Backend receives metric observations. Implementations buffer
// internally and submit on Flush/Close.
type Backend interface {
	// IncCounter adds value to a named counter.
	IncCounter(name string, value float64, tags ...string)

	// ObserveHistogram records one observation of a named distribution
	// (e.g. pipeline run duration in seconds).
	ObserveHistogram(name string, value float64, tags ...string)

	// Flush submits buffered metrics.
	Flush(ctx context.Context) error

	// Close flushes one final time and releases resources.
	Close(ctx context.Context) error
}

// Noop discards all observations. Used when no metrics backend is
// configured.
type Noop struct{}

func (Noop) IncCounter(string, float64, ...string)       {}
func (Noop) ObserveHistogram(string, float64, ...string) {}
func (Noop) Flush(context.Context) error                 { return nil }
func (Noop) Close(context.Context) error                 { return nil }
