// Package datadog implements a Datadog backend for the internal/metrics
// package.
//
// Observations are buffered in-memory under a mutex, flushed periodically
// by a ticker loop, and flushed one final time on Close. This yields time
// series points while a long ETL job runs and a tail flush for short
// ones. Credentials come from DD_API_KEY / DD_APP_KEY via the Datadog
// SDK's default context.
package datadog

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	dd "github.com/DataDog/datadog-api-client-go/v2/api/datadog"
	"github.com/DataDog/datadog-api-client-go/v2/api/datadogV2"

	"salesdw/internal/metrics"
)

// Options controls Datadog backend configuration.
type Options struct {
	// JobName becomes tag "job:<name>" on every metric. Defaults to
	// "salesdw".
	JobName string

	// Tags are extra Datadog tags (e.g. []string{"env:prod"}).
	Tags []string

	// FlushEvery controls how often buffered metrics are submitted.
	// If <= 0, defaults to 60 seconds.
	FlushEvery time.Duration

	// Unexported test seams. Production code never sets them; unit
	// tests use them to avoid real submission and nondeterministic
	// clocks.
	now       func() time.Time
	submitter metricsSubmitter
}

// metricsSubmitter is the minimal interface needed to submit a payload.
// The SDK exposes a concrete *datadogV2.MetricsApi; depending on this
// interface instead enables deterministic tests with a fake.
type metricsSubmitter interface {
	Submit(ctx context.Context, payload datadogV2.MetricPayload) error
}

type apiSubmitter struct {
	api *datadogV2.MetricsApi
}

func (s *apiSubmitter) Submit(ctx context.Context, payload datadogV2.MetricPayload) error {
	_, _, err := s.api.SubmitMetrics(dd.NewDefaultContext(ctx), payload,
		*datadogV2.NewSubmitMetricsOptionalParameters())
	return err
}

type seriesKey struct {
	name string
	tags string
}

// Backend buffers metrics and submits them to Datadog.
type Backend struct {
	opts Options
	now  func() time.Time
	sub  metricsSubmitter

	mu         sync.Mutex
	counters   map[seriesKey]float64
	gaugeLasts map[seriesKey]float64

	stop chan struct{}
	done chan struct{}
}

// New constructs a Backend and starts its flush loop.
//
// Errors:
//   - Returns an error when DD_API_KEY is unset, to fail fast instead of
//     buffering metrics that can never be delivered.
func New(opts Options) (*Backend, error) {
	if opts.submitter == nil && os.Getenv("DD_API_KEY") == "" {
		return nil, fmt.Errorf("datadog: DD_API_KEY is not set")
	}
	if opts.JobName == "" {
		opts.JobName = "salesdw"
	}
	if opts.FlushEvery <= 0 {
		opts.FlushEvery = 60 * time.Second
	}

	b := &Backend{
		opts:       opts,
		now:        opts.now,
		sub:        opts.submitter,
		counters:   map[seriesKey]float64{},
		gaugeLasts: map[seriesKey]float64{},
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}
	if b.now == nil {
		b.now = time.Now
	}
	if b.sub == nil {
		b.sub = &apiSubmitter{api: datadogV2.NewMetricsApi(dd.NewAPIClient(dd.NewConfiguration()))}
	}

	go b.flushLoop()
	return b, nil
}

func (b *Backend) flushLoop() {
	defer close(b.done)
	t := time.NewTicker(b.opts.FlushEvery)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			_ = b.Flush(context.Background())
		case <-b.stop:
			return
		}
	}
}

// IncCounter adds value to a counter series.
func (b *Backend) IncCounter(name string, value float64, tags ...string) {
	k := seriesKey{name: name, tags: canonTags(tags)}
	b.mu.Lock()
	b.counters[k] += value
	b.mu.Unlock()
}

// ObserveHistogram records an observation. The series intake endpoint
// has no histogram type; the backend submits the last observed value as
// a gauge, which is sufficient for run-level timings.
func (b *Backend) ObserveHistogram(name string, value float64, tags ...string) {
	k := seriesKey{name: name, tags: canonTags(tags)}
	b.mu.Lock()
	b.gaugeLasts[k] = value
	b.mu.Unlock()
}

// Flush snapshots and resets the buffers under the lock, then submits
// out-of-lock. An empty snapshot is a no-op.
func (b *Backend) Flush(ctx context.Context) error {
	b.mu.Lock()
	counters := b.counters
	gauges := b.gaugeLasts
	b.counters = map[seriesKey]float64{}
	b.gaugeLasts = map[seriesKey]float64{}
	b.mu.Unlock()

	if len(counters) == 0 && len(gauges) == 0 {
		return nil
	}

	ts := b.now().Unix()
	series := make([]datadogV2.MetricSeries, 0, len(counters)+len(gauges))
	for k, v := range counters {
		series = append(series, b.series(k, v, ts, datadogV2.METRICINTAKETYPE_COUNT))
	}
	for k, v := range gauges {
		series = append(series, b.series(k, v, ts, datadogV2.METRICINTAKETYPE_GAUGE))
	}
	sort.Slice(series, func(i, j int) bool { return series[i].Metric < series[j].Metric })

	return b.sub.Submit(ctx, datadogV2.MetricPayload{Series: series})
}

func (b *Backend) series(k seriesKey, v float64, ts int64, typ datadogV2.MetricIntakeType) datadogV2.MetricSeries {
	tags := append([]string{"job:" + b.opts.JobName}, b.opts.Tags...)
	if k.tags != "" {
		tags = append(tags, strings.Split(k.tags, ",")...)
	}
	value := v
	return datadogV2.MetricSeries{
		Metric: k.name,
		Type:   typ.Ptr(),
		Points: []datadogV2.MetricPoint{{
			Timestamp: &ts,
			Value:     &value,
		}},
		Tags: tags,
	}
}

// Close stops the flush loop and performs a final flush.
func (b *Backend) Close(ctx context.Context) error {
	close(b.stop)
	<-b.done
	return b.Flush(ctx)
}

func canonTags(tags []string) string {
	if len(tags) == 0 {
		return ""
	}
	cp := append([]string(nil), tags...)
	sort.Strings(cp)
	return strings.Join(cp, ",")
}

var _ metrics.Backend = (*Backend)(nil)
