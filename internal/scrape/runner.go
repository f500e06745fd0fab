package scrape

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/callmeahab/pharma-search-sub001/pkg/config"
	pkgerrors "github.com/callmeahab/pharma-search-sub001/pkg/errors"
	"github.com/callmeahab/pharma-search-sub001/pkg/logger"
	"github.com/callmeahab/pharma-search-sub001/pkg/metrics"
	"github.com/callmeahab/pharma-search-sub001/pkg/types"
)

// TaskResult is the audit record for one source in one run.
type TaskResult struct {
	Source    string
	Vendor    string
	Succeeded bool
	ItemCount int
	Attempts  int
	StartedAt time.Time
	Duration  time.Duration
	Err       error
}

// Report aggregates a full run.
type Report struct {
	StartedAt time.Time
	Duration  time.Duration
	Results   []TaskResult
}

// Succeeded returns the results that produced items.
func (r Report) Succeeded() []TaskResult {
	return r.filter(true)
}

// Failed returns the results that failed both passes.
func (r Report) Failed() []TaskResult {
	return r.filter(false)
}

func (r Report) filter(succeeded bool) []TaskResult {
	out := make([]TaskResult, 0, len(r.Results))
	for _, result := range r.Results {
		if result.Succeeded == succeeded {
			out = append(out, result)
		}
	}
	return out
}

// TotalItems counts listings across all successful sources.
func (r Report) TotalItems() int {
	total := 0
	for _, result := range r.Results {
		total += result.ItemCount
	}
	return total
}

// Collector consumes one successful source's listings as soon as its task
// finishes. The runner calls it from the task's goroutine, so implementations
// must be safe for concurrent use.
type Collector func(ctx context.Context, source Source, listings []types.RawListing)

// Runner executes collection tasks under a fixed concurrency bound, then
// retries failed sources sequentially up to the configured attempt budget.
// One source crashing never cancels another: failures are isolated at the
// task boundary.
type Runner struct {
	concurrency   int64
	retryAttempts int
	retryDelay    time.Duration
	logg          *logger.Logger
	pipeline      *metrics.PipelineMetrics

	mu      sync.Mutex
	results []TaskResult
}

// NewRunner builds a runner from the scrape configuration. RetryAttempts is
// the total attempt budget per source and is never below two: every failed
// source gets at least the one sequential retry.
func NewRunner(cfg config.ScrapeConfig, logg *logger.Logger, pipeline *metrics.PipelineMetrics) *Runner {
	concurrency := cfg.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}
	attempts := cfg.RetryAttempts
	if attempts < 2 {
		attempts = 2
	}
	return &Runner{
		concurrency:   int64(concurrency),
		retryAttempts: attempts,
		retryDelay:    cfg.RetryBaseDelay,
		logg:          logg,
		pipeline:      pipeline,
	}
}

// Run executes all sources and returns the full run report. The collect
// callback receives each source's listings; a nil collect only measures.
func (r *Runner) Run(ctx context.Context, sources []Source, collect Collector) Report {
	runStart := time.Now()
	r.mu.Lock()
	r.results = make([]TaskResult, 0, len(sources))
	r.mu.Unlock()

	sem := semaphore.NewWeighted(r.concurrency)
	var wg sync.WaitGroup

	for _, source := range sources {
		if err := sem.Acquire(ctx, 1); err != nil {
			r.record(TaskResult{
				Source:    source.Name(),
				Vendor:    source.VendorName(),
				Attempts:  0,
				StartedAt: time.Now(),
				Err:       err,
			})
			continue
		}
		wg.Add(1)
		go func(src Source) {
			defer wg.Done()
			defer sem.Release(1)
			r.record(r.runOne(ctx, src, collect, 1))
		}(source)
	}
	wg.Wait()

	// second pass: serialize retries so transient upstream pressure is not
	// amplified by our own concurrency
	for i := range r.results {
		if r.results[i].Succeeded {
			continue
		}
		src := r.findSource(sources, r.results[i].Source)
		if src == nil {
			continue
		}
		result := r.results[i]
		for attempt := result.Attempts + 1; attempt <= r.retryAttempts && !result.Succeeded; attempt++ {
			if !r.pause(ctx) {
				break
			}
			result = r.runOne(ctx, src, collect, attempt)
		}
		r.results[i] = result
	}

	report := Report{StartedAt: runStart, Duration: time.Since(runStart), Results: r.results}
	for _, result := range report.Results {
		if result.Succeeded {
			r.observeSuccess(result)
		} else {
			r.observeFailure(result)
		}
	}
	return report
}

// runOne executes a single task with panic isolation.
func (r *Runner) runOne(ctx context.Context, source Source, collect Collector, attempt int) (result TaskResult) {
	result = TaskResult{
		Source:    source.Name(),
		Vendor:    source.VendorName(),
		Attempts:  attempt,
		StartedAt: time.Now(),
	}

	defer func() {
		result.Duration = time.Since(result.StartedAt)
		if rec := recover(); rec != nil {
			result.Succeeded = false
			result.Err = pkgerrors.New(pkgerrors.CodeInternal, fmt.Sprintf("source task panicked: %v", rec))
			r.logg.Error(r.logg.WithSource(ctx, source.Name()), "source task panicked", result.Err)
		}
	}()

	listings, err := source.Collect(ctx)
	result.ItemCount = len(listings)
	if err != nil {
		result.Err = err
		return result
	}
	// no error but zero items is still a failure for retry purposes
	if len(listings) == 0 {
		result.Err = pkgerrors.New(pkgerrors.CodeDependency, "source produced no listings")
		return result
	}

	result.Succeeded = true
	if collect != nil {
		collect(ctx, source, listings)
	}
	return result
}

// pause waits the configured backoff before a sequential retry; false means
// the run context ended first.
func (r *Runner) pause(ctx context.Context) bool {
	if r.retryDelay <= 0 {
		return ctx.Err() == nil
	}
	select {
	case <-ctx.Done():
		return false
	case <-time.After(r.retryDelay):
		return true
	}
}

func (r *Runner) record(result TaskResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = append(r.results, result)
}

func (r *Runner) findSource(sources []Source, name string) Source {
	for _, source := range sources {
		if source.Name() == name {
			return source
		}
	}
	return nil
}

func (r *Runner) observeSuccess(result TaskResult) {
	r.pipeline.ObserveSourceDuration(result.Source, result.Duration)
	r.pipeline.IncSourceSuccess(result.Source)
}

func (r *Runner) observeFailure(result TaskResult) {
	r.pipeline.ObserveSourceDuration(result.Source, result.Duration)
	r.pipeline.IncSourceFailure(result.Source)
}
