package scrape

import (
	"context"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/callmeahab/pharma-search-sub001/pkg/config"
	pkgerrors "github.com/callmeahab/pharma-search-sub001/pkg/errors"
	"github.com/callmeahab/pharma-search-sub001/pkg/logger"
	"github.com/callmeahab/pharma-search-sub001/pkg/types"
)

type fakeSource struct {
	name    string
	vendor  string
	collect func(ctx context.Context, attempt int) ([]types.RawListing, error)

	mu       sync.Mutex
	attempts int
}

func (f *fakeSource) Name() string       { return f.name }
func (f *fakeSource) VendorName() string { return f.vendor }

func (f *fakeSource) Collect(ctx context.Context) ([]types.RawListing, error) {
	f.mu.Lock()
	f.attempts++
	attempt := f.attempts
	f.mu.Unlock()
	return f.collect(ctx, attempt)
}

func staticSource(name string, items int) *fakeSource {
	return &fakeSource{
		name:   name,
		vendor: name,
		collect: func(ctx context.Context, attempt int) ([]types.RawListing, error) {
			listings := make([]types.RawListing, items)
			for i := range listings {
				listings[i] = types.RawListing{Title: name, PriceText: "100"}
			}
			return listings, nil
		},
	}
}

func testRunner(concurrency int) *Runner {
	logg := logger.New(logger.Options{ServiceName: "scrape-test", Output: io.Discard})
	return NewRunner(config.ScrapeConfig{Concurrency: concurrency, RetryAttempts: 2}, logg, nil)
}

func findResult(t *testing.T, report Report, name string) TaskResult {
	t.Helper()
	for _, result := range report.Results {
		if result.Source == name {
			return result
		}
	}
	t.Fatalf("no result for source %s", name)
	return TaskResult{}
}

func TestRunnerBulkheadIsolatesPanics(t *testing.T) {
	panicking := &fakeSource{
		name:   "b",
		vendor: "b",
		collect: func(ctx context.Context, attempt int) ([]types.RawListing, error) {
			panic("selector not found")
		},
	}

	report := testRunner(3).Run(context.Background(), []Source{
		staticSource("a", 2),
		panicking,
		staticSource("c", 3),
	}, nil)

	require.Len(t, report.Results, 3)
	assert.True(t, findResult(t, report, "a").Succeeded)
	assert.True(t, findResult(t, report, "c").Succeeded)
	assert.Equal(t, 2, findResult(t, report, "a").ItemCount)
	assert.Equal(t, 3, findResult(t, report, "c").ItemCount)

	failed := findResult(t, report, "b")
	assert.False(t, failed.Succeeded)
	assert.Equal(t, 2, failed.Attempts)
	require.Error(t, failed.Err)
	assert.Equal(t, pkgerrors.CodeInternal, pkgerrors.As(failed.Err).Code())
}

func TestRunnerHonorsConcurrencyBound(t *testing.T) {
	var running, peak int32

	sources := make([]Source, 0, 5)
	for i := 0; i < 5; i++ {
		sources = append(sources, &fakeSource{
			name:   string(rune('a' + i)),
			vendor: "vendor",
			collect: func(ctx context.Context, attempt int) ([]types.RawListing, error) {
				now := atomic.AddInt32(&running, 1)
				for {
					current := atomic.LoadInt32(&peak)
					if now <= current || atomic.CompareAndSwapInt32(&peak, current, now) {
						break
					}
				}
				time.Sleep(30 * time.Millisecond)
				atomic.AddInt32(&running, -1)
				return []types.RawListing{{Title: "x", PriceText: "1"}}, nil
			},
		})
	}

	report := testRunner(2).Run(context.Background(), sources, nil)

	assert.Len(t, report.Succeeded(), 5)
	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(2))
}

func TestRunnerRetriesFailedSourcesSequentially(t *testing.T) {
	flaky := &fakeSource{
		name:   "flaky",
		vendor: "flaky",
		collect: func(ctx context.Context, attempt int) ([]types.RawListing, error) {
			if attempt == 1 {
				return nil, pkgerrors.New(pkgerrors.CodeDependency, "upstream rate limited")
			}
			return []types.RawListing{{Title: "x", PriceText: "1"}}, nil
		},
	}

	report := testRunner(2).Run(context.Background(), []Source{flaky, staticSource("ok", 1)}, nil)

	result := findResult(t, report, "flaky")
	assert.True(t, result.Succeeded)
	assert.Equal(t, 2, result.Attempts)
	assert.Equal(t, 1, findResult(t, report, "ok").Attempts)
}

func TestRunnerTreatsZeroItemsAsFailure(t *testing.T) {
	empty := &fakeSource{
		name:   "empty",
		vendor: "empty",
		collect: func(ctx context.Context, attempt int) ([]types.RawListing, error) {
			return nil, nil
		},
	}

	report := testRunner(1).Run(context.Background(), []Source{empty}, nil)

	result := findResult(t, report, "empty")
	assert.False(t, result.Succeeded)
	assert.Equal(t, 2, result.Attempts)
	require.Error(t, result.Err)
}

func TestRunnerDeliversListingsToCollector(t *testing.T) {
	var mu sync.Mutex
	collected := map[string]int{}

	collector := func(ctx context.Context, source Source, listings []types.RawListing) {
		mu.Lock()
		defer mu.Unlock()
		collected[source.VendorName()] += len(listings)
	}

	report := testRunner(2).Run(context.Background(), []Source{
		staticSource("a", 2),
		staticSource("b", 4),
	}, collector)

	assert.Equal(t, 6, report.TotalItems())
	assert.Equal(t, map[string]int{"a": 2, "b": 4}, collected)
}

func TestRunnerHonorsConfiguredRetryBudget(t *testing.T) {
	stubborn := &fakeSource{
		name:   "stubborn",
		vendor: "stubborn",
		collect: func(ctx context.Context, attempt int) ([]types.RawListing, error) {
			if attempt < 3 {
				return nil, pkgerrors.New(pkgerrors.CodeDependency, "upstream rate limited")
			}
			return []types.RawListing{{Title: "x", PriceText: "1"}}, nil
		},
	}

	logg := logger.New(logger.Options{ServiceName: "scrape-test", Output: io.Discard})
	runner := NewRunner(config.ScrapeConfig{
		Concurrency:    1,
		RetryAttempts:  3,
		RetryBaseDelay: time.Millisecond,
	}, logg, nil)

	report := runner.Run(context.Background(), []Source{stubborn}, nil)

	result := findResult(t, report, "stubborn")
	assert.True(t, result.Succeeded)
	assert.Equal(t, 3, result.Attempts)
}

func TestNewRunnerNeverDropsTheSequentialRetry(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "scrape-test", Output: io.Discard})
	runner := NewRunner(config.ScrapeConfig{Concurrency: 1}, logg, nil)
	assert.Equal(t, 2, runner.retryAttempts)
}
