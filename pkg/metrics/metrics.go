package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PipelineMetrics records per-run outcomes for the scrape/ingest pipeline.
type PipelineMetrics struct {
	sourceDuration *prometheus.HistogramVec
	sourceSuccess  *prometheus.CounterVec
	sourceFailure  *prometheus.CounterVec
	itemsScraped   *prometheus.CounterVec
	itemsFailed    *prometheus.CounterVec
	rowsDeleted    prometheus.Counter
}

// NewPipelineMetrics registers the pipeline metrics on the provided registerer.
func NewPipelineMetrics(reg prometheus.Registerer) *PipelineMetrics {
	if reg == nil {
		return &PipelineMetrics{}
	}
	sourceDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "scrape_source_duration_seconds",
		Help:    "Duration of one source collection task in seconds.",
		Buckets: prometheus.ExponentialBuckets(1, 2, 12),
	}, []string{"source"})
	sourceSuccess := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "scrape_source_success",
		Help: "Source tasks that completed with at least one item.",
	}, []string{"source"})
	sourceFailure := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "scrape_source_failure",
		Help: "Source tasks that failed both passes.",
	}, []string{"source"})
	itemsScraped := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ingest_items_total",
		Help: "Listings ingested per vendor.",
	}, []string{"vendor"})
	itemsFailed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ingest_item_failures_total",
		Help: "Listings skipped by per-item failures, per vendor.",
	}, []string{"vendor"})
	rowsDeleted := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "catalog_rows_deleted_total",
		Help: "Catalog rows removed by duplicate and zero-price cleanup.",
	})
	reg.MustRegister(sourceDuration, sourceSuccess, sourceFailure, itemsScraped, itemsFailed, rowsDeleted)
	return &PipelineMetrics{
		sourceDuration: sourceDuration,
		sourceSuccess:  sourceSuccess,
		sourceFailure:  sourceFailure,
		itemsScraped:   itemsScraped,
		itemsFailed:    itemsFailed,
		rowsDeleted:    rowsDeleted,
	}
}

// ObserveSourceDuration records the wall time of one source task.
func (p *PipelineMetrics) ObserveSourceDuration(source string, duration time.Duration) {
	if p == nil || p.sourceDuration == nil {
		return
	}
	p.sourceDuration.WithLabelValues(normalizeLabel(source)).Observe(duration.Seconds())
}

// IncSourceSuccess counts a source task that produced items.
func (p *PipelineMetrics) IncSourceSuccess(source string) {
	if p == nil || p.sourceSuccess == nil {
		return
	}
	p.sourceSuccess.WithLabelValues(normalizeLabel(source)).Inc()
}

// IncSourceFailure counts a permanently failed source task.
func (p *PipelineMetrics) IncSourceFailure(source string) {
	if p == nil || p.sourceFailure == nil {
		return
	}
	p.sourceFailure.WithLabelValues(normalizeLabel(source)).Inc()
}

// AddItemsScraped counts listings accepted for a vendor.
func (p *PipelineMetrics) AddItemsScraped(vendor string, n int64) {
	if p == nil || p.itemsScraped == nil || n <= 0 {
		return
	}
	p.itemsScraped.WithLabelValues(normalizeLabel(vendor)).Add(float64(n))
}

// AddItemFailures counts listings dropped by per-item failures for a vendor.
func (p *PipelineMetrics) AddItemFailures(vendor string, n int64) {
	if p == nil || p.itemsFailed == nil || n <= 0 {
		return
	}
	p.itemsFailed.WithLabelValues(normalizeLabel(vendor)).Add(float64(n))
}

// AddRowsDeleted counts rows removed by cleanup passes.
func (p *PipelineMetrics) AddRowsDeleted(n int64) {
	if p == nil || p.rowsDeleted == nil || n <= 0 {
		return
	}
	p.rowsDeleted.Add(float64(n))
}

// CronJobMetrics records metadata for scheduled cleanup jobs.
type CronJobMetrics struct {
	duration *prometheus.HistogramVec
	success  *prometheus.CounterVec
	failure  *prometheus.CounterVec
}

// NewCronJobMetrics registers the cron job metrics on the provided registerer.
func NewCronJobMetrics(reg prometheus.Registerer) *CronJobMetrics {
	if reg == nil {
		return &CronJobMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "job_duration_seconds",
		Help:    "Duration of cron jobs in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"job"})
	success := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "job_success",
		Help: "Successful cron job executions.",
	}, []string{"job"})
	failure := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "job_failure",
		Help: "Failed cron job executions.",
	}, []string{"job"})
	reg.MustRegister(duration, success, failure)
	return &CronJobMetrics{
		duration: duration,
		success:  success,
		failure:  failure,
	}
}

// ObserveDuration records the duration for the named job.
func (c *CronJobMetrics) ObserveDuration(job string, duration time.Duration) {
	if c == nil || c.duration == nil {
		return
	}
	c.duration.WithLabelValues(normalizeLabel(job)).Observe(duration.Seconds())
}

// IncSuccess increments the success counter for the named job.
func (c *CronJobMetrics) IncSuccess(job string) {
	if c == nil || c.success == nil {
		return
	}
	c.success.WithLabelValues(normalizeLabel(job)).Inc()
}

// IncFailure increments the failure counter for the named job.
func (c *CronJobMetrics) IncFailure(job string) {
	if c == nil || c.failure == nil {
		return
	}
	c.failure.WithLabelValues(normalizeLabel(job)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
