package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// FetchTotal 按分类与结果统计上游拉取次数
	FetchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hotfeed_fetch_total",
			Help: "Total number of category fetches",
		},
		[]string{"category", "result"},
	)

	// FetchDuration 单个分类拉取耗时（包含重试等待）
	FetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hotfeed_fetch_duration_seconds",
			Help:    "Category fetch latency in seconds, retries included",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"category"},
	)

	// RetryTotal 重试次数（不含首次调用）
	RetryTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hotfeed_retry_total",
			Help: "Total number of retried attempts",
		},
	)

	// CacheLookups 缓存命中情况：hit / miss / expired
	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hotfeed_cache_lookups_total",
			Help: "Cache lookups by result",
		},
		[]string{"result"},
	)

	// MixedFailures 混合拉取中被丢弃的分类数
	MixedFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hotfeed_mixed_failures_total",
			Help: "Categories that failed inside a mixed fetch",
		},
	)
)
