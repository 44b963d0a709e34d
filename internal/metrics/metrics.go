// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// サービス層から利用する。
type MetricsCollector interface {
	RecordReviewSubmitSuccess()
	RecordConstraintViolation(code string)
	RecordReviewSubmitLatency(duration time.Duration)
	RecordHTTPStatus(statusCode int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	submitSuccess       prometheus.Counter
	constraintViolation *prometheus.CounterVec
	submitLatency       prometheus.Histogram
	httpStatus          *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		submitSuccess: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pitwall_review_submit_success_total",
			Help: "レビュー投稿成功の合計数",
		}),
		constraintViolation: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pitwall_review_constraint_violation_total",
			Help: "ストレージ制約違反で拒否されたレビュー投稿のエラーコード別合計数",
		}, []string{"code"}),
		submitLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "pitwall_review_submit_latency_seconds",
			Help:    "レビュー投稿のレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pitwall_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
	}

	reg.MustRegister(
		c.submitSuccess,
		c.constraintViolation,
		c.submitLatency,
		c.httpStatus,
	)

	return c
}

// RecordReviewSubmitSuccess はレビュー投稿成功を記録する。
func (c *Collector) RecordReviewSubmitSuccess() {
	c.submitSuccess.Inc()
}

// RecordConstraintViolation は制約違反による投稿拒否を記録する。
func (c *Collector) RecordConstraintViolation(code string) {
	c.constraintViolation.WithLabelValues(code).Inc()
}

// RecordReviewSubmitLatency はレビュー投稿のレイテンシを記録する。
func (c *Collector) RecordReviewSubmitLatency(duration time.Duration) {
	c.submitLatency.Observe(duration.Seconds())
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetupMetricsRoute は/metricsエンドポイントを提供するHTTPハンドラーを返す。
// Prometheusスクレイプに対応する。
func SetupMetricsRoute(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(gatherer))
	return mux
}
