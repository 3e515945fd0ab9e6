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
// ハンドラーやバックエンドクライアントから利用する。
type MetricsCollector interface {
	RecordBackendRequest(operation string, statusCode int, duration time.Duration)
	RecordLogin(method string)
	RecordLoginFailure()
	RecordAIRequest(kind string)
	RecordForcedLogout()
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	backendRequests *prometheus.CounterVec
	backendLatency  prometheus.Histogram
	logins          *prometheus.CounterVec
	loginFailures   prometheus.Counter
	aiRequests      *prometheus.CounterVec
	forcedLogouts   prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		backendRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kimeru_backend_requests_total",
			Help: "バックエンドAPIリクエストの操作・ステータスコード別合計数",
		}, []string{"operation", "status_code"}),
		backendLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "kimeru_backend_latency_seconds",
			Help:    "バックエンドAPIリクエストのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kimeru_logins_total",
			Help: "ログイン成功の方式別合計数",
		}, []string{"method"}),
		loginFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "kimeru_login_failures_total",
			Help: "ログイン失敗の合計数",
		}),
		aiRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kimeru_ai_requests_total",
			Help: "AIアドバイザーリクエストの種別合計数",
		}, []string{"kind"}),
		forcedLogouts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "kimeru_forced_logouts_total",
			Help: "トークン失効による強制ログアウトの合計数",
		}),
	}

	reg.MustRegister(
		c.backendRequests,
		c.backendLatency,
		c.logins,
		c.loginFailures,
		c.aiRequests,
		c.forcedLogouts,
	)

	return c
}

// RecordBackendRequest はバックエンドAPIリクエストの結果を記録する。
// 接続に失敗したリクエストはstatusCode 0で記録される。
func (c *Collector) RecordBackendRequest(operation string, statusCode int, duration time.Duration) {
	c.backendRequests.WithLabelValues(operation, strconv.Itoa(statusCode)).Inc()
	c.backendLatency.Observe(duration.Seconds())
}

// RecordLogin はログイン成功を記録する。methodはcredentials/external/register。
func (c *Collector) RecordLogin(method string) {
	c.logins.WithLabelValues(method).Inc()
}

// RecordLoginFailure はログイン失敗を記録する。
func (c *Collector) RecordLoginFailure() {
	c.loginFailures.Inc()
}

// RecordAIRequest はAIアドバイザーリクエストを記録する。kindはstrategy/chat。
func (c *Collector) RecordAIRequest(kind string) {
	c.aiRequests.WithLabelValues(kind).Inc()
}

// RecordForcedLogout はトークン失効による強制ログアウトを記録する。
func (c *Collector) RecordForcedLogout() {
	c.forcedLogouts.Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
