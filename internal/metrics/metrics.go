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
// サービス層やワーカーから利用する。
type MetricsCollector interface {
	RecordCatalogFetchSuccess()
	RecordCatalogFetchFailure(reason string)
	RecordCatalogFetchLatency(duration time.Duration)
	RecordHTTPStatus(statusCode int)
	RecordMovieCached()
	RecordColorSampled()
	RecordTokensPurged(count int64)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	catalogFetchSuccess prometheus.Counter
	catalogFetchFail    *prometheus.CounterVec
	catalogFetchLatency prometheus.Histogram
	httpStatus          *prometheus.CounterVec
	moviesCached        prometheus.Counter
	colorsSampled       prometheus.Counter
	tokensPurged        prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		catalogFetchSuccess: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cinetrack_catalog_fetch_success_total",
			Help: "リモートカタログ取得成功の合計数",
		}),
		catalogFetchFail: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cinetrack_catalog_fetch_fail_total",
			Help: "リモートカタログ取得失敗の合計数",
		}, []string{"reason"}),
		catalogFetchLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "cinetrack_catalog_fetch_latency_seconds",
			Help:    "リモートカタログ取得のレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cinetrack_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		moviesCached: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cinetrack_movies_cached_total",
			Help: "ローカルキャッシュに保存された映画の合計数",
		}),
		colorsSampled: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cinetrack_colors_sampled_total",
			Help: "ドミナントカラーを抽出した画像の合計数",
		}),
		tokensPurged: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cinetrack_tokens_purged_total",
			Help: "クリーンアップで削除した失効済みトークンの合計数",
		}),
	}

	reg.MustRegister(
		c.catalogFetchSuccess,
		c.catalogFetchFail,
		c.catalogFetchLatency,
		c.httpStatus,
		c.moviesCached,
		c.colorsSampled,
		c.tokensPurged,
	)

	return c
}

// RecordCatalogFetchSuccess はリモートカタログ取得成功を記録する。
func (c *Collector) RecordCatalogFetchSuccess() {
	c.catalogFetchSuccess.Inc()
}

// RecordCatalogFetchFailure はリモートカタログ取得失敗を記録する。
func (c *Collector) RecordCatalogFetchFailure(reason string) {
	c.catalogFetchFail.WithLabelValues(reason).Inc()
}

// RecordCatalogFetchLatency はリモートカタログ取得のレイテンシを記録する。
func (c *Collector) RecordCatalogFetchLatency(duration time.Duration) {
	c.catalogFetchLatency.Observe(duration.Seconds())
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordMovieCached は映画キャッシュへの新規保存を記録する。
func (c *Collector) RecordMovieCached() {
	c.moviesCached.Inc()
}

// RecordColorSampled はドミナントカラー抽出の実行を記録する。
func (c *Collector) RecordColorSampled() {
	c.colorsSampled.Inc()
}

// RecordTokensPurged はクリーンアップで削除した失効済みトークン数を記録する。
func (c *Collector) RecordTokensPurged(count int64) {
	c.tokensPurged.Add(float64(count))
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
