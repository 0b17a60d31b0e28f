package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/TOKYOFLOWER/BeDelivery/internal/model"
)

// Metrics インポート処理の Prometheus メトリクス
// すべて bedelivery_ 接頭辞を持つ。nil レシーバでは何もしない。
type Metrics struct {
	registry *prometheus.Registry

	SessionsStarted   prometheus.Counter
	SessionsActive    prometheus.Gauge
	RowsParsed        *prometheus.CounterVec
	DiffEntries       *prometheus.CounterVec
	Executions        *prometheus.CounterVec
	ExecuteDuration   prometheus.Histogram
	FetchFailures     prometheus.Counter
	RemoteCalls       *prometheus.CounterVec
	RemoteCallLatency *prometheus.HistogramVec
}

// New 専用レジストリにメトリクスを登録する
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		SessionsStarted: f.NewCounter(prometheus.CounterOpts{
			Name: "bedelivery_import_sessions_started_total",
			Help: "Total number of import preview sessions started",
		}),
		SessionsActive: f.NewGauge(prometheus.GaugeOpts{
			Name: "bedelivery_import_sessions_active",
			Help: "Number of import sessions currently held",
		}),
		RowsParsed: f.NewCounterVec(prometheus.CounterOpts{
			Name: "bedelivery_rows_parsed_total",
			Help: "Spreadsheet rows processed by the normalizer",
		}, []string{"result"}), // accepted / rejected
		DiffEntries: f.NewCounterVec(prometheus.CounterOpts{
			Name: "bedelivery_diff_entries_total",
			Help: "Diff entries produced by reconciliation",
		}, []string{"type"}),
		Executions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "bedelivery_batch_executions_total",
			Help: "Batch submissions by outcome",
		}, []string{"outcome"}), // success / failure / cancelled
		ExecuteDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "bedelivery_batch_duration_seconds",
			Help:    "Duration of batch submissions",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		}),
		FetchFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "bedelivery_existing_fetch_failures_total",
			Help: "Failed fetches of existing orders during preview",
		}),
		RemoteCalls: f.NewCounterVec(prometheus.CounterOpts{
			Name: "bedelivery_remote_calls_total",
			Help: "Calls to the remote order store by action and result",
		}, []string{"action", "result"}),
		RemoteCallLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "bedelivery_remote_call_duration_seconds",
			Help:    "Latency of remote order store calls",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		}, []string{"action"}),
	}
}

// Registry 登録先レジストリ
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler /metrics 用の HTTP ハンドラ
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// RecordSessionStarted プレビューセッション開始を記録する
func (m *Metrics) RecordSessionStarted(active int) {
	if m == nil {
		return
	}
	m.SessionsStarted.Inc()
	m.SessionsActive.Set(float64(active))
}

// SetActiveSessions 保持中のセッション数を更新する
func (m *Metrics) SetActiveSessions(active int) {
	if m == nil {
		return
	}
	m.SessionsActive.Set(float64(active))
}

// RecordRows 正規化結果の行数を記録する
func (m *Metrics) RecordRows(accepted, rejected int) {
	if m == nil {
		return
	}
	m.RowsParsed.WithLabelValues("accepted").Add(float64(accepted))
	m.RowsParsed.WithLabelValues("rejected").Add(float64(rejected))
}

// RecordDiff 差分の種類ごとの件数を記録する
func (m *Metrics) RecordDiff(counts model.DiffCounts) {
	if m == nil {
		return
	}
	m.DiffEntries.WithLabelValues(string(model.DiffAdd)).Add(float64(counts.Add))
	m.DiffEntries.WithLabelValues(string(model.DiffUpdate)).Add(float64(counts.Update))
	m.DiffEntries.WithLabelValues(string(model.DiffDelete)).Add(float64(counts.Delete))
	m.DiffEntries.WithLabelValues(string(model.DiffUnchanged)).Add(float64(counts.Unchanged))
}

// RecordExecution 一括送信の結果を記録する
func (m *Metrics) RecordExecution(outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.Executions.WithLabelValues(outcome).Inc()
	m.ExecuteDuration.Observe(elapsed.Seconds())
}

// RecordFetchFailure 既存注文の取得失敗を記録する
func (m *Metrics) RecordFetchFailure() {
	if m == nil {
		return
	}
	m.FetchFailures.Inc()
}

// RecordRemoteCall リモート呼び出しを記録する
func (m *Metrics) RecordRemoteCall(action string, err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.RemoteCalls.WithLabelValues(action, result).Inc()
	m.RemoteCallLatency.WithLabelValues(action).Observe(elapsed.Seconds())
}
