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
// サービス層、リマインダー同期、HTTPミドルウェアから利用する。
type MetricsCollector interface {
	RecordMedicationCreated()
	RecordScheduleReplaced()
	RecordConfirmationSubmitted()
	RecordConfirmationApproved()
	RecordReminderSync(scheduled, cancelled int, duration time.Duration, err error)
	RecordHTTPStatus(statusCode int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	medicationsCreated     prometheus.Counter
	schedulesReplaced      prometheus.Counter
	confirmationsSubmitted prometheus.Counter
	confirmationsApproved  prometheus.Counter
	remindersScheduled     prometheus.Counter
	remindersCancelled     prometheus.Counter
	reminderSyncs          *prometheus.CounterVec
	reminderSyncLatency    prometheus.Histogram
	httpStatus             *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		medicationsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "medconfirm_medications_created_total",
			Help: "作成された薬の合計数",
		}),
		schedulesReplaced: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "medconfirm_schedules_replaced_total",
			Help: "スケジュール置換の合計数",
		}),
		confirmationsSubmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "medconfirm_confirmations_submitted_total",
			Help: "提出された服薬写真の合計数",
		}),
		confirmationsApproved: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "medconfirm_confirmations_approved_total",
			Help: "介護者が承認した服薬確認の合計数",
		}),
		remindersScheduled: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "medconfirm_reminders_scheduled_total",
			Help: "登録されたリマインダーの合計数",
		}),
		remindersCancelled: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "medconfirm_reminders_cancelled_total",
			Help: "取り消されたリマインダーの合計数",
		}),
		reminderSyncs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "medconfirm_reminder_syncs_total",
			Help: "リマインダー同期の実行回数（結果別）",
		}, []string{"result"}),
		reminderSyncLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "medconfirm_reminder_sync_duration_seconds",
			Help:    "リマインダー同期の所要時間（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "medconfirm_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
	}

	reg.MustRegister(
		c.medicationsCreated,
		c.schedulesReplaced,
		c.confirmationsSubmitted,
		c.confirmationsApproved,
		c.remindersScheduled,
		c.remindersCancelled,
		c.reminderSyncs,
		c.reminderSyncLatency,
		c.httpStatus,
	)

	return c
}

func (c *Collector) RecordMedicationCreated()     { c.medicationsCreated.Inc() }
func (c *Collector) RecordScheduleReplaced()      { c.schedulesReplaced.Inc() }
func (c *Collector) RecordConfirmationSubmitted() { c.confirmationsSubmitted.Inc() }
func (c *Collector) RecordConfirmationApproved()  { c.confirmationsApproved.Inc() }

// RecordReminderSync は1回のリマインダー同期の結果を記録する。
func (c *Collector) RecordReminderSync(scheduled, cancelled int, duration time.Duration, err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	c.reminderSyncs.WithLabelValues(result).Inc()
	c.remindersScheduled.Add(float64(scheduled))
	c.remindersCancelled.Add(float64(cancelled))
	c.reminderSyncLatency.Observe(duration.Seconds())
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// Noop は何も記録しないMetricsCollector。テストやメトリクス無効時に使う。
type Noop struct{}

func (Noop) RecordMedicationCreated()                              {}
func (Noop) RecordScheduleReplaced()                               {}
func (Noop) RecordConfirmationSubmitted()                          {}
func (Noop) RecordConfirmationApproved()                           {}
func (Noop) RecordReminderSync(_, _ int, _ time.Duration, _ error) {}
func (Noop) RecordHTTPStatus(_ int)                                {}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

var (
	_ MetricsCollector = (*Collector)(nil)
	_ MetricsCollector = Noop{}
)
