package api

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// 请求结果标签
const (
	outcomeOK        = "ok"
	outcomeTransport = "transport_error"
	outcomeStatus    = "status_error"
	outcomeAPI       = "api_error"
	outcomeDecode    = "decode_error"
)

// Metrics 记录网关请求数与耗时。
type Metrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	retries  *prometheus.CounterVec
}

// NewMetrics 在 reg 上注册指标；reg 为 nil 时指标不注册，只在内存中计数。
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "quickplan_client_requests_total",
			Help: "Total number of API requests issued by the client",
		}, []string{"op", "outcome"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "quickplan_client_request_duration_seconds",
			Help:    "Duration of API requests issued by the client",
			Buckets: prometheus.DefBuckets,
		}, []string{"op"}),
		retries: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "quickplan_client_retries_total",
			Help: "Total number of retried API requests",
		}, []string{"op"}),
	}
}

func (m *Metrics) observe(op, outcome string, started time.Time) {
	m.requests.WithLabelValues(op, outcome).Inc()
	m.duration.WithLabelValues(op).Observe(time.Since(started).Seconds())
}

func (m *Metrics) retried(op string) {
	m.retries.WithLabelValues(op).Inc()
}
