package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestsTotal - общее количество HTTP запросов
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Общее количество HTTP запросов",
		},
		[]string{"method", "endpoint", "status"},
	)

	// RequestDuration - длительность запросов
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Длительность HTTP запросов в секундах",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// RequestsInFlight - количество запросов в обработке
	RequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "Текущее количество запросов в обработке",
		},
	)

	// IngestSessionsActive - количество открытых сессий приема локаций
	IngestSessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "location_ingest_sessions_active",
			Help: "Текущее количество WebSocket сессий приема локаций",
		},
	)

	// LocationUpdatesTotal - количество принятых обновлений локации
	LocationUpdatesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "location_updates_total",
			Help: "Общее количество принятых обновлений локации грузовиков",
		},
	)

	// NotifySessionsActive - количество открытых сессий уведомлений
	NotifySessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "notification_sessions_active",
			Help: "Текущее количество WebSocket сессий уведомлений",
		},
	)

	// NotificationsRelayed - количество доставленных клиентам уведомлений
	NotificationsRelayed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "notifications_relayed_total",
			Help: "Общее количество сообщений, переданных подписчикам уведомлений",
		},
	)

	// NearbySearchesTotal - количество выполненных поисков ближайших грузовиков
	NearbySearchesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "nearby_searches_total",
			Help: "Общее количество запросов поиска ближайших грузовиков",
		},
	)
)

// PrometheusMiddleware собирает метрики по каждому HTTP запросу
func PrometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		RequestsInFlight.Inc()
		defer RequestsInFlight.Dec()

		c.Next()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unknown"
		}

		status := strconv.Itoa(c.Writer.Status())
		RequestsTotal.WithLabelValues(c.Request.Method, endpoint, status).Inc()
		RequestDuration.WithLabelValues(c.Request.Method, endpoint).Observe(time.Since(start).Seconds())
	}
}
