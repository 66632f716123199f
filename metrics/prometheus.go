package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	syncUnitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reviewsync_units_total",
			Help: "Total number of (customer, source) sync units, by outcome.",
		},
		[]string{"source", "status"},
	)
	syncPagesFetched = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reviewsync_pages_fetched_total",
			Help: "Total number of source pages fetched.",
		},
		[]string{"source"},
	)
	syncReviewsAppended = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reviewsync_reviews_appended_total",
			Help: "Total number of new reviews appended to the store table.",
		},
		[]string{"store"},
	)
)

func init() {
	prometheus.MustRegister(syncUnitsTotal)
	prometheus.MustRegister(syncPagesFetched)
	prometheus.MustRegister(syncReviewsAppended)
}

// RecordUnit записывает исход одного юнита синхронизации.
func RecordUnit(source string, ok bool) {
	status := "ok"
	if !ok {
		status = "error"
	}
	syncUnitsTotal.WithLabelValues(source, status).Inc()
}

// RecordPage записывает одну полученную страницу источника.
func RecordPage(source string) {
	syncPagesFetched.WithLabelValues(source).Inc()
}

// RecordAppended записывает количество добавленных в таблицу отзывов.
func RecordAppended(store string, count int) {
	syncReviewsAppended.WithLabelValues(store).Add(float64(count))
}

// MetricsHandler возвращает HTTP-обработчик для экспорта метрик Prometheus.
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
