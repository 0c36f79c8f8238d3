package archive

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus-метрики хранилища архивов.
var (
	archivesTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "da_archives_total",
		Help: "Текущее количество архивов в хранилище.",
	})
	archiveBytes = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "da_archive_bytes",
		Help: "Суммарный объём архивов в байтах (original/compressed).",
	}, []string{"kind"})
	operationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "da_operations_total",
		Help: "Количество операций хранилища по типу и результату.",
	}, []string{"operation", "result"})
)

// Значения метки result.
const (
	resultSuccess = "success"
	resultError   = "error"
)

// observe учитывает операцию в da_operations_total.
func observe(operation string, err error) {
	result := resultSuccess
	if err != nil {
		result = resultError
	}
	operationsTotal.WithLabelValues(operation, result).Inc()
}

// trackSizes изменяет счётчики объёма и количества на sign (+1/-1) записей.
func trackSizes(sign int, original, compressed int64) {
	archivesTotal.Add(float64(sign))
	archiveBytes.WithLabelValues("original").Add(float64(int64(sign) * original))
	archiveBytes.WithLabelValues("compressed").Add(float64(int64(sign) * compressed))
}
