package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	// Registry - выделенный реестр Prometheus для сервиса
	Registry = prometheus.NewRegistry()

	// ReportsProcessed считает обработанные отчеты о позиции по статусу (ok, dropped, error)
	ReportsProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "position_reports_total", Help: "Processed position reports by status."},
		[]string{"status"},
	)
	// AlertsFired считает сработавшие оповещения по виду
	AlertsFired = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "alerts_fired_total", Help: "Alerts fired by kind."},
		[]string{"kind"},
	)
	// SMSDeliveries считает исходы доставки SMS по получателям
	SMSDeliveries = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "sms_deliveries_total", Help: "Per-recipient SMS delivery outcomes."},
		[]string{"outcome"},
	)
	// FenceCacheRefreshes считает обновления кеша геозон по статусу (ok, failed)
	FenceCacheRefreshes = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "fence_cache_refreshes_total", Help: "Geofence cache refreshes by status."},
		[]string{"status"},
	)
)

var regOnce sync.Once

// RegisterDefault регистрирует коллекторы в реестре сервиса
func RegisterDefault() {
	regOnce.Do(func() {
		Registry.MustRegister(ReportsProcessed)
		Registry.MustRegister(AlertsFired)
		Registry.MustRegister(SMSDeliveries)
		Registry.MustRegister(FenceCacheRefreshes)
		Registry.MustRegister(collectors.NewGoCollector())
		Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	})
}
