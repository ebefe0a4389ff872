package session

import "github.com/prometheus/client_golang/prometheus"

var (
	sessionsActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "scorched",
		Subsystem: "session",
		Name:      "active",
		Help:      "Число активных сессий матчей.",
	})
	notificationsDropped = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "scorched",
		Subsystem: "session",
		Name:      "notifications_dropped_total",
		Help:      "Уведомления, не доставленные медленным подписчикам.",
	})
	persistTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "scorched",
		Subsystem: "session",
		Name:      "persist_total",
		Help:      "Сохранения прогресса по результату.",
	}, []string{"result"})
)

func init() {
	prometheus.MustRegister(sessionsActive, notificationsDropped, persistTotal)
}
