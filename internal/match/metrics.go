package match

import "github.com/prometheus/client_golang/prometheus"

var (
	matchesStarted = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "scorched",
		Subsystem: "match",
		Name:      "started_total",
		Help:      "Число начатых матчей, включая перезапуски.",
	})
	matchesFinished = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "scorched",
		Subsystem: "match",
		Name:      "finished_total",
		Help:      "Число завершенных матчей по итогу.",
	}, []string{"outcome"})
	ticksTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "scorched",
		Subsystem: "match",
		Name:      "ticks_total",
		Help:      "Логические тики всех матчей.",
	})
	shotsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "scorched",
		Subsystem: "match",
		Name:      "shots_total",
		Help:      "Выстрелы по стороне.",
	}, []string{"side"})
	hitsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "scorched",
		Subsystem: "match",
		Name:      "hits_total",
		Help:      "Попадания по стороне цели.",
	}, []string{"target"})
	actionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "scorched",
		Subsystem: "match",
		Name:      "actions_total",
		Help:      "Действия игрока: принятые и проигнорированные.",
	}, []string{"type", "result"})
)

func init() {
	prometheus.MustRegister(matchesStarted, matchesFinished, ticksTotal, shotsTotal, hitsTotal, actionsTotal)
}
