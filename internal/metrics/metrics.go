// Package metrics содержит Prometheus-метрики платформы.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "madua"

// Metrics хранит коллекторы решений о доступе и действий с распорядком.
type Metrics struct {
	accessVerdicts *prometheus.CounterVec
	courseAccess   *prometheus.CounterVec
	anomalies      *prometheus.CounterVec
	routineSeals   *prometheus.CounterVec
}

// New создаёт коллекторы и регистрирует их в reg. Повторная регистрация
// переиспользует уже зарегистрированные коллекторы.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		accessVerdicts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "access",
				Name:      "verdicts_total",
				Help:      "Access verdicts issued for posts and recipes.",
			},
			[]string{"kind", "verdict"},
		),
		courseAccess: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "access",
				Name:      "course_total",
				Help:      "Course access decisions by reason.",
			},
			[]string{"has_access", "reason"},
		),
		anomalies: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "catalog",
				Name:      "config_anomalies_total",
				Help:      "Premium content found without any purchase path.",
			},
			[]string{"kind"},
		),
		routineSeals: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "routine",
				Name:      "actions_total",
				Help:      "Routine task seal and unseal actions.",
			},
			[]string{"action"},
		),
	}

	m.accessVerdicts = register(reg, m.accessVerdicts)
	m.courseAccess = register(reg, m.courseAccess)
	m.anomalies = register(reg, m.anomalies)
	m.routineSeals = register(reg, m.routineSeals)

	return m
}

func register(reg prometheus.Registerer, c *prometheus.CounterVec) *prometheus.CounterVec {
	if err := reg.Register(c); err != nil {
		if already, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := already.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing
			}
		}
		panic(err)
	}
	return c
}

// ObserveVerdict учитывает вердикт доступа к статье или рецепту.
func (m *Metrics) ObserveVerdict(kind, verdict string) {
	if m == nil {
		return
	}
	m.accessVerdicts.WithLabelValues(kind, verdict).Inc()
}

// ObserveCourseAccess учитывает решение о доступе к курсу.
func (m *Metrics) ObserveCourseAccess(hasAccess bool, reason string) {
	if m == nil {
		return
	}
	label := "false"
	if hasAccess {
		label = "true"
	}
	m.courseAccess.WithLabelValues(label, reason).Inc()
}

// IncAnomaly учитывает найденную ошибку конфигурации каталога.
func (m *Metrics) IncAnomaly(kind string) {
	if m == nil {
		return
	}
	m.anomalies.WithLabelValues(kind).Inc()
}

// IncRoutineAction учитывает печать или снятие печати с задачи.
func (m *Metrics) IncRoutineAction(action string) {
	if m == nil {
		return
	}
	m.routineSeals.WithLabelValues(action).Inc()
}
