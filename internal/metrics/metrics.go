package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	categoryCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "selfcare",
			Name:      "category_created_total",
			Help:      "Count of categories created, by source.",
		},
		[]string{"source"},
	)

	strategySaved = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "selfcare",
			Name:      "strategy_saved_total",
			Help:      "Count of strategy submissions committed, by operation.",
		},
		[]string{"op"},
	)

	medicationDeleted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "selfcare",
			Name:      "medication_deleted_total",
			Help:      "Count of medications deleted by their owners.",
		},
	)

	reminderDigestSent = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "selfcare",
			Name:      "reminder_digest_total",
			Help:      "Count of non-empty medication reminder digests built.",
		},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(categoryCreated, strategySaved, medicationDeleted, reminderDigestSent)
	})
}

func IncCategoryCreated(source string) {
	categoryCreated.WithLabelValues(source).Inc()
}

func IncStrategySaved(op string) {
	strategySaved.WithLabelValues(op).Inc()
}

func IncMedicationDeleted() {
	medicationDeleted.Inc()
}

func IncReminderDigestSent() {
	reminderDigestSent.Inc()
}
