package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Check-in outcomes, labelled the way the service resolves them.
var (
	CheckIns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rollbook_checkins_total",
		Help: "Check-in attempts by outcome.",
	}, []string{"outcome"}) // ok, duplicate, not_found, error

	StudentsImported = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rollbook_students_imported_total",
		Help: "Students created through bulk import.",
	})

	Exports = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rollbook_exports_total",
		Help: "Attendance report downloads.",
	})
)
