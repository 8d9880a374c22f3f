// Package metrics holds the prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	DecodeEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "smartscan_decode_events_total",
		Help: "Decoder results by kind (payload or noise).",
	}, []string{"kind"})

	Lookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "smartscan_lookups_total",
		Help: "Student lookups issued against the backend by outcome.",
	}, []string{"outcome"})

	DuplicateScans = promauto.NewCounter(prometheus.CounterOpts{
		Name: "smartscan_duplicate_scans_total",
		Help: "Scans skipped because the code was already processed or still resolving.",
	})

	RosterSize = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "smartscan_roster_size",
		Help: "Students pending submission in the current session.",
	})

	Submits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "smartscan_submits_total",
		Help: "Attendance batch submits by outcome.",
	}, []string{"outcome"})

	RecordsWritten = promauto.NewCounter(prometheus.CounterOpts{
		Name: "smartscan_attendance_records_total",
		Help: "Attendance rows written by successful submits.",
	})
)
