package qsieve

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	factorizationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qsieve_factorizations_total",
			Help: "Factoring attempts by outcome",
		},
		[]string{"status"},
	)
	factorDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "qsieve_factor_duration_seconds",
			Help:    "Duration of factoring attempts",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
		},
	)
	polynomialsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "qsieve_polynomials_total",
			Help: "Polynomials sieved",
		},
	)
	relationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qsieve_relations_total",
			Help: "Relations found by trial division",
		},
		[]string{"kind"},
	)
)
