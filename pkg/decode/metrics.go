package decode

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RowsSkipped tracks rows dropped by the decoder by reason
	RowsSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "parking_feed_rows_skipped_total",
			Help: "Total number of feed rows dropped during decoding",
		},
		[]string{"reason"}, // "not_object", "missing_field", "invalid_value"
	)

	// DecodeFailures tracks document-level decode failures by reason
	DecodeFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "parking_feed_decode_failures_total",
			Help: "Total number of feed documents rejected by the decoder",
		},
		[]string{"reason"},
	)
)
