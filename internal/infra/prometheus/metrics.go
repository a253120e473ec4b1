package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// LinkOperations counts dashboard mutations by operation and outcome.
	LinkOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "foldly",
		Name:      "link_operations_total",
		Help:      "Dashboard link operations by operation and outcome.",
	}, []string{"operation", "outcome"})

	// PublicResolves counts public upload-page resolutions by outcome.
	PublicResolves = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "foldly",
		Name:      "public_resolves_total",
		Help:      "Public link resolutions by outcome.",
	}, []string{"outcome"})

	// UploadBatches counts accepted public upload batches.
	UploadBatches = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "foldly",
		Name:      "upload_batches_total",
		Help:      "Accepted public upload batches.",
	})
)
