package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// ProviderRequests counts EIP-1193 provider requests by method.
	ProviderRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wallet_scanner_provider_requests_total",
			Help: "Number of provider request() calls by method.",
		},
		[]string{"method"},
	)

	// ConnectAttempts counts connect sequences by provider kind and result.
	ConnectAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wallet_scanner_connect_attempts_total",
			Help: "Number of connect attempts by provider kind and result.",
		},
		[]string{"provider", "result"},
	)

	// Scans counts token scans by result.
	Scans = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wallet_scanner_scans_total",
			Help: "Number of token scans by result.",
		},
		[]string{"result"},
	)

	// ReadErrors counts failed chain reads by operation.
	ReadErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wallet_scanner_read_errors_total",
			Help: "Number of failed read-client calls by operation.",
		},
		[]string{"operation"},
	)
)

// MustRegisterMetrics registers all collectors with the default registry.
// Call once at startup.
func MustRegisterMetrics() {
	prometheus.MustRegister(
		ProviderRequests,
		ConnectAttempts,
		Scans,
		ReadErrors,
	)
}
