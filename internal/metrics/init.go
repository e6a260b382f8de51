package metrics

// InitializeMetrics pre-populates all expected label combinations so that
// every metric is exported from the first Prometheus scrape.
// Call this once at startup after metric registration.
func InitializeMetrics() {
	for _, reason := range []string{"missing_uri", "malformed_directive", "encoding_error"} {
		ParseDiagnosticsTotal.WithLabelValues(reason)
	}

	for _, op := range []string{"load", "store", "evict"} {
		CacheOperationDuration.WithLabelValues(op)
	}

	for _, outcome := range []string{"cache_hit", "parsed", "error"} {
		LoadsTotal.WithLabelValues(outcome)
	}
}
