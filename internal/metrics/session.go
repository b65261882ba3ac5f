package metrics

// Result labels that are not domain error codes.
const (
	ResultSuccess   = "success"
	ResultAnonymous = "anonymous"
)

// RecordLogin records the outcome of a handoff exchange
func RecordLogin(result string) {
	LoginsTotal.WithLabelValues(result).Inc()
}

// RecordSessionCheck records the outcome of a session check
func RecordSessionCheck(result string) {
	SessionChecksTotal.WithLabelValues(result).Inc()
}

// RecordLogout records a logout
func RecordLogout() {
	LogoutsTotal.Inc()
}

// RecordRateLimited records a login refused before the token was examined
func RecordRateLimited() {
	LoginsRateLimited.Inc()
}
