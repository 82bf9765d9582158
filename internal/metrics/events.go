package metrics

// EventDelivered records a successful handler delivery
func EventDelivered(handler string) {
	EventDeliveries.WithLabelValues(handler, "delivered").Inc()
}

// EventFailed records a delivery that exhausted its attempts
func EventFailed(handler string) {
	EventDeliveries.WithLabelValues(handler, "failed").Inc()
}

// EventRetried records a delivery retry attempt
func EventRetried(handler string) {
	EventRetries.WithLabelValues(handler).Inc()
}
