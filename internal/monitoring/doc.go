/*
Package monitoring provides Prometheus-based metrics for the isolate
service.

# Overview

Tracks task dispatches by completion mode, phase outcomes, live execution
contexts, and HTTP traffic on the embedding API.

# Usage

	metrics := monitoring.NewMetrics()

	// Add middleware to Gin router
	router.Use(monitoring.Middleware(metrics))

	// Record task activity
	metrics.RecordDispatch("sync")
	metrics.RecordTask("sync", "ok", duration)
*/
package monitoring
