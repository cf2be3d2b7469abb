// Package main is the entry point for the isolate server.
//
// The server hosts sandboxed JavaScript contexts, each driven by its own
// single-goroutine lane, and exposes them over a REST API. Scripts run in
// a target context under one of three completion modes: sync (caller
// blocks for the result), promise (202 with a pollable promise id), or
// ignored (fire and forget).
//
// Configuration:
//   - Environment variables (12-factor)
//   - CLI flags (override env vars)
//   - Defaults for development
//
// Usage:
//
//	# Default port
//	./server
//
//	# Override port and snapshot directory
//	./server -port 9000 -snapshots /var/lib/isolate
//
// Signals:
//   - SIGINT, SIGTERM: Graceful shutdown
package main
