// Package http provides HTTP handlers and routing for the isolate REST
// API.
//
// This package implements all HTTP endpoints using the Gin framework:
// context lifecycle, script execution under the three completion modes,
// global access, and snapshot management.
//
// Endpoints:
//   - Health: / and /health
//   - Contexts: /contexts, /contexts/:id
//   - Execution: /contexts/:id/eval (mode sync|promise|ignored)
//   - Promises: /promises/:id
//   - Globals: /contexts/:id/globals/:name
//   - Snapshots: /contexts/:id/snapshots, /snapshots, /snapshots/:name
//
// Promise-mode executions return 202 with a promise id; the promise is
// settled from the server's host lane and polled via /promises/:id.
// Reading a settled promise evicts it, DELETE discards it early, and
// entries nobody collects expire after the configured retention window.
package http
