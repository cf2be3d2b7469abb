// Package server provides HTTP server setup for the isolate service.
//
// This package orchestrates all components:
//   - HTTP routing with Gin framework
//   - Middleware stack (CORS, rate limiting, metrics, recovery)
//   - Context registry and snapshot store initialization
//   - Host context creation (the origin lane for promise deliveries)
//
// Server Lifecycle:
//  1. Load configuration from environment
//  2. Initialize logger (production or development)
//  3. Create the host context and registry
//  4. Setup HTTP routes and middleware
//  5. Start HTTP server
//  6. Graceful shutdown on signal: close contexts, then the host lane
package server
