// Package httpserver wraps net/http with graceful shutdown, environment
// configuration, and health check handlers for orchestration probes.
package httpserver
