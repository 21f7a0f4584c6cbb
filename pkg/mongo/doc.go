// Package mongo provides MongoDB connection management for the document
// store backing users, linked accounts, and todos.
//
// Configuration is entirely environment-driven; the connector retries the
// initial connection to tolerate transient hosting failures and exposes a
// health check for orchestration probes.
package mongo
