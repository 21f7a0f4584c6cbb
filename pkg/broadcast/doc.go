// Package broadcast provides type-safe message fan-out to multiple
// subscribers, with an in-memory implementation for single-process use and
// a Redis pub/sub implementation for multi-instance deployments.
//
// The todo change feed is built on top of this package: every todo write
// broadcasts a fresh list snapshot for the owning user, and streaming
// endpoints subscribe per connection.
package broadcast
