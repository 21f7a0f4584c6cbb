// Package redis provides Redis connection management. The application uses
// Redis as the pub/sub transport for todo change notifications so snapshots
// reach subscribers on every server instance.
package redis
