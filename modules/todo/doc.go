// Package todo implements the per-user todo list: storage, the
// session-gated HTTP API, the datastore surface gated by short-lived
// access tokens, and the realtime snapshot feed. Every change produces a
// complete snapshot of the owner's list; subscribers replace their view
// rather than applying deltas. The Syncer is a client that follows the
// stream and keeps a local read replica.
package todo
