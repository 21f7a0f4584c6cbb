// Package auth bridges external identity to local sessions. It verifies
// bearer credentials against a remote endpoint, runs OAuth and password
// sign-in flows, persists users and linked provider accounts through the
// Adapter interface, and mints the short-lived datastore tokens that
// sessions embed.
//
// Sessions themselves are stateless JWTs, so the Adapter's session and
// verification-token operations are deliberate no-ops (NoSessionRecords).
package auth
