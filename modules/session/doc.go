// Package session implements stateless cookie sessions backed by signed
// JWTs. A session embeds a short-lived datastore access token minted at
// sign-in; refreshing a session extends its lifetime without touching the
// embedded token.
package session
