// Package jwt implements stateless HMAC-SHA256 tokens used for both the
// application session and the short-lived datastore access credential.
//
// Tokens are self-contained: no server-side record is kept, validation is
// purely cryptographic plus temporal claim checks. The two token kinds are
// distinguished by their audience claim, never by issuance path.
package jwt
