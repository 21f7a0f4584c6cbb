package session

import "time"

// Config holds session settings loaded from the environment.
type Config struct {
	CookieName string        `env:"SESSION_COOKIE_NAME" envDefault:"td_session"`
	TTL        time.Duration `env:"SESSION_TTL" envDefault:"720h"`
	Issuer     string        `env:"SESSION_ISSUER" envDefault:"todokit"`
	Secure     bool          `env:"SESSION_COOKIE_SECURE" envDefault:"true"`
}
