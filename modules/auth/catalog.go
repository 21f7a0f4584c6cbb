package auth

import (
	_ "embed"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed messages.yaml
var messagesYAML []byte

// ErrorCode identifies a sign-in failure class for user-facing messaging.
type ErrorCode string

const (
	CodeUserNotFound    ErrorCode = "user_not_found"
	CodeWrongPassword   ErrorCode = "wrong_password"
	CodeTooManyRequests ErrorCode = "too_many_requests"
)

// MessageCatalog maps sign-in failure codes to user-facing messages.
// The catalog ships embedded so deployments cannot drift from the
// messages the client expects.
type MessageCatalog struct {
	Default string               `yaml:"default"`
	Codes   map[ErrorCode]string `yaml:"codes"`
}

// LoadMessageCatalog parses the embedded catalog.
func LoadMessageCatalog() (*MessageCatalog, error) {
	var c MessageCatalog
	if err := yaml.Unmarshal(messagesYAML, &c); err != nil {
		return nil, fmt.Errorf("parse message catalog: %w", err)
	}
	if c.Default == "" {
		return nil, fmt.Errorf("message catalog has no default message")
	}
	return &c, nil
}

// Message returns the user-facing message for a sign-in failure. Unknown
// codes fall back to the default message so the response never leaks
// which part of the credential was wrong beyond what the catalog allows.
func (c *MessageCatalog) Message(code ErrorCode) string {
	if msg, ok := c.Codes[code]; ok {
		return msg
	}
	return c.Default
}

// CodeForError maps a sign-in error to its catalog code.
func CodeForError(err error) ErrorCode {
	switch {
	case errors.Is(err, ErrUserNotFound):
		return CodeUserNotFound
	case errors.Is(err, ErrWrongPassword):
		return CodeWrongPassword
	case errors.Is(err, ErrTooManyRequests):
		return CodeTooManyRequests
	default:
		return ""
	}
}
