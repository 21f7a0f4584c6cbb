package broadcast

import "errors"

var (
	ErrEmptyChannel    = errors.New("broadcast: empty channel name")
	ErrSubscribeFailed = errors.New("broadcast: failed to subscribe")
)
