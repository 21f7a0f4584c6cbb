package todo

import "errors"

var (
	ErrTodoNotFound = errors.New("todo: not found")
	ErrInvalidID    = errors.New("todo: invalid id")
	ErrEmptyName    = errors.New("todo: empty name")
)
