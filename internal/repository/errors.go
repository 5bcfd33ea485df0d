package repository

import "errors"

var (
	// ErrTodoNotFound is returned by targeted writes when no item exists at
	// the addressed (userId, todoId). Lookups signal absence with a nil item
	// instead, so callers can tell "absent" from a failing store.
	ErrTodoNotFound = errors.New("todo item not found")

	// ErrTodoAlreadyExists is returned when a create collides with an
	// existing (userId, todoId) key.
	ErrTodoAlreadyExists = errors.New("todo item already exists")
)
