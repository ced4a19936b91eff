package tree

import "errors"

// Failure kinds shared by the server and the client. Callers wrap them with
// fmt.Errorf("%w: ...") to add detail and match them with errors.Is.
var (
	ErrNotFound      = errors.New("not found")
	ErrForbidden     = errors.New("forbidden")
	ErrCyclicMove    = errors.New("cannot move list under itself or its descendant")
	ErrInvalidTarget = errors.New("invalid move target")
	ErrInvalidOrder  = errors.New("invalid order")
	ErrValidation    = errors.New("validation error")
)
