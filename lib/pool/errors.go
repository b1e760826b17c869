package pool

import "errors"

var (
	ErrPoolClosed      = errors.New("pool stopped")
	ErrConnClosed      = errors.New("connection already closed and returned to the pool")
	ErrConnect         = errors.New("could not establish connection")
	ErrAcquireTimeout  = errors.New("timed out waiting for a free connection")
	ErrAcquireCanceled = errors.New("acquire canceled")
)
