package engine

import "errors"

var (
	// ErrInvalidSession is returned by SignIn when the session has no user id.
	ErrInvalidSession = errors.New("session has no user id")

	// ErrClosed is returned by operations on a closed engine.
	ErrClosed = errors.New("engine closed")
)
