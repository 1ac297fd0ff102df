package graphqlws

import "errors"

// Common errors for the graphqlws package.
var (
	// ErrSessionClosed indicates the session has reached its terminal state.
	ErrSessionClosed = errors.New("session closed")
)
