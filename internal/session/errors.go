package session

import "errors"

// ErrNotFound indicates the requested session does not exist.
var ErrNotFound = errors.New("session not found")
