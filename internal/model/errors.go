package model

import "errors"

// Errors returned by the Reader.
var (
	ErrInvalidConfig      = errors.New("invalid config")
	ErrShapeMismatch      = errors.New("shape mismatch")
	ErrCheckpointMismatch = errors.New("checkpoint does not match config")
)
