package core

import "errors"

var (
	ErrInvalidAction = errors.New("invalid action")
	ErrInvalidConfig = errors.New("invalid configuration")
	ErrNotReset      = errors.New("environment stepped before reset")
)
