package server

import "errors"

var (
	ErrServerRunning = errors.New("server is already running")
	ErrNoRunner      = errors.New("server needs an episode runner")
)
