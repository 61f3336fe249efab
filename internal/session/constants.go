package session

import (
	"errors"
	"time"
)

const (
	// DefaultReadyTimeout bounds how long Launch waits for DevTools to answer
	DefaultReadyTimeout = 30 * time.Second

	// DefaultLoadTimeout bounds Navigate and Reload
	DefaultLoadTimeout = 30 * time.Second

	// DefaultPollInterval is how often waits re-check the page
	DefaultPollInterval = 250 * time.Millisecond
)

// Error definitions
var (
	ErrNoSuchElement = errors.New("no such element")
	ErrWaitTimeout   = errors.New("timed out waiting")
)
