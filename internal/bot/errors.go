package bot

import (
	"errors"
	"fmt"
)

var (
	ErrMissingConfig     = errors.New("missing required configuration")
	ErrNoSelectorMatched = errors.New("no selector matched")
)

// Stages that report a StageError
const (
	StageLogin = "login"
	StageSend  = "send"
)

// StageError is a stage failure whose diagnostic screenshot was already taken.
type StageError struct {
	Stage      string
	Screenshot string // empty when the capture itself failed
	Err        error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}
