package core

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("short code already exists")
	ErrRestart      = errors.New("gate restart required")
	ErrTooFast      = errors.New("gate step requested too early")
	ErrInvalidStep  = errors.New("invalid step")
	ErrInvalidURL   = errors.New("invalid url")
	ErrUnsafeURL    = errors.New("url is not allowed")
	ErrUnauthorized = errors.New("invalid username or password")
)

// TooFastError carries how long the visitor still has to wait before the
// requested step becomes available. It matches ErrTooFast under errors.Is.
type TooFastError struct {
	Step int
	Wait time.Duration
}

func (e *TooFastError) Error() string {
	return fmt.Sprintf("step %d requested %s too early", e.Step, e.Wait.Round(time.Second))
}

func (e *TooFastError) Is(target error) bool { return target == ErrTooFast }

// IsNotFound reports whether err is a not-found condition.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsConflict reports whether err indicates a short code collision.
func IsConflict(err error) bool { return errors.Is(err, ErrConflict) }

// IsRestart reports whether the gate must be restarted from its entry point.
func IsRestart(err error) bool { return errors.Is(err, ErrRestart) }

// IsTooFast reports whether a gate step was requested before its dwell time passed.
func IsTooFast(err error) bool { return errors.Is(err, ErrTooFast) }
