package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// ErrUnderstanding matches every failure returned by a provider.
var ErrUnderstanding = errors.New("llm: understanding failed")

// ErrEmptyResponse is wrapped when a backend answers with no text at all.
var ErrEmptyResponse = errors.New("empty response")

type UnderstandingError struct {
	Provider string
	Op       string
	Timeout  bool
	Err      error
}

func (e *UnderstandingError) Error() string {
	kind := "failed"
	if e.Timeout {
		kind = "timed out"
	}
	return fmt.Sprintf("llm %s %s %s: %v", e.Provider, e.Op, kind, e.Err)
}

func (e *UnderstandingError) Unwrap() error { return e.Err }

func (e *UnderstandingError) Is(target error) bool { return target == ErrUnderstanding }

// Wrap turns a backend error into an *UnderstandingError. nil stays nil.
func Wrap(provider, op string, err error) error {
	if err == nil {
		return nil
	}
	var ue *UnderstandingError
	if errors.As(err, &ue) {
		return err
	}
	return &UnderstandingError{
		Provider: provider,
		Op:       op,
		Timeout:  isTimeout(err),
		Err:      err,
	}
}

// IsTimeout reports whether err is a provider timeout.
func IsTimeout(err error) bool {
	var ue *UnderstandingError
	if errors.As(err, &ue) {
		return ue.Timeout
	}
	return isTimeout(err)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
