package profiling

import "errors"

var (
	ErrDuplicateActiveSession = errors.New("user already has an active profiling session")
	ErrStaleQuestion          = errors.New("answer does not match the current question")
	ErrIncompleteProfile      = errors.New("profile is not complete enough")
	ErrSessionTerminal        = errors.New("profiling session is already finished")
	ErrNoOwner                = errors.New("profiling session needs an owner")
)
