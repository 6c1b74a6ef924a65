package core

import "codeberg.org/mutker/vmctl/internal/errors"

const (
	// Dispatch errors, returned synchronously from Submit or recorded on
	// the VM record when a command resolves as failed.
	ErrUnknownVM         = errors.ErrorCode("unknown_vm")
	ErrAlreadyInFlight   = errors.ErrorCode("already_in_flight")
	ErrInvalidTransition = errors.ErrorCode("invalid_transition")
	ErrCommandTimeout    = errors.ErrorCode("command_timeout")
	ErrAPIFailure        = errors.ErrorCode("api_failure")

	// Poller errors
	ErrPollFailed = errors.ErrorCode("poll_failed")
)
