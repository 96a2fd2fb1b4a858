package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/illarion/pwvault/internal/generator"
)

var (
	ErrNotInitialized     = errors.New("vault not initialized")
	ErrCancelled          = errors.New("cancelled")
	ErrLockedOut          = errors.New("too many failed attempts")
	ErrWrongPassphrase    = errors.New("wrong passphrase")
	ErrEmptyPassphrase    = errors.New("passphrase must not be empty")
	ErrPassphraseMismatch = errors.New("passphrases do not match")
	ErrReservedPassphrase = errors.New("passphrase is reserved for cancelling")
	ErrLocked             = errors.New("vault is locked")
	ErrInvalidRecord      = errors.New("invalid record")
	ErrCorruptEntry       = errors.New("corrupt log entry")

	// ErrIOFault matches every *IOFaultError via errors.Is.
	ErrIOFault = errors.New("vault i/o fault")
)

// IOFaultError reports a failure reading or writing vault files.
type IOFaultError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOFaultError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOFaultError) Unwrap() error { return e.Err }

func (e *IOFaultError) Is(target error) bool { return target == ErrIOFault }

func ioFault(op, path string, err error) error {
	return &IOFaultError{Op: op, Path: path, Err: err}
}

// Outcome names the result of a core operation for the CLI.
type Outcome int

const (
	OutcomeOK Outcome = iota
	OutcomeInsufficientChars
	OutcomeCancelled
	OutcomeLockedOut
	OutcomeIOFault
	OutcomeOther
)

// OutcomeOf classifies err. A cancelled or expired context counts as
// OutcomeCancelled.
func OutcomeOf(err error) Outcome {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, generator.ErrInsufficientChars):
		return OutcomeInsufficientChars
	case errors.Is(err, ErrCancelled),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return OutcomeCancelled
	case errors.Is(err, ErrLockedOut):
		return OutcomeLockedOut
	case errors.Is(err, ErrIOFault):
		return OutcomeIOFault
	default:
		return OutcomeOther
	}
}

func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "Ok"
	case OutcomeInsufficientChars:
		return "InsufficientChars"
	case OutcomeCancelled:
		return "Cancelled"
	case OutcomeLockedOut:
		return "LockedOut"
	case OutcomeIOFault:
		return "IOFault"
	default:
		return "Error"
	}
}
