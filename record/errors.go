// Package record implements the change-recording core: the tree walker
// (C7), the move/rename algebra (C6), the recursive deleter (C8), and the
// diff driver wiring (C3 plus the C4/C5 delete/replace translators) that
// together turn a working-copy snapshot and a channel's graph state into a
// minimal set of graph mutations.
package record

import (
	"github.com/pkg/errors"
)

// Kind names one of the seven error categories the core produces, in
// propagation priority.
type Kind int

const (
	ErrTransaction Kind = iota
	ErrChangestore
	ErrWorkingCopy
	ErrSystemTime
	ErrPathNotInRepo
	ErrDiff
	ErrIO
)

func (k Kind) String() string {
	switch k {
	case ErrTransaction:
		return "transaction"
	case ErrChangestore:
		return "changestore"
	case ErrWorkingCopy:
		return "workingcopy"
	case ErrSystemTime:
		return "systemtime"
	case ErrPathNotInRepo:
		return "path not in repo"
	case ErrDiff:
		return "diff"
	case ErrIO:
		return "io"
	default:
		return "unknown"
	}
}

// Error wraps an underlying failure with the Kind that classifies it, so
// callers can branch on Kind via errors.As while still getting a full
// wrapped chain for logging.
type Error struct {
	Kind Kind
	Path string
	err  error
}

func (e *Error) Error() string {
	if e.Path != "" {
		return e.Kind.String() + ": " + e.Path + ": " + e.err.Error()
	}
	return e.Kind.String() + ": " + e.err.Error()
}

func (e *Error) Unwrap() error { return e.err }

// wrap constructs an *Error of the given kind around err, or returns nil
// if err is nil.
func wrap(kind Kind, path string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Path: path, err: errors.WithStack(err)}
}

// PathNotInRepo reports the offending prefix when a component-filtered
// walk finds no matching child.
func PathNotInRepo(prefix string) error {
	return &Error{Kind: ErrPathNotInRepo, Path: prefix, err: errors.Errorf("path not in repo: %q", prefix)}
}
