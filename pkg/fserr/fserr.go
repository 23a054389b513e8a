// Package fserr defines the error type shared by the temp-directory and
// archive packages.
//
// Every failure is reported as an *Error carrying a Kind sentinel, the
// operation that failed, the offending path and the underlying cause. Both the
// kind and the cause participate in errors.Is/As:
//
//	if errors.Is(err, fserr.ErrReservation) { ... }
//	if errors.Is(err, os.ErrPermission) { ... }
package fserr

import (
	"errors"
	"fmt"
)

// Kinds of failure.
var (
	// ErrReservation indicates the temp placeholder could not be created or deleted.
	ErrReservation = errors.New("temp name reservation failed")

	// ErrDirectoryCreation indicates a directory could not be created.
	ErrDirectoryCreation = errors.New("directory creation failed")

	// ErrRecursiveDelete indicates a path in a tree could not be deleted.
	// Entries visited before it are already gone.
	ErrRecursiveDelete = errors.New("recursive delete failed")

	// ErrArchiveRead indicates an archive could not be opened or parsed.
	ErrArchiveRead = errors.New("archive read failed")

	// ErrArchiveWrite indicates an archive could not be written.
	ErrArchiveWrite = errors.New("archive write failed")

	// ErrEntryIO indicates a single entry could not be copied in or out.
	ErrEntryIO = errors.New("entry io failed")
)

// Detail sentinels, used as the cause of an *Error.
var (
	// ErrNameTooLong indicates an entry name longer than the zip limit.
	ErrNameTooLong = errors.New("entry name too long")

	// ErrUnsafePath indicates an entry name that escapes the destination.
	ErrUnsafePath = errors.New("entry path escapes destination")

	// ErrStreamUnsupported indicates an entry that cannot be read sequentially.
	ErrStreamUnsupported = errors.New("entry not readable from a stream")
)

// Error wraps a failure with its kind, operation and path.
type Error struct {
	Kind error  // one of the Err* kinds above
	Op   string // operation that failed (e.g., "mkdir", "open")
	Path string // affected path or entry name
	Err  error  // underlying error
}

func (e *Error) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%v: %s: %v", e.Kind, e.Op, e.Err)
	}
	return fmt.Sprintf("%v: %s %s: %v", e.Kind, e.Op, e.Path, e.Err)
}

// Unwrap exposes both the kind and the cause to errors.Is/As.
func (e *Error) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

// New creates an *Error.
func New(kind error, op, path string, err error) *Error {
	return &Error{
		Kind: kind,
		Op:   op,
		Path: path,
		Err:  err,
	}
}

// PathOf returns the path carried by the first *Error in err's chain.
func PathOf(err error) (string, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Path, true
	}
	return "", false
}

// Operation names used across packages.
const (
	OpCreateTemp = "createtemp"
	OpRemove     = "remove"
	OpMkdir      = "mkdir"
	OpReadDir    = "readdir"
	OpOpen       = "open"
	OpCreate     = "create"
	OpCopy       = "copy"
	OpHeader     = "header"
	OpFinish     = "finish"
	OpStat       = "stat"
	OpClose      = "close"
)
