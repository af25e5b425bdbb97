package engine

import "fmt"

// Status is the return code of an engine call
type Status int

const (
	StatusOK           Status = 0
	StatusFailed       Status = -1
	StatusAgain        Status = -2
	StatusLog          Status = -3
	StatusInvalidArg   Status = -4
	StatusIO           Status = -5
	StatusNotSupported Status = -6
	StatusBusy         Status = -7
	StatusTimeout      Status = -8
	StatusPermission   Status = -9
	StatusNotFound     Status = -10
	StatusExists       Status = -11
	StatusNoMemory     Status = -12
	StatusOverflow     Status = -13
)

var statusNames = map[Status]string{
	StatusOK:           "OK",
	StatusFailed:       "failed",
	StatusAgain:        "try again",
	StatusLog:          "logged",
	StatusInvalidArg:   "invalid argument",
	StatusIO:           "I/O error",
	StatusNotSupported: "not supported",
	StatusBusy:         "busy",
	StatusTimeout:      "timeout",
	StatusPermission:   "permission denied",
	StatusNotFound:     "not found",
	StatusExists:       "already exists",
	StatusNoMemory:     "out of memory",
	StatusOverflow:     "overflow",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("status %d", int(s))
}

// StatusError is a non-OK engine status
type StatusError struct {
	Op     string
	Status Status
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%v: %v (%d)", e.Op, e.Status, int(e.Status))
}

// StatusToErr returns nil for StatusOK, and a *StatusError otherwise
func StatusToErr(op string, status Status) error {
	if status != StatusOK {
		return &StatusError{Op: op, Status: status}
	}
	return nil
}
