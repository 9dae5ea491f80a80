// Package status defines the closed set of outcome codes returned by every
// kvgate operation.
//
// Zero means success and every failure kind has its own negative value.
// Codes must be compared by identity only; the numeric ordering carries no
// meaning.
package status

import (
	"fmt"
	"io"
)

// Status is the result of a boundary operation.
type Status int

const (
	OK                 Status = 0
	UnknownError       Status = -1
	NotFound           Status = -2
	NotSupported       Status = -3
	InvalidArgument    Status = -4
	ConfigParsingError Status = -5
	ConfigTypeError    Status = -6
	StoppedByCallback  Status = -7
	OutOfMemory        Status = -8
	WrongEngineName    Status = -9
	DefragError        Status = -10
	ComparatorMismatch Status = -11
	BufferTooSmall     Status = -12
)

var names = map[Status]string{
	OK:                 "OK",
	UnknownError:       "UNKNOWN_ERROR",
	NotFound:           "NOT_FOUND",
	NotSupported:       "NOT_SUPPORTED",
	InvalidArgument:    "INVALID_ARGUMENT",
	ConfigParsingError: "CONFIG_PARSING_ERROR",
	ConfigTypeError:    "CONFIG_TYPE_ERROR",
	StoppedByCallback:  "STOPPED_BY_CALLBACK",
	OutOfMemory:        "OUT_OF_MEMORY",
	WrongEngineName:    "WRONG_ENGINE_NAME",
	DefragError:        "DEFRAG_ERROR",
	ComparatorMismatch: "COMPARATOR_MISMATCH",
	BufferTooSmall:     "BUFFER_TOO_SMALL",
}

// All returns every defined status, OK first.
func All() []Status {
	return []Status{
		OK, UnknownError, NotFound, NotSupported, InvalidArgument,
		ConfigParsingError, ConfigTypeError, StoppedByCallback, OutOfMemory,
		WrongEngineName, DefragError, ComparatorMismatch, BufferTooSmall,
	}
}

func (s Status) String() string {
	if n, ok := names[s]; ok {
		return n
	}
	return fmt.Sprintf("STATUS(%d)", int(s))
}

// Valid reports whether s is a member of the taxonomy.
func (s Status) Valid() bool {
	_, ok := names[s]
	return ok
}

// Format prints the name for %s, %v and %w and the code for %d. Without it
// fmt would prefer Error and prefix every name with the package tag.
func (s Status) Format(f fmt.State, verb rune) {
	switch verb {
	case 'd':
		fmt.Fprintf(f, "%d", int(s))
	case 'q':
		fmt.Fprintf(f, "%q", s.String())
	default:
		io.WriteString(f, s.String())
	}
}

// Error lets a Status travel as an error value.
func (s Status) Error() string {
	return "kvgate: " + s.String()
}

// Err returns nil for OK and s itself otherwise, so callers can write
// `if err := st.Err(); err != nil` and later match with errors.Is.
func (s Status) Err() error {
	if s == OK {
		return nil
	}
	return s
}

// Parse maps a status name back to its code.
func Parse(name string) (Status, bool) {
	for s, n := range names {
		if n == name {
			return s, true
		}
	}
	return UnknownError, false
}
