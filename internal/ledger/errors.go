package ledger

import (
	"errors"
	"fmt"
)

// Code identifies the failure class of a ledger operation. The numeric
// values are stable and part of the wire contract with the host platform.
type Code uint32

const (
	CodeInvalidInstruction Code = iota
	CodeNotRentExempt
	CodeInvalidAgent
	CodePathwayAlreadyExists
)

// String returns the canonical name for the code.
func (c Code) String() string {
	switch c {
	case CodeInvalidInstruction:
		return "invalid instruction"
	case CodeNotRentExempt:
		return "not rent exempt"
	case CodeInvalidAgent:
		return "invalid agent"
	case CodePathwayAlreadyExists:
		return "pathway already exists"
	default:
		return fmt.Sprintf("unknown code %d", uint32(c))
	}
}

// Error is a typed ledger failure. Every operation either fully commits or
// returns one of these with no state change.
type Error struct {
	Code Code
	Msg  string
}

func (e *Error) Error() string {
	if e.Msg == "" {
		return e.Code.String()
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Msg)
}

func newError(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Msg: fmt.Sprintf(format, args...)}
}

// ErrCode extracts the ledger code from an error chain. The second return
// is false if the error is not a ledger error.
func ErrCode(err error) (Code, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Code, true
	}
	return 0, false
}

// IsCode reports whether err carries the given ledger code.
func IsCode(err error, code Code) bool {
	c, ok := ErrCode(err)
	return ok && c == code
}
