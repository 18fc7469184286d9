package ql

import (
	"errors"

	"github.com/ntmai/redbase/internal/status"
)

// Warnings, numbered after ql.h's START_QL_WARN band.
var (
	ErrEOF = status.Wrap(errors.New("ql: end of stream"), 1)
)

// Errors.
var (
	ErrAlreadyOpen      = status.Wrap(errors.New("ql: operator already open"), -1)
	ErrNotOpen          = status.Wrap(errors.New("ql: operator not open"), -2)
	ErrInvalidCondition = status.Wrap(errors.New("ql: invalid condition"), -3)
	ErrArityMismatch    = status.Wrap(errors.New("ql: value count does not match relation arity"), -4)
	ErrTypeMismatch     = status.Wrap(errors.New("ql: value type does not match attribute"), -5)
)
