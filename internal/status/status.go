// Package status gives every layer (pf, rm, ix, sm, ql) a small tri-state
// code on top of ordinary Go errors, the way RedBase's RC return codes
// partition into OK/Warning/Error bands per layer. Go code should still
// reach for errors.Is/errors.As first; Code exists for callers (SM command
// dispatch, QL executors) that want to branch on severity without string
// matching a sentinel.
package status

// Code is a tri-state severity: zero value is OK, positive is Warning,
// negative is Error. Layers assign their own bands (see each package's
// errors.go) purely for documentation; Go code never compares the raw int.
type Code int

const (
	OK Code = 0
)

func (c Code) IsOK() bool      { return c == OK }
func (c Code) IsWarning() bool { return c > OK }
func (c Code) IsError() bool   { return c < OK }

// Coded is implemented by sentinel errors that carry a severity band, so a
// caller can do:
//
//	var coded status.Coded
//	if errors.As(err, &coded) && coded.Code().IsWarning() { ... }
type Coded interface {
	error
	Code() Code
}

// Wrap pairs a sentinel error with a Code, producing a value that still
// satisfies errors.Is against the original sentinel via Unwrap.
type coded struct {
	err  error
	code Code
}

func Wrap(err error, code Code) Coded {
	return &coded{err: err, code: code}
}

func (c *coded) Error() string { return c.err.Error() }
func (c *coded) Code() Code    { return c.code }
func (c *coded) Unwrap() error { return c.err }
