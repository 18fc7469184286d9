package rm

import (
	"errors"

	"github.com/ntmai/redbase/internal/status"
)

// Warnings.
var (
	ErrEOF            = status.Wrap(errors.New("rm: end of file"), 1)
	ErrRecordNotValid = status.Wrap(errors.New("rm: record is not live"), 2)
	ErrInvalidSlotNum = status.Wrap(errors.New("rm: invalid slot number"), 3)
)

// Errors.
var (
	ErrRecordTooSmall    = status.Wrap(errors.New("rm: record size must be positive"), -1)
	ErrRecordTooLarge    = status.Wrap(errors.New("rm: record does not fit in a page"), -2)
	ErrInvalidPageNum    = status.Wrap(errors.New("rm: invalid page number"), -3)
	ErrInconsistentBitmap = status.Wrap(errors.New("rm: inconsistent free-list bitmap"), -4)
)
