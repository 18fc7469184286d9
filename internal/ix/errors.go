package ix

import (
	"errors"

	"github.com/ntmai/redbase/internal/status"
)

// Warnings.
var (
	ErrEOF             = status.Wrap(errors.New("ix: end of scan"), 1)
	ErrKeyNotFound     = status.Wrap(errors.New("ix: key not found"), 2)
	ErrEntryExists     = status.Wrap(errors.New("ix: entry already exists"), 3)
	ErrEntryNotFound   = status.Wrap(errors.New("ix: entry not found for delete"), 4)
	ErrScanClosed      = status.Wrap(errors.New("ix: scan is closed"), 5)
)

// Errors.
var (
	ErrInconsistentNode = status.Wrap(errors.New("ix: inconsistent node"), -1)
	ErrInvalidAttribute = status.Wrap(errors.New("ix: invalid attribute for this index"), -2)
)
