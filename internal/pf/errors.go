package pf

import (
	"errors"

	"github.com/ntmai/redbase/internal/status"
)

// Warnings (band: positive Code) mirror the PF layer of the original RC
// partition: page out of range, page not in buffer, page already unpinned.
var (
	ErrInvalidPageNum = status.Wrap(errors.New("pf: invalid page number"), 1)
	ErrPageNotFound   = status.Wrap(errors.New("pf: page not found in buffer pool"), 2)
	ErrPageNotPinned  = status.Wrap(errors.New("pf: page is not pinned"), 3)
	ErrEOF            = status.Wrap(errors.New("pf: end of file"), 4)
)

// Errors (band: negative Code).
var (
	ErrNoFreeFrame    = status.Wrap(errors.New("pf: no free frame available, all pages pinned"), -1)
	ErrFileOpen       = status.Wrap(errors.New("pf: file is already open"), -2)
	ErrFileClosed     = status.Wrap(errors.New("pf: file is closed"), -3)
	ErrHeaderCorrupt  = status.Wrap(errors.New("pf: file header is corrupt"), -4)
	ErrPagePinned     = status.Wrap(errors.New("pf: page is pinned, cannot evict/dispose"), -5)
)
