package sm

import (
	"errors"

	"github.com/ntmai/redbase/internal/status"
)

// Warnings, numbered after sm.h's START_SM_WARN band.
var (
	ErrTableDoesNotExist  = status.Wrap(errors.New("sm: table does not exist"), 1)
	ErrTableAlreadyExists = status.Wrap(errors.New("sm: table already exists"), 2)
	ErrIncorrectAttrCount = status.Wrap(errors.New("sm: attribute count out of range"), 3)
	ErrInvalidName        = status.Wrap(errors.New("sm: invalid name"), 4)
	ErrIndexExists        = status.Wrap(errors.New("sm: index already exists on attribute"), 5)
	ErrIndexDoesNotExist  = status.Wrap(errors.New("sm: index does not exist"), 6)
	ErrSystemCatalog      = status.Wrap(errors.New("sm: cannot modify system catalog directly"), 7)
	ErrInvalidValue       = status.Wrap(errors.New("sm: invalid value for system parameter"), 8)
	ErrInvalidParameter   = status.Wrap(errors.New("sm: invalid system parameter"), 9)
)

// Errors.
var (
	ErrAttributeNotFound = status.Wrap(errors.New("sm: attribute not found in relation"), -1)
	ErrLoadParseFailed    = status.Wrap(errors.New("sm: load: field did not parse for its declared type"), -2)
)
