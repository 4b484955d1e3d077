package author

import "errors"

// Sentinel Errors returned by the author package.
var (
	ErrRequiredValue    = errors.New("required value error")
	ErrParentExists     = errors.New("parent exists error")
	ErrSpool            = errors.New("spool error")
	ErrType             = errors.New("type error")
	ErrUnknownAttribute = errors.New("attribute error")
)
