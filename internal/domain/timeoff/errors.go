package timeoff

import "errors"

var (
	ErrValidation   = errors.New("time-off rejected by HR system")
	ErrTypeNotFound = errors.New("time-off type not found")
)
