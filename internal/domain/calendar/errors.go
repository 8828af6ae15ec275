package calendar

import "errors"

var ErrMissingTime = errors.New("event is missing start or end")
