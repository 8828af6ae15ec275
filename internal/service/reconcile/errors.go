package reconcile

import "errors"

var (
	// ErrLinkWriteBack means the HR record exists but the event could not be
	// pointed at it. The next pass adopts the record instead of recreating it.
	ErrLinkWriteBack = errors.New("failed to write time-off id back to event")
	ErrUnknownAction = errors.New("unknown reconciliation action")
)
