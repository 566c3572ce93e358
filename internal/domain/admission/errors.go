package admission

import "errors"

// Rejections, in the order they are checked.
var (
	ErrAlreadyRegistered = errors.New("jogger already registered for this event")
	ErrEventFull         = errors.New("event is full")
	ErrEventInPast       = errors.New("event has already taken place")
	ErrNotRegistered     = errors.New("jogger is not registered for this event")
)
