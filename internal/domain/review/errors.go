package review

import "errors"

var (
	ErrRatingOutOfRange = errors.New("rating must be between 1 and 5")
	ErrNotParticipant   = errors.New("only registered joggers can review a finished event")
)
