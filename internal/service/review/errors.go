package review

import "errors"

var (
	ErrEventNotFound = errors.New("event not found")
	ErrInvalidRating = errors.New("rating must be between 1 and 5")
	ErrNotAttended   = errors.New("can only review attended events")
)
