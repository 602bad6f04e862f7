package model

import "errors"

// Storage-level sentinels shared by the postgres and in-memory stores.
// Services translate them into their own API errors.
var (
	ErrSwipeNotFound   = errors.New("swipe not found")
	ErrMatchNotFound   = errors.New("match not found")
	ErrMatchArchived   = errors.New("match archived")
	ErrMessageNotFound = errors.New("message not found")

	// ErrUnavailable marks transient storage failures that survived the
	// bounded retry. Handlers map it to 503 so callers know to retry.
	ErrUnavailable = errors.New("storage temporarily unavailable")
)
