package models

import "errors"

// Sentinel errors shared across the engine.
// Use errors.Is to check: errors.Is(err, models.ErrMalformedResponse)
var (
	// ErrInvalidCardPayload means authored card data violates its structural
	// invariants. Fatal to that card only; fix the content.
	ErrInvalidCardPayload = errors.New("studyengine: invalid card payload")

	// ErrUnknownCardType means the card declares a type the engine does not
	// implement. Treated the same as an invalid payload.
	ErrUnknownCardType = errors.New("studyengine: unknown card type")

	// ErrConcurrentModification means two scheduling calls raced on one review
	// state. Retry with fresh state; never merge.
	ErrConcurrentModification = errors.New("studyengine: review state modified concurrently")

	// ErrMalformedResponse means the submitted answer shape does not match the
	// card's expected response shape. Fix the client payload.
	ErrMalformedResponse = errors.New("studyengine: malformed response")

	// ErrNotFound is returned by the storage layer when a record does not exist.
	ErrNotFound = errors.New("studyengine: not found")
)
