package vision

import "errors"

var (
	// ErrInternal is returned when the request could not be built or sent
	ErrInternal = errors.New("vision client: internal error")

	// ErrInvalidResponse is returned on unexpected status codes or payloads
	ErrInvalidResponse = errors.New("vision client: invalid response")
)
