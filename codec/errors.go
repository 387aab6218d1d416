// Package codec provides common errors and the block-coder registry.
package codec

import "errors"

var (
	// ErrCodecNotFound is returned when a block codec is not found in the registry.
	ErrCodecNotFound = errors.New("codec not found")

	// ErrInvalidParameter indicates encoding/decoding parameters are invalid.
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrInvalidData indicates a byte stream or its side information is
	// inconsistent (for example, pass segment lengths exceeding the stream).
	ErrInvalidData = errors.New("invalid data")
)
