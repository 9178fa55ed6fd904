package model

import "errors"

var (
	// ErrInvalidConfig is returned for malformed job configuration
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrUnsupportedSource is returned when an adapter cannot serve a locator
	ErrUnsupportedSource = errors.New("unsupported source")
)
