package service

import "errors"

// Sentinel errors for the required execution path. Callers use errors.Is to
// map them onto HTTP statuses and outcome records.
var (
	ErrNotFound         = errors.New("schedule not found")
	ErrValidation       = errors.New("validation error")
	ErrNoTemplate       = errors.New("no usable content template")
	ErrGenerationFailed = errors.New("content generation failed")
	ErrAlreadyClaimed   = errors.New("schedule already claimed for execution")
)
