package errorutil

import "errors"

// ErrDataIntegrity is a base error type to use for failures that are due to
// unrecoverable data integrity issues.
var ErrDataIntegrity = errors.New("data integrity error")

// ErrSampleDropped marks a sample that could not be recorded. The profile
// stays valid without it.
var ErrSampleDropped = errors.New("sample dropped")
