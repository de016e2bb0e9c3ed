package interfaces

import "errors"

var (
	ErrNotFound           = errors.New("record not found")
	ErrPreferenceNotFound = errors.New("driver preference not found")
	ErrAssignmentConflict = errors.New("trip was modified concurrently")
)
