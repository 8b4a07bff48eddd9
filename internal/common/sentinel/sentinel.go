package sentinel

import "errors"

// Sentinel errors for storage facts. The repository returns these wrapped
// around the driver error so services can translate them into domain errors
// without inspecting driver types.
var (
	ErrNotFound       = errors.New("not found")
	ErrCollision      = errors.New("unique key collision")
	ErrSchemaMismatch = errors.New("storage schema mismatch")
	ErrUnavailable    = errors.New("unavailable")
)
