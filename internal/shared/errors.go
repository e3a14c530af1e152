package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrInvalidConfig = fmt.Errorf("invalid configuration")
	ErrMissingAuth   = fmt.Errorf("missing executor auth file")

	// Local errors, raised before the executor is called
	ErrValidation          = fmt.Errorf("validation failed")
	ErrUnresolvedReference = fmt.Errorf("song has no addressable reference")
	ErrPlaylistBusy        = fmt.Errorf("playlist has an operation in progress")
	ErrTargetNotLoaded     = fmt.Errorf("target playlist songs not loaded")

	// Executor errors
	ErrExecutorTransport = fmt.Errorf("executor unavailable")
	ErrExecutorBusiness  = fmt.Errorf("executor reported failure")

	// Store errors
	ErrPlaylistNotFound = fmt.Errorf("playlist not found")
	ErrRunNotFound      = fmt.Errorf("migration run not found")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
	ErrInvalidFlag     = fmt.Errorf("invalid flag value")
)
