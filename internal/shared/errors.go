package shared

import "fmt"

var (
	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// API and service errors
	ErrAPIRequest         = fmt.Errorf("API request failed")
	ErrUnexpectedStatus   = fmt.Errorf("unexpected response status")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")
	ErrBrowserRender      = fmt.Errorf("browser render failed")

	// Record and run errors
	ErrInvalidRecord  = fmt.Errorf("invalid record")
	ErrRunNotFound    = fmt.Errorf("sync run not found")
	ErrPartialFailure = fmt.Errorf("sync finished with failures")

	// Input validation errors
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)
