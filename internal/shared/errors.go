package shared

import "errors"

// Sentinel errors shared across the service, task, and CLI layers. Callers
// wrap these with fmt.Errorf("%w: ...") and match with errors.Is.
var (
	ErrNotImplemented = errors.New("not implemented")

	// Credentials and authentication
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAuthFailed         = errors.New("authentication failed")
	ErrNotAuthenticated   = errors.New("not authenticated")
	ErrTokenExpired       = errors.New("access token expired")
	ErrTimeout            = errors.New("operation timed out")

	// Upstream services
	ErrAPIRequest         = errors.New("API request failed")
	ErrServiceUnavailable = errors.New("service unavailable")
	ErrPlaylistNotFound   = errors.New("playlist not found")
	ErrTrackNotFound      = errors.New("track not found")
	ErrDownloadFailed     = errors.New("download request failed")

	// CLI input
	ErrMissingArgument = errors.New("missing required argument")
	ErrInvalidArgument = errors.New("invalid argument")
)
