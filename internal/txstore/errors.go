package txstore

import "fmt"

var (
	// ErrNotFound indicates a state that was never created or has been purged
	// without trace. The caller should restart the auth flow from scratch.
	ErrNotFound = fmt.Errorf("transaction not found")

	// ErrUsed indicates a state that already completed its lifecycle, either
	// consumed or expired-and-purged. The flow cannot be replayed.
	ErrUsed = fmt.Errorf("transaction already used")

	// ErrExpired indicates a still-discoverable but time-barred state.
	// Distinct from ErrUsed so callers can report a session timeout.
	ErrExpired = fmt.Errorf("transaction expired")

	// ErrStore indicates an I/O or on-disk format failure. Never swallowed:
	// a silent failure here is an authentication bypass risk.
	ErrStore = fmt.Errorf("transaction store failure")

	// ErrConfig indicates an invalid store configuration, fatal at
	// construction or startup and never retried.
	ErrConfig = fmt.Errorf("invalid transaction store configuration")
)
