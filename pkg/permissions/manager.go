package permissions

import "context"

// KeyFineLocation is the permission guarding precise position access.
const KeyFineLocation = "location.fine"

// Result is the terminal outcome of a permission request.
type Result string

const (
	ResultGranted Result = "granted"
	ResultDenied  Result = "denied"

	// ResultBlocked means prompting is disabled for the key. Requests
	// cannot succeed until the grant store is changed out of band.
	ResultBlocked Result = "blocked"
)

// Rationale explains why a permission is needed. It is shown to the
// operator before the prompt.
type Rationale struct {
	Title   string
	Message string
}

// Manager owns the agent's runtime permission state.
type Manager interface {
	// Check reports whether the permission is currently granted,
	// without prompting.
	Check(key string) (bool, error)

	// Request prompts for the permission and blocks until a terminal
	// result or ctx expiry. Keys already granted return ResultGranted
	// without a prompt.
	Request(ctx context.Context, key string, rationale Rationale) (Result, error)
}
