package authz

import "errors"

// Signals returned to callers. Mapping to HTTP status codes is the
// handler's job.
var (
	// ErrDenied indicates the actor is authenticated but the policy
	// evaluated to false.
	ErrDenied = errors.New("authz: permission denied")
	// ErrNotFound stands in for ErrDenied when revealing that the
	// target exists would itself leak scope information.
	ErrNotFound = errors.New("authz: not found")
	// ErrConfiguration indicates an actor whose role requires a scope
	// field that is absent and unresolvable. Fatal for the request,
	// never retried.
	ErrConfiguration = errors.New("authz: actor scope misconfigured")
)
