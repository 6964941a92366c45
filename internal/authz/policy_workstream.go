package authz

// CanCreateWorkstream: only admins create workstreams.
func CanCreateWorkstream(actor Actor) bool {
	return actor.Role == RoleAdmin
}

// CanViewWorkstream reports whether the actor may read the workstream.
func CanViewWorkstream(actor Actor, workstreamID int64) bool {
	switch actor.Role {
	case RoleAdmin:
		return true
	case RoleManagerWorkstream, RoleManagerSchool:
		return actor.WorkstreamID != nil && *actor.WorkstreamID == workstreamID
	}
	return false
}

// AllowedWorkstreamUpdateFields returns the fields the actor may update
// on the workstream. An empty slice means no permission.
func AllowedWorkstreamUpdateFields(actor Actor, workstreamID int64) []string {
	switch actor.Role {
	case RoleAdmin:
		return []string{"name", "description", "capacity", "is_active", "manager_id"}
	case RoleManagerWorkstream:
		if actor.WorkstreamID != nil && *actor.WorkstreamID == workstreamID {
			return []string{"description"}
		}
	}
	return nil
}

// CanDeactivateWorkstream: only admins deactivate workstreams.
func CanDeactivateWorkstream(actor Actor) bool {
	return actor.Role == RoleAdmin
}
