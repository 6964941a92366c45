package authz

// CanAccessSchool reports whether the actor may read the school.
func CanAccessSchool(actor Actor, school School) bool {
	switch actor.Role {
	case RoleAdmin:
		return true
	case RoleManagerWorkstream:
		return actor.WorkstreamID != nil && school.WorkstreamID == *actor.WorkstreamID
	case RoleManagerSchool:
		return actor.SchoolID != nil && school.ID == *actor.SchoolID
	}
	return false
}

// CanUpdateSchool reuses the access rule.
func CanUpdateSchool(actor Actor, school School) bool {
	return CanAccessSchool(actor, school)
}

// CanDeactivateSchool is strictly narrower than CanUpdateSchool: a
// school manager may update but never deactivate their own school.
func CanDeactivateSchool(actor Actor, school School) bool {
	if actor.Role == RoleManagerSchool {
		return false
	}
	return CanAccessSchool(actor, school)
}

// CanCreateSchoolInWorkstream reports whether the actor may create a
// school under the given workstream.
func CanCreateSchoolInWorkstream(actor Actor, workstreamID int64) bool {
	switch actor.Role {
	case RoleAdmin:
		return true
	case RoleManagerWorkstream:
		return actor.WorkstreamID != nil && workstreamID == *actor.WorkstreamID
	}
	return false
}
