package authz

// CanAccessUser reports whether the actor may read the target account.
func CanAccessUser(actor Actor, target Target) bool {
	switch actor.Role {
	case RoleAdmin:
		return true
	case RoleManagerWorkstream:
		return actor.WorkstreamID != nil && target.WorkstreamID != nil &&
			*target.WorkstreamID == *actor.WorkstreamID
	case RoleManagerSchool:
		return sameSchool(actor, target)
	case RoleTeacher, RoleSecretary:
		// Staff below manager level only see guardians and students of
		// their own school.
		if target.Role != RoleGuardian && target.Role != RoleStudent {
			return false
		}
		return sameSchool(actor, target)
	}
	return false
}

func sameSchool(actor Actor, target Target) bool {
	return actor.SchoolID != nil && target.SchoolID != nil && *target.SchoolID == *actor.SchoolID
}
