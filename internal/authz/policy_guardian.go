package authz

// CanAccessGuardian reports whether the actor may read the guardian
// profile.
func CanAccessGuardian(actor Actor, guardian GuardianProfile) bool {
	switch actor.Role {
	case RoleAdmin:
		return true
	case RoleManagerWorkstream:
		return actor.WorkstreamID != nil && guardian.WorkstreamID != nil &&
			*guardian.WorkstreamID == *actor.WorkstreamID
	case RoleManagerSchool, RoleSecretary, RoleTeacher:
		return actor.SchoolID != nil && guardian.SchoolID != nil &&
			*guardian.SchoolID == *actor.SchoolID
	case RoleGuardian:
		return actor.ID == guardian.UserID
	}
	return false
}

// CanManageGuardians gates create/update/deactivate of guardian
// profiles, independent of the per-instance check.
func CanManageGuardians(actor Actor) bool {
	switch actor.Role {
	case RoleAdmin, RoleManagerWorkstream, RoleManagerSchool, RoleSecretary:
		return true
	}
	return false
}

// CanAccessGuardianStudentLink requires both endpoints of the link to
// be in scope: the guardian side per CanAccessGuardian and the student
// side per CanAccessUser. A staff actor who cannot see the student is
// denied even when they can see the guardian. The linked guardian
// themselves sees their own links regardless of the student-side staff
// rule.
func CanAccessGuardianStudentLink(actor Actor, guardian GuardianProfile, student Target) bool {
	if !CanAccessGuardian(actor, guardian) {
		return false
	}
	if actor.Role == RoleGuardian {
		return actor.ID == guardian.UserID
	}
	return CanAccessUser(actor, student)
}
