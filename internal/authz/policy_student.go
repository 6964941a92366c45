package authz

// CanManageStudentProfiles reports whether the actor may create
// student profiles in the given school. Teachers and secretaries
// handle admissions for their own school.
func CanManageStudentProfiles(actor Actor, school School) bool {
	switch actor.Role {
	case RoleAdmin:
		return true
	case RoleManagerWorkstream:
		return actor.WorkstreamID != nil && school.WorkstreamID == *actor.WorkstreamID
	case RoleManagerSchool, RoleTeacher, RoleSecretary:
		return actor.SchoolID != nil && school.ID == *actor.SchoolID
	}
	return false
}

// AllowedStudentUpdateFields returns the profile fields the actor's
// role may change. Managers also touch the account fields; teachers
// and secretaries are restricted to the operational subset. An empty
// result means no update permission at all.
func AllowedStudentUpdateFields(role Role) []string {
	switch role {
	case RoleAdmin:
		return []string{"email", "full_name", "school_id", "address", "admission_date", "current_status", "medical_notes"}
	case RoleManagerWorkstream, RoleManagerSchool:
		// School moves stay admin-only.
		return []string{"email", "full_name", "address", "admission_date", "current_status", "medical_notes"}
	case RoleTeacher, RoleSecretary:
		return []string{"address", "admission_date", "current_status", "medical_notes"}
	}
	return nil
}

// CanManageEnrollments gates enrollment create/update/delete and
// student deactivation. Teachers are excluded; enrollment is an
// administrative act.
func CanManageEnrollments(actor Actor, school School) bool {
	switch actor.Role {
	case RoleAdmin:
		return true
	case RoleManagerWorkstream:
		return actor.WorkstreamID != nil && school.WorkstreamID == *actor.WorkstreamID
	case RoleManagerSchool, RoleSecretary:
		return actor.SchoolID != nil && school.ID == *actor.SchoolID
	}
	return false
}
