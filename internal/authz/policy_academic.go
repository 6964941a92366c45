package authz

// CanManageAcademicStructure gates mutation of academic years, courses
// and classrooms. It delegates to the owning school: whoever can update
// the school manages its academic structure.
func CanManageAcademicStructure(actor Actor, school School) bool {
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

// CanAccessAcademicStructure covers reads; any school-bound actor may
// read the structure of their own school.
func CanAccessAcademicStructure(actor Actor, school School) bool {
	if CanManageAcademicStructure(actor, school) {
		return true
	}
	switch actor.Role {
	case RoleTeacher, RoleSecretary, RoleStudent:
		return actor.SchoolID != nil && school.ID == *actor.SchoolID
	}
	return false
}

// CanMutateGrades gates grade-level mutation. Grades are global
// reference data; only admins change them.
func CanMutateGrades(actor Actor) bool {
	return actor.Role == RoleAdmin
}
