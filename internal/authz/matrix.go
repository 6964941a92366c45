package authz

// roleCreationMatrix lists, per creator role, the roles it may create
// accounts for. Roles absent from the map create nothing.
var roleCreationMatrix = map[Role][]Role{
	RoleAdmin: {
		RoleAdmin,
		RoleManagerWorkstream,
		RoleManagerSchool,
		RoleTeacher,
		RoleSecretary,
		RoleGuardian,
		RoleStudent,
	},
	RoleManagerWorkstream: {
		RoleManagerSchool,
		RoleTeacher,
		RoleSecretary,
		RoleGuardian,
		RoleStudent,
	},
	RoleManagerSchool: {
		RoleTeacher,
		RoleSecretary,
		RoleGuardian,
		RoleStudent,
	},
	RoleTeacher: {
		RoleGuardian,
		RoleStudent,
	},
	RoleSecretary: {
		RoleGuardian,
		RoleStudent,
	},
}

// CanCreateRole reports whether creator may create an account with the
// target role. Unknown creators get nothing.
func CanCreateRole(creator, target Role) bool {
	for _, allowed := range roleCreationMatrix[creator] {
		if allowed == target {
			return true
		}
	}
	return false
}

// CreatableRoles returns the roles the creator may assign, in matrix
// order. The slice is a copy.
func CreatableRoles(creator Role) []Role {
	allowed := roleCreationMatrix[creator]
	out := make([]Role, len(allowed))
	copy(out, allowed)
	return out
}
