package authz

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSchoolPolicy(t *testing.T) {
	school := School{ID: 5, WorkstreamID: 1, IsActive: true}

	admin := Actor{ID: 1, Role: RoleAdmin}
	assert.True(t, CanAccessSchool(admin, school))
	assert.True(t, CanUpdateSchool(admin, school))
	assert.True(t, CanDeactivateSchool(admin, school))

	mw := Actor{ID: 2, Role: RoleManagerWorkstream, WorkstreamID: ptr(1)}
	assert.True(t, CanAccessSchool(mw, school))
	assert.True(t, CanDeactivateSchool(mw, school))
	assert.False(t, CanAccessSchool(Actor{ID: 2, Role: RoleManagerWorkstream, WorkstreamID: ptr(2)}, school))

	ms := Actor{ID: 3, Role: RoleManagerSchool, SchoolID: ptr(5)}
	assert.True(t, CanAccessSchool(ms, school))
	assert.True(t, CanUpdateSchool(ms, school))
	assert.False(t, CanAccessSchool(Actor{ID: 3, Role: RoleManagerSchool, SchoolID: ptr(6)}, school))

	for _, role := range []Role{RoleTeacher, RoleSecretary, RoleStudent, RoleGuardian, RoleGuest} {
		assert.False(t, CanAccessSchool(Actor{ID: 4, Role: role, SchoolID: ptr(5)}, school))
	}
}

// A school manager may update but never deactivate their own school.
func TestSchoolDeactivateStrictlyNarrowerThanUpdate(t *testing.T) {
	school := School{ID: 5, WorkstreamID: 1, IsActive: true}
	ms := Actor{ID: 3, Role: RoleManagerSchool, SchoolID: ptr(5)}

	assert.True(t, CanUpdateSchool(ms, school))
	assert.False(t, CanDeactivateSchool(ms, school))
}

func TestCanCreateSchoolInWorkstream(t *testing.T) {
	assert.True(t, CanCreateSchoolInWorkstream(Actor{Role: RoleAdmin}, 1))
	assert.True(t, CanCreateSchoolInWorkstream(Actor{Role: RoleManagerWorkstream, WorkstreamID: ptr(1)}, 1))
	assert.False(t, CanCreateSchoolInWorkstream(Actor{Role: RoleManagerWorkstream, WorkstreamID: ptr(2)}, 1))
	assert.False(t, CanCreateSchoolInWorkstream(Actor{Role: RoleManagerSchool, SchoolID: ptr(5)}, 1))
}

func TestUserPolicy(t *testing.T) {
	student := Target{ID: 10, Role: RoleStudent, SchoolID: ptr(3)}
	teacherTarget := Target{ID: 11, Role: RoleTeacher, SchoolID: ptr(3)}

	assert.True(t, CanAccessUser(Actor{Role: RoleAdmin}, student))

	mw := Actor{Role: RoleManagerWorkstream, WorkstreamID: ptr(1)}
	assert.True(t, CanAccessUser(mw, Target{ID: 12, Role: RoleTeacher, WorkstreamID: ptr(1)}))
	assert.False(t, CanAccessUser(mw, Target{ID: 12, Role: RoleTeacher, WorkstreamID: ptr(2)}))
	assert.False(t, CanAccessUser(mw, Target{ID: 12, Role: RoleTeacher}))

	ms := Actor{Role: RoleManagerSchool, SchoolID: ptr(3)}
	assert.True(t, CanAccessUser(ms, teacherTarget))
	assert.False(t, CanAccessUser(ms, Target{ID: 11, Role: RoleTeacher, SchoolID: ptr(4)}))

	teacher := Actor{Role: RoleTeacher, SchoolID: ptr(3)}
	assert.True(t, CanAccessUser(teacher, student))
	assert.False(t, CanAccessUser(teacher, teacherTarget), "teachers do not see other staff accounts")
	assert.False(t, CanAccessUser(teacher, Target{ID: 10, Role: RoleStudent, SchoolID: ptr(4)}))

	assert.False(t, CanAccessUser(Actor{Role: RoleStudent, SchoolID: ptr(3)}, student))
}

func TestGuardianPolicy(t *testing.T) {
	guardian := GuardianProfile{UserID: 20, SchoolID: ptr(3), WorkstreamID: ptr(1)}

	assert.True(t, CanAccessGuardian(Actor{Role: RoleAdmin}, guardian))
	assert.True(t, CanAccessGuardian(Actor{Role: RoleManagerWorkstream, WorkstreamID: ptr(1)}, guardian))
	assert.False(t, CanAccessGuardian(Actor{Role: RoleManagerWorkstream, WorkstreamID: ptr(2)}, guardian))

	for _, role := range []Role{RoleManagerSchool, RoleSecretary, RoleTeacher} {
		assert.True(t, CanAccessGuardian(Actor{Role: role, SchoolID: ptr(3)}, guardian))
		assert.False(t, CanAccessGuardian(Actor{Role: role, SchoolID: ptr(4)}, guardian))
	}

	assert.True(t, CanAccessGuardian(Actor{ID: 20, Role: RoleGuardian}, guardian), "self access")
	assert.False(t, CanAccessGuardian(Actor{ID: 21, Role: RoleGuardian}, guardian))
}

func TestCanManageGuardians(t *testing.T) {
	for _, role := range []Role{RoleAdmin, RoleManagerWorkstream, RoleManagerSchool, RoleSecretary} {
		assert.True(t, CanManageGuardians(Actor{Role: role}))
	}
	for _, role := range []Role{RoleTeacher, RoleGuardian, RoleStudent, RoleGuest} {
		assert.False(t, CanManageGuardians(Actor{Role: role}))
	}
}

// Both endpoints of a link must be in scope: staff who cannot see the
// student are denied even when they can see the guardian.
func TestGuardianStudentLinkRequiresBothEndpoints(t *testing.T) {
	guardian := GuardianProfile{UserID: 20, SchoolID: ptr(3), WorkstreamID: ptr(1)}
	studentSameSchool := Target{ID: 30, Role: RoleStudent, SchoolID: ptr(3)}
	studentOtherSchool := Target{ID: 31, Role: RoleStudent, SchoolID: ptr(4)}

	secretary := Actor{ID: 40, Role: RoleSecretary, SchoolID: ptr(3)}
	assert.True(t, CanAccessGuardianStudentLink(secretary, guardian, studentSameSchool))
	assert.False(t, CanAccessGuardianStudentLink(secretary, guardian, studentOtherSchool))

	// The linked guardian sees their own links.
	self := Actor{ID: 20, Role: RoleGuardian}
	assert.True(t, CanAccessGuardianStudentLink(self, guardian, studentOtherSchool))
	assert.False(t, CanAccessGuardianStudentLink(Actor{ID: 99, Role: RoleGuardian}, guardian, studentSameSchool))
}

func TestStudentPolicies(t *testing.T) {
	school := School{ID: 5, WorkstreamID: 1, IsActive: true}

	// Admissions reach down to teachers and secretaries of the school.
	assert.True(t, CanManageStudentProfiles(Actor{Role: RoleAdmin}, school))
	assert.True(t, CanManageStudentProfiles(Actor{Role: RoleManagerWorkstream, WorkstreamID: ptr(1)}, school))
	assert.True(t, CanManageStudentProfiles(Actor{Role: RoleTeacher, SchoolID: ptr(5)}, school))
	assert.True(t, CanManageStudentProfiles(Actor{Role: RoleSecretary, SchoolID: ptr(5)}, school))
	assert.False(t, CanManageStudentProfiles(Actor{Role: RoleTeacher, SchoolID: ptr(6)}, school))
	assert.False(t, CanManageStudentProfiles(Actor{Role: RoleGuardian}, school))

	// Enrollment is narrower: teachers are excluded.
	assert.True(t, CanManageEnrollments(Actor{Role: RoleSecretary, SchoolID: ptr(5)}, school))
	assert.False(t, CanManageEnrollments(Actor{Role: RoleTeacher, SchoolID: ptr(5)}, school))
	assert.False(t, CanManageEnrollments(Actor{Role: RoleManagerWorkstream, WorkstreamID: ptr(2)}, school))

	assert.Contains(t, AllowedStudentUpdateFields(RoleAdmin), "school_id")
	assert.NotContains(t, AllowedStudentUpdateFields(RoleManagerSchool), "school_id")
	assert.NotContains(t, AllowedStudentUpdateFields(RoleTeacher), "email")
	assert.Contains(t, AllowedStudentUpdateFields(RoleSecretary), "current_status")
	assert.Nil(t, AllowedStudentUpdateFields(RoleGuardian))
}

func TestWorkstreamPolicy(t *testing.T) {
	assert.True(t, CanCreateWorkstream(Actor{Role: RoleAdmin}))
	assert.False(t, CanCreateWorkstream(Actor{Role: RoleManagerWorkstream, WorkstreamID: ptr(1)}))

	assert.True(t, CanViewWorkstream(Actor{Role: RoleManagerSchool, WorkstreamID: ptr(1)}, 1))
	assert.False(t, CanViewWorkstream(Actor{Role: RoleManagerSchool, WorkstreamID: ptr(2)}, 1))
	assert.False(t, CanViewWorkstream(Actor{Role: RoleTeacher, SchoolID: ptr(5)}, 1))

	assert.Equal(t, []string{"description"}, AllowedWorkstreamUpdateFields(Actor{Role: RoleManagerWorkstream, WorkstreamID: ptr(1)}, 1))
	assert.Nil(t, AllowedWorkstreamUpdateFields(Actor{Role: RoleManagerWorkstream, WorkstreamID: ptr(2)}, 1))
	assert.Contains(t, AllowedWorkstreamUpdateFields(Actor{Role: RoleAdmin}, 1), "is_active")

	assert.True(t, CanDeactivateWorkstream(Actor{Role: RoleAdmin}))
	assert.False(t, CanDeactivateWorkstream(Actor{Role: RoleManagerWorkstream, WorkstreamID: ptr(1)}))
}

func TestAcademicPolicies(t *testing.T) {
	school := School{ID: 5, WorkstreamID: 1}

	assert.True(t, CanManageAcademicStructure(Actor{Role: RoleAdmin}, school))
	assert.True(t, CanManageAcademicStructure(Actor{Role: RoleManagerWorkstream, WorkstreamID: ptr(1)}, school))
	assert.True(t, CanManageAcademicStructure(Actor{Role: RoleManagerSchool, SchoolID: ptr(5)}, school))
	assert.False(t, CanManageAcademicStructure(Actor{Role: RoleTeacher, SchoolID: ptr(5)}, school))

	assert.True(t, CanAccessAcademicStructure(Actor{Role: RoleTeacher, SchoolID: ptr(5)}, school))
	assert.True(t, CanAccessAcademicStructure(Actor{Role: RoleStudent, SchoolID: ptr(5)}, school))
	assert.False(t, CanAccessAcademicStructure(Actor{Role: RoleStudent, SchoolID: ptr(6)}, school))

	assert.True(t, CanMutateGrades(Actor{Role: RoleAdmin}))
	assert.False(t, CanMutateGrades(Actor{Role: RoleManagerWorkstream, WorkstreamID: ptr(1)}))
}
