package authz

// Role is the closed set of user roles.
type Role int

const (
	// RoleGuest is the zero value and carries no privileges.
	RoleGuest Role = iota
	RoleStudent
	RoleGuardian
	RoleTeacher
	RoleSecretary
	RoleManagerSchool
	RoleManagerWorkstream
	RoleAdmin
)

var roleNames = map[Role]string{
	RoleGuest:             "guest",
	RoleStudent:           "student",
	RoleGuardian:          "guardian",
	RoleTeacher:           "teacher",
	RoleSecretary:         "secretary",
	RoleManagerSchool:     "manager_school",
	RoleManagerWorkstream: "manager_workstream",
	RoleAdmin:             "admin",
}

var rolesByName = func() map[string]Role {
	m := make(map[string]Role, len(roleNames))
	for r, n := range roleNames {
		m[n] = r
	}
	return m
}()

// String returns the storage representation of the role.
func (r Role) String() string {
	if n, ok := roleNames[r]; ok {
		return n
	}
	return "guest"
}

// ParseRole maps a storage string to a Role. Unknown strings map to
// RoleGuest so a corrupted row never gains privileges.
func ParseRole(s string) Role {
	if r, ok := rolesByName[s]; ok {
		return r
	}
	return RoleGuest
}

// IsStaff reports whether the role is school staff (may act on records
// beyond their own account).
func (r Role) IsStaff() bool {
	switch r {
	case RoleTeacher, RoleSecretary, RoleManagerSchool, RoleManagerWorkstream, RoleAdmin:
		return true
	}
	return false
}

// Actor is the authenticated principal. It is built once per request
// from session state and passed by value through the call chain.
//
// Only the scope fields relevant to the role are populated: a school
// bound role carries SchoolID, a workstream manager carries
// WorkstreamID, an admin carries neither.
type Actor struct {
	ID           int64
	Role         Role
	SchoolID     *int64
	WorkstreamID *int64
}

// Target describes the entity a per-instance policy is evaluated
// against. Policies only ever need the tenant coordinates and, for user
// targets, the role.
type Target struct {
	ID           int64
	Role         Role
	SchoolID     *int64
	WorkstreamID *int64
}

// School is the subset of a school row the policies consume.
type School struct {
	ID           int64
	WorkstreamID int64
	IsActive     bool
}

// GuardianProfile carries the guardian-side fields for guardian and
// link policies. SchoolID/WorkstreamID describe the guardian's user.
type GuardianProfile struct {
	UserID       int64
	SchoolID     *int64
	WorkstreamID *int64
}
