package authz

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// EntityKind selects the column layout a scope predicate is built for.
type EntityKind int

const (
	EntitySchools EntityKind = iota
	EntityUsers
	EntityGuardians
	EntityCourses
	EntityClassrooms
	EntityAcademicYears
	EntityStudents
)

// ListFilters are the caller-supplied filters applied after scope
// filtering. They intersect the scope, never widen it.
type ListFilters struct {
	Search       string
	Role         *Role
	NameContains string
	CreatedFrom  *time.Time
	CreatedTo    *time.Time
}

// entityColumns maps an entity kind onto the columns the predicate
// references. Columns are qualified the way the repositories alias
// their tables.
type entityColumns struct {
	workstream string
	school     string
	selfUser   string // user-id column for self-only visibility, "" if n/a
	role       string // role column, "" if n/a
	active     string
	createdAt  string
	search     []string
	orderBy    string
}

var entityLayouts = map[EntityKind]entityColumns{
	EntitySchools: {
		workstream: "s.work_stream_id",
		school:     "s.id",
		active:     "s.is_active",
		createdAt:  "s.created_at",
		search:     []string{"s.name"},
		orderBy:    "s.name, s.id",
	},
	EntityUsers: {
		workstream: "u.work_stream_id",
		school:     "u.school_id",
		selfUser:   "u.id",
		role:       "u.role",
		active:     "u.is_active",
		createdAt:  "u.created_at",
		search:     []string{"u.full_name", "u.email"},
		orderBy:    "u.email",
	},
	EntityGuardians: {
		// Guardian accounts created by school staff carry a school but
		// no direct workstream; the school's workstream is theirs.
		workstream: "COALESCE(u.work_stream_id, s.work_stream_id)",
		school:     "u.school_id",
		selfUser:   "g.user_id",
		active:     "u.is_active",
		createdAt:  "g.created_at",
		search:     []string{"u.full_name", "u.email"},
		orderBy:    "u.full_name, g.user_id",
	},
	EntityCourses: {
		workstream: "s.work_stream_id",
		school:     "c.school_id",
		active:     "c.is_active",
		createdAt:  "c.created_at",
		search:     []string{"c.name", "c.code"},
		orderBy:    "c.name, c.id",
	},
	EntityClassrooms: {
		workstream: "s.work_stream_id",
		school:     "cr.school_id",
		active:     "cr.is_active",
		createdAt:  "cr.created_at",
		search:     []string{"cr.name"},
		orderBy:    "cr.name, cr.id",
	},
	EntityAcademicYears: {
		workstream: "s.work_stream_id",
		school:     "ay.school_id",
		active:     "ay.is_active",
		createdAt:  "ay.created_at",
		search:     []string{"ay.name"},
		orderBy:    "ay.start_date, ay.id",
	},
	EntityStudents: {
		// Student accounts are school-created; the workstream resolves
		// through the school like it does for guardians.
		workstream: "COALESCE(u.work_stream_id, s.work_stream_id)",
		school:     "u.school_id",
		selfUser:   "st.user_id",
		active:     "u.is_active",
		createdAt:  "st.created_at",
		search:     []string{"u.full_name", "u.email"},
		orderBy:    "u.full_name, st.user_id",
	},
}

// ScopeFilter is a rendered scope predicate. Repositories append it as
// the complete WHERE clause of their listing query.
type ScopeFilter struct {
	// Where is the predicate text with placeholders numbered from $1.
	// Never empty; an unrestricted predicate renders as TRUE.
	Where string
	// Args are the bind values for Where.
	Args []any
	// OrderBy is the entity's canonical default sort.
	OrderBy string
	// MatchesNone is set when the actor's scope is empty; callers skip
	// the query entirely and return no rows.
	MatchesNone bool
}

// NextArg returns the placeholder number to use for arguments appended
// after the filter, e.g. LIMIT/OFFSET.
func (f ScopeFilter) NextArg() int { return len(f.Args) + 1 }

type predicateBuilder struct {
	conds []string
	args  []any
}

func (b *predicateBuilder) add(format string, vals ...any) {
	placeholders := make([]any, len(vals))
	for i, v := range vals {
		b.args = append(b.args, v)
		placeholders[i] = fmt.Sprintf("$%d", len(b.args))
	}
	b.conds = append(b.conds, fmt.Sprintf(format, placeholders...))
}

func (b *predicateBuilder) render() (string, []any) {
	if len(b.conds) == 0 {
		return "TRUE", nil
	}
	return strings.Join(b.conds, " AND "), b.args
}

// ScopePredicate turns actor + filters into a scope predicate for the
// given entity kind. Scope filtering always applies first and cannot be
// bypassed by filter parameters. includeInactive is honored only for
// admins; every other role silently gets active records only.
func (r *Resolver) ScopePredicate(ctx context.Context, actor Actor, kind EntityKind, filters ListFilters, includeInactive bool) (ScopeFilter, error) {
	layout, ok := entityLayouts[kind]
	if !ok {
		return ScopeFilter{MatchesNone: true}, fmt.Errorf("authz: unknown entity kind %d", kind)
	}

	scope, err := r.ResolveScope(ctx, actor)
	if err != nil {
		return ScopeFilter{MatchesNone: true, OrderBy: layout.orderBy}, err
	}
	if scope.IsEmpty() {
		return ScopeFilter{MatchesNone: true, OrderBy: layout.orderBy}, nil
	}

	b := &predicateBuilder{}

	switch {
	case scope.IsGlobal():
		// no tenant condition
	case scope.WorkstreamID != nil:
		b.add(layout.workstream+" = %s", *scope.WorkstreamID)
	case scope.SchoolID != nil:
		if narrow, none := r.schoolLevelNarrowing(actor, kind, layout, b, *scope.SchoolID); none {
			return ScopeFilter{MatchesNone: true, OrderBy: layout.orderBy}, nil
		} else if !narrow {
			b.add(layout.school+" = %s", *scope.SchoolID)
		}
	}

	if !includeInactive || actor.Role != RoleAdmin {
		b.conds = append(b.conds, layout.active+" = TRUE")
	}

	applyFilters(b, layout, filters)

	where, args := b.render()
	return ScopeFilter{Where: where, Args: args, OrderBy: layout.orderBy}, nil
}

// schoolLevelNarrowing applies per-kind rules stricter than plain
// school equality. Returns (handled, matchesNone).
func (r *Resolver) schoolLevelNarrowing(actor Actor, kind EntityKind, layout entityColumns, b *predicateBuilder, schoolID int64) (bool, bool) {
	switch kind {
	case EntityUsers:
		switch actor.Role {
		case RoleTeacher, RoleSecretary:
			// School staff below manager level list only guardians and
			// students of their school.
			b.add(layout.school+" = %s", schoolID)
			b.add(layout.role+" IN (%s, %s)", RoleGuardian.String(), RoleStudent.String())
			return true, false
		case RoleStudent, RoleGuardian:
			// Non-staff see themselves only.
			b.add(layout.selfUser+" = %s", actor.ID)
			return true, false
		}
	case EntityGuardians:
		switch actor.Role {
		case RoleGuardian:
			b.add(layout.selfUser+" = %s", actor.ID)
			return true, false
		case RoleStudent:
			return true, true
		}
	case EntityStudents:
		switch actor.Role {
		case RoleStudent:
			b.add(layout.selfUser+" = %s", actor.ID)
			return true, false
		case RoleGuardian:
			// Guardians list their actively linked students, not the
			// whole school their scope resolved to.
			b.add("EXISTS (SELECT 1 FROM guardian_student_links l WHERE l.student_user_id = "+layout.selfUser+" AND l.guardian_user_id = %s AND l.is_active = TRUE)", actor.ID)
			return true, false
		}
	}
	return false, false
}

func applyFilters(b *predicateBuilder, layout entityColumns, filters ListFilters) {
	if s := strings.TrimSpace(filters.Search); s != "" && len(layout.search) > 0 {
		parts := make([]string, 0, len(layout.search))
		for _, col := range layout.search {
			b.args = append(b.args, "%"+s+"%")
			parts = append(parts, fmt.Sprintf("%s ILIKE $%d", col, len(b.args)))
		}
		b.conds = append(b.conds, "("+strings.Join(parts, " OR ")+")")
	}
	if n := strings.TrimSpace(filters.NameContains); n != "" && len(layout.search) > 0 {
		b.add(layout.search[0]+" ILIKE %s", "%"+n+"%")
	}
	if filters.Role != nil && layout.role != "" {
		b.add(layout.role+" = %s", filters.Role.String())
	}
	if filters.CreatedFrom != nil {
		b.add(layout.createdAt+" >= %s", *filters.CreatedFrom)
	}
	if filters.CreatedTo != nil {
		b.add(layout.createdAt+" < %s", *filters.CreatedTo)
	}
}
