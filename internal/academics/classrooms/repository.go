package classrooms

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/edutrack/edutrack/internal/authz"
	"github.com/edutrack/edutrack/internal/platform/db"
	"github.com/edutrack/edutrack/internal/platform/httpx"
	"github.com/edutrack/edutrack/internal/shared"
)

// Repository provides PostgreSQL backed persistence for classrooms.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const classroomColumns = `cr.id, cr.school_id, cr.academic_year_id, cr.grade_id, cr.name, cr.teacher_id, cr.capacity, cr.is_active, cr.created_at, cr.updated_at`

func scanClassroom(row pgx.Row) (Classroom, error) {
	var c Classroom
	err := row.Scan(&c.ID, &c.SchoolID, &c.AcademicYearID, &c.GradeID, &c.Name, &c.TeacherID, &c.Capacity, &c.IsActive, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

// School loads the policy shape of a school.
func (r *Repository) School(ctx context.Context, id int64) (authz.School, error) {
	var s authz.School
	err := r.pool.QueryRow(ctx, `SELECT id, work_stream_id, is_active FROM schools WHERE id = $1`, id).
		Scan(&s.ID, &s.WorkstreamID, &s.IsActive)
	if errors.Is(err, pgx.ErrNoRows) {
		return authz.School{}, httpx.ErrNotFound
	}
	return s, err
}

// Get fetches a classroom by ID.
func (r *Repository) Get(ctx context.Context, id int64) (Classroom, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+classroomColumns+` FROM classrooms cr WHERE cr.id = $1`, id)
	c, err := scanClassroom(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Classroom{}, httpx.ErrNotFound
	}
	return c, err
}

// List returns classrooms matching the scope filter.
func (r *Repository) List(ctx context.Context, filter authz.ScopeFilter, limit, offset int) ([]Classroom, int, error) {
	if filter.MatchesNone {
		return nil, 0, nil
	}

	const from = `FROM classrooms cr JOIN schools s ON s.id = cr.school_id`
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) `+from+` WHERE `+filter.Where, filter.Args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(
		`SELECT `+classroomColumns+` `+from+` WHERE %s ORDER BY %s LIMIT $%d OFFSET $%d`,
		filter.Where, filter.OrderBy, filter.NextArg(), filter.NextArg()+1,
	)
	args := append(append([]any{}, filter.Args...), limit, offset)
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Classroom
	for rows.Next() {
		c, err := scanClassroom(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// Create validates the academic year, grade and homeroom teacher
// references together inside one transaction, so a reference that
// vanishes mid-flight rolls the whole insert back.
func (r *Repository) Create(ctx context.Context, in CreateClassroomInput) (Classroom, error) {
	var created Classroom
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var yearSchool int64
		err := tx.QueryRow(ctx, `SELECT school_id FROM academic_years WHERE id = $1 AND is_active = TRUE`, in.AcademicYearID).Scan(&yearSchool)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return shared.FieldErrors{"academic_year_id": "academic year not found"}
			}
			return err
		}
		if yearSchool != in.SchoolID {
			return shared.FieldErrors{"academic_year_id": "academic year belongs to a different school"}
		}

		var ok bool
		if err := tx.QueryRow(ctx, `SELECT TRUE FROM grades WHERE id = $1`, in.GradeID).Scan(&ok); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return shared.FieldErrors{"grade_id": "grade not found"}
			}
			return err
		}

		if in.TeacherID != nil {
			var teacherSchool *int64
			err := tx.QueryRow(ctx, `SELECT school_id FROM users WHERE id = $1 AND role = 'teacher' AND is_active = TRUE`, *in.TeacherID).Scan(&teacherSchool)
			if err != nil {
				if errors.Is(err, pgx.ErrNoRows) {
					return shared.FieldErrors{"teacher_id": "teacher not found"}
				}
				return err
			}
			if teacherSchool == nil || *teacherSchool != in.SchoolID {
				return shared.FieldErrors{"teacher_id": "teacher belongs to a different school"}
			}
		}

		row := tx.QueryRow(ctx, `
			INSERT INTO classrooms (school_id, academic_year_id, grade_id, name, teacher_id, capacity, is_active, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, TRUE, NOW(), NOW())
			RETURNING id, school_id, academic_year_id, grade_id, name, teacher_id, capacity, is_active, created_at, updated_at`,
			in.SchoolID, in.AcademicYearID, in.GradeID, in.Name, in.TeacherID, in.Capacity,
		)
		c, err := scanClassroom(row)
		if err != nil {
			return err
		}
		created = c
		return nil
	})
	return created, err
}

// Deactivate soft-deletes the classroom.
func (r *Repository) Deactivate(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `UPDATE classrooms SET is_active = FALSE, updated_at = NOW() WHERE id = $1 AND is_active = TRUE`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return httpx.ErrNotFound
	}
	return nil
}
