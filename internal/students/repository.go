package students

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/edutrack/edutrack/internal/authz"
	"github.com/edutrack/edutrack/internal/platform/db"
	"github.com/edutrack/edutrack/internal/platform/httpx"
	"github.com/edutrack/edutrack/internal/shared"
)

const uniqueViolation = "23505"

// Repository provides PostgreSQL backed persistence for student
// profiles and enrollments.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// The workstream column resolves through the student's school when the
// user row carries no direct workstream.
const studentColumns = `st.user_id, u.full_name, u.email, u.school_id, COALESCE(u.work_stream_id, s.work_stream_id), st.grade_id, st.date_of_birth, st.admission_date, st.current_status, st.address, st.medical_notes, u.is_active, st.created_at, st.updated_at`

const studentFrom = `FROM students st
		JOIN users u ON u.id = st.user_id
		LEFT JOIN schools s ON s.id = u.school_id`

func scanStudent(row pgx.Row) (Student, error) {
	var st Student
	err := row.Scan(&st.UserID, &st.FullName, &st.Email, &st.SchoolID, &st.WorkstreamID, &st.GradeID, &st.DateOfBirth, &st.AdmissionDate, &st.CurrentStatus, &st.Address, &st.MedicalNotes, &st.IsActive, &st.CreatedAt, &st.UpdatedAt)
	return st, err
}

// School loads the policy shape of a school.
func (r *Repository) School(ctx context.Context, id int64) (authz.School, error) {
	var sc authz.School
	err := r.pool.QueryRow(ctx, `SELECT id, work_stream_id, is_active FROM schools WHERE id = $1`, id).
		Scan(&sc.ID, &sc.WorkstreamID, &sc.IsActive)
	if errors.Is(err, pgx.ErrNoRows) {
		return authz.School{}, httpx.ErrNotFound
	}
	return sc, err
}

// Get fetches a student profile joined with its user row.
func (r *Repository) Get(ctx context.Context, userID int64) (Student, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+studentColumns+`
		`+studentFrom+`
		WHERE st.user_id = $1`, userID)
	st, err := scanStudent(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Student{}, httpx.ErrNotFound
	}
	return st, err
}

// List returns student profiles matching the scope filter.
func (r *Repository) List(ctx context.Context, filter authz.ScopeFilter, limit, offset int) ([]Student, int, error) {
	if filter.MatchesNone {
		return nil, 0, nil
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) `+studentFrom+` WHERE `+filter.Where, filter.Args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(
		`SELECT `+studentColumns+` `+studentFrom+` WHERE %s ORDER BY %s LIMIT $%d OFFSET $%d`,
		filter.Where, filter.OrderBy, filter.NextArg(), filter.NextArg()+1,
	)
	args := append(append([]any{}, filter.Args...), limit, offset)
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Student
	for rows.Next() {
		st, err := scanStudent(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, st)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// Create inserts the account and the profile in one transaction. The
// account inherits the school's workstream, and the grade must belong
// to the same school.
func (r *Repository) Create(ctx context.Context, in CreateStudentInput, passwordHash string) (Student, error) {
	var userID int64
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var wsID int64
		if err := tx.QueryRow(ctx, `SELECT work_stream_id FROM schools WHERE id = $1 AND is_active = TRUE`, in.SchoolID).Scan(&wsID); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return httpx.ErrNotFound
			}
			return err
		}
		var ok bool
		if err := tx.QueryRow(ctx, `SELECT TRUE FROM grades WHERE id = $1 AND school_id = $2 AND is_active = TRUE`, in.GradeID, in.SchoolID).Scan(&ok); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return fmt.Errorf("%w: grade does not belong to the school", httpx.ErrValidation)
			}
			return err
		}

		err := tx.QueryRow(ctx, `
			INSERT INTO users (email, full_name, role, school_id, work_stream_id, password_hash, is_active, created_at, updated_at)
			VALUES ($1, $2, 'student', $3, $4, $5, TRUE, NOW(), NOW())
			RETURNING id`,
			in.Email, in.FullName, in.SchoolID, wsID, passwordHash).Scan(&userID)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
				return fmt.Errorf("%w: email already registered", httpx.ErrDuplicate)
			}
			return err
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO students (user_id, grade_id, date_of_birth, admission_date, current_status, address, medical_notes, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())`,
			userID, in.GradeID, in.DateOfBirth, in.AdmissionDate, StatusActive, in.Address, in.MedicalNotes)
		return err
	})
	if err != nil {
		return Student{}, err
	}
	return r.Get(ctx, userID)
}

var userFieldColumns = map[string]string{
	"email":     "email",
	"full_name": "full_name",
	"school_id": "school_id",
}

var profileFieldColumns = map[string]string{
	"address":        "address",
	"admission_date": "admission_date",
	"current_status": "current_status",
	"medical_notes":  "medical_notes",
}

// Update applies the submitted fields, splitting them between the user
// row and the profile row inside one transaction.
func (r *Repository) Update(ctx context.Context, userID int64, fields map[string]any) (Student, error) {
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT TRUE FROM students WHERE user_id = $1`, userID).Scan(&exists); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return httpx.ErrNotFound
			}
			return err
		}

		if err := applyUpdate(ctx, tx, "users", "id", userID, fields, userFieldColumns); err != nil {
			return err
		}
		return applyUpdate(ctx, tx, "students", "user_id", userID, fields, profileFieldColumns)
	})
	if err != nil {
		return Student{}, err
	}
	return r.Get(ctx, userID)
}

func applyUpdate(ctx context.Context, tx pgx.Tx, table, key string, id int64, fields map[string]any, columns map[string]string) error {
	set := ""
	args := []any{id}
	for name, col := range columns {
		val, ok := fields[name]
		if !ok {
			continue
		}
		args = append(args, val)
		set += fmt.Sprintf("%s = $%d, ", col, len(args))
	}
	if set == "" {
		return nil
	}
	_, err := tx.Exec(ctx, fmt.Sprintf(`UPDATE %s SET %supdated_at = NOW() WHERE %s = $1`, table, set, key), args...)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return fmt.Errorf("%w: email already registered", httpx.ErrDuplicate)
		}
	}
	return err
}

// Deactivate soft-deletes the account and marks the profile inactive
// in the same transaction.
func (r *Repository) Deactivate(ctx context.Context, userID int64) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `UPDATE users SET is_active = FALSE, updated_at = NOW() WHERE id = $1 AND is_active = TRUE`, userID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return httpx.ErrNotFound
		}
		_, err = tx.Exec(ctx, `UPDATE students SET current_status = $2, updated_at = NOW() WHERE user_id = $1`, userID, StatusInactive)
		return err
	})
}

// IsLinkedGuardian reports whether the guardian has an active link to
// the student.
func (r *Repository) IsLinkedGuardian(ctx context.Context, guardianUserID, studentUserID int64) (bool, error) {
	var ok bool
	err := r.pool.QueryRow(ctx, `
		SELECT TRUE FROM guardian_student_links
		WHERE guardian_user_id = $1 AND student_user_id = $2 AND is_active = TRUE`,
		guardianUserID, studentUserID).Scan(&ok)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	return ok, err
}

const enrollmentColumns = `e.id, e.student_user_id, e.class_room_id, e.academic_year_id, e.status, c.name, e.created_at`

func scanEnrollment(row pgx.Row) (Enrollment, error) {
	var e Enrollment
	err := row.Scan(&e.ID, &e.StudentUserID, &e.ClassroomID, &e.AcademicYearID, &e.Status, &e.ClassroomName, &e.CreatedAt)
	return e, err
}

// GetEnrollment fetches one enrollment by ID.
func (r *Repository) GetEnrollment(ctx context.Context, id int64) (Enrollment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+enrollmentColumns+`
		FROM student_enrollments e JOIN class_rooms c ON c.id = e.class_room_id
		WHERE e.id = $1`, id)
	e, err := scanEnrollment(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Enrollment{}, httpx.ErrNotFound
	}
	return e, err
}

// EnrollmentsByStudent returns the student's enrollments, oldest first.
func (r *Repository) EnrollmentsByStudent(ctx context.Context, studentUserID int64) ([]Enrollment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+enrollmentColumns+`
		FROM student_enrollments e JOIN class_rooms c ON c.id = e.class_room_id
		WHERE e.student_user_id = $1
		ORDER BY e.created_at ASC, e.id ASC`, studentUserID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Enrollment
	for rows.Next() {
		e, err := scanEnrollment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// CreateEnrollment inserts an enrollment, validating in the same
// transaction that the classroom and the year belong to the student's
// school. The unique (student, classroom) pair maps to a duplicate.
func (r *Repository) CreateEnrollment(ctx context.Context, in CreateEnrollmentInput) (Enrollment, error) {
	var id int64
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var studentSchool *int64
		if err := tx.QueryRow(ctx, `
			SELECT u.school_id FROM students st JOIN users u ON u.id = st.user_id
			WHERE st.user_id = $1 AND u.is_active = TRUE`, in.StudentUserID).Scan(&studentSchool); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return httpx.ErrNotFound
			}
			return err
		}

		errs := shared.FieldErrors{}
		var classroomSchool int64
		if err := tx.QueryRow(ctx, `SELECT school_id FROM class_rooms WHERE id = $1 AND is_active = TRUE`, in.ClassroomID).Scan(&classroomSchool); err != nil {
			if !errors.Is(err, pgx.ErrNoRows) {
				return err
			}
			errs.Add("class_room_id", "classroom not found")
		} else if studentSchool == nil || classroomSchool != *studentSchool {
			errs.Add("class_room_id", "classroom belongs to a different school")
		}
		var yearSchool int64
		if err := tx.QueryRow(ctx, `SELECT school_id FROM academic_years WHERE id = $1 AND is_active = TRUE`, in.AcademicYearID).Scan(&yearSchool); err != nil {
			if !errors.Is(err, pgx.ErrNoRows) {
				return err
			}
			errs.Add("academic_year_id", "academic year not found")
		} else if studentSchool == nil || yearSchool != *studentSchool {
			errs.Add("academic_year_id", "academic year belongs to a different school")
		}
		if err := errs.OrNil(); err != nil {
			return err
		}

		err := tx.QueryRow(ctx, `
			INSERT INTO student_enrollments (student_user_id, class_room_id, academic_year_id, status, created_at, updated_at)
			VALUES ($1, $2, $3, $4, NOW(), NOW())
			RETURNING id`,
			in.StudentUserID, in.ClassroomID, in.AcademicYearID, in.Status).Scan(&id)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
				return fmt.Errorf("%w: student is already enrolled in this classroom", httpx.ErrDuplicate)
			}
		}
		return err
	})
	if err != nil {
		return Enrollment{}, err
	}
	return r.GetEnrollment(ctx, id)
}

// UpdateEnrollmentStatus changes the enrollment status.
func (r *Repository) UpdateEnrollmentStatus(ctx context.Context, id int64, status string) (Enrollment, error) {
	tag, err := r.pool.Exec(ctx, `UPDATE student_enrollments SET status = $2, updated_at = NOW() WHERE id = $1`, id, status)
	if err != nil {
		return Enrollment{}, err
	}
	if tag.RowsAffected() == 0 {
		return Enrollment{}, httpx.ErrNotFound
	}
	return r.GetEnrollment(ctx, id)
}

// DeleteEnrollment removes the enrollment row.
func (r *Repository) DeleteEnrollment(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM student_enrollments WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return httpx.ErrNotFound
	}
	return nil
}
