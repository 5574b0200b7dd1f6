package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/trezcool/ubora/core/program"
)

type programRepository struct {
	db *sqlx.DB
}

var _ program.Repository = (*programRepository)(nil) // interface compliance check

func NewProgramRepository(db *sqlx.DB) *programRepository {
	return &programRepository{db: db}
}

type programRow struct {
	ID          string    `db:"id"`
	Name        string    `db:"name"`
	Description string    `db:"description"`
	CreatedAt   time.Time `db:"created_at"`
}

type enrollmentRow struct {
	ID         string    `db:"id"`
	UserID     string    `db:"user_id"`
	ProgramID  string    `db:"program_id"`
	Status     string    `db:"status"`
	EnrolledAt time.Time `db:"enrolled_at"`
}

func (repo programRepository) toProgram(row programRow) program.Program {
	return program.Program(row)
}

func (repo programRepository) toEnrollment(row enrollmentRow) program.Enrollment {
	return program.Enrollment(row)
}

func (repo programRepository) toEnrollments(rows []enrollmentRow) []program.Enrollment {
	enrs := make([]program.Enrollment, 0, len(rows))
	for _, row := range rows {
		enrs = append(enrs, repo.toEnrollment(row))
	}
	return enrs
}

func (repo programRepository) CreateProgram(ctx context.Context, prog program.Program) (program.Program, error) {
	prog.ID = uuid.New().String()
	_, err := repo.db.ExecContext(ctx,
		`INSERT INTO program (id, name, description, created_at) VALUES ($1, $2, $3, $4)`,
		prog.ID, prog.Name, prog.Description, prog.CreatedAt.UTC(),
	)
	if err != nil {
		return program.Program{}, errors.Wrap(err, "inserting program")
	}
	return prog, nil
}

func (repo programRepository) GetProgramByID(ctx context.Context, id string) (program.Program, error) {
	var row programRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM program WHERE id = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return program.Program{}, program.ErrNotFound
		}
		return program.Program{}, errors.Wrap(err, "getting program")
	}
	return repo.toProgram(row), nil
}

func (repo programRepository) QueryProgramsByID(ctx context.Context, ids []string) ([]program.Program, error) {
	if len(ids) == 0 {
		return []program.Program{}, nil
	}
	query, args, err := sqlx.In(`SELECT * FROM program WHERE id IN (?)`, ids)
	if err != nil {
		return nil, errors.Wrap(err, "expanding query")
	}
	var rows []programRow
	if err = repo.db.SelectContext(ctx, &rows, repo.db.Rebind(query), args...); err != nil {
		return nil, errors.Wrap(err, "querying programs by id")
	}
	progs := make([]program.Program, 0, len(rows))
	for _, row := range rows {
		progs = append(progs, repo.toProgram(row))
	}
	return progs, nil
}

func (repo programRepository) QueryAllPrograms(ctx context.Context) ([]program.Program, error) {
	var rows []programRow
	if err := repo.db.SelectContext(ctx, &rows, `SELECT * FROM program ORDER BY created_at`); err != nil {
		return nil, errors.Wrap(err, "querying programs")
	}
	progs := make([]program.Program, 0, len(rows))
	for _, row := range rows {
		progs = append(progs, repo.toProgram(row))
	}
	return progs, nil
}

func (repo programRepository) QueryInstructorProgramIDs(ctx context.Context, staffID string) ([]string, error) {
	var ids []string
	err := repo.db.SelectContext(ctx, &ids, `SELECT program_id FROM instructor_assignment WHERE staff_id = $1`, staffID)
	if err != nil {
		return nil, errors.Wrap(err, "querying instructor assignments")
	}
	return ids, nil
}

func (repo programRepository) QueryCoachProgramIDs(ctx context.Context, staffID string) ([]string, error) {
	var ids []string
	err := repo.db.SelectContext(ctx, &ids, `SELECT program_id FROM coach_assignment WHERE staff_id = $1`, staffID)
	if err != nil {
		return nil, errors.Wrap(err, "querying coach assignments")
	}
	return ids, nil
}

func (repo programRepository) AssignStaff(ctx context.Context, assignment program.StaffAssignment) (program.StaffAssignment, error) {
	table := "coach_assignment"
	if assignment.Kind == program.StaffKindInstructor {
		table = "instructor_assignment"
	}
	assignment.ID = uuid.New().String()
	_, err := repo.db.ExecContext(ctx,
		`INSERT INTO `+table+` (id, staff_id, program_id) VALUES ($1, $2, $3) ON CONFLICT DO NOTHING`,
		assignment.ID, assignment.StaffID, assignment.ProgramID,
	)
	if err != nil {
		return program.StaffAssignment{}, errors.Wrap(err, "inserting staff assignment")
	}
	return assignment, nil
}

func (repo programRepository) CreateEnrollment(ctx context.Context, enr program.Enrollment) (program.Enrollment, error) {
	enr.ID = uuid.New().String()
	_, err := repo.db.ExecContext(ctx,
		`INSERT INTO enrollment (id, user_id, program_id, status, enrolled_at) VALUES ($1, $2, $3, $4, $5)`,
		enr.ID, enr.UserID, enr.ProgramID, enr.Status, enr.EnrolledAt.UTC(),
	)
	if err != nil {
		return program.Enrollment{}, errors.Wrap(err, "inserting enrollment")
	}
	return enr, nil
}

func (repo programRepository) QueryActiveEnrollments(ctx context.Context, programIDs []string) ([]program.Enrollment, error) {
	if len(programIDs) == 0 {
		return []program.Enrollment{}, nil
	}
	query, args, err := sqlx.In(
		`SELECT * FROM enrollment WHERE status = ? AND program_id IN (?) ORDER BY enrolled_at`,
		program.EnrollmentStatusActive, programIDs,
	)
	if err != nil {
		return nil, errors.Wrap(err, "expanding query")
	}
	var rows []enrollmentRow
	if err = repo.db.SelectContext(ctx, &rows, repo.db.Rebind(query), args...); err != nil {
		return nil, errors.Wrap(err, "querying enrollments")
	}
	return repo.toEnrollments(rows), nil
}

func (repo programRepository) QueryActiveEnrollmentsByUser(ctx context.Context, userID string) ([]program.Enrollment, error) {
	var rows []enrollmentRow
	err := repo.db.SelectContext(ctx, &rows,
		`SELECT * FROM enrollment WHERE status = $1 AND user_id = $2 ORDER BY enrolled_at`,
		program.EnrollmentStatusActive, userID,
	)
	if err != nil {
		return nil, errors.Wrap(err, "querying user enrollments")
	}
	return repo.toEnrollments(rows), nil
}
