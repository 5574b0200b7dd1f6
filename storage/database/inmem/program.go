package inmemdb

import (
	"context"

	"github.com/trezcool/ubora/core/program"
)

type programRepository struct {
	db *programTable
}

var _ program.Repository = (*programRepository)(nil) // interface compliance check

func NewProgramRepository(db *DB) program.Repository {
	return &programRepository{db: db.program}
}

func (repo *programRepository) CreateProgram(_ context.Context, prog program.Program) (program.Program, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	prog.ID = newPK()
	repo.db.programs[prog.ID] = &prog
	return prog, nil
}

func (repo *programRepository) GetProgramByID(_ context.Context, id string) (program.Program, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if prog, ok := repo.db.programs[id]; ok {
		return *prog, nil
	}
	return program.Program{}, program.ErrNotFound
}

func (repo *programRepository) QueryProgramsByID(_ context.Context, ids []string) ([]program.Program, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	progs := make([]program.Program, 0, len(ids))
	for _, id := range ids {
		if prog, ok := repo.db.programs[id]; ok {
			progs = append(progs, *prog)
		}
	}
	return progs, nil
}

func (repo *programRepository) QueryAllPrograms(_ context.Context) ([]program.Program, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	progs := make([]program.Program, 0, len(repo.db.programs))
	for _, prog := range repo.db.programs {
		progs = append(progs, *prog)
	}
	return progs, nil
}

func (repo *programRepository) QueryInstructorProgramIDs(_ context.Context, staffID string) ([]string, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	return assignedProgramIDs(repo.db.instructorAssignments, staffID), nil
}

func (repo *programRepository) QueryCoachProgramIDs(_ context.Context, staffID string) ([]string, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	return assignedProgramIDs(repo.db.coachAssignments, staffID), nil
}

func assignedProgramIDs(assignments []program.StaffAssignment, staffID string) []string {
	ids := make([]string, 0, len(assignments))
	for _, asg := range assignments {
		if asg.StaffID == staffID {
			ids = append(ids, asg.ProgramID)
		}
	}
	return ids
}

func (repo *programRepository) AssignStaff(_ context.Context, assignment program.StaffAssignment) (program.StaffAssignment, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	assignment.ID = newPK()
	if assignment.Kind == program.StaffKindInstructor {
		repo.db.instructorAssignments = append(repo.db.instructorAssignments, assignment)
	} else {
		repo.db.coachAssignments = append(repo.db.coachAssignments, assignment)
	}
	return assignment, nil
}

func (repo *programRepository) CreateEnrollment(_ context.Context, enr program.Enrollment) (program.Enrollment, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	enr.ID = newPK()
	repo.db.enrollments = append(repo.db.enrollments, enr)
	return enr, nil
}

func (repo *programRepository) QueryActiveEnrollments(_ context.Context, programIDs []string) ([]program.Enrollment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	wanted := make(map[string]bool, len(programIDs))
	for _, id := range programIDs {
		wanted[id] = true
	}

	enrs := make([]program.Enrollment, 0)
	for _, enr := range repo.db.enrollments {
		if enr.Status == program.EnrollmentStatusActive && wanted[enr.ProgramID] {
			enrs = append(enrs, enr)
		}
	}
	return enrs, nil
}

func (repo *programRepository) QueryActiveEnrollmentsByUser(_ context.Context, userID string) ([]program.Enrollment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	enrs := make([]program.Enrollment, 0)
	for _, enr := range repo.db.enrollments {
		if enr.Status == program.EnrollmentStatusActive && enr.UserID == userID {
			enrs = append(enrs, enr)
		}
	}
	return enrs, nil
}
