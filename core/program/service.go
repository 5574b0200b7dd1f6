package program

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
)

var ErrNotFound = errors.New("program not found")

type (
	Repository interface {
		CreateProgram(ctx context.Context, prog Program) (Program, error)
		GetProgramByID(ctx context.Context, id string) (Program, error)
		QueryProgramsByID(ctx context.Context, ids []string) ([]Program, error)
		QueryAllPrograms(ctx context.Context) ([]Program, error)
		// QueryInstructorProgramIDs and QueryCoachProgramIDs each read their own
		// assignment table; staff oversight is the union of the two.
		QueryInstructorProgramIDs(ctx context.Context, staffID string) ([]string, error)
		QueryCoachProgramIDs(ctx context.Context, staffID string) ([]string, error)
		AssignStaff(ctx context.Context, assignment StaffAssignment) (StaffAssignment, error)
		CreateEnrollment(ctx context.Context, enr Enrollment) (Enrollment, error)
		QueryActiveEnrollments(ctx context.Context, programIDs []string) ([]Enrollment, error)
		QueryActiveEnrollmentsByUser(ctx context.Context, userID string) ([]Enrollment, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) Create(ctx context.Context, np NewProgram) (Program, error) {
	return svc.repo.CreateProgram(ctx, Program{
		Name:        np.Name,
		Description: np.Description,
		CreatedAt:   time.Now().UTC(),
	})
}

func (svc *Service) GetByID(ctx context.Context, id string) (Program, error) {
	return svc.repo.GetProgramByID(ctx, id)
}

func (svc *Service) QueryAll(ctx context.Context) ([]Program, error) {
	return svc.repo.QueryAllPrograms(ctx)
}

func (svc *Service) Enroll(ctx context.Context, ne NewEnrollment) (Enrollment, error) {
	if _, err := svc.repo.GetProgramByID(ctx, ne.ProgramID); err != nil {
		return Enrollment{}, err
	}
	return svc.repo.CreateEnrollment(ctx, Enrollment{
		UserID:     ne.UserID,
		ProgramID:  ne.ProgramID,
		Status:     EnrollmentStatusActive,
		EnrolledAt: time.Now().UTC(),
	})
}

func (svc *Service) AssignCoach(ctx context.Context, staffID, programID string) (StaffAssignment, error) {
	return svc.repo.AssignStaff(ctx, StaffAssignment{StaffID: staffID, ProgramID: programID, Kind: StaffKindCoach})
}

func (svc *Service) AssignInstructor(ctx context.Context, staffID, programID string) (StaffAssignment, error) {
	return svc.repo.AssignStaff(ctx, StaffAssignment{StaffID: staffID, ProgramID: programID, Kind: StaffKindInstructor})
}

// QueryByID returns the programs matching the given ids.
func (svc *Service) QueryByID(ctx context.Context, ids []string) ([]Program, error) {
	if len(ids) == 0 {
		return []Program{}, nil
	}
	return svc.repo.QueryProgramsByID(ctx, ids)
}

// ActiveEnrollments returns the active enrollments in the given programs.
func (svc *Service) ActiveEnrollments(ctx context.Context, programIDs []string) ([]Enrollment, error) {
	if len(programIDs) == 0 {
		return []Enrollment{}, nil
	}
	return svc.repo.QueryActiveEnrollments(ctx, programIDs)
}

// ActiveEnrollmentsByUser returns a user's own active enrollments.
func (svc *Service) ActiveEnrollmentsByUser(ctx context.Context, userID string) ([]Enrollment, error) {
	return svc.repo.QueryActiveEnrollmentsByUser(ctx, userID)
}

// StaffProgramIDs returns the distinct ids of all programs a staff member
// oversees. The instructor and coach assignment reads are independent and
// issued concurrently.
func (svc *Service) StaffProgramIDs(ctx context.Context, staffID string) ([]string, error) {
	var (
		wg                 sync.WaitGroup
		instrIDs, coachIDs []string
		instrErr, coachErr error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		instrIDs, instrErr = svc.repo.QueryInstructorProgramIDs(ctx, staffID)
	}()
	go func() {
		defer wg.Done()
		coachIDs, coachErr = svc.repo.QueryCoachProgramIDs(ctx, staffID)
	}()
	wg.Wait()

	if instrErr != nil {
		return nil, errors.Wrap(instrErr, "querying instructor assignments")
	}
	if coachErr != nil {
		return nil, errors.Wrap(coachErr, "querying coach assignments")
	}

	seen := make(map[string]bool, len(instrIDs)+len(coachIDs))
	ids := make([]string, 0, len(instrIDs)+len(coachIDs))
	for _, id := range append(instrIDs, coachIDs...) {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	return ids, nil
}
