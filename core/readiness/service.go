package readiness

import (
	"context"
	"sort"
	"time"

	"github.com/trezcool/ubora/core"
	"github.com/trezcool/ubora/core/assessment"
	"github.com/trezcool/ubora/core/path"
	"github.com/trezcool/ubora/core/program"
	"github.com/trezcool/ubora/core/user"
)

type (
	// UserDirectory resolves display names for enrolled users.
	// user.Repository satisfies it.
	UserDirectory interface {
		QueryUsersByID(ctx context.Context, ids []string) ([]user.User, error)
	}

	// ProgramDirectory is the slice of the program service the readiness
	// pipeline reads from. *program.Service satisfies it.
	ProgramDirectory interface {
		StaffProgramIDs(ctx context.Context, staffID string) ([]string, error)
		ActiveEnrollments(ctx context.Context, programIDs []string) ([]program.Enrollment, error)
		ActiveEnrollmentsByUser(ctx context.Context, userID string) ([]program.Enrollment, error)
		QueryByID(ctx context.Context, ids []string) ([]program.Program, error)
	}

	// Service derives readiness rows from path, goal, and assessment state.
	// It only ever reads; recomputation happens per call, behind a short
	// staleness window.
	Service struct {
		conf        *core.Config
		users       UserDirectory
		programs    ProgramDirectory
		paths       path.Repository
		assessments assessment.Repository
		cache       *resultCache
		nowFunc     func() time.Time // mockable
	}
)

func NewService(
	users UserDirectory,
	programs ProgramDirectory,
	paths path.Repository,
	assessments assessment.Repository,
	conf *core.Config,
) *Service {
	return &Service{
		conf:        conf,
		users:       users,
		programs:    programs,
		paths:       paths,
		assessments: assessments,
		cache:       newResultCache(conf.Readiness.CacheTTL),
		nowFunc:     time.Now,
	}
}

// CoachDashboard computes readiness rows for every client on a live path in
// any program the staff member oversees, sorted most-urgent-first.
// Absence of data at any stage yields an empty list, not an error.
func (svc *Service) CoachDashboard(ctx context.Context, staffID string) ([]ClientReadiness, error) {
	now := svc.nowFunc().UTC()
	cacheKey := "staff:" + staffID
	if rows, ok := svc.cache.get(cacheKey, now); ok {
		return rows, nil
	}

	programIDs, err := svc.programs.StaffProgramIDs(ctx, staffID)
	if err != nil {
		return nil, err
	}
	if len(programIDs) == 0 {
		return []ClientReadiness{}, nil
	}

	enrollments, err := svc.programs.ActiveEnrollments(ctx, programIDs)
	if err != nil {
		return nil, err
	}

	rows, err := svc.buildRows(ctx, enrollments, now)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return severity[rows[i].AlertLevel] < severity[rows[j].AlertLevel]
	})

	svc.cache.set(cacheKey, rows, now)
	return rows, nil
}

// ForUser computes readiness rows for one user's own live instantiations,
// unsorted, one row per instantiation.
func (svc *Service) ForUser(ctx context.Context, userID string) ([]ClientReadiness, error) {
	now := svc.nowFunc().UTC()
	cacheKey := "user:" + userID
	if rows, ok := svc.cache.get(cacheKey, now); ok {
		return rows, nil
	}

	enrollments, err := svc.programs.ActiveEnrollmentsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	rows, err := svc.buildRows(ctx, enrollments, now)
	if err != nil {
		return nil, err
	}

	svc.cache.set(cacheKey, rows, now)
	return rows, nil
}

// buildRows runs the shared tail of the pipeline: profiles, live
// instantiations, the template hierarchy fold, gate evaluation, and the
// final alert classification.
func (svc *Service) buildRows(ctx context.Context, enrollments []program.Enrollment, now time.Time) ([]ClientReadiness, error) {
	if len(enrollments) == 0 {
		return []ClientReadiness{}, nil
	}

	userIDs := make([]string, 0, len(enrollments))
	enrollmentByUser := make(map[string]program.Enrollment, len(enrollments))
	programIDs := make([]string, 0, len(enrollments))
	seenPrograms := make(map[string]bool, len(enrollments))
	for _, enr := range enrollments {
		if _, ok := enrollmentByUser[enr.UserID]; !ok {
			enrollmentByUser[enr.UserID] = enr
			userIDs = append(userIDs, enr.UserID)
		}
		if !seenPrograms[enr.ProgramID] {
			seenPrograms[enr.ProgramID] = true
			programIDs = append(programIDs, enr.ProgramID)
		}
	}

	users, err := svc.users.QueryUsersByID(ctx, userIDs)
	if err != nil {
		return nil, err
	}
	userNames := make(map[string]string, len(users))
	for _, usr := range users {
		userNames[usr.ID] = usr.Name
	}

	programs, err := svc.programs.QueryByID(ctx, programIDs)
	if err != nil {
		return nil, err
	}
	programNames := make(map[string]string, len(programs))
	for _, prog := range programs {
		programNames[prog.ID] = prog.Name
	}

	insts, err := svc.paths.QueryLiveInstantiations(ctx, userIDs)
	if err != nil {
		return nil, err
	}
	if len(insts) == 0 {
		return []ClientReadiness{}, nil
	}

	idx, err := svc.buildPathIndex(ctx, userIDs, insts)
	if err != nil {
		return nil, err
	}

	evaluator := newGateEvaluator(svc.assessments, svc.conf.Readiness.SnapshotWindow)

	rows := make([]ClientReadiness, 0, len(insts))
	for _, inst := range insts {
		gates, currentMilestoneTitle := idx.resolve(inst)

		gateStatus, err := evaluator.ComputeGateStatuses(ctx, gates, inst.UserID)
		if err != nil {
			return nil, err
		}

		daysSince := idx.daysSinceLastProgress(inst.UserID, now)
		enr := enrollmentByUser[inst.UserID]

		rows = append(rows, ClientReadiness{
			UserID:                  inst.UserID,
			UserName:                userNames[inst.UserID],
			EnrollmentID:            enr.ID,
			ProgramName:             programNames[enr.ProgramID],
			PathName:                idx.templateNames[inst.TemplateID],
			InstantiationID:         inst.ID,
			TotalGates:              gateStatus.Total,
			MetGates:                gateStatus.Met,
			ReadinessPercent:        gateStatus.Percent(),
			CurrentMilestoneTitle:   currentMilestoneTitle,
			AlertLevel:              svc.classify(gateStatus.Percent(), daysSince, onSchedule(inst.EstimatedCompletionDate, now)),
			DaysSinceLastProgress:   daysSince,
			EstimatedCompletionDate: inst.EstimatedCompletionDate,
			StartedAt:               inst.StartedAt,
		})
	}
	return rows, nil
}

// classify applies the alert precedence: staleness overrides everything,
// then schedule position splits green/amber from red.
func (svc *Service) classify(percent int, daysSince *int, isOnSchedule bool) AlertLevel {
	switch {
	case daysSince == nil || *daysSince >= svc.conf.Readiness.StalledAfterDays:
		return AlertStalled
	case percent >= svc.conf.Readiness.GreenThreshold && isOnSchedule:
		return AlertGreen
	case isOnSchedule:
		return AlertAmber
	default:
		return AlertRed
	}
}

// onSchedule is true without an estimate, or while the estimated completion
// date is today or later.
func onSchedule(estimated *time.Time, now time.Time) bool {
	if estimated == nil {
		return true
	}
	y, m, d := now.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return !estimated.Before(today)
}
