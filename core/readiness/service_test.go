package readiness

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/trezcool/ubora/core"
	"github.com/trezcool/ubora/core/path"
	"github.com/trezcool/ubora/core/program"
	"github.com/trezcool/ubora/core/user"
	inmemdb "github.com/trezcool/ubora/storage/database/inmem"
)

type testEnv struct {
	db      *inmemdb.DB
	conf    *core.Config
	usrRepo user.Repository
	progSvc *program.Service
	svc     *Service
	now     time.Time
}

func newTestEnv(t *testing.T, cacheTTL time.Duration) *testEnv {
	t.Helper()

	conf := core.NewTestConfig()
	conf.Readiness.CacheTTL = cacheTTL

	db, err := inmemdb.Open()
	if err != nil {
		t.Fatalf("inmemdb.Open() failed, %v", err)
	}
	usrRepo := inmemdb.NewUserRepository(db)
	progSvc := program.NewService(inmemdb.NewProgramRepository(db))

	svc := NewService(usrRepo, progSvc, inmemdb.NewPathRepository(db), inmemdb.NewAssessmentRepository(db), conf)

	env := &testEnv{
		db:      db,
		conf:    conf,
		usrRepo: usrRepo,
		progSvc: progSvc,
		svc:     svc,
		now:     time.Date(2021, 6, 15, 12, 0, 0, 0, time.UTC),
	}
	svc.nowFunc = func() time.Time { return env.now }
	return env
}

func (env *testEnv) addUser(t *testing.T, name string, roles []string) user.User {
	t.Helper()

	isActive := true
	uname := strings.ToLower(name)
	usr, err := env.usrRepo.CreateUser(context.Background(), user.User{
		Name:     name,
		Username: uname,
		Email:    uname + "@test.cd",
		IsActive: &isActive,
		Roles:    roles,
	})
	if err != nil {
		t.Fatalf("CreateUser() failed, %v", err)
	}
	return usr
}

func (env *testEnv) addProgram(t *testing.T, name, coachID string, clientIDs ...string) program.Program {
	t.Helper()
	ctx := context.Background()

	prog, err := env.progSvc.Create(ctx, program.NewProgram{Name: name})
	if err != nil {
		t.Fatalf("Create() failed, %v", err)
	}
	if _, err = env.progSvc.AssignCoach(ctx, coachID, prog.ID); err != nil {
		t.Fatalf("AssignCoach() failed, %v", err)
	}
	for _, id := range clientIDs {
		if _, err = env.progSvc.Enroll(ctx, program.NewEnrollment{UserID: id, ProgramID: prog.ID}); err != nil {
			t.Fatalf("Enroll() failed, %v", err)
		}
	}
	return prog
}

// seedTemplate builds a three-goal template:
//
//	Foundations  -> "Kickoff session"
//	Execution    -> "Design brief" (gated on dom1 >= 3 and dom2 >= 4), "Stakeholder review"
//	Mastery      -> "Capstone"
func (env *testEnv) seedTemplate(t *testing.T) (tpl path.PathTemplate, goals []path.TemplateGoal) {
	t.Helper()

	tpl = env.db.AddPathTemplate(path.PathTemplate{Name: "Leadership Path"})

	goal1 := env.db.AddTemplateGoal(path.TemplateGoal{TemplateID: tpl.ID, Name: "Foundations", Position: 1})
	env.db.AddTemplateMilestone(path.TemplateMilestone{GoalID: goal1.ID, Title: "Kickoff session", OrderIndex: 1})

	goal2 := env.db.AddTemplateGoal(path.TemplateGoal{TemplateID: tpl.ID, Name: "Execution", Position: 2})
	msB := env.db.AddTemplateMilestone(path.TemplateMilestone{GoalID: goal2.ID, Title: "Design brief", OrderIndex: 1})
	env.db.AddTemplateMilestone(path.TemplateMilestone{GoalID: goal2.ID, Title: "Stakeholder review", OrderIndex: 2})
	env.db.AddMilestoneGate(path.MilestoneGate{MilestoneID: msB.ID, CapabilityDomainID: strPtr("dom1"), MinScore: 3})
	env.db.AddMilestoneGate(path.MilestoneGate{MilestoneID: msB.ID, CapabilityDomainID: strPtr("dom2"), MinScore: 4})

	goal3 := env.db.AddTemplateGoal(path.TemplateGoal{TemplateID: tpl.ID, Name: "Mastery", Position: 3})
	env.db.AddTemplateMilestone(path.TemplateMilestone{GoalID: goal3.ID, Title: "Capstone", OrderIndex: 1})

	return tpl, []path.TemplateGoal{goal1, goal2, goal3}
}

func (env *testEnv) startPath(userID, templateID string, est *time.Time) path.Instantiation {
	return env.db.AddInstantiation(path.Instantiation{
		UserID:                  userID,
		TemplateID:              templateID,
		Status:                  path.StatusActive,
		StartedAt:               env.now.Add(-60 * 24 * time.Hour),
		EstimatedCompletionDate: est,
	})
}

func Test_Service_CoachDashboard(t *testing.T) {
	env := newTestEnv(t, 0)
	ctx := context.Background()

	coach := env.addUser(t, "Coach", user.CoachRoles)
	alice := env.addUser(t, "Alice", user.ClientRoles)
	bob := env.addUser(t, "Bob", user.ClientRoles)
	carol := env.addUser(t, "Carol", user.ClientRoles)
	env.addUser(t, "Dan", user.ClientRoles) // not enrolled

	prog := env.addProgram(t, "Emerging Leaders", coach.ID, alice.ID, bob.ID, carol.ID)
	tpl, goals := env.seedTemplate(t)

	// Alice: first goal done 5 days ago, one of two gates met -> amber at 50%.
	env.startPath(alice.ID, tpl.ID, nil)
	env.db.AddUserGoal(path.UserGoal{
		UserID:         alice.ID,
		TemplateGoalID: &goals[0].ID,
		Status:         path.GoalStatusCompleted,
		UpdatedAt:      env.now.Add(-5 * 24 * time.Hour),
	})
	snap := makeSnapshot("asm1", env.now.Add(-time.Hour), map[string][]int{"dom1": {4, 4}, "dom2": {3, 3}})
	snap.UserID = alice.ID
	env.db.AddSnapshot(snap)

	// Bob: never touched a goal -> stalled.
	env.startPath(bob.ID, tpl.ID, nil)

	// Carol: progressing but past her estimated completion date -> red.
	est := env.now.Add(-48 * time.Hour)
	env.startPath(carol.ID, tpl.ID, &est)
	env.db.AddUserGoal(path.UserGoal{
		UserID:         carol.ID,
		TemplateGoalID: &goals[0].ID,
		Status:         path.GoalStatusInProgress,
		UpdatedAt:      env.now.Add(-2 * 24 * time.Hour),
	})

	rows, err := env.svc.CoachDashboard(ctx, coach.ID)
	if err != nil {
		t.Fatalf("CoachDashboard() failed, %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want 3", len(rows))
	}

	// most urgent first: red < stalled < amber
	wantOrder := []struct {
		userID string
		level  AlertLevel
	}{
		{carol.ID, AlertRed},
		{bob.ID, AlertStalled},
		{alice.ID, AlertAmber},
	}
	for i, want := range wantOrder {
		if rows[i].UserID != want.userID || rows[i].AlertLevel != want.level {
			t.Errorf("rows[%d] = {%s %s}, want {%s %s}", i, rows[i].UserID, rows[i].AlertLevel, want.userID, want.level)
		}
	}

	aliceRow := rows[2]
	if aliceRow.UserName != "Alice" {
		t.Errorf("UserName = %q, want Alice", aliceRow.UserName)
	}
	if aliceRow.ProgramName != prog.Name {
		t.Errorf("ProgramName = %q, want %q", aliceRow.ProgramName, prog.Name)
	}
	if aliceRow.PathName != tpl.Name {
		t.Errorf("PathName = %q, want %q", aliceRow.PathName, tpl.Name)
	}
	if aliceRow.TotalGates != 2 || aliceRow.MetGates != 1 || aliceRow.ReadinessPercent != 50 {
		t.Errorf("gates = %d/%d (%d%%), want 1/2 (50%%)", aliceRow.MetGates, aliceRow.TotalGates, aliceRow.ReadinessPercent)
	}
	// first incomplete goal is Execution; its first milestone is advertised,
	// not Mastery's
	if aliceRow.CurrentMilestoneTitle != "Design brief" {
		t.Errorf("CurrentMilestoneTitle = %q, want %q", aliceRow.CurrentMilestoneTitle, "Design brief")
	}
	if aliceRow.DaysSinceLastProgress == nil || *aliceRow.DaysSinceLastProgress != 5 {
		t.Errorf("DaysSinceLastProgress = %v, want 5", aliceRow.DaysSinceLastProgress)
	}

	bobRow := rows[1]
	if bobRow.DaysSinceLastProgress != nil {
		t.Errorf("DaysSinceLastProgress = %v, want nil for a user with no goal records", *bobRow.DaysSinceLastProgress)
	}
	if bobRow.CurrentMilestoneTitle != "Kickoff session" {
		t.Errorf("CurrentMilestoneTitle = %q, want %q", bobRow.CurrentMilestoneTitle, "Kickoff session")
	}
}

func Test_Service_CoachDashboard_emptyStages(t *testing.T) {
	env := newTestEnv(t, 0)
	ctx := context.Background()

	coach := env.addUser(t, "Coach", user.CoachRoles)

	// no program assignments at all
	rows, err := env.svc.CoachDashboard(ctx, coach.ID)
	if err != nil {
		t.Fatalf("CoachDashboard() failed, %v", err)
	}
	if rows == nil || len(rows) != 0 {
		t.Errorf("rows = %v, want empty list", rows)
	}

	// enrolled clients but nobody on a live path
	alice := env.addUser(t, "Alice", user.ClientRoles)
	env.addProgram(t, "Emerging Leaders", coach.ID, alice.ID)

	rows, err = env.svc.CoachDashboard(ctx, coach.ID)
	if err != nil {
		t.Fatalf("CoachDashboard() failed, %v", err)
	}
	if rows == nil || len(rows) != 0 {
		t.Errorf("rows = %v, want empty list", rows)
	}

	// a completed instantiation is not live
	tpl, _ := env.seedTemplate(t)
	env.db.AddInstantiation(path.Instantiation{
		UserID:     alice.ID,
		TemplateID: tpl.ID,
		Status:     path.StatusCompleted,
		StartedAt:  env.now.Add(-90 * 24 * time.Hour),
	})

	rows, err = env.svc.CoachDashboard(ctx, coach.ID)
	if err != nil {
		t.Fatalf("CoachDashboard() failed, %v", err)
	}
	if len(rows) != 0 {
		t.Errorf("got %d rows for a completed path, want 0", len(rows))
	}
}

func Test_Service_ForUser(t *testing.T) {
	env := newTestEnv(t, 0)
	ctx := context.Background()

	coach := env.addUser(t, "Coach", user.CoachRoles)
	alice := env.addUser(t, "Alice", user.ClientRoles)
	env.addProgram(t, "Emerging Leaders", coach.ID, alice.ID)
	tpl, goals := env.seedTemplate(t)

	env.startPath(alice.ID, tpl.ID, nil)
	env.db.AddUserGoal(path.UserGoal{
		UserID:         alice.ID,
		TemplateGoalID: &goals[0].ID,
		Status:         path.GoalStatusCompleted,
		UpdatedAt:      env.now.Add(-3 * 24 * time.Hour),
	})

	rows, err := env.svc.ForUser(ctx, alice.ID)
	if err != nil {
		t.Fatalf("ForUser() failed, %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(rows))
	}
	row := rows[0]
	if row.UserID != alice.ID || row.PathName != tpl.Name {
		t.Errorf("row = {%s %s}, want {%s %s}", row.UserID, row.PathName, alice.ID, tpl.Name)
	}
	if row.TotalGates != 2 || row.MetGates != 0 {
		t.Errorf("gates = %d/%d, want 0/2", row.MetGates, row.TotalGates)
	}
	if row.AlertLevel != AlertAmber {
		t.Errorf("AlertLevel = %s, want amber", row.AlertLevel)
	}
}

func Test_Service_cachesResults(t *testing.T) {
	env := newTestEnv(t, time.Minute)
	ctx := context.Background()

	coach := env.addUser(t, "Coach", user.CoachRoles)
	alice := env.addUser(t, "Alice", user.ClientRoles)
	prog := env.addProgram(t, "Emerging Leaders", coach.ID, alice.ID)
	tpl, _ := env.seedTemplate(t)
	env.startPath(alice.ID, tpl.ID, nil)

	rows, err := env.svc.CoachDashboard(ctx, coach.ID)
	if err != nil {
		t.Fatalf("CoachDashboard() failed, %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(rows))
	}

	// new data within the staleness window is not picked up
	bob := env.addUser(t, "Bob", user.ClientRoles)
	if _, err = env.progSvc.Enroll(ctx, program.NewEnrollment{UserID: bob.ID, ProgramID: prog.ID}); err != nil {
		t.Fatalf("Enroll() failed, %v", err)
	}
	env.startPath(bob.ID, tpl.ID, nil)

	rows, err = env.svc.CoachDashboard(ctx, coach.ID)
	if err != nil {
		t.Fatalf("CoachDashboard() failed, %v", err)
	}
	if len(rows) != 1 {
		t.Errorf("got %d rows within the TTL, want cached 1", len(rows))
	}

	// the window expires and the next call recomputes
	env.now = env.now.Add(2 * time.Minute)
	rows, err = env.svc.CoachDashboard(ctx, coach.ID)
	if err != nil {
		t.Fatalf("CoachDashboard() failed, %v", err)
	}
	if len(rows) != 2 {
		t.Errorf("got %d rows after the TTL, want 2", len(rows))
	}
}

func Test_Service_classify(t *testing.T) {
	env := newTestEnv(t, 0)
	env.conf.Readiness.StalledAfterDays = 30
	env.conf.Readiness.GreenThreshold = 80

	days := func(n int) *int { return &n }

	tests := []struct {
		name       string
		percent    int
		daysSince  *int
		onSchedule bool
		want       AlertLevel
	}{
		{"no progress ever", 100, nil, true, AlertStalled},
		{"stalled overrides high readiness and schedule", 95, days(35), true, AlertStalled},
		{"stalled at exact threshold", 50, days(30), true, AlertStalled},
		{"just under stalled threshold", 10, days(29), true, AlertAmber},
		{"green at exact threshold", 80, days(5), true, AlertGreen},
		{"just under green threshold", 79, days(5), true, AlertAmber},
		{"recent progress but off schedule", 95, days(5), false, AlertRed},
		{"off schedule and low readiness", 10, days(5), false, AlertRed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := env.svc.classify(tt.percent, tt.daysSince, tt.onSchedule); got != tt.want {
				t.Errorf("classify(%d, %v, %t) = %s, want %s", tt.percent, tt.daysSince, tt.onSchedule, got, tt.want)
			}
		})
	}
}

func Test_onSchedule(t *testing.T) {
	now := time.Date(2021, 6, 15, 12, 0, 0, 0, time.UTC)
	today := time.Date(2021, 6, 15, 0, 0, 0, 0, time.UTC)
	yesterday := today.Add(-24 * time.Hour)
	tomorrow := today.Add(24 * time.Hour)

	tests := []struct {
		name string
		est  *time.Time
		want bool
	}{
		{"no estimate", nil, true},
		{"due today", &today, true},
		{"due tomorrow", &tomorrow, true},
		{"overdue", &yesterday, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := onSchedule(tt.est, now); got != tt.want {
				t.Errorf("onSchedule(%v) = %t, want %t", tt.est, got, tt.want)
			}
		})
	}
}
