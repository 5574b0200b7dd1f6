package tests

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/trezcool/ubora/core/assessment"
	"github.com/trezcool/ubora/core/path"
	"github.com/trezcool/ubora/core/program"
	"github.com/trezcool/ubora/core/readiness"
	"github.com/trezcool/ubora/core/user"
)

// seedClientPath enrolls usr into a fresh program overseen by coach and puts
// them on a live two-goal path: "Foundations" (completed 5 days ago) and
// "Execution", whose "Design brief" milestone is gated on domain dom1 >= 3.
// A recent snapshot rates dom1 at 4, so the single gate is met.
func seedClientPath(t *testing.T, app *testApp, coach, usr user.User) {
	t.Helper()
	ctx := context.Background()
	now := time.Now().UTC()

	prog, err := app.progSvc.Create(ctx, program.NewProgram{Name: "Leadership Accelerator"})
	if err != nil {
		t.Fatalf("Create() failed, %v", err)
	}
	if _, err = app.progSvc.AssignCoach(ctx, coach.ID, prog.ID); err != nil {
		t.Fatalf("AssignCoach() failed, %v", err)
	}
	if _, err = app.progSvc.Enroll(ctx, program.NewEnrollment{UserID: usr.ID, ProgramID: prog.ID}); err != nil {
		t.Fatalf("Enroll() failed, %v", err)
	}

	tpl := app.db.AddPathTemplate(path.PathTemplate{Name: "Emerging Leader"})
	g1 := app.db.AddTemplateGoal(path.TemplateGoal{TemplateID: tpl.ID, Name: "Foundations", Position: 1})
	g2 := app.db.AddTemplateGoal(path.TemplateGoal{TemplateID: tpl.ID, Name: "Execution", Position: 2})
	app.db.AddTemplateMilestone(path.TemplateMilestone{GoalID: g1.ID, Title: "Kickoff session", OrderIndex: 1})
	m2 := app.db.AddTemplateMilestone(path.TemplateMilestone{GoalID: g2.ID, Title: "Design brief", OrderIndex: 1})
	dom1 := "dom1"
	app.db.AddMilestoneGate(path.MilestoneGate{MilestoneID: m2.ID, CapabilityDomainID: &dom1, MinScore: 3})

	app.db.AddInstantiation(path.Instantiation{
		UserID:     usr.ID,
		TemplateID: tpl.ID,
		Status:     path.StatusActive,
		StartedAt:  now.AddDate(0, 0, -10),
	})
	app.db.AddUserGoal(path.UserGoal{
		UserID:         usr.ID,
		TemplateGoalID: &g1.ID,
		Status:         path.GoalStatusCompleted,
		UpdatedAt:      now.AddDate(0, 0, -5),
	})

	app.db.AddSnapshot(assessment.Snapshot{
		UserID:       usr.ID,
		AssessmentID: "asm1",
		CompletedAt:  now.AddDate(0, 0, -2),
		Ratings:      []assessment.Rating{{QuestionID: "q1", Value: 4}, {QuestionID: "q2", Value: 4}},
		Assessment: assessment.CapabilityAssessment{
			ID:   "asm1",
			Name: "Leadership Capability Check",
			Domains: []assessment.CapabilityDomain{
				{
					ID:   dom1,
					Name: "Strategic Thinking",
					Questions: []assessment.CapabilityQuestion{
						{ID: "q1", DomainID: dom1},
						{ID: "q2", DomainID: dom1},
					},
				},
			},
		},
	})
}

func Test_readinessApi_coachDashboard(t *testing.T) {
	app := setup(t)

	coach := app.createUser(t, "Coach", "LePassword", user.CoachRoles)
	client := app.createUser(t, "Alice", "LePassword", user.ClientRoles)
	seedClientPath(t, app, coach, client)

	tests := []httpTest{
		{
			name:     "anonymous",
			wantCode: http.StatusUnauthorized,
			wantData: marchallObj(t, errMissingToken),
		},
		{
			name:     "client is forbidden",
			token:    app.getToken(t, client),
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodGet, "/v1/readiness/clients", tt.token)
			app.server.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	t.Run("coach sees enrolled client", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/readiness/clients", app.getToken(t, coach))
		app.server.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("code = %d, want 200; body: %s", rec.Code, rec.Body.String())
		}
		var rows []readiness.ClientReadiness
		if err := json.Unmarshal(rec.Body.Bytes(), &rows); err != nil {
			t.Fatalf("unmarshalling response: %v", err)
		}
		if len(rows) != 1 {
			t.Fatalf("len(rows) = %d, want 1; body: %s", len(rows), rec.Body.String())
		}

		row := rows[0]
		if row.UserID != client.ID || row.UserName != client.Name {
			t.Errorf("user = %q (%s), want %q (%s)", row.UserName, row.UserID, client.Name, client.ID)
		}
		if row.ProgramName != "Leadership Accelerator" {
			t.Errorf("ProgramName = %q", row.ProgramName)
		}
		if row.PathName != "Emerging Leader" {
			t.Errorf("PathName = %q", row.PathName)
		}
		if row.TotalGates != 1 || row.MetGates != 1 || row.ReadinessPercent != 100 {
			t.Errorf("gates = %d/%d (%d%%), want 1/1 (100%%)", row.MetGates, row.TotalGates, row.ReadinessPercent)
		}
		if row.CurrentMilestoneTitle != "Design brief" {
			t.Errorf("CurrentMilestoneTitle = %q, want %q", row.CurrentMilestoneTitle, "Design brief")
		}
		if row.AlertLevel != readiness.AlertGreen {
			t.Errorf("AlertLevel = %q, want %q", row.AlertLevel, readiness.AlertGreen)
		}
		if row.DaysSinceLastProgress == nil || *row.DaysSinceLastProgress != 5 {
			t.Errorf("DaysSinceLastProgress = %v, want 5", row.DaysSinceLastProgress)
		}
	})

	t.Run("coach with no clients gets an empty list", func(t *testing.T) {
		idle := app.createUser(t, "Idle", "LePassword", user.CoachRoles)
		req, rec := newAuthRequest(http.MethodGet, "/v1/readiness/clients", app.getToken(t, idle))
		app.server.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("code = %d, want 200; body: %s", rec.Code, rec.Body.String())
		}
		if body := rec.Body.String(); body != "[]\n" && body != "[]" {
			t.Errorf("body = %q, want an empty list", body)
		}
	})
}

func Test_readinessApi_me(t *testing.T) {
	app := setup(t)

	coach := app.createUser(t, "Coach", "LePassword", user.CoachRoles)
	client := app.createUser(t, "Alice", "LePassword", user.ClientRoles)
	seedClientPath(t, app, coach, client)

	t.Run("anonymous", func(t *testing.T) {
		tt := httpTest{wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)}
		req, rec := newRequest(http.MethodGet, "/v1/readiness/me")
		app.server.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})

	t.Run("client sees own readiness", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/readiness/me", app.getToken(t, client))
		app.server.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("code = %d, want 200; body: %s", rec.Code, rec.Body.String())
		}
		var rows []readiness.ClientReadiness
		if err := json.Unmarshal(rec.Body.Bytes(), &rows); err != nil {
			t.Fatalf("unmarshalling response: %v", err)
		}
		if len(rows) != 1 {
			t.Fatalf("len(rows) = %d, want 1; body: %s", len(rows), rec.Body.String())
		}
		if rows[0].AlertLevel != readiness.AlertGreen {
			t.Errorf("AlertLevel = %q, want %q", rows[0].AlertLevel, readiness.AlertGreen)
		}
	})
}
