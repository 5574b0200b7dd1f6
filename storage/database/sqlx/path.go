package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/ubora/core/path"
)

// pathRepository is read-only: path templates, instantiations and user goals
// are written by other parts of the platform.
type pathRepository struct {
	db *sqlx.DB
}

var _ path.Repository = (*pathRepository)(nil) // interface compliance check

func NewPathRepository(db *sqlx.DB) *pathRepository {
	return &pathRepository{db: db}
}

type templateRow struct {
	ID   string `db:"id"`
	Name string `db:"name"`
}

type templateGoalRow struct {
	ID         string `db:"id"`
	TemplateID string `db:"template_id"`
	Name       string `db:"name"`
	Position   int    `db:"position"`
}

type templateMilestoneRow struct {
	ID         string `db:"id"`
	GoalID     string `db:"goal_id"`
	Title      string `db:"title"`
	OrderIndex int    `db:"order_index"`
}

type milestoneGateRow struct {
	ID                 string      `db:"id"`
	MilestoneID        string      `db:"milestone_id"`
	CapabilityDomainID null.String `db:"capability_domain_id"`
	MinScore           float64     `db:"min_score"`
}

type instantiationRow struct {
	ID                      string    `db:"id"`
	UserID                  string    `db:"user_id"`
	TemplateID              string    `db:"template_id"`
	Status                  string    `db:"status"`
	StartedAt               time.Time `db:"started_at"`
	EstimatedCompletionDate null.Time `db:"estimated_completion_date"`
}

type userGoalRow struct {
	ID             string      `db:"id"`
	UserID         string      `db:"user_id"`
	TemplateGoalID null.String `db:"template_goal_id"`
	Status         string      `db:"status"`
	UpdatedAt      time.Time   `db:"updated_at"`
}

func (repo pathRepository) QueryLiveInstantiations(ctx context.Context, userIDs []string) ([]path.Instantiation, error) {
	if len(userIDs) == 0 {
		return []path.Instantiation{}, nil
	}
	query, args, err := sqlx.In(
		`SELECT * FROM path_instantiation WHERE status IN (?) AND user_id IN (?) ORDER BY started_at`,
		[]string{path.StatusActive, path.StatusInProgress}, userIDs,
	)
	if err != nil {
		return nil, errors.Wrap(err, "expanding query")
	}
	var rows []instantiationRow
	if err = repo.db.SelectContext(ctx, &rows, repo.db.Rebind(query), args...); err != nil {
		return nil, errors.Wrap(err, "querying instantiations")
	}

	insts := make([]path.Instantiation, 0, len(rows))
	for _, row := range rows {
		insts = append(insts, path.Instantiation{
			ID:                      row.ID,
			UserID:                  row.UserID,
			TemplateID:              row.TemplateID,
			Status:                  row.Status,
			StartedAt:               row.StartedAt,
			EstimatedCompletionDate: timePtr(row.EstimatedCompletionDate),
		})
	}
	return insts, nil
}

func (repo pathRepository) QueryTemplatesByID(ctx context.Context, ids []string) ([]path.PathTemplate, error) {
	if len(ids) == 0 {
		return []path.PathTemplate{}, nil
	}
	query, args, err := sqlx.In(`SELECT * FROM path_template WHERE id IN (?)`, ids)
	if err != nil {
		return nil, errors.Wrap(err, "expanding query")
	}
	var rows []templateRow
	if err = repo.db.SelectContext(ctx, &rows, repo.db.Rebind(query), args...); err != nil {
		return nil, errors.Wrap(err, "querying path templates")
	}
	tpls := make([]path.PathTemplate, 0, len(rows))
	for _, row := range rows {
		tpls = append(tpls, path.PathTemplate(row))
	}
	return tpls, nil
}

func (repo pathRepository) QueryTemplateGoals(ctx context.Context, templateIDs []string) ([]path.TemplateGoal, error) {
	if len(templateIDs) == 0 {
		return []path.TemplateGoal{}, nil
	}
	query, args, err := sqlx.In(
		`SELECT * FROM template_goal WHERE template_id IN (?) ORDER BY template_id, position`, templateIDs,
	)
	if err != nil {
		return nil, errors.Wrap(err, "expanding query")
	}
	var rows []templateGoalRow
	if err = repo.db.SelectContext(ctx, &rows, repo.db.Rebind(query), args...); err != nil {
		return nil, errors.Wrap(err, "querying template goals")
	}
	goals := make([]path.TemplateGoal, 0, len(rows))
	for _, row := range rows {
		goals = append(goals, path.TemplateGoal(row))
	}
	return goals, nil
}

func (repo pathRepository) QueryTemplateMilestones(ctx context.Context, goalIDs []string) ([]path.TemplateMilestone, error) {
	if len(goalIDs) == 0 {
		return []path.TemplateMilestone{}, nil
	}
	query, args, err := sqlx.In(
		`SELECT * FROM template_milestone WHERE goal_id IN (?) ORDER BY goal_id, order_index`, goalIDs,
	)
	if err != nil {
		return nil, errors.Wrap(err, "expanding query")
	}
	var rows []templateMilestoneRow
	if err = repo.db.SelectContext(ctx, &rows, repo.db.Rebind(query), args...); err != nil {
		return nil, errors.Wrap(err, "querying template milestones")
	}
	milestones := make([]path.TemplateMilestone, 0, len(rows))
	for _, row := range rows {
		milestones = append(milestones, path.TemplateMilestone(row))
	}
	return milestones, nil
}

func (repo pathRepository) QueryMilestoneGates(ctx context.Context, milestoneIDs []string) ([]path.MilestoneGate, error) {
	if len(milestoneIDs) == 0 {
		return []path.MilestoneGate{}, nil
	}
	query, args, err := sqlx.In(`SELECT * FROM milestone_gate WHERE milestone_id IN (?)`, milestoneIDs)
	if err != nil {
		return nil, errors.Wrap(err, "expanding query")
	}
	var rows []milestoneGateRow
	if err = repo.db.SelectContext(ctx, &rows, repo.db.Rebind(query), args...); err != nil {
		return nil, errors.Wrap(err, "querying milestone gates")
	}
	gates := make([]path.MilestoneGate, 0, len(rows))
	for _, row := range rows {
		gates = append(gates, path.MilestoneGate{
			ID:                 row.ID,
			MilestoneID:        row.MilestoneID,
			CapabilityDomainID: strPtr(row.CapabilityDomainID),
			MinScore:           row.MinScore,
		})
	}
	return gates, nil
}

func (repo pathRepository) QueryUserGoals(ctx context.Context, userIDs []string) ([]path.UserGoal, error) {
	if len(userIDs) == 0 {
		return []path.UserGoal{}, nil
	}
	query, args, err := sqlx.In(
		`SELECT * FROM user_goal WHERE template_goal_id IS NOT NULL AND user_id IN (?)`, userIDs,
	)
	if err != nil {
		return nil, errors.Wrap(err, "expanding query")
	}
	var rows []userGoalRow
	if err = repo.db.SelectContext(ctx, &rows, repo.db.Rebind(query), args...); err != nil {
		return nil, errors.Wrap(err, "querying user goals")
	}
	goals := make([]path.UserGoal, 0, len(rows))
	for _, row := range rows {
		goals = append(goals, path.UserGoal{
			ID:             row.ID,
			UserID:         row.UserID,
			TemplateGoalID: strPtr(row.TemplateGoalID),
			Status:         row.Status,
			UpdatedAt:      row.UpdatedAt,
		})
	}
	return goals, nil
}

func strPtr(s null.String) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}

func timePtr(t null.Time) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}
