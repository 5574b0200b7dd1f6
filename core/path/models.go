package path

import (
	"context"
	"time"
)

// Instantiation statuses; active and in_progress are "live".
const (
	StatusActive     = "active"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusAbandoned  = "abandoned"
)

// UserGoal statuses
const (
	GoalStatusNotStarted = "not_started"
	GoalStatusInProgress = "in_progress"
	GoalStatusCompleted  = "completed"
)

// PathTemplate is a reusable definition of a development journey.
type PathTemplate struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// TemplateGoal belongs to one PathTemplate; goals are iterated in Position order.
type TemplateGoal struct {
	ID         string `json:"id"`
	TemplateID string `json:"template_id"`
	Name       string `json:"name"`
	Position   int    `json:"position"`
}

// TemplateMilestone belongs to one TemplateGoal; OrderIndex defines sequence
// within the goal.
type TemplateMilestone struct {
	ID         string `json:"id"`
	GoalID     string `json:"goal_id"`
	Title      string `json:"title"`
	OrderIndex int    `json:"order_index"`
}

// MilestoneGate guards advancement past a milestone. A gate without a
// capability domain can never be met programmatically; it still counts
// toward the gate total.
type MilestoneGate struct {
	ID                 string  `json:"id"`
	MilestoneID        string  `json:"milestone_id"`
	CapabilityDomainID *string `json:"capability_domain_id"`
	MinScore           float64 `json:"min_score"`
}

// Instantiation is one user's live instance of a PathTemplate.
type Instantiation struct {
	ID                      string     `json:"id"`
	UserID                  string     `json:"user_id"`
	TemplateID              string     `json:"template_id"`
	Status                  string     `json:"status"`
	StartedAt               time.Time  `json:"started_at"` // UTC
	EstimatedCompletionDate *time.Time `json:"estimated_completion_date"`
}

func (inst Instantiation) IsLive() bool {
	return inst.Status == StatusActive || inst.Status == StatusInProgress
}

// UserGoal is a user's concrete instance of a TemplateGoal. A completed
// UserGoal for a (user, template goal) pair is the sole completion signal.
type UserGoal struct {
	ID             string    `json:"id"`
	UserID         string    `json:"user_id"`
	TemplateGoalID *string   `json:"template_goal_id"`
	Status         string    `json:"status"`
	UpdatedAt      time.Time `json:"updated_at"` // UTC
}

// Repository is the read-only surface the readiness computation folds over.
// All writes to these tables happen in other parts of the platform.
type Repository interface {
	QueryLiveInstantiations(ctx context.Context, userIDs []string) ([]Instantiation, error)
	QueryTemplatesByID(ctx context.Context, ids []string) ([]PathTemplate, error)
	// QueryTemplateGoals returns goals ordered by template then Position.
	QueryTemplateGoals(ctx context.Context, templateIDs []string) ([]TemplateGoal, error)
	// QueryTemplateMilestones returns milestones ordered by OrderIndex.
	QueryTemplateMilestones(ctx context.Context, goalIDs []string) ([]TemplateMilestone, error)
	QueryMilestoneGates(ctx context.Context, milestoneIDs []string) ([]MilestoneGate, error)
	// QueryUserGoals returns user goals that reference a template goal.
	QueryUserGoals(ctx context.Context, userIDs []string) ([]UserGoal, error)
}
