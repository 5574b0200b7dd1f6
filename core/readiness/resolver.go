package readiness

import (
	"context"
	"time"

	"github.com/trezcool/ubora/core/path"
)

type goalKey struct {
	userID         string
	templateGoalID string
}

// pathIndex turns the flat template/goal/milestone/gate result sets into
// nested lookups, built once per invocation, so the per-instantiation fold
// never re-queries.
type pathIndex struct {
	templateNames    map[string]string
	goalsByTemplate  map[string][]path.TemplateGoal
	milestonesByGoal map[string][]path.TemplateMilestone
	gatesByMilestone map[string][]path.MilestoneGate
	completedGoals   map[goalKey]bool
	lastProgress     map[string]time.Time
}

// buildPathIndex fetches the full goals -> milestones -> gates hierarchy for
// the templates in play, plus the users' own goal records, and indexes them
// by foreign id.
func (svc *Service) buildPathIndex(ctx context.Context, userIDs []string, insts []path.Instantiation) (*pathIndex, error) {
	templateIDs := make([]string, 0, len(insts))
	seenTemplates := make(map[string]bool, len(insts))
	for _, inst := range insts {
		if !seenTemplates[inst.TemplateID] {
			seenTemplates[inst.TemplateID] = true
			templateIDs = append(templateIDs, inst.TemplateID)
		}
	}

	templates, err := svc.paths.QueryTemplatesByID(ctx, templateIDs)
	if err != nil {
		return nil, err
	}

	goals, err := svc.paths.QueryTemplateGoals(ctx, templateIDs)
	if err != nil {
		return nil, err
	}
	goalIDs := make([]string, 0, len(goals))
	for _, g := range goals {
		goalIDs = append(goalIDs, g.ID)
	}

	milestones, err := svc.paths.QueryTemplateMilestones(ctx, goalIDs)
	if err != nil {
		return nil, err
	}
	milestoneIDs := make([]string, 0, len(milestones))
	for _, ms := range milestones {
		milestoneIDs = append(milestoneIDs, ms.ID)
	}

	gates, err := svc.paths.QueryMilestoneGates(ctx, milestoneIDs)
	if err != nil {
		return nil, err
	}

	userGoals, err := svc.paths.QueryUserGoals(ctx, userIDs)
	if err != nil {
		return nil, err
	}

	idx := &pathIndex{
		templateNames:    make(map[string]string, len(templates)),
		goalsByTemplate:  make(map[string][]path.TemplateGoal, len(templateIDs)),
		milestonesByGoal: make(map[string][]path.TemplateMilestone, len(goalIDs)),
		gatesByMilestone: make(map[string][]path.MilestoneGate, len(milestoneIDs)),
		completedGoals:   make(map[goalKey]bool),
		lastProgress:     make(map[string]time.Time),
	}
	for _, tpl := range templates {
		idx.templateNames[tpl.ID] = tpl.Name
	}
	for _, g := range goals {
		idx.goalsByTemplate[g.TemplateID] = append(idx.goalsByTemplate[g.TemplateID], g)
	}
	for _, ms := range milestones {
		idx.milestonesByGoal[ms.GoalID] = append(idx.milestonesByGoal[ms.GoalID], ms)
	}
	for _, gate := range gates {
		idx.gatesByMilestone[gate.MilestoneID] = append(idx.gatesByMilestone[gate.MilestoneID], gate)
	}
	for _, ug := range userGoals {
		if ug.TemplateGoalID == nil {
			continue
		}
		if ug.Status == path.GoalStatusCompleted {
			idx.completedGoals[goalKey{ug.UserID, *ug.TemplateGoalID}] = true
		}
		if ug.Status == path.GoalStatusCompleted || ug.Status == path.GoalStatusInProgress {
			if ug.UpdatedAt.After(idx.lastProgress[ug.UserID]) {
				idx.lastProgress[ug.UserID] = ug.UpdatedAt
			}
		}
	}
	return idx, nil
}

// resolve walks an instantiation's template in goal order, accumulating every
// milestone's gates, and surfaces the first milestone of the first goal the
// user has not completed. Later incomplete goals are not inspected for the
// title; only the first is advertised.
func (idx *pathIndex) resolve(inst path.Instantiation) (gates []path.MilestoneGate, currentMilestoneTitle string) {
	var found bool
	for _, goal := range idx.goalsByTemplate[inst.TemplateID] {
		milestones := idx.milestonesByGoal[goal.ID]
		for _, ms := range milestones {
			gates = append(gates, idx.gatesByMilestone[ms.ID]...)
		}
		if !found && !idx.completedGoals[goalKey{inst.UserID, goal.ID}] {
			found = true
			if len(milestones) > 0 {
				currentMilestoneTitle = milestones[0].Title
			}
		}
	}
	return gates, currentMilestoneTitle
}

// daysSinceLastProgress returns nil when the user has never touched a goal.
func (idx *pathIndex) daysSinceLastProgress(userID string, now time.Time) *int {
	last, ok := idx.lastProgress[userID]
	if !ok {
		return nil
	}
	days := int(now.Sub(last).Hours() / 24)
	return &days
}
