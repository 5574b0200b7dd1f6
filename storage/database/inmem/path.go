package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/ubora/core/path"
)

type pathRepository struct {
	db *pathTables
}

var _ path.Repository = (*pathRepository)(nil) // interface compliance check

func NewPathRepository(db *DB) path.Repository {
	return &pathRepository{db: db.path}
}

func (repo *pathRepository) QueryLiveInstantiations(_ context.Context, userIDs []string) ([]path.Instantiation, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	wanted := make(map[string]bool, len(userIDs))
	for _, id := range userIDs {
		wanted[id] = true
	}

	insts := make([]path.Instantiation, 0)
	for _, inst := range repo.db.instantiations {
		if inst.IsLive() && wanted[inst.UserID] {
			insts = append(insts, inst)
		}
	}
	return insts, nil
}

func (repo *pathRepository) QueryTemplatesByID(_ context.Context, ids []string) ([]path.PathTemplate, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	tpls := make([]path.PathTemplate, 0, len(ids))
	for _, id := range ids {
		if tpl, ok := repo.db.templates[id]; ok {
			tpls = append(tpls, tpl)
		}
	}
	return tpls, nil
}

func (repo *pathRepository) QueryTemplateGoals(_ context.Context, templateIDs []string) ([]path.TemplateGoal, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	wanted := make(map[string]bool, len(templateIDs))
	for _, id := range templateIDs {
		wanted[id] = true
	}

	goals := make([]path.TemplateGoal, 0)
	for _, goal := range repo.db.goals {
		if wanted[goal.TemplateID] {
			goals = append(goals, goal)
		}
	}
	sort.Slice(goals, func(i, j int) bool {
		if goals[i].TemplateID != goals[j].TemplateID {
			return goals[i].TemplateID < goals[j].TemplateID
		}
		return goals[i].Position < goals[j].Position
	})
	return goals, nil
}

func (repo *pathRepository) QueryTemplateMilestones(_ context.Context, goalIDs []string) ([]path.TemplateMilestone, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	wanted := make(map[string]bool, len(goalIDs))
	for _, id := range goalIDs {
		wanted[id] = true
	}

	milestones := make([]path.TemplateMilestone, 0)
	for _, ms := range repo.db.milestones {
		if wanted[ms.GoalID] {
			milestones = append(milestones, ms)
		}
	}
	sort.Slice(milestones, func(i, j int) bool {
		if milestones[i].GoalID != milestones[j].GoalID {
			return milestones[i].GoalID < milestones[j].GoalID
		}
		return milestones[i].OrderIndex < milestones[j].OrderIndex
	})
	return milestones, nil
}

func (repo *pathRepository) QueryMilestoneGates(_ context.Context, milestoneIDs []string) ([]path.MilestoneGate, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	wanted := make(map[string]bool, len(milestoneIDs))
	for _, id := range milestoneIDs {
		wanted[id] = true
	}

	gates := make([]path.MilestoneGate, 0)
	for _, gate := range repo.db.gates {
		if wanted[gate.MilestoneID] {
			gates = append(gates, gate)
		}
	}
	return gates, nil
}

func (repo *pathRepository) QueryUserGoals(_ context.Context, userIDs []string) ([]path.UserGoal, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	wanted := make(map[string]bool, len(userIDs))
	for _, id := range userIDs {
		wanted[id] = true
	}

	userGoals := make([]path.UserGoal, 0)
	for _, ug := range repo.db.userGoals {
		if ug.TemplateGoalID != nil && wanted[ug.UserID] {
			userGoals = append(userGoals, ug)
		}
	}
	return userGoals, nil
}
