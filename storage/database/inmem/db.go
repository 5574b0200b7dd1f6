package inmemdb

import (
	"sync"

	"github.com/google/uuid"

	"github.com/trezcool/ubora/core/assessment"
	"github.com/trezcool/ubora/core/path"
	"github.com/trezcool/ubora/core/program"
	"github.com/trezcool/ubora/core/user"
)

type (
	DB struct {
		user       *userTable
		program    *programTable
		path       *pathTables
		assessment *assessmentTable
	}

	userTable struct {
		sync.RWMutex
		table map[string]*user.User
	}

	programTable struct {
		sync.RWMutex
		programs              map[string]*program.Program
		enrollments           []program.Enrollment
		coachAssignments      []program.StaffAssignment
		instructorAssignments []program.StaffAssignment
	}

	// pathTables hold the read-only path data the readiness computation folds
	// over. The platform's other services write them; here tests seed them
	// through the Add* helpers on DB.
	pathTables struct {
		sync.RWMutex
		templates      map[string]path.PathTemplate
		goals          []path.TemplateGoal
		milestones     []path.TemplateMilestone
		gates          []path.MilestoneGate
		instantiations []path.Instantiation
		userGoals      []path.UserGoal
	}

	assessmentTable struct {
		sync.RWMutex
		snapshots []assessment.Snapshot
	}
)

func Open() (*DB, error) {
	db := &DB{
		user: &userTable{table: make(map[string]*user.User)},
		program: &programTable{
			programs: make(map[string]*program.Program),
		},
		path: &pathTables{
			templates: make(map[string]path.PathTemplate),
		},
		assessment: &assessmentTable{},
	}
	return db, nil
}

func newPK() string { return uuid.NewString() }

// Seed helpers for the read-only path and assessment tables.

func (db *DB) AddPathTemplate(tpl path.PathTemplate) path.PathTemplate {
	db.path.Lock()
	defer db.path.Unlock()
	if tpl.ID == "" {
		tpl.ID = newPK()
	}
	db.path.templates[tpl.ID] = tpl
	return tpl
}

func (db *DB) AddTemplateGoal(goal path.TemplateGoal) path.TemplateGoal {
	db.path.Lock()
	defer db.path.Unlock()
	if goal.ID == "" {
		goal.ID = newPK()
	}
	db.path.goals = append(db.path.goals, goal)
	return goal
}

func (db *DB) AddTemplateMilestone(ms path.TemplateMilestone) path.TemplateMilestone {
	db.path.Lock()
	defer db.path.Unlock()
	if ms.ID == "" {
		ms.ID = newPK()
	}
	db.path.milestones = append(db.path.milestones, ms)
	return ms
}

func (db *DB) AddMilestoneGate(gate path.MilestoneGate) path.MilestoneGate {
	db.path.Lock()
	defer db.path.Unlock()
	if gate.ID == "" {
		gate.ID = newPK()
	}
	db.path.gates = append(db.path.gates, gate)
	return gate
}

func (db *DB) AddInstantiation(inst path.Instantiation) path.Instantiation {
	db.path.Lock()
	defer db.path.Unlock()
	if inst.ID == "" {
		inst.ID = newPK()
	}
	db.path.instantiations = append(db.path.instantiations, inst)
	return inst
}

func (db *DB) AddUserGoal(ug path.UserGoal) path.UserGoal {
	db.path.Lock()
	defer db.path.Unlock()
	if ug.ID == "" {
		ug.ID = newPK()
	}
	db.path.userGoals = append(db.path.userGoals, ug)
	return ug
}

func (db *DB) AddSnapshot(snap assessment.Snapshot) assessment.Snapshot {
	db.assessment.Lock()
	defer db.assessment.Unlock()
	if snap.ID == "" {
		snap.ID = newPK()
	}
	db.assessment.snapshots = append(db.assessment.snapshots, snap)
	return snap
}
