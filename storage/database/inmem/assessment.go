package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/ubora/core/assessment"
)

type assessmentRepository struct {
	db *assessmentTable
}

var _ assessment.Repository = (*assessmentRepository)(nil) // interface compliance check

func NewAssessmentRepository(db *DB) assessment.Repository {
	return &assessmentRepository{db: db.assessment}
}

func (repo *assessmentRepository) QueryRecentSnapshots(_ context.Context, userID string, limit int) ([]assessment.Snapshot, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	snaps := make([]assessment.Snapshot, 0)
	for _, snap := range repo.db.snapshots {
		if snap.UserID == userID && !snap.CompletedAt.IsZero() {
			snaps = append(snaps, snap)
		}
	}
	// newest first
	sort.Slice(snaps, func(i, j int) bool { return snaps[i].CompletedAt.After(snaps[j].CompletedAt) })
	if len(snaps) > limit {
		snaps = snaps[:limit]
	}
	return snaps, nil
}
