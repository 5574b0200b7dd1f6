package readiness

import (
	"context"

	"github.com/trezcool/ubora/core/assessment"
	"github.com/trezcool/ubora/core/path"
)

// gateEvaluator computes gate satisfaction against a user's most recent
// completed capability snapshots. It memoizes snapshot fetches per user so a
// batched dashboard pass reads each user's history once.
type gateEvaluator struct {
	repo      assessment.Repository
	window    int
	snapshots map[string][]assessment.Snapshot
}

func newGateEvaluator(repo assessment.Repository, window int) *gateEvaluator {
	return &gateEvaluator{
		repo:      repo,
		window:    window,
		snapshots: make(map[string][]assessment.Snapshot),
	}
}

// ComputeGateStatuses reports how many of the given gates the user currently
// meets. An empty gate list returns {0,0} without touching the repository.
// Missing data (no snapshots, no ratings for a domain) means "not met",
// never an error.
func (ge *gateEvaluator) ComputeGateStatuses(ctx context.Context, gates []path.MilestoneGate, userID string) (GateStatus, error) {
	status := GateStatus{Total: len(gates)}
	if len(gates) == 0 {
		return status, nil
	}

	wanted := make(map[string]bool)
	for _, g := range gates {
		if g.CapabilityDomainID != nil {
			wanted[*g.CapabilityDomainID] = true
		}
	}

	snaps, err := ge.recentSnapshots(ctx, userID)
	if err != nil {
		return GateStatus{}, err
	}
	scores := domainScores(snaps, wanted)

	for _, g := range gates {
		if g.CapabilityDomainID == nil {
			continue // counted in Total only
		}
		if score, ok := scores[*g.CapabilityDomainID]; ok && score >= g.MinScore {
			status.Met++
		}
	}
	return status, nil
}

func (ge *gateEvaluator) recentSnapshots(ctx context.Context, userID string) ([]assessment.Snapshot, error) {
	if snaps, ok := ge.snapshots[userID]; ok {
		return snaps, nil
	}
	snaps, err := ge.repo.QueryRecentSnapshots(ctx, userID, ge.window)
	if err != nil {
		return nil, err
	}
	ge.snapshots[userID] = snaps
	return snaps, nil
}

// domainScores folds snapshots (newest first) into a per-domain score map.
// Only the first snapshot encountered per assessment counts: the current
// score is the latest completed attempt per assessment type. A domain's
// score, once recorded, is not overwritten by older snapshots.
func domainScores(snaps []assessment.Snapshot, wanted map[string]bool) map[string]float64 {
	seenAssessments := make(map[string]bool)
	scores := make(map[string]float64)

	for _, snap := range snaps {
		if seenAssessments[snap.AssessmentID] {
			continue
		}
		seenAssessments[snap.AssessmentID] = true

		for _, dom := range snap.Assessment.Domains {
			if !wanted[dom.ID] {
				continue
			}
			if _, ok := scores[dom.ID]; ok {
				continue
			}
			if score, ok := snap.DomainScore(dom); ok {
				scores[dom.ID] = score
			}
		}
	}
	return scores
}
