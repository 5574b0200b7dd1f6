package readiness

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/trezcool/ubora/core/assessment"
	"github.com/trezcool/ubora/core/path"
)

type fakeAssessmentRepo struct {
	snaps map[string][]assessment.Snapshot
	calls int
}

func (repo *fakeAssessmentRepo) QueryRecentSnapshots(_ context.Context, userID string, limit int) ([]assessment.Snapshot, error) {
	repo.calls++
	snaps := repo.snaps[userID]
	if len(snaps) > limit {
		snaps = snaps[:limit]
	}
	return snaps, nil
}

// makeSnapshot builds a completed snapshot of one assessment whose domains
// each carry the given rating values, one question per value.
func makeSnapshot(assessmentID string, completedAt time.Time, domainRatings map[string][]int) assessment.Snapshot {
	snap := assessment.Snapshot{
		ID:           assessmentID + completedAt.String(),
		UserID:       "usr1",
		AssessmentID: assessmentID,
		CompletedAt:  completedAt,
		Assessment:   assessment.CapabilityAssessment{ID: assessmentID, Name: assessmentID},
	}
	for domID, values := range domainRatings {
		dom := assessment.CapabilityDomain{ID: domID, Name: domID}
		for i, val := range values {
			q := assessment.CapabilityQuestion{
				ID:       fmt.Sprintf("%s-%s-q%d", snap.ID, domID, i),
				DomainID: domID,
			}
			dom.Questions = append(dom.Questions, q)
			snap.Ratings = append(snap.Ratings, assessment.Rating{QuestionID: q.ID, Value: val})
		}
		snap.Assessment.Domains = append(snap.Assessment.Domains, dom)
	}
	return snap
}

func strPtr(s string) *string { return &s }

func Test_gateEvaluator_emptyGates(t *testing.T) {
	repo := &fakeAssessmentRepo{}
	ge := newGateEvaluator(repo, 10)

	status, err := ge.ComputeGateStatuses(context.Background(), nil, "usr1")
	if err != nil {
		t.Fatalf("ComputeGateStatuses() failed, %v", err)
	}
	if status.Met != 0 || status.Total != 0 {
		t.Errorf("status = %+v, want {0 0}", status)
	}
	if repo.calls != 0 {
		t.Errorf("repository was queried %d times for an empty gate list", repo.calls)
	}
	if got := status.Percent(); got != 100 {
		t.Errorf("Percent() = %d, want 100 for a gateless path", got)
	}
}

func Test_gateEvaluator_ComputeGateStatuses(t *testing.T) {
	now := time.Now().UTC()

	tests := []struct {
		name  string
		gates []path.MilestoneGate
		snaps []assessment.Snapshot
		want  GateStatus
	}{
		{
			name: "one met one unmet",
			gates: []path.MilestoneGate{
				{ID: "g1", CapabilityDomainID: strPtr("dom1"), MinScore: 3},
				{ID: "g2", CapabilityDomainID: strPtr("dom2"), MinScore: 4},
			},
			snaps: []assessment.Snapshot{
				makeSnapshot("asm1", now, map[string][]int{"dom1": {4, 4}, "dom2": {3, 3}}),
			},
			want: GateStatus{Met: 1, Total: 2},
		},
		{
			name: "score exactly at threshold is met",
			gates: []path.MilestoneGate{
				{ID: "g1", CapabilityDomainID: strPtr("dom1"), MinScore: 3},
			},
			snaps: []assessment.Snapshot{
				makeSnapshot("asm1", now, map[string][]int{"dom1": {3}}),
			},
			want: GateStatus{Met: 1, Total: 1},
		},
		{
			name: "no snapshots means nothing met",
			gates: []path.MilestoneGate{
				{ID: "g1", CapabilityDomainID: strPtr("dom1"), MinScore: 1},
			},
			want: GateStatus{Met: 0, Total: 1},
		},
		{
			name: "gate without domain counts toward total only",
			gates: []path.MilestoneGate{
				{ID: "g1", CapabilityDomainID: nil, MinScore: 0},
				{ID: "g2", CapabilityDomainID: strPtr("dom1"), MinScore: 3},
			},
			snaps: []assessment.Snapshot{
				makeSnapshot("asm1", now, map[string][]int{"dom1": {5}}),
			},
			want: GateStatus{Met: 1, Total: 2},
		},
		{
			name: "only latest attempt per assessment counts",
			gates: []path.MilestoneGate{
				{ID: "g1", CapabilityDomainID: strPtr("dom1"), MinScore: 4},
			},
			snaps: []assessment.Snapshot{
				// newest first; latest attempt scores 2, an older attempt scored 5
				makeSnapshot("asm1", now, map[string][]int{"dom1": {2}}),
				makeSnapshot("asm1", now.Add(-24*time.Hour), map[string][]int{"dom1": {5}}),
			},
			want: GateStatus{Met: 0, Total: 1},
		},
		{
			name: "distinct assessments both contribute",
			gates: []path.MilestoneGate{
				{ID: "g1", CapabilityDomainID: strPtr("dom1"), MinScore: 3},
				{ID: "g2", CapabilityDomainID: strPtr("dom2"), MinScore: 3},
			},
			snaps: []assessment.Snapshot{
				makeSnapshot("asm1", now, map[string][]int{"dom1": {4}}),
				makeSnapshot("asm2", now.Add(-time.Hour), map[string][]int{"dom2": {4}}),
			},
			want: GateStatus{Met: 2, Total: 2},
		},
		{
			name: "domain scored by most recent assessment that rates it",
			gates: []path.MilestoneGate{
				{ID: "g1", CapabilityDomainID: strPtr("dom1"), MinScore: 4},
			},
			snaps: []assessment.Snapshot{
				// the newer assessment rates dom1 below the bar; the older one
				// is a different assessment but dom1 is already scored
				makeSnapshot("asm1", now, map[string][]int{"dom1": {3}}),
				makeSnapshot("asm2", now.Add(-time.Hour), map[string][]int{"dom1": {5}}),
			},
			want: GateStatus{Met: 0, Total: 1},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &fakeAssessmentRepo{snaps: map[string][]assessment.Snapshot{"usr1": tt.snaps}}
			ge := newGateEvaluator(repo, 10)

			got, err := ge.ComputeGateStatuses(context.Background(), tt.gates, "usr1")
			if err != nil {
				t.Fatalf("ComputeGateStatuses() failed, %v", err)
			}
			if got != tt.want {
				t.Errorf("ComputeGateStatuses() = %+v, want %+v", got, tt.want)
			}
			if got.Met > got.Total {
				t.Errorf("Met %d exceeds Total %d", got.Met, got.Total)
			}
			if pct := got.Percent(); pct < 0 || pct > 100 {
				t.Errorf("Percent() = %d, out of bounds", pct)
			}
		})
	}
}

func Test_gateEvaluator_memoizesSnapshots(t *testing.T) {
	repo := &fakeAssessmentRepo{snaps: map[string][]assessment.Snapshot{
		"usr1": {makeSnapshot("asm1", time.Now().UTC(), map[string][]int{"dom1": {4}})},
	}}
	ge := newGateEvaluator(repo, 10)

	gates := []path.MilestoneGate{{ID: "g1", CapabilityDomainID: strPtr("dom1"), MinScore: 3}}
	for i := 0; i < 3; i++ {
		if _, err := ge.ComputeGateStatuses(context.Background(), gates, "usr1"); err != nil {
			t.Fatalf("ComputeGateStatuses() failed, %v", err)
		}
	}
	if repo.calls != 1 {
		t.Errorf("repository queried %d times, want 1", repo.calls)
	}
}

func TestGateStatus_Percent(t *testing.T) {
	tests := []struct {
		status GateStatus
		want   int
	}{
		{GateStatus{Met: 0, Total: 0}, 100},
		{GateStatus{Met: 0, Total: 3}, 0},
		{GateStatus{Met: 1, Total: 2}, 50},
		{GateStatus{Met: 1, Total: 3}, 33},
		{GateStatus{Met: 2, Total: 3}, 67},
		{GateStatus{Met: 3, Total: 3}, 100},
	}
	for _, tt := range tests {
		if got := tt.status.Percent(); got != tt.want {
			t.Errorf("%+v.Percent() = %d, want %d", tt.status, got, tt.want)
		}
	}
}
