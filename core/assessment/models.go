package assessment

import (
	"context"
	"time"
)

// CapabilityDomain groups a set of assessment questions; scores are computed
// per domain as the mean of a user's most recent ratings for its questions.
type CapabilityDomain struct {
	ID        string               `json:"id"`
	Name      string               `json:"name"`
	Questions []CapabilityQuestion `json:"questions"`
}

type CapabilityQuestion struct {
	ID       string `json:"id"`
	DomainID string `json:"domain_id"`
	Prompt   string `json:"prompt"`
}

// CapabilityAssessment is a named self-assessment composed of domains.
type CapabilityAssessment struct {
	ID      string             `json:"id"`
	Name    string             `json:"name"`
	Domains []CapabilityDomain `json:"domains"`
}

// Rating is one answered question within a snapshot.
type Rating struct {
	QuestionID string `json:"question_id"`
	Value      int    `json:"value"`
}

// Snapshot is an immutable record of a completed self-assessment, carrying
// its per-question ratings and, transitively, the parent assessment's
// domains and questions.
type Snapshot struct {
	ID           string               `json:"id"`
	UserID       string               `json:"user_id"`
	AssessmentID string               `json:"assessment_id"`
	CompletedAt  time.Time            `json:"completed_at"` // UTC
	Ratings      []Rating             `json:"ratings"`
	Assessment   CapabilityAssessment `json:"assessment"`
}

// DomainScore computes the mean rating for the given domain within this
// snapshot. ok is false when the snapshot has no ratings for the domain's
// questions; such a domain is skipped, never scored zero.
func (s Snapshot) DomainScore(dom CapabilityDomain) (score float64, ok bool) {
	questions := make(map[string]bool, len(dom.Questions))
	for _, q := range dom.Questions {
		questions[q.ID] = true
	}

	var sum, n int
	for _, r := range s.Ratings {
		if questions[r.QuestionID] {
			sum += r.Value
			n++
		}
	}
	if n == 0 {
		return 0, false
	}
	return float64(sum) / float64(n), true
}

// Repository yields a user's most recent completed snapshots, newest first,
// bounded to limit, with nested ratings and assessment domains/questions.
type Repository interface {
	QueryRecentSnapshots(ctx context.Context, userID string, limit int) ([]Snapshot, error)
}
