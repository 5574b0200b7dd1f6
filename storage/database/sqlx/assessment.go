package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/ubora/core/assessment"
)

// assessmentRepository reads completed capability snapshots with their
// nested ratings and assessment domains/questions. Like the browser client
// it replaces, it pulls flat result sets and nests them in memory.
type assessmentRepository struct {
	db *sqlx.DB
}

var _ assessment.Repository = (*assessmentRepository)(nil) // interface compliance check

func NewAssessmentRepository(db *sqlx.DB) *assessmentRepository {
	return &assessmentRepository{db: db}
}

type snapshotRow struct {
	ID             string    `db:"id"`
	UserID         string    `db:"user_id"`
	AssessmentID   string    `db:"assessment_id"`
	AssessmentName string    `db:"assessment_name"`
	CompletedAt    time.Time `db:"completed_at"`
}

type ratingRow struct {
	SnapshotID string `db:"snapshot_id"`
	QuestionID string `db:"question_id"`
	Value      int    `db:"value"`
}

type domainRow struct {
	AssessmentID string `db:"assessment_id"`
	ID           string `db:"id"`
	Name         string `db:"name"`
}

type questionRow struct {
	ID       string `db:"id"`
	DomainID string `db:"domain_id"`
	Prompt   string `db:"prompt"`
}

func (repo assessmentRepository) QueryRecentSnapshots(ctx context.Context, userID string, limit int) ([]assessment.Snapshot, error) {
	var snapRows []snapshotRow
	err := repo.db.SelectContext(ctx, &snapRows, `
		SELECT s.id, s.user_id, s.assessment_id, s.completed_at, a.name AS assessment_name
		FROM capability_snapshot s
		JOIN capability_assessment a ON a.id = s.assessment_id
		WHERE s.user_id = $1 AND s.completed_at IS NOT NULL
		ORDER BY s.completed_at DESC
		LIMIT $2`,
		userID, limit,
	)
	if err != nil {
		return nil, errors.Wrap(err, "querying snapshots")
	}
	if len(snapRows) == 0 {
		return []assessment.Snapshot{}, nil
	}

	snapshotIDs := make([]string, 0, len(snapRows))
	assessmentIDs := make([]string, 0, len(snapRows))
	seenAssessments := make(map[string]bool, len(snapRows))
	for _, row := range snapRows {
		snapshotIDs = append(snapshotIDs, row.ID)
		if !seenAssessments[row.AssessmentID] {
			seenAssessments[row.AssessmentID] = true
			assessmentIDs = append(assessmentIDs, row.AssessmentID)
		}
	}

	ratingsBySnapshot, err := repo.queryRatings(ctx, snapshotIDs)
	if err != nil {
		return nil, err
	}
	domainsByAssessment, err := repo.queryDomains(ctx, assessmentIDs)
	if err != nil {
		return nil, err
	}

	snaps := make([]assessment.Snapshot, 0, len(snapRows))
	for _, row := range snapRows {
		snaps = append(snaps, assessment.Snapshot{
			ID:           row.ID,
			UserID:       row.UserID,
			AssessmentID: row.AssessmentID,
			CompletedAt:  row.CompletedAt,
			Ratings:      ratingsBySnapshot[row.ID],
			Assessment: assessment.CapabilityAssessment{
				ID:      row.AssessmentID,
				Name:    row.AssessmentName,
				Domains: domainsByAssessment[row.AssessmentID],
			},
		})
	}
	return snaps, nil
}

func (repo assessmentRepository) queryRatings(ctx context.Context, snapshotIDs []string) (map[string][]assessment.Rating, error) {
	query, args, err := sqlx.In(`SELECT snapshot_id, question_id, value FROM snapshot_rating WHERE snapshot_id IN (?)`, snapshotIDs)
	if err != nil {
		return nil, errors.Wrap(err, "expanding query")
	}
	var rows []ratingRow
	if err = repo.db.SelectContext(ctx, &rows, repo.db.Rebind(query), args...); err != nil {
		return nil, errors.Wrap(err, "querying ratings")
	}

	ratings := make(map[string][]assessment.Rating, len(snapshotIDs))
	for _, row := range rows {
		ratings[row.SnapshotID] = append(ratings[row.SnapshotID], assessment.Rating{
			QuestionID: row.QuestionID,
			Value:      row.Value,
		})
	}
	return ratings, nil
}

func (repo assessmentRepository) queryDomains(ctx context.Context, assessmentIDs []string) (map[string][]assessment.CapabilityDomain, error) {
	query, args, err := sqlx.In(`
		SELECT ad.assessment_id, d.id, d.name
		FROM assessment_domain ad
		JOIN capability_domain d ON d.id = ad.domain_id
		WHERE ad.assessment_id IN (?)`,
		assessmentIDs,
	)
	if err != nil {
		return nil, errors.Wrap(err, "expanding query")
	}
	var domRows []domainRow
	if err = repo.db.SelectContext(ctx, &domRows, repo.db.Rebind(query), args...); err != nil {
		return nil, errors.Wrap(err, "querying domains")
	}
	if len(domRows) == 0 {
		return map[string][]assessment.CapabilityDomain{}, nil
	}

	domainIDs := make([]string, 0, len(domRows))
	seen := make(map[string]bool, len(domRows))
	for _, row := range domRows {
		if !seen[row.ID] {
			seen[row.ID] = true
			domainIDs = append(domainIDs, row.ID)
		}
	}

	query, args, err = sqlx.In(`SELECT id, domain_id, prompt FROM capability_question WHERE domain_id IN (?)`, domainIDs)
	if err != nil {
		return nil, errors.Wrap(err, "expanding query")
	}
	var qRows []questionRow
	if err = repo.db.SelectContext(ctx, &qRows, repo.db.Rebind(query), args...); err != nil {
		return nil, errors.Wrap(err, "querying questions")
	}
	questionsByDomain := make(map[string][]assessment.CapabilityQuestion, len(domainIDs))
	for _, row := range qRows {
		questionsByDomain[row.DomainID] = append(questionsByDomain[row.DomainID], assessment.CapabilityQuestion(row))
	}

	domains := make(map[string][]assessment.CapabilityDomain, len(assessmentIDs))
	for _, row := range domRows {
		domains[row.AssessmentID] = append(domains[row.AssessmentID], assessment.CapabilityDomain{
			ID:        row.ID,
			Name:      row.Name,
			Questions: questionsByDomain[row.ID],
		})
	}
	return domains, nil
}
