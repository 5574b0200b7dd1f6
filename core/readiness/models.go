package readiness

import (
	"math"
	"time"
)

// AlertLevel classifies how urgently a client's path needs attention.
type AlertLevel string

const (
	AlertRed     AlertLevel = "red"     // off schedule, progressing
	AlertStalled AlertLevel = "stalled" // no goal progress for too long
	AlertAmber   AlertLevel = "amber"   // on schedule, readiness below threshold
	AlertGreen   AlertLevel = "green"   // on schedule, ready to advance
)

// severity orders alert levels most-urgent-first for dashboard sorting.
var severity = map[AlertLevel]int{
	AlertRed:     0,
	AlertStalled: 1,
	AlertAmber:   2,
	AlertGreen:   3,
}

// GateStatus counts milestone gates met vs total for one user's path.
type GateStatus struct {
	Met   int `json:"met"`
	Total int `json:"total"`
}

// Percent is Met/Total rounded to the nearest integer; a path with no gates
// is fully ready by convention.
func (gs GateStatus) Percent() int {
	if gs.Total == 0 {
		return 100
	}
	return int(math.Round(float64(gs.Met) / float64(gs.Total) * 100))
}

// ClientReadiness is one row of the readiness dashboard: one client on one
// live path instantiation.
type ClientReadiness struct {
	UserID                string     `json:"user_id"`
	UserName              string     `json:"user_name"`
	EnrollmentID          string     `json:"enrollment_id"`
	ProgramName           string     `json:"program_name"`
	PathName              string     `json:"path_name"`
	InstantiationID       string     `json:"instantiation_id"`
	TotalGates            int        `json:"total_gates"`
	MetGates              int        `json:"met_gates"`
	ReadinessPercent      int        `json:"readiness_percent"`
	CurrentMilestoneTitle string     `json:"current_milestone_title,omitempty"`
	AlertLevel            AlertLevel `json:"alert_level"`
	// DaysSinceLastProgress is nil when the user has never progressed a goal;
	// such users always classify as stalled.
	DaysSinceLastProgress   *int       `json:"days_since_last_progress"`
	EstimatedCompletionDate *time.Time `json:"estimated_completion_date"`
	StartedAt               time.Time  `json:"started_at"`
}
