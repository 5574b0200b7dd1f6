package program

import "time"

// Enrollment statuses
const (
	EnrollmentStatusActive    = "active"
	EnrollmentStatusPaused    = "paused"
	EnrollmentStatusCompleted = "completed"
	EnrollmentStatusWithdrawn = "withdrawn"
)

type Program struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"` // UTC
}

// Enrollment ties a client to a Program.
type Enrollment struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	ProgramID  string    `json:"program_id"`
	Status     string    `json:"status"`
	EnrolledAt time.Time `json:"enrolled_at"` // UTC
}

// StaffAssignment ties a staff member (coach or instructor) to a Program.
// The two kinds live in separate tables; Kind tells them apart in memory.
type StaffAssignment struct {
	ID        string `json:"id"`
	StaffID   string `json:"staff_id"`
	ProgramID string `json:"program_id"`
	Kind      string `json:"kind"` // "coach" | "instructor"
}

// Staff assignment kinds
const (
	StaffKindCoach      = "coach"
	StaffKindInstructor = "instructor"
)

// NewProgram contains information needed to create a new Program.
type NewProgram struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
}

// NewEnrollment enrolls a client into a Program.
type NewEnrollment struct {
	UserID    string `json:"user_id" validate:"required"`
	ProgramID string `json:"program_id" validate:"required"`
}
