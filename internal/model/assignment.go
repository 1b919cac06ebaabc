package model

import "time"

// AssignmentStatus tracks a technician visit.
type AssignmentStatus string

const (
	AssignmentPending   AssignmentStatus = "pending"
	AssignmentCompleted AssignmentStatus = "completed"
)

// TaskType is the kind of work a technician is sent to do.
type TaskType string

const (
	TaskRefill       TaskType = "refill"
	TaskMaintenance  TaskType = "maintenance"
	TaskInstallation TaskType = "installation"
)

// TechnicianAssignment schedules a technician visit to a dispenser.
type TechnicianAssignment struct {
	ID                 string           `gorm:"primaryKey;size:64" json:"id"`
	DispenserID        string           `gorm:"index;size:64" json:"dispenser_id"`
	TechnicianUsername string           `gorm:"index;size:128;not null" json:"technician_username"`
	AssignedBy         string           `gorm:"size:128" json:"assigned_by"`
	AssignedDate       time.Time        `gorm:"not null" json:"assigned_date"`
	VisitDate          *time.Time       `json:"visit_date"`
	Status             AssignmentStatus `gorm:"size:32;index;not null" json:"status"`
	TaskType           TaskType         `gorm:"size:32;not null" json:"task_type"`
	Notes              string           `gorm:"type:text" json:"notes"`
	CompletedDate      *time.Time       `json:"completed_date"`
	RefillLogID        *string          `gorm:"size:128" json:"refill_log_id,omitempty"`
}
