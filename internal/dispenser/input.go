package dispenser

import (
	"encoding/json"
	"strings"
	"time"

	"dispenser-tracker-backend/internal/model"
)

// DispenserInput is the already-coerced payload of a create or update.
// On update, zero strings and nil pointers leave the stored value untouched.
type DispenserInput struct {
	Name        string
	SKU         string
	Description string
	TemplateID  string
	// ClientID decides the kind on create: empty makes a template.
	ClientID   string
	Location   string
	UniqueCode string
	// CurrentScheduleID set to "" detaches the schedule.
	CurrentScheduleID *string
	RefillCapacityML  *float64
	MLPerHour         *float64
	CurrentLevelML    *float64
	LastRefillDate    *time.Time
	InstallationDate  *time.Time
	FragranceCode     string
	Status            string
}

func (in *DispenserInput) normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.SKU = strings.TrimSpace(in.SKU)
	in.TemplateID = strings.TrimSpace(in.TemplateID)
	in.ClientID = strings.TrimSpace(in.ClientID)
	in.UniqueCode = strings.TrimSpace(in.UniqueCode)
	in.FragranceCode = strings.TrimSpace(in.FragranceCode)
	in.Status = strings.ToLower(strings.TrimSpace(in.Status))
	if in.CurrentScheduleID != nil {
		in.CurrentScheduleID = strPtr(strings.TrimSpace(*in.CurrentScheduleID))
	}
}

// Dispenser is either a catalog template or a physical instance.
type Dispenser struct {
	Template *model.MachineTemplate
	Instance *model.MachineInstance
}

// Kind values reported in the JSON form of a Dispenser.
const (
	KindTemplate = "template"
	KindInstance = "instance"
)

// ID returns the id of whichever record is set.
func (d *Dispenser) ID() string {
	if d.Template != nil {
		return d.Template.ID
	}
	if d.Instance != nil {
		return d.Instance.ID
	}
	return ""
}

// Kind reports whether d is a template or an instance.
func (d *Dispenser) Kind() string {
	if d.Template != nil {
		return KindTemplate
	}
	return KindInstance
}

// MarshalJSON flattens the wrapped record and adds a "kind" field.
func (d Dispenser) MarshalJSON() ([]byte, error) {
	if d.Template != nil {
		return json.Marshal(struct {
			*model.MachineTemplate
			Kind string `json:"kind"`
		}{d.Template, KindTemplate})
	}
	return json.Marshal(struct {
		*model.MachineInstance
		Kind string `json:"kind"`
	}{d.Instance, KindInstance})
}

// RefillInput is the already-coerced payload of a refill.
type RefillInput struct {
	TechnicianUsername string
	RefillAmountML     float64
	// LevelBeforeRefill and CurrentMLRefill are optional values captured by
	// the caller; negative values count as absent.
	LevelBeforeRefill *float64
	CurrentMLRefill   *float64
	FragranceCode     string
	Notes             string
	// Timestamp defaults to now.
	Timestamp *time.Time
}

// ScheduleInput is the payload of a schedule create or update.
type ScheduleInput struct {
	Name            string
	Type            string
	TimeRanges      []model.ScheduleTimeRange
	Intervals       []model.ScheduleInterval
	DurationMinutes *int
	DailyCycles     *int
	MLPerHour       *float64
	DaysOfWeek      []int
}

// ClientInput is the payload of a client create or update.
type ClientInput struct {
	Name          string
	ContactPerson string
	Email         string
	Phone         string
	Address       string
}

// AssignmentInput schedules a technician visit.
type AssignmentInput struct {
	DispenserID        string
	TechnicianUsername string
	AssignedBy         string
	VisitDate          *time.Time
	TaskType           string
	Notes              string
}

// CompletionInput closes an assignment. Refill is recorded for refill tasks.
type CompletionInput struct {
	Notes  string
	Refill *RefillInput
}
