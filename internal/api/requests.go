package api

import (
	"encoding/json"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	"dispenser-tracker-backend/internal/dispenser"
	"dispenser-tracker-backend/internal/model"
	"dispenser-tracker-backend/internal/parse"
)

// Numeric fields arrive as numbers, numeric strings or garbage. Garbage is
// logged and treated as absent.

type dispenserRequest struct {
	Name              string           `json:"name"`
	SKU               string           `json:"sku"`
	Description       string           `json:"description"`
	TemplateID        string           `json:"template_id"`
	ClientID          string           `json:"client_id"`
	Location          string           `json:"location"`
	UniqueCode        string           `json:"unique_code"`
	CurrentScheduleID *string          `json:"current_schedule_id"`
	RefillCapacityML  parse.LooseFloat `json:"refill_capacity_ml"`
	MLPerHour         parse.LooseFloat `json:"ml_per_hour"`
	CurrentLevelML    parse.LooseFloat `json:"current_level_ml"`
	LastRefillDate    string           `json:"last_refill_date"`
	InstallationDate  string           `json:"installation_date"`
	FragranceCode     string           `json:"fragrance_code"`
	Status            string           `json:"status"`
}

func (h *Handler) dispenserInput(req dispenserRequest) dispenser.DispenserInput {
	return dispenser.DispenserInput{
		Name:              req.Name,
		SKU:               req.SKU,
		Description:       req.Description,
		TemplateID:        req.TemplateID,
		ClientID:          req.ClientID,
		Location:          req.Location,
		UniqueCode:        req.UniqueCode,
		CurrentScheduleID: req.CurrentScheduleID,
		RefillCapacityML:  h.number("refill_capacity_ml", req.RefillCapacityML),
		MLPerHour:         h.number("ml_per_hour", req.MLPerHour),
		CurrentLevelML:    h.number("current_level_ml", req.CurrentLevelML),
		LastRefillDate:    h.date("last_refill_date", req.LastRefillDate),
		InstallationDate:  h.date("installation_date", req.InstallationDate),
		FragranceCode:     req.FragranceCode,
		Status:            req.Status,
	}
}

type refillRequest struct {
	TechnicianUsername string           `json:"technician_username"`
	RefillAmountML     parse.LooseFloat `json:"refill_amount_ml"`
	LevelBeforeRefill  parse.LooseFloat `json:"level_before_refill"`
	CurrentMLRefill    parse.LooseFloat `json:"current_ml_refill"`
	FragranceCode      string           `json:"fragrance_code"`
	Notes              string           `json:"notes"`
	Timestamp          string           `json:"timestamp"`
}

func (h *Handler) refillInput(req refillRequest) dispenser.RefillInput {
	amount := h.number("refill_amount_ml", req.RefillAmountML)
	in := dispenser.RefillInput{
		TechnicianUsername: req.TechnicianUsername,
		LevelBeforeRefill:  h.number("level_before_refill", req.LevelBeforeRefill),
		CurrentMLRefill:    h.number("current_ml_refill", req.CurrentMLRefill),
		FragranceCode:      req.FragranceCode,
		Notes:              req.Notes,
		Timestamp:          h.date("timestamp", req.Timestamp),
	}
	if amount != nil {
		in.RefillAmountML = *amount
	}
	return in
}

type timeRangeRequest struct {
	StartTime    string           `json:"start_time"`
	EndTime      string           `json:"end_time"`
	SpraySeconds parse.LooseFloat `json:"spray_seconds"`
	PauseSeconds parse.LooseFloat `json:"pause_seconds"`
}

type intervalRequest struct {
	SpraySeconds parse.LooseFloat `json:"spray_seconds"`
	PauseSeconds parse.LooseFloat `json:"pause_seconds"`
}

type scheduleRequest struct {
	Name            string             `json:"name"`
	Type            string             `json:"type"`
	TimeRanges      []timeRangeRequest `json:"time_ranges"`
	Intervals       []intervalRequest  `json:"intervals"`
	DurationMinutes parse.LooseFloat   `json:"duration_minutes"`
	DailyCycles     parse.LooseFloat   `json:"daily_cycles"`
	MLPerHour       parse.LooseFloat   `json:"ml_per_hour"`
	DaysOfWeek      json.RawMessage    `json:"days_of_week"`
}

func (h *Handler) scheduleInput(req scheduleRequest) dispenser.ScheduleInput {
	in := dispenser.ScheduleInput{
		Name:            req.Name,
		Type:            req.Type,
		DurationMinutes: h.integer("duration_minutes", req.DurationMinutes),
		DailyCycles:     h.integer("daily_cycles", req.DailyCycles),
		MLPerHour:       h.number("ml_per_hour", req.MLPerHour),
	}
	for _, tr := range req.TimeRanges {
		in.TimeRanges = append(in.TimeRanges, model.ScheduleTimeRange{
			StartTime:    tr.StartTime,
			EndTime:      tr.EndTime,
			SpraySeconds: seconds(h.integer("spray_seconds", tr.SpraySeconds)),
			PauseSeconds: seconds(h.integer("pause_seconds", tr.PauseSeconds)),
		})
	}
	for _, iv := range req.Intervals {
		in.Intervals = append(in.Intervals, model.ScheduleInterval{
			SpraySeconds: seconds(h.integer("spray_seconds", iv.SpraySeconds)),
			PauseSeconds: seconds(h.integer("pause_seconds", iv.PauseSeconds)),
		})
	}
	if len(req.DaysOfWeek) > 0 {
		if days, ok := parse.DaysOfWeek(req.DaysOfWeek); ok {
			in.DaysOfWeek = days
		} else if s := strings.TrimSpace(string(req.DaysOfWeek)); s != "null" {
			h.log.Warn("ignoring unreadable days_of_week", zap.String("value", s))
		}
	}
	return in
}

type clientRequest struct {
	Name          string `json:"name"`
	ContactPerson string `json:"contact_person"`
	Email         string `json:"email"`
	Phone         string `json:"phone"`
	Address       string `json:"address"`
}

func (r clientRequest) input() dispenser.ClientInput {
	return dispenser.ClientInput{
		Name:          r.Name,
		ContactPerson: r.ContactPerson,
		Email:         r.Email,
		Phone:         r.Phone,
		Address:       r.Address,
	}
}

type assignmentRequest struct {
	DispenserID        string `json:"dispenser_id" binding:"required"`
	TechnicianUsername string `json:"technician_username"`
	AssignedBy         string `json:"assigned_by"`
	VisitDate          string `json:"visit_date"`
	TaskType           string `json:"task_type"`
	Notes              string `json:"notes"`
}

type completeRequest struct {
	Notes  string         `json:"notes"`
	Refill *refillRequest `json:"refill"`
}

// number returns the coerced value of a loose numeric field.
func (h *Handler) number(field string, f parse.LooseFloat) *float64 {
	if !f.Set && f.Raw != "" {
		h.log.Warn("ignoring non-numeric value", zap.String("field", field), zap.String("value", f.Raw))
	}
	return f.Ptr()
}

func (h *Handler) integer(field string, f parse.LooseFloat) *int {
	v := h.number(field, f)
	if v == nil {
		return nil
	}
	n := int(math.Round(*v))
	return &n
}

func seconds(n *int) int {
	if n == nil {
		return 0
	}
	return *n
}

// date parses an optional timestamp. Unreadable values are logged and dropped.
func (h *Handler) date(field, raw string) *time.Time {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	t, err := parse.Timestamp(raw)
	if err != nil {
		h.log.Warn("ignoring unreadable date", zap.String("field", field), zap.String("value", raw), zap.Error(err))
		return nil
	}
	return &t
}
