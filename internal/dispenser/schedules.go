package dispenser

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	"dispenser-tracker-backend/internal/model"
	"dispenser-tracker-backend/internal/parse"
)

// ListSchedules returns all schedules with their child rows.
func (m *Manager) ListSchedules(ctx context.Context) ([]model.Schedule, error) {
	return m.store.ListSchedules(ctx)
}

// GetSchedule returns one schedule.
func (m *Manager) GetSchedule(ctx context.Context, id string) (*model.Schedule, error) {
	sch, err := m.store.GetSchedule(ctx, id)
	if isMissing(err) {
		return nil, notFound("schedule", id)
	}
	return sch, err
}

// CreateSchedule validates and stores a new schedule.
func (m *Manager) CreateSchedule(ctx context.Context, in ScheduleInput) (*model.Schedule, error) {
	now := m.utcNow()
	sch := &model.Schedule{ID: m.newID(), CreatedAt: now}
	if err := applyScheduleInput(sch, in); err != nil {
		return nil, err
	}
	sch.UpdatedAt = now
	if len(sch.TimeRanges) > 0 && len(sch.Intervals) > 0 {
		m.log.Warn("schedule has both time ranges and intervals; time ranges take precedence",
			zap.String("schedule_id", sch.ID))
	}

	if err := m.store.SaveSchedule(ctx, sch); err != nil {
		return nil, err
	}
	m.log.Info("schedule created", zap.String("id", sch.ID), zap.String("name", sch.Name))
	return m.GetSchedule(ctx, sch.ID)
}

// UpdateSchedule replaces the definition of an existing schedule.
func (m *Manager) UpdateSchedule(ctx context.Context, id string, in ScheduleInput) (*model.Schedule, error) {
	existing, err := m.GetSchedule(ctx, id)
	if err != nil {
		return nil, err
	}
	sch := &model.Schedule{ID: existing.ID, CreatedAt: existing.CreatedAt}
	if in.Type == "" {
		in.Type = string(existing.Type)
	}
	if err := applyScheduleInput(sch, in); err != nil {
		return nil, err
	}
	sch.UpdatedAt = m.utcNow()

	if err := m.store.SaveSchedule(ctx, sch); err != nil {
		return nil, err
	}
	return m.GetSchedule(ctx, id)
}

// DeleteSchedule removes a custom schedule and detaches it from every
// instance. Fixed schedules are protected.
func (m *Manager) DeleteSchedule(ctx context.Context, id string) error {
	sch, err := m.GetSchedule(ctx, id)
	if err != nil {
		return err
	}
	if sch.Type == model.ScheduleFixed {
		return conflict(CodeFixedSchedule, "id", id, "fixed schedule %q cannot be deleted", id)
	}
	if err := m.store.DeleteSchedule(ctx, id); err != nil {
		if isMissing(err) {
			return notFound("schedule", id)
		}
		return err
	}
	m.log.Info("schedule deleted", zap.String("id", id))
	return nil
}

func applyScheduleInput(sch *model.Schedule, in ScheduleInput) error {
	sch.Name = strings.TrimSpace(in.Name)
	if sch.Name == "" {
		return invalid("name", "", "schedule name is required")
	}

	switch t := model.ScheduleType(strings.ToLower(strings.TrimSpace(in.Type))); t {
	case "":
		sch.Type = model.ScheduleCustom
	case model.ScheduleFixed, model.ScheduleCustom:
		sch.Type = t
	default:
		return invalid("type", in.Type, "schedule type must be fixed or custom")
	}

	for i, tr := range in.TimeRanges {
		field := fmt.Sprintf("time_ranges[%d]", i)
		start, err := parse.ClockMinutes(tr.StartTime)
		if err != nil {
			return invalid(field+".start_time", tr.StartTime, "%v", err)
		}
		end, err := parse.ClockMinutes(tr.EndTime)
		if err != nil {
			return invalid(field+".end_time", tr.EndTime, "%v", err)
		}
		if tr.SpraySeconds < 0 || tr.PauseSeconds < 0 {
			return invalid(field, fmt.Sprintf("%d/%d", tr.SpraySeconds, tr.PauseSeconds), "spray and pause seconds must not be negative")
		}
		sch.TimeRanges = append(sch.TimeRanges, model.ScheduleTimeRange{
			StartTime:    parse.FormatClock(start),
			EndTime:      parse.FormatClock(end),
			SpraySeconds: tr.SpraySeconds,
			PauseSeconds: tr.PauseSeconds,
		})
	}
	for i, iv := range in.Intervals {
		if iv.SpraySeconds < 0 || iv.PauseSeconds < 0 {
			return invalid(fmt.Sprintf("intervals[%d]", i), fmt.Sprintf("%d/%d", iv.SpraySeconds, iv.PauseSeconds),
				"spray and pause seconds must not be negative")
		}
		sch.Intervals = append(sch.Intervals, model.ScheduleInterval{
			SpraySeconds: iv.SpraySeconds,
			PauseSeconds: iv.PauseSeconds,
		})
	}

	if in.MLPerHour != nil && *in.MLPerHour < 0 {
		return invalid("ml_per_hour", fmt.Sprint(*in.MLPerHour), "ml_per_hour must not be negative")
	}
	sch.MLPerHour = in.MLPerHour
	sch.DurationMinutes = in.DurationMinutes
	sch.DailyCycles = in.DailyCycles

	days, err := encodeDays(in.DaysOfWeek)
	if err != nil {
		return err
	}
	sch.DaysOfWeek = days
	return nil
}

// encodeDays validates weekday indices and stores them sorted and deduplicated.
func encodeDays(days []int) (datatypes.JSON, error) {
	if len(days) == 0 {
		return nil, nil
	}
	seen := make(map[int]bool, len(days))
	out := make([]int, 0, len(days))
	for _, d := range days {
		if d < 0 || d > 6 {
			return nil, invalid("days_of_week", fmt.Sprint(d), "weekday %d is outside 0-6", d)
		}
		if !seen[d] {
			seen[d] = true
			out = append(out, d)
		}
	}
	sort.Ints(out)
	b, err := json.Marshal(out)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(b), nil
}
