package dispenser

import (
	"context"

	"go.uber.org/zap"

	"dispenser-tracker-backend/internal/model"
	"dispenser-tracker-backend/internal/store"
	"dispenser-tracker-backend/internal/usage"
)

// UsageProjection answers "how much is used per day" and "when will it run
// dry" for one instance. CurrentLevelML is the stored, authoritative level;
// ProjectedLevelML is an estimate and always flagged Projected.
type UsageProjection struct {
	DispenserID      string   `json:"dispenser_id"`
	UniqueCode       string   `json:"unique_code"`
	ScheduleID       *string  `json:"schedule_id"`
	DailyUsageML     float64  `json:"daily_usage_ml"`
	CycleUsageML     float64  `json:"cycle_usage_ml"`
	DaysUntilEmpty   *float64 `json:"days_until_empty"`
	UsageSinceRefill float64  `json:"usage_since_refill"`
	CurrentLevelML   float64  `json:"current_level_ml"`
	ProjectedLevelML float64  `json:"projected_level_ml"`
	Projected        bool     `json:"projected"`
	ActiveDays       int      `json:"active_days"`
	Warnings         []string `json:"warnings,omitempty"`
}

// ComputeUsageProjection projects consumption for one instance.
func (m *Manager) ComputeUsageProjection(ctx context.Context, id string) (*UsageProjection, error) {
	inst, err := m.store.GetInstance(ctx, id)
	if err != nil {
		if isMissing(err) {
			return nil, notFound("dispenser", id)
		}
		return nil, err
	}
	return m.project(ctx, inst)
}

// Projections projects every instance matching f.
func (m *Manager) Projections(ctx context.Context, f store.InstanceFilter) ([]UsageProjection, error) {
	instances, err := m.store.ListInstances(ctx, f)
	if err != nil {
		return nil, err
	}
	out := make([]UsageProjection, 0, len(instances))
	for i := range instances {
		p, err := m.project(ctx, &instances[i])
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, nil
}

func (m *Manager) project(ctx context.Context, inst *model.MachineInstance) (*UsageProjection, error) {
	level := capLevel(inst.CurrentLevelML, inst.RefillCapacityML)
	out := &UsageProjection{
		DispenserID:      inst.ID,
		UniqueCode:       inst.UniqueCode,
		ScheduleID:       inst.CurrentScheduleID,
		CurrentLevelML:   usage.Round2(level),
		ProjectedLevelML: usage.Round2(level),
		Projected:        true,
		ActiveDays:       7,
	}
	if inst.CurrentScheduleID == nil || *inst.CurrentScheduleID == "" {
		return out, nil
	}

	sch, err := m.store.GetSchedule(ctx, *inst.CurrentScheduleID)
	if isMissing(err) {
		m.log.Warn("dispenser references a missing schedule",
			zap.String("dispenser_id", inst.ID),
			zap.String("schedule_id", *inst.CurrentScheduleID))
		return out, nil
	}
	if err != nil {
		return nil, err
	}

	res := usage.DailyUsage(sch, inst.MLPerHour)
	for _, w := range res.Warnings {
		m.log.Warn("schedule degraded", zap.String("schedule_id", sch.ID), zap.String("detail", w))
	}

	p := usage.Project(res.DailyML, inst.CurrentLevelML, inst.RefillCapacityML, inst.LastRefillDate, m.utcNow())

	out.DailyUsageML = usage.Round2(res.DailyML)
	out.CycleUsageML = usage.Round2(res.CycleML)
	out.UsageSinceRefill = usage.Round2(p.UsageSinceRefill)
	out.ProjectedLevelML = usage.Round2(p.RemainingML)
	out.ActiveDays = res.ActiveDays
	out.Warnings = res.Warnings
	if p.DaysUntilEmpty != nil {
		days := usage.Round2(*p.DaysUntilEmpty)
		out.DaysUntilEmpty = &days
	}
	return out, nil
}
