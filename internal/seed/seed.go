// Package seed installs the built-in fixed schedules.
package seed

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"dispenser-tracker-backend/internal/model"
	"dispenser-tracker-backend/internal/store"
)

// UniversalScheduleID is the id of the default time-band schedule.
const UniversalScheduleID = "universal_schedule"

// DefaultSchedules returns the fixed schedules every installation starts with.
func DefaultSchedules(now time.Time) []model.Schedule {
	hour, cycles := 60, 4
	legacy := func(id, name string, spray, pause int) model.Schedule {
		return model.Schedule{
			ID:              id,
			Name:            name,
			Type:            model.ScheduleFixed,
			DurationMinutes: &hour,
			DailyCycles:     &cycles,
			Intervals:       []model.ScheduleInterval{{SpraySeconds: spray, PauseSeconds: pause}},
			CreatedAt:       now,
			UpdatedAt:       now,
		}
	}

	return []model.Schedule{
		{
			ID:   UniversalScheduleID,
			Name: "Universal Schedule",
			Type: model.ScheduleFixed,
			TimeRanges: []model.ScheduleTimeRange{
				{StartTime: "00:00", EndTime: "06:00", SpraySeconds: 20, PauseSeconds: 40},
				{StartTime: "06:00", EndTime: "12:00", SpraySeconds: 30, PauseSeconds: 30},
				{StartTime: "12:00", EndTime: "15:00", SpraySeconds: 50, PauseSeconds: 20},
				{StartTime: "15:00", EndTime: "23:55", SpraySeconds: 100, PauseSeconds: 10},
			},
			CreatedAt: now,
			UpdatedAt: now,
		},
		legacy("fixed_1", "Morning Schedule", 5, 55),
		legacy("fixed_2", "Afternoon Schedule", 10, 50),
		legacy("fixed_3", "Evening Schedule", 15, 45),
		legacy("fixed_4", "Night Schedule", 20, 40),
	}
}

// Schedules writes the default schedules when the table is empty and
// reports how many were installed.
func Schedules(ctx context.Context, s store.Store, log *zap.Logger) (int, error) {
	existing, err := s.ListSchedules(ctx)
	if err != nil {
		return 0, err
	}
	if len(existing) > 0 {
		log.Debug("schedules already present, skipping seed", zap.Int("count", len(existing)))
		return 0, nil
	}

	defaults := DefaultSchedules(time.Now().UTC())
	for i := range defaults {
		if err := s.SaveSchedule(ctx, &defaults[i]); err != nil {
			return i, fmt.Errorf("seed schedule %s: %w", defaults[i].ID, err)
		}
	}
	log.Info("default schedules installed", zap.Int("count", len(defaults)))
	return len(defaults), nil
}
