package store

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"dispenser-tracker-backend/internal/model"
)

func orderByPosition(db *gorm.DB) *gorm.DB {
	return db.Order("position")
}

func (s *gormStore) ListSchedules(ctx context.Context) ([]model.Schedule, error) {
	var schedules []model.Schedule
	err := s.db.WithContext(ctx).
		Preload("TimeRanges", orderByPosition).
		Preload("Intervals", orderByPosition).
		Order("type, name").
		Find(&schedules).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list schedules: %w", err)
	}
	return schedules, nil
}

func (s *gormStore) GetSchedule(ctx context.Context, id string) (*model.Schedule, error) {
	var sch model.Schedule
	err := s.db.WithContext(ctx).
		Preload("TimeRanges", orderByPosition).
		Preload("Intervals", orderByPosition).
		First(&sch, "id = ?", id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &sch, nil
}

func (s *gormStore) SaveSchedule(ctx context.Context, sch *model.Schedule) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "type", "duration_minutes", "daily_cycles", "ml_per_hour", "days_of_week", "updated_at"}),
		}).Create(sch).Error; err != nil {
			return fmt.Errorf("failed to upsert schedule %s: %w", sch.ID, translate(err))
		}

		if err := tx.Where("schedule_id = ?", sch.ID).Delete(&model.ScheduleTimeRange{}).Error; err != nil {
			return fmt.Errorf("failed to clear time ranges of %s: %w", sch.ID, err)
		}
		if err := tx.Where("schedule_id = ?", sch.ID).Delete(&model.ScheduleInterval{}).Error; err != nil {
			return fmt.Errorf("failed to clear intervals of %s: %w", sch.ID, err)
		}

		for i := range sch.TimeRanges {
			tr := &sch.TimeRanges[i]
			tr.ID, tr.ScheduleID, tr.Position = 0, sch.ID, i
		}
		for i := range sch.Intervals {
			iv := &sch.Intervals[i]
			iv.ID, iv.ScheduleID, iv.Position = 0, sch.ID, i
		}
		if len(sch.TimeRanges) > 0 {
			if err := tx.Create(&sch.TimeRanges).Error; err != nil {
				return fmt.Errorf("failed to insert time ranges of %s: %w", sch.ID, err)
			}
		}
		if len(sch.Intervals) > 0 {
			if err := tx.Create(&sch.Intervals).Error; err != nil {
				return fmt.Errorf("failed to insert intervals of %s: %w", sch.ID, err)
			}
		}
		return nil
	})
}

func (s *gormStore) DeleteSchedule(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.MachineInstance{}).
			Where("current_schedule_id = ?", id).
			Update("current_schedule_id", nil).Error; err != nil {
			return fmt.Errorf("failed to detach schedule %s: %w", id, err)
		}
		if err := tx.Where("schedule_id = ?", id).Delete(&model.ScheduleTimeRange{}).Error; err != nil {
			return err
		}
		if err := tx.Where("schedule_id = ?", id).Delete(&model.ScheduleInterval{}).Error; err != nil {
			return err
		}
		return deleteByID(tx, &model.Schedule{}, id)
	})
}
