package store

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"dispenser-tracker-backend/internal/model"
)

// ListRefillLogs returns logs newest first. An empty dispenserID lists all.
func (s *gormStore) ListRefillLogs(ctx context.Context, dispenserID string) ([]model.RefillLog, error) {
	q := s.db.WithContext(ctx)
	if dispenserID != "" {
		q = q.Where("dispenser_id = ?", dispenserID)
	}
	var logs []model.RefillLog
	if err := q.Order("timestamp DESC, id DESC").Find(&logs).Error; err != nil {
		return nil, fmt.Errorf("failed to list refill logs: %w", err)
	}
	return logs, nil
}

func (s *gormStore) CountRefillLogs(ctx context.Context, dispenserID string) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&model.RefillLog{}).Where("dispenser_id = ?", dispenserID).Count(&n).Error
	return n, err
}

func (s *gormStore) ApplyRefill(ctx context.Context, m *model.MachineInstance, entry *model.RefillLog, done *model.TechnicianAssignment) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.MachineInstance{}).Where("id = ?", m.ID).Updates(map[string]interface{}{
			"current_level_ml": m.CurrentLevelML,
			"last_refill_date": m.LastRefillDate,
			"updated_at":       m.UpdatedAt,
		})
		if res.Error != nil {
			return fmt.Errorf("failed to update level of %s: %w", m.ID, res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		if err := tx.Create(entry).Error; err != nil {
			return fmt.Errorf("failed to append refill log for %s: %w", m.ID, translate(err))
		}
		if done != nil {
			if err := tx.Save(done).Error; err != nil {
				return fmt.Errorf("failed to complete assignment %s: %w", done.ID, err)
			}
		}
		return nil
	})
}
