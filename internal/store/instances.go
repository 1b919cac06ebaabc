package store

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"dispenser-tracker-backend/internal/model"
)

func (s *gormStore) ListInstances(ctx context.Context, f InstanceFilter) ([]model.MachineInstance, error) {
	q := s.db.WithContext(ctx).Model(&model.MachineInstance{})
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.ClientID != "" {
		q = q.Where("client_id = ?", f.ClientID)
	}
	if f.TemplateID != "" {
		q = q.Where("template_id = ?", f.TemplateID)
	}

	var instances []model.MachineInstance
	if err := q.Order("created_at, id").Find(&instances).Error; err != nil {
		return nil, fmt.Errorf("failed to list instances: %w", err)
	}
	return instances, nil
}

func (s *gormStore) GetInstance(ctx context.Context, id string) (*model.MachineInstance, error) {
	var m model.MachineInstance
	if err := s.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &m, nil
}

func (s *gormStore) GetInstanceByCode(ctx context.Context, code string) (*model.MachineInstance, error) {
	var m model.MachineInstance
	if err := s.db.WithContext(ctx).First(&m, "unique_code = ?", code).Error; err != nil {
		return nil, translate(err)
	}
	return &m, nil
}

func (s *gormStore) CountInstancesByTemplate(ctx context.Context, templateID string) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&model.MachineInstance{}).Where("template_id = ?", templateID).Count(&n).Error
	return n, err
}

func (s *gormStore) CountInstancesByClient(ctx context.Context, clientID string) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&model.MachineInstance{}).Where("client_id = ?", clientID).Count(&n).Error
	return n, err
}

func (s *gormStore) CreateInstance(ctx context.Context, m *model.MachineInstance) error {
	if err := s.db.WithContext(ctx).Create(m).Error; err != nil {
		return fmt.Errorf("failed to create instance %s: %w", m.UniqueCode, translate(err))
	}
	return nil
}

// UpdateInstance writes every column in a single statement, so a status
// change moves the record between partitions atomically.
func (s *gormStore) UpdateInstance(ctx context.Context, m *model.MachineInstance) error {
	if err := s.db.WithContext(ctx).Save(m).Error; err != nil {
		return fmt.Errorf("failed to update instance %s: %w", m.ID, translate(err))
	}
	return nil
}

func (s *gormStore) DeleteInstance(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("dispenser_id = ?", id).Delete(&model.RefillLog{}).Error; err != nil {
			return fmt.Errorf("failed to delete refill logs for %s: %w", id, err)
		}
		if err := tx.Where("dispenser_id = ?", id).Delete(&model.TechnicianAssignment{}).Error; err != nil {
			return fmt.Errorf("failed to delete assignments for %s: %w", id, err)
		}
		if err := tx.Exec("DELETE FROM subscription_dispenser_mapping WHERE machine_instance_id = ?", id).Error; err != nil {
			return fmt.Errorf("failed to delete subscription mappings for %s: %w", id, err)
		}
		return deleteByID(tx, &model.MachineInstance{}, id)
	})
}
