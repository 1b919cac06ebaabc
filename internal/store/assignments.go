package store

import (
	"context"
	"fmt"

	"dispenser-tracker-backend/internal/model"
)

func (s *gormStore) ListAssignments(ctx context.Context, f AssignmentFilter) ([]model.TechnicianAssignment, error) {
	q := s.db.WithContext(ctx)
	if f.TechnicianUsername != "" {
		q = q.Where("technician_username = ?", f.TechnicianUsername)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.DispenserID != "" {
		q = q.Where("dispenser_id = ?", f.DispenserID)
	}

	var out []model.TechnicianAssignment
	if err := q.Order("assigned_date DESC, id").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("failed to list assignments: %w", err)
	}
	return out, nil
}

func (s *gormStore) GetAssignment(ctx context.Context, id string) (*model.TechnicianAssignment, error) {
	var a model.TechnicianAssignment
	if err := s.db.WithContext(ctx).First(&a, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &a, nil
}

func (s *gormStore) CreateAssignment(ctx context.Context, a *model.TechnicianAssignment) error {
	if err := s.db.WithContext(ctx).Create(a).Error; err != nil {
		return fmt.Errorf("failed to create assignment: %w", translate(err))
	}
	return nil
}

func (s *gormStore) UpdateAssignment(ctx context.Context, a *model.TechnicianAssignment) error {
	if err := s.db.WithContext(ctx).Save(a).Error; err != nil {
		return fmt.Errorf("failed to update assignment %s: %w", a.ID, err)
	}
	return nil
}

func (s *gormStore) DeleteAssignment(ctx context.Context, id string) error {
	return deleteByID(s.db.WithContext(ctx), &model.TechnicianAssignment{}, id)
}
