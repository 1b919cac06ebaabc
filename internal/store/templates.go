package store

import (
	"context"
	"fmt"

	"dispenser-tracker-backend/internal/model"
)

func (s *gormStore) ListTemplates(ctx context.Context) ([]model.MachineTemplate, error) {
	var templates []model.MachineTemplate
	if err := s.db.WithContext(ctx).Order("sku").Find(&templates).Error; err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}
	return templates, nil
}

func (s *gormStore) GetTemplate(ctx context.Context, id string) (*model.MachineTemplate, error) {
	var t model.MachineTemplate
	if err := s.db.WithContext(ctx).First(&t, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &t, nil
}

func (s *gormStore) GetTemplateBySKU(ctx context.Context, sku string) (*model.MachineTemplate, error) {
	var t model.MachineTemplate
	if err := s.db.WithContext(ctx).First(&t, "sku = ?", sku).Error; err != nil {
		return nil, translate(err)
	}
	return &t, nil
}

func (s *gormStore) CreateTemplate(ctx context.Context, t *model.MachineTemplate) error {
	if err := s.db.WithContext(ctx).Create(t).Error; err != nil {
		return fmt.Errorf("failed to create template %s: %w", t.SKU, translate(err))
	}
	return nil
}

func (s *gormStore) UpdateTemplate(ctx context.Context, t *model.MachineTemplate) error {
	if err := s.db.WithContext(ctx).Save(t).Error; err != nil {
		return fmt.Errorf("failed to update template %s: %w", t.ID, translate(err))
	}
	return nil
}

func (s *gormStore) DeleteTemplate(ctx context.Context, id string) error {
	return deleteByID(s.db.WithContext(ctx), &model.MachineTemplate{}, id)
}
