package store

import (
	"context"
	"fmt"

	"dispenser-tracker-backend/internal/model"
)

func (s *gormStore) ListClients(ctx context.Context) ([]model.Client, error) {
	var clients []model.Client
	if err := s.db.WithContext(ctx).Order("name").Find(&clients).Error; err != nil {
		return nil, fmt.Errorf("failed to list clients: %w", err)
	}
	return clients, nil
}

func (s *gormStore) GetClient(ctx context.Context, id string) (*model.Client, error) {
	var c model.Client
	if err := s.db.WithContext(ctx).First(&c, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &c, nil
}

func (s *gormStore) CreateClient(ctx context.Context, c *model.Client) error {
	if err := s.db.WithContext(ctx).Create(c).Error; err != nil {
		return fmt.Errorf("failed to create client %s: %w", c.ID, translate(err))
	}
	return nil
}

func (s *gormStore) UpdateClient(ctx context.Context, c *model.Client) error {
	if err := s.db.WithContext(ctx).Save(c).Error; err != nil {
		return fmt.Errorf("failed to update client %s: %w", c.ID, translate(err))
	}
	return nil
}

func (s *gormStore) DeleteClient(ctx context.Context, id string) error {
	return deleteByID(s.db.WithContext(ctx), &model.Client{}, id)
}
