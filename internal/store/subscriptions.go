package store

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"dispenser-tracker-backend/internal/model"
)

func (s *gormStore) GetSubscription(ctx context.Context, endpoint string) (*model.PushSubscription, error) {
	var sub model.PushSubscription
	if err := s.db.WithContext(ctx).Preload("Dispensers").First(&sub, "endpoint = ?", endpoint).Error; err != nil {
		return nil, translate(err)
	}
	return &sub, nil
}

func (s *gormStore) SaveSubscription(ctx context.Context, sub *model.PushSubscription, dispenserIDs []string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "endpoint"}},
			DoUpdates: clause.AssignmentColumns([]string{"p256dh", "auth"}),
		}).Create(sub).Error; err != nil {
			return fmt.Errorf("failed to upsert subscription: %w", err)
		}

		var dispensers []*model.MachineInstance
		if len(dispenserIDs) > 0 {
			if err := tx.Where("id IN ?", dispenserIDs).Find(&dispensers).Error; err != nil {
				return err
			}
		}
		if err := tx.Model(sub).Association("Dispensers").Replace(&dispensers); err != nil {
			return fmt.Errorf("failed to replace subscribed dispensers: %w", err)
		}
		sub.Dispensers = dispensers
		return nil
	})
}

func (s *gormStore) DeleteSubscription(ctx context.Context, endpoint string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sub := model.PushSubscription{Endpoint: endpoint}
		if err := tx.Model(&sub).Association("Dispensers").Clear(); err != nil {
			return err
		}
		return tx.Delete(&sub).Error
	})
}

func (s *gormStore) SubscriptionsForDispenser(ctx context.Context, dispenserID string) ([]model.PushSubscription, error) {
	var subs []model.PushSubscription
	err := s.db.WithContext(ctx).
		Joins("JOIN subscription_dispenser_mapping m ON m.push_subscription_endpoint = push_subscriptions.endpoint").
		Where("m.machine_instance_id = ?", dispenserID).
		Find(&subs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load subscriptions for %s: %w", dispenserID, err)
	}
	return subs, nil
}
