package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"dispenser-tracker-backend/internal/model"
)

var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a write violates a unique index.
	ErrDuplicate = errors.New("duplicate key")
)

// InstanceFilter narrows ListInstances. Zero fields match everything.
type InstanceFilter struct {
	Status     model.InstanceStatus
	ClientID   string
	TemplateID string
}

// AssignmentFilter narrows ListAssignments. Zero fields match everything.
type AssignmentFilter struct {
	TechnicianUsername string
	Status             model.AssignmentStatus
	DispenserID        string
}

// Store defines the interface for all database operations.
type Store interface {
	// DB exposes the underlying handle for thin pass-through reads.
	DB() *gorm.DB

	ListTemplates(ctx context.Context) ([]model.MachineTemplate, error)
	GetTemplate(ctx context.Context, id string) (*model.MachineTemplate, error)
	GetTemplateBySKU(ctx context.Context, sku string) (*model.MachineTemplate, error)
	CreateTemplate(ctx context.Context, t *model.MachineTemplate) error
	UpdateTemplate(ctx context.Context, t *model.MachineTemplate) error
	DeleteTemplate(ctx context.Context, id string) error

	ListInstances(ctx context.Context, f InstanceFilter) ([]model.MachineInstance, error)
	GetInstance(ctx context.Context, id string) (*model.MachineInstance, error)
	GetInstanceByCode(ctx context.Context, code string) (*model.MachineInstance, error)
	CountInstancesByTemplate(ctx context.Context, templateID string) (int64, error)
	CountInstancesByClient(ctx context.Context, clientID string) (int64, error)
	CreateInstance(ctx context.Context, m *model.MachineInstance) error
	UpdateInstance(ctx context.Context, m *model.MachineInstance) error
	// DeleteInstance removes the instance together with its refill logs,
	// technician assignments and subscription mappings.
	DeleteInstance(ctx context.Context, id string) error

	ListSchedules(ctx context.Context) ([]model.Schedule, error)
	GetSchedule(ctx context.Context, id string) (*model.Schedule, error)
	// SaveSchedule creates or replaces a schedule including its child rows.
	SaveSchedule(ctx context.Context, s *model.Schedule) error
	// DeleteSchedule removes the schedule and clears it from every instance.
	DeleteSchedule(ctx context.Context, id string) error

	ListRefillLogs(ctx context.Context, dispenserID string) ([]model.RefillLog, error)
	CountRefillLogs(ctx context.Context, dispenserID string) (int64, error)
	// ApplyRefill writes the new instance level and appends the log entry in
	// one transaction. done, when non-nil, is saved in the same transaction.
	ApplyRefill(ctx context.Context, m *model.MachineInstance, entry *model.RefillLog, done *model.TechnicianAssignment) error

	ListClients(ctx context.Context) ([]model.Client, error)
	GetClient(ctx context.Context, id string) (*model.Client, error)
	CreateClient(ctx context.Context, c *model.Client) error
	UpdateClient(ctx context.Context, c *model.Client) error
	DeleteClient(ctx context.Context, id string) error

	ListAssignments(ctx context.Context, f AssignmentFilter) ([]model.TechnicianAssignment, error)
	GetAssignment(ctx context.Context, id string) (*model.TechnicianAssignment, error)
	CreateAssignment(ctx context.Context, a *model.TechnicianAssignment) error
	UpdateAssignment(ctx context.Context, a *model.TechnicianAssignment) error
	DeleteAssignment(ctx context.Context, id string) error

	GetSubscription(ctx context.Context, endpoint string) (*model.PushSubscription, error)
	// SaveSubscription upserts the subscription and replaces its dispenser set.
	SaveSubscription(ctx context.Context, sub *model.PushSubscription, dispenserIDs []string) error
	DeleteSubscription(ctx context.Context, endpoint string) error
	SubscriptionsForDispenser(ctx context.Context, dispenserID string) ([]model.PushSubscription, error)
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) DB() *gorm.DB {
	return s.db
}

// translate maps driver errors onto the package sentinels.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey),
		strings.Contains(err.Error(), "UNIQUE constraint failed"),
		strings.Contains(err.Error(), "SQLSTATE 23505"):
		return fmt.Errorf("%w: %v", ErrDuplicate, err)
	}
	return err
}

// deleteByID removes one row and reports ErrNotFound when nothing matched.
func deleteByID(tx *gorm.DB, value interface{}, id string) error {
	res := tx.Delete(value, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
