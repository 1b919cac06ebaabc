package dispenser

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"dispenser-tracker-backend/internal/model"
	"dispenser-tracker-backend/internal/store"
)

// ListAssignments returns technician visits matching f, newest first.
func (m *Manager) ListAssignments(ctx context.Context, f store.AssignmentFilter) ([]model.TechnicianAssignment, error) {
	return m.store.ListAssignments(ctx, f)
}

// CreateAssignment schedules a technician visit to an instance.
func (m *Manager) CreateAssignment(ctx context.Context, in AssignmentInput) (*model.TechnicianAssignment, error) {
	tech := strings.TrimSpace(in.TechnicianUsername)
	if tech == "" {
		return nil, invalid("technician_username", "", "technician_username is required")
	}

	task := model.TaskType(strings.ToLower(strings.TrimSpace(in.TaskType)))
	switch task {
	case "":
		task = model.TaskRefill
	case model.TaskRefill, model.TaskMaintenance, model.TaskInstallation:
	default:
		return nil, invalid("task_type", in.TaskType, "task_type must be refill, maintenance or installation")
	}

	if _, err := m.store.GetInstance(ctx, in.DispenserID); err != nil {
		if isMissing(err) {
			return nil, notFound("dispenser", in.DispenserID)
		}
		return nil, err
	}

	a := &model.TechnicianAssignment{
		ID:                 m.newID(),
		DispenserID:        in.DispenserID,
		TechnicianUsername: tech,
		AssignedBy:         strings.TrimSpace(in.AssignedBy),
		AssignedDate:       m.utcNow(),
		VisitDate:          in.VisitDate,
		Status:             model.AssignmentPending,
		TaskType:           task,
		Notes:              in.Notes,
	}
	if err := m.store.CreateAssignment(ctx, a); err != nil {
		return nil, err
	}
	m.log.Info("technician assigned",
		zap.String("assignment_id", a.ID),
		zap.String("dispenser_id", a.DispenserID),
		zap.String("technician", tech),
		zap.String("task", string(task)))
	return a, nil
}

// CompleteAssignment closes a pending visit. For refill tasks carrying a
// refill, the refill is recorded in the same transaction that closes the visit.
func (m *Manager) CompleteAssignment(ctx context.Context, id string, in CompletionInput) (*model.TechnicianAssignment, *model.RefillLog, error) {
	a, err := m.store.GetAssignment(ctx, id)
	if err != nil {
		if isMissing(err) {
			return nil, nil, notFound("assignment", id)
		}
		return nil, nil, err
	}
	if a.Status == model.AssignmentCompleted {
		return nil, nil, conflict(CodeAssignmentCompleted, "id", id, "assignment %q is already completed", id)
	}

	now := m.utcNow()
	a.Status = model.AssignmentCompleted
	a.CompletedDate = &now
	if notes := strings.TrimSpace(in.Notes); notes != "" {
		a.Notes = notes
	}

	if a.TaskType == model.TaskRefill && in.Refill != nil {
		inst, err := m.store.GetInstance(ctx, a.DispenserID)
		if err != nil {
			if isMissing(err) {
				return nil, nil, notFound("dispenser", a.DispenserID)
			}
			return nil, nil, err
		}
		refill := *in.Refill
		if refill.TechnicianUsername == "" {
			refill.TechnicianUsername = a.TechnicianUsername
		}
		entry, err := m.recordRefill(ctx, inst, refill, a)
		if err != nil {
			return nil, nil, err
		}
		return a, entry, nil
	}

	if err := m.store.UpdateAssignment(ctx, a); err != nil {
		return nil, nil, err
	}
	return a, nil, nil
}

// DeleteAssignment removes a visit.
func (m *Manager) DeleteAssignment(ctx context.Context, id string) error {
	if err := m.store.DeleteAssignment(ctx, id); err != nil {
		if isMissing(err) {
			return notFound("assignment", id)
		}
		return err
	}
	return nil
}
