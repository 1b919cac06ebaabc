package dispenser

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"dispenser-tracker-backend/internal/model"
	"dispenser-tracker-backend/internal/store"
)

// ListFilter narrows ListDispensers.
type ListFilter struct {
	// Kind is "template", "instance" or empty for both.
	Kind     string
	Status   model.InstanceStatus
	ClientID string
}

// ListDispensers returns templates followed by instances.
func (m *Manager) ListDispensers(ctx context.Context, f ListFilter) ([]Dispenser, error) {
	var out []Dispenser
	wantTemplates := f.Kind == KindTemplate || (f.Kind == "" && f.Status == "" && f.ClientID == "")
	if wantTemplates {
		templates, err := m.store.ListTemplates(ctx)
		if err != nil {
			return nil, err
		}
		for i := range templates {
			out = append(out, Dispenser{Template: &templates[i]})
		}
	}
	if f.Kind == KindTemplate {
		return out, nil
	}

	instances, err := m.store.ListInstances(ctx, store.InstanceFilter{Status: f.Status, ClientID: f.ClientID})
	if err != nil {
		return nil, err
	}
	for i := range instances {
		out = append(out, Dispenser{Instance: &instances[i]})
	}
	return out, nil
}

// GetDispenser looks the id up among instances, then templates.
func (m *Manager) GetDispenser(ctx context.Context, id string) (*Dispenser, error) {
	inst, err := m.store.GetInstance(ctx, id)
	if err == nil {
		return &Dispenser{Instance: inst}, nil
	}
	if !isMissing(err) {
		return nil, err
	}

	tmpl, err := m.store.GetTemplate(ctx, id)
	if err == nil {
		return &Dispenser{Template: tmpl}, nil
	}
	if isMissing(err) {
		return nil, notFound("dispenser", id)
	}
	return nil, err
}

// CreateDispenser creates a template when the input has no client and an
// instance otherwise. A new installed instance whose unique code belongs to
// an assigned instance fulfills that assignment instead of being rejected.
func (m *Manager) CreateDispenser(ctx context.Context, in DispenserInput) (*Dispenser, error) {
	in.normalize()
	if in.ClientID == "" {
		t, err := m.createTemplate(ctx, in)
		if err != nil {
			return nil, err
		}
		return &Dispenser{Template: t}, nil
	}
	inst, err := m.createInstance(ctx, in)
	if err != nil {
		return nil, err
	}
	return &Dispenser{Instance: inst}, nil
}

func (m *Manager) createTemplate(ctx context.Context, in DispenserInput) (*model.MachineTemplate, error) {
	if in.SKU == "" {
		return nil, invalid("sku", "", "sku is required for a template")
	}
	if err := m.ensureSKUFree(ctx, in.SKU, ""); err != nil {
		return nil, err
	}

	now := m.utcNow()
	t := &model.MachineTemplate{
		ID:          m.newID(),
		SKU:         in.SKU,
		Name:        in.Name,
		Description: in.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if t.Name == "" {
		t.Name = in.SKU
	}
	if in.RefillCapacityML != nil {
		t.RefillCapacityML = *in.RefillCapacityML
	}
	if in.MLPerHour != nil {
		t.MLPerHour = *in.MLPerHour
	}
	if err := validateCapacity(t.RefillCapacityML); err != nil {
		return nil, err
	}

	if err := m.store.CreateTemplate(ctx, t); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, conflict(CodeDuplicateSKU, "sku", t.SKU, "a template with sku %q already exists", t.SKU)
		}
		return nil, err
	}
	m.log.Info("template created", zap.String("id", t.ID), zap.String("sku", t.SKU))
	return t, nil
}

func (m *Manager) createInstance(ctx context.Context, in DispenserInput) (*model.MachineInstance, error) {
	if in.UniqueCode == "" {
		return nil, invalid("unique_code", "", "unique_code is required for an instance")
	}
	status, err := parseStatus(in.Status)
	if err != nil {
		return nil, err
	}
	if err := m.ensureClient(ctx, in.ClientID); err != nil {
		return nil, err
	}

	existing, err := m.store.GetInstanceByCode(ctx, in.UniqueCode)
	switch {
	case err == nil && status == model.StatusInstalled && existing.Status == model.StatusAssigned:
		return m.fulfillAssignment(ctx, existing, in)
	case err == nil:
		return nil, conflict(CodeDuplicateUniqueCode, "unique_code", in.UniqueCode,
			"code %q already exists; codes must be unique", in.UniqueCode)
	case !isMissing(err):
		return nil, err
	}

	now := m.utcNow()
	inst := &model.MachineInstance{
		ID:        m.newID(),
		ClientID:  strPtr(in.ClientID),
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := m.applyInstanceInput(ctx, inst, in); err != nil {
		return nil, err
	}
	if inst.InstallationDate == nil && status == model.StatusInstalled {
		inst.InstallationDate = &now
	}

	if err := m.store.CreateInstance(ctx, inst); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, conflict(CodeDuplicateUniqueCode, "unique_code", inst.UniqueCode,
				"code %q already exists; codes must be unique", inst.UniqueCode)
		}
		return nil, err
	}
	m.log.Info("instance created",
		zap.String("id", inst.ID),
		zap.String("unique_code", inst.UniqueCode),
		zap.String("status", string(inst.Status)))
	return inst, nil
}

// fulfillAssignment installs a unit that was previously reserved for a
// client. The record keeps its id; the status flip is a single update.
func (m *Manager) fulfillAssignment(ctx context.Context, assigned *model.MachineInstance, in DispenserInput) (*model.MachineInstance, error) {
	if owner := deref(assigned.ClientID); owner != "" && owner != in.ClientID {
		return nil, conflict(CodeClientReassignment, "client_id", in.ClientID,
			"code %q is reserved for client %q", assigned.UniqueCode, owner)
	}

	assigned.ClientID = strPtr(in.ClientID)
	assigned.Status = model.StatusInstalled
	if err := m.applyInstanceInput(ctx, assigned, in); err != nil {
		return nil, err
	}
	now := m.utcNow()
	if assigned.InstallationDate == nil {
		assigned.InstallationDate = &now
	}
	assigned.UpdatedAt = now

	if err := m.store.UpdateInstance(ctx, assigned); err != nil {
		return nil, err
	}
	m.log.Info("assigned instance installed",
		zap.String("id", assigned.ID),
		zap.String("unique_code", assigned.UniqueCode))
	return assigned, nil
}

// UpdateDispenser applies in to the template or instance with the given id.
func (m *Manager) UpdateDispenser(ctx context.Context, id string, in DispenserInput) (*Dispenser, error) {
	in.normalize()
	d, err := m.GetDispenser(ctx, id)
	if err != nil {
		return nil, err
	}
	if d.Template != nil {
		t, err := m.updateTemplate(ctx, d.Template, in)
		if err != nil {
			return nil, err
		}
		return &Dispenser{Template: t}, nil
	}
	inst, err := m.updateInstance(ctx, d.Instance, in)
	if err != nil {
		return nil, err
	}
	return &Dispenser{Instance: inst}, nil
}

func (m *Manager) updateTemplate(ctx context.Context, t *model.MachineTemplate, in DispenserInput) (*model.MachineTemplate, error) {
	if in.ClientID != "" {
		return nil, conflict(CodeTemplateClient, "client_id", in.ClientID,
			"template %q cannot be given a client; create an instance instead", t.ID)
	}
	refs, err := m.store.CountInstancesByTemplate(ctx, t.ID)
	if err != nil {
		return nil, err
	}
	if refs > 0 {
		return nil, conflict(CodeTemplateReferenced, "id", t.ID,
			"template %q is referenced by %d instance(s) and cannot be modified", t.ID, refs)
	}
	if in.SKU != "" && in.SKU != t.SKU {
		if err := m.ensureSKUFree(ctx, in.SKU, t.ID); err != nil {
			return nil, err
		}
		t.SKU = in.SKU
	}
	if in.Name != "" {
		t.Name = in.Name
	}
	if in.Description != "" {
		t.Description = in.Description
	}
	if in.RefillCapacityML != nil {
		t.RefillCapacityML = *in.RefillCapacityML
	}
	if in.MLPerHour != nil {
		t.MLPerHour = *in.MLPerHour
	}
	if err := validateCapacity(t.RefillCapacityML); err != nil {
		return nil, err
	}
	t.UpdatedAt = m.utcNow()

	if err := m.store.UpdateTemplate(ctx, t); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, conflict(CodeDuplicateSKU, "sku", t.SKU, "a template with sku %q already exists", t.SKU)
		}
		return nil, err
	}
	return t, nil
}

func (m *Manager) updateInstance(ctx context.Context, inst *model.MachineInstance, in DispenserInput) (*model.MachineInstance, error) {
	owner := deref(inst.ClientID)
	if in.ClientID != "" && owner != "" && in.ClientID != owner {
		return nil, conflict(CodeClientReassignment, "client_id", in.ClientID,
			"dispenser %q belongs to client %q and cannot be reassigned", inst.ID, owner)
	}
	if in.ClientID != "" && owner == "" {
		if err := m.ensureClient(ctx, in.ClientID); err != nil {
			return nil, err
		}
		inst.ClientID = strPtr(in.ClientID)
	}

	if in.UniqueCode != "" && in.UniqueCode != inst.UniqueCode {
		other, err := m.store.GetInstanceByCode(ctx, in.UniqueCode)
		if err == nil && other.ID != inst.ID {
			return nil, conflict(CodeDuplicateUniqueCode, "unique_code", in.UniqueCode,
				"code %q already exists; codes must be unique", in.UniqueCode)
		}
		if err != nil && !isMissing(err) {
			return nil, err
		}
	}

	if in.Status != "" {
		next, err := parseStatus(in.Status)
		if err != nil {
			return nil, err
		}
		if err := checkTransition(inst.Status, next); err != nil {
			return nil, err
		}
		if next != inst.Status {
			m.log.Info("instance status changed",
				zap.String("id", inst.ID),
				zap.String("from", string(inst.Status)),
				zap.String("to", string(next)))
		}
		inst.Status = next
	}

	if err := m.applyInstanceInput(ctx, inst, in); err != nil {
		return nil, err
	}
	inst.UpdatedAt = m.utcNow()

	if err := m.store.UpdateInstance(ctx, inst); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, conflict(CodeDuplicateUniqueCode, "unique_code", inst.UniqueCode,
				"code %q already exists; codes must be unique", inst.UniqueCode)
		}
		return nil, err
	}
	return inst, nil
}

// DeleteDispenser removes a template or an instance. Templates still
// referenced by an instance are kept. Instances take their refill history
// with them.
func (m *Manager) DeleteDispenser(ctx context.Context, id string) error {
	d, err := m.GetDispenser(ctx, id)
	if err != nil {
		return err
	}

	if d.Instance != nil {
		if err := m.store.DeleteInstance(ctx, id); err != nil {
			if isMissing(err) {
				return notFound("dispenser", id)
			}
			return err
		}
		m.log.Info("instance deleted",
			zap.String("id", id),
			zap.String("status", string(d.Instance.Status)))
		return nil
	}

	refs, err := m.store.CountInstancesByTemplate(ctx, id)
	if err != nil {
		return err
	}
	if refs > 0 {
		return conflict(CodeTemplateReferenced, "id", id,
			"template %q is referenced by %d instance(s) and cannot be deleted", id, refs)
	}
	if err := m.store.DeleteTemplate(ctx, id); err != nil {
		if isMissing(err) {
			return notFound("dispenser", id)
		}
		return err
	}
	m.log.Info("template deleted", zap.String("id", id), zap.String("sku", d.Template.SKU))
	return nil
}

// AssignSchedule points an instance at a schedule. An empty scheduleID
// detaches the current one.
func (m *Manager) AssignSchedule(ctx context.Context, id, scheduleID string) (*model.MachineInstance, error) {
	inst, err := m.store.GetInstance(ctx, id)
	if err != nil {
		if isMissing(err) {
			return nil, notFound("dispenser", id)
		}
		return nil, err
	}

	if scheduleID == "" {
		inst.CurrentScheduleID = nil
	} else {
		if _, err := m.store.GetSchedule(ctx, scheduleID); err != nil {
			if isMissing(err) {
				return nil, notFound("schedule", scheduleID)
			}
			return nil, err
		}
		inst.CurrentScheduleID = strPtr(scheduleID)
	}
	inst.UpdatedAt = m.utcNow()

	if err := m.store.UpdateInstance(ctx, inst); err != nil {
		return nil, err
	}
	return inst, nil
}

// applyInstanceInput merges the set fields of in over inst, fills gaps from
// the template and clamps the level into [0, capacity].
func (m *Manager) applyInstanceInput(ctx context.Context, inst *model.MachineInstance, in DispenserInput) error {
	if in.Name != "" {
		inst.Name = in.Name
	}
	if in.SKU != "" {
		inst.SKU = in.SKU
	}
	if in.Location != "" {
		inst.Location = in.Location
	}
	if in.UniqueCode != "" {
		inst.UniqueCode = in.UniqueCode
	}
	if in.FragranceCode != "" {
		inst.FragranceCode = in.FragranceCode
	}
	if in.RefillCapacityML != nil {
		inst.RefillCapacityML = *in.RefillCapacityML
	}
	if in.MLPerHour != nil {
		rate := *in.MLPerHour
		inst.MLPerHour = &rate
	}
	if in.CurrentLevelML != nil {
		inst.CurrentLevelML = *in.CurrentLevelML
	}
	if in.LastRefillDate != nil {
		inst.LastRefillDate = in.LastRefillDate
	}
	if in.InstallationDate != nil {
		inst.InstallationDate = in.InstallationDate
	}
	if in.CurrentScheduleID != nil {
		if err := m.setSchedule(ctx, inst, *in.CurrentScheduleID); err != nil {
			return err
		}
	}

	if err := m.resolveTemplate(ctx, inst, in.TemplateID); err != nil {
		return err
	}
	if err := validateCapacity(inst.RefillCapacityML); err != nil {
		return err
	}

	level := inst.CurrentLevelML
	if inst.ClampLevel() {
		m.log.Warn("current_level_ml out of range, clamped",
			zap.String("unique_code", inst.UniqueCode),
			zap.Float64("value", level),
			zap.Float64("stored", inst.CurrentLevelML))
	}
	return nil
}

func (m *Manager) setSchedule(ctx context.Context, inst *model.MachineInstance, scheduleID string) error {
	if scheduleID == "" {
		inst.CurrentScheduleID = nil
		return nil
	}
	if _, err := m.store.GetSchedule(ctx, scheduleID); err != nil {
		if isMissing(err) {
			return &Error{
				Kind:    ErrInvalid,
				Code:    CodeUnknownReference,
				Field:   "current_schedule_id",
				Value:   scheduleID,
				Message: fmt.Sprintf("schedule %q does not exist", scheduleID),
			}
		}
		return err
	}
	inst.CurrentScheduleID = strPtr(scheduleID)
	return nil
}

// resolveTemplate links the instance to its template, by explicit id or by
// sku, and copies capacity, rate and name when the instance lacks them.
func (m *Manager) resolveTemplate(ctx context.Context, inst *model.MachineInstance, templateID string) error {
	var (
		t   *model.MachineTemplate
		err error
	)
	switch {
	case templateID != "":
		t, err = m.store.GetTemplate(ctx, templateID)
		if isMissing(err) {
			return &Error{
				Kind:    ErrInvalid,
				Code:    CodeUnknownReference,
				Field:   "template_id",
				Value:   templateID,
				Message: fmt.Sprintf("template %q does not exist", templateID),
			}
		}
	case inst.TemplateID != nil:
		t, err = m.store.GetTemplate(ctx, *inst.TemplateID)
		if isMissing(err) {
			return nil
		}
	case inst.SKU != "":
		t, err = m.store.GetTemplateBySKU(ctx, inst.SKU)
		if isMissing(err) {
			return nil
		}
	default:
		return nil
	}
	if err != nil {
		return err
	}

	inst.TemplateID = strPtr(t.ID)
	if inst.SKU == "" {
		inst.SKU = t.SKU
	}
	if inst.Name == "" {
		inst.Name = t.Name
	}
	if inst.RefillCapacityML <= 0 {
		inst.RefillCapacityML = t.RefillCapacityML
	}
	if (inst.MLPerHour == nil || *inst.MLPerHour <= 0) && t.MLPerHour > 0 {
		rate := t.MLPerHour
		inst.MLPerHour = &rate
	}
	return nil
}

func (m *Manager) ensureSKUFree(ctx context.Context, sku, selfID string) error {
	existing, err := m.store.GetTemplateBySKU(ctx, sku)
	if isMissing(err) {
		return nil
	}
	if err != nil {
		return err
	}
	if existing.ID == selfID {
		return nil
	}
	return conflict(CodeDuplicateSKU, "sku", sku, "a template with sku %q already exists", sku)
}

func (m *Manager) ensureClient(ctx context.Context, clientID string) error {
	_, err := m.store.GetClient(ctx, clientID)
	if isMissing(err) {
		return &Error{
			Kind:    ErrInvalid,
			Code:    CodeUnknownReference,
			Field:   "client_id",
			Value:   clientID,
			Message: fmt.Sprintf("client %q does not exist", clientID),
		}
	}
	return err
}

func validateCapacity(capacity float64) error {
	if capacity <= 0 {
		return invalid("refill_capacity_ml", fmt.Sprint(capacity), "refill_capacity_ml must be greater than zero")
	}
	return nil
}

// parseStatus maps the request status onto the state machine. Empty means installed.
func parseStatus(raw string) (model.InstanceStatus, error) {
	if raw == "" {
		return model.StatusInstalled, nil
	}
	s := model.InstanceStatus(raw)
	if !s.Valid() {
		return "", invalid("status", raw, "unknown status %q", raw)
	}
	return s, nil
}

// checkTransition enforces installed <-> assigned and the terminal
// discontinued state.
func checkTransition(from, to model.InstanceStatus) error {
	if from == model.StatusDiscontinued && to != model.StatusDiscontinued {
		return conflict(CodeInvalidTransition, "status", string(to),
			"cannot move a discontinued dispenser to %q", to)
	}
	return nil
}
