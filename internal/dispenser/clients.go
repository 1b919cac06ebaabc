package dispenser

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"dispenser-tracker-backend/internal/model"
	"dispenser-tracker-backend/internal/parse"
	"dispenser-tracker-backend/internal/store"
)

// maxClientSlug leaves room in the 128 character id column for a generated suffix.
const maxClientSlug = 72

// ClientID derives the preferred id of a client from its name. It is empty
// when the name has no letters or digits.
func ClientID(name string) string {
	slug := parse.Slug(name)
	if slug == "" {
		return ""
	}
	if r := []rune(slug); len(r) > maxClientSlug {
		slug = strings.TrimRight(string(r[:maxClientSlug]), "_")
	}
	return "client_" + slug
}

func (m *Manager) ListClients(ctx context.Context) ([]model.Client, error) {
	return m.store.ListClients(ctx)
}

func (m *Manager) GetClient(ctx context.Context, id string) (*model.Client, error) {
	c, err := m.store.GetClient(ctx, id)
	if isMissing(err) {
		return nil, notFound("client", id)
	}
	return c, err
}

// CreateClient stores a client under the id derived from its name. Names are
// unique by their slug; when the derived id is still held by a client that
// has since been renamed, a generated suffix keeps the new id distinct.
func (m *Manager) CreateClient(ctx context.Context, in ClientInput) (*model.Client, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, invalid("name", in.Name, "client name is required")
	}
	if err := m.ensureClientNameFree(ctx, name, ""); err != nil {
		return nil, err
	}

	id, err := m.clientIDFor(ctx, name)
	if err != nil {
		return nil, err
	}

	now := m.utcNow()
	c := &model.Client{ID: id, CreatedAt: now, UpdatedAt: now}
	applyClientInput(c, in)
	if err := m.store.CreateClient(ctx, c); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, conflict(CodeDuplicateClient, "name", name, "client %q already exists", id)
		}
		return nil, err
	}
	m.log.Info("client created", zap.String("id", id))
	return c, nil
}

// UpdateClient replaces the contact details of a client. The id never changes,
// even on rename.
func (m *Manager) UpdateClient(ctx context.Context, id string, in ClientInput) (*model.Client, error) {
	c, err := m.GetClient(ctx, id)
	if err != nil {
		return nil, err
	}
	applyClientInput(c, in)
	if c.Name == "" {
		return nil, invalid("name", "", "client name is required")
	}
	if err := m.ensureClientNameFree(ctx, c.Name, c.ID); err != nil {
		return nil, err
	}
	c.UpdatedAt = m.utcNow()
	if err := m.store.UpdateClient(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// ensureClientNameFree rejects a name whose slug matches another client's
// current name.
func (m *Manager) ensureClientNameFree(ctx context.Context, name, selfID string) error {
	clients, err := m.store.ListClients(ctx)
	if err != nil {
		return err
	}
	key := parse.Slug(name)
	if key == "" {
		key = strings.ToLower(name)
	}
	for _, other := range clients {
		if other.ID == selfID {
			continue
		}
		otherKey := parse.Slug(other.Name)
		if otherKey == "" {
			otherKey = strings.ToLower(other.Name)
		}
		if otherKey == key {
			return conflict(CodeDuplicateClient, "name", name, "client %q already exists", other.ID)
		}
	}
	return nil
}

func (m *Manager) clientIDFor(ctx context.Context, name string) (string, error) {
	id := ClientID(name)
	if id == "" {
		return "client_" + m.newID(), nil
	}
	_, err := m.store.GetClient(ctx, id)
	switch {
	case isMissing(err):
		return id, nil
	case err != nil:
		return "", err
	}
	return id + "_" + m.newID(), nil
}

// DeleteClient removes a client that owns no dispensers.
func (m *Manager) DeleteClient(ctx context.Context, id string) error {
	n, err := m.store.CountInstancesByClient(ctx, id)
	if err != nil {
		return err
	}
	if n > 0 {
		return conflict(CodeClientInUse, "id", id, "client %q still owns %d dispenser(s)", id, n)
	}
	if err := m.store.DeleteClient(ctx, id); err != nil {
		if isMissing(err) {
			return notFound("client", id)
		}
		return err
	}
	return nil
}

func applyClientInput(c *model.Client, in ClientInput) {
	c.Name = strings.TrimSpace(in.Name)
	c.ContactPerson = strings.TrimSpace(in.ContactPerson)
	c.Email = strings.TrimSpace(in.Email)
	c.Phone = strings.TrimSpace(in.Phone)
	c.Address = strings.TrimSpace(in.Address)
}
