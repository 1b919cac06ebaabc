package dispenser

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"go.uber.org/zap/zapcore"

	"dispenser-tracker-backend/internal/model"
	"dispenser-tracker-backend/internal/store"
	"dispenser-tracker-backend/internal/testsupport"
)

var fixedNow = time.Date(2024, 6, 3, 12, 0, 0, 0, time.UTC)

type fixture struct {
	m    *Manager
	s    store.Store
	logs *observer.ObservedLogs
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	s := store.NewGormStore(testsupport.OpenDB(t))

	seq := 0
	m := NewManager(s, zap.New(core),
		WithClock(func() time.Time { return fixedNow }),
		WithIDGenerator(func() string {
			seq++
			return fmt.Sprintf("id-%04d", seq)
		}))
	return &fixture{m: m, s: s, logs: logs}
}

func (f *fixture) client(t *testing.T, name string) string {
	t.Helper()
	c, err := f.m.CreateClient(context.Background(), ClientInput{Name: name})
	require.NoError(t, err)
	return c.ID
}

func (f *fixture) instance(t *testing.T, in DispenserInput) *model.MachineInstance {
	t.Helper()
	d, err := f.m.CreateDispenser(context.Background(), in)
	require.NoError(t, err)
	require.NotNil(t, d.Instance)
	return d.Instance
}

func f64(v float64) *float64 { return &v }

func assertKind(t *testing.T, err error, kind error, code string) {
	t.Helper()
	require.Error(t, err)
	assert.True(t, errors.Is(err, kind), "expected %v, got %v", kind, err)
	var de *Error
	require.True(t, errors.As(err, &de))
	if code != "" {
		assert.Equal(t, code, de.Code)
	}
}

func TestCreateDispenser_TemplateDuplicateSKU(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	d, err := f.m.CreateDispenser(ctx, DispenserInput{SKU: "AROMA-001", Name: "Aroma", RefillCapacityML: f64(500)})
	require.NoError(t, err)
	require.NotNil(t, d.Template)
	assert.Equal(t, KindTemplate, d.Kind())

	_, err = f.m.CreateDispenser(ctx, DispenserInput{SKU: "AROMA-001", Name: "Again", RefillCapacityML: f64(500)})
	assertKind(t, err, ErrConflict, CodeDuplicateSKU)

	var de *Error
	require.True(t, errors.As(err, &de))
	assert.Equal(t, "sku", de.Field)
	assert.Equal(t, "AROMA-001", de.Value)
	assert.Equal(t, "conflict", de.ErrorKind())
}

func TestCreateDispenser_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	client := f.client(t, "Grand Hotel")

	testCases := []struct {
		name  string
		in    DispenserInput
		field string
	}{
		{name: "template without sku", in: DispenserInput{RefillCapacityML: f64(500)}, field: "sku"},
		{name: "template without capacity", in: DispenserInput{SKU: "X"}, field: "refill_capacity_ml"},
		{name: "instance without code", in: DispenserInput{ClientID: client, RefillCapacityML: f64(500)}, field: "unique_code"},
		{name: "unknown status", in: DispenserInput{ClientID: client, UniqueCode: "U1", RefillCapacityML: f64(500), Status: "broken"}, field: "status"},
		{name: "unknown client", in: DispenserInput{ClientID: "client_nobody", UniqueCode: "U1", RefillCapacityML: f64(500)}, field: "client_id"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.m.CreateDispenser(ctx, tc.in)
			assertKind(t, err, ErrInvalid, "")
			var de *Error
			require.True(t, errors.As(err, &de))
			assert.Equal(t, tc.field, de.Field)
		})
	}
}

func TestCreateDispenser_InstanceInheritsTemplate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	client := f.client(t, "Grand Hotel")

	_, err := f.m.CreateDispenser(ctx, DispenserInput{SKU: "AROMA-001", Name: "Aroma Pro", RefillCapacityML: f64(500), MLPerHour: f64(3)})
	require.NoError(t, err)

	inst := f.instance(t, DispenserInput{ClientID: client, SKU: "AROMA-001", UniqueCode: "GH-001", Location: "Lobby"})

	require.NotNil(t, inst.TemplateID)
	assert.Equal(t, "Aroma Pro", inst.Name)
	assert.Equal(t, 500.0, inst.RefillCapacityML)
	require.NotNil(t, inst.MLPerHour)
	assert.Equal(t, 3.0, *inst.MLPerHour)
	assert.Equal(t, model.StatusInstalled, inst.Status)
	require.NotNil(t, inst.InstallationDate)
	assert.True(t, fixedNow.Equal(*inst.InstallationDate))
}

func TestUniqueCodeAcrossStatuses(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.client(t, "Alpha")
	b := f.client(t, "Beta")

	f.instance(t, DispenserInput{ClientID: a, UniqueCode: "CODE-1", RefillCapacityML: f64(500), Status: "assigned"})
	f.instance(t, DispenserInput{ClientID: a, UniqueCode: "CODE-2", RefillCapacityML: f64(500)})

	// another assigned unit with a code already used by an assigned unit
	_, err := f.m.CreateDispenser(ctx, DispenserInput{ClientID: a, UniqueCode: "CODE-1", RefillCapacityML: f64(500), Status: "assigned"})
	assertKind(t, err, ErrConflict, CodeDuplicateUniqueCode)

	// installed code reused by an assigned unit
	_, err = f.m.CreateDispenser(ctx, DispenserInput{ClientID: b, UniqueCode: "CODE-2", RefillCapacityML: f64(500), Status: "assigned"})
	assertKind(t, err, ErrConflict, CodeDuplicateUniqueCode)

	// installed code reused by an installed unit
	_, err = f.m.CreateDispenser(ctx, DispenserInput{ClientID: a, UniqueCode: "CODE-2", RefillCapacityML: f64(500)})
	assertKind(t, err, ErrConflict, CodeDuplicateUniqueCode)

	// update to a code held by another instance
	third := f.instance(t, DispenserInput{ClientID: a, UniqueCode: "CODE-3", RefillCapacityML: f64(500)})
	_, err = f.m.UpdateDispenser(ctx, third.ID, DispenserInput{UniqueCode: "CODE-1"})
	assertKind(t, err, ErrConflict, CodeDuplicateUniqueCode)

	// keeping its own code is fine
	_, err = f.m.UpdateDispenser(ctx, third.ID, DispenserInput{UniqueCode: "CODE-3", Location: "Bar"})
	require.NoError(t, err)

	all, err := f.s.ListInstances(ctx, store.InstanceFilter{})
	require.NoError(t, err)
	seen := map[string]bool{}
	for _, inst := range all {
		assert.False(t, seen[inst.UniqueCode], "duplicate code %s", inst.UniqueCode)
		seen[inst.UniqueCode] = true
	}
}

func TestInstallFulfillsAssignment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	client := f.client(t, "Grand Hotel")

	assigned := f.instance(t, DispenserInput{ClientID: client, UniqueCode: "GH-7", RefillCapacityML: f64(500), Status: "assigned", Location: "Warehouse"})
	assert.Equal(t, model.StatusAssigned, assigned.Status)

	installed := f.instance(t, DispenserInput{ClientID: client, UniqueCode: "GH-7", Status: "installed", Location: "Lobby", CurrentLevelML: f64(500)})

	assert.Equal(t, assigned.ID, installed.ID)
	assert.Equal(t, model.StatusInstalled, installed.Status)
	assert.Equal(t, "Lobby", installed.Location)
	assert.Equal(t, 500.0, installed.CurrentLevelML)

	all, err := f.s.ListInstances(ctx, store.InstanceFilter{})
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, model.StatusInstalled, all[0].Status)
}

func TestInstallFulfillmentRejectsOtherClient(t *testing.T) {
	f := newFixture(t)
	a := f.client(t, "Alpha")
	b := f.client(t, "Beta")

	f.instance(t, DispenserInput{ClientID: a, UniqueCode: "X-1", RefillCapacityML: f64(500), Status: "assigned"})

	_, err := f.m.CreateDispenser(context.Background(), DispenserInput{ClientID: b, UniqueCode: "X-1", RefillCapacityML: f64(500)})
	assertKind(t, err, ErrConflict, CodeClientReassignment)
}

func TestClientImmutability(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.client(t, "Alpha")
	b := f.client(t, "Beta")
	inst := f.instance(t, DispenserInput{ClientID: a, UniqueCode: "A-1", RefillCapacityML: f64(500)})

	_, err := f.m.UpdateDispenser(ctx, inst.ID, DispenserInput{ClientID: b})
	assertKind(t, err, ErrConflict, CodeClientReassignment)

	d, err := f.m.UpdateDispenser(ctx, inst.ID, DispenserInput{ClientID: a, Location: "Spa"})
	require.NoError(t, err)
	assert.Equal(t, a, *d.Instance.ClientID)
	assert.Equal(t, "Spa", d.Instance.Location)

	stored, err := f.s.GetInstance(ctx, inst.ID)
	require.NoError(t, err)
	assert.Equal(t, a, *stored.ClientID)
}

func TestStatusTransitions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	client := f.client(t, "Alpha")
	inst := f.instance(t, DispenserInput{ClientID: client, UniqueCode: "S-1", RefillCapacityML: f64(500)})

	d, err := f.m.UpdateDispenser(ctx, inst.ID, DispenserInput{Status: "assigned"})
	require.NoError(t, err)
	assert.Equal(t, model.StatusAssigned, d.Instance.Status)

	assigned, err := f.s.ListInstances(ctx, store.InstanceFilter{Status: model.StatusAssigned})
	require.NoError(t, err)
	require.Len(t, assigned, 1)

	d, err = f.m.UpdateDispenser(ctx, inst.ID, DispenserInput{Status: "INSTALLED"})
	require.NoError(t, err)
	assert.Equal(t, model.StatusInstalled, d.Instance.Status)

	_, err = f.m.UpdateDispenser(ctx, inst.ID, DispenserInput{Status: "discontinued"})
	require.NoError(t, err)

	_, err = f.m.UpdateDispenser(ctx, inst.ID, DispenserInput{Status: "installed"})
	assertKind(t, err, ErrConflict, CodeInvalidTransition)

	_, err = f.m.UpdateDispenser(ctx, inst.ID, DispenserInput{Status: "retired"})
	assertKind(t, err, ErrInvalid, "")

	// edits that keep the terminal status are allowed
	_, err = f.m.UpdateDispenser(ctx, inst.ID, DispenserInput{Location: "Storage"})
	require.NoError(t, err)
}

func TestUpdateDispenser_NotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.m.UpdateDispenser(context.Background(), "missing", DispenserInput{Name: "x"})
	assertKind(t, err, ErrNotFound, CodeNotFound)
}

func TestTemplateImmutableWhileReferenced(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	client := f.client(t, "Alpha")

	d, err := f.m.CreateDispenser(ctx, DispenserInput{SKU: "AROMA-001", RefillCapacityML: f64(500)})
	require.NoError(t, err)
	tmplID := d.Template.ID

	// unreferenced templates can be edited
	d, err = f.m.UpdateDispenser(ctx, tmplID, DispenserInput{Name: "Aroma 1", RefillCapacityML: f64(600)})
	require.NoError(t, err)
	assert.Equal(t, 600.0, d.Template.RefillCapacityML)

	inst := f.instance(t, DispenserInput{ClientID: client, SKU: "AROMA-001", UniqueCode: "R-1"})
	assert.Equal(t, tmplID, *inst.TemplateID)

	_, err = f.m.UpdateDispenser(ctx, tmplID, DispenserInput{Name: "Renamed"})
	assertKind(t, err, ErrConflict, CodeTemplateReferenced)

	_, err = f.m.UpdateDispenser(ctx, tmplID, DispenserInput{ClientID: client})
	assertKind(t, err, ErrConflict, CodeTemplateClient)
}

func TestTemplateSKURevalidatedOnUpdate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.m.CreateDispenser(ctx, DispenserInput{SKU: "A", RefillCapacityML: f64(100)})
	require.NoError(t, err)
	d, err := f.m.CreateDispenser(ctx, DispenserInput{SKU: "B", RefillCapacityML: f64(100)})
	require.NoError(t, err)

	_, err = f.m.UpdateDispenser(ctx, d.Template.ID, DispenserInput{SKU: "A"})
	assertKind(t, err, ErrConflict, CodeDuplicateSKU)

	_, err = f.m.UpdateDispenser(ctx, d.Template.ID, DispenserInput{SKU: "B", Description: "same sku"})
	require.NoError(t, err)
}

func TestDeleteReferencedTemplate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	client := f.client(t, "Alpha")

	d, err := f.m.CreateDispenser(ctx, DispenserInput{SKU: "AROMA-001", RefillCapacityML: f64(500)})
	require.NoError(t, err)
	inst := f.instance(t, DispenserInput{ClientID: client, SKU: "AROMA-001", UniqueCode: "D-1"})

	err = f.m.DeleteDispenser(ctx, d.Template.ID)
	assertKind(t, err, ErrConflict, CodeTemplateReferenced)

	require.NoError(t, f.m.DeleteDispenser(ctx, inst.ID))
	require.NoError(t, f.m.DeleteDispenser(ctx, d.Template.ID))

	_, err = f.m.GetDispenser(ctx, d.Template.ID)
	assertKind(t, err, ErrNotFound, CodeNotFound)
}

func TestDeleteInstanceCascadesRefillLogs(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	client := f.client(t, "Alpha")
	inst := f.instance(t, DispenserInput{ClientID: client, UniqueCode: "C-1", RefillCapacityML: f64(500)})

	_, err := f.m.RecordRefill(ctx, inst.ID, RefillInput{RefillAmountML: 100})
	require.NoError(t, err)
	_, err = f.m.RecordRefill(ctx, inst.ID, RefillInput{RefillAmountML: 100})
	require.NoError(t, err)

	require.NoError(t, f.m.DeleteDispenser(ctx, inst.ID))

	logs, err := f.s.ListRefillLogs(ctx, inst.ID)
	require.NoError(t, err)
	assert.Empty(t, logs)

	err = f.m.DeleteDispenser(ctx, inst.ID)
	assertKind(t, err, ErrNotFound, CodeNotFound)
}

func TestListDispensers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.client(t, "Alpha")
	b := f.client(t, "Beta")

	_, err := f.m.CreateDispenser(ctx, DispenserInput{SKU: "T-1", RefillCapacityML: f64(500)})
	require.NoError(t, err)
	f.instance(t, DispenserInput{ClientID: a, UniqueCode: "L-1", RefillCapacityML: f64(500)})
	f.instance(t, DispenserInput{ClientID: b, UniqueCode: "L-2", RefillCapacityML: f64(500), Status: "assigned"})

	all, err := f.m.ListDispensers(ctx, ListFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, KindTemplate, all[0].Kind())

	onlyAssigned, err := f.m.ListDispensers(ctx, ListFilter{Status: model.StatusAssigned})
	require.NoError(t, err)
	require.Len(t, onlyAssigned, 1)
	assert.Equal(t, "L-2", onlyAssigned[0].Instance.UniqueCode)

	forA, err := f.m.ListDispensers(ctx, ListFilter{ClientID: a})
	require.NoError(t, err)
	require.Len(t, forA, 1)

	templates, err := f.m.ListDispensers(ctx, ListFilter{Kind: KindTemplate})
	require.NoError(t, err)
	require.Len(t, templates, 1)
}

func TestLevelClampedOnWrite(t *testing.T) {
	f := newFixture(t)
	client := f.client(t, "Alpha")

	inst := f.instance(t, DispenserInput{ClientID: client, UniqueCode: "O-1", RefillCapacityML: f64(500), CurrentLevelML: f64(900)})
	assert.Equal(t, 500.0, inst.CurrentLevelML)
	assert.Equal(t, 1, f.logs.FilterMessage("current_level_ml out of range, clamped").Len())
}

func TestAssignSchedule(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	client := f.client(t, "Alpha")
	inst := f.instance(t, DispenserInput{ClientID: client, UniqueCode: "AS-1", RefillCapacityML: f64(500)})

	sch, err := f.m.CreateSchedule(ctx, ScheduleInput{Name: "Lobby", Intervals: []model.ScheduleInterval{{SpraySeconds: 5, PauseSeconds: 55}}})
	require.NoError(t, err)

	updated, err := f.m.AssignSchedule(ctx, inst.ID, sch.ID)
	require.NoError(t, err)
	require.NotNil(t, updated.CurrentScheduleID)
	assert.Equal(t, sch.ID, *updated.CurrentScheduleID)

	_, err = f.m.AssignSchedule(ctx, inst.ID, "nope")
	assertKind(t, err, ErrNotFound, CodeNotFound)

	_, err = f.m.AssignSchedule(ctx, "nope", sch.ID)
	assertKind(t, err, ErrNotFound, CodeNotFound)

	cleared, err := f.m.AssignSchedule(ctx, inst.ID, "")
	require.NoError(t, err)
	assert.Nil(t, cleared.CurrentScheduleID)
}
