package dispenser

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordRefill_CapsAtCapacity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	client := f.client(t, "Alpha")
	inst := f.instance(t, DispenserInput{ClientID: client, UniqueCode: "R-1", RefillCapacityML: f64(500), CurrentLevelML: f64(100)})

	entry, err := f.m.RecordRefill(ctx, inst.ID, RefillInput{
		TechnicianUsername: "tech1",
		RefillAmountML:     250,
		LevelBeforeRefill:  f64(300),
	})
	require.NoError(t, err)
	assert.Equal(t, 300.0, entry.LevelBeforeRefill)
	assert.Equal(t, 500.0, entry.CurrentMLRefill)

	stored, err := f.s.GetInstance(ctx, inst.ID)
	require.NoError(t, err)
	assert.Equal(t, 500.0, stored.CurrentLevelML)
	require.NotNil(t, stored.LastRefillDate)
	assert.True(t, fixedNow.Equal(*stored.LastRefillDate))
}

func TestRecordRefill_LevelStaysInRange(t *testing.T) {
	testCases := []struct {
		name     string
		stored   float64
		in       RefillInput
		expected float64
	}{
		{name: "stored level plus amount", stored: 100, in: RefillInput{RefillAmountML: 150}, expected: 250},
		{name: "negative supplied level ignored", stored: 100, in: RefillInput{RefillAmountML: 50, LevelBeforeRefill: f64(-5)}, expected: 150},
		{name: "caller level after wins", stored: 100, in: RefillInput{RefillAmountML: 50, CurrentMLRefill: f64(420)}, expected: 420},
		{name: "caller level after capped", stored: 100, in: RefillInput{RefillAmountML: 50, CurrentMLRefill: f64(9000)}, expected: 500},
		{name: "negative amount floors at zero", stored: 100, in: RefillInput{RefillAmountML: -400}, expected: 0},
		{name: "zero amount", stored: 100, in: RefillInput{}, expected: 100},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()
			client := f.client(t, "Alpha")
			inst := f.instance(t, DispenserInput{ClientID: client, UniqueCode: "R-1", RefillCapacityML: f64(500), CurrentLevelML: f64(tc.stored)})

			entry, err := f.m.RecordRefill(ctx, inst.ID, tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, entry.CurrentMLRefill)

			stored, err := f.s.GetInstance(ctx, inst.ID)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, stored.CurrentLevelML)
			assert.GreaterOrEqual(t, stored.CurrentLevelML, 0.0)
			assert.LessOrEqual(t, stored.CurrentLevelML, stored.RefillCapacityML)
		})
	}
}

func TestRecordRefill_CountsAndIDs(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	client := f.client(t, "Alpha")
	inst := f.instance(t, DispenserInput{ClientID: client, UniqueCode: "R-1", RefillCapacityML: f64(500), Location: "Lobby", FragranceCode: "OWN"})

	first, err := f.m.RecordRefill(ctx, inst.ID, RefillInput{RefillAmountML: 10})
	require.NoError(t, err)
	second, err := f.m.RecordRefill(ctx, inst.ID, RefillInput{RefillAmountML: 10})
	require.NoError(t, err)

	assert.Equal(t, 1, first.NumberOfRefillsDone)
	assert.Equal(t, 2, second.NumberOfRefillsDone)
	assert.NotEqual(t, first.ID, second.ID)
	// instance ids are id-NNNN, so the trailing six characters are "d-0001"
	assert.Regexp(t, regexp.MustCompile(`^refill_20240603120000000000_d-0001_2$`), second.ID)

	// snapshot fields
	assert.Equal(t, client, *second.ClientID)
	assert.Equal(t, "R-1", second.MachineUniqueCode)
	assert.Equal(t, "Lobby", second.Location)
	assert.Equal(t, "OWN", second.FragranceCode)
}

func TestRecordRefill_FragranceFromNotes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	client := f.client(t, "Alpha")
	inst := f.instance(t, DispenserInput{ClientID: client, UniqueCode: "R-1", RefillCapacityML: f64(500), FragranceCode: "OWN"})

	fromNotes, err := f.m.RecordRefill(ctx, inst.ID, RefillInput{Notes: "swapped bottle. fragrance code: LAV-2"})
	require.NoError(t, err)
	assert.Equal(t, "LAV-2", fromNotes.FragranceCode)

	explicit, err := f.m.RecordRefill(ctx, inst.ID, RefillInput{FragranceCode: "CIT-9", Notes: "Fragrance Code: LAV-2"})
	require.NoError(t, err)
	assert.Equal(t, "CIT-9", explicit.FragranceCode)
}

func TestRecordRefill_RequestTimestamp(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	client := f.client(t, "Alpha")
	inst := f.instance(t, DispenserInput{ClientID: client, UniqueCode: "R-1", RefillCapacityML: f64(500)})

	at := time.Date(2024, 6, 1, 8, 0, 0, 0, time.FixedZone("UTC+2", 2*3600))
	entry, err := f.m.RecordRefill(ctx, inst.ID, RefillInput{RefillAmountML: 1, Timestamp: &at})
	require.NoError(t, err)
	assert.True(t, at.Equal(entry.Timestamp))
	assert.Equal(t, time.UTC, entry.Timestamp.Location())
}

func TestRecordRefill_UnknownDispenser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.m.RecordRefill(ctx, "missing", RefillInput{RefillAmountML: 10})
	assertKind(t, err, ErrNotFound, CodeNotFound)

	// templates are catalog entries and cannot be refilled
	d, err := f.m.CreateDispenser(ctx, DispenserInput{SKU: "T", RefillCapacityML: f64(100)})
	require.NoError(t, err)
	_, err = f.m.RecordRefill(ctx, d.Template.ID, RefillInput{RefillAmountML: 10})
	assertKind(t, err, ErrNotFound, CodeNotFound)
}
