package usage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"gorm.io/datatypes"

	"dispenser-tracker-backend/internal/model"
)

func universalSchedule() *model.Schedule {
	return &model.Schedule{
		ID:   "universal_schedule",
		Type: model.ScheduleFixed,
		TimeRanges: []model.ScheduleTimeRange{
			{StartTime: "00:00", EndTime: "06:00", SpraySeconds: 20, PauseSeconds: 40},
			{StartTime: "06:00", EndTime: "12:00", SpraySeconds: 30, PauseSeconds: 30},
			{StartTime: "12:00", EndTime: "15:00", SpraySeconds: 50, PauseSeconds: 20},
			{StartTime: "15:00", EndTime: "23:55", SpraySeconds: 100, PauseSeconds: 10},
		},
	}
}

func ptr[T any](v T) *T { return &v }

func TestDailyUsage_UniversalScheduleDefaultRate(t *testing.T) {
	res := DailyUsage(universalSchedule(), nil)

	// 720 + 1080 + 771.43 + 2918.18
	assert.InDelta(t, 5489.61, res.DailyML, 0.01)
	assert.InDelta(t, 5489.61/24, res.CycleML, 0.01)
	assert.Equal(t, 7, res.ActiveDays)
	assert.Empty(t, res.Warnings)
}

func TestDailyUsage_FirstBand(t *testing.T) {
	s := &model.Schedule{TimeRanges: []model.ScheduleTimeRange{
		{StartTime: "00:00", EndTime: "06:00", SpraySeconds: 20, PauseSeconds: 40},
	}}
	assert.InDelta(t, 720.0, DailyUsage(s, nil).DailyML, 1e-9)
}

func TestDailyUsage_DaysOfWeekAmortized(t *testing.T) {
	everyDay := DailyUsage(universalSchedule(), nil)

	s := universalSchedule()
	s.DaysOfWeek = datatypes.JSON(`[0,1]`)
	twoDays := DailyUsage(s, nil)

	assert.Equal(t, 2, twoDays.ActiveDays)
	assert.InDelta(t, everyDay.DailyML*2/7, twoDays.DailyML, 1e-9)
}

func TestDailyUsage_UnparseableDaysMeansEveryDay(t *testing.T) {
	s := universalSchedule()
	s.DaysOfWeek = datatypes.JSON(`"sometimes"`)

	res := DailyUsage(s, nil)
	assert.Equal(t, 7, res.ActiveDays)
	assert.InDelta(t, 5489.61, res.DailyML, 0.01)
}

func TestDailyUsage_RateResolution(t *testing.T) {
	s := &model.Schedule{
		MLPerHour: ptr(2.0),
		TimeRanges: []model.ScheduleTimeRange{
			// 360 cycles x 20s = 2h of spray
			{StartTime: "00:00", EndTime: "06:00", SpraySeconds: 20, PauseSeconds: 40},
		},
	}

	testCases := []struct {
		name         string
		instanceRate *float64
		expected     float64
	}{
		{name: "instance rate wins", instanceRate: ptr(10.0), expected: 20},
		{name: "schedule rate when instance unset", instanceRate: nil, expected: 4},
		{name: "zero instance rate counts as absent", instanceRate: ptr(0.0), expected: 4},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.InDelta(t, tc.expected, DailyUsage(s, tc.instanceRate).DailyML, 1e-9)
		})
	}
}

func TestDailyUsage_MidnightCrossing(t *testing.T) {
	s := &model.Schedule{TimeRanges: []model.ScheduleTimeRange{
		{StartTime: "22:00", EndTime: "02:00", SpraySeconds: 10, PauseSeconds: 50},
	}}
	// 4h = 240 cycles x 10s x 0.1
	assert.InDelta(t, 240.0, DailyUsage(s, nil).DailyML, 1e-9)
}

func TestDailyUsage_SkipsDegenerateAndMalformedRanges(t *testing.T) {
	s := &model.Schedule{TimeRanges: []model.ScheduleTimeRange{
		{StartTime: "00:00", EndTime: "06:00", SpraySeconds: 0, PauseSeconds: 0},
		{StartTime: "bad", EndTime: "06:00", SpraySeconds: 10, PauseSeconds: 10},
		{StartTime: "00:00", EndTime: "06:00", SpraySeconds: 20, PauseSeconds: 40},
	}}

	res := DailyUsage(s, nil)
	assert.InDelta(t, 720.0, res.DailyML, 1e-9)
	assert.Len(t, res.Warnings, 1)
}

func TestDailyUsage_Intervals(t *testing.T) {
	s := &model.Schedule{
		DailyCycles: ptr(4),
		Intervals: []model.ScheduleInterval{
			{SpraySeconds: 5, PauseSeconds: 55},
			{SpraySeconds: 10, PauseSeconds: 50},
		},
		DaysOfWeek: datatypes.JSON(`[0]`),
	}

	res := DailyUsage(s, nil)
	assert.InDelta(t, 1.5, res.CycleML, 1e-9)
	// no weekday weighting for interval schedules
	assert.InDelta(t, 6.0, res.DailyML, 1e-9)

	s.DailyCycles = nil
	assert.InDelta(t, 1.5, DailyUsage(s, nil).DailyML, 1e-9)

	s.DailyCycles = ptr(2)
	assert.InDelta(t, 2*15.0/3600*36, DailyUsage(s, ptr(36.0)).DailyML, 1e-9)
}

func TestDailyUsage_TimeRangesTakePrecedence(t *testing.T) {
	s := universalSchedule()
	s.Intervals = []model.ScheduleInterval{{SpraySeconds: 1000, PauseSeconds: 1}}
	s.DailyCycles = ptr(100)

	res := DailyUsage(s, nil)
	assert.InDelta(t, 5489.61, res.DailyML, 0.01)
	assert.Len(t, res.Warnings, 1)
}

func TestDailyUsage_Empty(t *testing.T) {
	assert.Zero(t, DailyUsage(&model.Schedule{}, nil).DailyML)
	assert.Zero(t, DailyUsage(nil, nil).DailyML)
}

func TestRound2(t *testing.T) {
	assert.Equal(t, 5489.61, Round2(5489.6103))
	assert.Equal(t, 0.5, Round2(0.499999))
}
