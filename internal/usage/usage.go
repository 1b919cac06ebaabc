// Package usage turns a spray schedule into average daily liquid consumption
// and projects the remaining level of a dispenser from its last refill.
package usage

import (
	"fmt"
	"math"

	"dispenser-tracker-backend/internal/model"
	"dispenser-tracker-backend/internal/parse"
)

// DefaultMLPerSecond is the volume dispensed per second of spray when neither
// the instance nor the schedule carries a rate.
const DefaultMLPerSecond = 0.1

// Result is the consumption estimate for one schedule.
type Result struct {
	DailyML float64
	// CycleML is daily/24 for time-range schedules and one full cycle for
	// interval schedules.
	CycleML    float64
	ActiveDays int
	Warnings   []string
}

// EffectiveRate picks the ml/hour rate to use: the instance override first,
// then the schedule default. Zero means no rate.
func EffectiveRate(instanceRate, scheduleRate *float64) float64 {
	if instanceRate != nil && *instanceRate > 0 {
		return *instanceRate
	}
	if scheduleRate != nil && *scheduleRate > 0 {
		return *scheduleRate
	}
	return 0
}

// DailyUsage computes the average ml consumed per calendar day. It never
// fails; malformed parts of the schedule are skipped and reported in Warnings.
func DailyUsage(s *model.Schedule, instanceRate *float64) Result {
	if s == nil {
		return Result{}
	}
	rate := EffectiveRate(instanceRate, s.MLPerHour)

	if len(s.TimeRanges) > 0 {
		res := timeRangeUsage(s.TimeRanges, rate, s.DaysOfWeek)
		if len(s.Intervals) > 0 {
			res.Warnings = append(res.Warnings,
				fmt.Sprintf("schedule %s has both time ranges and intervals; intervals ignored", s.ID))
		}
		return res
	}
	if len(s.Intervals) > 0 {
		return intervalUsage(s.Intervals, rate, s.DailyCycles)
	}
	return Result{ActiveDays: 7}
}

func timeRangeUsage(ranges []model.ScheduleTimeRange, rate float64, days []byte) Result {
	var res Result
	var sprayHours, directML float64

	for i, tr := range ranges {
		start, err := parse.ClockMinutes(tr.StartTime)
		if err != nil {
			res.Warnings = append(res.Warnings, fmt.Sprintf("time range %d skipped: %v", i, err))
			continue
		}
		end, err := parse.ClockMinutes(tr.EndTime)
		if err != nil {
			res.Warnings = append(res.Warnings, fmt.Sprintf("time range %d skipped: %v", i, err))
			continue
		}
		if end < start {
			end += parse.MinutesPerDay
		}

		cycle := tr.SpraySeconds + tr.PauseSeconds
		if cycle <= 0 {
			continue
		}
		cycles := float64((end-start)*60) / float64(cycle)
		spraySeconds := cycles * float64(tr.SpraySeconds)

		if rate > 0 {
			sprayHours += spraySeconds / 3600
		} else {
			directML += spraySeconds * DefaultMLPerSecond
		}
	}

	perDay := directML
	if rate > 0 {
		perDay = sprayHours * rate
	}

	res.ActiveDays = 7
	if d, ok := parse.DaysOfWeek(days); ok {
		res.ActiveDays = len(d)
	}
	res.DailyML = perDay * float64(res.ActiveDays) / 7
	res.CycleML = res.DailyML / 24
	return res
}

func intervalUsage(intervals []model.ScheduleInterval, rate float64, dailyCycles *int) Result {
	spray := 0
	for _, iv := range intervals {
		spray += iv.SpraySeconds
	}

	perCycle := float64(spray) * DefaultMLPerSecond
	if rate > 0 {
		perCycle = float64(spray) / 3600 * rate
	}

	cycles := 1
	if dailyCycles != nil && *dailyCycles > 0 {
		cycles = *dailyCycles
	}
	return Result{
		DailyML:    perCycle * float64(cycles),
		CycleML:    perCycle,
		ActiveDays: 7,
	}
}

// Round2 rounds to two decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
