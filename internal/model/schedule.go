package model

import (
	"time"

	"gorm.io/datatypes"
)

// ScheduleType distinguishes built-in programs from user-defined ones.
type ScheduleType string

const (
	ScheduleFixed  ScheduleType = "fixed"
	ScheduleCustom ScheduleType = "custom"
)

// Schedule is a named dispensing program. A schedule is described either by
// time-of-day bands (TimeRanges) or by legacy spray/pause intervals repeated
// DailyCycles times per day.
type Schedule struct {
	ID              string         `gorm:"primaryKey;size:64" json:"id"`
	Name            string         `gorm:"size:256;not null" json:"name"`
	Type            ScheduleType   `gorm:"size:16;not null" json:"type"`
	DurationMinutes *int           `json:"duration_minutes,omitempty"`
	DailyCycles     *int           `json:"daily_cycles,omitempty"`
	MLPerHour       *float64       `json:"ml_per_hour,omitempty"`
	DaysOfWeek      datatypes.JSON `json:"days_of_week,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`

	// Associations
	TimeRanges []ScheduleTimeRange `gorm:"foreignKey:ScheduleID;constraint:OnDelete:CASCADE" json:"time_ranges"`
	Intervals  []ScheduleInterval  `gorm:"foreignKey:ScheduleID;constraint:OnDelete:CASCADE" json:"intervals"`
}

// ScheduleTimeRange is one time-of-day band with its own spray/pause cycle.
type ScheduleTimeRange struct {
	ID           int64  `gorm:"primaryKey" json:"-"`
	ScheduleID   string `gorm:"index;size:64;not null" json:"-"`
	Position     int    `gorm:"not null" json:"-"`
	StartTime    string `gorm:"size:5;not null" json:"start_time"`
	EndTime      string `gorm:"size:5;not null" json:"end_time"`
	SpraySeconds int    `gorm:"not null" json:"spray_seconds"`
	PauseSeconds int    `gorm:"not null" json:"pause_seconds"`
}

// ScheduleInterval is one spray/pause step of a legacy interval schedule.
type ScheduleInterval struct {
	ID           int64  `gorm:"primaryKey" json:"-"`
	ScheduleID   string `gorm:"index;size:64;not null" json:"-"`
	Position     int    `gorm:"not null" json:"-"`
	SpraySeconds int    `gorm:"not null" json:"spray_seconds"`
	PauseSeconds int    `gorm:"not null" json:"pause_seconds"`
}
