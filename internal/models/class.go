package models

import "time"

type Class struct {
	ID               int64  `db:"id"`
	Name             string `db:"name"`
	MonthlyFee       int64  `db:"monthly_fee"`
	SessionsPerMonth *int   `db:"sessions_per_month"`
	IsActive         bool   `db:"is_active"`
}

// WeeklySlot: одна строка недельного расписания класса.
type WeeklySlot struct {
	ID        int64        `db:"id"`
	ClassID   int64        `db:"class_id"`
	DayOfWeek time.Weekday `db:"day_of_week"`
	StartTime string       `db:"start_time"` // "HH:MM"
	EndTime   string       `db:"end_time"`
}

type Student struct {
	ID   int64  `db:"id"`
	Name string `db:"name"`
}
