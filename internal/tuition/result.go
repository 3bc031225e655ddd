package tuition

import (
	"time"

	"github.com/Spok95/academy-tuition/internal/models"
)

// Result: итог генерации, оценка суммы до записи в БД.
type Result struct {
	Sessions         []GeneratedSession `json:"sessions"`
	PeriodStartDate  time.Time          `json:"period_start_date"`
	PeriodEndDate    time.Time          `json:"period_end_date"`
	ClosureDays      int                `json:"closure_days"`
	BillableCount    int                `json:"billable_count"`
	PerSessionFee    int64              `json:"per_session_fee"`
	CalculatedAmount int64              `json:"calculated_amount"`
}

// Summarize собирает Result. endDate обычно результат AlignEndDate.
func Summarize(start time.Time, sessions []GeneratedSession, perSessionFee int64, endDate time.Time) *Result {
	r := &Result{
		Sessions:        sessions,
		PeriodStartDate: Day(start),
		PeriodEndDate:   Day(endDate),
		PerSessionFee:   perSessionFee,
	}
	for _, s := range sessions {
		if s.Status.Billable() {
			r.BillableCount++
		} else if s.Status == models.StatusClosure {
			r.ClosureDays++
		}
	}
	r.CalculatedAmount = CalculatedAmount(r.BillableCount, perSessionFee)
	return r
}

// LastDate: дата последнего сгенерированного занятия (или start, если пусто).
func LastDate(start time.Time, sessions []GeneratedSession) time.Time {
	if len(sessions) == 0 {
		return Day(start)
	}
	return sessions[len(sessions)-1].Date
}
