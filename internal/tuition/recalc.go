package tuition

import (
	"github.com/samber/lo"

	"github.com/Spok95/academy-tuition/internal/models"
)

type Totals struct {
	SessionsCount int   `json:"sessions_count"`
	Amount        int64 `json:"amount"`
}

// Recalculate считает производные поля начисления по текущему набору занятий:
// amount = max(0, billable - carryoverFromPrev) * perSessionFee.
func Recalculate(statuses []models.SessionStatus, carryoverFromPrev int, perSessionFee int64) Totals {
	billable := lo.CountBy(statuses, func(s models.SessionStatus) bool { return s.Billable() })
	charged := billable - carryoverFromPrev
	if charged < 0 {
		charged = 0
	}
	return Totals{
		SessionsCount: billable,
		Amount:        CalculatedAmount(charged, perSessionFee),
	}
}
