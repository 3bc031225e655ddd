package app

import (
	"github.com/Spok95/academy-tuition/internal/billing"
	"github.com/Spok95/academy-tuition/internal/models"
	"github.com/Spok95/academy-tuition/internal/tuition"
)

type generateRequest struct {
	StartDate string `json:"start_date"`
	Target    int    `json:"target"`
}

type materializeRequest struct {
	StartDate  string  `json:"start_date"`
	Target     int     `json:"target"`
	StudentIDs []int64 `json:"student_ids"`
}

type carryoverRequest struct {
	Reason string `json:"reason"`
}

type attendanceRequest struct {
	Status models.SessionStatus `json:"status"`
}

type replacementRequest struct {
	Date              string `json:"date"`
	OriginalSessionID int64  `json:"original_session_id"`
}

type sessionDTO struct {
	Date          string               `json:"date"`
	DayOfWeek     string               `json:"day_of_week"`
	Status        models.SessionStatus `json:"status"`
	ClosureID     *int64               `json:"closure_id,omitempty"`
	ClosureReason *string              `json:"closure_reason,omitempty"`
}

type resultDTO struct {
	Sessions         []sessionDTO `json:"sessions"`
	PeriodStartDate  string       `json:"period_start_date"`
	PeriodEndDate    string       `json:"period_end_date"`
	ClosureDays      int          `json:"closure_days"`
	BillableCount    int          `json:"billable_count"`
	PerSessionFee    int64        `json:"per_session_fee"`
	CalculatedAmount int64        `json:"calculated_amount"`
}

func toResultDTO(r *tuition.Result) resultDTO {
	out := resultDTO{
		Sessions:         make([]sessionDTO, 0, len(r.Sessions)),
		PeriodStartDate:  tuition.DateKey(r.PeriodStartDate),
		PeriodEndDate:    tuition.DateKey(r.PeriodEndDate),
		ClosureDays:      r.ClosureDays,
		BillableCount:    r.BillableCount,
		PerSessionFee:    r.PerSessionFee,
		CalculatedAmount: r.CalculatedAmount,
	}
	for _, s := range r.Sessions {
		out.Sessions = append(out.Sessions, sessionDTO{
			Date:          tuition.DateKey(s.Date),
			DayOfWeek:     s.DayOfWeek.String(),
			Status:        s.Status,
			ClosureID:     s.ClosureID,
			ClosureReason: s.ClosureReason,
		})
	}
	return out
}

type changeDTO struct {
	SessionID         int64                `json:"session_id"`
	TuitionFeeID      int64                `json:"tuition_fee_id"`
	SessionNumber     int                  `json:"session_number"`
	SessionDate       string               `json:"session_date"`
	Status            models.SessionStatus `json:"status"`
	OriginalSessionID *int64               `json:"original_session_id,omitempty"`
	Note              *string              `json:"note,omitempty"`
	SessionsCount     int                  `json:"sessions_count"`
	Amount            int64                `json:"amount"`
}

func toChangeDTO(ch *billing.Change) changeDTO {
	s := ch.Session
	return changeDTO{
		SessionID:         s.ID,
		TuitionFeeID:      s.TuitionFeeID,
		SessionNumber:     s.SessionNumber,
		SessionDate:       tuition.DateKey(s.SessionDate),
		Status:            s.Status,
		OriginalSessionID: s.OriginalSessionID,
		Note:              s.Note,
		SessionsCount:     ch.Totals.SessionsCount,
		Amount:            ch.Totals.Amount,
	}
}
