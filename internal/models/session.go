package models

import "time"

type SessionStatus string

const (
	StatusScheduled SessionStatus = "scheduled"
	StatusClosure   SessionStatus = "closure"
	StatusCancelled SessionStatus = "cancelled"
	StatusCarryover SessionStatus = "carryover"
	StatusAttended  SessionStatus = "attended"
	StatusAbsent    SessionStatus = "absent"
	StatusMakeup    SessionStatus = "makeup"
)

// AllStatuses перечисляет все допустимые значения (совпадает с CHECK в миграции).
var AllStatuses = []SessionStatus{
	StatusScheduled, StatusClosure, StatusCancelled, StatusCarryover,
	StatusAttended, StatusAbsent, StatusMakeup,
}

func (s SessionStatus) Valid() bool {
	for _, v := range AllStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// Billable: занятие входит в оплату. Итоги посещаемости считаются как scheduled.
func (s SessionStatus) Billable() bool {
	switch s {
	case StatusCarryover, StatusCancelled, StatusClosure:
		return false
	}
	return true
}

type Session struct {
	ID                int64         `db:"id"`
	TuitionFeeID      int64         `db:"tuition_fee_id"`
	SessionNumber     int           `db:"session_number"`
	SessionDate       time.Time     `db:"session_date"`
	Status            SessionStatus `db:"status"`
	ClosureID         *int64        `db:"closure_id"`
	OriginalSessionID *int64        `db:"original_session_id"`
	Note              *string       `db:"note"`
}
