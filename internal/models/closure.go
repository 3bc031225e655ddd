package models

import "time"

// Closure: день, когда занятия не проводятся. ClassID == nil значит вся академия.
type Closure struct {
	ID      int64     `db:"id"`
	Date    time.Time `db:"closure_date"`
	ClassID *int64    `db:"class_id"`
	Reason  *string   `db:"reason"`
}
