package models

import "time"

type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
)

// TuitionFee: начисление за период обучения одного ученика в одном классе.
// Кортеж (ClassID, StudentID, Year, Month) уникален.
// SessionsCount и Amount производные, их пишет только пересчёт.
type TuitionFee struct {
	ID                int64         `db:"id"`
	ClassID           int64         `db:"class_id"`
	StudentID         int64         `db:"student_id"`
	Year              int           `db:"year"`
	Month             int           `db:"month"`
	ClassName         string        `db:"class_name"`
	StudentName       string        `db:"student_name"`
	PeriodStartDate   time.Time     `db:"period_start_date"`
	PeriodEndDate     *time.Time    `db:"period_end_date"`
	SessionsCount     int           `db:"sessions_count"`
	PerSessionFee     int64         `db:"per_session_fee"`
	Amount            int64         `db:"amount"`
	CarryoverFromPrev int           `db:"carryover_from_prev"`
	CarryoverToNext   int           `db:"carryover_to_next"`
	PaymentStatus     PaymentStatus `db:"payment_status"`
	CreatedAt         time.Time     `db:"created_at"`
	UpdatedAt         time.Time     `db:"updated_at"`
}
