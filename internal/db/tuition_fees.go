package db

import (
	"context"
	"database/sql"
	"errors"

	"github.com/Spok95/academy-tuition/internal/ctxutil"
	"github.com/Spok95/academy-tuition/internal/models"
)

const tuitionFeeColumns = `
	id, class_id, student_id, year, month, class_name, student_name,
	period_start_date, period_end_date, sessions_count, per_session_fee, amount,
	carryover_from_prev, carryover_to_next, payment_status, created_at, updated_at`

func scanTuitionFee(row interface{ Scan(...any) error }) (*models.TuitionFee, error) {
	var f models.TuitionFee
	err := row.Scan(
		&f.ID, &f.ClassID, &f.StudentID, &f.Year, &f.Month, &f.ClassName, &f.StudentName,
		&f.PeriodStartDate, &f.PeriodEndDate, &f.SessionsCount, &f.PerSessionFee, &f.Amount,
		&f.CarryoverFromPrev, &f.CarryoverToNext, &f.PaymentStatus, &f.CreatedAt, &f.UpdatedAt,
	)
	if err != nil {
		return nil, notFound(err)
	}
	return &f, nil
}

// InsertTuitionFeeIfAbsent вставляет начисление, если для (class, student, year, month) его ещё нет.
// inserted=false означает, что запись уже была; существующая не трогается.
func InsertTuitionFeeIfAbsent(ctx context.Context, q Querier, f models.TuitionFee) (id int64, inserted bool, err error) {
	err = q.QueryRowContext(ctx, `
		INSERT INTO tuition_fees (
			class_id, student_id, year, month, class_name, student_name,
			period_start_date, period_end_date, sessions_count, per_session_fee, amount,
			carryover_from_prev, payment_status
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (class_id, student_id, year, month) DO NOTHING
		RETURNING id
	`, f.ClassID, f.StudentID, f.Year, f.Month, f.ClassName, f.StudentName,
		f.PeriodStartDate, f.PeriodEndDate, f.SessionsCount, f.PerSessionFee, f.Amount,
		f.CarryoverFromPrev, string(f.PaymentStatus),
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return id, true, nil
}

func GetTuitionFee(ctx context.Context, database *sql.DB, id int64) (*models.TuitionFee, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()
	return scanTuitionFee(database.QueryRowContext(ctx, `SELECT `+tuitionFeeColumns+` FROM tuition_fees WHERE id = $1`, id))
}

// LockTuitionFee читает начисление с блокировкой строки до конца транзакции.
func LockTuitionFee(ctx context.Context, tx *sql.Tx, id int64) (*models.TuitionFee, error) {
	return scanTuitionFee(tx.QueryRowContext(ctx, `SELECT `+tuitionFeeColumns+` FROM tuition_fees WHERE id = $1 FOR UPDATE`, id))
}

func FindTuitionFee(ctx context.Context, database *sql.DB, classID, studentID int64, year, month int) (*models.TuitionFee, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()
	return scanTuitionFee(database.QueryRowContext(ctx, `
		SELECT `+tuitionFeeColumns+` FROM tuition_fees
		WHERE class_id = $1 AND student_id = $2 AND year = $3 AND month = $4
	`, classID, studentID, year, month))
}

// UpdateTuitionTotals: единственное место, где пишутся sessions_count и amount.
func UpdateTuitionTotals(ctx context.Context, q Querier, id int64, sessionsCount int, amount int64) error {
	res, err := q.ExecContext(ctx, `
		UPDATE tuition_fees
		SET sessions_count = $2, amount = $3, updated_at = now()
		WHERE id = $1
	`, id, sessionsCount, amount)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func IncrementCarryoverToNext(ctx context.Context, q Querier, id int64) error {
	_, err := q.ExecContext(ctx, `
		UPDATE tuition_fees SET carryover_to_next = carryover_to_next + 1, updated_at = now() WHERE id = $1
	`, id)
	return err
}

// ListTuitionFeeIDs: все начисления, постранично по id (для сверки).
func ListTuitionFeeIDs(ctx context.Context, database *sql.DB, afterID int64, limit int) ([]int64, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	rows, err := database.QueryContext(ctx, `
		SELECT id FROM tuition_fees WHERE id > $1 ORDER BY id LIMIT $2
	`, afterID, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
