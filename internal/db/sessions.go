package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Spok95/academy-tuition/internal/ctxutil"
	"github.com/Spok95/academy-tuition/internal/models"
)

const sessionColumns = `id, tuition_fee_id, session_number, session_date, status, closure_id, original_session_id, note`

func scanSession(row interface{ Scan(...any) error }) (*models.Session, error) {
	var s models.Session
	if err := row.Scan(&s.ID, &s.TuitionFeeID, &s.SessionNumber, &s.SessionDate, &s.Status,
		&s.ClosureID, &s.OriginalSessionID, &s.Note); err != nil {
		return nil, notFound(err)
	}
	return &s, nil
}

// InsertSessions пачкой вставляет занятия начисления. Номера берутся из s.SessionNumber.
func InsertSessions(ctx context.Context, tx *sql.Tx, tuitionFeeID int64, sessions []models.Session) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO class_sessions (tuition_fee_id, session_number, session_date, status, closure_id, original_session_id, note)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`)
	if err != nil {
		return err
	}
	defer func() { _ = stmt.Close() }()

	for _, s := range sessions {
		if _, err := stmt.ExecContext(ctx, tuitionFeeID, s.SessionNumber, s.SessionDate, string(s.Status),
			s.ClosureID, s.OriginalSessionID, s.Note); err != nil {
			return fmt.Errorf("session #%d: %w", s.SessionNumber, err)
		}
	}
	return nil
}

// InsertSession добавляет одно занятие с номером max+1 и возвращает его.
// Вызывать под блокировкой начисления (LockTuitionFee).
func InsertSession(ctx context.Context, tx *sql.Tx, s models.Session) (*models.Session, error) {
	return scanSession(tx.QueryRowContext(ctx, `
		INSERT INTO class_sessions (tuition_fee_id, session_number, session_date, status, closure_id, original_session_id, note)
		SELECT $1::bigint, COALESCE(MAX(session_number), 0) + 1, $2::date, $3::text, $4::bigint, $5::bigint, $6::text
		FROM class_sessions WHERE tuition_fee_id = $1::bigint
		RETURNING `+sessionColumns,
		s.TuitionFeeID, s.SessionDate, string(s.Status), s.ClosureID, s.OriginalSessionID, s.Note))
}

func GetSession(ctx context.Context, q Querier, id int64) (*models.Session, error) {
	return scanSession(q.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM class_sessions WHERE id = $1`, id))
}

// LockSession читает занятие с блокировкой строки.
func LockSession(ctx context.Context, tx *sql.Tx, id int64) (*models.Session, error) {
	return scanSession(tx.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM class_sessions WHERE id = $1 FOR UPDATE`, id))
}

func ListSessions(ctx context.Context, database *sql.DB, tuitionFeeID int64) ([]models.Session, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	rows, err := database.QueryContext(ctx, `
		SELECT `+sessionColumns+` FROM class_sessions
		WHERE tuition_fee_id = $1
		ORDER BY session_number
	`, tuitionFeeID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []models.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

func ListSessionStatuses(ctx context.Context, q Querier, tuitionFeeID int64) ([]models.SessionStatus, error) {
	rows, err := q.QueryContext(ctx, `SELECT status FROM class_sessions WHERE tuition_fee_id = $1`, tuitionFeeID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []models.SessionStatus
	for rows.Next() {
		var st models.SessionStatus
		if err := rows.Scan(&st); err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

// UpdateSessionStatus пишет статус, closure_id и note. Проверка перехода на вызывающей стороне.
func UpdateSessionStatus(ctx context.Context, q Querier, s models.Session) error {
	res, err := q.ExecContext(ctx, `
		UPDATE class_sessions SET status = $2, closure_id = $3, note = $4 WHERE id = $1
	`, s.ID, string(s.Status), s.ClosureID, s.Note)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// CloseScheduledSessions переводит scheduled-занятия на дату в closure.
// classID == nil затрагивает все классы. Возвращает id затронутых начислений (по одному на занятие).
func CloseScheduledSessions(ctx context.Context, q Querier, closureID int64, date time.Time, classID *int64) ([]int64, error) {
	return collectIDs(q.QueryContext(ctx, `
		UPDATE class_sessions s
		SET status = 'closure', closure_id = $1
		FROM tuition_fees f
		WHERE f.id = s.tuition_fee_id
		  AND s.session_date = $2
		  AND s.status = 'scheduled'
		  AND ($3::bigint IS NULL OR f.class_id = $3)
		RETURNING s.tuition_fee_id
	`, closureID, date, classID))
}

// ReopenClosedSessions возвращает в scheduled все занятия, закрытые выходным closureID.
func ReopenClosedSessions(ctx context.Context, q Querier, closureID int64) ([]int64, error) {
	return collectIDs(q.QueryContext(ctx, `
		UPDATE class_sessions
		SET status = 'scheduled', closure_id = NULL
		WHERE closure_id = $1 AND status = 'closure'
		RETURNING tuition_fee_id
	`, closureID))
}

func collectIDs(rows *sql.Rows, err error) ([]int64, error) {
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

// LockFeesWithScheduledOn блокирует начисления, у которых есть scheduled-занятие на date.
// Порядок блокировок везде один: сначала начисление, потом его занятия.
func LockFeesWithScheduledOn(ctx context.Context, tx *sql.Tx, date time.Time, classID *int64) ([]int64, error) {
	return collectIDs(tx.QueryContext(ctx, `
		SELECT f.id
		FROM tuition_fees f
		WHERE ($2::bigint IS NULL OR f.class_id = $2)
		  AND EXISTS (
		      SELECT 1 FROM class_sessions s
		      WHERE s.tuition_fee_id = f.id AND s.session_date = $1 AND s.status = 'scheduled'
		  )
		ORDER BY f.id
		FOR UPDATE
	`, date, classID))
}

// LockFeesWithClosure блокирует начисления, у которых есть занятия, закрытые closureID.
func LockFeesWithClosure(ctx context.Context, tx *sql.Tx, closureID int64) ([]int64, error) {
	return collectIDs(tx.QueryContext(ctx, `
		SELECT f.id
		FROM tuition_fees f
		WHERE EXISTS (
		      SELECT 1 FROM class_sessions s
		      WHERE s.tuition_fee_id = f.id AND s.closure_id = $1 AND s.status = 'closure'
		  )
		ORDER BY f.id
		FOR UPDATE
	`, closureID))
}
