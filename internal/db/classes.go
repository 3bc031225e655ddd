package db

import (
	"context"
	"database/sql"
	"time"

	"github.com/lib/pq"

	"github.com/Spok95/academy-tuition/internal/ctxutil"
	"github.com/Spok95/academy-tuition/internal/models"
)

func GetClassByID(ctx context.Context, database *sql.DB, id int64) (*models.Class, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	var c models.Class
	var spm sql.NullInt32
	err := database.QueryRowContext(ctx, `
		SELECT id, name, monthly_fee, sessions_per_month, is_active
		FROM classes WHERE id = $1
	`, id).Scan(&c.ID, &c.Name, &c.MonthlyFee, &spm, &c.IsActive)
	if err != nil {
		return nil, notFound(err)
	}
	if spm.Valid {
		v := int(spm.Int32)
		c.SessionsPerMonth = &v
	}
	return &c, nil
}

// ListWeeklySlots: недельное расписание класса, по дню недели и времени начала.
func ListWeeklySlots(ctx context.Context, database *sql.DB, classID int64) ([]models.WeeklySlot, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	rows, err := database.QueryContext(ctx, `
		SELECT id, class_id, day_of_week,
		       to_char(start_time, 'HH24:MI'), to_char(end_time, 'HH24:MI')
		FROM class_schedules
		WHERE class_id = $1
		ORDER BY day_of_week, start_time
	`, classID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []models.WeeklySlot
	for rows.Next() {
		var s models.WeeklySlot
		var dow int
		if err := rows.Scan(&s.ID, &s.ClassID, &dow, &s.StartTime, &s.EndTime); err != nil {
			return nil, err
		}
		s.DayOfWeek = time.Weekday(dow)
		out = append(out, s)
	}
	return out, rows.Err()
}

// SiblingPeriodEndDates: последние непустые даты конца периода у других активных классов,
// у которых есть хотя бы один общий день недели. От самой свежей, не более limit.
func SiblingPeriodEndDates(ctx context.Context, database *sql.DB, classID int64, weekdays []int64, limit int) ([]time.Time, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	rows, err := database.QueryContext(ctx, `
		SELECT DISTINCT tf.period_end_date
		FROM tuition_fees tf
		JOIN classes c ON c.id = tf.class_id
		WHERE c.is_active
		  AND tf.class_id <> $1
		  AND tf.period_end_date IS NOT NULL
		  AND EXISTS (
		      SELECT 1 FROM class_schedules cs
		      WHERE cs.class_id = tf.class_id AND cs.day_of_week = ANY($2)
		  )
		ORDER BY tf.period_end_date DESC
		LIMIT $3
	`, classID, pq.Array(weekdays), limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []time.Time
	for rows.Next() {
		var d time.Time
		if err := rows.Scan(&d); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func CreateClass(ctx context.Context, database *sql.DB, c models.Class) (int64, error) {
	var id int64
	err := database.QueryRowContext(ctx, `
		INSERT INTO classes (name, monthly_fee, sessions_per_month, is_active)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, c.Name, c.MonthlyFee, c.SessionsPerMonth, c.IsActive).Scan(&id)
	return id, err
}

func AddWeeklySlot(ctx context.Context, database *sql.DB, s models.WeeklySlot) (int64, error) {
	var id int64
	err := database.QueryRowContext(ctx, `
		INSERT INTO class_schedules (class_id, day_of_week, start_time, end_time)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, s.ClassID, int(s.DayOfWeek), s.StartTime, s.EndTime).Scan(&id)
	return id, err
}
