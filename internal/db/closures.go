package db

import (
	"context"
	"database/sql"
	"time"

	"github.com/Spok95/academy-tuition/internal/ctxutil"
	"github.com/Spok95/academy-tuition/internal/models"
)

func GetClosureByID(ctx context.Context, database *sql.DB, id int64) (*models.Closure, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	var c models.Closure
	err := database.QueryRowContext(ctx, `
		SELECT id, closure_date, class_id, reason FROM closures WHERE id = $1
	`, id).Scan(&c.ID, &c.Date, &c.ClassID, &c.Reason)
	if err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}

// ListClosuresForClass: выходные класса (собственные и общие для академии) в диапазоне [from, to].
func ListClosuresForClass(ctx context.Context, database *sql.DB, classID int64, from, to time.Time) ([]models.Closure, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	rows, err := database.QueryContext(ctx, `
		SELECT id, closure_date, class_id, reason
		FROM closures
		WHERE closure_date BETWEEN $2 AND $3
		  AND (class_id IS NULL OR class_id = $1)
		ORDER BY closure_date, id
	`, classID, from, to)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []models.Closure
	for rows.Next() {
		var c models.Closure
		if err := rows.Scan(&c.ID, &c.Date, &c.ClassID, &c.Reason); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func CreateClosure(ctx context.Context, database *sql.DB, c models.Closure) (int64, error) {
	var id int64
	err := database.QueryRowContext(ctx, `
		INSERT INTO closures (closure_date, class_id, reason) VALUES ($1, $2, $3) RETURNING id
	`, c.Date, c.ClassID, c.Reason).Scan(&id)
	return id, err
}
