package db

import (
	"context"
	"database/sql"

	"github.com/lib/pq"

	"github.com/Spok95/academy-tuition/internal/ctxutil"
	"github.com/Spok95/academy-tuition/internal/models"
)

// ListStudentsByIDs возвращает найденных учеников в порядке id. Отсутствующие id просто не попадают в ответ.
func ListStudentsByIDs(ctx context.Context, database *sql.DB, ids []int64) ([]models.Student, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	rows, err := database.QueryContext(ctx, `
		SELECT id, name FROM students WHERE id = ANY($1) ORDER BY id
	`, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	out := make([]models.Student, 0, len(ids))
	for rows.Next() {
		var s models.Student
		if err := rows.Scan(&s.ID, &s.Name); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func CreateStudent(ctx context.Context, database *sql.DB, name string) (int64, error) {
	var id int64
	err := database.QueryRowContext(ctx, `INSERT INTO students (name) VALUES ($1) RETURNING id`, name).Scan(&id)
	return id, err
}
