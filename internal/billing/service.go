// Package billing связывает расчёт занятий (tuition) с хранилищем: генерация,
// создание начислений, жизненный цикл занятий, выходные и пересчёт сумм.
package billing

import (
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/Spok95/academy-tuition/internal/tuition"
)

var (
	ErrEmptyResult         = errors.New("generation result has no sessions")
	ErrForeignSession      = errors.New("session belongs to another tuition fee")
	ErrNotAttendanceStatus = errors.New("status is not an attendance result")
)

// UnknownStudentsError: в ростере есть id, которых нет в БД. Пакет не обрабатывается целиком.
type UnknownStudentsError struct {
	IDs []int64
}

func (e *UnknownStudentsError) Error() string {
	return fmt.Sprintf("unknown students: %v", e.IDs)
}

type Options struct {
	HorizonDays int
	Align       tuition.AlignConfig
}

type Service struct {
	db   *sql.DB
	log  *zap.Logger
	opts Options
}

func New(database *sql.DB, log *zap.Logger, opts Options) *Service {
	if opts.HorizonDays <= 0 {
		opts.HorizonDays = tuition.DefaultHorizonDays
	}
	if opts.Align.MaxCandidates <= 0 {
		opts.Align.MaxCandidates = tuition.DefaultAlignCandidates
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{db: database, log: log, opts: opts}
}
