package billing

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/Spok95/academy-tuition/internal/ctxutil"
	"github.com/Spok95/academy-tuition/internal/db"
	"github.com/Spok95/academy-tuition/internal/metrics"
	"github.com/Spok95/academy-tuition/internal/models"
	"github.com/Spok95/academy-tuition/internal/observability"
	"github.com/Spok95/academy-tuition/internal/tuition"
)

type Outcome struct {
	Created int `json:"created"`
	Skipped int `json:"skipped"`
}

// Materialize создаёт по одному начислению с набором занятий на каждого ученика.
// Уже существующее начисление за (класс, ученик, год, месяц) пропускается.
// Ошибка одного ученика не прерывает пакет: он считается пропущенным.
// Ошибку возвращаем только для входных данных (класс, ростер, пустой результат).
func (s *Service) Materialize(ctx context.Context, classID int64, studentIDs []int64, res *tuition.Result, periodStart time.Time) (Outcome, error) {
	var out Outcome
	if res == nil || len(res.Sessions) == 0 {
		return out, ErrEmptyResult
	}

	runID := uuid.NewString()
	ctx = ctxutil.WithRunID(ctxutil.WithOp(ctx, "materialize"), runID)
	log := s.log.With(zap.String("run_id", runID), zap.Int64("class_id", classID))

	class, err := db.GetClassByID(ctx, s.db, classID)
	if err != nil {
		return out, fmt.Errorf("class %d: %w", classID, err)
	}

	ids := lo.Uniq(studentIDs)
	students, err := db.ListStudentsByIDs(ctx, s.db, ids)
	if err != nil {
		return out, fmt.Errorf("students: %w", err)
	}
	byID := lo.KeyBy(students, func(st models.Student) int64 { return st.ID })
	missing := lo.Filter(ids, func(id int64, _ int) bool {
		_, ok := byID[id]
		return !ok
	})
	if len(missing) > 0 {
		return out, &UnknownStudentsError{IDs: missing}
	}

	start := tuition.Day(periodStart)
	for _, id := range ids {
		st := byID[id]
		created, err := s.materializeOne(ctx, class, st, res, start)
		switch {
		case err != nil:
			out.Skipped++
			metrics.Materialized.WithLabelValues("failed").Inc()
			log.Warn("materialize student failed", zap.Int64("student_id", st.ID), zap.Error(err))
			observability.CaptureCtxErr(ctx, err, map[string]string{
				"class_id":   strconv.FormatInt(classID, 10),
				"student_id": strconv.FormatInt(st.ID, 10),
			})
		case !created:
			out.Skipped++
			metrics.Materialized.WithLabelValues("skipped").Inc()
			log.Debug("tuition fee already exists", zap.Int64("student_id", st.ID))
		default:
			out.Created++
			metrics.Materialized.WithLabelValues("created").Inc()
		}
	}

	log.Info("materialize done", zap.Int("created", out.Created), zap.Int("skipped", out.Skipped))
	return out, nil
}

// materializeOne: начисление и его занятия в одной транзакции.
// Если занятия не вставились, откат удаляет и начисление: пустых начислений не остаётся.
func (s *Service) materializeOne(ctx context.Context, class *models.Class, st models.Student, res *tuition.Result, start time.Time) (bool, error) {
	ctx, cancel := ctxutil.WithTxTimeout(ctx)
	defer cancel()

	end := res.PeriodEndDate
	fee := models.TuitionFee{
		ClassID:         class.ID,
		StudentID:       st.ID,
		Year:            start.Year(),
		Month:           int(start.Month()),
		ClassName:       class.Name,
		StudentName:     st.Name,
		PeriodStartDate: start,
		PeriodEndDate:   &end,
		SessionsCount:   res.BillableCount,
		PerSessionFee:   res.PerSessionFee,
		Amount:          res.CalculatedAmount,
		PaymentStatus:   models.PaymentPending,
	}

	created := false
	err := db.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		id, inserted, err := db.InsertTuitionFeeIfAbsent(ctx, tx, fee)
		if err != nil {
			return err
		}
		if !inserted {
			return nil
		}
		if err := db.InsertSessions(ctx, tx, id, sessionsFromResult(res)); err != nil {
			return fmt.Errorf("sessions of tuition fee %d: %w", id, err)
		}
		created = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return created, nil
}

// sessionsFromResult нумерует занятия 1..N в порядке генерации.
func sessionsFromResult(res *tuition.Result) []models.Session {
	return lo.Map(res.Sessions, func(g tuition.GeneratedSession, i int) models.Session {
		return models.Session{
			SessionNumber: i + 1,
			SessionDate:   g.Date,
			Status:        g.Status,
			ClosureID:     g.ClosureID,
			Note:          g.ClosureReason,
		}
	})
}
