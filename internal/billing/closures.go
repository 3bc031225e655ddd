package billing

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/Spok95/academy-tuition/internal/ctxutil"
	"github.com/Spok95/academy-tuition/internal/db"
	"github.com/Spok95/academy-tuition/internal/metrics"
	"github.com/Spok95/academy-tuition/internal/tuition"
)

// ApplyClosure переводит scheduled-занятия на date в closure (classID == nil: все классы)
// и пересчитывает затронутые начисления. Повторный вызов ничего не меняет.
func (s *Service) ApplyClosure(ctx context.Context, closureID int64, date time.Time, classID *int64) (int, error) {
	ctx, cancel := ctxutil.WithTxTimeout(ctxutil.WithOp(ctx, "apply_closure"))
	defer cancel()

	day := tuition.Day(date)
	var affected, fees int
	err := db.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		if _, err := db.LockFeesWithScheduledOn(ctx, tx, day, classID); err != nil {
			return err
		}
		feeIDs, err := db.CloseScheduledSessions(ctx, tx, closureID, day, classID)
		if err != nil {
			return err
		}
		affected = len(feeIDs)
		touched := lo.Uniq(feeIDs)
		fees = len(touched)
		return s.recalcAll(ctx, tx, touched)
	})
	if err != nil {
		return 0, fmt.Errorf("apply closure %d: %w", closureID, err)
	}

	metrics.Transitions.WithLabelValues(string(tuition.EventClose)).Add(float64(affected))
	s.log.Info("closure applied",
		zap.Int64("closure_id", closureID),
		zap.String("date", tuition.DateKey(day)),
		zap.Int("sessions", affected),
		zap.Int("tuition_fees", fees),
	)
	return affected, nil
}

// ApplyClosureByID читает выходной из БД и применяет его.
func (s *Service) ApplyClosureByID(ctx context.Context, closureID int64) (int, error) {
	c, err := db.GetClosureByID(ctx, s.db, closureID)
	if err != nil {
		return 0, fmt.Errorf("closure %d: %w", closureID, err)
	}
	return s.ApplyClosure(ctx, c.ID, c.Date, c.ClassID)
}

// WithdrawClosure возвращает в scheduled занятия, закрытые этим выходным, и пересчитывает начисления.
func (s *Service) WithdrawClosure(ctx context.Context, closureID int64) (int, error) {
	ctx, cancel := ctxutil.WithTxTimeout(ctxutil.WithOp(ctx, "withdraw_closure"))
	defer cancel()

	var affected, fees int
	err := db.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		if _, err := db.LockFeesWithClosure(ctx, tx, closureID); err != nil {
			return err
		}
		feeIDs, err := db.ReopenClosedSessions(ctx, tx, closureID)
		if err != nil {
			return err
		}
		affected = len(feeIDs)
		touched := lo.Uniq(feeIDs)
		fees = len(touched)
		return s.recalcAll(ctx, tx, touched)
	})
	if err != nil {
		return 0, fmt.Errorf("withdraw closure %d: %w", closureID, err)
	}

	metrics.Transitions.WithLabelValues(string(tuition.EventReopen)).Add(float64(affected))
	s.log.Info("closure withdrawn",
		zap.Int64("closure_id", closureID),
		zap.Int("sessions", affected),
		zap.Int("tuition_fees", fees),
	)
	return affected, nil
}
