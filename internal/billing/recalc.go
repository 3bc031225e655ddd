package billing

import (
	"context"
	"database/sql"

	"go.uber.org/zap"

	"github.com/Spok95/academy-tuition/internal/ctxutil"
	"github.com/Spok95/academy-tuition/internal/db"
	"github.com/Spok95/academy-tuition/internal/metrics"
	"github.com/Spok95/academy-tuition/internal/tuition"
)

// Recalculate пересчитывает sessions_count и amount начисления по его текущим занятиям.
func (s *Service) Recalculate(ctx context.Context, tuitionFeeID int64) (tuition.Totals, error) {
	ctx, cancel := ctxutil.WithTxTimeout(ctxutil.WithOp(ctx, "recalculate"))
	defer cancel()

	var totals tuition.Totals
	err := db.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		t, _, err := recalcTx(ctx, tx, tuitionFeeID)
		totals = t
		return err
	})
	return totals, err
}

// recalcTx: чтение занятий и запись итогов в одной транзакции под блокировкой начисления.
// drifted=true, если сохранённые значения отличались от пересчитанных.
func recalcTx(ctx context.Context, tx *sql.Tx, tuitionFeeID int64) (totals tuition.Totals, drifted bool, err error) {
	fee, err := db.LockTuitionFee(ctx, tx, tuitionFeeID)
	if err != nil {
		return totals, false, err
	}
	statuses, err := db.ListSessionStatuses(ctx, tx, tuitionFeeID)
	if err != nil {
		return totals, false, err
	}
	totals = tuition.Recalculate(statuses, fee.CarryoverFromPrev, fee.PerSessionFee)
	if err := db.UpdateTuitionTotals(ctx, tx, tuitionFeeID, totals.SessionsCount, totals.Amount); err != nil {
		return totals, false, err
	}
	metrics.Recalculations.Inc()
	drifted = totals.Amount != fee.Amount || totals.SessionsCount != fee.SessionsCount
	return totals, drifted, nil
}

func (s *Service) recalcAll(ctx context.Context, tx *sql.Tx, ids []int64) error {
	for _, id := range ids {
		if _, _, err := recalcTx(ctx, tx, id); err != nil {
			return err
		}
	}
	return nil
}

type ReconcileReport struct {
	Checked int
	Drifted int
}

const reconcileBatch = 500

// Reconcile пересчитывает все начисления и исправляет разошедшиеся суммы.
// Каждое начисление в своей транзакции: ошибка на одном не останавливает остальные.
func (s *Service) Reconcile(ctx context.Context) (ReconcileReport, error) {
	ctx = ctxutil.WithOp(ctx, "reconcile")
	var rep ReconcileReport
	var after int64
	for {
		ids, err := db.ListTuitionFeeIDs(ctx, s.db, after, reconcileBatch)
		if err != nil {
			return rep, err
		}
		if len(ids) == 0 {
			break
		}
		for _, id := range ids {
			if err := ctx.Err(); err != nil {
				return rep, err
			}
			drifted, err := s.reconcileOne(ctx, id)
			if err != nil {
				s.log.Warn("reconcile failed", zap.Int64("tuition_fee_id", id), zap.Error(err))
				continue
			}
			rep.Checked++
			if drifted {
				rep.Drifted++
				metrics.AmountDrift.Inc()
				s.log.Warn("tuition fee amount drifted, corrected", zap.Int64("tuition_fee_id", id))
			}
		}
		after = ids[len(ids)-1]
	}
	s.log.Info("reconcile done", zap.Int("checked", rep.Checked), zap.Int("drifted", rep.Drifted))
	return rep, nil
}

func (s *Service) reconcileOne(ctx context.Context, id int64) (bool, error) {
	ctx, cancel := ctxutil.WithTxTimeout(ctx)
	defer cancel()

	var drifted bool
	err := db.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		_, d, err := recalcTx(ctx, tx, id)
		drifted = d
		return err
	})
	return drifted, err
}
