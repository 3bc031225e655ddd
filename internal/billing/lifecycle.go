package billing

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Spok95/academy-tuition/internal/ctxutil"
	"github.com/Spok95/academy-tuition/internal/db"
	"github.com/Spok95/academy-tuition/internal/metrics"
	"github.com/Spok95/academy-tuition/internal/models"
	"github.com/Spok95/academy-tuition/internal/tuition"
)

// Change: результат операции над занятием вместе с пересчитанными итогами начисления.
type Change struct {
	Session *models.Session `json:"session"`
	Totals  tuition.Totals  `json:"totals"`
}

func (s *Service) CancelSession(ctx context.Context, sessionID int64) (*Change, error) {
	return s.applyEvent(ctxutil.WithOp(ctx, "cancel_session"), sessionID, tuition.EventCancel, nil)
}

// MarkCarryover переносит занятие в следующий период и увеличивает carryover_to_next начисления.
func (s *Service) MarkCarryover(ctx context.Context, sessionID int64, reason string) (*Change, error) {
	var note *string
	if r := strings.TrimSpace(reason); r != "" {
		note = &r
	}
	return s.applyEvent(ctxutil.WithOp(ctx, "mark_carryover"), sessionID, tuition.EventDefer, note)
}

// ResolveAttendance ставит итог посещаемости (attended/absent/makeup) запланированному занятию.
func (s *Service) ResolveAttendance(ctx context.Context, sessionID int64, status models.SessionStatus) (*Change, error) {
	ev, ok := tuition.AttendanceEvent(status)
	if !ok {
		return nil, fmt.Errorf("%q: %w", status, ErrNotAttendanceStatus)
	}
	return s.applyEvent(ctxutil.WithOp(ctx, "resolve_attendance"), sessionID, ev, nil)
}

// applyEvent: переход по таблице, запись и пересчёт начисления в одной транзакции.
func (s *Service) applyEvent(ctx context.Context, sessionID int64, ev tuition.Event, note *string) (*Change, error) {
	ctx, cancel := ctxutil.WithTxTimeout(ctx)
	defer cancel()

	var ch Change
	err := db.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		sess, err := db.GetSession(ctx, tx, sessionID)
		if err != nil {
			return fmt.Errorf("session %d: %w", sessionID, err)
		}
		if _, err := db.LockTuitionFee(ctx, tx, sess.TuitionFeeID); err != nil {
			return err
		}
		if sess, err = db.LockSession(ctx, tx, sessionID); err != nil {
			return err
		}

		to, err := tuition.Transition(sess.Status, ev)
		if err != nil {
			return fmt.Errorf("session %d: %w", sessionID, err)
		}
		sess.Status = to
		if note != nil {
			sess.Note = note
		}
		if err := db.UpdateSessionStatus(ctx, tx, *sess); err != nil {
			return err
		}
		if ev == tuition.EventDefer {
			if err := db.IncrementCarryoverToNext(ctx, tx, sess.TuitionFeeID); err != nil {
				return err
			}
		}

		totals, _, err := recalcTx(ctx, tx, sess.TuitionFeeID)
		if err != nil {
			return err
		}
		ch = Change{Session: sess, Totals: totals}
		return nil
	})
	if err != nil {
		var te *tuition.TransitionError
		if !errors.As(err, &te) && !errors.Is(err, db.ErrNotFound) {
			s.log.Error("session transition failed", zap.Int64("session_id", sessionID), zap.String("event", string(ev)), zap.Error(err))
		}
		return nil, err
	}

	metrics.Transitions.WithLabelValues(string(ev)).Inc()
	s.log.Info("session transition",
		zap.Int64("session_id", sessionID),
		zap.Int64("tuition_fee_id", ch.Session.TuitionFeeID),
		zap.String("event", string(ev)),
		zap.String("status", string(ch.Session.Status)),
		zap.Int64("amount", ch.Totals.Amount),
	)
	return &ch, nil
}

// AddReplacementSession добавляет в начисление новое scheduled-занятие с номером max+1,
// ссылающееся на заменяемое. Само заменяемое занятие не меняется.
func (s *Service) AddReplacementSession(ctx context.Context, tuitionFeeID int64, date time.Time, originalSessionID int64) (*Change, error) {
	ctx, cancel := ctxutil.WithTxTimeout(ctxutil.WithOp(ctx, "add_replacement"))
	defer cancel()

	var ch Change
	err := db.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		if _, err := db.LockTuitionFee(ctx, tx, tuitionFeeID); err != nil {
			return fmt.Errorf("tuition fee %d: %w", tuitionFeeID, err)
		}
		orig, err := db.GetSession(ctx, tx, originalSessionID)
		if err != nil {
			return fmt.Errorf("session %d: %w", originalSessionID, err)
		}
		if orig.TuitionFeeID != tuitionFeeID {
			return fmt.Errorf("session %d: %w", originalSessionID, ErrForeignSession)
		}

		origID := orig.ID
		created, err := db.InsertSession(ctx, tx, models.Session{
			TuitionFeeID:      tuitionFeeID,
			SessionDate:       tuition.Day(date),
			Status:            models.StatusScheduled,
			OriginalSessionID: &origID,
		})
		if err != nil {
			return err
		}
		totals, _, err := recalcTx(ctx, tx, tuitionFeeID)
		if err != nil {
			return err
		}
		ch = Change{Session: created, Totals: totals}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.Transitions.WithLabelValues("replace").Inc()
	s.log.Info("replacement session added",
		zap.Int64("tuition_fee_id", tuitionFeeID),
		zap.Int64("session_id", ch.Session.ID),
		zap.Int64("original_session_id", originalSessionID),
		zap.Int("session_number", ch.Session.SessionNumber),
	)
	return &ch, nil
}
