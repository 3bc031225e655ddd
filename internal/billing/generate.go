package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/Spok95/academy-tuition/internal/ctxutil"
	"github.com/Spok95/academy-tuition/internal/db"
	"github.com/Spok95/academy-tuition/internal/metrics"
	"github.com/Spok95/academy-tuition/internal/models"
	"github.com/Spok95/academy-tuition/internal/tuition"
)

// Generate строит даты занятий класса от start до target оплачиваемых, с учётом выходных,
// считает стоимость занятия и выравнивает конец периода по соседним классам. В БД не пишет.
func (s *Service) Generate(ctx context.Context, classID int64, start time.Time, target int) (*tuition.Result, error) {
	ctx = ctxutil.WithOp(ctx, "generate")
	res, err := s.generate(ctx, classID, tuition.Day(start), target)
	if err != nil {
		metrics.Generations.WithLabelValues("error").Inc()
		return nil, err
	}
	metrics.Generations.WithLabelValues("ok").Inc()
	s.log.Debug("sessions generated",
		zap.Int64("class_id", classID),
		zap.String("start", tuition.DateKey(res.PeriodStartDate)),
		zap.String("end", tuition.DateKey(res.PeriodEndDate)),
		zap.Int("billable", res.BillableCount),
		zap.Int("closure_days", res.ClosureDays),
	)
	return res, nil
}

func (s *Service) generate(ctx context.Context, classID int64, start time.Time, target int) (*tuition.Result, error) {
	class, err := db.GetClassByID(ctx, s.db, classID)
	if err != nil {
		return nil, fmt.Errorf("class %d: %w", classID, err)
	}
	slots, err := db.ListWeeklySlots(ctx, s.db, classID)
	if err != nil {
		return nil, fmt.Errorf("schedule of class %d: %w", classID, err)
	}
	if len(slots) == 0 {
		return nil, fmt.Errorf("class %d: %w", classID, tuition.ErrNoSchedule)
	}

	horizon := s.opts.HorizonDays
	closures, err := db.ListClosuresForClass(ctx, s.db, classID, start, start.AddDate(0, 0, horizon-1))
	if err != nil {
		return nil, fmt.Errorf("closures of class %d: %w", classID, err)
	}

	sessions, err := tuition.GenerateDates(slots, start, target, tuition.NewClosureSet(closures), horizon)
	if err != nil {
		return nil, fmt.Errorf("class %d: %w", classID, err)
	}

	fee := tuition.PerSessionFee(class.MonthlyFee, class.SessionsPerMonth, target)
	end := s.alignEndDate(ctx, classID, slots, tuition.LastDate(start, sessions))
	return tuition.Summarize(start, sessions, fee, end), nil
}

// alignEndDate никогда не падает: при ошибке БД остаётся вычисленная дата.
func (s *Service) alignEndDate(ctx context.Context, classID int64, slots []models.WeeklySlot, computed time.Time) time.Time {
	weekdays := lo.Map(lo.Keys(tuition.Weekdays(slots)), func(d time.Weekday, _ int) int64 { return int64(d) })
	if len(weekdays) == 0 {
		return computed
	}
	siblings, err := db.SiblingPeriodEndDates(ctx, s.db, classID, weekdays, s.opts.Align.MaxCandidates)
	if err != nil {
		s.log.Warn("end date alignment skipped", zap.Int64("class_id", classID), zap.Error(err))
		return computed
	}
	return tuition.AlignEndDate(computed, siblings, s.opts.Align)
}
