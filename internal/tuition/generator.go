package tuition

import (
	"errors"
	"fmt"
	"time"

	"github.com/samber/lo"

	"github.com/Spok95/academy-tuition/internal/models"
)

// DefaultHorizonDays: сколько календарных дней генератор просматривает до отказа.
const DefaultHorizonDays = 100

var (
	ErrNoSchedule    = errors.New("class has no weekly schedule")
	ErrInvalidTarget = errors.New("target session count must be positive")
)

// HorizonError: горизонт исчерпан раньше, чем набрано нужное число оплачиваемых занятий.
type HorizonError struct {
	Target   int
	Horizon  int
	Achieved int
}

func (e *HorizonError) Error() string {
	return fmt.Sprintf("could not reach %d billable sessions within %d days (got %d)", e.Target, e.Horizon, e.Achieved)
}

// GeneratedSession: кандидат в занятие до записи в БД.
type GeneratedSession struct {
	Date          time.Time            `json:"date"`
	DayOfWeek     time.Weekday         `json:"day_of_week"`
	Status        models.SessionStatus `json:"status"`
	ClosureID     *int64               `json:"closure_id,omitempty"`
	ClosureReason *string              `json:"closure_reason,omitempty"`
}

// ClosureSet индексирует выходные дни по дате.
type ClosureSet map[string]models.Closure

func NewClosureSet(closures []models.Closure) ClosureSet {
	set := make(ClosureSet, len(closures))
	for _, c := range closures {
		k := DateKey(c.Date)
		// класс-специфичный выходной важнее общего: у него своя причина
		if prev, ok := set[k]; ok && prev.ClassID != nil {
			continue
		}
		set[k] = c
	}
	return set
}

func (s ClosureSet) Lookup(d time.Time) (models.Closure, bool) {
	c, ok := s[DateKey(d)]
	return c, ok
}

// Weekdays возвращает множество дней недели из расписания.
// Строки с днём вне 0..6 игнорируются.
func Weekdays(slots []models.WeeklySlot) map[time.Weekday]bool {
	days := lo.FilterMap(slots, func(s models.WeeklySlot, _ int) (time.Weekday, bool) {
		return s.DayOfWeek, s.DayOfWeek >= time.Sunday && s.DayOfWeek <= time.Saturday
	})
	out := make(map[time.Weekday]bool, len(days))
	for _, d := range lo.Uniq(days) {
		out[d] = true
	}
	return out
}

// GenerateDates идёт по календарю от start (включительно), пока не наберёт target
// оплачиваемых занятий. Дни из closures попадают в результат со статусом closure
// и в target не засчитываются. Функция чистая.
func GenerateDates(slots []models.WeeklySlot, start time.Time, target int, closures ClosureSet, horizonDays int) ([]GeneratedSession, error) {
	if len(slots) == 0 {
		return nil, ErrNoSchedule
	}
	if target <= 0 {
		return nil, ErrInvalidTarget
	}
	if horizonDays <= 0 {
		horizonDays = DefaultHorizonDays
	}

	days := Weekdays(slots)
	day := Day(start)
	out := make([]GeneratedSession, 0, target)
	billable := 0

	for i := 0; i < horizonDays && billable < target; i++ {
		d := day.AddDate(0, 0, i)
		if !days[d.Weekday()] {
			continue
		}
		if c, closed := closures.Lookup(d); closed {
			id := c.ID
			out = append(out, GeneratedSession{
				Date:          d,
				DayOfWeek:     d.Weekday(),
				Status:        models.StatusClosure,
				ClosureID:     &id,
				ClosureReason: c.Reason,
			})
			continue
		}
		out = append(out, GeneratedSession{
			Date:      d,
			DayOfWeek: d.Weekday(),
			Status:    models.StatusScheduled,
		})
		billable++
	}

	if billable < target {
		return nil, &HorizonError{Target: target, Horizon: horizonDays, Achieved: billable}
	}
	return out, nil
}
