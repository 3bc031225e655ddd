package tuition

import (
	"testing"

	"github.com/Spok95/academy-tuition/internal/models"
)

func TestRecalculate(t *testing.T) {
	s := func(xs ...models.SessionStatus) []models.SessionStatus { return xs }
	cases := []struct {
		name      string
		statuses  []models.SessionStatus
		carryover int
		count     int
		amount    int64
	}{
		{"all scheduled", s(models.StatusScheduled, models.StatusScheduled, models.StatusScheduled, models.StatusScheduled), 0, 4, 100000},
		{"one closure", s(models.StatusScheduled, models.StatusClosure, models.StatusScheduled, models.StatusScheduled, models.StatusScheduled), 0, 4, 100000},
		{"attendance is billable", s(models.StatusAttended, models.StatusAbsent, models.StatusMakeup, models.StatusScheduled), 0, 4, 100000},
		{"cancelled and carryover excluded", s(models.StatusScheduled, models.StatusCancelled, models.StatusCarryover, models.StatusScheduled), 0, 2, 50000},
		{"carryover from previous period", s(models.StatusScheduled, models.StatusScheduled, models.StatusScheduled), 1, 3, 50000},
		{"never negative", s(models.StatusScheduled), 3, 1, 0},
		{"empty", nil, 0, 0, 0},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := Recalculate(c.statuses, c.carryover, 25000)
			if got.SessionsCount != c.count || got.Amount != c.amount {
				t.Fatalf("ожидали %d/%d, получили %+v", c.count, c.amount, got)
			}
			if again := Recalculate(c.statuses, c.carryover, 25000); again != got {
				t.Fatalf("повторный пересчёт дал %+v", again)
			}
		})
	}
}
