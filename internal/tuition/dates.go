package tuition

import "time"

const dateLayout = "2006-01-02"

// Day приводит момент к календарной дате (00:00 UTC), время и зона отбрасываются.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func DateKey(t time.Time) string { return t.Format(dateLayout) }

func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, err
	}
	return Day(t), nil
}

// DaysBetween: число календарных дней от a до b (может быть отрицательным).
func DaysBetween(a, b time.Time) int {
	return int(Day(b).Sub(Day(a)).Hours() / 24)
}
