package tuition

import "time"

const (
	DefaultAlignWindowDays = 7
	DefaultAlignCandidates = 5
)

type AlignConfig struct {
	WindowDays    int
	MaxCandidates int
}

// AlignEndDate подтягивает конец периода к дате соседнего класса с тем же днём недели.
// siblings отсортированы от самой свежей; берётся первая, отстоящая не более чем на WindowDays.
// Если подходящей нет, возвращается computed.
func AlignEndDate(computed time.Time, siblings []time.Time, cfg AlignConfig) time.Time {
	if cfg.WindowDays < 0 {
		return computed
	}
	limit := cfg.MaxCandidates
	if limit <= 0 || limit > len(siblings) {
		limit = len(siblings)
	}
	for _, s := range siblings[:limit] {
		diff := DaysBetween(computed, s)
		if diff < 0 {
			diff = -diff
		}
		if diff <= cfg.WindowDays {
			return Day(s)
		}
	}
	return computed
}
