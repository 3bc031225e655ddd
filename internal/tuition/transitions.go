package tuition

import (
	"fmt"

	"github.com/Spok95/academy-tuition/internal/models"
)

type Event string

// События жизненного цикла занятия. attend/absent/makeup приходят из учёта посещаемости.
const (
	EventClose  Event = "close"
	EventReopen Event = "reopen"
	EventCancel Event = "cancel"
	EventDefer  Event = "defer"
	EventAttend Event = "attend"
	EventAbsent Event = "absent"
	EventMakeup Event = "makeup"
)

// cancelled и carryover конечные: обратных переходов нет.
var transitions = map[models.SessionStatus]map[Event]models.SessionStatus{
	models.StatusScheduled: {
		EventClose:  models.StatusClosure,
		EventCancel: models.StatusCancelled,
		EventDefer:  models.StatusCarryover,
		EventAttend: models.StatusAttended,
		EventAbsent: models.StatusAbsent,
		EventMakeup: models.StatusMakeup,
	},
	models.StatusClosure: {
		EventReopen: models.StatusScheduled,
	},
}

type TransitionError struct {
	From  models.SessionStatus
	Event Event
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("session in status %q does not accept %q", e.From, e.Event)
}

// Transition возвращает новый статус или *TransitionError, если перехода нет в таблице.
func Transition(from models.SessionStatus, ev Event) (models.SessionStatus, error) {
	to, ok := transitions[from][ev]
	if !ok {
		return from, &TransitionError{From: from, Event: ev}
	}
	return to, nil
}

// AttendanceEvent сопоставляет итог посещаемости событию таблицы.
func AttendanceEvent(status models.SessionStatus) (Event, bool) {
	switch status {
	case models.StatusAttended:
		return EventAttend, true
	case models.StatusAbsent:
		return EventAbsent, true
	case models.StatusMakeup:
		return EventMakeup, true
	}
	return "", false
}
