package status

import (
	"errors"
	"fmt"
)

// Status is the lifecycle state of a task.
type Status string

const (
	Unseen     Status = "unseen"
	InProgress Status = "in_progress"
	Reviewed   Status = "reviewed"
	Done       Status = "done"
)

// Action is a transition requested by the owner or an admin.
type Action string

const (
	ActionTake     Action = "take"
	ActionReview   Action = "review"
	ActionComplete Action = "complete"
	ActionReset    Action = "reset"
)

// ErrInvalidTransition is returned for (status, action) pairs outside the
// table. The UI only renders valid actions, so hitting it usually means a
// stale request, e.g. a button double-tapped after the state advanced.
var ErrInvalidTransition = errors.New("invalid status transition")

// Transition is the outcome of applying an action.
type Transition struct {
	Next          Status
	ClearReminder bool
}

// Apply maps the current status and a requested action to the next status.
// Completing a task also clears its reminder; no other transition touches
// the reminder.
func Apply(current Status, action Action) (Transition, error) {
	switch action {
	case ActionTake:
		if current == Unseen {
			return Transition{Next: InProgress}, nil
		}
	case ActionReview:
		if current == InProgress {
			return Transition{Next: Reviewed}, nil
		}
	case ActionComplete:
		if current == Reviewed {
			return Transition{Next: Done, ClearReminder: true}, nil
		}
	case ActionReset:
		if current != Unseen {
			return Transition{Next: Unseen}, nil
		}
	}
	return Transition{}, fmt.Errorf("%w: %s + %s", ErrInvalidTransition, current, action)
}

// Actions lists the actions valid for the given status, in render order.
func Actions(current Status) []Action {
	switch current {
	case Unseen:
		return []Action{ActionTake}
	case InProgress:
		return []Action{ActionReview, ActionReset}
	case Reviewed:
		return []Action{ActionComplete, ActionReset}
	case Done:
		return []Action{ActionReset}
	default:
		return nil
	}
}

// ParseAction validates raw callback data.
func ParseAction(raw string) (Action, bool) {
	switch Action(raw) {
	case ActionTake, ActionReview, ActionComplete, ActionReset:
		return Action(raw), true
	default:
		return "", false
	}
}

// Label returns the human-facing status text used in chat messages.
func (s Status) Label() string {
	switch s {
	case Unseen:
		return "ещё не смотрел"
	case InProgress:
		return "в работе"
	case Reviewed:
		return "просмотрено"
	case Done:
		return "готово"
	default:
		return string(s)
	}
}

// Label returns the button text for an action.
func (a Action) Label() string {
	switch a {
	case ActionTake:
		return "▶️ В работу"
	case ActionReview:
		return "👀 Просмотрено"
	case ActionComplete:
		return "✅ Готово"
	case ActionReset:
		return "↩️ Сбросить"
	default:
		return string(a)
	}
}
