package models

import "time"

type AttemptState string

const (
	AttemptInProgress AttemptState = "inprogress"
	AttemptOverdue    AttemptState = "overdue"
	AttemptFinished   AttemptState = "finished"
	AttemptAbandoned  AttemptState = "abandoned"
)

// FinishPage is the page sentinel for the end-of-attempt summary.
const FinishPage = -1

type Attempt struct {
	ID              int64        `json:"id"`
	ActivityID      int64        `json:"activity_id"`
	Number          int          `json:"number"`
	State           AttemptState `json:"state" validate:"required,attempt_state"`
	CurrentPage     int          `json:"current_page"`
	FinishedOffline bool         `json:"finished_offline"`
	TimeStart       int64        `json:"time_start"` // unix seconds
	TimeFinish      int64        `json:"time_finish,omitempty"`
}

// IsFinished reports whether the attempt reached a terminal state.
func (a *Attempt) IsFinished() bool {
	return a.State == AttemptFinished || a.State == AttemptAbandoned
}

func (a *Attempt) IsInProgress() bool {
	return a.State == AttemptInProgress
}

func (a *Attempt) IsOverdue() bool {
	return a.State == AttemptOverdue
}

// DueDate returns the moment the attempt must be submitted by, or the zero
// time when it has none. Overdue attempts get the grace period on top.
func (a *Attempt) DueDate(cfg *ActivityConfig) time.Time {
	var due int64
	if cfg.TimeLimit > 0 && a.TimeStart > 0 {
		due = a.TimeStart + cfg.TimeLimit
	}
	if cfg.TimeClose > 0 && (due == 0 || cfg.TimeClose < due) {
		due = cfg.TimeClose
	}
	if due == 0 {
		return time.Time{}
	}

	switch a.State {
	case AttemptInProgress:
		return time.Unix(due, 0)
	case AttemptOverdue:
		return time.Unix(due+cfg.GracePeriod, 0)
	default:
		return time.Time{}
	}
}

// TimeNearlyOver reports whether the attempt is no longer in progress or its
// due date falls within one autosave period of now.
func (a *Attempt) TimeNearlyOver(cfg *ActivityConfig, now time.Time) bool {
	if !a.IsInProgress() {
		return true
	}
	due := a.DueDate(cfg)
	if due.IsZero() {
		return false
	}
	return !now.Add(time.Duration(cfg.AutosavePeriod) * time.Second).Before(due)
}

type AttemptFilter struct {
	Status         string `json:"status"` // "all", "finished", "unfinished"
	IncludePreview bool   `json:"include_preview"`
	Offline        bool   `json:"offline"`
}

// LastAttempt returns the most recent attempt or nil for an empty slice.
func LastAttempt(attempts []Attempt) *Attempt {
	if len(attempts) == 0 {
		return nil
	}
	last := attempts[0]
	for _, a := range attempts[1:] {
		if a.Number > last.Number || (a.Number == last.Number && a.ID > last.ID) {
			last = a
		}
	}
	return &last
}
