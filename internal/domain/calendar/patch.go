package calendar

import "time"

// OccurrencePatch is a partial update of an occurrence. Nil fields are left
// untouched; ClearDeadlineTime explicitly nulls the deadline time.
type OccurrencePatch struct {
	Deadline          *time.Time
	DeadlineTime      *TimeOfDay
	ClearDeadlineTime bool
	State             *BaseState
	StatusChangedAt   *time.Time
	Active            *bool
}

// IsEmpty reports whether the patch changes nothing.
func (p OccurrencePatch) IsEmpty() bool {
	return p.Deadline == nil && p.DeadlineTime == nil && !p.ClearDeadlineTime &&
		p.State == nil && p.StatusChangedAt == nil && p.Active == nil
}

// Apply writes the patch onto o.
func (p OccurrencePatch) Apply(o *Occurrence) {
	if p.Deadline != nil {
		d := DateOf(*p.Deadline)
		o.Deadline = &d
	}
	if p.ClearDeadlineTime {
		o.DeadlineTime = nil
	}
	if p.DeadlineTime != nil {
		t := *p.DeadlineTime
		o.DeadlineTime = &t
	}
	if p.State != nil {
		o.State = *p.State
	}
	if p.StatusChangedAt != nil {
		o.StatusChangedAt = *p.StatusChangedAt
	}
	if p.Active != nil {
		o.Active = *p.Active
	}
}
