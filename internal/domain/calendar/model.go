// internal/domain/calendar/model.go
package calendar

import (
	"time"
)

// Temporality is the recurrence pattern of a master process.
type Temporality string

const (
	TemporalityDaily   Temporality = "DAILY"
	TemporalityWeekly  Temporality = "WEEKLY"
	TemporalityMonthly Temporality = "MONTHLY"
)

// BaseState is the persisted workflow state of a milestone occurrence.
type BaseState string

const (
	StateNew        BaseState = "New"
	StateInProgress BaseState = "InProgress"
	StateFinalized  BaseState = "Finalized"
)

// MasterProcess is the reusable definition of a recurring business process.
// It is read-only while a calendar is being generated.
type MasterProcess struct {
	ID           int64
	Name         string
	Temporality  Temporality
	Frequency    int // Window length in days, only used by DAILY
	StartsOnDay1 bool
	Templates    []*MilestoneTemplate
	CreatedAt    time.Time
}

// MilestoneTemplate is one milestone of a master process. ReferenceDate carries
// the reference day-of-month; its year/month also seed the monthly anchor.
type MilestoneTemplate struct {
	ID            int64
	ProcessID     int64
	Name          string
	ReferenceDate *time.Time
	DeadlineTime  *TimeOfDay
	Mandatory     bool
	Critical      bool
	Category      string
}

// ReferenceDay returns the template's day-of-month, or 1 when it has no reference date.
func (t *MilestoneTemplate) ReferenceDay() int {
	if t.ReferenceDate == nil {
		return 1
	}
	return t.ReferenceDate.Day()
}

// Period is one instantiation of a master process for one client.
type Period struct {
	ID         int64
	ClientID   string
	ProcessID  int64
	StartDate  time.Time
	EndDate    *time.Time
	Month      int
	Year       int
	PreviousID *int64
	Active     bool
	CreatedAt  time.Time
}

// ReferenceMonth is the year/month occurrences of this period are dated in:
// the end date when present, else the start date.
func (p *Period) ReferenceMonth() (int, time.Month) {
	if p.EndDate != nil {
		return p.EndDate.Year(), p.EndDate.Month()
	}
	return p.StartDate.Year(), p.StartDate.Month()
}

// Occurrence is one concrete, dated milestone inside a period.
type Occurrence struct {
	ID              int64
	PeriodID        int64
	TemplateID      int64
	State           BaseState
	Deadline        *time.Time
	DeadlineTime    *TimeOfDay
	StatusChangedAt time.Time
	Category        string
	Active          bool
}

// FulfillmentRecord is evidence that an occurrence was completed.
// When several exist for one occurrence the highest ID wins.
type FulfillmentRecord struct {
	ID           int64
	OccurrenceID int64
	Date         time.Time
	Time         *TimeOfDay
	Author       string
	Observation  string
	CreatedAt    time.Time
}

// PeriodRef identifies a period touched by a lifecycle cascade.
type PeriodRef struct {
	ID        int64  `json:"id"`
	ClientID  string `json:"client_id"`
	ProcessID int64  `json:"process_id"`
}
