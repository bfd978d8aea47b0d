// internal/domain/calendar/repository.go
package calendar

import (
	"context"
	"time"
)

// ProcessStore reads master process definitions and their milestone templates.
type ProcessStore interface {
	Create(ctx context.Context, p *MasterProcess) error // Persists the process and its templates, assigning IDs
	GetByID(ctx context.Context, id int64) (*MasterProcess, error)
	GetTemplate(ctx context.Context, id int64) (*MilestoneTemplate, error)
	// ListMilestoneTemplates returns the process templates in no particular order.
	ListMilestoneTemplates(ctx context.Context, processID int64) ([]*MilestoneTemplate, error)
}

// PeriodStore persists periods. Save assigns the ID.
type PeriodStore interface {
	Save(ctx context.Context, p *Period) error
	GetByID(ctx context.Context, id int64) (*Period, error)
	ListByClientAndProcess(ctx context.Context, clientID string, processID int64) ([]*Period, error)
	SetActive(ctx context.Context, id int64, active bool) error
}

// OccurrenceFilter selects occurrences. Zero-valued fields do not constrain.
type OccurrenceFilter struct {
	IDs          []int64
	TemplateID   *int64
	PeriodID     *int64
	ClientIDs    []string
	States       []BaseState
	DeadlineFrom *time.Time // inclusive
	DeadlineTo   *time.Time // inclusive
	ActiveOnly   bool
}

// OccurrenceStore persists milestone occurrences.
type OccurrenceStore interface {
	Save(ctx context.Context, o *Occurrence) error
	GetByID(ctx context.Context, id int64) (*Occurrence, error)
	// Find returns matches ordered by deadline, then ID.
	Find(ctx context.Context, f OccurrenceFilter) ([]*Occurrence, error)
	Update(ctx context.Context, id int64, patch OccurrencePatch) error
	CountActiveByPeriod(ctx context.Context, periodID int64) (int, error)
}

// FulfillmentStore persists fulfillment records.
type FulfillmentStore interface {
	Create(ctx context.Context, r *FulfillmentRecord) error
	// LatestByOccurrence returns the record with the highest ID, or ErrNotFound.
	LatestByOccurrence(ctx context.Context, occurrenceID int64) (*FulfillmentRecord, error)
}

// Stores bundles the stores bound to one unit of work.
type Stores struct {
	Processes    ProcessStore
	Periods      PeriodStore
	Occurrences  OccurrenceStore
	Fulfillments FulfillmentStore
}

// Transactor runs fn with stores bound to a single transaction. The
// transaction commits when fn returns nil and rolls back otherwise.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, s Stores) error) error
}
