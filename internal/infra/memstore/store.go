// Package memstore is an in-process implementation of the calendar stores.
// It backs STORAGE_DRIVER=memory and the application tests. Transactions run
// against a cloned state that replaces the live one only on success.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"compliance_calendar/internal/domain/calendar"
)

type state struct {
	nextID       int64
	processes    map[int64]calendar.MasterProcess
	templates    map[int64]calendar.MilestoneTemplate
	periods      map[int64]calendar.Period
	occurrences  map[int64]calendar.Occurrence
	fulfillments map[int64]calendar.FulfillmentRecord
}

func newState() state {
	return state{
		processes:    make(map[int64]calendar.MasterProcess),
		templates:    make(map[int64]calendar.MilestoneTemplate),
		periods:      make(map[int64]calendar.Period),
		occurrences:  make(map[int64]calendar.Occurrence),
		fulfillments: make(map[int64]calendar.FulfillmentRecord),
	}
}

// clone copies every map. Entity pointer fields are replaced, never mutated
// in place, so copying the structs is enough.
func (s state) clone() state {
	c := newState()
	c.nextID = s.nextID
	for k, v := range s.processes {
		c.processes[k] = v
	}
	for k, v := range s.templates {
		c.templates[k] = v
	}
	for k, v := range s.periods {
		c.periods[k] = v
	}
	for k, v := range s.occurrences {
		c.occurrences[k] = v
	}
	for k, v := range s.fulfillments {
		c.fulfillments[k] = v
	}
	return c
}

func (s *state) id() int64 {
	s.nextID++
	return s.nextID
}

// Store holds the live state.
type Store struct {
	mu    sync.Mutex
	state state
	nowFn func() time.Time
}

// New returns an empty store.
func New() *Store {
	return &Store{state: newState(), nowFn: time.Now}
}

// Stores returns stores that operate directly on the live state, one lock per call.
func (s *Store) Stores() calendar.Stores {
	return viewStores(&view{st: &s.state, mu: &s.mu, now: s.nowFn})
}

// WithinTx implements calendar.Transactor.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, st calendar.Stores) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	working := s.state.clone()
	if err := fn(ctx, viewStores(&view{st: &working, now: s.nowFn})); err != nil {
		return err
	}
	s.state = working
	return nil
}

func viewStores(v *view) calendar.Stores {
	return calendar.Stores{
		Processes:    processStore{v},
		Periods:      periodStore{v},
		Occurrences:  occurrenceStore{v},
		Fulfillments: fulfillmentStore{v},
	}
}

// view is a state plus an optional lock; inside a transaction the store lock
// is already held and mu is nil.
type view struct {
	st  *state
	mu  *sync.Mutex
	now func() time.Time
}

func (v *view) lock() func() {
	if v.mu == nil {
		return func() {}
	}
	v.mu.Lock()
	return v.mu.Unlock
}

// --- processes ---

type processStore struct{ v *view }

func (p processStore) Create(_ context.Context, mp *calendar.MasterProcess) error {
	defer p.v.lock()()
	mp.ID = p.v.st.id()
	mp.CreatedAt = p.v.now()
	stored := *mp
	stored.Templates = nil
	p.v.st.processes[mp.ID] = stored
	for _, t := range mp.Templates {
		t.ID = p.v.st.id()
		t.ProcessID = mp.ID
		p.v.st.templates[t.ID] = *t
	}
	return nil
}

func (p processStore) GetByID(_ context.Context, id int64) (*calendar.MasterProcess, error) {
	defer p.v.lock()()
	mp, ok := p.v.st.processes[id]
	if !ok {
		return nil, fmt.Errorf("process %d: %w", id, calendar.ErrNotFound)
	}
	mp.Templates = p.v.templatesOf(id)
	return &mp, nil
}

func (p processStore) GetTemplate(_ context.Context, id int64) (*calendar.MilestoneTemplate, error) {
	defer p.v.lock()()
	t, ok := p.v.st.templates[id]
	if !ok {
		return nil, fmt.Errorf("milestone template %d: %w", id, calendar.ErrNotFound)
	}
	return &t, nil
}

func (p processStore) ListMilestoneTemplates(_ context.Context, processID int64) ([]*calendar.MilestoneTemplate, error) {
	defer p.v.lock()()
	return p.v.templatesOf(processID), nil
}

func (v *view) templatesOf(processID int64) []*calendar.MilestoneTemplate {
	out := make([]*calendar.MilestoneTemplate, 0)
	for _, t := range v.st.templates {
		if t.ProcessID == processID {
			t := t
			out = append(out, &t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// --- periods ---

type periodStore struct{ v *view }

func (p periodStore) Save(_ context.Context, per *calendar.Period) error {
	defer p.v.lock()()
	if per.ID == 0 {
		per.ID = p.v.st.id()
		per.CreatedAt = p.v.now()
	}
	p.v.st.periods[per.ID] = *per
	return nil
}

func (p periodStore) GetByID(_ context.Context, id int64) (*calendar.Period, error) {
	defer p.v.lock()()
	per, ok := p.v.st.periods[id]
	if !ok {
		return nil, fmt.Errorf("period %d: %w", id, calendar.ErrNotFound)
	}
	return &per, nil
}

func (p periodStore) ListByClientAndProcess(_ context.Context, clientID string, processID int64) ([]*calendar.Period, error) {
	defer p.v.lock()()
	out := make([]*calendar.Period, 0)
	for _, per := range p.v.st.periods {
		if per.ClientID == clientID && per.ProcessID == processID {
			per := per
			out = append(out, &per)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartDate.Before(out[j].StartDate) })
	return out, nil
}

func (p periodStore) SetActive(_ context.Context, id int64, active bool) error {
	defer p.v.lock()()
	per, ok := p.v.st.periods[id]
	if !ok {
		return fmt.Errorf("period %d: %w", id, calendar.ErrNotFound)
	}
	per.Active = active
	p.v.st.periods[id] = per
	return nil
}

// --- occurrences ---

type occurrenceStore struct{ v *view }

func (o occurrenceStore) Save(_ context.Context, occ *calendar.Occurrence) error {
	defer o.v.lock()()
	if _, ok := o.v.st.periods[occ.PeriodID]; !ok {
		return fmt.Errorf("period %d: %w", occ.PeriodID, calendar.ErrNotFound)
	}
	if occ.ID == 0 {
		occ.ID = o.v.st.id()
	}
	o.v.st.occurrences[occ.ID] = *occ
	return nil
}

func (o occurrenceStore) GetByID(_ context.Context, id int64) (*calendar.Occurrence, error) {
	defer o.v.lock()()
	occ, ok := o.v.st.occurrences[id]
	if !ok {
		return nil, fmt.Errorf("occurrence %d: %w", id, calendar.ErrNotFound)
	}
	return &occ, nil
}

func (o occurrenceStore) Find(_ context.Context, f calendar.OccurrenceFilter) ([]*calendar.Occurrence, error) {
	defer o.v.lock()()
	out := make([]*calendar.Occurrence, 0)
	for _, occ := range o.v.st.occurrences {
		if o.v.matches(occ, f) {
			occ := occ
			out = append(out, &occ)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		switch {
		case a.Deadline == nil && b.Deadline == nil:
			return a.ID < b.ID
		case a.Deadline == nil:
			return false
		case b.Deadline == nil:
			return true
		case !a.Deadline.Equal(*b.Deadline):
			return a.Deadline.Before(*b.Deadline)
		}
		return a.ID < b.ID
	})
	return out, nil
}

func (v *view) matches(occ calendar.Occurrence, f calendar.OccurrenceFilter) bool {
	if len(f.IDs) > 0 && !containsID(f.IDs, occ.ID) {
		return false
	}
	if f.TemplateID != nil && occ.TemplateID != *f.TemplateID {
		return false
	}
	if f.PeriodID != nil && occ.PeriodID != *f.PeriodID {
		return false
	}
	if f.ActiveOnly && !occ.Active {
		return false
	}
	if len(f.States) > 0 && !containsState(f.States, occ.State) {
		return false
	}
	if f.DeadlineFrom != nil || f.DeadlineTo != nil {
		if occ.Deadline == nil {
			return false
		}
		if f.DeadlineFrom != nil && occ.Deadline.Before(calendar.DateOf(*f.DeadlineFrom)) {
			return false
		}
		if f.DeadlineTo != nil && occ.Deadline.After(calendar.DateOf(*f.DeadlineTo)) {
			return false
		}
	}
	if len(f.ClientIDs) > 0 {
		per, ok := v.st.periods[occ.PeriodID]
		if !ok || !containsString(f.ClientIDs, per.ClientID) {
			return false
		}
	}
	return true
}

func (o occurrenceStore) Update(_ context.Context, id int64, patch calendar.OccurrencePatch) error {
	defer o.v.lock()()
	occ, ok := o.v.st.occurrences[id]
	if !ok {
		return fmt.Errorf("occurrence %d: %w", id, calendar.ErrNotFound)
	}
	patch.Apply(&occ)
	o.v.st.occurrences[id] = occ
	return nil
}

func (o occurrenceStore) CountActiveByPeriod(_ context.Context, periodID int64) (int, error) {
	defer o.v.lock()()
	n := 0
	for _, occ := range o.v.st.occurrences {
		if occ.PeriodID == periodID && occ.Active {
			n++
		}
	}
	return n, nil
}

// --- fulfillments ---

type fulfillmentStore struct{ v *view }

func (f fulfillmentStore) Create(_ context.Context, r *calendar.FulfillmentRecord) error {
	defer f.v.lock()()
	if _, ok := f.v.st.occurrences[r.OccurrenceID]; !ok {
		return fmt.Errorf("occurrence %d: %w", r.OccurrenceID, calendar.ErrNotFound)
	}
	r.ID = f.v.st.id()
	if r.CreatedAt.IsZero() {
		r.CreatedAt = f.v.now()
	}
	f.v.st.fulfillments[r.ID] = *r
	return nil
}

func (f fulfillmentStore) LatestByOccurrence(_ context.Context, occurrenceID int64) (*calendar.FulfillmentRecord, error) {
	defer f.v.lock()()
	var latest *calendar.FulfillmentRecord
	for _, r := range f.v.st.fulfillments {
		if r.OccurrenceID != occurrenceID {
			continue
		}
		if latest == nil || r.ID > latest.ID {
			r := r
			latest = &r
		}
	}
	if latest == nil {
		return nil, fmt.Errorf("fulfillment for occurrence %d: %w", occurrenceID, calendar.ErrNotFound)
	}
	return latest, nil
}

func containsID(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func containsString(vals []string, s string) bool {
	for _, v := range vals {
		if v == s {
			return true
		}
	}
	return false
}

func containsState(states []calendar.BaseState, s calendar.BaseState) bool {
	for _, v := range states {
		if v == s {
			return true
		}
	}
	return false
}
