package app

import (
	"context"
	"fmt"
	"time"

	"compliance_calendar/internal/domain/calendar"

	"github.com/sirupsen/logrus"
)

// FulfillRequest records the same fulfillment against several occurrences.
type FulfillRequest struct {
	OccurrenceIDs []int64
	Date          time.Time
	Time          *calendar.TimeOfDay
	Author        string
	Observation   string
}

// FulfillmentService attaches fulfillment records and finalizes occurrences.
type FulfillmentService struct {
	tx     calendar.Transactor
	logger *logrus.Entry
	now    func() time.Time
}

func NewFulfillmentService(tx calendar.Transactor, logger *logrus.Entry, now func() time.Time) *FulfillmentService {
	if now == nil {
		now = time.Now
	}
	return &FulfillmentService{tx: tx, logger: logger, now: now}
}

// FulfillBulk creates one record per active occurrence in the request and
// marks it Finalized. Inactive or unknown occurrences are skipped.
func (s *FulfillmentService) FulfillBulk(ctx context.Context, req FulfillRequest) (int, error) {
	if len(req.OccurrenceIDs) == 0 {
		return 0, calendar.NewValidationError("occurrence_ids", "at least one id is required")
	}
	if req.Date.IsZero() {
		return 0, calendar.NewValidationError("date", "is required")
	}

	created := 0
	err := s.tx.WithinTx(ctx, func(ctx context.Context, st calendar.Stores) error {
		candidates, err := st.Occurrences.Find(ctx, calendar.OccurrenceFilter{IDs: req.OccurrenceIDs, ActiveOnly: true})
		if err != nil {
			return fmt.Errorf("failed to load occurrences: %w", err)
		}
		now := s.now()
		finalized := calendar.StateFinalized
		for _, o := range candidates {
			rec := &calendar.FulfillmentRecord{
				OccurrenceID: o.ID,
				Date:         calendar.DateOf(req.Date),
				Time:         req.Time,
				Author:       req.Author,
				Observation:  req.Observation,
				CreatedAt:    now,
			}
			if err := st.Fulfillments.Create(ctx, rec); err != nil {
				return fmt.Errorf("failed to record fulfillment of occurrence %d: %w", o.ID, err)
			}
			patch := calendar.OccurrencePatch{State: &finalized, StatusChangedAt: &now}
			if err := st.Occurrences.Update(ctx, o.ID, patch); err != nil {
				return fmt.Errorf("failed to finalize occurrence %d: %w", o.ID, err)
			}
			created++
		}
		return nil
	})
	if err != nil {
		s.logger.WithError(err).Error("Bulk fulfillment failed")
		return 0, err
	}
	s.logger.WithFields(logrus.Fields{"requested": len(req.OccurrenceIDs), "fulfilled": created, "author": req.Author}).Info("Occurrences fulfilled")
	return created, nil
}
