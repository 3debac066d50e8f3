package event

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Publisher receives every recorded event for live delivery to dashboards.
// Publishing is best effort and never fails the write.
type Publisher interface {
	PublishEvent(e *Event)
}

type Service struct {
	repo      Repository
	publisher Publisher
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// SetPublisher wires the live feed. Set once at startup.
func (s *Service) SetPublisher(p Publisher) { s.publisher = p }

// Record appends an entry to the activity feed.
func (s *Service) Record(ctx context.Context, e *Event) error {
	if e.Category == "" {
		return fmt.Errorf("category is required")
	}
	if e.Description == "" {
		return fmt.Errorf("description is required")
	}
	if e.Actor == "" {
		e.Actor = "system"
	}
	if err := s.repo.Create(ctx, e); err != nil {
		return err
	}
	if s.publisher != nil {
		s.publisher.PublishEvent(e)
	}
	return nil
}

// RecordForPatient is a convenience wrapper for the common case.
func (s *Service) RecordForPatient(ctx context.Context, patientID uuid.UUID, cat Category, description, actor string, timerStatus *string) error {
	return s.Record(ctx, &Event{
		PatientID:   &patientID,
		Category:    cat,
		Description: description,
		Actor:       actor,
		TimerStatus: timerStatus,
	})
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]*Event, int, error) {
	return s.repo.List(ctx, limit, offset)
}

func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Event, int, error) {
	return s.repo.ListByPatient(ctx, patientID, limit, offset)
}
