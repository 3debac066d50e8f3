package task

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/edflow/edflow/internal/domain/event"
)

// EventRecorder is the slice of the event service the task service needs.
type EventRecorder interface {
	Record(ctx context.Context, e *event.Event) error
}

type Service struct {
	repo   Repository
	events EventRecorder
}

func NewService(repo Repository, events EventRecorder) *Service {
	return &Service{repo: repo, events: events}
}

// Create validates and stores a new task. For monitor-raised kinds
// (wait_time, room_assignment) an active duplicate for the same patient
// suppresses creation; the returned bool reports whether a task was created.
func (s *Service) Create(ctx context.Context, t *NursingTask) (bool, error) {
	if t.Status == "" {
		t.Status = StatusPending
	}
	if t.Priority == "" {
		t.Priority = PriorityRoutine
	}
	if t.DueAt.IsZero() {
		t.DueAt = time.Now()
	}
	if err := t.Validate(); err != nil {
		return false, err
	}

	if t.PatientID != nil && (t.Kind == KindWaitTime || t.Kind == KindRoomAssignment) {
		exists, err := s.repo.ExistsActive(ctx, *t.PatientID, t.Kind)
		if err != nil {
			return false, fmt.Errorf("check duplicate task: %w", err)
		}
		if exists {
			return false, nil
		}
	}

	if err := s.repo.Create(ctx, t); err != nil {
		return false, err
	}
	if s.events != nil && t.PatientID != nil {
		_ = s.events.Record(ctx, &event.Event{
			PatientID:   t.PatientID,
			Category:    event.CategoryTaskCreated,
			Description: fmt.Sprintf("%s task created: %s", t.Priority, t.Description),
			Actor:       "system",
		})
	}
	return true, nil
}

func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*NursingTask, error) {
	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, fmt.Errorf("task not found")
	}
	return t, nil
}

// Claim moves a pending task to in_progress and records who took it.
func (s *Service) Claim(ctx context.Context, id uuid.UUID, actor string) (*NursingTask, error) {
	t, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if t.Status != StatusPending {
		return nil, fmt.Errorf("task is %s, only pending tasks can be claimed", t.Status)
	}
	t.Status = StatusInProgress
	t.AssignedTo = &actor
	if err := s.repo.Update(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *Service) Complete(ctx context.Context, id uuid.UUID, actor string) (*NursingTask, error) {
	t, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !t.Status.Active() {
		return nil, fmt.Errorf("task is %s, only active tasks can be completed", t.Status)
	}
	now := time.Now()
	t.Status = StatusCompleted
	t.CompletedAt = &now
	if t.AssignedTo == nil {
		t.AssignedTo = &actor
	}
	if err := s.repo.Update(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *Service) Cancel(ctx context.Context, id uuid.UUID) (*NursingTask, error) {
	t, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !t.Status.Active() {
		return nil, fmt.Errorf("task is %s, only active tasks can be cancelled", t.Status)
	}
	t.Status = StatusCancelled
	if err := s.repo.Update(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// CancelActiveByKind resolves outstanding alerts of one kind for a patient,
// e.g. clearing a room_assignment alert once a room is assigned.
func (s *Service) CancelActiveByKind(ctx context.Context, patientID uuid.UUID, kind Kind) error {
	return s.repo.CancelActiveByKind(ctx, patientID, kind)
}

func (s *Service) List(ctx context.Context, f ListFilter, limit, offset int) ([]*NursingTask, int, error) {
	return s.repo.List(ctx, f, limit, offset)
}
