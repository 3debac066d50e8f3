package room

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/edflow/edflow/internal/domain/event"
	"github.com/edflow/edflow/internal/domain/patient"
	"github.com/edflow/edflow/internal/domain/task"
	"github.com/edflow/edflow/internal/platform/db"
)

// TxRunner runs fn atomically; every repository call made with the context
// fn receives joins the same transaction.
type TxRunner func(ctx context.Context, fn func(ctx context.Context) error) error

// PoolTxRunner is the production TxRunner backed by a pgx pool.
func PoolTxRunner(pool *pgxpool.Pool) TxRunner {
	return func(ctx context.Context, fn func(ctx context.Context) error) error {
		return db.WithTx(ctx, pool, fn)
	}
}

// EventRecorder is the slice of the event service the room service needs.
type EventRecorder interface {
	Record(ctx context.Context, e *event.Event) error
}

// TaskResolver clears outstanding alerts once their condition is resolved.
type TaskResolver interface {
	CancelActiveByKind(ctx context.Context, patientID uuid.UUID, kind task.Kind) error
}

type Service struct {
	repo     Repository
	patients patient.Repository
	events   EventRecorder
	tasks    TaskResolver
	inTx     TxRunner
	now      func() time.Time
}

func NewService(repo Repository, patients patient.Repository, events EventRecorder, tasks TaskResolver, inTx TxRunner) *Service {
	return &Service{repo: repo, patients: patients, events: events, tasks: tasks, inTx: inTx, now: time.Now}
}

func (s *Service) Create(ctx context.Context, rm *Room) error {
	if rm.Status == "" {
		rm.Status = StatusAvailable
	}
	if err := rm.Validate(); err != nil {
		return err
	}
	return s.repo.Create(ctx, rm)
}

func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*Room, error) {
	rm, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if rm == nil {
		return nil, fmt.Errorf("room not found")
	}
	return rm, nil
}

func (s *Service) List(ctx context.Context, roomType Type, status Status, limit, offset int) ([]*Room, int, error) {
	return s.repo.List(ctx, roomType, status, limit, offset)
}

// destination is where a patient lands once roomed: RP rooms hold patients
// waiting on results, ED rooms receive them for treatment.
func destination(t Type) patient.LocationStatus {
	if t == TypeRP {
		return patient.LocationResultsPending
	}
	return patient.LocationEDRoom
}

// Assign places a patient in a specific room. Room and patient rows are
// locked and updated in one transaction with exactly one event emitted;
// a failure at any point persists nothing.
func (s *Service) Assign(ctx context.Context, roomID, patientID uuid.UUID, actor string) (*Room, error) {
	var assigned *Room
	err := s.inTx(ctx, func(ctx context.Context) error {
		rm, err := s.repo.GetByIDForUpdate(ctx, roomID)
		if err != nil {
			return err
		}
		if rm == nil {
			return fmt.Errorf("room not found")
		}
		if rm.Status != StatusAvailable {
			return fmt.Errorf("room %s is %s", rm.Number, rm.Status)
		}
		if err := s.occupy(ctx, rm, patientID, actor); err != nil {
			return err
		}
		assigned = rm
		return nil
	})
	if err != nil {
		return nil, err
	}
	return assigned, nil
}

// AssignFirstAvailable tries to place a patient in any free room of the
// given type right now. It returns (nil, nil) when no room is free; the
// caller decides what blocking on a room means.
func (s *Service) AssignFirstAvailable(ctx context.Context, roomType Type, patientID uuid.UUID, actor string) (*Room, error) {
	var assigned *Room
	err := s.inTx(ctx, func(ctx context.Context) error {
		rm, err := s.repo.FirstAvailableForUpdate(ctx, roomType)
		if err != nil {
			return err
		}
		if rm == nil {
			return nil
		}
		if err := s.occupy(ctx, rm, patientID, actor); err != nil {
			return err
		}
		assigned = rm
		return nil
	})
	if err != nil {
		return nil, err
	}
	return assigned, nil
}

// occupy performs the in-transaction mutation shared by both assignment
// paths. The caller holds the lock on rm.
func (s *Service) occupy(ctx context.Context, rm *Room, patientID uuid.UUID, actor string) error {
	p, err := s.patients.GetByIDForUpdate(ctx, patientID)
	if err != nil {
		return err
	}
	if p == nil {
		return fmt.Errorf("patient not found")
	}
	dest := destination(rm.Type)
	if err := p.Transition(dest, s.now()); err != nil {
		return err
	}
	p.RoomNumber = &rm.Number

	rm.Status = StatusOccupied
	rm.CurrentPatientID = &p.ID

	if err := s.repo.Update(ctx, rm); err != nil {
		return err
	}
	if err := s.patients.Update(ctx, p); err != nil {
		return err
	}
	if s.tasks != nil {
		if err := s.tasks.CancelActiveByKind(ctx, p.ID, task.KindRoomAssignment); err != nil {
			return err
		}
	}
	return s.events.Record(ctx, &event.Event{
		PatientID:   &p.ID,
		Category:    event.CategoryRoomAssigned,
		Description: fmt.Sprintf("assigned to %s room %s", rm.Type, rm.Number),
		Actor:       actor,
	})
}

// Release frees a room when its patient leaves. The room goes to cleaning,
// not straight back to available.
func (s *Service) Release(ctx context.Context, roomID uuid.UUID, actor string) (*Room, error) {
	var released *Room
	err := s.inTx(ctx, func(ctx context.Context) error {
		rm, err := s.repo.GetByIDForUpdate(ctx, roomID)
		if err != nil {
			return err
		}
		if rm == nil {
			return fmt.Errorf("room not found")
		}
		if rm.Status != StatusOccupied {
			return fmt.Errorf("room %s is %s, not occupied", rm.Number, rm.Status)
		}
		patientID := rm.CurrentPatientID
		rm.Status = StatusCleaning
		rm.CurrentPatientID = nil
		if err := s.repo.Update(ctx, rm); err != nil {
			return err
		}
		released = rm
		return s.events.Record(ctx, &event.Event{
			PatientID:   patientID,
			Category:    event.CategoryRoomReleased,
			Description: fmt.Sprintf("room %s released for cleaning", rm.Number),
			Actor:       actor,
		})
	})
	if err != nil {
		return nil, err
	}
	return released, nil
}

// MarkClean returns a cleaned or repaired room to the available pool.
func (s *Service) MarkClean(ctx context.Context, roomID uuid.UUID) (*Room, error) {
	rm, err := s.GetByID(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if rm.Status != StatusCleaning && rm.Status != StatusMaintenance {
		return nil, fmt.Errorf("room %s is %s, not cleaning or maintenance", rm.Number, rm.Status)
	}
	rm.Status = StatusAvailable
	if err := s.repo.Update(ctx, rm); err != nil {
		return nil, err
	}
	return rm, nil
}

// SetMaintenance takes an empty room out of service.
func (s *Service) SetMaintenance(ctx context.Context, roomID uuid.UUID) (*Room, error) {
	rm, err := s.GetByID(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if rm.Status != StatusAvailable && rm.Status != StatusCleaning {
		return nil, fmt.Errorf("room %s is %s and cannot go to maintenance", rm.Number, rm.Status)
	}
	rm.Status = StatusMaintenance
	if err := s.repo.Update(ctx, rm); err != nil {
		return nil, err
	}
	return rm, nil
}
