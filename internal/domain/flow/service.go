// Package flow orchestrates patient movement through the department:
// arrival, triage completion with room routing, and discharge.
package flow

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/edflow/edflow/internal/domain/event"
	"github.com/edflow/edflow/internal/domain/pathway"
	"github.com/edflow/edflow/internal/domain/patient"
	"github.com/edflow/edflow/internal/domain/room"
	"github.com/edflow/edflow/internal/domain/task"
)

// TaskCreator is the slice of the task service the flow needs.
type TaskCreator interface {
	Create(ctx context.Context, t *task.NursingTask) (bool, error)
}

// RoomAssigner places patients into rooms transactionally.
type RoomAssigner interface {
	AssignFirstAvailable(ctx context.Context, roomType room.Type, patientID uuid.UUID, actor string) (*room.Room, error)
	Release(ctx context.Context, roomID uuid.UUID, actor string) (*room.Room, error)
	List(ctx context.Context, roomType room.Type, status room.Status, limit, offset int) ([]*room.Room, int, error)
}

// EventRecorder is the slice of the event service the flow needs.
type EventRecorder interface {
	Record(ctx context.Context, e *event.Event) error
}

// PathwayCreator opens pathways for newly arrived patients and closes
// them out on triage completion and discharge.
type PathwayCreator interface {
	Create(ctx context.Context, p *pathway.CarePathway) error
	AddStep(ctx context.Context, s *pathway.Step) error
	ActiveByPatientAndType(ctx context.Context, patientID uuid.UUID, t pathway.Type) (*pathway.CarePathway, error)
	CompleteActiveForPatient(ctx context.Context, patientID uuid.UUID, actor string) error
}

type Service struct {
	patients patient.Repository
	pathways PathwayCreator
	rooms    RoomAssigner
	tasks    TaskCreator
	events   EventRecorder
	inTx     pathway.TxRunner
	log      zerolog.Logger
	now      func() time.Time
}

func NewService(patients patient.Repository, pathways PathwayCreator, rooms RoomAssigner, tasks TaskCreator, events EventRecorder, inTx pathway.TxRunner, log zerolog.Logger) *Service {
	return &Service{
		patients: patients,
		pathways: pathways,
		rooms:    rooms,
		tasks:    tasks,
		events:   events,
		inTx:     inTx,
		log:      log,
		now:      time.Now,
	}
}

// defaultTriageSteps is the checklist opened for every arrival.
var defaultTriageSteps = []string{
	"Vitals recorded",
	"Chief complaint documented",
	"ESI level assigned",
	"Triage assessment complete",
}

// RegisterArrival creates the patient in the waiting room with a triage
// pathway already opened, and records the arrival.
func (s *Service) RegisterArrival(ctx context.Context, p *patient.Patient, actor string) error {
	return s.inTx(ctx, func(ctx context.Context) error {
		p.LocationStatus = patient.LocationWaitingRoom
		if p.ArrivalAt.IsZero() {
			p.ArrivalAt = s.now()
		}
		if err := p.Validate(); err != nil {
			return err
		}
		if existing, err := s.patients.GetByMRN(ctx, p.MRN); err != nil {
			return err
		} else if existing != nil {
			return fmt.Errorf("patient with MRN %s already has an active visit", p.MRN)
		}
		if err := s.patients.Create(ctx, p); err != nil {
			return err
		}

		tp := &pathway.CarePathway{
			PatientID: p.ID,
			Type:      pathway.TypeTriage,
			Name:      "Triage",
		}
		if err := s.pathways.Create(ctx, tp); err != nil {
			return err
		}
		for i, name := range defaultTriageSteps {
			if err := s.pathways.AddStep(ctx, &pathway.Step{PathwayID: tp.ID, Name: name, Position: i + 1}); err != nil {
				return err
			}
		}

		return s.events.Record(ctx, &event.Event{
			PatientID:   &p.ID,
			Category:    event.CategoryArrival,
			Description: fmt.Sprintf("arrived with %q", p.ChiefComplaint),
			Actor:       actor,
		})
	})
}

// RoutingResult reports where triage completion sent the patient. When an
// RP-eligible patient found no free room, Blocked is true and the caller
// surfaces it to the user; no task is created for that case.
type RoutingResult struct {
	Patient  *patient.Patient `json:"patient"`
	Room     *room.Room       `json:"room,omitempty"`
	Blocked  bool             `json:"blocked"`
	TaskMade bool             `json:"task_created"`
}

// PathwayCompleted implements pathway.CompletionHook: completed triage
// pathways trigger routing, other pathway types need no flow action.
func (s *Service) PathwayCompleted(ctx context.Context, p *pathway.CarePathway) error {
	if p.Type != pathway.TypeTriage {
		return nil
	}
	_, err := s.routeAfterTriage(ctx, p.PatientID, "system")
	return err
}

// CompleteTriage stamps triage completion and routes the patient. Exposed
// for direct use; the pathway completion hook runs the same routing. An
// open triage pathway with unchecked steps blocks the call.
func (s *Service) CompleteTriage(ctx context.Context, patientID uuid.UUID, actor string) (*RoutingResult, error) {
	tp, err := s.pathways.ActiveByPatientAndType(ctx, patientID, pathway.TypeTriage)
	if err != nil {
		return nil, err
	}
	if tp != nil && !tp.Evaluate().Complete {
		return nil, fmt.Errorf("triage pathway has incomplete steps")
	}
	return s.routeAfterTriage(ctx, patientID, actor)
}

// routeAfterTriage applies the destination policy: RP-eligible patients
// try for an RP room right now and block in pending_transfer when none is
// free; everyone else waits in needs_room_assignment with a task raised.
func (s *Service) routeAfterTriage(ctx context.Context, patientID uuid.UUID, actor string) (*RoutingResult, error) {
	result := &RoutingResult{}
	err := s.inTx(ctx, func(ctx context.Context) error {
		p, err := s.patients.GetByIDForUpdate(ctx, patientID)
		if err != nil {
			return err
		}
		if p == nil {
			return fmt.Errorf("patient not found")
		}
		now := s.now()
		if p.TriageCompletedAt == nil {
			p.TriageCompletedAt = &now
		}

		// Triage steps can all be checked off while the patient is still
		// sitting in the waiting room; pass them through triage here so
		// routing to a destination is valid.
		if p.LocationStatus == patient.LocationWaitingRoom {
			if err := p.Transition(patient.LocationTriage, now); err != nil {
				return err
			}
		}

		if p.RPEligible {
			if err := p.Transition(patient.LocationPendingTransfer, now); err != nil {
				return err
			}
			if err := s.patients.Update(ctx, p); err != nil {
				return err
			}
			rm, err := s.rooms.AssignFirstAvailable(ctx, room.TypeRP, p.ID, actor)
			if err != nil {
				return err
			}
			if rm != nil {
				result.Room = rm
				result.Patient, err = s.patients.GetByID(ctx, p.ID)
				return err
			}
			// No RP room free: the patient blocks where they are and the
			// UI surfaces it. No task by policy.
			result.Blocked = true
			result.Patient = p
			return nil
		}

		if err := p.Transition(patient.LocationNeedsRoomAssignment, now); err != nil {
			return err
		}
		if err := s.patients.Update(ctx, p); err != nil {
			return err
		}

		priority := task.PriorityHigh
		if p.ESILevel != nil && *p.ESILevel <= 2 {
			priority = task.PriorityUrgent
		}
		key := "room_assignment:triage_complete"
		created, err := s.tasks.Create(ctx, &task.NursingTask{
			PatientID:    &p.ID,
			Kind:         task.KindRoomAssignment,
			Priority:     priority,
			AssignedRole: "charge_nurse",
			Description:  fmt.Sprintf("Room needed for %s %s", p.FirstName, p.LastName),
			ConditionKey: &key,
			DueAt:        now,
		})
		if err != nil {
			return err
		}
		result.TaskMade = created
		result.Patient = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Discharge ends the visit, releasing any occupied room.
func (s *Service) Discharge(ctx context.Context, patientID uuid.UUID, actor string) (*patient.Patient, error) {
	var discharged *patient.Patient
	err := s.inTx(ctx, func(ctx context.Context) error {
		p, err := s.patients.GetByIDForUpdate(ctx, patientID)
		if err != nil {
			return err
		}
		if p == nil {
			return fmt.Errorf("patient not found")
		}
		now := s.now()
		if err := p.Transition(patient.LocationDischarged, now); err != nil {
			return err
		}
		if err := s.pathways.CompleteActiveForPatient(ctx, p.ID, actor); err != nil {
			return err
		}

		if p.RoomNumber != nil {
			if err := s.releaseRoomOf(ctx, p, actor); err != nil {
				// The discharge stands even if the room row is out of
				// sync; housekeeping can reconcile it.
				s.log.Warn().Err(err).Str("patient_id", p.ID.String()).Msg("could not release room on discharge")
			}
			p.RoomNumber = nil
		}
		if err := s.patients.Update(ctx, p); err != nil {
			return err
		}
		discharged = p
		return s.events.Record(ctx, &event.Event{
			PatientID:   &p.ID,
			Category:    event.CategoryDischarge,
			Description: "discharged",
			Actor:       actor,
		})
	})
	if err != nil {
		return nil, err
	}
	return discharged, nil
}

func (s *Service) releaseRoomOf(ctx context.Context, p *patient.Patient, actor string) error {
	rooms, _, err := s.rooms.List(ctx, "", room.StatusOccupied, 1000, 0)
	if err != nil {
		return err
	}
	for _, rm := range rooms {
		if rm.CurrentPatientID != nil && *rm.CurrentPatientID == p.ID {
			_, err := s.rooms.Release(ctx, rm.ID, actor)
			return err
		}
	}
	return fmt.Errorf("no occupied room found for patient")
}
