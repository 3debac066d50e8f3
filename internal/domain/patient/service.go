package patient

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/edflow/edflow/internal/domain/event"
	"github.com/edflow/edflow/internal/domain/settings"
	"github.com/edflow/edflow/internal/domain/timer"
)

// SettingsProvider supplies the current department configuration.
type SettingsProvider interface {
	Current(ctx context.Context) (*settings.ApplicationSetting, error)
}

// EventRecorder is the slice of the event service the patient service needs.
type EventRecorder interface {
	Record(ctx context.Context, e *event.Event) error
}

type Service struct {
	repo     Repository
	vitals   VitalsRepository
	settings SettingsProvider
	events   EventRecorder
	now      func() time.Time
}

func NewService(repo Repository, vitals VitalsRepository, settings SettingsProvider, events EventRecorder) *Service {
	return &Service{repo: repo, vitals: vitals, settings: settings, events: events, now: time.Now}
}

// Create registers a new patient row. Flow-level arrival handling lives in
// the flow service; this is the plain persistence operation.
func (s *Service) Create(ctx context.Context, p *Patient) error {
	if p.LocationStatus == "" {
		p.LocationStatus = LocationWaitingRoom
	}
	if p.ArrivalAt.IsZero() {
		p.ArrivalAt = s.now()
	}
	if err := p.Validate(); err != nil {
		return err
	}
	if existing, err := s.repo.GetByMRN(ctx, p.MRN); err != nil {
		return err
	} else if existing != nil {
		return fmt.Errorf("patient with MRN %s already has an active visit", p.MRN)
	}
	return s.repo.Create(ctx, p)
}

func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("patient not found")
	}
	return p, nil
}

func (s *Service) Update(ctx context.Context, p *Patient) error {
	if err := p.Validate(); err != nil {
		return err
	}
	return s.repo.Update(ctx, p)
}

// Transition moves a patient between location statuses and records the move
// in the activity feed.
func (s *Service) Transition(ctx context.Context, id uuid.UUID, to LocationStatus, actor string) (*Patient, error) {
	p, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	from := p.LocationStatus
	if err := p.Transition(to, s.now()); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, p); err != nil {
		return nil, err
	}
	if s.events != nil {
		_ = s.events.Record(ctx, &event.Event{
			PatientID:   &p.ID,
			Category:    event.CategoryLocationChange,
			Description: fmt.Sprintf("moved from %s to %s", from, to),
			Actor:       actor,
		})
	}
	return p, nil
}

// BoardEntry is one row of the waiting-room board: the patient plus the
// wait timer evaluated against their ESI target.
type BoardEntry struct {
	Patient     *Patient     `json:"patient"`
	WaitingMins int          `json:"waiting_mins"`
	TargetMins  int          `json:"target_mins"`
	TimerStatus timer.Status `json:"timer_status"`
}

// WaitingBoard lists patients still before a room (waiting_room, triage,
// pending_transfer) with per-patient wait timers.
func (s *Service) WaitingBoard(ctx context.Context, limit, offset int) ([]*BoardEntry, int, error) {
	cfg, err := s.settings.Current(ctx)
	if err != nil {
		return nil, 0, err
	}
	patients, total, err := s.repo.ListByLocations(ctx,
		[]LocationStatus{LocationWaitingRoom, LocationTriage, LocationPendingTransfer}, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	return s.board(patients, cfg), total, nil
}

// NeedingRoom lists patients blocked on a room assignment.
func (s *Service) NeedingRoom(ctx context.Context, limit, offset int) ([]*Patient, int, error) {
	return s.repo.ListByLocations(ctx, []LocationStatus{LocationNeedsRoomAssignment}, limit, offset)
}

// ByLocation lists patients at one location, for the per-area dashboard
// columns (results-pending bay, ED rooms, treatment).
func (s *Service) ByLocation(ctx context.Context, loc LocationStatus, limit, offset int) ([]*Patient, int, error) {
	if !loc.Valid() {
		return nil, 0, fmt.Errorf("unknown location status %q", loc)
	}
	return s.repo.ListByLocations(ctx, []LocationStatus{loc}, limit, offset)
}

func (s *Service) ListActive(ctx context.Context, limit, offset int) ([]*Patient, int, error) {
	return s.repo.ListActive(ctx, limit, offset)
}

func (s *Service) board(patients []*Patient, cfg *settings.ApplicationSetting) []*BoardEntry {
	now := s.now()
	targets := cfg.WaitTargets()
	th := cfg.Thresholds()
	entries := make([]*BoardEntry, 0, len(patients))
	for _, p := range patients {
		esi := 0
		if p.ESILevel != nil {
			esi = *p.ESILevel
		}
		target := timer.WaitTarget(esi, targets)
		waiting := p.WaitingMinutes(now)
		entries = append(entries, &BoardEntry{
			Patient:     p,
			WaitingMins: waiting,
			TargetMins:  target,
			TimerStatus: timer.Calculate(waiting, target, th),
		})
	}
	return entries
}

// RecordVitals stores a reading and stamps the recorder.
func (s *Service) RecordVitals(ctx context.Context, v *Vitals, actor string) error {
	if v.RecordedAt.IsZero() {
		v.RecordedAt = s.now()
	}
	if v.RecordedBy == "" {
		v.RecordedBy = actor
	}
	if err := v.Validate(); err != nil {
		return err
	}
	if _, err := s.GetByID(ctx, v.PatientID); err != nil {
		return err
	}
	return s.vitals.Create(ctx, v)
}

func (s *Service) ListVitals(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Vitals, int, error) {
	return s.vitals.ListByPatient(ctx, patientID, limit, offset)
}
