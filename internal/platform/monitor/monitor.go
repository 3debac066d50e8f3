// Package monitor runs the recurring wait-time sweep. It watches patients
// still waiting on triage or a room and raises nursing tasks when their
// timers cross the warning or critical thresholds.
package monitor

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/edflow/edflow/internal/domain/patient"
	"github.com/edflow/edflow/internal/domain/settings"
	"github.com/edflow/edflow/internal/domain/task"
	"github.com/edflow/edflow/internal/domain/timer"
)

// Room-assignment alerting is independent of ESI and of the configured
// percentages: a fixed 20-minute target classified with 75/100, putting
// the warning boundary at 15 minutes.
const roomAssignTargetMins = 20

var roomAssignThresholds = timer.Thresholds{WarningPct: 75, CriticalPct: 100}

// Due-at offsets for warning-level tasks; critical tasks are due now.
const (
	waitWarningDue = 10 * time.Minute
	roomWarningDue = 5 * time.Minute
)

const chargeNurseRole = "charge_nurse"

// PatientLister is the slice of the patient repository the monitor needs.
type PatientLister interface {
	ListByLocations(ctx context.Context, locations []patient.LocationStatus, limit, offset int) ([]*patient.Patient, int, error)
}

// SettingsProvider supplies a fresh configuration snapshot per sweep.
type SettingsProvider interface {
	Current(ctx context.Context) (*settings.ApplicationSetting, error)
}

// TaskCreator creates tasks with duplicate suppression; the returned bool
// reports whether a task was actually created.
type TaskCreator interface {
	Create(ctx context.Context, t *task.NursingTask) (bool, error)
}

// Monitor sweeps on a fixed interval until its context is cancelled.
type Monitor struct {
	patients PatientLister
	settings SettingsProvider
	tasks    TaskCreator
	interval time.Duration
	log      zerolog.Logger
	now      func() time.Time
}

func New(patients PatientLister, settings SettingsProvider, tasks TaskCreator, interval time.Duration, log zerolog.Logger) *Monitor {
	return &Monitor{
		patients: patients,
		settings: settings,
		tasks:    tasks,
		interval: interval,
		log:      log,
		now:      time.Now,
	}
}

// Run blocks, sweeping every interval, until ctx is cancelled. Sweeps are
// serialized by the loop itself; a slow sweep delays the next tick rather
// than overlapping it.
func (m *Monitor) Run(ctx context.Context) {
	m.log.Info().Dur("interval", m.interval).Msg("wait-time monitor started")
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			m.log.Info().Msg("wait-time monitor stopped")
			return
		case <-ticker.C:
			if err := m.Sweep(ctx); err != nil {
				m.log.Error().Err(err).Msg("monitor sweep failed")
			}
		}
	}
}

// Sweep runs one pass over both watch lists. A failure on one patient is
// logged and does not stop the rest of the sweep; only list-level failures
// abort.
func (m *Monitor) Sweep(ctx context.Context) error {
	cfg, err := m.settings.Current(ctx)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	waiting, _, err := m.patients.ListByLocations(ctx,
		[]patient.LocationStatus{patient.LocationWaitingRoom, patient.LocationTriage, patient.LocationPendingTransfer}, 1000, 0)
	if err != nil {
		return fmt.Errorf("list waiting patients: %w", err)
	}
	for _, p := range waiting {
		if err := m.checkWaitTime(ctx, p, cfg); err != nil {
			m.log.Error().Err(err).Str("patient_id", p.ID.String()).Msg("wait-time check failed")
		}
	}

	needingRoom, _, err := m.patients.ListByLocations(ctx,
		[]patient.LocationStatus{patient.LocationNeedsRoomAssignment}, 1000, 0)
	if err != nil {
		return fmt.Errorf("list patients needing room: %w", err)
	}
	for _, p := range needingRoom {
		if err := m.checkRoomAssignment(ctx, p); err != nil {
			m.log.Error().Err(err).Str("patient_id", p.ID.String()).Msg("room-assignment check failed")
		}
	}
	return nil
}

// waitElapsed is the minutes the patient has been waiting: since triage
// completion when they are past triage, otherwise since arrival.
func waitElapsed(p *patient.Patient, now time.Time) int {
	since := p.ArrivalAt
	if p.LocationStatus == patient.LocationPendingTransfer && p.TriageCompletedAt != nil {
		since = *p.TriageCompletedAt
	}
	mins := int(now.Sub(since).Minutes())
	if mins < 0 {
		return 0
	}
	return mins
}

func (m *Monitor) checkWaitTime(ctx context.Context, p *patient.Patient, cfg *settings.ApplicationSetting) error {
	esi := 0
	if p.ESILevel != nil {
		esi = *p.ESILevel
	}
	now := m.now()
	elapsed := waitElapsed(p, now)
	target := timer.WaitTarget(esi, cfg.WaitTargets())
	status := timer.Calculate(elapsed, target, cfg.Thresholds())
	if status == timer.StatusGreen {
		return nil
	}

	nt := &task.NursingTask{
		PatientID:    &p.ID,
		Kind:         task.KindWaitTime,
		AssignedRole: chargeNurseRole,
	}
	key := fmt.Sprintf("wait_time:esi%d:%s", esi, status)
	nt.ConditionKey = &key
	switch status {
	case timer.StatusRed:
		nt.Priority = task.PriorityUrgent
		nt.DueAt = now
		nt.Description = fmt.Sprintf("CRITICAL WAIT TIME: %s %s (ESI %d) waiting %d minutes, target %d",
			p.FirstName, p.LastName, esi, elapsed, target)
	default:
		nt.Priority = task.PriorityHigh
		nt.DueAt = now.Add(waitWarningDue)
		nt.Description = fmt.Sprintf("Wait time warning: %s %s (ESI %d) waiting %d minutes, target %d",
			p.FirstName, p.LastName, esi, elapsed, target)
	}

	created, err := m.tasks.Create(ctx, nt)
	if err != nil {
		return err
	}
	if created {
		m.log.Warn().
			Str("patient_id", p.ID.String()).
			Int("esi", esi).
			Int("elapsed_mins", elapsed).
			Str("status", string(status)).
			Msg("wait-time alert raised")
	}
	return nil
}

func (m *Monitor) checkRoomAssignment(ctx context.Context, p *patient.Patient) error {
	if p.RoomAssignmentNeededAt == nil {
		return nil
	}
	now := m.now()
	elapsed := int(now.Sub(*p.RoomAssignmentNeededAt).Minutes())
	status := timer.Calculate(elapsed, roomAssignTargetMins, roomAssignThresholds)
	if status == timer.StatusGreen {
		return nil
	}

	nt := &task.NursingTask{
		PatientID:    &p.ID,
		Kind:         task.KindRoomAssignment,
		AssignedRole: chargeNurseRole,
	}
	switch status {
	case timer.StatusRed:
		key := "room_assignment:critical"
		nt.ConditionKey = &key
		nt.Priority = task.PriorityUrgent
		nt.DueAt = now
		nt.Description = fmt.Sprintf("CRITICAL ROOM DELAY: %s %s waiting %d minutes for a room",
			p.FirstName, p.LastName, elapsed)
	default:
		key := "room_assignment:warning"
		nt.ConditionKey = &key
		nt.Priority = task.PriorityHigh
		nt.DueAt = now.Add(roomWarningDue)
		nt.Description = fmt.Sprintf("Room delay warning: %s %s waiting %d minutes for a room",
			p.FirstName, p.LastName, elapsed)
	}

	created, err := m.tasks.Create(ctx, nt)
	if err != nil {
		return err
	}
	if created {
		m.log.Warn().
			Str("patient_id", p.ID.String()).
			Int("elapsed_mins", elapsed).
			Msg("room-assignment alert raised")
	}
	return nil
}
