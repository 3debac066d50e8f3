package monitor

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/edflow/edflow/internal/domain/patient"
	"github.com/edflow/edflow/internal/domain/settings"
	"github.com/edflow/edflow/internal/domain/task"
)

type mockPatients struct {
	patients []*patient.Patient
}

func (m *mockPatients) ListByLocations(_ context.Context, locations []patient.LocationStatus, limit, offset int) ([]*patient.Patient, int, error) {
	var out []*patient.Patient
	for _, p := range m.patients {
		for _, loc := range locations {
			if p.LocationStatus == loc {
				out = append(out, p)
				break
			}
		}
	}
	return out, len(out), nil
}

type mockSettings struct{}

func (mockSettings) Current(_ context.Context) (*settings.ApplicationSetting, error) {
	return settings.Defaults(), nil
}

// mockTasks applies the same active-duplicate suppression as the real
// task service.
type mockTasks struct {
	created []*task.NursingTask
	failFor *uuid.UUID
}

func (m *mockTasks) Create(_ context.Context, t *task.NursingTask) (bool, error) {
	if m.failFor != nil && t.PatientID != nil && *t.PatientID == *m.failFor {
		return false, fmt.Errorf("storage unavailable")
	}
	for _, existing := range m.created {
		if existing.PatientID != nil && t.PatientID != nil &&
			*existing.PatientID == *t.PatientID && existing.Kind == t.Kind {
			return false, nil
		}
	}
	t.Status = task.StatusPending
	m.created = append(m.created, t)
	return true, nil
}

func intPtr(v int) *int { return &v }

func waiting(esi int, minsAgo int) *patient.Patient {
	return &patient.Patient{
		ID:             uuid.New(),
		FirstName:      "Test",
		LastName:       "Patient",
		ESILevel:       intPtr(esi),
		LocationStatus: patient.LocationWaitingRoom,
		ArrivalAt:      time.Now().Add(-time.Duration(minsAgo) * time.Minute),
	}
}

func needingRoom(minsAgo int) *patient.Patient {
	at := time.Now().Add(-time.Duration(minsAgo) * time.Minute)
	return &patient.Patient{
		ID:                     uuid.New(),
		FirstName:              "Test",
		LastName:               "Patient",
		ESILevel:               intPtr(3),
		LocationStatus:         patient.LocationNeedsRoomAssignment,
		ArrivalAt:              at.Add(-time.Hour),
		RoomAssignmentNeededAt: &at,
	}
}

func newMonitor(patients *mockPatients, tasks *mockTasks) *Monitor {
	return New(patients, mockSettings{}, tasks, 30*time.Second, zerolog.Nop())
}

func TestSweepCreatesCriticalWaitTask(t *testing.T) {
	// ESI 2 target is 10 minutes; 15 elapsed is past critical.
	p := waiting(2, 15)
	tasks := &mockTasks{}
	m := newMonitor(&mockPatients{patients: []*patient.Patient{p}}, tasks)

	if err := m.Sweep(context.Background()); err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if len(tasks.created) != 1 {
		t.Fatalf("expected 1 task, got %d", len(tasks.created))
	}
	got := tasks.created[0]
	if got.Kind != task.KindWaitTime || got.Priority != task.PriorityUrgent {
		t.Fatalf("unexpected task: %+v", got)
	}
	if got.AssignedRole != "charge_nurse" {
		t.Fatalf("expected charge_nurse assignment, got %s", got.AssignedRole)
	}
	if !strings.HasPrefix(got.Description, "CRITICAL WAIT TIME") {
		t.Fatalf("unexpected description: %s", got.Description)
	}
	if got.DueAt.After(time.Now().Add(time.Minute)) {
		t.Fatal("critical task must be due immediately")
	}
}

func TestSweepTwiceDoesNotDuplicate(t *testing.T) {
	p := waiting(2, 15)
	tasks := &mockTasks{}
	m := newMonitor(&mockPatients{patients: []*patient.Patient{p}}, tasks)

	if err := m.Sweep(context.Background()); err != nil {
		t.Fatalf("first sweep: %v", err)
	}
	if err := m.Sweep(context.Background()); err != nil {
		t.Fatalf("second sweep: %v", err)
	}
	if len(tasks.created) != 1 {
		t.Fatalf("expected 1 task after two sweeps, got %d", len(tasks.created))
	}
}

func TestSweepWarningWaitIsHighPriority(t *testing.T) {
	// ESI 3 target is 30 minutes; warning at round(30*75%)=23. 25 elapsed
	// is past warning but not critical.
	p := waiting(3, 25)
	tasks := &mockTasks{}
	m := newMonitor(&mockPatients{patients: []*patient.Patient{p}}, tasks)

	if err := m.Sweep(context.Background()); err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if len(tasks.created) != 1 {
		t.Fatalf("expected 1 task, got %d", len(tasks.created))
	}
	got := tasks.created[0]
	if got.Priority != task.PriorityHigh {
		t.Fatalf("expected high priority, got %s", got.Priority)
	}
	if !got.DueAt.After(time.Now().Add(5 * time.Minute)) {
		t.Fatal("warning task should be due in the near future, not immediately")
	}
}

func TestSweepGreenWaitCreatesNothing(t *testing.T) {
	p := waiting(5, 30) // ESI 5 target is 120 minutes
	tasks := &mockTasks{}
	m := newMonitor(&mockPatients{patients: []*patient.Patient{p}}, tasks)

	if err := m.Sweep(context.Background()); err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if len(tasks.created) != 0 {
		t.Fatalf("expected no tasks, got %d", len(tasks.created))
	}
}

func TestSweepESI1AlertsImmediately(t *testing.T) {
	p := waiting(1, 1)
	tasks := &mockTasks{}
	m := newMonitor(&mockPatients{patients: []*patient.Patient{p}}, tasks)

	if err := m.Sweep(context.Background()); err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if len(tasks.created) != 1 || tasks.created[0].Priority != task.PriorityUrgent {
		t.Fatal("expected an urgent task for ESI 1 with any wait")
	}
}

func TestSweepRoomAssignmentThresholds(t *testing.T) {
	warn := needingRoom(16)
	crit := needingRoom(25)
	fresh := needingRoom(5)
	tasks := &mockTasks{}
	m := newMonitor(&mockPatients{patients: []*patient.Patient{warn, crit, fresh}}, tasks)

	if err := m.Sweep(context.Background()); err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if len(tasks.created) != 2 {
		t.Fatalf("expected 2 tasks, got %d", len(tasks.created))
	}
	byPatient := map[uuid.UUID]*task.NursingTask{}
	for _, nt := range tasks.created {
		byPatient[*nt.PatientID] = nt
	}
	if byPatient[warn.ID].Priority != task.PriorityHigh {
		t.Fatalf("expected high at 16 minutes, got %s", byPatient[warn.ID].Priority)
	}
	if byPatient[crit.ID].Priority != task.PriorityUrgent {
		t.Fatalf("expected urgent at 25 minutes, got %s", byPatient[crit.ID].Priority)
	}
	if _, ok := byPatient[fresh.ID]; ok {
		t.Fatal("expected no task at 5 minutes")
	}
}

func TestSweepRoomAssignmentBoundaries(t *testing.T) {
	// The fixed 20-minute target with 75/100 classification makes both
	// boundaries inclusive on the lower side: exactly 15 is still green
	// and exactly 20 is still the warning band.
	atWarn := needingRoom(15)
	atCrit := needingRoom(20)
	past := needingRoom(21)
	tasks := &mockTasks{}
	m := newMonitor(&mockPatients{patients: []*patient.Patient{atWarn, atCrit, past}}, tasks)

	if err := m.Sweep(context.Background()); err != nil {
		t.Fatalf("sweep: %v", err)
	}
	byPatient := map[uuid.UUID]*task.NursingTask{}
	for _, nt := range tasks.created {
		byPatient[*nt.PatientID] = nt
	}
	if _, ok := byPatient[atWarn.ID]; ok {
		t.Fatal("expected no task at exactly 15 minutes")
	}
	if got := byPatient[atCrit.ID]; got == nil || got.Priority != task.PriorityHigh {
		t.Fatalf("expected high at exactly 20 minutes, got %+v", got)
	}
	if got := byPatient[past.ID]; got == nil || got.Priority != task.PriorityUrgent {
		t.Fatalf("expected urgent past 20 minutes, got %+v", got)
	}
}

func TestSweepIsolatesPerPatientFailures(t *testing.T) {
	bad := waiting(2, 15)
	good := waiting(2, 20)
	tasks := &mockTasks{failFor: &bad.ID}
	m := newMonitor(&mockPatients{patients: []*patient.Patient{bad, good}}, tasks)

	if err := m.Sweep(context.Background()); err != nil {
		t.Fatalf("sweep must not fail on one bad patient: %v", err)
	}
	if len(tasks.created) != 1 || *tasks.created[0].PatientID != good.ID {
		t.Fatal("expected the healthy patient's task despite the failure")
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	tasks := &mockTasks{}
	m := New(&mockPatients{}, mockSettings{}, tasks, 10*time.Millisecond, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Run(ctx)
		close(done)
	}()
	time.Sleep(30 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("monitor did not stop on cancel")
	}
}
