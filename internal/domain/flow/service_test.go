package flow

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/edflow/edflow/internal/domain/event"
	"github.com/edflow/edflow/internal/domain/pathway"
	"github.com/edflow/edflow/internal/domain/patient"
	"github.com/edflow/edflow/internal/domain/room"
	"github.com/edflow/edflow/internal/domain/task"
)

type mockPatientRepo struct {
	patients map[uuid.UUID]*patient.Patient
}

func newMockPatientRepo() *mockPatientRepo {
	return &mockPatientRepo{patients: make(map[uuid.UUID]*patient.Patient)}
}

func (m *mockPatientRepo) Create(_ context.Context, p *patient.Patient) error {
	p.ID = uuid.New()
	cp := *p
	m.patients[p.ID] = &cp
	return nil
}

func (m *mockPatientRepo) GetByID(_ context.Context, id uuid.UUID) (*patient.Patient, error) {
	p, ok := m.patients[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (m *mockPatientRepo) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*patient.Patient, error) {
	return m.GetByID(ctx, id)
}

func (m *mockPatientRepo) GetByMRN(_ context.Context, mrn string) (*patient.Patient, error) {
	for _, p := range m.patients {
		if p.MRN == mrn && p.DischargedAt == nil {
			cp := *p
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *mockPatientRepo) Update(_ context.Context, p *patient.Patient) error {
	cp := *p
	m.patients[p.ID] = &cp
	return nil
}

func (m *mockPatientRepo) ListByLocations(_ context.Context, locations []patient.LocationStatus, limit, offset int) ([]*patient.Patient, int, error) {
	return nil, 0, nil
}

func (m *mockPatientRepo) ListActive(_ context.Context, limit, offset int) ([]*patient.Patient, int, error) {
	return nil, 0, nil
}

type mockPathways struct {
	created   []*pathway.CarePathway
	steps     []*pathway.Step
	active    *pathway.CarePathway
	closedFor []uuid.UUID
}

func (m *mockPathways) Create(_ context.Context, p *pathway.CarePathway) error {
	p.ID = uuid.New()
	m.created = append(m.created, p)
	return nil
}

func (m *mockPathways) AddStep(_ context.Context, s *pathway.Step) error {
	m.steps = append(m.steps, s)
	return nil
}

func (m *mockPathways) ActiveByPatientAndType(_ context.Context, patientID uuid.UUID, t pathway.Type) (*pathway.CarePathway, error) {
	if m.active != nil && m.active.PatientID == patientID && m.active.Type == t {
		return m.active, nil
	}
	return nil, nil
}

func (m *mockPathways) CompleteActiveForPatient(_ context.Context, patientID uuid.UUID, _ string) error {
	m.closedFor = append(m.closedFor, patientID)
	return nil
}

// mockRooms mimics the room service: assignment mutates the patient the
// way the real transactional path does.
type mockRooms struct {
	patients  *mockPatientRepo
	freeRoom  *room.Room
	released  []uuid.UUID
	occupied  []*room.Room
	assignErr error
}

func (m *mockRooms) AssignFirstAvailable(ctx context.Context, roomType room.Type, patientID uuid.UUID, actor string) (*room.Room, error) {
	if m.assignErr != nil {
		return nil, m.assignErr
	}
	if m.freeRoom == nil {
		return nil, nil
	}
	rm := m.freeRoom
	m.freeRoom = nil
	rm.Status = room.StatusOccupied
	rm.CurrentPatientID = &patientID
	m.occupied = append(m.occupied, rm)

	p, _ := m.patients.GetByID(ctx, patientID)
	dest := patient.LocationEDRoom
	if rm.Type == room.TypeRP {
		dest = patient.LocationResultsPending
	}
	if err := p.Transition(dest, time.Now()); err != nil {
		return nil, err
	}
	p.RoomNumber = &rm.Number
	_ = m.patients.Update(ctx, p)
	return rm, nil
}

func (m *mockRooms) Release(_ context.Context, roomID uuid.UUID, actor string) (*room.Room, error) {
	m.released = append(m.released, roomID)
	for _, rm := range m.occupied {
		if rm.ID == roomID {
			rm.Status = room.StatusCleaning
			rm.CurrentPatientID = nil
			return rm, nil
		}
	}
	return nil, nil
}

func (m *mockRooms) List(_ context.Context, roomType room.Type, status room.Status, limit, offset int) ([]*room.Room, int, error) {
	var out []*room.Room
	for _, rm := range m.occupied {
		if status == "" || rm.Status == status {
			out = append(out, rm)
		}
	}
	return out, len(out), nil
}

type mockTasks struct{ created []*task.NursingTask }

func (m *mockTasks) Create(_ context.Context, t *task.NursingTask) (bool, error) {
	for _, existing := range m.created {
		if existing.PatientID != nil && t.PatientID != nil &&
			*existing.PatientID == *t.PatientID && existing.Kind == t.Kind && existing.Status.Active() {
			return false, nil
		}
	}
	if t.Status == "" {
		t.Status = task.StatusPending
	}
	m.created = append(m.created, t)
	return true, nil
}

type mockEvents struct{ recorded []*event.Event }

func (m *mockEvents) Record(_ context.Context, e *event.Event) error {
	m.recorded = append(m.recorded, e)
	return nil
}

func passthroughTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fixture struct {
	svc      *Service
	patients *mockPatientRepo
	pathways *mockPathways
	rooms    *mockRooms
	tasks    *mockTasks
	events   *mockEvents
}

func newFixture() *fixture {
	patients := newMockPatientRepo()
	pathways := &mockPathways{}
	rooms := &mockRooms{patients: patients}
	tasks := &mockTasks{}
	events := &mockEvents{}
	svc := NewService(patients, pathways, rooms, tasks, events, passthroughTx, zerolog.Nop())
	return &fixture{svc: svc, patients: patients, pathways: pathways, rooms: rooms, tasks: tasks, events: events}
}

func intPtr(v int) *int { return &v }

func seedPatient(f *fixture, esi int, rpEligible bool, loc patient.LocationStatus) *patient.Patient {
	p := &patient.Patient{
		ID:             uuid.New(),
		MRN:            "MRN-" + uuid.NewString()[:8],
		FirstName:      "Test",
		LastName:       "Patient",
		ChiefComplaint: "test",
		ESILevel:       intPtr(esi),
		RPEligible:     rpEligible,
		LocationStatus: loc,
		ArrivalAt:      time.Now().Add(-30 * time.Minute),
	}
	f.patients.patients[p.ID] = p
	return p
}

func TestRegisterArrival(t *testing.T) {
	f := newFixture()
	p := &patient.Patient{MRN: "MRN-100", FirstName: "Ada", LastName: "Okafor", ChiefComplaint: "chest pain"}

	if err := f.svc.RegisterArrival(context.Background(), p, "triage.nurse"); err != nil {
		t.Fatalf("register arrival: %v", err)
	}
	if p.LocationStatus != patient.LocationWaitingRoom {
		t.Fatalf("expected waiting_room, got %s", p.LocationStatus)
	}
	if len(f.pathways.created) != 1 || f.pathways.created[0].Type != pathway.TypeTriage {
		t.Fatal("expected a triage pathway opened on arrival")
	}
	if len(f.pathways.steps) != 4 {
		t.Fatalf("expected 4 triage steps, got %d", len(f.pathways.steps))
	}
	if len(f.events.recorded) != 1 || f.events.recorded[0].Category != event.CategoryArrival {
		t.Fatal("expected one arrival event")
	}

	dup := &patient.Patient{MRN: "MRN-100", FirstName: "Ada", LastName: "Okafor", ChiefComplaint: "chest pain"}
	if err := f.svc.RegisterArrival(context.Background(), dup, "triage.nurse"); err == nil {
		t.Fatal("expected duplicate MRN arrival to fail")
	}
}

func TestCompleteTriageRPWithFreeRoom(t *testing.T) {
	f := newFixture()
	f.rooms.freeRoom = &room.Room{ID: uuid.New(), Number: "RP-1", Type: room.TypeRP, Status: room.StatusAvailable}
	p := seedPatient(f, 3, true, patient.LocationTriage)

	result, err := f.svc.CompleteTriage(context.Background(), p.ID, "triage.nurse")
	if err != nil {
		t.Fatalf("complete triage: %v", err)
	}
	if result.Blocked || result.Room == nil || result.Room.Number != "RP-1" {
		t.Fatalf("expected RP room assignment, got %+v", result)
	}
	updated, _ := f.patients.GetByID(context.Background(), p.ID)
	if updated.LocationStatus != patient.LocationResultsPending {
		t.Fatalf("expected results_pending, got %s", updated.LocationStatus)
	}
	if updated.TriageCompletedAt == nil {
		t.Fatal("expected triage_completed_at stamped")
	}
	if len(f.tasks.created) != 0 {
		t.Fatal("expected no task when a room was free")
	}
}

func TestCompleteTriageRPBlocksWhenFull(t *testing.T) {
	f := newFixture()
	p := seedPatient(f, 3, true, patient.LocationTriage)

	result, err := f.svc.CompleteTriage(context.Background(), p.ID, "triage.nurse")
	if err != nil {
		t.Fatalf("complete triage: %v", err)
	}
	if !result.Blocked {
		t.Fatal("expected blocked result when no RP room is free")
	}
	updated, _ := f.patients.GetByID(context.Background(), p.ID)
	if updated.LocationStatus != patient.LocationPendingTransfer {
		t.Fatalf("expected pending_transfer, got %s", updated.LocationStatus)
	}
	// Blocking is surfaced to the user, not turned into a task.
	if len(f.tasks.created) != 0 {
		t.Fatal("expected no task for a blocked RP transfer")
	}
}

func TestCompleteTriageNonRPCreatesTask(t *testing.T) {
	f := newFixture()
	p := seedPatient(f, 4, false, patient.LocationTriage)

	result, err := f.svc.CompleteTriage(context.Background(), p.ID, "triage.nurse")
	if err != nil {
		t.Fatalf("complete triage: %v", err)
	}
	if !result.TaskMade {
		t.Fatal("expected a room_assignment task")
	}
	updated, _ := f.patients.GetByID(context.Background(), p.ID)
	if updated.LocationStatus != patient.LocationNeedsRoomAssignment {
		t.Fatalf("expected needs_room_assignment, got %s", updated.LocationStatus)
	}
	if updated.RoomAssignmentNeededAt == nil {
		t.Fatal("expected room_assignment_needed_at stamped")
	}
	got := f.tasks.created[0]
	if got.Kind != task.KindRoomAssignment || got.Priority != task.PriorityHigh || got.AssignedRole != "charge_nurse" {
		t.Fatalf("unexpected task: %+v", got)
	}
}

func TestCompleteTriageESI2TaskIsUrgent(t *testing.T) {
	f := newFixture()
	p := seedPatient(f, 2, false, patient.LocationTriage)

	if _, err := f.svc.CompleteTriage(context.Background(), p.ID, "triage.nurse"); err != nil {
		t.Fatalf("complete triage: %v", err)
	}
	if f.tasks.created[0].Priority != task.PriorityUrgent {
		t.Fatalf("expected urgent priority for ESI 2, got %s", f.tasks.created[0].Priority)
	}
}

func TestPathwayCompletedHookRoutesTriageOnly(t *testing.T) {
	f := newFixture()
	p := seedPatient(f, 3, false, patient.LocationTriage)

	err := f.svc.PathwayCompleted(context.Background(), &pathway.CarePathway{
		PatientID: p.ID, Type: pathway.TypeTriage,
	})
	if err != nil {
		t.Fatalf("hook: %v", err)
	}
	updated, _ := f.patients.GetByID(context.Background(), p.ID)
	if updated.LocationStatus != patient.LocationNeedsRoomAssignment {
		t.Fatalf("expected routing from triage hook, got %s", updated.LocationStatus)
	}

	// Non-triage completions do not move the patient.
	err = f.svc.PathwayCompleted(context.Background(), &pathway.CarePathway{
		PatientID: p.ID, Type: pathway.TypeEmergencyRoom,
	})
	if err != nil {
		t.Fatalf("hook: %v", err)
	}
	after, _ := f.patients.GetByID(context.Background(), p.ID)
	if after.LocationStatus != patient.LocationNeedsRoomAssignment {
		t.Fatal("expected non-triage completion to leave location alone")
	}
}

func TestDischargeReleasesRoom(t *testing.T) {
	f := newFixture()
	f.rooms.freeRoom = &room.Room{ID: uuid.New(), Number: "ED-1", Type: room.TypeED, Status: room.StatusAvailable}
	p := seedPatient(f, 3, false, patient.LocationTriage)

	if _, err := f.svc.CompleteTriage(context.Background(), p.ID, "nurse"); err != nil {
		t.Fatalf("complete triage: %v", err)
	}
	if _, err := f.rooms.AssignFirstAvailable(context.Background(), room.TypeED, p.ID, "nurse"); err != nil {
		t.Fatalf("assign: %v", err)
	}

	discharged, err := f.svc.Discharge(context.Background(), p.ID, "provider.ng")
	if err != nil {
		t.Fatalf("discharge: %v", err)
	}
	if discharged.LocationStatus != patient.LocationDischarged || discharged.DischargedAt == nil {
		t.Fatalf("unexpected patient after discharge: %+v", discharged)
	}
	if discharged.RoomNumber != nil {
		t.Fatal("expected room number cleared")
	}
	if len(f.rooms.released) != 1 {
		t.Fatalf("expected room released, got %d", len(f.rooms.released))
	}
}

func TestCompleteTriageBlockedByOpenSteps(t *testing.T) {
	f := newFixture()
	p := seedPatient(f, 3, false, patient.LocationTriage)

	f.pathways.active = &pathway.CarePathway{
		ID:        uuid.New(),
		PatientID: p.ID,
		Type:      pathway.TypeTriage,
		Status:    pathway.StatusInProgress,
		Steps: []*pathway.Step{
			{Name: "Vitals recorded", Completed: true},
			{Name: "ESI level assigned", Completed: false},
		},
	}

	if _, err := f.svc.CompleteTriage(context.Background(), p.ID, "nurse"); err == nil {
		t.Fatal("expected incomplete steps to block triage completion")
	}

	got, _ := f.patients.GetByID(context.Background(), p.ID)
	if got.LocationStatus != patient.LocationTriage {
		t.Fatalf("patient should stay in triage, got %s", got.LocationStatus)
	}
}

func TestCompleteTriageFromWaitingRoom(t *testing.T) {
	f := newFixture()
	p := seedPatient(f, 3, false, patient.LocationWaitingRoom)

	result, err := f.svc.CompleteTriage(context.Background(), p.ID, "triage.nurse")
	if err != nil {
		t.Fatalf("complete triage from waiting room: %v", err)
	}
	if !result.TaskMade {
		t.Fatal("expected a room_assignment task")
	}
	updated, _ := f.patients.GetByID(context.Background(), p.ID)
	if updated.LocationStatus != patient.LocationNeedsRoomAssignment {
		t.Fatalf("expected needs_room_assignment, got %s", updated.LocationStatus)
	}
	if updated.TriageCompletedAt == nil {
		t.Fatal("expected triage_completed_at stamped")
	}
}

func TestPathwayCompletedHookFromWaitingRoom(t *testing.T) {
	f := newFixture()
	f.rooms.freeRoom = &room.Room{ID: uuid.New(), Number: "RP-2", Type: room.TypeRP, Status: room.StatusAvailable}
	p := seedPatient(f, 3, true, patient.LocationWaitingRoom)

	err := f.svc.PathwayCompleted(context.Background(), &pathway.CarePathway{
		PatientID: p.ID, Type: pathway.TypeTriage,
	})
	if err != nil {
		t.Fatalf("hook from waiting room: %v", err)
	}
	updated, _ := f.patients.GetByID(context.Background(), p.ID)
	if updated.LocationStatus != patient.LocationResultsPending {
		t.Fatalf("expected results_pending, got %s", updated.LocationStatus)
	}
}

func TestDischargeClosesOpenPathways(t *testing.T) {
	f := newFixture()
	p := seedPatient(f, 4, false, patient.LocationTreatment)

	if _, err := f.svc.Discharge(context.Background(), p.ID, "provider.ng"); err != nil {
		t.Fatalf("discharge: %v", err)
	}
	if len(f.pathways.closedFor) != 1 || f.pathways.closedFor[0] != p.ID {
		t.Fatalf("expected open pathways closed for patient, got %v", f.pathways.closedFor)
	}
}
