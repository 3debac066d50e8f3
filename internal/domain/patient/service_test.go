package patient

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/edflow/edflow/internal/domain/event"
	"github.com/edflow/edflow/internal/domain/settings"
	"github.com/edflow/edflow/internal/domain/timer"
)

type mockRepo struct {
	patients map[uuid.UUID]*Patient
}

func newMockRepo() *mockRepo {
	return &mockRepo{patients: make(map[uuid.UUID]*Patient)}
}

func (m *mockRepo) Create(_ context.Context, p *Patient) error {
	p.ID = uuid.New()
	cp := *p
	m.patients[p.ID] = &cp
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Patient, error) {
	p, ok := m.patients[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (m *mockRepo) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return m.GetByID(ctx, id)
}

func (m *mockRepo) GetByMRN(_ context.Context, mrn string) (*Patient, error) {
	for _, p := range m.patients {
		if p.MRN == mrn && p.DischargedAt == nil {
			cp := *p
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *mockRepo) Update(_ context.Context, p *Patient) error {
	cp := *p
	m.patients[p.ID] = &cp
	return nil
}

func (m *mockRepo) ListByLocations(_ context.Context, locations []LocationStatus, limit, offset int) ([]*Patient, int, error) {
	var out []*Patient
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

func (m *mockRepo) ListActive(_ context.Context, limit, offset int) ([]*Patient, int, error) {
	var out []*Patient
	for _, p := range m.patients {
		if p.LocationStatus != LocationDischarged {
			out = append(out, p)
		}
	}
	return out, len(out), nil
}

type mockVitalsRepo struct {
	vitals []*Vitals
}

func (m *mockVitalsRepo) Create(_ context.Context, v *Vitals) error {
	v.ID = uuid.New()
	m.vitals = append(m.vitals, v)
	return nil
}

func (m *mockVitalsRepo) ListByPatient(_ context.Context, patientID uuid.UUID, limit, offset int) ([]*Vitals, int, error) {
	var out []*Vitals
	for _, v := range m.vitals {
		if v.PatientID == patientID {
			out = append(out, v)
		}
	}
	return out, len(out), nil
}

type mockSettings struct{ cfg *settings.ApplicationSetting }

func (m *mockSettings) Current(_ context.Context) (*settings.ApplicationSetting, error) {
	if m.cfg == nil {
		return settings.Defaults(), nil
	}
	return m.cfg, nil
}

type mockEvents struct{ recorded []*event.Event }

func (m *mockEvents) Record(_ context.Context, e *event.Event) error {
	m.recorded = append(m.recorded, e)
	return nil
}

func newTestService(repo *mockRepo) (*Service, *mockEvents) {
	events := &mockEvents{}
	svc := NewService(repo, &mockVitalsRepo{}, &mockSettings{}, events)
	return svc, events
}

func seedPatient(repo *mockRepo, mrn string, esi int, loc LocationStatus, arrivedAgo time.Duration) *Patient {
	p := &Patient{
		ID:             uuid.New(),
		MRN:            mrn,
		FirstName:      "Test",
		LastName:       "Patient",
		ChiefComplaint: "test complaint",
		ESILevel:       intPtr(esi),
		LocationStatus: loc,
		ArrivalAt:      time.Now().Add(-arrivedAgo),
	}
	repo.patients[p.ID] = p
	return p
}

func TestCreateRejectsDuplicateActiveMRN(t *testing.T) {
	repo := newMockRepo()
	svc, _ := newTestService(repo)

	p1 := &Patient{MRN: "MRN-1", FirstName: "A", LastName: "B", ChiefComplaint: "fall"}
	if err := svc.Create(context.Background(), p1); err != nil {
		t.Fatalf("create: %v", err)
	}
	if p1.LocationStatus != LocationWaitingRoom {
		t.Fatalf("expected waiting_room default, got %s", p1.LocationStatus)
	}

	p2 := &Patient{MRN: "MRN-1", FirstName: "A", LastName: "B", ChiefComplaint: "fall"}
	if err := svc.Create(context.Background(), p2); err == nil {
		t.Fatal("expected duplicate MRN to be rejected")
	}
}

func TestTransitionRecordsEvent(t *testing.T) {
	repo := newMockRepo()
	svc, events := newTestService(repo)
	p := seedPatient(repo, "MRN-2", 3, LocationWaitingRoom, 5*time.Minute)

	got, err := svc.Transition(context.Background(), p.ID, LocationTriage, "nurse.lee")
	if err != nil {
		t.Fatalf("transition: %v", err)
	}
	if got.LocationStatus != LocationTriage {
		t.Fatalf("expected triage, got %s", got.LocationStatus)
	}
	if len(events.recorded) != 1 || events.recorded[0].Category != event.CategoryLocationChange {
		t.Fatalf("expected one location_change event, got %+v", events.recorded)
	}

	if _, err := svc.Transition(context.Background(), p.ID, LocationTreatment, "nurse.lee"); err == nil {
		t.Fatal("expected illegal transition to fail")
	}
}

func TestWaitingBoardTimerColors(t *testing.T) {
	repo := newMockRepo()
	svc, _ := newTestService(repo)

	// ESI 2 target is 10 minutes: 5 elapsed is green, 15 is red.
	green := seedPatient(repo, "MRN-G", 2, LocationWaitingRoom, 5*time.Minute)
	red := seedPatient(repo, "MRN-R", 2, LocationTriage, 15*time.Minute)
	seedPatient(repo, "MRN-D", 2, LocationDischarged, time.Hour)

	entries, total, err := svc.WaitingBoard(context.Background(), 50, 0)
	if err != nil {
		t.Fatalf("board: %v", err)
	}
	if total != 2 {
		t.Fatalf("expected 2 board entries, got %d", total)
	}
	byMRN := map[string]*BoardEntry{}
	for _, e := range entries {
		byMRN[e.Patient.MRN] = e
	}
	if byMRN[green.MRN].TimerStatus != timer.StatusGreen {
		t.Fatalf("expected green, got %s", byMRN[green.MRN].TimerStatus)
	}
	if byMRN[red.MRN].TimerStatus != timer.StatusRed {
		t.Fatalf("expected red, got %s", byMRN[red.MRN].TimerStatus)
	}
	if byMRN[red.MRN].TargetMins != 10 {
		t.Fatalf("expected ESI-2 target 10, got %d", byMRN[red.MRN].TargetMins)
	}
}

func TestWaitingBoardESI1AlwaysRed(t *testing.T) {
	repo := newMockRepo()
	svc, _ := newTestService(repo)
	seedPatient(repo, "MRN-1A", 1, LocationWaitingRoom, time.Minute)

	entries, _, err := svc.WaitingBoard(context.Background(), 50, 0)
	if err != nil {
		t.Fatalf("board: %v", err)
	}
	if len(entries) != 1 || entries[0].TimerStatus != timer.StatusRed {
		t.Fatal("expected ESI-1 patient red with any wait at all")
	}
}

func TestRecordVitalsStampsRecorder(t *testing.T) {
	repo := newMockRepo()
	vitals := &mockVitalsRepo{}
	svc := NewService(repo, vitals, &mockSettings{}, &mockEvents{})
	p := seedPatient(repo, "MRN-V", 3, LocationTriage, time.Minute)

	v := &Vitals{PatientID: p.ID, HeartRate: intPtr(90)}
	if err := svc.RecordVitals(context.Background(), v, "nurse.park"); err != nil {
		t.Fatalf("record vitals: %v", err)
	}
	if v.RecordedBy != "nurse.park" || v.RecordedAt.IsZero() {
		t.Fatalf("expected recorder stamped, got %+v", v)
	}

	bad := &Vitals{PatientID: uuid.New()}
	if err := svc.RecordVitals(context.Background(), bad, "nurse.park"); err == nil {
		t.Fatal("expected vitals for unknown patient to fail")
	}
}
