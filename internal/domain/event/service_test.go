package event

import (
	"context"
	"testing"

	"github.com/google/uuid"
)

type mockRepo struct {
	events []*Event
}

func (m *mockRepo) Create(_ context.Context, e *Event) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	m.events = append(m.events, e)
	return nil
}

func (m *mockRepo) List(_ context.Context, limit, offset int) ([]*Event, int, error) {
	if offset >= len(m.events) {
		return nil, len(m.events), nil
	}
	end := offset + limit
	if end > len(m.events) {
		end = len(m.events)
	}
	return m.events[offset:end], len(m.events), nil
}

func (m *mockRepo) ListByPatient(_ context.Context, patientID uuid.UUID, limit, offset int) ([]*Event, int, error) {
	var out []*Event
	for _, e := range m.events {
		if e.PatientID != nil && *e.PatientID == patientID {
			out = append(out, e)
		}
	}
	return out, len(out), nil
}

func TestRecordRequiresCategoryAndDescription(t *testing.T) {
	svc := NewService(&mockRepo{})

	if err := svc.Record(context.Background(), &Event{Description: "arrived"}); err == nil {
		t.Fatal("expected error for missing category")
	}
	if err := svc.Record(context.Background(), &Event{Category: CategoryArrival}); err == nil {
		t.Fatal("expected error for missing description")
	}
}

func TestRecordDefaultsActor(t *testing.T) {
	repo := &mockRepo{}
	svc := NewService(repo)

	err := svc.Record(context.Background(), &Event{Category: CategoryArrival, Description: "patient arrived"})
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if repo.events[0].Actor != "system" {
		t.Fatalf("expected actor system, got %q", repo.events[0].Actor)
	}
}

type mockPublisher struct{ published []*Event }

func (m *mockPublisher) PublishEvent(e *Event) { m.published = append(m.published, e) }

func TestRecordNotifiesPublisher(t *testing.T) {
	repo := &mockRepo{}
	svc := NewService(repo)
	pub := &mockPublisher{}
	svc.SetPublisher(pub)

	err := svc.Record(context.Background(), &Event{Category: CategoryDischarge, Description: "discharged"})
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if len(pub.published) != 1 {
		t.Fatalf("expected 1 published event, got %d", len(pub.published))
	}
}

func TestRecordForPatient(t *testing.T) {
	repo := &mockRepo{}
	svc := NewService(repo)
	pid := uuid.New()
	status := "red"

	err := svc.RecordForPatient(context.Background(), pid, CategoryOrderStatus, "CBC resulted", "nurse.jones", &status)
	if err != nil {
		t.Fatalf("record: %v", err)
	}

	got, total, err := svc.ListByPatient(context.Background(), pid, 10, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 1 || len(got) != 1 {
		t.Fatalf("expected 1 event, got %d", total)
	}
	if got[0].Category != CategoryOrderStatus || *got[0].TimerStatus != "red" {
		t.Fatalf("unexpected event: %+v", got[0])
	}
}
