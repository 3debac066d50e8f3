package pathway

import (
	"testing"
	"time"
)

func TestOrderChains(t *testing.T) {
	cases := []struct {
		typ   OrderType
		chain []OrderStatus
	}{
		{OrderLab, []OrderStatus{OrderOrdered, OrderCollected, OrderInLab, OrderResulted}},
		{OrderMedication, []OrderStatus{OrderOrdered, OrderAdministered}},
		{OrderImaging, []OrderStatus{OrderOrdered, OrderExamStarted, OrderExamCompleted, OrderResulted}},
	}
	for _, tc := range cases {
		for i := 0; i < len(tc.chain)-1; i++ {
			next, ok := NextStatus(tc.typ, tc.chain[i])
			if !ok || next != tc.chain[i+1] {
				t.Errorf("%s: after %s got %s/%v, want %s", tc.typ, tc.chain[i], next, ok, tc.chain[i+1])
			}
		}
		last := tc.chain[len(tc.chain)-1]
		if _, ok := NextStatus(tc.typ, last); ok {
			t.Errorf("%s: expected %s to be terminal", tc.typ, last)
		}
		if !TerminalStatus(tc.typ, last) {
			t.Errorf("%s: TerminalStatus(%s) = false", tc.typ, last)
		}
	}
}

func TestAdvanceStampsStageTimestamp(t *testing.T) {
	now := time.Now()
	o := &Order{Type: OrderLab, Status: OrderOrdered, OrderedAt: now.Add(-10 * time.Minute)}

	if !o.Advance("nurse.lee", now) {
		t.Fatal("expected advance to succeed")
	}
	if o.Status != OrderCollected || o.CollectedAt == nil || !o.CollectedAt.Equal(now) {
		t.Fatalf("unexpected order after advance: %+v", o)
	}
	if !o.StatusUpdatedAt.Equal(now) || o.StatusUpdatedBy == nil || *o.StatusUpdatedBy != "nurse.lee" {
		t.Fatal("expected audit fields stamped")
	}
}

func TestAdvanceTerminalIsNoOp(t *testing.T) {
	now := time.Now()
	resulted := now.Add(-time.Hour)
	o := &Order{Type: OrderMedication, Status: OrderAdministered, StatusUpdatedAt: resulted}

	if o.Advance("nurse.lee", now) {
		t.Fatal("expected advance on terminal order to return false")
	}
	if o.Status != OrderAdministered {
		t.Fatal("terminal advance must not change status")
	}
	if !o.StatusUpdatedAt.Equal(resulted) {
		t.Fatal("terminal advance must not mutate timestamps")
	}
}

func TestStageElapsedMinutes(t *testing.T) {
	now := time.Now()
	o := &Order{Type: OrderLab, Status: OrderCollected, StatusUpdatedAt: now.Add(-25 * time.Minute)}
	if got := o.StageElapsedMinutes(now); got != 25 {
		t.Fatalf("got %d, want 25", got)
	}

	// Missing timestamps count as zero elapsed.
	blank := &Order{Type: OrderLab, Status: OrderOrdered}
	if got := blank.StageElapsedMinutes(now); got != 0 {
		t.Fatalf("got %d, want 0", got)
	}
}
