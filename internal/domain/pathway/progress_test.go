package pathway

import "testing"

func steps(completed, total int) []*Step {
	out := make([]*Step, total)
	for i := range out {
		out[i] = &Step{Completed: i < completed}
	}
	return out
}

func TestStepProgress(t *testing.T) {
	cases := []struct {
		completed, total int
		percent          int
		complete         bool
	}{
		{0, 4, 0, false},
		{3, 4, 75, false},
		{4, 4, 100, true},
		{1, 3, 33, false},
		{2, 3, 67, false},
		{0, 0, 0, false},
	}
	for _, tc := range cases {
		got := StepProgress(steps(tc.completed, tc.total))
		if got.Percent != tc.percent || got.Complete != tc.complete {
			t.Errorf("%d/%d: got %d%%/%v, want %d%%/%v",
				tc.completed, tc.total, got.Percent, got.Complete, tc.percent, tc.complete)
		}
	}
}

func TestClinicalProgressEmptyIsZero(t *testing.T) {
	got := ClinicalProgress(nil, nil, nil)
	if got.Percent != 0 || got.Complete {
		t.Fatalf("expected 0%% incomplete for empty pathway, got %+v", got)
	}
}

func TestClinicalProgressCounts(t *testing.T) {
	orders := []*Order{
		{Type: OrderLab, Status: OrderResulted},
		{Type: OrderLab, Status: OrderInLab},
	}
	procedures := []*Procedure{{Completed: true}}
	endpoints := []*ClinicalEndpoint{{Achieved: false}}

	got := ClinicalProgress(orders, procedures, endpoints)
	if got.Percent != 50 {
		t.Fatalf("expected 50%% (2 of 4), got %d%%", got.Percent)
	}
	if got.Complete {
		t.Fatal("expected incomplete")
	}
}

func TestClinicalProgressRequiresEndpoint(t *testing.T) {
	orders := []*Order{{Type: OrderMedication, Status: OrderAdministered}}
	procedures := []*Procedure{{Completed: true}}

	// Everything done but no endpoint defined: 100% yet never complete.
	got := ClinicalProgress(orders, procedures, nil)
	if got.Percent != 100 {
		t.Fatalf("expected 100%%, got %d%%", got.Percent)
	}
	if got.Complete {
		t.Fatal("a pathway without endpoints must not complete")
	}

	endpoints := []*ClinicalEndpoint{{Achieved: true}}
	got = ClinicalProgress(orders, procedures, endpoints)
	if !got.Complete {
		t.Fatal("expected complete with all items done and one endpoint achieved")
	}
}
