package pathway

import "math"

// Progress summarizes how far along a pathway is.
type Progress struct {
	Percent  int  `json:"percent"`
	Complete bool `json:"complete"`
	Total    int  `json:"total"`
	Done     int  `json:"done"`
}

func roundedPercent(done, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(done) / float64(total) * 100))
}

// StepProgress is the triage aggregation: completed steps over total steps.
func StepProgress(steps []*Step) Progress {
	done := 0
	for _, s := range steps {
		if s.Completed {
			done++
		}
	}
	return Progress{
		Percent:  roundedPercent(done, len(steps)),
		Complete: len(steps) > 0 && done == len(steps),
		Total:    len(steps),
		Done:     done,
	}
}

// ClinicalProgress is the ED aggregation: orders, procedures and endpoints
// all count equally. Completion requires every item done and at least one
// endpoint defined; a pathway with no endpoints can never complete.
func ClinicalProgress(orders []*Order, procedures []*Procedure, endpoints []*ClinicalEndpoint) Progress {
	total := len(orders) + len(procedures) + len(endpoints)
	done := 0
	allDone := true
	for _, o := range orders {
		if o.Complete() {
			done++
		} else {
			allDone = false
		}
	}
	for _, p := range procedures {
		if p.Completed {
			done++
		} else {
			allDone = false
		}
	}
	for _, e := range endpoints {
		if e.Achieved {
			done++
		} else {
			allDone = false
		}
	}
	return Progress{
		Percent:  roundedPercent(done, total),
		Complete: len(endpoints) > 0 && allDone,
		Total:    total,
		Done:     done,
	}
}

// Evaluate picks the right aggregation for the pathway's type using its
// loaded children.
func (p *CarePathway) Evaluate() Progress {
	if p.Type == TypeTriage {
		return StepProgress(p.Steps)
	}
	return ClinicalProgress(p.Orders, p.Procedures, p.Endpoints)
}
