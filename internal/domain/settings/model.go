package settings

import (
	"time"

	"github.com/google/uuid"

	"github.com/edflow/edflow/internal/domain/timer"
)

// ApplicationSetting maps to the application_setting table. A single row
// holds every tunable target and threshold; it is created lazily with the
// defaults below the first time anything reads it.
type ApplicationSetting struct {
	ID uuid.UUID `db:"id" json:"id"`

	// Wait-time targets per ESI level, in minutes. The ESI 1 value is
	// stored but never consulted: level-1 patients are overdue the moment
	// they wait at all.
	ESI1WaitMins int `db:"esi1_wait_mins" json:"esi1_wait_mins"`
	ESI2WaitMins int `db:"esi2_wait_mins" json:"esi2_wait_mins"`
	ESI3WaitMins int `db:"esi3_wait_mins" json:"esi3_wait_mins"`
	ESI4WaitMins int `db:"esi4_wait_mins" json:"esi4_wait_mins"`
	ESI5WaitMins int `db:"esi5_wait_mins" json:"esi5_wait_mins"`

	// Order stage targets, in minutes, keyed by order type and the stage
	// the order is currently in.
	LabCollectMins      int `db:"lab_collect_mins" json:"lab_collect_mins"`
	LabInLabMins        int `db:"lab_in_lab_mins" json:"lab_in_lab_mins"`
	LabResultMins       int `db:"lab_result_mins" json:"lab_result_mins"`
	MedAdministerMins   int `db:"med_administer_mins" json:"med_administer_mins"`
	ImagingStartMins    int `db:"imaging_start_mins" json:"imaging_start_mins"`
	ImagingCompleteMins int `db:"imaging_complete_mins" json:"imaging_complete_mins"`
	ImagingResultMins   int `db:"imaging_result_mins" json:"imaging_result_mins"`

	// Percentages applied to a target to derive the yellow/red boundaries.
	WarningPct  int `db:"warning_pct" json:"warning_pct"`
	CriticalPct int `db:"critical_pct" json:"critical_pct"`

	UpdatedBy *string   `db:"updated_by" json:"updated_by,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Defaults returns the settings row shipped with a fresh install.
func Defaults() *ApplicationSetting {
	return &ApplicationSetting{
		ESI1WaitMins:        0,
		ESI2WaitMins:        10,
		ESI3WaitMins:        30,
		ESI4WaitMins:        60,
		ESI5WaitMins:        120,
		LabCollectMins:      15,
		LabInLabMins:        20,
		LabResultMins:       30,
		MedAdministerMins:   30,
		ImagingStartMins:    20,
		ImagingCompleteMins: 30,
		ImagingResultMins:   40,
		WarningPct:          75,
		CriticalPct:         100,
	}
}

// Thresholds returns the warning/critical percentages for the calculator.
func (s *ApplicationSetting) Thresholds() timer.Thresholds {
	return timer.Thresholds{WarningPct: s.WarningPct, CriticalPct: s.CriticalPct}
}

// WaitTargets returns the per-ESI wait targets for the calculator.
func (s *ApplicationSetting) WaitTargets() timer.WaitTargets {
	return timer.WaitTargets{
		ESI1: s.ESI1WaitMins,
		ESI2: s.ESI2WaitMins,
		ESI3: s.ESI3WaitMins,
		ESI4: s.ESI4WaitMins,
		ESI5: s.ESI5WaitMins,
	}
}

// OrderStageTarget returns the target minutes for an order of the given
// type sitting in the given (non-terminal) status, e.g. a lab order in
// "ordered" is targeted on collection. Unknown combinations return 0,
// which the calculator treats as immediately overdue.
func (s *ApplicationSetting) OrderStageTarget(orderType, status string) int {
	switch orderType {
	case "lab":
		switch status {
		case "ordered":
			return s.LabCollectMins
		case "collected":
			return s.LabInLabMins
		case "in_lab":
			return s.LabResultMins
		}
	case "medication":
		if status == "ordered" {
			return s.MedAdministerMins
		}
	case "imaging":
		switch status {
		case "ordered":
			return s.ImagingStartMins
		case "exam_started":
			return s.ImagingCompleteMins
		case "exam_completed":
			return s.ImagingResultMins
		}
	}
	return 0
}
