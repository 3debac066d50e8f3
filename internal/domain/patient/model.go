package patient

import (
	"fmt"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
)

// LocationStatus is where a patient currently sits in the department flow.
type LocationStatus string

const (
	LocationWaitingRoom         LocationStatus = "waiting_room"
	LocationTriage              LocationStatus = "triage"
	LocationNeedsRoomAssignment LocationStatus = "needs_room_assignment"
	LocationResultsPending      LocationStatus = "results_pending"
	LocationEDRoom              LocationStatus = "ed_room"
	LocationTreatment           LocationStatus = "treatment"
	LocationDischarged          LocationStatus = "discharged"
	LocationPendingTransfer     LocationStatus = "pending_transfer"
)

// locationTransitions lists the permitted moves between location statuses.
var locationTransitions = map[LocationStatus][]LocationStatus{
	LocationWaitingRoom:         {LocationTriage, LocationDischarged},
	LocationTriage:              {LocationPendingTransfer, LocationNeedsRoomAssignment, LocationDischarged},
	LocationPendingTransfer:     {LocationResultsPending, LocationNeedsRoomAssignment, LocationDischarged},
	LocationNeedsRoomAssignment: {LocationEDRoom, LocationResultsPending, LocationDischarged},
	LocationResultsPending:      {LocationEDRoom, LocationTreatment, LocationDischarged},
	LocationEDRoom:              {LocationTreatment, LocationDischarged},
	LocationTreatment:           {LocationDischarged},
	LocationDischarged:          {},
}

// CanTransitionTo reports whether a move to the target status is allowed.
func (s LocationStatus) CanTransitionTo(to LocationStatus) bool {
	for _, next := range locationTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

func (s LocationStatus) Valid() bool {
	_, ok := locationTransitions[s]
	return ok
}

// Terminal reports whether no further transitions are possible.
func (s LocationStatus) Terminal() bool {
	return len(locationTransitions[s]) == 0
}

// Patient maps to the patient table: one row per active ED visit.
type Patient struct {
	ID                     uuid.UUID      `db:"id" json:"id"`
	MRN                    string         `db:"mrn" json:"mrn"`
	FirstName              string         `db:"first_name" json:"first_name"`
	LastName               string         `db:"last_name" json:"last_name"`
	DateOfBirth            *time.Time     `db:"date_of_birth" json:"date_of_birth,omitempty"`
	ChiefComplaint         string         `db:"chief_complaint" json:"chief_complaint"`
	ESILevel               *int           `db:"esi_level" json:"esi_level,omitempty"`
	LocationStatus         LocationStatus `db:"location_status" json:"location_status"`
	RoomNumber             *string        `db:"room_number" json:"room_number,omitempty"`
	RPEligible             bool           `db:"rp_eligible" json:"rp_eligible"`
	ArrivalAt              time.Time      `db:"arrival_at" json:"arrival_at"`
	TriageCompletedAt      *time.Time     `db:"triage_completed_at" json:"triage_completed_at,omitempty"`
	RoomAssignmentNeededAt *time.Time     `db:"room_assignment_needed_at" json:"room_assignment_needed_at,omitempty"`
	DischargedAt           *time.Time     `db:"discharged_at" json:"discharged_at,omitempty"`
	CreatedAt              time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt              time.Time      `db:"updated_at" json:"updated_at"`
}

func (p *Patient) Validate() error {
	return validation.ValidateStruct(p,
		validation.Field(&p.MRN, validation.Required, validation.Length(1, 64)),
		validation.Field(&p.FirstName, validation.Required, validation.Length(1, 100)),
		validation.Field(&p.LastName, validation.Required, validation.Length(1, 100)),
		validation.Field(&p.ChiefComplaint, validation.Required, validation.Length(1, 500)),
		validation.Field(&p.ESILevel, validation.Min(1), validation.Max(5)),
	)
}

// Transition moves the patient to a new location status, stamping the
// timestamps the flow depends on. It rejects moves the state machine
// does not allow.
func (p *Patient) Transition(to LocationStatus, now time.Time) error {
	if !to.Valid() {
		return fmt.Errorf("unknown location status %q", to)
	}
	if !p.LocationStatus.CanTransitionTo(to) {
		return fmt.Errorf("cannot move patient from %s to %s", p.LocationStatus, to)
	}
	p.LocationStatus = to
	switch to {
	case LocationNeedsRoomAssignment:
		p.RoomAssignmentNeededAt = &now
	case LocationDischarged:
		p.DischargedAt = &now
	}
	return nil
}

// WaitingMinutes is the whole minutes since arrival, floored at zero.
func (p *Patient) WaitingMinutes(now time.Time) int {
	mins := int(now.Sub(p.ArrivalAt).Minutes())
	if mins < 0 {
		return 0
	}
	return mins
}

// Vitals maps to the vitals table: a timestamped reading taken during a visit.
type Vitals struct {
	ID               uuid.UUID  `db:"id" json:"id"`
	PatientID        uuid.UUID  `db:"patient_id" json:"patient_id"`
	HeartRate        *int       `db:"heart_rate" json:"heart_rate,omitempty"`
	BloodPressureSys *int       `db:"blood_pressure_sys" json:"blood_pressure_sys,omitempty"`
	BloodPressureDia *int       `db:"blood_pressure_dia" json:"blood_pressure_dia,omitempty"`
	Temperature      *float64   `db:"temperature" json:"temperature,omitempty"`
	RespiratoryRate  *int       `db:"respiratory_rate" json:"respiratory_rate,omitempty"`
	OxygenSaturation *int       `db:"oxygen_saturation" json:"oxygen_saturation,omitempty"`
	PainScale        *int       `db:"pain_scale" json:"pain_scale,omitempty"`
	RecordedBy       string     `db:"recorded_by" json:"recorded_by"`
	RecordedAt       time.Time  `db:"recorded_at" json:"recorded_at"`
	CreatedAt        time.Time  `db:"created_at" json:"created_at"`
}

func (v *Vitals) Validate() error {
	return validation.ValidateStruct(v,
		validation.Field(&v.PatientID, validation.Required),
		validation.Field(&v.HeartRate, validation.Min(0), validation.Max(300)),
		validation.Field(&v.BloodPressureSys, validation.Min(0), validation.Max(400)),
		validation.Field(&v.BloodPressureDia, validation.Min(0), validation.Max(300)),
		validation.Field(&v.RespiratoryRate, validation.Min(0), validation.Max(120)),
		validation.Field(&v.OxygenSaturation, validation.Min(0), validation.Max(100)),
		validation.Field(&v.PainScale, validation.Min(0), validation.Max(10)),
	)
}
