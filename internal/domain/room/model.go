package room

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
)

// Type distinguishes standard ED treatment rooms from results-pending (RP)
// rooms used by patients waiting on results.
type Type string

const (
	TypeED Type = "ed"
	TypeRP Type = "rp"
)

type Status string

const (
	StatusAvailable   Status = "available"
	StatusOccupied    Status = "occupied"
	StatusCleaning    Status = "cleaning"
	StatusMaintenance Status = "maintenance"
)

// Room maps to the room table.
type Room struct {
	ID               uuid.UUID  `db:"id" json:"id"`
	Number           string     `db:"number" json:"number"`
	Type             Type       `db:"type" json:"type"`
	Status           Status     `db:"status" json:"status"`
	CurrentPatientID *uuid.UUID `db:"current_patient_id" json:"current_patient_id,omitempty"`
	CreatedAt        time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at" json:"updated_at"`
}

func (r *Room) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Number, validation.Required, validation.Length(1, 16)),
		validation.Field(&r.Type, validation.Required, validation.In(TypeED, TypeRP)),
		validation.Field(&r.Status, validation.Required, validation.In(StatusAvailable, StatusOccupied, StatusCleaning, StatusMaintenance)),
	)
}
