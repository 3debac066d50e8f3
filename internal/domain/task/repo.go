package task

import (
	"context"

	"github.com/google/uuid"
)

// ListFilter narrows the task board query. Zero values mean "no filter".
type ListFilter struct {
	Status       Status
	Kind         Kind
	AssignedRole string
	PatientID    *uuid.UUID
}

type Repository interface {
	Create(ctx context.Context, t *NursingTask) error
	GetByID(ctx context.Context, id uuid.UUID) (*NursingTask, error)
	Update(ctx context.Context, t *NursingTask) error
	List(ctx context.Context, f ListFilter, limit, offset int) ([]*NursingTask, int, error)
	// ExistsActive reports whether the patient already has a pending or
	// in-progress task of the given kind.
	ExistsActive(ctx context.Context, patientID uuid.UUID, kind Kind) (bool, error)
	CancelActiveByKind(ctx context.Context, patientID uuid.UUID, kind Kind) error
}
