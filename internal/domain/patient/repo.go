package patient

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, p *Patient) error
	GetByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	// GetByIDForUpdate locks the patient row for the duration of the
	// surrounding transaction. Callers must hold a transaction in ctx.
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*Patient, error)
	GetByMRN(ctx context.Context, mrn string) (*Patient, error)
	Update(ctx context.Context, p *Patient) error
	ListByLocations(ctx context.Context, locations []LocationStatus, limit, offset int) ([]*Patient, int, error)
	ListActive(ctx context.Context, limit, offset int) ([]*Patient, int, error)
}

type VitalsRepository interface {
	Create(ctx context.Context, v *Vitals) error
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Vitals, int, error)
}
