package pathway

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, p *CarePathway) error
	GetByID(ctx context.Context, id uuid.UUID) (*CarePathway, error)
	Update(ctx context.Context, p *CarePathway) error
	ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*CarePathway, error)
	// ActiveByPatientAndType returns the patient's non-completed pathway of
	// the given type, or nil when there is none.
	ActiveByPatientAndType(ctx context.Context, patientID uuid.UUID, t Type) (*CarePathway, error)

	CreateStep(ctx context.Context, s *Step) error
	GetStep(ctx context.Context, id uuid.UUID) (*Step, error)
	UpdateStep(ctx context.Context, s *Step) error
	ListSteps(ctx context.Context, pathwayID uuid.UUID) ([]*Step, error)

	CreateOrder(ctx context.Context, o *Order) error
	GetOrder(ctx context.Context, id uuid.UUID) (*Order, error)
	// GetOrderForUpdate locks the order row for the duration of the
	// surrounding transaction. Callers must hold a transaction in ctx.
	GetOrderForUpdate(ctx context.Context, id uuid.UUID) (*Order, error)
	UpdateOrder(ctx context.Context, o *Order) error
	ListOrders(ctx context.Context, pathwayID uuid.UUID) ([]*Order, error)

	CreateProcedure(ctx context.Context, p *Procedure) error
	GetProcedure(ctx context.Context, id uuid.UUID) (*Procedure, error)
	UpdateProcedure(ctx context.Context, p *Procedure) error
	ListProcedures(ctx context.Context, pathwayID uuid.UUID) ([]*Procedure, error)

	CreateEndpoint(ctx context.Context, e *ClinicalEndpoint) error
	GetEndpoint(ctx context.Context, id uuid.UUID) (*ClinicalEndpoint, error)
	UpdateEndpoint(ctx context.Context, e *ClinicalEndpoint) error
	ListEndpoints(ctx context.Context, pathwayID uuid.UUID) ([]*ClinicalEndpoint, error)
}
