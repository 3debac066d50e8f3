package room

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, r *Room) error
	GetByID(ctx context.Context, id uuid.UUID) (*Room, error)
	// GetByIDForUpdate locks the room row for the duration of the
	// surrounding transaction. Callers must hold a transaction in ctx.
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*Room, error)
	// FirstAvailableForUpdate locks and returns the first available room of
	// the given type, or nil when none is free.
	FirstAvailableForUpdate(ctx context.Context, roomType Type) (*Room, error)
	Update(ctx context.Context, r *Room) error
	List(ctx context.Context, roomType Type, status Status, limit, offset int) ([]*Room, int, error)
}
