package settings

import "context"

type Repository interface {
	// Get returns the singleton row, or nil when none exists yet.
	Get(ctx context.Context) (*ApplicationSetting, error)
	Create(ctx context.Context, s *ApplicationSetting) error
	Update(ctx context.Context, s *ApplicationSetting) error
}
