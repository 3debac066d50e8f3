package settings

import (
	"context"
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Current returns the singleton settings row, creating it with defaults on
// first access.
func (s *Service) Current(ctx context.Context) (*ApplicationSetting, error) {
	cur, err := s.repo.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	if cur != nil {
		return cur, nil
	}

	cur = Defaults()
	if err := s.repo.Create(ctx, cur); err != nil {
		// Another request may have created the row first.
		if existing, getErr := s.repo.Get(ctx); getErr == nil && existing != nil {
			return existing, nil
		}
		return nil, fmt.Errorf("create default settings: %w", err)
	}
	return cur, nil
}

// Update validates and persists changed targets and thresholds.
func (s *Service) Update(ctx context.Context, in *ApplicationSetting) error {
	if err := validate(in); err != nil {
		return err
	}

	cur, err := s.Current(ctx)
	if err != nil {
		return err
	}
	in.ID = cur.ID
	return s.repo.Update(ctx, in)
}

func validate(s *ApplicationSetting) error {
	return validation.ValidateStruct(s,
		validation.Field(&s.ESI1WaitMins, validation.Min(0)),
		validation.Field(&s.ESI2WaitMins, validation.Min(0)),
		validation.Field(&s.ESI3WaitMins, validation.Min(0)),
		validation.Field(&s.ESI4WaitMins, validation.Min(0)),
		validation.Field(&s.ESI5WaitMins, validation.Min(0)),
		validation.Field(&s.LabCollectMins, validation.Min(0)),
		validation.Field(&s.LabInLabMins, validation.Min(0)),
		validation.Field(&s.LabResultMins, validation.Min(0)),
		validation.Field(&s.MedAdministerMins, validation.Min(0)),
		validation.Field(&s.ImagingStartMins, validation.Min(0)),
		validation.Field(&s.ImagingCompleteMins, validation.Min(0)),
		validation.Field(&s.ImagingResultMins, validation.Min(0)),
		validation.Field(&s.WarningPct, validation.Required, validation.Min(1), validation.Max(500)),
		validation.Field(&s.CriticalPct, validation.Required, validation.Min(1), validation.Max(500)),
	)
}
