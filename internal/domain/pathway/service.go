package pathway

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/edflow/edflow/internal/domain/event"
	"github.com/edflow/edflow/internal/domain/settings"
	"github.com/edflow/edflow/internal/domain/timer"
	"github.com/edflow/edflow/internal/platform/db"
)

// TxRunner runs fn atomically; every repository call made with the context
// fn receives joins the same transaction.
type TxRunner func(ctx context.Context, fn func(ctx context.Context) error) error

// PoolTxRunner is the production TxRunner backed by a pgx pool.
func PoolTxRunner(pool *pgxpool.Pool) TxRunner {
	return func(ctx context.Context, fn func(ctx context.Context) error) error {
		return db.WithTx(ctx, pool, fn)
	}
}

// SettingsProvider supplies the current department configuration.
type SettingsProvider interface {
	Current(ctx context.Context) (*settings.ApplicationSetting, error)
}

// EventRecorder is the slice of the event service the pathway service needs.
type EventRecorder interface {
	Record(ctx context.Context, e *event.Event) error
}

// CompletionHook is notified when a pathway transitions to completed.
// The flow service uses it to route the patient to their next location.
type CompletionHook interface {
	PathwayCompleted(ctx context.Context, p *CarePathway) error
}

type Service struct {
	repo     Repository
	settings SettingsProvider
	events   EventRecorder
	inTx     TxRunner
	hook     CompletionHook
	now      func() time.Time
}

func NewService(repo Repository, settings SettingsProvider, events EventRecorder, inTx TxRunner) *Service {
	return &Service{repo: repo, settings: settings, events: events, inTx: inTx, now: time.Now}
}

// SetCompletionHook wires the routing callback. Set once at startup; the
// hook runs inside the same transaction as the completing mutation.
func (s *Service) SetCompletionHook(h CompletionHook) { s.hook = h }

// Create opens a pathway for a patient. A second active pathway of the
// same type is rejected.
func (s *Service) Create(ctx context.Context, p *CarePathway) error {
	if p.Status == "" {
		p.Status = StatusNotStarted
	}
	if err := p.Validate(); err != nil {
		return err
	}
	active, err := s.repo.ActiveByPatientAndType(ctx, p.PatientID, p.Type)
	if err != nil {
		return err
	}
	if active != nil {
		return fmt.Errorf("patient already has an active %s pathway", p.Type)
	}
	return s.repo.Create(ctx, p)
}

// GetByID loads the pathway with all children attached.
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*CarePathway, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("pathway not found")
	}
	if err := s.loadChildren(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) loadChildren(ctx context.Context, p *CarePathway) error {
	var err error
	if p.Type == TypeTriage {
		p.Steps, err = s.repo.ListSteps(ctx, p.ID)
		return err
	}
	if p.Orders, err = s.repo.ListOrders(ctx, p.ID); err != nil {
		return err
	}
	if p.Procedures, err = s.repo.ListProcedures(ctx, p.ID); err != nil {
		return err
	}
	p.Endpoints, err = s.repo.ListEndpoints(ctx, p.ID)
	return err
}

func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*CarePathway, error) {
	pathways, err := s.repo.ListByPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}
	for _, p := range pathways {
		if err := s.loadChildren(ctx, p); err != nil {
			return nil, err
		}
	}
	return pathways, nil
}

// ProgressFor evaluates the aggregator for one pathway.
func (s *Service) ProgressFor(ctx context.Context, id uuid.UUID) (Progress, error) {
	p, err := s.GetByID(ctx, id)
	if err != nil {
		return Progress{}, err
	}
	return p.Evaluate(), nil
}

func (s *Service) AddStep(ctx context.Context, st *Step) error {
	if st.PathwayID == uuid.Nil || st.Name == "" {
		return fmt.Errorf("pathway_id and name are required")
	}
	p, err := s.mustGet(ctx, st.PathwayID)
	if err != nil {
		return err
	}
	if p.Type != TypeTriage {
		return fmt.Errorf("steps belong to triage pathways, not %s", p.Type)
	}
	return s.repo.CreateStep(ctx, st)
}

func (s *Service) AddOrder(ctx context.Context, o *Order) error {
	if o.Status == "" {
		o.Status = OrderOrdered
	}
	if o.TimerStatus == "" {
		o.TimerStatus = timer.StatusGreen
	}
	now := s.now()
	if o.OrderedAt.IsZero() {
		o.OrderedAt = now
	}
	if o.StatusUpdatedAt.IsZero() {
		o.StatusUpdatedAt = o.OrderedAt
	}
	if err := o.Validate(); err != nil {
		return err
	}
	p, err := s.mustGet(ctx, o.PathwayID)
	if err != nil {
		return err
	}
	if p.Type == TypeTriage {
		return fmt.Errorf("orders belong to clinical pathways, not triage")
	}
	if err := s.repo.CreateOrder(ctx, o); err != nil {
		return err
	}
	return s.markStarted(ctx, p)
}

func (s *Service) AddProcedure(ctx context.Context, pr *Procedure) error {
	if pr.PathwayID == uuid.Nil || pr.Name == "" {
		return fmt.Errorf("pathway_id and name are required")
	}
	p, err := s.mustGet(ctx, pr.PathwayID)
	if err != nil {
		return err
	}
	if p.Type == TypeTriage {
		return fmt.Errorf("procedures belong to clinical pathways, not triage")
	}
	return s.repo.CreateProcedure(ctx, pr)
}

func (s *Service) AddEndpoint(ctx context.Context, e *ClinicalEndpoint) error {
	if e.PathwayID == uuid.Nil || e.Name == "" {
		return fmt.Errorf("pathway_id and name are required")
	}
	p, err := s.mustGet(ctx, e.PathwayID)
	if err != nil {
		return err
	}
	if p.Type == TypeTriage {
		return fmt.Errorf("endpoints belong to clinical pathways, not triage")
	}
	return s.repo.CreateEndpoint(ctx, e)
}

func (s *Service) mustGet(ctx context.Context, id uuid.UUID) (*CarePathway, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("pathway not found")
	}
	return p, nil
}

func (s *Service) markStarted(ctx context.Context, p *CarePathway) error {
	if p.Status != StatusNotStarted {
		return nil
	}
	now := s.now()
	p.Status = StatusInProgress
	p.StartedAt = &now
	return s.repo.Update(ctx, p)
}

// CompleteStep checks off a triage step. When it was the last one the
// pathway completes and the routing hook fires, all in one transaction.
func (s *Service) CompleteStep(ctx context.Context, stepID uuid.UUID, actor string) (*Step, error) {
	var done *Step
	err := s.inTx(ctx, func(ctx context.Context) error {
		st, err := s.repo.GetStep(ctx, stepID)
		if err != nil {
			return err
		}
		if st == nil {
			return fmt.Errorf("step not found")
		}
		if st.Completed {
			return fmt.Errorf("step already completed")
		}
		now := s.now()
		st.Completed = true
		st.CompletedAt = &now
		st.CompletedBy = &actor
		if err := s.repo.UpdateStep(ctx, st); err != nil {
			return err
		}
		p, err := s.mustGet(ctx, st.PathwayID)
		if err != nil {
			return err
		}
		if err := s.markStarted(ctx, p); err != nil {
			return err
		}
		if err := s.events.Record(ctx, &event.Event{
			PatientID:   &p.PatientID,
			Category:    event.CategoryStepCompleted,
			Description: fmt.Sprintf("completed step %q", st.Name),
			Actor:       actor,
		}); err != nil {
			return err
		}
		done = st
		return s.recompute(ctx, p, actor)
	})
	if err != nil {
		return nil, err
	}
	return done, nil
}

// UncompleteStep reopens a checked-off triage step, for example when it
// was ticked on the wrong patient. A completed pathway goes back to
// in_progress; the routing hook is not re-armed.
func (s *Service) UncompleteStep(ctx context.Context, stepID uuid.UUID, actor string) (*Step, error) {
	var reopened *Step
	err := s.inTx(ctx, func(ctx context.Context) error {
		st, err := s.repo.GetStep(ctx, stepID)
		if err != nil {
			return err
		}
		if st == nil {
			return fmt.Errorf("step not found")
		}
		if !st.Completed {
			return fmt.Errorf("step is not completed")
		}
		st.Completed = false
		st.CompletedAt = nil
		st.CompletedBy = nil
		if err := s.repo.UpdateStep(ctx, st); err != nil {
			return err
		}
		p, err := s.mustGet(ctx, st.PathwayID)
		if err != nil {
			return err
		}
		if p.Status == StatusCompleted {
			p.Status = StatusInProgress
			p.CompletedAt = nil
			if err := s.repo.Update(ctx, p); err != nil {
				return err
			}
		}
		reopened = st
		return s.events.Record(ctx, &event.Event{
			PatientID:   &p.PatientID,
			Category:    event.CategoryStepCompleted,
			Description: fmt.Sprintf("reopened step %q", st.Name),
			Actor:       actor,
		})
	})
	if err != nil {
		return nil, err
	}
	return reopened, nil
}

// ActiveByPatientAndType returns the patient's current pathway of the
// given type with children loaded, or nil when none is open.
func (s *Service) ActiveByPatientAndType(ctx context.Context, patientID uuid.UUID, t Type) (*CarePathway, error) {
	p, err := s.repo.ActiveByPatientAndType(ctx, patientID, t)
	if err != nil || p == nil {
		return nil, err
	}
	if err := s.loadChildren(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// CompleteActiveForPatient closes every open pathway for the patient,
// regardless of progress. Used on discharge; the routing hook does not
// fire.
func (s *Service) CompleteActiveForPatient(ctx context.Context, patientID uuid.UUID, actor string) error {
	pathways, err := s.repo.ListByPatient(ctx, patientID)
	if err != nil {
		return err
	}
	now := s.now()
	for _, p := range pathways {
		if p.Status == StatusCompleted {
			continue
		}
		p.Status = StatusCompleted
		p.CompletedAt = &now
		if p.StartedAt == nil {
			p.StartedAt = &now
		}
		if err := s.repo.Update(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

// AdvanceOrder moves an order to its next status under a row lock. It
// returns false with no error when the order is already terminal; nothing
// is mutated in that case.
func (s *Service) AdvanceOrder(ctx context.Context, orderID uuid.UUID, actor string) (bool, error) {
	cfg, err := s.settings.Current(ctx)
	if err != nil {
		return false, err
	}
	advanced := false
	err = s.inTx(ctx, func(ctx context.Context) error {
		o, err := s.repo.GetOrderForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if o == nil {
			return fmt.Errorf("order not found")
		}
		now := s.now()
		prevStatus := o.Status
		elapsed := o.StageElapsedMinutes(now)
		if !o.Advance(actor, now) {
			return nil
		}
		// The color reflects how long the finished stage took against
		// that stage's target.
		target := cfg.OrderStageTarget(string(o.Type), string(prevStatus))
		o.TimerStatus = timer.Calculate(elapsed, target, cfg.Thresholds())
		if err := s.repo.UpdateOrder(ctx, o); err != nil {
			return err
		}
		p, err := s.mustGet(ctx, o.PathwayID)
		if err != nil {
			return err
		}
		if err := s.markStarted(ctx, p); err != nil {
			return err
		}
		ts := string(o.TimerStatus)
		if err := s.events.Record(ctx, &event.Event{
			PatientID:   &p.PatientID,
			Category:    event.CategoryOrderStatus,
			Description: fmt.Sprintf("%s order %q moved from %s to %s", o.Type, o.Name, prevStatus, o.Status),
			Actor:       actor,
			TimerStatus: &ts,
		}); err != nil {
			return err
		}
		advanced = true
		return s.recompute(ctx, p, actor)
	})
	if err != nil {
		return false, err
	}
	return advanced, nil
}

// RefreshOrderTimer re-evaluates the running stage's color without
// advancing; the monitor calls this for the tracking board.
func (s *Service) RefreshOrderTimer(ctx context.Context, o *Order, cfg *settings.ApplicationSetting) timer.Status {
	if o.Terminal() {
		return o.TimerStatus
	}
	target := cfg.OrderStageTarget(string(o.Type), string(o.Status))
	return timer.Calculate(o.StageElapsedMinutes(s.now()), target, cfg.Thresholds())
}

func (s *Service) CompleteProcedure(ctx context.Context, procedureID uuid.UUID, actor string) (*Procedure, error) {
	var done *Procedure
	err := s.inTx(ctx, func(ctx context.Context) error {
		pr, err := s.repo.GetProcedure(ctx, procedureID)
		if err != nil {
			return err
		}
		if pr == nil {
			return fmt.Errorf("procedure not found")
		}
		if pr.Completed {
			return fmt.Errorf("procedure already completed")
		}
		now := s.now()
		pr.Completed = true
		pr.CompletedAt = &now
		pr.CompletedBy = &actor
		if err := s.repo.UpdateProcedure(ctx, pr); err != nil {
			return err
		}
		p, err := s.mustGet(ctx, pr.PathwayID)
		if err != nil {
			return err
		}
		if err := s.events.Record(ctx, &event.Event{
			PatientID:   &p.PatientID,
			Category:    event.CategoryProcedure,
			Description: fmt.Sprintf("completed procedure %q", pr.Name),
			Actor:       actor,
		}); err != nil {
			return err
		}
		done = pr
		return s.recompute(ctx, p, actor)
	})
	if err != nil {
		return nil, err
	}
	return done, nil
}

func (s *Service) AchieveEndpoint(ctx context.Context, endpointID uuid.UUID, actor string) (*ClinicalEndpoint, error) {
	var done *ClinicalEndpoint
	err := s.inTx(ctx, func(ctx context.Context) error {
		e, err := s.repo.GetEndpoint(ctx, endpointID)
		if err != nil {
			return err
		}
		if e == nil {
			return fmt.Errorf("endpoint not found")
		}
		if e.Achieved {
			return fmt.Errorf("endpoint already achieved")
		}
		now := s.now()
		e.Achieved = true
		e.AchievedAt = &now
		e.AchievedBy = &actor
		if err := s.repo.UpdateEndpoint(ctx, e); err != nil {
			return err
		}
		p, err := s.mustGet(ctx, e.PathwayID)
		if err != nil {
			return err
		}
		if err := s.events.Record(ctx, &event.Event{
			PatientID:   &p.PatientID,
			Category:    event.CategoryEndpoint,
			Description: fmt.Sprintf("achieved endpoint %q", e.Name),
			Actor:       actor,
		}); err != nil {
			return err
		}
		done = e
		return s.recompute(ctx, p, actor)
	})
	if err != nil {
		return nil, err
	}
	return done, nil
}

// recompute re-evaluates progress after a child mutation and completes the
// pathway when everything is done, firing the routing hook.
func (s *Service) recompute(ctx context.Context, p *CarePathway, actor string) error {
	if err := s.loadChildren(ctx, p); err != nil {
		return err
	}
	prog := p.Evaluate()
	if !prog.Complete || p.Status == StatusCompleted {
		return nil
	}
	now := s.now()
	p.Status = StatusCompleted
	p.CompletedAt = &now
	if p.StartedAt == nil {
		p.StartedAt = &now
	}
	if err := s.repo.Update(ctx, p); err != nil {
		return err
	}
	if err := s.events.Record(ctx, &event.Event{
		PatientID:   &p.PatientID,
		Category:    event.CategoryPathwayDone,
		Description: fmt.Sprintf("%s pathway %q completed", p.Type, p.Name),
		Actor:       actor,
	}); err != nil {
		return err
	}
	if s.hook != nil {
		return s.hook.PathwayCompleted(ctx, p)
	}
	return nil
}
