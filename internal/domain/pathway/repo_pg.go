package pathway

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/edflow/edflow/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

func (r *repoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const pathwayCols = `id, patient_id, type, status, name, started_at, completed_at, created_at, updated_at`

func scanPathway(row pgx.Row) (*CarePathway, error) {
	var p CarePathway
	err := row.Scan(&p.ID, &p.PatientID, &p.Type, &p.Status, &p.Name, &p.StartedAt, &p.CompletedAt, &p.CreatedAt, &p.UpdatedAt)
	return &p, err
}

func (r *repoPG) Create(ctx context.Context, p *CarePathway) error {
	p.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO care_pathway (id, patient_id, type, status, name, started_at)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		p.ID, p.PatientID, p.Type, p.Status, p.Name, p.StartedAt)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*CarePathway, error) {
	p, err := scanPathway(r.conn(ctx).QueryRow(ctx, `SELECT `+pathwayCols+` FROM care_pathway WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *repoPG) Update(ctx context.Context, p *CarePathway) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE care_pathway SET status=$2, name=$3, started_at=$4, completed_at=$5, updated_at=NOW()
		WHERE id = $1`,
		p.ID, p.Status, p.Name, p.StartedAt, p.CompletedAt)
	return err
}

func (r *repoPG) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*CarePathway, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+pathwayCols+` FROM care_pathway WHERE patient_id = $1 ORDER BY created_at ASC`, patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*CarePathway
	for rows.Next() {
		p, err := scanPathway(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	return items, nil
}

func (r *repoPG) ActiveByPatientAndType(ctx context.Context, patientID uuid.UUID, t Type) (*CarePathway, error) {
	p, err := scanPathway(r.conn(ctx).QueryRow(ctx, `
		SELECT `+pathwayCols+` FROM care_pathway
		WHERE patient_id = $1 AND type = $2 AND status <> 'completed'
		ORDER BY created_at DESC LIMIT 1`, patientID, t))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

const stepCols = `id, pathway_id, name, position, completed, completed_at, completed_by, created_at`

func scanStep(row pgx.Row) (*Step, error) {
	var s Step
	err := row.Scan(&s.ID, &s.PathwayID, &s.Name, &s.Position, &s.Completed, &s.CompletedAt, &s.CompletedBy, &s.CreatedAt)
	return &s, err
}

func (r *repoPG) CreateStep(ctx context.Context, s *Step) error {
	s.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO care_pathway_step (id, pathway_id, name, position)
		VALUES ($1,$2,$3,$4)`, s.ID, s.PathwayID, s.Name, s.Position)
	return err
}

func (r *repoPG) GetStep(ctx context.Context, id uuid.UUID) (*Step, error) {
	s, err := scanStep(r.conn(ctx).QueryRow(ctx, `SELECT `+stepCols+` FROM care_pathway_step WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (r *repoPG) UpdateStep(ctx context.Context, s *Step) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE care_pathway_step SET name=$2, position=$3, completed=$4, completed_at=$5, completed_by=$6
		WHERE id = $1`,
		s.ID, s.Name, s.Position, s.Completed, s.CompletedAt, s.CompletedBy)
	return err
}

func (r *repoPG) ListSteps(ctx context.Context, pathwayID uuid.UUID) ([]*Step, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+stepCols+` FROM care_pathway_step WHERE pathway_id = $1 ORDER BY position ASC`, pathwayID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Step
	for rows.Next() {
		s, err := scanStep(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, s)
	}
	return items, nil
}

const orderCols = `id, pathway_id, type, name, status, timer_status, ordered_at, collected_at, in_lab_at,
	administered_at, exam_started_at, exam_completed_at, resulted_at, status_updated_at, status_updated_by,
	created_at, updated_at`

func scanOrder(row pgx.Row) (*Order, error) {
	var o Order
	err := row.Scan(&o.ID, &o.PathwayID, &o.Type, &o.Name, &o.Status, &o.TimerStatus, &o.OrderedAt, &o.CollectedAt, &o.InLabAt,
		&o.AdministeredAt, &o.ExamStartedAt, &o.ExamCompletedAt, &o.ResultedAt, &o.StatusUpdatedAt, &o.StatusUpdatedBy,
		&o.CreatedAt, &o.UpdatedAt)
	return &o, err
}

func (r *repoPG) CreateOrder(ctx context.Context, o *Order) error {
	o.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO care_pathway_order (id, pathway_id, type, name, status, timer_status, ordered_at, status_updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		o.ID, o.PathwayID, o.Type, o.Name, o.Status, o.TimerStatus, o.OrderedAt, o.StatusUpdatedAt)
	return err
}

func (r *repoPG) getOrder(ctx context.Context, query string, id uuid.UUID) (*Order, error) {
	o, err := scanOrder(r.conn(ctx).QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return o, nil
}

func (r *repoPG) GetOrder(ctx context.Context, id uuid.UUID) (*Order, error) {
	return r.getOrder(ctx, `SELECT `+orderCols+` FROM care_pathway_order WHERE id = $1`, id)
}

func (r *repoPG) GetOrderForUpdate(ctx context.Context, id uuid.UUID) (*Order, error) {
	if db.TxFromContext(ctx) == nil {
		return nil, fmt.Errorf("GetOrderForUpdate requires a transaction")
	}
	return r.getOrder(ctx, `SELECT `+orderCols+` FROM care_pathway_order WHERE id = $1 FOR UPDATE`, id)
}

func (r *repoPG) UpdateOrder(ctx context.Context, o *Order) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE care_pathway_order SET status=$2, timer_status=$3, collected_at=$4, in_lab_at=$5,
			administered_at=$6, exam_started_at=$7, exam_completed_at=$8, resulted_at=$9,
			status_updated_at=$10, status_updated_by=$11, updated_at=NOW()
		WHERE id = $1`,
		o.ID, o.Status, o.TimerStatus, o.CollectedAt, o.InLabAt,
		o.AdministeredAt, o.ExamStartedAt, o.ExamCompletedAt, o.ResultedAt,
		o.StatusUpdatedAt, o.StatusUpdatedBy)
	return err
}

func (r *repoPG) ListOrders(ctx context.Context, pathwayID uuid.UUID) ([]*Order, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+orderCols+` FROM care_pathway_order WHERE pathway_id = $1 ORDER BY ordered_at ASC`, pathwayID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, o)
	}
	return items, nil
}

const procedureCols = `id, pathway_id, name, completed, completed_at, completed_by, created_at`

func scanProcedure(row pgx.Row) (*Procedure, error) {
	var p Procedure
	err := row.Scan(&p.ID, &p.PathwayID, &p.Name, &p.Completed, &p.CompletedAt, &p.CompletedBy, &p.CreatedAt)
	return &p, err
}

func (r *repoPG) CreateProcedure(ctx context.Context, p *Procedure) error {
	p.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO care_pathway_procedure (id, pathway_id, name) VALUES ($1,$2,$3)`,
		p.ID, p.PathwayID, p.Name)
	return err
}

func (r *repoPG) GetProcedure(ctx context.Context, id uuid.UUID) (*Procedure, error) {
	p, err := scanProcedure(r.conn(ctx).QueryRow(ctx, `SELECT `+procedureCols+` FROM care_pathway_procedure WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *repoPG) UpdateProcedure(ctx context.Context, p *Procedure) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE care_pathway_procedure SET name=$2, completed=$3, completed_at=$4, completed_by=$5
		WHERE id = $1`,
		p.ID, p.Name, p.Completed, p.CompletedAt, p.CompletedBy)
	return err
}

func (r *repoPG) ListProcedures(ctx context.Context, pathwayID uuid.UUID) ([]*Procedure, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+procedureCols+` FROM care_pathway_procedure WHERE pathway_id = $1 ORDER BY created_at ASC`, pathwayID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Procedure
	for rows.Next() {
		p, err := scanProcedure(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	return items, nil
}

const endpointCols = `id, pathway_id, name, achieved, achieved_at, achieved_by, created_at`

func scanEndpoint(row pgx.Row) (*ClinicalEndpoint, error) {
	var e ClinicalEndpoint
	err := row.Scan(&e.ID, &e.PathwayID, &e.Name, &e.Achieved, &e.AchievedAt, &e.AchievedBy, &e.CreatedAt)
	return &e, err
}

func (r *repoPG) CreateEndpoint(ctx context.Context, e *ClinicalEndpoint) error {
	e.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO care_pathway_endpoint (id, pathway_id, name) VALUES ($1,$2,$3)`,
		e.ID, e.PathwayID, e.Name)
	return err
}

func (r *repoPG) GetEndpoint(ctx context.Context, id uuid.UUID) (*ClinicalEndpoint, error) {
	e, err := scanEndpoint(r.conn(ctx).QueryRow(ctx, `SELECT `+endpointCols+` FROM care_pathway_endpoint WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return e, nil
}

func (r *repoPG) UpdateEndpoint(ctx context.Context, e *ClinicalEndpoint) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE care_pathway_endpoint SET name=$2, achieved=$3, achieved_at=$4, achieved_by=$5
		WHERE id = $1`,
		e.ID, e.Name, e.Achieved, e.AchievedAt, e.AchievedBy)
	return err
}

func (r *repoPG) ListEndpoints(ctx context.Context, pathwayID uuid.UUID) ([]*ClinicalEndpoint, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+endpointCols+` FROM care_pathway_endpoint WHERE pathway_id = $1 ORDER BY created_at ASC`, pathwayID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*ClinicalEndpoint
	for rows.Next() {
		e, err := scanEndpoint(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, e)
	}
	return items, nil
}
