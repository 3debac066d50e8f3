package task

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

const cols = `id, patient_id, kind, priority, status, assigned_role, assigned_to,
	description, condition_key, due_at, completed_at, created_at, updated_at`

func scanTask(row pgx.Row) (*NursingTask, error) {
	var t NursingTask
	err := row.Scan(&t.ID, &t.PatientID, &t.Kind, &t.Priority, &t.Status, &t.AssignedRole, &t.AssignedTo,
		&t.Description, &t.ConditionKey, &t.DueAt, &t.CompletedAt, &t.CreatedAt, &t.UpdatedAt)
	return &t, err
}

func (r *repoPG) Create(ctx context.Context, t *NursingTask) error {
	t.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO nursing_task (id, patient_id, kind, priority, status, assigned_role, assigned_to,
			description, condition_key, due_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		t.ID, t.PatientID, t.Kind, t.Priority, t.Status, t.AssignedRole, t.AssignedTo,
		t.Description, t.ConditionKey, t.DueAt)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*NursingTask, error) {
	t, err := scanTask(r.conn(ctx).QueryRow(ctx, `SELECT `+cols+` FROM nursing_task WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (r *repoPG) Update(ctx context.Context, t *NursingTask) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE nursing_task SET priority=$2, status=$3, assigned_role=$4, assigned_to=$5,
			description=$6, due_at=$7, completed_at=$8, updated_at=NOW()
		WHERE id = $1`,
		t.ID, t.Priority, t.Status, t.AssignedRole, t.AssignedTo,
		t.Description, t.DueAt, t.CompletedAt)
	return err
}

func (r *repoPG) List(ctx context.Context, f ListFilter, limit, offset int) ([]*NursingTask, int, error) {
	where := ` WHERE 1=1`
	args := []interface{}{}
	idx := 1
	if f.Status != "" {
		where += fmt.Sprintf(" AND status = $%d", idx)
		args = append(args, f.Status)
		idx++
	}
	if f.Kind != "" {
		where += fmt.Sprintf(" AND kind = $%d", idx)
		args = append(args, f.Kind)
		idx++
	}
	if f.AssignedRole != "" {
		where += fmt.Sprintf(" AND assigned_role = $%d", idx)
		args = append(args, f.AssignedRole)
		idx++
	}
	if f.PatientID != nil {
		where += fmt.Sprintf(" AND patient_id = $%d", idx)
		args = append(args, *f.PatientID)
		idx++
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM nursing_task`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + cols + ` FROM nursing_task` + where +
		fmt.Sprintf(` ORDER BY due_at ASC LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, limit, offset)
	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*NursingTask
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, t)
	}
	return items, total, nil
}

func (r *repoPG) ExistsActive(ctx context.Context, patientID uuid.UUID, kind Kind) (bool, error) {
	var exists bool
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM nursing_task
			WHERE patient_id = $1 AND kind = $2 AND status IN ('pending', 'in_progress')
		)`, patientID, kind).Scan(&exists)
	return exists, err
}

func (r *repoPG) CancelActiveByKind(ctx context.Context, patientID uuid.UUID, kind Kind) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE nursing_task SET status = 'cancelled', updated_at = NOW()
		WHERE patient_id = $1 AND kind = $2 AND status IN ('pending', 'in_progress')`,
		patientID, kind)
	return err
}
