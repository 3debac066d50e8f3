package room

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

const cols = `id, number, type, status, current_patient_id, created_at, updated_at`

func scanRoom(row pgx.Row) (*Room, error) {
	var rm Room
	err := row.Scan(&rm.ID, &rm.Number, &rm.Type, &rm.Status, &rm.CurrentPatientID, &rm.CreatedAt, &rm.UpdatedAt)
	return &rm, err
}

func (r *repoPG) Create(ctx context.Context, rm *Room) error {
	rm.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO room (id, number, type, status) VALUES ($1,$2,$3,$4)`,
		rm.ID, rm.Number, rm.Type, rm.Status)
	return err
}

func (r *repoPG) get(ctx context.Context, query string, args ...interface{}) (*Room, error) {
	rm, err := scanRoom(r.conn(ctx).QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return rm, nil
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Room, error) {
	return r.get(ctx, `SELECT `+cols+` FROM room WHERE id = $1`, id)
}

func (r *repoPG) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*Room, error) {
	if db.TxFromContext(ctx) == nil {
		return nil, fmt.Errorf("GetByIDForUpdate requires a transaction")
	}
	return r.get(ctx, `SELECT `+cols+` FROM room WHERE id = $1 FOR UPDATE`, id)
}

func (r *repoPG) FirstAvailableForUpdate(ctx context.Context, roomType Type) (*Room, error) {
	if db.TxFromContext(ctx) == nil {
		return nil, fmt.Errorf("FirstAvailableForUpdate requires a transaction")
	}
	// SKIP LOCKED lets two concurrent assignments pick different rooms
	// instead of serializing on the first row.
	return r.get(ctx, `
		SELECT `+cols+` FROM room
		WHERE type = $1 AND status = 'available'
		ORDER BY number ASC
		LIMIT 1
		FOR UPDATE SKIP LOCKED`, roomType)
}

func (r *repoPG) Update(ctx context.Context, rm *Room) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE room SET number=$2, type=$3, status=$4, current_patient_id=$5, updated_at=NOW()
		WHERE id = $1`,
		rm.ID, rm.Number, rm.Type, rm.Status, rm.CurrentPatientID)
	return err
}

func (r *repoPG) List(ctx context.Context, roomType Type, status Status, limit, offset int) ([]*Room, int, error) {
	where := ` WHERE 1=1`
	args := []interface{}{}
	idx := 1
	if roomType != "" {
		where += fmt.Sprintf(" AND type = $%d", idx)
		args = append(args, roomType)
		idx++
	}
	if status != "" {
		where += fmt.Sprintf(" AND status = $%d", idx)
		args = append(args, status)
		idx++
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM room`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	query := `SELECT ` + cols + ` FROM room` + where +
		fmt.Sprintf(` ORDER BY number ASC LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, limit, offset)
	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Room
	for rows.Next() {
		rm, err := scanRoom(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, rm)
	}
	return items, total, nil
}
