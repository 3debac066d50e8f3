package settings

import (
	"context"
	"errors"

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

const cols = `id, esi1_wait_mins, esi2_wait_mins, esi3_wait_mins, esi4_wait_mins, esi5_wait_mins,
	lab_collect_mins, lab_in_lab_mins, lab_result_mins, med_administer_mins,
	imaging_start_mins, imaging_complete_mins, imaging_result_mins,
	warning_pct, critical_pct, updated_by, created_at, updated_at`

func scan(row pgx.Row) (*ApplicationSetting, error) {
	var s ApplicationSetting
	err := row.Scan(&s.ID, &s.ESI1WaitMins, &s.ESI2WaitMins, &s.ESI3WaitMins, &s.ESI4WaitMins, &s.ESI5WaitMins,
		&s.LabCollectMins, &s.LabInLabMins, &s.LabResultMins, &s.MedAdministerMins,
		&s.ImagingStartMins, &s.ImagingCompleteMins, &s.ImagingResultMins,
		&s.WarningPct, &s.CriticalPct, &s.UpdatedBy, &s.CreatedAt, &s.UpdatedAt)
	return &s, err
}

func (r *repoPG) Get(ctx context.Context) (*ApplicationSetting, error) {
	s, err := scan(r.conn(ctx).QueryRow(ctx, `SELECT `+cols+` FROM application_setting LIMIT 1`))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (r *repoPG) Create(ctx context.Context, s *ApplicationSetting) error {
	s.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO application_setting (id, esi1_wait_mins, esi2_wait_mins, esi3_wait_mins, esi4_wait_mins, esi5_wait_mins,
			lab_collect_mins, lab_in_lab_mins, lab_result_mins, med_administer_mins,
			imaging_start_mins, imaging_complete_mins, imaging_result_mins,
			warning_pct, critical_pct, updated_by)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)`,
		s.ID, s.ESI1WaitMins, s.ESI2WaitMins, s.ESI3WaitMins, s.ESI4WaitMins, s.ESI5WaitMins,
		s.LabCollectMins, s.LabInLabMins, s.LabResultMins, s.MedAdministerMins,
		s.ImagingStartMins, s.ImagingCompleteMins, s.ImagingResultMins,
		s.WarningPct, s.CriticalPct, s.UpdatedBy)
	return err
}

func (r *repoPG) Update(ctx context.Context, s *ApplicationSetting) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE application_setting SET esi1_wait_mins=$2, esi2_wait_mins=$3, esi3_wait_mins=$4,
			esi4_wait_mins=$5, esi5_wait_mins=$6, lab_collect_mins=$7, lab_in_lab_mins=$8,
			lab_result_mins=$9, med_administer_mins=$10, imaging_start_mins=$11,
			imaging_complete_mins=$12, imaging_result_mins=$13, warning_pct=$14, critical_pct=$15,
			updated_by=$16, updated_at=NOW()
		WHERE id = $1`,
		s.ID, s.ESI1WaitMins, s.ESI2WaitMins, s.ESI3WaitMins, s.ESI4WaitMins, s.ESI5WaitMins,
		s.LabCollectMins, s.LabInLabMins, s.LabResultMins, s.MedAdministerMins,
		s.ImagingStartMins, s.ImagingCompleteMins, s.ImagingResultMins,
		s.WarningPct, s.CriticalPct, s.UpdatedBy)
	return err
}
