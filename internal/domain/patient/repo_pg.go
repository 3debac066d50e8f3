package patient

import (
	"context"
	"errors"
	"fmt"
	"strings"

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

const cols = `id, mrn, first_name, last_name, date_of_birth, chief_complaint, esi_level,
	location_status, room_number, rp_eligible, arrival_at, triage_completed_at,
	room_assignment_needed_at, discharged_at, created_at, updated_at`

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(&p.ID, &p.MRN, &p.FirstName, &p.LastName, &p.DateOfBirth, &p.ChiefComplaint, &p.ESILevel,
		&p.LocationStatus, &p.RoomNumber, &p.RPEligible, &p.ArrivalAt, &p.TriageCompletedAt,
		&p.RoomAssignmentNeededAt, &p.DischargedAt, &p.CreatedAt, &p.UpdatedAt)
	return &p, err
}

func (r *repoPG) Create(ctx context.Context, p *Patient) error {
	p.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO patient (id, mrn, first_name, last_name, date_of_birth, chief_complaint, esi_level,
			location_status, room_number, rp_eligible, arrival_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		p.ID, p.MRN, p.FirstName, p.LastName, p.DateOfBirth, p.ChiefComplaint, p.ESILevel,
		p.LocationStatus, p.RoomNumber, p.RPEligible, p.ArrivalAt)
	return err
}

func (r *repoPG) get(ctx context.Context, query string, args ...interface{}) (*Patient, error) {
	p, err := scanPatient(r.conn(ctx).QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return r.get(ctx, `SELECT `+cols+` FROM patient WHERE id = $1`, id)
}

func (r *repoPG) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*Patient, error) {
	if db.TxFromContext(ctx) == nil {
		return nil, fmt.Errorf("GetByIDForUpdate requires a transaction")
	}
	return r.get(ctx, `SELECT `+cols+` FROM patient WHERE id = $1 FOR UPDATE`, id)
}

func (r *repoPG) GetByMRN(ctx context.Context, mrn string) (*Patient, error) {
	return r.get(ctx, `SELECT `+cols+` FROM patient WHERE mrn = $1 AND discharged_at IS NULL`, mrn)
}

func (r *repoPG) Update(ctx context.Context, p *Patient) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE patient SET mrn=$2, first_name=$3, last_name=$4, date_of_birth=$5, chief_complaint=$6,
			esi_level=$7, location_status=$8, room_number=$9, rp_eligible=$10,
			triage_completed_at=$11, room_assignment_needed_at=$12, discharged_at=$13, updated_at=NOW()
		WHERE id = $1`,
		p.ID, p.MRN, p.FirstName, p.LastName, p.DateOfBirth, p.ChiefComplaint,
		p.ESILevel, p.LocationStatus, p.RoomNumber, p.RPEligible,
		p.TriageCompletedAt, p.RoomAssignmentNeededAt, p.DischargedAt)
	return err
}

func (r *repoPG) ListByLocations(ctx context.Context, locations []LocationStatus, limit, offset int) ([]*Patient, int, error) {
	if len(locations) == 0 {
		return nil, 0, nil
	}
	placeholders := make([]string, len(locations))
	args := make([]interface{}, 0, len(locations)+2)
	for i, loc := range locations {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args = append(args, loc)
	}
	where := ` WHERE location_status IN (` + strings.Join(placeholders, ",") + `)`

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM patient`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	query := `SELECT ` + cols + ` FROM patient` + where +
		fmt.Sprintf(` ORDER BY arrival_at ASC LIMIT $%d OFFSET $%d`, len(locations)+1, len(locations)+2)
	args = append(args, limit, offset)
	return r.list(ctx, query, total, args...)
}

func (r *repoPG) ListActive(ctx context.Context, limit, offset int) ([]*Patient, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM patient WHERE location_status <> 'discharged'`).Scan(&total); err != nil {
		return nil, 0, err
	}
	return r.list(ctx, `SELECT `+cols+` FROM patient WHERE location_status <> 'discharged' ORDER BY arrival_at ASC LIMIT $1 OFFSET $2`, total, limit, offset)
}

func (r *repoPG) list(ctx context.Context, query string, total int, args ...interface{}) ([]*Patient, int, error) {
	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Patient
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, p)
	}
	return items, total, nil
}

type vitalsRepoPG struct{ pool *pgxpool.Pool }

func NewVitalsRepoPG(pool *pgxpool.Pool) VitalsRepository { return &vitalsRepoPG{pool: pool} }

func (r *vitalsRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const vitalsCols = `id, patient_id, heart_rate, blood_pressure_sys, blood_pressure_dia,
	temperature, respiratory_rate, oxygen_saturation, pain_scale, recorded_by, recorded_at, created_at`

func (r *vitalsRepoPG) Create(ctx context.Context, v *Vitals) error {
	v.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO vitals (id, patient_id, heart_rate, blood_pressure_sys, blood_pressure_dia,
			temperature, respiratory_rate, oxygen_saturation, pain_scale, recorded_by, recorded_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		v.ID, v.PatientID, v.HeartRate, v.BloodPressureSys, v.BloodPressureDia,
		v.Temperature, v.RespiratoryRate, v.OxygenSaturation, v.PainScale, v.RecordedBy, v.RecordedAt)
	return err
}

func (r *vitalsRepoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Vitals, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM vitals WHERE patient_id = $1`, patientID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+vitalsCols+` FROM vitals WHERE patient_id = $1 ORDER BY recorded_at DESC LIMIT $2 OFFSET $3`, patientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Vitals
	for rows.Next() {
		var v Vitals
		if err := rows.Scan(&v.ID, &v.PatientID, &v.HeartRate, &v.BloodPressureSys, &v.BloodPressureDia,
			&v.Temperature, &v.RespiratoryRate, &v.OxygenSaturation, &v.PainScale, &v.RecordedBy, &v.RecordedAt, &v.CreatedAt); err != nil {
			return nil, 0, err
		}
		items = append(items, &v)
	}
	return items, total, nil
}
