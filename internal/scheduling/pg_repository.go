package scheduling

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	pgExclusionViolation  = "23P01"
	pgForeignKeyViolation = "23503"
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

// Helpers

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient

	err := row.Scan(
		&p.ID,
		&p.FirstName,
		&p.LastName,
		&p.Email,
		&p.Phone,
		&p.DateOfBirth,
		&p.Gender,
		&p.Address,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFoundf("patient not found")
		}
		return nil, err
	}

	return &p, nil
}

func scanDoctor(row pgx.Row) (*Doctor, error) {
	var d Doctor

	err := row.Scan(
		&d.ID,
		&d.FirstName,
		&d.LastName,
		&d.Email,
		&d.Phone,
		&d.Specialization,
		&d.Qualification,
		&d.ExperienceYears,
		&d.Designation,
		&d.Department,
		&d.ConsultationFee,
		&d.IsAvailable,
		&d.CreatedAt,
		&d.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFoundf("doctor not found")
		}
		return nil, err
	}

	return &d, nil
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	var endTime time.Time

	err := row.Scan(
		&a.ID,
		&a.PatientID,
		&a.DoctorID,
		&a.StartTime,
		&endTime,
		&a.DurationMinutes,
		&a.Type,
		&a.Status,
		&a.BloodPressure,
		&a.HeartRate,
		&a.Temperature,
		&a.O2Saturation,
		&a.Symptoms,
		&a.Diagnosis,
		&a.Prescription,
		&a.Notes,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFoundf("appointment not found")
		}
		return nil, err
	}

	return &a, nil
}

const appointmentColumns = `
	id, patient_id, doctor_id, start_time, end_time, duration_minutes,
	type, status, blood_pressure, heart_rate, temperature, o2_saturation,
	symptoms, diagnosis, prescription, notes, created_at, updated_at`

// Patients

func (r *PgRepository) CreatePatient(ctx context.Context, p *Patient) (*Patient, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO patients (first_name, last_name, email, phone, date_of_birth, gender, address, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now(), now())
		RETURNING id, first_name, last_name, email, phone, date_of_birth, gender, address, created_at, updated_at
	`, p.FirstName, p.LastName, p.Email, p.Phone, p.DateOfBirth, p.Gender, p.Address)

	created, err := scanPatient(row)
	if err != nil {
		return nil, storageErr("create patient", err)
	}
	return created, nil
}

func (r *PgRepository) GetPatientByID(ctx context.Context, id int64) (*Patient, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, first_name, last_name, email, phone, date_of_birth, gender, address, created_at, updated_at
		FROM patients
		WHERE id = $1
	`, id)
	return scanPatient(row)
}

func (r *PgRepository) ListPatients(ctx context.Context) ([]Patient, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, first_name, last_name, email, phone, date_of_birth, gender, address, created_at, updated_at
		FROM patients
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectPatients(rows)
}

func (r *PgRepository) FindPatientsByPhone(ctx context.Context, phone string) ([]Patient, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, first_name, last_name, email, phone, date_of_birth, gender, address, created_at, updated_at
		FROM patients
		WHERE phone = $1
	`, phone)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectPatients(rows)
}

func collectPatients(rows pgx.Rows) ([]Patient, error) {
	var result []Patient
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// Doctors

func (r *PgRepository) GetDoctorByID(ctx context.Context, id int64) (*Doctor, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, first_name, last_name, email, phone, specialization, qualification,
		       experience_years, designation, department, consultation_fee, is_available,
		       created_at, updated_at
		FROM doctors
		WHERE id = $1
	`, id)
	return scanDoctor(row)
}

func (r *PgRepository) ListDoctors(ctx context.Context) ([]Doctor, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, first_name, last_name, email, phone, specialization, qualification,
		       experience_years, designation, department, consultation_fee, is_available,
		       created_at, updated_at
		FROM doctors
		ORDER BY last_name, first_name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Doctor
	for rows.Next() {
		d, err := scanDoctor(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// Appointments

func (r *PgRepository) CreateAppointment(ctx context.Context, a *Appointment) (*Appointment, error) {
	_, end := a.Window()

	row := r.pool.QueryRow(ctx, `
		INSERT INTO appointments (patient_id, doctor_id, start_time, end_time, duration_minutes, type, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, 'scheduled', now(), now())
		RETURNING `+appointmentColumns+`
	`, a.PatientID, a.DoctorID, a.StartTime, end, a.DurationMinutes, a.Type)

	created, err := scanAppointment(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case pgExclusionViolation:
				// A concurrent booking won the race. Best-effort lookup
				// of the winner so the caller sees which one.
				return nil, conflictErr(r.lookupConflictID(ctx, a))
			case pgForeignKeyViolation:
				return nil, notFoundf("referenced %s does not exist", fkTarget(pgErr.ConstraintName))
			}
		}
		return nil, storageErr("create appointment", err)
	}

	return created, nil
}

func (r *PgRepository) lookupConflictID(ctx context.Context, a *Appointment) int64 {
	start, end := a.Window()
	existing, err := r.FindActiveOverlap(ctx, a.DoctorID, start, end)
	if err != nil || existing == nil {
		return 0
	}
	return existing.ID
}

func fkTarget(constraint string) string {
	if strings.Contains(constraint, "patient") {
		return "patient"
	}
	if strings.Contains(constraint, "doctor") {
		return "doctor"
	}
	return "entity"
}

func (r *PgRepository) GetAppointmentByID(ctx context.Context, id int64) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1
	`, id)
	return scanAppointment(row)
}

func (r *PgRepository) ListAppointments(ctx context.Context, f ListFilter) ([]Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments`
	var conds []string
	var args []any

	if f.DoctorID != 0 {
		args = append(args, f.DoctorID)
		conds = append(conds, fmt.Sprintf("doctor_id = $%d", len(args)))
	}
	if f.PatientID != 0 {
		args = append(args, f.PatientID)
		conds = append(conds, fmt.Sprintf("patient_id = $%d", len(args)))
	}
	if f.Status != "" {
		args = append(args, f.Status)
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY start_time DESC"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectAppointments(rows)
}

func (r *PgRepository) ListActiveByDoctor(ctx context.Context, doctorID int64) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE doctor_id = $1 AND status <> 'cancelled'
	`, doctorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectAppointments(rows)
}

func (r *PgRepository) FindActiveOverlap(ctx context.Context, doctorID int64, start, end time.Time) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE doctor_id = $1
		  AND status <> 'cancelled'
		  AND start_time < $3
		  AND end_time > $2
		LIMIT 1
	`, doctorID, start, end)

	a, err := scanAppointment(row)
	if err != nil {
		if IsKind(err, KindNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return a, nil
}

func collectAppointments(rows pgx.Rows) ([]Appointment, error) {
	var result []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PgRepository) UpdateAppointmentStatus(ctx context.Context, id int64, from []AppointmentStatus, to AppointmentStatus) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET status = $2,
		    updated_at = now()
		WHERE id = $1
		  AND status = ANY($3)
		RETURNING `+appointmentColumns+`
	`, id, to, statusStrings(from))

	a, err := scanAppointment(row)
	if err != nil {
		if IsKind(err, KindNotFound) {
			// The row may exist in a status outside from; the caller
			// distinguishes missing from mis-stated.
			return nil, nil
		}
		return nil, err
	}
	return a, nil
}

func (r *PgRepository) CompleteConsultation(ctx context.Context, a *Appointment, from []AppointmentStatus) (*Appointment, error) {
	// Field merge and status transition commit as one statement so a
	// cancelled request cannot leave a partially updated record.
	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET blood_pressure = $2,
		    heart_rate     = $3,
		    temperature    = $4,
		    o2_saturation  = $5,
		    symptoms       = $6,
		    diagnosis      = $7,
		    prescription   = $8,
		    notes          = $9,
		    status         = 'completed',
		    updated_at     = now()
		WHERE id = $1
		  AND status = ANY($10)
		RETURNING `+appointmentColumns+`
	`, a.ID, a.BloodPressure, a.HeartRate, a.Temperature, a.O2Saturation,
		a.Symptoms, a.Diagnosis, a.Prescription, a.Notes, statusStrings(from))

	updated, err := scanAppointment(row)
	if err != nil {
		if IsKind(err, KindNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return updated, nil
}

func statusStrings(statuses []AppointmentStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}
