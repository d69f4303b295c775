package scheduling

import (
	"context"
	"time"
)

// ListFilter narrows List results. Zero values mean "no filter".
type ListFilter struct {
	DoctorID  int64
	PatientID int64
	Status    AppointmentStatus
}

// Repository contains all DB interactions needed by the service.
type Repository interface {
	CreatePatient(ctx context.Context, p *Patient) (*Patient, error)
	GetPatientByID(ctx context.Context, id int64) (*Patient, error)
	ListPatients(ctx context.Context) ([]Patient, error)
	FindPatientsByPhone(ctx context.Context, phone string) ([]Patient, error)

	GetDoctorByID(ctx context.Context, id int64) (*Doctor, error)
	ListDoctors(ctx context.Context) ([]Doctor, error)

	// CreateAppointment persists a new scheduled appointment. The storage
	// layer's overlap constraint is the authoritative conflict guard; a
	// violated constraint must come back as a KindConflict error.
	CreateAppointment(ctx context.Context, a *Appointment) (*Appointment, error)
	GetAppointmentByID(ctx context.Context, id int64) (*Appointment, error)
	ListAppointments(ctx context.Context, f ListFilter) ([]Appointment, error)

	// For conflict pre-checks
	ListActiveByDoctor(ctx context.Context, doctorID int64) ([]Appointment, error)
	FindActiveOverlap(ctx context.Context, doctorID int64, start, end time.Time) (*Appointment, error)

	// Compare-and-set transition. Returns nil, nil when the appointment
	// exists but its current status is not in from.
	UpdateAppointmentStatus(ctx context.Context, id int64, from []AppointmentStatus, to AppointmentStatus) (*Appointment, error)

	// CompleteConsultation writes the merged clinical fields and the move
	// to completed as a single statement. Same CAS contract as above.
	CompleteConsultation(ctx context.Context, a *Appointment, from []AppointmentStatus) (*Appointment, error)
}
