package scheduling

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	redisclient "github.com/carebridge/hospital-scheduling/internal/redis"
)

var bookableStatuses = []AppointmentStatus{StatusScheduled, StatusInProgress}

// Service drives appointments through their lifecycle: booking with conflict
// checks, the consultation states, and cancellation. It performs no internal
// retries; precondition failures are reported synchronously.
type Service struct {
	repo       Repository
	locker     redisclient.Locker
	checker    *ConflictChecker
	summarizer SummaryProvider
	log        zerolog.Logger
}

func NewService(repo Repository, locker redisclient.Locker, summarizer SummaryProvider, log zerolog.Logger) *Service {
	return &Service{
		repo:       repo,
		locker:     locker,
		checker:    NewConflictChecker(repo),
		summarizer: summarizer,
		log:        log,
	}
}

// BookRequest carries the validated inputs for a new booking.
type BookRequest struct {
	PatientID       int64
	DoctorID        int64
	StartTime       time.Time
	DurationMinutes int
	Type            AppointmentType
}

// Book reserves a window on the doctor's calendar and creates the
// appointment in scheduled state. The per-doctor lock narrows the
// check-then-insert race; the storage overlap constraint closes it.
func (s *Service) Book(ctx context.Context, req BookRequest) (*Appointment, error) {
	if req.DurationMinutes <= 0 {
		return nil, validationf("duration must be positive, got %d", req.DurationMinutes)
	}
	if !ValidAppointmentType(req.Type) {
		return nil, validationf("unknown appointment type %q", req.Type)
	}
	if req.StartTime.IsZero() {
		return nil, validationf("start time is required")
	}

	if _, err := s.repo.GetPatientByID(ctx, req.PatientID); err != nil {
		return nil, asDomain(err, "load patient")
	}
	doctor, err := s.repo.GetDoctorByID(ctx, req.DoctorID)
	if err != nil {
		return nil, asDomain(err, "load doctor")
	}
	if !doctor.IsAvailable {
		return nil, validationf("doctor %d is not accepting appointments", doctor.ID)
	}

	var created *Appointment

	err = s.locker.WithDoctorLock(ctx, req.DoctorID, func(lockCtx context.Context) error {
		check, err := s.checker.CheckAvailability(lockCtx, req.DoctorID, req.StartTime, req.DurationMinutes)
		if err != nil {
			return fmt.Errorf("availability check: %w", err)
		}
		if !check.Available {
			return conflictErr(check.ConflictingID)
		}

		appt := &Appointment{
			PatientID:       req.PatientID,
			DoctorID:        req.DoctorID,
			StartTime:       req.StartTime.UTC(),
			DurationMinutes: req.DurationMinutes,
			Type:            req.Type,
			Status:          StatusScheduled,
		}

		created, err = s.repo.CreateAppointment(lockCtx, appt)
		if err != nil {
			return err
		}
		return nil
	})

	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, &Error{Kind: KindConflict, Msg: "doctor is currently being booked, please retry"}
		}
		return nil, asDomain(err, "book appointment")
	}

	s.log.Info().
		Int64("appointment_id", created.ID).
		Int64("doctor_id", created.DoctorID).
		Time("start", created.StartTime).
		Msg("appointment booked")

	return created, nil
}

// Start moves a scheduled appointment to in_progress.
func (s *Service) Start(ctx context.Context, id int64) (*Appointment, error) {
	appt, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, asDomain(err, "load appointment")
	}

	updated, err := s.repo.UpdateAppointmentStatus(ctx, id, []AppointmentStatus{StatusScheduled}, StatusInProgress)
	if err != nil {
		return nil, asDomain(err, "start appointment")
	}
	if updated == nil {
		return nil, invalidTransitionf("cannot start appointment in %s state", appt.Status)
	}
	return updated, nil
}

// ConsultationResult pairs the finalized appointment with whether the draft
// note came from the fallback rather than the summary provider.
type ConsultationResult struct {
	Appointment  *Appointment
	UsedFallback bool
}

// RecordConsultation merges the supplied clinical fields and finalizes the
// visit. Fields omitted from the patch keep their previously recorded
// values; the merge and the move to completed commit as one write.
func (s *Service) RecordConsultation(ctx context.Context, id int64, patch ConsultationPatch) (*ConsultationResult, error) {
	appt, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, asDomain(err, "load appointment")
	}
	if appt.Status.Terminal() {
		return nil, invalidTransitionf("cannot record consultation on %s appointment", appt.Status)
	}

	merged := *appt
	patch.Apply(&merged)

	var usedFallback bool
	if s.summarizer != nil && patch.WantsSummary() {
		summary := s.summarizer.Summarize(ctx, consultationPrompt(&merged))
		merged.Notes = &summary.Text
		usedFallback = summary.UsedFallback
	}

	updated, err := s.repo.CompleteConsultation(ctx, &merged, bookableStatuses)
	if err != nil {
		return nil, asDomain(err, "complete consultation")
	}
	if updated == nil {
		// Lost a race to a terminal transition between the read and the
		// compare-and-set write.
		return nil, invalidTransitionf("appointment is no longer open for consultation")
	}

	s.log.Info().
		Int64("appointment_id", updated.ID).
		Bool("summary_fallback", usedFallback).
		Msg("consultation recorded")

	return &ConsultationResult{Appointment: updated, UsedFallback: usedFallback}, nil
}

// Cancel moves a scheduled or in-progress appointment to cancelled.
func (s *Service) Cancel(ctx context.Context, id int64) (*Appointment, error) {
	appt, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, asDomain(err, "load appointment")
	}

	updated, err := s.repo.UpdateAppointmentStatus(ctx, id, bookableStatuses, StatusCancelled)
	if err != nil {
		return nil, asDomain(err, "cancel appointment")
	}
	if updated == nil {
		return nil, invalidTransitionf("cannot cancel appointment in %s state", appt.Status)
	}
	return updated, nil
}

// Get retrieves an appointment by id.
func (s *Service) Get(ctx context.Context, id int64) (*Appointment, error) {
	appt, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, asDomain(err, "get appointment")
	}
	return appt, nil
}

// List retrieves appointments matching the filter, most recent first.
func (s *Service) List(ctx context.Context, f ListFilter) ([]Appointment, error) {
	if f.Status != "" && !ValidAppointmentStatus(f.Status) {
		return nil, validationf("unknown status filter %q", f.Status)
	}
	appts, err := s.repo.ListAppointments(ctx, f)
	if err != nil {
		return nil, asDomain(err, "list appointments")
	}
	return appts, nil
}

// RegisterPatient creates a patient record for the scheduler to reference.
func (s *Service) RegisterPatient(ctx context.Context, p *Patient) (*Patient, error) {
	if strings.TrimSpace(p.FirstName) == "" {
		return nil, validationf("first name is required")
	}
	if strings.TrimSpace(p.LastName) == "" {
		return nil, validationf("last name is required")
	}
	if !strings.Contains(p.Email, "@") {
		return nil, validationf("invalid email %q", p.Email)
	}
	if !ValidGender(p.Gender) {
		return nil, validationf("gender must be one of Male, Female, Other")
	}

	created, err := s.repo.CreatePatient(ctx, p)
	if err != nil {
		return nil, asDomain(err, "create patient")
	}
	return created, nil
}

func (s *Service) ListPatients(ctx context.Context) ([]Patient, error) {
	patients, err := s.repo.ListPatients(ctx)
	if err != nil {
		return nil, asDomain(err, "list patients")
	}
	return patients, nil
}

func (s *Service) FindPatientsByPhone(ctx context.Context, phone string) ([]Patient, error) {
	if phone == "" {
		return nil, validationf("phone is required")
	}
	patients, err := s.repo.FindPatientsByPhone(ctx, phone)
	if err != nil {
		return nil, asDomain(err, "find patients by phone")
	}
	if len(patients) == 0 {
		return nil, notFoundf("no patients found for phone %s", phone)
	}
	return patients, nil
}

func (s *Service) GetDoctor(ctx context.Context, id int64) (*Doctor, error) {
	doctor, err := s.repo.GetDoctorByID(ctx, id)
	if err != nil {
		return nil, asDomain(err, "get doctor")
	}
	return doctor, nil
}

func (s *Service) ListDoctors(ctx context.Context) ([]Doctor, error) {
	doctors, err := s.repo.ListDoctors(ctx)
	if err != nil {
		return nil, asDomain(err, "list doctors")
	}
	return doctors, nil
}

func consultationPrompt(a *Appointment) string {
	var b strings.Builder
	b.WriteString("Write a brief clinical note for a completed consultation.")
	if a.Symptoms != nil && *a.Symptoms != "" {
		fmt.Fprintf(&b, " Presenting symptoms: %s.", *a.Symptoms)
	}
	if a.Diagnosis != nil && *a.Diagnosis != "" {
		fmt.Fprintf(&b, " Diagnosis: %s.", *a.Diagnosis)
	}
	return b.String()
}

// asDomain passes structured domain errors through untouched and wraps
// everything else as a storage failure.
func asDomain(err error, msg string) error {
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return storageErr(msg, err)
}
