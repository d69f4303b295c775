package scheduling

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	redisclient "github.com/carebridge/hospital-scheduling/internal/redis"
)

func newTestService(repo *memRepo) (*Service, *stubSummarizer) {
	summarizer := &stubSummarizer{summary: Summary{Text: "drafted note"}}
	svc := NewService(repo, &fakeLocker{}, summarizer, zerolog.Nop())
	return svc, summarizer
}

func bookAt(t *testing.T, svc *Service, patientID, doctorID int64, day string, clock string, minutes int) (*Appointment, error) {
	t.Helper()
	start, err := time.Parse("2006-01-02 15:04", day+" "+clock)
	require.NoError(t, err)
	return svc.Book(context.Background(), BookRequest{
		PatientID:       patientID,
		DoctorID:        doctorID,
		StartTime:       start,
		DurationMinutes: minutes,
		Type:            TypeRegular,
	})
}

func TestBookCreatesScheduledAppointment(t *testing.T) {
	repo := newMemRepo()
	patient := repo.addPatient()
	doctor := repo.addDoctor(true)
	svc, _ := newTestService(repo)

	appt, err := bookAt(t, svc, patient.ID, doctor.ID, "2024-08-05", "10:00", 30)
	require.NoError(t, err)

	assert.NotZero(t, appt.ID)
	assert.Equal(t, StatusScheduled, appt.Status)
	assert.Equal(t, patient.ID, appt.PatientID)
	assert.Equal(t, doctor.ID, appt.DoctorID)
	assert.Equal(t, 30, appt.DurationMinutes)
}

func TestBookRejectsNonPositiveDuration(t *testing.T) {
	repo := newMemRepo()
	patient := repo.addPatient()
	doctor := repo.addDoctor(true)
	svc, _ := newTestService(repo)

	for _, minutes := range []int{0, -15} {
		_, err := bookAt(t, svc, patient.ID, doctor.ID, "2024-08-05", "10:00", minutes)
		require.Error(t, err)
		assert.Equal(t, KindValidation, KindOf(err))
	}
}

func TestBookRejectsUnknownReferences(t *testing.T) {
	repo := newMemRepo()
	patient := repo.addPatient()
	doctor := repo.addDoctor(true)
	svc, _ := newTestService(repo)

	_, err := bookAt(t, svc, 9999, doctor.ID, "2024-08-05", "10:00", 30)
	assert.Equal(t, KindNotFound, KindOf(err))

	_, err = bookAt(t, svc, patient.ID, 9999, "2024-08-05", "10:00", 30)
	assert.Equal(t, KindNotFound, KindOf(err))
}

func TestBookRejectsUnavailableDoctor(t *testing.T) {
	repo := newMemRepo()
	patient := repo.addPatient()
	doctor := repo.addDoctor(false)
	svc, _ := newTestService(repo)

	_, err := bookAt(t, svc, patient.ID, doctor.ID, "2024-08-05", "10:00", 30)
	assert.Equal(t, KindValidation, KindOf(err))
}

func TestBookOverlapScenario(t *testing.T) {
	repo := newMemRepo()
	patient := repo.addPatient()
	doctor := repo.addDoctor(true)
	svc, _ := newTestService(repo)

	first, err := bookAt(t, svc, patient.ID, doctor.ID, "2024-08-05", "10:00", 30)
	require.NoError(t, err)

	// 10:15-10:45 overlaps 10:00-10:30
	_, err = bookAt(t, svc, patient.ID, doctor.ID, "2024-08-05", "10:15", 30)
	require.Error(t, err)
	assert.Equal(t, KindConflict, KindOf(err))
	conflictID, ok := ConflictIDOf(err)
	assert.True(t, ok)
	assert.Equal(t, first.ID, conflictID)

	// back-to-back at 10:30 is fine, the window is half-open
	_, err = bookAt(t, svc, patient.ID, doctor.ID, "2024-08-05", "10:30", 30)
	assert.NoError(t, err)
}

func TestBookCancelledWindowIsReusable(t *testing.T) {
	repo := newMemRepo()
	patient := repo.addPatient()
	doctor := repo.addDoctor(true)
	svc, _ := newTestService(repo)

	first, err := bookAt(t, svc, patient.ID, doctor.ID, "2024-08-05", "09:00", 60)
	require.NoError(t, err)
	_, err = svc.Cancel(context.Background(), first.ID)
	require.NoError(t, err)

	_, err = bookAt(t, svc, patient.ID, doctor.ID, "2024-08-05", "09:00", 60)
	assert.NoError(t, err)
}

func TestBookLockContentionSurfacesAsConflict(t *testing.T) {
	repo := newMemRepo()
	patient := repo.addPatient()
	doctor := repo.addDoctor(true)
	svc := NewService(repo, &fakeLocker{err: redisclient.ErrLockNotAcquired}, nil, zerolog.Nop())

	_, err := bookAt(t, svc, patient.ID, doctor.ID, "2024-08-05", "10:00", 30)
	require.Error(t, err)
	assert.Equal(t, KindConflict, KindOf(err))
}

func TestBookConstraintViolationWinsOverPreCheck(t *testing.T) {
	// Even if the pre-check passed, a racing insert rejected by the
	// storage constraint must come back as a conflict.
	repo := newMemRepo()
	patient := repo.addPatient()
	doctor := repo.addDoctor(true)
	repo.failCreate = conflictErr(42)
	svc, _ := newTestService(repo)

	_, err := bookAt(t, svc, patient.ID, doctor.ID, "2024-08-05", "10:00", 30)
	require.Error(t, err)
	assert.Equal(t, KindConflict, KindOf(err))
	id, _ := ConflictIDOf(err)
	assert.Equal(t, int64(42), id)
}

func TestStartTransition(t *testing.T) {
	repo := newMemRepo()
	patient := repo.addPatient()
	doctor := repo.addDoctor(true)
	svc, _ := newTestService(repo)

	appt, err := bookAt(t, svc, patient.ID, doctor.ID, "2024-08-05", "10:00", 30)
	require.NoError(t, err)

	started, err := svc.Start(context.Background(), appt.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusInProgress, started.Status)

	// starting twice is not legal
	_, err = svc.Start(context.Background(), appt.ID)
	assert.Equal(t, KindInvalidTransition, KindOf(err))

	_, err = svc.Start(context.Background(), 9999)
	assert.Equal(t, KindNotFound, KindOf(err))
}

func TestRecordConsultationCompletesAndMerges(t *testing.T) {
	repo := newMemRepo()
	patient := repo.addPatient()
	doctor := repo.addDoctor(true)
	svc, _ := newTestService(repo)

	appt, err := bookAt(t, svc, patient.ID, doctor.ID, "2024-08-05", "10:00", 30)
	require.NoError(t, err)

	symptoms := "chest pain"
	diagnosis := "angina"
	result, err := svc.RecordConsultation(context.Background(), appt.ID, ConsultationPatch{
		Symptoms:  OptString{Set: true, Value: &symptoms},
		Diagnosis: OptString{Set: true, Value: &diagnosis},
	})
	require.NoError(t, err)

	assert.Equal(t, StatusCompleted, result.Appointment.Status)
	require.NotNil(t, result.Appointment.Symptoms)
	assert.Equal(t, "chest pain", *result.Appointment.Symptoms)
	require.NotNil(t, result.Appointment.Notes)
	assert.Equal(t, "drafted note", *result.Appointment.Notes)
	assert.False(t, result.UsedFallback)

	got, err := svc.Get(context.Background(), appt.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, got.Status)
}

func TestRecordConsultationFromInProgress(t *testing.T) {
	repo := newMemRepo()
	patient := repo.addPatient()
	doctor := repo.addDoctor(true)
	svc, _ := newTestService(repo)

	appt, err := bookAt(t, svc, patient.ID, doctor.ID, "2024-08-05", "10:00", 30)
	require.NoError(t, err)
	_, err = svc.Start(context.Background(), appt.ID)
	require.NoError(t, err)

	result, err := svc.RecordConsultation(context.Background(), appt.ID, ConsultationPatch{})
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, result.Appointment.Status)
}

func TestRecordConsultationRejectsTerminalStates(t *testing.T) {
	repo := newMemRepo()
	patient := repo.addPatient()
	doctor := repo.addDoctor(true)
	svc, _ := newTestService(repo)

	completed, err := bookAt(t, svc, patient.ID, doctor.ID, "2024-08-05", "10:00", 30)
	require.NoError(t, err)
	_, err = svc.RecordConsultation(context.Background(), completed.ID, ConsultationPatch{})
	require.NoError(t, err)

	cancelled, err := bookAt(t, svc, patient.ID, doctor.ID, "2024-08-05", "11:00", 30)
	require.NoError(t, err)
	_, err = svc.Cancel(context.Background(), cancelled.ID)
	require.NoError(t, err)

	for _, id := range []int64{completed.ID, cancelled.ID} {
		before, err := svc.Get(context.Background(), id)
		require.NoError(t, err)

		_, err = svc.RecordConsultation(context.Background(), id, ConsultationPatch{})
		assert.Equal(t, KindInvalidTransition, KindOf(err))

		// stored record unchanged on rejection
		after, err := svc.Get(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, before, after)
	}

	_, err = svc.RecordConsultation(context.Background(), 9999, ConsultationPatch{})
	assert.Equal(t, KindNotFound, KindOf(err))
}

func TestRecordConsultationPreservesOmittedFields(t *testing.T) {
	repo := newMemRepo()
	patient := repo.addPatient()
	doctor := repo.addDoctor(true)
	svc, _ := newTestService(repo)

	appt, err := bookAt(t, svc, patient.ID, doctor.ID, "2024-08-05", "10:00", 30)
	require.NoError(t, err)

	// vitals recorded out-of-band before the consultation is finalized
	bp := "120/80"
	hr := 72
	repo.mu.Lock()
	repo.appointments[appt.ID].BloodPressure = &bp
	repo.appointments[appt.ID].HeartRate = &hr
	repo.mu.Unlock()

	diagnosis := "stable"
	result, err := svc.RecordConsultation(context.Background(), appt.ID, ConsultationPatch{
		Diagnosis: OptString{Set: true, Value: &diagnosis},
		HeartRate: OptInt{Set: true, Value: nil}, // explicit clear
	})
	require.NoError(t, err)

	require.NotNil(t, result.Appointment.BloodPressure) // omitted, preserved
	assert.Equal(t, "120/80", *result.Appointment.BloodPressure)
	assert.Nil(t, result.Appointment.HeartRate) // explicitly cleared
}

func TestRecordConsultationFallbackSummary(t *testing.T) {
	repo := newMemRepo()
	patient := repo.addPatient()
	doctor := repo.addDoctor(true)
	summarizer := &stubSummarizer{summary: Summary{Text: FallbackSummary, UsedFallback: true}}
	svc := NewService(repo, &fakeLocker{}, summarizer, zerolog.Nop())

	appt, err := bookAt(t, svc, patient.ID, doctor.ID, "2024-08-05", "10:00", 30)
	require.NoError(t, err)

	symptoms := "fever"
	result, err := svc.RecordConsultation(context.Background(), appt.ID, ConsultationPatch{
		Symptoms: OptString{Set: true, Value: &symptoms},
	})
	require.NoError(t, err)

	assert.Equal(t, StatusCompleted, result.Appointment.Status)
	assert.True(t, result.UsedFallback)
	require.NotNil(t, result.Appointment.Notes)
	assert.Equal(t, FallbackSummary, *result.Appointment.Notes)
}

func TestRecordConsultationCallerNotesWinOverSummary(t *testing.T) {
	repo := newMemRepo()
	patient := repo.addPatient()
	doctor := repo.addDoctor(true)
	svc, summarizer := newTestService(repo)

	appt, err := bookAt(t, svc, patient.ID, doctor.ID, "2024-08-05", "10:00", 30)
	require.NoError(t, err)

	symptoms := "fever"
	notes := "clinician-written note"
	result, err := svc.RecordConsultation(context.Background(), appt.ID, ConsultationPatch{
		Symptoms: OptString{Set: true, Value: &symptoms},
		Notes:    OptString{Set: true, Value: &notes},
	})
	require.NoError(t, err)

	assert.Empty(t, summarizer.prompts)
	assert.Equal(t, "clinician-written note", *result.Appointment.Notes)
}

func TestCancelTwice(t *testing.T) {
	repo := newMemRepo()
	patient := repo.addPatient()
	doctor := repo.addDoctor(true)
	svc, _ := newTestService(repo)

	appt, err := bookAt(t, svc, patient.ID, doctor.ID, "2024-08-05", "10:00", 30)
	require.NoError(t, err)

	cancelled, err := svc.Cancel(context.Background(), appt.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, cancelled.Status)

	_, err = svc.Cancel(context.Background(), appt.ID)
	assert.Equal(t, KindInvalidTransition, KindOf(err))
}

func TestCancelInProgress(t *testing.T) {
	repo := newMemRepo()
	patient := repo.addPatient()
	doctor := repo.addDoctor(true)
	svc, _ := newTestService(repo)

	appt, err := bookAt(t, svc, patient.ID, doctor.ID, "2024-08-05", "10:00", 30)
	require.NoError(t, err)
	_, err = svc.Start(context.Background(), appt.ID)
	require.NoError(t, err)

	cancelled, err := svc.Cancel(context.Background(), appt.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, cancelled.Status)
}

func TestGetUnknownAppointment(t *testing.T) {
	repo := newMemRepo()
	svc, _ := newTestService(repo)

	_, err := svc.Get(context.Background(), 12345)
	assert.Equal(t, KindNotFound, KindOf(err))
}

func TestListRejectsUnknownStatusFilter(t *testing.T) {
	repo := newMemRepo()
	svc, _ := newTestService(repo)

	_, err := svc.List(context.Background(), ListFilter{Status: "nonsense"})
	assert.Equal(t, KindValidation, KindOf(err))
}

func TestAcceptedBookingsNeverOverlap(t *testing.T) {
	repo := newMemRepo()
	patient := repo.addPatient()
	doctor := repo.addDoctor(true)
	svc, _ := newTestService(repo)

	// Attempt a dense grid of bookings; whatever was accepted must be
	// pairwise disjoint per doctor.
	for hour := 9; hour < 12; hour++ {
		for _, minute := range []int{0, 10, 20, 30, 40, 50} {
			start := time.Date(2024, 8, 5, hour, minute, 0, 0, time.UTC)
			_, _ = svc.Book(context.Background(), BookRequest{
				PatientID:       patient.ID,
				DoctorID:        doctor.ID,
				StartTime:       start,
				DurationMinutes: 15,
				Type:            TypeRegular,
			})
		}
	}

	appts, err := svc.List(context.Background(), ListFilter{DoctorID: doctor.ID})
	require.NoError(t, err)
	require.NotEmpty(t, appts)

	for i := range appts {
		for j := i + 1; j < len(appts); j++ {
			if appts[i].Status == StatusCancelled || appts[j].Status == StatusCancelled {
				continue
			}
			start, end := appts[j].Window()
			assert.False(t, appts[i].Overlaps(start, end),
				"appointments %d and %d overlap", appts[i].ID, appts[j].ID)
		}
	}
}

func TestRegisterPatientValidation(t *testing.T) {
	repo := newMemRepo()
	svc, _ := newTestService(repo)

	cases := []struct {
		name    string
		patient Patient
	}{
		{"missing first name", Patient{LastName: "Doe", Email: "a@b.c", Gender: GenderOther}},
		{"missing last name", Patient{FirstName: "Jane", Email: "a@b.c", Gender: GenderOther}},
		{"bad email", Patient{FirstName: "Jane", LastName: "Doe", Email: "nope", Gender: GenderOther}},
		{"bad gender", Patient{FirstName: "Jane", LastName: "Doe", Email: "a@b.c", Gender: "Unknown"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.RegisterPatient(context.Background(), &tc.patient)
			assert.Equal(t, KindValidation, KindOf(err))
		})
	}

	created, err := svc.RegisterPatient(context.Background(), &Patient{
		FirstName: "Jane", LastName: "Doe", Email: "jane@example.com", Gender: GenderFemale,
	})
	require.NoError(t, err)
	assert.NotZero(t, created.ID)
}

func TestFindPatientsByPhone(t *testing.T) {
	repo := newMemRepo()
	svc, _ := newTestService(repo)

	phone := "+1234567891"
	_, err := svc.RegisterPatient(context.Background(), &Patient{
		FirstName: "Jane", LastName: "Doe", Email: "jane@example.com", Gender: GenderFemale, Phone: &phone,
	})
	require.NoError(t, err)

	found, err := svc.FindPatientsByPhone(context.Background(), phone)
	require.NoError(t, err)
	assert.Len(t, found, 1)

	_, err = svc.FindPatientsByPhone(context.Background(), "+0000000000")
	assert.Equal(t, KindNotFound, KindOf(err))

	_, err = svc.FindPatientsByPhone(context.Background(), "")
	assert.Equal(t, KindValidation, KindOf(err))
}
