package scheduling

import (
	"time"
)

type Gender string

const (
	GenderMale   Gender = "Male"
	GenderFemale Gender = "Female"
	GenderOther  Gender = "Other"
)

func ValidGender(g Gender) bool {
	switch g {
	case GenderMale, GenderFemale, GenderOther:
		return true
	}
	return false
}

type AppointmentType string

const (
	TypeRegular   AppointmentType = "regular"
	TypeFollowup  AppointmentType = "followup"
	TypeEmergency AppointmentType = "emergency"
)

func ValidAppointmentType(t AppointmentType) bool {
	switch t {
	case TypeRegular, TypeFollowup, TypeEmergency:
		return true
	}
	return false
}

type AppointmentStatus string

const (
	StatusScheduled  AppointmentStatus = "scheduled"
	StatusInProgress AppointmentStatus = "in_progress"
	StatusCompleted  AppointmentStatus = "completed"
	StatusCancelled  AppointmentStatus = "cancelled"
)

// transitions is the full status graph. completed and cancelled are terminal.
var transitions = map[AppointmentStatus][]AppointmentStatus{
	StatusScheduled:  {StatusInProgress, StatusCompleted, StatusCancelled},
	StatusInProgress: {StatusCompleted, StatusCancelled},
	StatusCompleted:  {},
	StatusCancelled:  {},
}

func (s AppointmentStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

func (s AppointmentStatus) CanTransitionTo(to AppointmentStatus) bool {
	for _, next := range transitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

func ValidAppointmentStatus(s AppointmentStatus) bool {
	_, ok := transitions[s]
	return ok
}

type Patient struct {
	ID          int64
	FirstName   string
	LastName    string
	Email       string
	Phone       *string
	DateOfBirth *time.Time
	Gender      Gender
	Address     *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Doctor struct {
	ID              int64
	FirstName       string
	LastName        string
	Email           string
	Phone           *string
	Specialization  string
	Qualification   *string
	ExperienceYears int
	Designation     *string
	Department      string
	ConsultationFee float64
	IsAvailable     bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type Appointment struct {
	ID              int64
	PatientID       int64
	DoctorID        int64
	StartTime       time.Time
	DurationMinutes int
	Type            AppointmentType
	Status          AppointmentStatus

	// Clinical capture, absent until a consultation is recorded.
	BloodPressure *string
	HeartRate     *int
	Temperature   *float64
	O2Saturation  *int
	Symptoms      *string
	Diagnosis     *string
	Prescription  *string
	Notes         *string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Window returns the half-open booking interval [start, end) the appointment
// occupies on its doctor's calendar.
func (a *Appointment) Window() (time.Time, time.Time) {
	return a.StartTime, a.StartTime.Add(time.Duration(a.DurationMinutes) * time.Minute)
}

// Overlaps reports whether the appointment's window intersects
// [start, end). Touching endpoints do not overlap.
func (a *Appointment) Overlaps(start, end time.Time) bool {
	aStart, aEnd := a.Window()
	return start.Before(aEnd) && aStart.Before(end)
}
