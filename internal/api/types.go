package api

import (
	"time"

	"github.com/carebridge/hospital-scheduling/internal/scheduling"
)

type BookAppointmentRequest struct {
	PatientID       int64  `json:"patient_id"`
	DoctorID        int64  `json:"doctor_id"`
	Date            string `json:"date"` // 2006-01-02
	Time            string `json:"time"` // 15:04
	DurationMinutes int    `json:"duration_minutes"`
	Type            string `json:"type"`
}

type RegisterPatientRequest struct {
	FirstName   string  `json:"first_name"`
	LastName    string  `json:"last_name"`
	Email       string  `json:"email"`
	Phone       *string `json:"phone"`
	DateOfBirth *string `json:"date_of_birth"` // 2006-01-02
	Gender      string  `json:"gender"`
	Address     *string `json:"address"`
}

type AppointmentResponse struct {
	ID              int64    `json:"id"`
	PatientID       int64    `json:"patient_id"`
	DoctorID        int64    `json:"doctor_id"`
	StartTime       string   `json:"start_time"`
	DurationMinutes int      `json:"duration_minutes"`
	Type            string   `json:"type"`
	Status          string   `json:"status"`
	BloodPressure   *string  `json:"blood_pressure,omitempty"`
	HeartRate       *int     `json:"heart_rate,omitempty"`
	Temperature     *float64 `json:"temperature,omitempty"`
	O2Saturation    *int     `json:"o2_saturation,omitempty"`
	Symptoms        *string  `json:"symptoms,omitempty"`
	Diagnosis       *string  `json:"diagnosis,omitempty"`
	Prescription    *string  `json:"prescription,omitempty"`
	Notes           *string  `json:"notes,omitempty"`
	CreatedAt       string   `json:"created_at"`
	UpdatedAt       string   `json:"updated_at"`
}

type ConsultationResponse struct {
	AppointmentResponse
	SummaryUsedFallback bool `json:"summary_used_fallback"`
}

type PatientResponse struct {
	ID          int64   `json:"id"`
	FirstName   string  `json:"first_name"`
	LastName    string  `json:"last_name"`
	Email       string  `json:"email"`
	Phone       *string `json:"phone,omitempty"`
	DateOfBirth *string `json:"date_of_birth,omitempty"`
	Gender      string  `json:"gender"`
	Address     *string `json:"address,omitempty"`
	CreatedAt   string  `json:"created_at"`
}

type DoctorResponse struct {
	ID              int64   `json:"id"`
	FirstName       string  `json:"first_name"`
	LastName        string  `json:"last_name"`
	Email           string  `json:"email"`
	Phone           *string `json:"phone,omitempty"`
	Specialization  string  `json:"specialization"`
	Qualification   *string `json:"qualification,omitempty"`
	ExperienceYears int     `json:"experience_years"`
	Designation     *string `json:"designation,omitempty"`
	Department      string  `json:"department"`
	ConsultationFee float64 `json:"consultation_fee"`
	IsAvailable     bool    `json:"is_available"`
}

type ErrorResponse struct {
	Error                    string `json:"error"`
	Details                  string `json:"details,omitempty"`
	ConflictingAppointmentID int64  `json:"conflicting_appointment_id,omitempty"`
}

func toAppointmentResponse(a *scheduling.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:              a.ID,
		PatientID:       a.PatientID,
		DoctorID:        a.DoctorID,
		StartTime:       a.StartTime.UTC().Format(time.RFC3339),
		DurationMinutes: a.DurationMinutes,
		Type:            string(a.Type),
		Status:          string(a.Status),
		BloodPressure:   a.BloodPressure,
		HeartRate:       a.HeartRate,
		Temperature:     a.Temperature,
		O2Saturation:    a.O2Saturation,
		Symptoms:        a.Symptoms,
		Diagnosis:       a.Diagnosis,
		Prescription:    a.Prescription,
		Notes:           a.Notes,
		CreatedAt:       a.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:       a.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func toPatientResponse(p *scheduling.Patient) PatientResponse {
	resp := PatientResponse{
		ID:        p.ID,
		FirstName: p.FirstName,
		LastName:  p.LastName,
		Email:     p.Email,
		Phone:     p.Phone,
		Gender:    string(p.Gender),
		Address:   p.Address,
		CreatedAt: p.CreatedAt.UTC().Format(time.RFC3339),
	}
	if p.DateOfBirth != nil {
		dob := p.DateOfBirth.Format("2006-01-02")
		resp.DateOfBirth = &dob
	}
	return resp
}

func toDoctorResponse(d *scheduling.Doctor) DoctorResponse {
	return DoctorResponse{
		ID:              d.ID,
		FirstName:       d.FirstName,
		LastName:        d.LastName,
		Email:           d.Email,
		Phone:           d.Phone,
		Specialization:  d.Specialization,
		Qualification:   d.Qualification,
		ExperienceYears: d.ExperienceYears,
		Designation:     d.Designation,
		Department:      d.Department,
		ConsultationFee: d.ConsultationFee,
		IsAvailable:     d.IsAvailable,
	}
}
