package scheduling

import (
	"bytes"
	"encoding/json"
)

// Optional fields distinguish "omitted" (leave the stored value alone) from
// "explicitly null" (clear it). A field whose UnmarshalJSON never ran was
// omitted from the payload.

type OptString struct {
	Set   bool
	Value *string
}

func (o *OptString) UnmarshalJSON(b []byte) error {
	o.Set = true
	if isJSONNull(b) {
		o.Value = nil
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	o.Value = &s
	return nil
}

type OptInt struct {
	Set   bool
	Value *int
}

func (o *OptInt) UnmarshalJSON(b []byte) error {
	o.Set = true
	if isJSONNull(b) {
		o.Value = nil
		return nil
	}
	var n int
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	o.Value = &n
	return nil
}

type OptFloat struct {
	Set   bool
	Value *float64
}

func (o *OptFloat) UnmarshalJSON(b []byte) error {
	o.Set = true
	if isJSONNull(b) {
		o.Value = nil
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	o.Value = &f
	return nil
}

func isJSONNull(b []byte) bool {
	return bytes.Equal(bytes.TrimSpace(b), []byte("null"))
}

// ConsultationPatch holds the clinical fields a consultation may set. Omitted
// fields preserve whatever was recorded before.
type ConsultationPatch struct {
	BloodPressure OptString `json:"bloodPressure"`
	HeartRate     OptInt    `json:"heartRate"`
	Temperature   OptFloat  `json:"temperature"`
	O2Saturation  OptInt    `json:"o2Saturation"`
	Symptoms      OptString `json:"symptoms"`
	Diagnosis     OptString `json:"diagnosis"`
	Prescription  OptString `json:"prescription"`
	Notes         OptString `json:"notes"`
}

// Apply merges the patch into the appointment in memory. The caller persists
// the merged record and the status transition as one write.
func (p ConsultationPatch) Apply(a *Appointment) {
	if p.BloodPressure.Set {
		a.BloodPressure = p.BloodPressure.Value
	}
	if p.HeartRate.Set {
		a.HeartRate = p.HeartRate.Value
	}
	if p.Temperature.Set {
		a.Temperature = p.Temperature.Value
	}
	if p.O2Saturation.Set {
		a.O2Saturation = p.O2Saturation.Value
	}
	if p.Symptoms.Set {
		a.Symptoms = p.Symptoms.Value
	}
	if p.Diagnosis.Set {
		a.Diagnosis = p.Diagnosis.Value
	}
	if p.Prescription.Set {
		a.Prescription = p.Prescription.Value
	}
	if p.Notes.Set {
		a.Notes = p.Notes.Value
	}
}

// WantsSummary reports whether the patch gives the summary provider anything
// to work with while leaving the note for it to fill in.
func (p ConsultationPatch) WantsSummary() bool {
	if p.Notes.Set && p.Notes.Value != nil {
		return false
	}
	hasSymptoms := p.Symptoms.Set && p.Symptoms.Value != nil && *p.Symptoms.Value != ""
	hasDiagnosis := p.Diagnosis.Set && p.Diagnosis.Value != nil && *p.Diagnosis.Value != ""
	return hasSymptoms || hasDiagnosis
}
