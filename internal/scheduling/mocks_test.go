package scheduling

import (
	"context"
	"sync"
	"time"
)

// memRepo is a map-backed Repository. CreateAppointment enforces the same
// overlap rule the database exclusion constraint does, so service tests see
// realistic conflict behavior even when the pre-check is bypassed.
type memRepo struct {
	mu           sync.Mutex
	patients     map[int64]*Patient
	doctors      map[int64]*Doctor
	appointments map[int64]*Appointment
	nextID       int64

	failCreate error // forced storage failure for CreateAppointment
}

func newMemRepo() *memRepo {
	return &memRepo{
		patients:     make(map[int64]*Patient),
		doctors:      make(map[int64]*Doctor),
		appointments: make(map[int64]*Appointment),
	}
}

func (m *memRepo) addPatient() *Patient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	p := &Patient{ID: m.nextID, FirstName: "Jane", LastName: "Doe", Email: "jane@example.com", Gender: GenderFemale}
	m.patients[p.ID] = p
	return p
}

func (m *memRepo) addDoctor(available bool) *Doctor {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	d := &Doctor{ID: m.nextID, FirstName: "John", LastName: "Smith", Email: "dr@example.com",
		Specialization: "Cardiology", Department: "Cardiology", IsAvailable: available}
	m.doctors[d.ID] = d
	return d
}

func (m *memRepo) CreatePatient(_ context.Context, p *Patient) (*Patient, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	created := *p
	created.ID = m.nextID
	created.CreatedAt = time.Now()
	created.UpdatedAt = created.CreatedAt
	m.patients[created.ID] = &created
	return &created, nil
}

func (m *memRepo) GetPatientByID(_ context.Context, id int64) (*Patient, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.patients[id]
	if !ok {
		return nil, notFoundf("patient not found")
	}
	cp := *p
	return &cp, nil
}

func (m *memRepo) ListPatients(_ context.Context) ([]Patient, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Patient
	for _, p := range m.patients {
		out = append(out, *p)
	}
	return out, nil
}

func (m *memRepo) FindPatientsByPhone(_ context.Context, phone string) ([]Patient, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Patient
	for _, p := range m.patients {
		if p.Phone != nil && *p.Phone == phone {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (m *memRepo) GetDoctorByID(_ context.Context, id int64) (*Doctor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.doctors[id]
	if !ok {
		return nil, notFoundf("doctor not found")
	}
	cp := *d
	return &cp, nil
}

func (m *memRepo) ListDoctors(_ context.Context) ([]Doctor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Doctor
	for _, d := range m.doctors {
		out = append(out, *d)
	}
	return out, nil
}

func (m *memRepo) CreateAppointment(_ context.Context, a *Appointment) (*Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failCreate != nil {
		return nil, m.failCreate
	}

	start, end := a.Window()
	for _, existing := range m.appointments {
		if existing.DoctorID == a.DoctorID && existing.Status != StatusCancelled && existing.Overlaps(start, end) {
			return nil, conflictErr(existing.ID)
		}
	}

	m.nextID++
	created := *a
	created.ID = m.nextID
	created.Status = StatusScheduled
	created.CreatedAt = time.Now()
	created.UpdatedAt = created.CreatedAt
	m.appointments[created.ID] = &created
	cp := created
	return &cp, nil
}

func (m *memRepo) GetAppointmentByID(_ context.Context, id int64) (*Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.appointments[id]
	if !ok {
		return nil, notFoundf("appointment not found")
	}
	cp := *a
	return &cp, nil
}

func (m *memRepo) ListAppointments(_ context.Context, f ListFilter) ([]Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Appointment
	for _, a := range m.appointments {
		if f.DoctorID != 0 && a.DoctorID != f.DoctorID {
			continue
		}
		if f.PatientID != 0 && a.PatientID != f.PatientID {
			continue
		}
		if f.Status != "" && a.Status != f.Status {
			continue
		}
		out = append(out, *a)
	}
	return out, nil
}

func (m *memRepo) ListActiveByDoctor(_ context.Context, doctorID int64) ([]Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Appointment
	for _, a := range m.appointments {
		if a.DoctorID == doctorID && a.Status != StatusCancelled {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (m *memRepo) FindActiveOverlap(_ context.Context, doctorID int64, start, end time.Time) (*Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.appointments {
		if a.DoctorID == doctorID && a.Status != StatusCancelled && a.Overlaps(start, end) {
			cp := *a
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memRepo) UpdateAppointmentStatus(_ context.Context, id int64, from []AppointmentStatus, to AppointmentStatus) (*Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.appointments[id]
	if !ok || !statusIn(a.Status, from) {
		return nil, nil
	}
	a.Status = to
	a.UpdatedAt = time.Now()
	cp := *a
	return &cp, nil
}

func (m *memRepo) CompleteConsultation(_ context.Context, merged *Appointment, from []AppointmentStatus) (*Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.appointments[merged.ID]
	if !ok || !statusIn(a.Status, from) {
		return nil, nil
	}
	updated := *merged
	updated.Status = StatusCompleted
	updated.UpdatedAt = time.Now()
	m.appointments[updated.ID] = &updated
	cp := updated
	return &cp, nil
}

func statusIn(s AppointmentStatus, set []AppointmentStatus) bool {
	for _, candidate := range set {
		if s == candidate {
			return true
		}
	}
	return false
}

// fakeLocker runs the critical section inline.
type fakeLocker struct {
	err   error // returned instead of running fn when set
	calls int
}

func (l *fakeLocker) WithDoctorLock(ctx context.Context, doctorID int64, fn func(ctx context.Context) error) error {
	l.calls++
	if l.err != nil {
		return l.err
	}
	return fn(ctx)
}

// stubSummarizer returns a canned summary.
type stubSummarizer struct {
	summary Summary
	prompts []string
}

func (s *stubSummarizer) Summarize(_ context.Context, prompt string) Summary {
	s.prompts = append(s.prompts, prompt)
	return s.summary
}
