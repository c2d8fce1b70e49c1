package appointment

import (
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/clinic-scheduling/internal/availability"
)

type AppointmentStatus string

const (
	StatusScheduled AppointmentStatus = "scheduled"
	StatusCompleted AppointmentStatus = "completed"
	StatusCancelled AppointmentStatus = "cancelled"
)

// ParseStatus accepts only the three known statuses.
func ParseStatus(s string) (AppointmentStatus, bool) {
	switch st := AppointmentStatus(s); st {
	case StatusScheduled, StatusCompleted, StatusCancelled:
		return st, true
	}
	return "", false
}

// Terminal reports whether no further transition is possible.
func (s AppointmentStatus) Terminal() bool {
	switch s {
	case StatusScheduled:
		return false
	case StatusCompleted, StatusCancelled:
		return true
	}
	return true
}

// canTransition is the whole lifecycle: scheduled may become completed or
// cancelled, nothing else moves.
func canTransition(from, to AppointmentStatus) bool {
	switch from {
	case StatusScheduled:
		return to == StatusCompleted || to == StatusCancelled
	case StatusCompleted, StatusCancelled:
		return false
	}
	return false
}

type Appointment struct {
	ID              uuid.UUID
	PatientID       uuid.UUID
	DoctorID        string
	DoctorName      string
	DoctorSpecialty string
	Date            time.Time
	TimeOfDay       string
	Reason          string
	Notes           *string
	Status          AppointmentStatus
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Key is the slot this appointment claims.
func (a Appointment) Key() availability.Key {
	return availability.NewKey(a.DoctorID, a.Date, a.TimeOfDay)
}

type EventLog struct {
	ID            int64
	EventType     string
	AppointmentID *uuid.UUID
	Payload       []byte
	CreatedAt     time.Time
}

// ListFilter narrows a patient listing. Zero value lists everything.
type ListFilter struct {
	Status AppointmentStatus
}

// Summary is the patient dashboard.
type Summary struct {
	Total    int
	Upcoming int
	Nearest  []Appointment
}
