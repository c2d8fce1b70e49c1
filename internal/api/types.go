package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/clinic-scheduling/internal/appointment"
	"github.com/hackgods/clinic-scheduling/internal/calendar"
	"github.com/hackgods/clinic-scheduling/internal/catalog"
)

type CreateAppointmentRequest struct {
	DoctorID string  `json:"doctor_id"`
	Date     string  `json:"date"`
	Time     string  `json:"time"`
	Reason   string  `json:"reason"`
	Notes    *string `json:"notes,omitempty"`
}

type AppointmentResponse struct {
	ID              uuid.UUID `json:"id"`
	PatientID       uuid.UUID `json:"patient_id"`
	DoctorID        string    `json:"doctor_id"`
	DoctorName      string    `json:"doctor_name"`
	DoctorSpecialty string    `json:"doctor_specialty"`
	Date            string    `json:"date"`
	Time            string    `json:"time"`
	Reason          string    `json:"reason"`
	Notes           *string   `json:"notes,omitempty"`
	Status          string    `json:"status"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

type DoctorResponse struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	Specialty       string   `json:"specialty"`
	ExperienceYears int      `json:"experience_years"`
	Rating          float64  `json:"rating"`
	ImageURL        string   `json:"image_url"`
	AvailableDays   []string `json:"available_days"`
	SlotTemplate    []string `json:"slot_template"`
	ConsultationFee float64  `json:"consultation_fee"`
	Bio             string   `json:"bio"`
}

type SlotResponse struct {
	Date      string `json:"date"`
	Time      string `json:"time"`
	Available bool   `json:"available"`
}

type SlotsResponse struct {
	DoctorID string         `json:"doctor_id"`
	From     string         `json:"from"`
	To       string         `json:"to"`
	Slots    []SlotResponse `json:"slots"`
}

type DashboardResponse struct {
	TotalAppointments    int                   `json:"total_appointments"`
	UpcomingAppointments int                   `json:"upcoming_appointments"`
	RecentAppointments   []AppointmentResponse `json:"recent_appointments"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func toAppointmentResponse(a *appointment.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:              a.ID,
		PatientID:       a.PatientID,
		DoctorID:        a.DoctorID,
		DoctorName:      a.DoctorName,
		DoctorSpecialty: a.DoctorSpecialty,
		Date:            calendar.FormatDate(a.Date),
		Time:            a.TimeOfDay,
		Reason:          a.Reason,
		Notes:           a.Notes,
		Status:          string(a.Status),
		CreatedAt:       a.CreatedAt,
		UpdatedAt:       a.UpdatedAt,
	}
}

func toAppointmentResponses(appts []appointment.Appointment) []AppointmentResponse {
	out := make([]AppointmentResponse, 0, len(appts))
	for i := range appts {
		out = append(out, toAppointmentResponse(&appts[i]))
	}
	return out
}

func toDoctorResponse(d catalog.Doctor) DoctorResponse {
	return DoctorResponse{
		ID:              d.ID,
		Name:            d.Name,
		Specialty:       d.Specialty,
		ExperienceYears: d.ExperienceYears,
		Rating:          d.Rating,
		ImageURL:        d.ImageURL,
		AvailableDays:   d.DayNames(),
		SlotTemplate:    d.Template(),
		ConsultationFee: d.ConsultationFee,
		Bio:             d.Bio,
	}
}
