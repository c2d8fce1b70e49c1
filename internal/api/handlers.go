package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/hackgods/clinic-scheduling/internal/appointment"
	"github.com/hackgods/clinic-scheduling/internal/auth"
	"github.com/hackgods/clinic-scheduling/internal/calendar"
)

func createAppointmentHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		patientID, ok := auth.PatientID(r.Context())
		if !ok {
			writeAuthError(w, auth.ErrMissingToken)
			return
		}

		var req CreateAppointmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		date, err := calendar.ParseDate(req.Date)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_input", err.Error())
			return
		}

		appt, err := svc.Book(r.Context(), appointment.BookingRequest{
			PatientID: patientID,
			DoctorID:  req.DoctorID,
			Date:      date,
			TimeOfDay: req.Time,
			Reason:    req.Reason,
			Notes:     req.Notes,
		})
		if err != nil {
			writeServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toAppointmentResponse(appt))
	}
}

func listAppointmentsHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		patientID, ok := auth.PatientID(r.Context())
		if !ok {
			writeAuthError(w, auth.ErrMissingToken)
			return
		}

		var filter appointment.ListFilter
		if raw := r.URL.Query().Get("status"); raw != "" {
			status, ok := appointment.ParseStatus(raw)
			if !ok {
				writeError(w, http.StatusBadRequest, "invalid_input", "status must be scheduled, completed or cancelled")
				return
			}
			filter.Status = status
		}

		appts, err := svc.ListForPatient(r.Context(), patientID, filter)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponses(appts))
	}
}

func getAppointmentHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		patientID, ok := auth.PatientID(r.Context())
		if !ok {
			writeAuthError(w, auth.ErrMissingToken)
			return
		}

		id, ok := appointmentID(w, r)
		if !ok {
			return
		}

		appt, err := svc.GetForPatient(r.Context(), id, patientID)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func cancelAppointmentHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		patientID, ok := auth.PatientID(r.Context())
		if !ok {
			writeAuthError(w, auth.ErrMissingToken)
			return
		}

		id, ok := appointmentID(w, r)
		if !ok {
			return
		}

		appt, err := svc.Cancel(r.Context(), id, patientID)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func completeAppointmentHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := appointmentID(w, r)
		if !ok {
			return
		}

		appt, err := svc.Complete(r.Context(), id)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func dashboardHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		patientID, ok := auth.PatientID(r.Context())
		if !ok {
			writeAuthError(w, auth.ErrMissingToken)
			return
		}

		summary, err := svc.DashboardSummary(r.Context(), patientID)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, DashboardResponse{
			TotalAppointments:    summary.Total,
			UpcomingAppointments: summary.Upcoming,
			RecentAppointments:   toAppointmentResponses(summary.Nearest),
		})
	}
}

func appointmentID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
		return uuid.Nil, false
	}
	return id, true
}
