package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/hackgods/clinic-scheduling/internal/availability"
	"github.com/hackgods/clinic-scheduling/internal/calendar"
	"github.com/hackgods/clinic-scheduling/internal/catalog"
)

const defaultSlotWindowDays = 7

func listDoctorsHandler(doctors catalog.Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := doctors.List(r.Context(), r.URL.Query().Get("specialty"))
		if err != nil {
			writeError(w, http.StatusServiceUnavailable, "catalog_unavailable", "doctor directory unavailable")
			return
		}

		resp := make([]DoctorResponse, 0, len(list))
		for _, d := range list {
			resp = append(resp, toDoctorResponse(d))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func getDoctorHandler(doctors catalog.Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doc, err := doctors.Get(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			if errors.Is(err, catalog.ErrDoctorNotFound) {
				writeError(w, http.StatusNotFound, "doctor_not_found", err.Error())
				return
			}
			writeError(w, http.StatusServiceUnavailable, "catalog_unavailable", "doctor directory unavailable")
			return
		}

		writeJSON(w, http.StatusOK, toDoctorResponse(*doc))
	}
}

// doctorSlotsHandler lists template slots in a date range and marks the ones
// currently held. It takes no locks, so a slot shown as available can still
// be lost to a concurrent booking.
func doctorSlotsHandler(slots *catalog.SlotCatalog, index availability.Index, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID := chi.URLParam(r, "id")

		from, to, ok := slotWindow(w, r, slots.Today())
		if !ok {
			return
		}

		seq, err := slots.AvailableSlots(r.Context(), doctorID, from, to)
		if err != nil {
			switch {
			case errors.Is(err, catalog.ErrInvalidRange):
				writeError(w, http.StatusBadRequest, "invalid_range", err.Error())
			case errors.Is(err, catalog.ErrDoctorNotFound):
				writeError(w, http.StatusNotFound, "doctor_not_found", err.Error())
			default:
				writeError(w, http.StatusServiceUnavailable, "catalog_unavailable", "doctor directory unavailable")
			}
			return
		}

		resp := SlotsResponse{
			DoctorID: doctorID,
			From:     calendar.FormatDate(from),
			To:       calendar.FormatDate(to),
			Slots:    []SlotResponse{},
		}
		for slot := range seq {
			held, err := index.IsHeld(r.Context(), slot.Key())
			if err != nil {
				logger.Error().Err(err).Str("slot", slot.Key().String()).Msg("check slot hold")
				writeError(w, http.StatusServiceUnavailable, "availability_unavailable", "availability index unavailable")
				return
			}
			resp.Slots = append(resp.Slots, SlotResponse{
				Date:      calendar.FormatDate(slot.Date),
				Time:      slot.TimeOfDay,
				Available: !held,
			})
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

// slotWindow reads from/to, defaulting to a week starting today.
func slotWindow(w http.ResponseWriter, r *http.Request, today time.Time) (time.Time, time.Time, bool) {
	from, to := today, today.AddDate(0, 0, defaultSlotWindowDays-1)

	q := r.URL.Query()
	if raw := q.Get("from"); raw != "" {
		d, err := calendar.ParseDate(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_input", err.Error())
			return time.Time{}, time.Time{}, false
		}
		from = d
		if q.Get("to") == "" {
			to = from.AddDate(0, 0, defaultSlotWindowDays-1)
		}
	}
	if raw := q.Get("to"); raw != "" {
		d, err := calendar.ParseDate(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_input", err.Error())
			return time.Time{}, time.Time{}, false
		}
		to = d
	}
	return from, to, true
}
