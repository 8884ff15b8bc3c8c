package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/hackgods/clinic-shift-scheduling/internal/appointment"
	"github.com/hackgods/clinic-shift-scheduling/internal/schedule"
)

// Appointments

func createAppointmentHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateAppointmentRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		patientID, ok := parseUUID(w, req.PatientID, "patient_id")
		if !ok {
			return
		}
		doctorID, ok := parseUUID(w, req.DoctorID, "doctor_id")
		if !ok {
			return
		}
		date, ok := parseDate(w, req.Date, "date")
		if !ok {
			return
		}

		appt, err := svc.CreateAppointment(r.Context(), appointment.CreateAppointmentInput{
			PatientID:  patientID,
			DoctorID:   doctorID,
			Date:       date,
			SlotNumber: req.SlotNumber,
			Status:     appointment.AppointmentStatus(req.Status),
			Reason:     req.Reason,
		})
		if err != nil {
			handleServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toAppointmentResponse(appt))
	}
}

func getAppointmentHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseUUID(w, chi.URLParam(r, "id"), "id")
		if !ok {
			return
		}

		detail, err := svc.GetAppointment(r.Context(), id)
		if err != nil {
			handleServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toDetailResponse(detail))
	}
}

func updateAppointmentHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseUUID(w, chi.URLParam(r, "id"), "id")
		if !ok {
			return
		}

		var req UpdateAppointmentRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		in := appointment.UpdateAppointmentInput{
			SlotNumber: req.SlotNumber,
			Reason:     req.Reason,
		}
		if req.PatientID != nil {
			v, ok := parseUUID(w, *req.PatientID, "patient_id")
			if !ok {
				return
			}
			in.PatientID = &v
		}
		if req.DoctorID != nil {
			v, ok := parseUUID(w, *req.DoctorID, "doctor_id")
			if !ok {
				return
			}
			in.DoctorID = &v
		}
		if req.Date != nil {
			v, ok := parseDate(w, *req.Date, "date")
			if !ok {
				return
			}
			in.Date = &v
		}
		if req.Status != nil {
			v := appointment.AppointmentStatus(*req.Status)
			in.Status = &v
		}

		appt, err := svc.UpdateAppointment(r.Context(), id, in)
		if err != nil {
			handleServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func cancelAppointmentHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseUUID(w, chi.URLParam(r, "id"), "id")
		if !ok {
			return
		}

		appt, err := svc.CancelAppointment(r.Context(), id)
		if err != nil {
			handleServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func attendAppointmentHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseUUID(w, chi.URLParam(r, "id"), "id")
		if !ok {
			return
		}

		appt, err := svc.MarkAttended(r.Context(), id)
		if err != nil {
			handleServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

// Slots

func doctorDaySlotsHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID, ok := parseUUID(w, chi.URLParam(r, "id"), "id")
		if !ok {
			return
		}
		date, ok := parseDate(w, r.URL.Query().Get("date"), "date")
		if !ok {
			return
		}

		slots, err := svc.DoctorDaySlots(r.Context(), doctorID, date)
		if err != nil {
			handleServiceError(w, err)
			return
		}

		resp := make([]DaySlotResponse, 0, len(slots))
		for _, s := range slots {
			resp = append(resp, DaySlotResponse{
				Slot:  s.Number,
				Start: schedule.FormatClock(s.Range.Start),
				End:   schedule.FormatClock(s.Range.End),
				Taken: s.Taken,
			})
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func resolveSlotHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID, ok := parseUUID(w, chi.URLParam(r, "id"), "id")
		if !ok {
			return
		}
		n, err := strconv.Atoi(chi.URLParam(r, "n"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_slot_number", "slot number must be an integer")
			return
		}
		date, ok := parseDate(w, r.URL.Query().Get("date"), "date")
		if !ok {
			return
		}

		tr, err := svc.ResolveSlotTime(r.Context(), doctorID, date, n)
		if err != nil {
			handleServiceError(w, err)
			return
		}

		resp := ResolvedSlotResponse{
			DoctorID:   doctorID,
			Date:       date.Format(time.DateOnly),
			SlotNumber: n,
			Resolved:   tr != nil,
		}
		if tr != nil {
			resp.SlotTime = slotTime(*tr)
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func shiftSlotsHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseUUID(w, chi.URLParam(r, "id"), "id")
		if !ok {
			return
		}

		grid, err := svc.ListSlotsForShift(r.Context(), id)
		if err != nil {
			handleServiceError(w, err)
			return
		}

		resp := make([]DaySlotResponse, 0, len(grid))
		for i, tr := range grid {
			resp = append(resp, DaySlotResponse{
				Slot:  i + 1,
				Start: schedule.FormatClock(tr.Start),
				End:   schedule.FormatClock(tr.End),
			})
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// Registry

func createSpecialtyHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateSpecialtyRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		sp, err := svc.CreateSpecialty(r.Context(), appointment.CreateSpecialtyInput{
			Name:        req.Name,
			Description: req.Description,
		})
		if err != nil {
			handleServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, SpecialtyResponse{ID: sp.ID, Name: sp.Name, Description: sp.Description})
	}
}

func registerDoctorHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req RegisterDoctorRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		specialtyID, ok := parseUUID(w, req.SpecialtyID, "specialty_id")
		if !ok {
			return
		}

		d, err := svc.RegisterDoctor(r.Context(), appointment.RegisterDoctorInput{
			Identifier:  req.Identifier,
			FirstName:   req.FirstName,
			LastName:    req.LastName,
			Phone:       req.Phone,
			Email:       req.Email,
			SpecialtyID: specialtyID,
			Status:      appointment.DoctorStatus(req.Status),
		})
		if err != nil {
			handleServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toDoctorResponse(d))
	}
}

func registerPatientHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req RegisterPatientRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		birthDate, ok := parseDate(w, req.BirthDate, "birth_date")
		if !ok {
			return
		}

		p, err := svc.RegisterPatient(r.Context(), appointment.RegisterPatientInput{
			Identifier: req.Identifier,
			FirstName:  req.FirstName,
			LastName:   req.LastName,
			BirthDate:  birthDate,
			Phone:      req.Phone,
			Email:      req.Email,
			Address:    req.Address,
		})
		if err != nil {
			handleServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toPatientResponse(p))
	}
}

func createShiftHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateShiftRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		doctorID, ok := parseUUID(w, req.DoctorID, "doctor_id")
		if !ok {
			return
		}

		shift, err := svc.CreateShift(r.Context(), appointment.CreateShiftInput{
			DoctorID: doctorID,
			Weekday:  req.Weekday,
			Turno:    req.Turno,
		})
		if err != nil {
			handleServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toShiftResponse(shift))
	}
}

func updateShiftHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseUUID(w, chi.URLParam(r, "id"), "id")
		if !ok {
			return
		}
		var req UpdateShiftRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		shift, err := svc.ChangeShiftTurno(r.Context(), id, req.Turno)
		if err != nil {
			handleServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toShiftResponse(shift))
	}
}

func deactivateShiftHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseUUID(w, chi.URLParam(r, "id"), "id")
		if !ok {
			return
		}

		shift, err := svc.DeactivateShift(r.Context(), id)
		if err != nil {
			handleServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toShiftResponse(shift))
	}
}

// Errors

// rejectionStatus splits business rejections into conflicts with existing
// state (409) and requests that can never succeed as sent (422).
func rejectionStatus(kind appointment.RejectionKind) int {
	switch kind {
	case appointment.KindSlotAlreadyTaken,
		appointment.KindDuplicateShiftForDay,
		appointment.KindIdentifierExists,
		appointment.KindInvalidStateTransition:
		return http.StatusConflict
	default:
		return http.StatusUnprocessableEntity
	}
}

func handleServiceError(w http.ResponseWriter, err error) {
	var rej *appointment.Rejection
	switch {
	case errors.As(err, &rej):
		writeError(w, rejectionStatus(rej.Kind), string(rej.Kind), rej.Message)
	case errors.Is(err, appointment.ErrAppointmentNotFound):
		writeError(w, http.StatusNotFound, "appointment_not_found", err.Error())
	case errors.Is(err, appointment.ErrPatientNotFound):
		writeError(w, http.StatusNotFound, "patient_not_found", err.Error())
	case errors.Is(err, appointment.ErrDoctorNotFound):
		writeError(w, http.StatusNotFound, "doctor_not_found", err.Error())
	case errors.Is(err, appointment.ErrSpecialtyNotFound):
		writeError(w, http.StatusNotFound, "specialty_not_found", err.Error())
	case errors.Is(err, appointment.ErrShiftNotFound):
		writeError(w, http.StatusNotFound, "shift_not_found", err.Error())
	case errors.Is(err, appointment.ErrSlotBeingBooked):
		writeError(w, http.StatusConflict, "slot_being_booked", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

// Helpers

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return false
	}
	return true
}

func parseUUID(w http.ResponseWriter, raw, field string) (uuid.UUID, bool) {
	id, err := uuid.Parse(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_"+field, field+" must be a valid UUID")
		return uuid.Nil, false
	}
	return id, true
}

func parseDate(w http.ResponseWriter, raw, field string) (time.Time, bool) {
	d, err := schedule.ParseDate(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_"+field, field+" must be formatted as YYYY-MM-DD")
		return time.Time{}, false
	}
	return d, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, details string) {
	writeJSON(w, status, ErrorResponse{Error: code, Details: details})
}
