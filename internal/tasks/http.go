package tasks

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
)

const maxTitleLen = 200

type titleRequest struct {
	Title string `json:"title"`
}

type dateRequest struct {
	Date string `json:"date"`
}

type fieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type errResponse struct {
	Error   string       `json:"error"`
	Details []fieldError `json:"details,omitempty"`
}

// RegisterRoutes mounts the command interface used by the presentation layer.
func RegisterRoutes(r chi.Router, s *Store) {
	r.Get("/state", getState(s))
	r.Post("/tasks", addTask(s))
	r.Post("/tasks/{id}/toggle", toggleTask(s))
	r.Patch("/tasks/{id}", updateTask(s))
	r.Put("/selected-date", navigate(s))
	r.Get("/days/{date}", getDay(s))
	r.Get("/history", listHistory(s))
}

func getState(s *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		writeJSON(w, http.StatusOK, s.Snapshot())
	}
}

func addTask(s *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		var req titleRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, errResponse{Error: "invalid_json"})
			return
		}

		if vErrs := validateTitle(req.Title, maxTitleLen); len(vErrs) > 0 {
			writeJSON(w, http.StatusUnprocessableEntity, errResponse{
				Error:   "validation_error",
				Details: vErrs,
			})
			return
		}

		t, err := s.AddTask(r.Context(), req.Title)
		if err != nil {
			switch {
			case errors.Is(err, ErrTitleRequired):
				writeJSON(w, http.StatusUnprocessableEntity, errResponse{
					Error: "validation_error",
					Details: []fieldError{
						{Field: "title", Message: "title is required"},
					},
				})
			case errors.Is(err, ErrDayFull):
				writeJSON(w, http.StatusConflict, errResponse{Error: "day_full"})
			default:
				writeJSON(w, http.StatusInternalServerError, errResponse{Error: "unexpected_error"})
			}
			return
		}

		writeJSON(w, http.StatusCreated, t)
	}
}

func toggleTask(s *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		t, ok := s.ToggleTask(r.Context(), chi.URLParam(r, "id"))
		if !ok {
			writeJSON(w, http.StatusNotFound, errResponse{Error: "not_found"})
			return
		}
		writeJSON(w, http.StatusOK, t)
	}
}

func updateTask(s *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		var req titleRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, errResponse{Error: "invalid_json"})
			return
		}
		if vErrs := validateTitle(req.Title, maxTitleLen); len(vErrs) > 0 {
			writeJSON(w, http.StatusUnprocessableEntity, errResponse{
				Error:   "validation_error",
				Details: vErrs,
			})
			return
		}

		t, ok := s.UpdateTask(r.Context(), chi.URLParam(r, "id"), req.Title)
		if !ok {
			writeJSON(w, http.StatusNotFound, errResponse{Error: "not_found"})
			return
		}
		writeJSON(w, http.StatusOK, t)
	}
}

func navigate(s *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		var req dateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, errResponse{Error: "invalid_json"})
			return
		}

		if err := s.NavigateToDate(r.Context(), strings.TrimSpace(req.Date)); err != nil {
			writeDateError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, s.Snapshot())
	}
}

func getDay(s *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		day, err := s.Day(r.Context(), chi.URLParam(r, "date"))
		if err != nil {
			writeDateError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, day)
	}
}

func listHistory(s *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		limit := 0
		if v := r.URL.Query().Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				writeJSON(w, http.StatusUnprocessableEntity, errResponse{
					Error: "validation_error",
					Details: []fieldError{
						{Field: "limit", Message: "limit must be a non-negative integer"},
					},
				})
				return
			}
			limit = n
		}

		days, err := s.History(r.Context(), limit)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, errResponse{Error: "unexpected_error"})
			return
		}
		writeJSON(w, http.StatusOK, days)
	}
}

func validateTitle(title string, maxLen int) []fieldError {
	var errs []fieldError

	if strings.TrimSpace(title) == "" {
		errs = append(errs, fieldError{
			Field:   "title",
			Message: "title is required",
		})
	}

	if l := len(title); l > maxLen {
		errs = append(errs, fieldError{
			Field:   "title",
			Message: fmt.Sprintf("title must be at most %d characters", maxLen),
		})
	}

	return errs
}

func writeDateError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidDate):
		writeJSON(w, http.StatusUnprocessableEntity, errResponse{
			Error:   "invalid_date",
			Details: []fieldError{{Field: "date", Message: "date must be YYYY-MM-DD"}},
		})
	case errors.Is(err, ErrDateOutOfRange):
		writeJSON(w, http.StatusUnprocessableEntity, errResponse{
			Error:   "date_out_of_range",
			Details: []fieldError{{Field: "date", Message: "date must not be later than tomorrow"}},
		})
	default:
		writeJSON(w, http.StatusInternalServerError, errResponse{Error: "unexpected_error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
