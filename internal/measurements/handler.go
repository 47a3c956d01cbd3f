package measurements

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/2beens/fitlog/internal/auth"
	"github.com/2beens/fitlog/pkg"
)

type measurementsRepo interface {
	Upsert(ctx context.Context, userID int, measurement Measurement) error
	Get(ctx context.Context, userID int, recordDate time.Time) (*Measurement, error)
	Range(ctx context.Context, userID int, from, to time.Time) ([]Measurement, error)
	Delete(ctx context.Context, userID int, recordDate time.Time) error
}

type Handler struct {
	repo measurementsRepo
}

func NewHandler(repo measurementsRepo) *Handler {
	return &Handler{repo: repo}
}

func (h *Handler) SetupRoutes(router *mux.Router) {
	router.HandleFunc("", h.handleRange).Methods("GET", "OPTIONS").Name("measurements-range")
	router.HandleFunc("/{date}", h.handleGet).Methods("GET", "OPTIONS").Name("measurements-get")
	router.HandleFunc("/{date}", h.handleUpsert).Methods("PUT", "OPTIONS").Name("measurements-upsert")
	router.HandleFunc("/{date}", h.handleDelete).Methods("DELETE", "OPTIONS").Name("measurements-delete")
}

func dateFromRequest(w http.ResponseWriter, r *http.Request) (time.Time, bool) {
	recordDate, err := ParseDate(mux.Vars(r)["date"])
	if err != nil {
		pkg.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return time.Time{}, false
	}
	return recordDate, true
}

func (h *Handler) handleUpsert(w http.ResponseWriter, r *http.Request) {
	session := auth.SessionFromContext(r.Context())

	recordDate, ok := dateFromRequest(w, r)
	if !ok {
		return
	}

	var measurement Measurement
	if err := json.NewDecoder(r.Body).Decode(&measurement); err != nil {
		pkg.SendJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	measurement.RecordDate = recordDate

	if measurement.Weight != nil && *measurement.Weight <= 0 {
		pkg.SendJSONError(w, "weight must be positive", http.StatusBadRequest)
		return
	}

	if err := h.repo.Upsert(r.Context(), session.UserID, measurement); err != nil {
		log.Errorf("upsert measurement [%d / %s]: %s", session.UserID, recordDate, err)
		pkg.SendJSONError(w, "internal server error", http.StatusInternalServerError)
		return
	}
	pkg.WriteTextResponseOK(w, "saved")
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	session := auth.SessionFromContext(r.Context())

	recordDate, ok := dateFromRequest(w, r)
	if !ok {
		return
	}

	measurement, err := h.repo.Get(r.Context(), session.UserID, recordDate)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			pkg.SendJSONError(w, "not found", http.StatusNotFound)
			return
		}
		log.Errorf("get measurement [%d / %s]: %s", session.UserID, recordDate, err)
		pkg.SendJSONError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	respBytes, err := json.Marshal(measurement)
	if err != nil {
		pkg.SendJSONError(w, "internal server error", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, respBytes)
}

func (h *Handler) handleRange(w http.ResponseWriter, r *http.Request) {
	session := auth.SessionFromContext(r.Context())

	to := time.Now()
	from := to.AddDate(0, -1, 0)
	var err error
	if fromParam := r.URL.Query().Get("from"); fromParam != "" {
		if from, err = ParseDate(fromParam); err != nil {
			pkg.SendJSONError(w, err.Error(), http.StatusBadRequest)
			return
		}
	}
	if toParam := r.URL.Query().Get("to"); toParam != "" {
		if to, err = ParseDate(toParam); err != nil {
			pkg.SendJSONError(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	measurements, err := h.repo.Range(r.Context(), session.UserID, from, to)
	if err != nil {
		log.Errorf("get measurements range [%d]: %s", session.UserID, err)
		pkg.SendJSONError(w, "internal server error", http.StatusInternalServerError)
		return
	}
	if measurements == nil {
		measurements = []Measurement{}
	}

	respBytes, err := json.Marshal(measurements)
	if err != nil {
		pkg.SendJSONError(w, "internal server error", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, respBytes)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	session := auth.SessionFromContext(r.Context())

	recordDate, ok := dateFromRequest(w, r)
	if !ok {
		return
	}

	if err := h.repo.Delete(r.Context(), session.UserID, recordDate); err != nil {
		if errors.Is(err, ErrNotFound) {
			pkg.SendJSONError(w, "not found", http.StatusNotFound)
			return
		}
		log.Errorf("delete measurement [%d / %s]: %s", session.UserID, recordDate, err)
		pkg.SendJSONError(w, "internal server error", http.StatusInternalServerError)
		return
	}
	pkg.WriteTextResponseOK(w, "deleted")
}
