package cardio

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/2beens/fitlog/internal/auth"
	"github.com/2beens/fitlog/pkg"
)

type cardioRepo interface {
	Add(ctx context.Context, userID int, entry Entry) (int, error)
	Update(ctx context.Context, userID int, entry Entry) error
	Range(ctx context.Context, userID int, from, to time.Time) ([]Entry, error)
	Delete(ctx context.Context, userID, entryID int) error
}

type Handler struct {
	repo cardioRepo
}

func NewHandler(repo cardioRepo) *Handler {
	return &Handler{repo: repo}
}

func (h *Handler) SetupRoutes(router *mux.Router) {
	router.HandleFunc("", h.handleRange).Methods("GET", "OPTIONS").Name("cardio-range")
	router.HandleFunc("", h.handleAdd).Methods("POST", "OPTIONS").Name("cardio-add")
	router.HandleFunc("/{id}", h.handleUpdate).Methods("PUT", "OPTIONS").Name("cardio-update")
	router.HandleFunc("/{id}", h.handleDelete).Methods("DELETE", "OPTIONS").Name("cardio-delete")
}

type entryRequest struct {
	Date            string  `json:"date"`
	DistanceKm      float64 `json:"distanceKm"`
	DurationMinutes int     `json:"durationMinutes"`
	AvgHeartRate    *int    `json:"avgHeartRate"`
	Notes           *string `json:"notes"`
}

func entryFromRequest(w http.ResponseWriter, r *http.Request) (*Entry, bool) {
	var req entryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkg.SendJSONError(w, "invalid request body", http.StatusBadRequest)
		return nil, false
	}

	recordDate := time.Now()
	if req.Date != "" {
		var err error
		if recordDate, err = pkg.ParseDate(req.Date); err != nil {
			pkg.SendJSONError(w, err.Error(), http.StatusBadRequest)
			return nil, false
		}
	}
	if req.DistanceKm < 0 {
		pkg.SendJSONError(w, "distance must not be negative", http.StatusBadRequest)
		return nil, false
	}
	if req.DurationMinutes <= 0 {
		pkg.SendJSONError(w, "duration must be positive", http.StatusBadRequest)
		return nil, false
	}

	return &Entry{
		RecordDate:      recordDate,
		DistanceKm:      req.DistanceKm,
		DurationMinutes: req.DurationMinutes,
		AvgHeartRate:    req.AvgHeartRate,
		Notes:           req.Notes,
	}, true
}

func (h *Handler) handleAdd(w http.ResponseWriter, r *http.Request) {
	session := auth.SessionFromContext(r.Context())

	entry, ok := entryFromRequest(w, r)
	if !ok {
		return
	}

	id, err := h.repo.Add(r.Context(), session.UserID, *entry)
	if err != nil {
		log.Errorf("add cardio entry [user %d]: %s", session.UserID, err)
		pkg.SendJSONError(w, "internal server error", http.StatusInternalServerError)
		return
	}
	entry.ID = id

	respBytes, err := json.Marshal(entry)
	if err != nil {
		pkg.SendJSONError(w, "internal server error", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, respBytes, http.StatusCreated)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	session := auth.SessionFromContext(r.Context())

	entryID, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		pkg.SendJSONError(w, "invalid entry id", http.StatusBadRequest)
		return
	}

	entry, ok := entryFromRequest(w, r)
	if !ok {
		return
	}
	entry.ID = entryID

	if err := h.repo.Update(r.Context(), session.UserID, *entry); err != nil {
		if errors.Is(err, ErrNotFound) {
			pkg.SendJSONError(w, "not found", http.StatusNotFound)
			return
		}
		log.Errorf("update cardio entry [%d / user %d]: %s", entryID, session.UserID, err)
		pkg.SendJSONError(w, "internal server error", http.StatusInternalServerError)
		return
	}
	pkg.WriteTextResponseOK(w, "updated")
}

func (h *Handler) handleRange(w http.ResponseWriter, r *http.Request) {
	session := auth.SessionFromContext(r.Context())

	to := time.Now()
	from := to.AddDate(0, -1, 0)
	var err error
	if fromParam := r.URL.Query().Get("from"); fromParam != "" {
		if from, err = pkg.ParseDate(fromParam); err != nil {
			pkg.SendJSONError(w, err.Error(), http.StatusBadRequest)
			return
		}
	}
	if toParam := r.URL.Query().Get("to"); toParam != "" {
		if to, err = pkg.ParseDate(toParam); err != nil {
			pkg.SendJSONError(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	entries, err := h.repo.Range(r.Context(), session.UserID, from, to)
	if err != nil {
		log.Errorf("get cardio entries [user %d]: %s", session.UserID, err)
		pkg.SendJSONError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	respBytes, err := json.Marshal(entries)
	if err != nil {
		pkg.SendJSONError(w, "internal server error", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, respBytes)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	session := auth.SessionFromContext(r.Context())

	entryID, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		pkg.SendJSONError(w, "invalid entry id", http.StatusBadRequest)
		return
	}

	if err := h.repo.Delete(r.Context(), session.UserID, entryID); err != nil {
		if errors.Is(err, ErrNotFound) {
			pkg.SendJSONError(w, "not found", http.StatusNotFound)
			return
		}
		log.Errorf("delete cardio entry [%d / user %d]: %s", entryID, session.UserID, err)
		pkg.SendJSONError(w, "internal server error", http.StatusInternalServerError)
		return
	}
	pkg.WriteTextResponseOK(w, "deleted")
}
