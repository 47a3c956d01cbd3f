package sessions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/2beens/fitlog/internal/auth"
	"github.com/2beens/fitlog/pkg"
)

type sessionSaver interface {
	Save(ctx context.Context, userID int, req SaveRequest) (SaveResult, error)
}

type sessionReader interface {
	Get(ctx context.Context, userID int, sessionTimestamp string) (*SessionDetail, error)
	List(ctx context.Context, userID int, from, to time.Time) ([]Session, error)
	Delete(ctx context.Context, userID int, sessionTimestamp string) error
}

type historySource interface {
	History(ctx context.Context, userID int, exerciseIDs []int, cutoff time.Time) (map[int]*ExerciseHistory, error)
}

type Handler struct {
	service *Service
	repo    sessionReader
	history historySource
}

func NewHandler(service *Service, repo sessionReader, history historySource) *Handler {
	return &Handler{
		service: service,
		repo:    repo,
		history: history,
	}
}

func (h *Handler) SetupRoutes(router *mux.Router) {
	router.HandleFunc("/sessions", h.handleSave).Methods("POST", "OPTIONS").Name("sessions-save")
	router.HandleFunc("/sessions/{timestamp}", h.handleGet).Methods("GET", "OPTIONS").Name("sessions-get")
	router.HandleFunc("/sessions/{timestamp}", h.handleDelete).Methods("DELETE", "OPTIONS").Name("sessions-delete")
	router.HandleFunc("/diary", h.handleDiary).Methods("GET", "OPTIONS").Name("sessions-diary")
	router.HandleFunc("/history", h.handleHistory).Methods("GET", "OPTIONS").Name("sessions-history")
}

// flexValue accepts both JSON strings and numbers, so clients can send
// {"weight": 80} as well as {"weight": "io"}.
type flexValue string

func (v *flexValue) UnmarshalJSON(data []byte) error {
	var asString string
	if err := json.Unmarshal(data, &asString); err == nil {
		*v = flexValue(asString)
		return nil
	}
	var asNumber json.Number
	if err := json.Unmarshal(data, &asNumber); err == nil {
		*v = flexValue(asNumber.String())
		return nil
	}
	return fmt.Errorf("invalid value: %s", data)
}

type saveSessionPayload struct {
	RecordDate       string  `json:"recordDate"`
	SessionTimestamp string  `json:"sessionTimestamp"`
	TemplateName     string  `json:"templateName"`
	DurationMinutes  int     `json:"durationMinutes"`
	SessionNote      *string `json:"sessionNote"`
	SessionRating    *int    `json:"sessionRating"`
	Entries          []struct {
		ExerciseID int       `json:"exerciseId"`
		SetNumber  int       `json:"setNumber"`
		Reps       flexValue `json:"reps"`
		Weight     flexValue `json:"weight"`
	} `json:"entries"`
	Comments map[string]string `json:"comments"`
}

func (h *Handler) handleSave(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	session := auth.SessionFromContext(ctx)

	var req SaveRequest
	var err error
	if strings.Contains(r.Header.Get("Content-Type"), "application/json") {
		req, err = h.parseJSONPayload(r)
	} else {
		if err = r.ParseForm(); err == nil {
			req, err = ParseSessionForm(r.Form)
		}
	}
	if err != nil {
		pkg.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	if req.SessionRating != nil && (*req.SessionRating < 1 || *req.SessionRating > 10) {
		pkg.SendJSONError(w, "rating must be between 1 and 10", http.StatusBadRequest)
		return
	}

	result, err := h.service.Save(ctx, session.UserID, req)
	if err != nil {
		log.Errorf("save session [%d]: %s", session.UserID, err)
		pkg.SendJSONError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	respBytes, err := json.Marshal(result)
	if err != nil {
		pkg.SendJSONError(w, "internal server error", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, respBytes)
}

func (h *Handler) parseJSONPayload(r *http.Request) (SaveRequest, error) {
	var payload saveSessionPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		return SaveRequest{}, errors.New("invalid request body")
	}

	recordDate, err := pkg.ParseDate(payload.RecordDate)
	if err != nil {
		return SaveRequest{}, err
	}

	req := SaveRequest{
		RecordDate:       recordDate,
		SessionTimestamp: payload.SessionTimestamp,
		TemplateName:     payload.TemplateName,
		DurationMinutes:  payload.DurationMinutes,
		SessionNote:      payload.SessionNote,
		SessionRating:    payload.SessionRating,
		Comments:         make(map[int]string),
	}

	for _, entry := range payload.Entries {
		req.Sets = append(req.Sets, RawSet{
			ExerciseID: entry.ExerciseID,
			SetNumber:  entry.SetNumber,
			Reps:       string(entry.Reps),
			Weight:     string(entry.Weight),
		})
	}
	for exerciseIDStr, comment := range payload.Comments {
		exerciseID, err := strconv.Atoi(exerciseIDStr)
		if err != nil {
			continue
		}
		req.Comments[exerciseID] = comment
	}

	return req, nil
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	session := auth.SessionFromContext(r.Context())
	sessionTimestamp := mux.Vars(r)["timestamp"]

	detail, err := h.repo.Get(r.Context(), session.UserID, sessionTimestamp)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			pkg.SendJSONError(w, "not found", http.StatusNotFound)
			return
		}
		log.Errorf("get session [%d / %s]: %s", session.UserID, sessionTimestamp, err)
		pkg.SendJSONError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	respBytes, err := json.Marshal(detail)
	if err != nil {
		pkg.SendJSONError(w, "internal server error", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, respBytes)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	session := auth.SessionFromContext(r.Context())
	sessionTimestamp := mux.Vars(r)["timestamp"]

	if err := h.repo.Delete(r.Context(), session.UserID, sessionTimestamp); err != nil {
		if errors.Is(err, ErrNotFound) {
			pkg.SendJSONError(w, "not found", http.StatusNotFound)
			return
		}
		log.Errorf("delete session [%d / %s]: %s", session.UserID, sessionTimestamp, err)
		pkg.SendJSONError(w, "internal server error", http.StatusInternalServerError)
		return
	}
	pkg.WriteTextResponseOK(w, "deleted")
}

func (h *Handler) handleDiary(w http.ResponseWriter, r *http.Request) {
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

	list, err := h.repo.List(r.Context(), session.UserID, from, to)
	if err != nil {
		log.Errorf("session diary [%d]: %s", session.UserID, err)
		pkg.SendJSONError(w, "internal server error", http.StatusInternalServerError)
		return
	}
	if list == nil {
		list = []Session{}
	}

	respBytes, err := json.Marshal(list)
	if err != nil {
		pkg.SendJSONError(w, "internal server error", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, respBytes)
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	session := auth.SessionFromContext(r.Context())

	var exerciseIDs []int
	for _, idStr := range strings.Split(r.URL.Query().Get("exercises"), ",") {
		idStr = strings.TrimSpace(idStr)
		if idStr == "" {
			continue
		}
		id, err := strconv.Atoi(idStr)
		if err != nil {
			pkg.SendJSONError(w, "invalid exercise id: "+idStr, http.StatusBadRequest)
			return
		}
		exerciseIDs = append(exerciseIDs, id)
	}
	if len(exerciseIDs) == 0 {
		pkg.SendJSONError(w, "no exercises given", http.StatusBadRequest)
		return
	}

	cutoff := time.Now()
	if cutoffParam := r.URL.Query().Get("cutoff"); cutoffParam != "" {
		var err error
		if cutoff, err = pkg.ParseDate(cutoffParam); err != nil {
			pkg.SendJSONError(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	history, err := h.history.History(r.Context(), session.UserID, exerciseIDs, cutoff)
	if err != nil {
		log.Errorf("exercise history [%d]: %s", session.UserID, err)
		pkg.SendJSONError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	respBytes, err := json.Marshal(history)
	if err != nil {
		pkg.SendJSONError(w, "internal server error", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, respBytes)
}
