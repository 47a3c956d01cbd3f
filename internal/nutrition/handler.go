package nutrition

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
	"github.com/2beens/fitlog/internal/catalog"
	"github.com/2beens/fitlog/pkg"
)

type dietRepo interface {
	Add(ctx context.Context, userID int, entry Entry) (int, error)
	Day(ctx context.Context, userID int, logDate time.Time) (*DayLog, error)
	Delete(ctx context.Context, userID, entryID int) error
}

type foodResolver interface {
	Resolve(ctx context.Context, userID, itemID int, name string) (*catalog.Item, error)
}

type Handler struct {
	repo     dietRepo
	resolver foodResolver
}

func NewHandler(repo dietRepo, resolver foodResolver) *Handler {
	return &Handler{
		repo:     repo,
		resolver: resolver,
	}
}

func (h *Handler) SetupRoutes(router *mux.Router) {
	router.HandleFunc("/log", h.handleAdd).Methods("POST", "OPTIONS").Name("nutrition-add")
	router.HandleFunc("/log/{date}", h.handleDay).Methods("GET", "OPTIONS").Name("nutrition-day")
	router.HandleFunc("/log/entry/{id}", h.handleDelete).Methods("DELETE", "OPTIONS").Name("nutrition-delete")
}

type addEntryRequest struct {
	FoodID int     `json:"foodId"`
	Food   string  `json:"food"`
	Weight float64 `json:"weight"`
	Date   string  `json:"date"`
}

func (h *Handler) handleAdd(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	session := auth.SessionFromContext(ctx)

	var req addEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkg.SendJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Weight <= 0 {
		pkg.SendJSONError(w, "weight must be positive", http.StatusBadRequest)
		return
	}

	logDate := time.Now()
	if req.Date != "" {
		var err error
		if logDate, err = pkg.ParseDate(req.Date); err != nil {
			pkg.SendJSONError(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	food, err := h.resolver.Resolve(ctx, session.UserID, req.FoodID, req.Food)
	if err != nil {
		if errors.Is(err, catalog.ErrUnresolved) {
			pkg.SendJSONError(w, "unknown food: "+req.Food, http.StatusBadRequest)
			return
		}
		log.Errorf("add diet entry [%d]: resolve food [%d / %s]: %s", session.UserID, req.FoodID, req.Food, err)
		pkg.SendJSONError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	protein, carbs, fat, calories := ComputeMacros(food, req.Weight)
	entry := Entry{
		FoodID:   food.ID,
		FoodName: food.Name,
		LogDate:  logDate,
		Weight:   req.Weight,
		Protein:  protein,
		Carbs:    carbs,
		Fat:      fat,
		Calories: calories,
	}

	if entry.ID, err = h.repo.Add(ctx, session.UserID, entry); err != nil {
		log.Errorf("add diet entry [%d]: %s", session.UserID, err)
		pkg.SendJSONError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	respBytes, err := json.Marshal(entry)
	if err != nil {
		pkg.SendJSONError(w, "internal server error", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, respBytes, http.StatusCreated)
}

func (h *Handler) handleDay(w http.ResponseWriter, r *http.Request) {
	session := auth.SessionFromContext(r.Context())

	logDate, err := pkg.ParseDate(mux.Vars(r)["date"])
	if err != nil {
		pkg.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	dayLog, err := h.repo.Day(r.Context(), session.UserID, logDate)
	if err != nil {
		log.Errorf("get diet log [%d / %s]: %s", session.UserID, logDate, err)
		pkg.SendJSONError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	respBytes, err := json.Marshal(dayLog)
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
		log.Errorf("delete diet entry [%d / %d]: %s", session.UserID, entryID, err)
		pkg.SendJSONError(w, "internal server error", http.StatusInternalServerError)
		return
	}
	pkg.WriteTextResponseOK(w, "deleted")
}
