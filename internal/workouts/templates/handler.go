package templates

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/2beens/fitlog/internal/auth"
	"github.com/2beens/fitlog/pkg"
)

type templatesRepo interface {
	Get(ctx context.Context, userID, templateID int) (*Template, error)
	List(ctx context.Context, userID int) ([]Template, error)
	Create(ctx context.Context, userID int, name string) (*Template, error)
	Rename(ctx context.Context, userID, templateID int, name string) error
	Delete(ctx context.Context, userID, templateID int) error
	Move(ctx context.Context, userID, templateID, templateExerciseID int, up bool) error
}

type diffSaver interface {
	Save(ctx context.Context, userID, templateID int, payload SavePayload) error
}

type Handler struct {
	repo       templatesRepo
	reconciler diffSaver
}

func NewHandler(repo templatesRepo, reconciler diffSaver) *Handler {
	return &Handler{
		repo:       repo,
		reconciler: reconciler,
	}
}

func (h *Handler) SetupRoutes(router *mux.Router) {
	router.HandleFunc("", h.handleList).Methods("GET", "OPTIONS").Name("templates-list")
	router.HandleFunc("", h.handleCreate).Methods("POST", "OPTIONS").Name("templates-create")
	router.HandleFunc("/{id}", h.handleGet).Methods("GET", "OPTIONS").Name("templates-get")
	router.HandleFunc("/{id}", h.handleRename).Methods("PUT", "OPTIONS").Name("templates-rename")
	router.HandleFunc("/{id}", h.handleDelete).Methods("DELETE", "OPTIONS").Name("templates-delete")
	router.HandleFunc("/{id}/save", h.handleSave).Methods("POST", "OPTIONS").Name("templates-save")
	router.HandleFunc("/{id}/exercises/{teID}/move", h.handleMove).Methods("POST", "OPTIONS").Name("templates-move")
}

func templateIDFromRequest(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		pkg.SendJSONError(w, "invalid template id", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	session := auth.SessionFromContext(r.Context())

	list, err := h.repo.List(r.Context(), session.UserID)
	if err != nil {
		log.Errorf("list templates [%d]: %s", session.UserID, err)
		pkg.SendJSONError(w, "internal server error", http.StatusInternalServerError)
		return
	}
	if list == nil {
		list = []Template{}
	}

	respBytes, err := json.Marshal(list)
	if err != nil {
		pkg.SendJSONError(w, "internal server error", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, respBytes)
}

type templateNameRequest struct {
	Name string `json:"name"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	session := auth.SessionFromContext(r.Context())

	var req templateNameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkg.SendJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		pkg.SendJSONError(w, "name required", http.StatusBadRequest)
		return
	}

	template, err := h.repo.Create(r.Context(), session.UserID, req.Name)
	if err != nil {
		if errors.Is(err, ErrNameTaken) {
			pkg.SendJSONError(w, "template name taken", http.StatusConflict)
			return
		}
		log.Errorf("create template [%d / %s]: %s", session.UserID, req.Name, err)
		pkg.SendJSONError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	respBytes, err := json.Marshal(template)
	if err != nil {
		pkg.SendJSONError(w, "internal server error", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, respBytes, http.StatusCreated)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	session := auth.SessionFromContext(r.Context())

	templateID, ok := templateIDFromRequest(w, r)
	if !ok {
		return
	}

	template, err := h.repo.Get(r.Context(), session.UserID, templateID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			pkg.SendJSONError(w, "not found", http.StatusNotFound)
			return
		}
		log.Errorf("get template [%d / %d]: %s", session.UserID, templateID, err)
		pkg.SendJSONError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	respBytes, err := json.Marshal(template)
	if err != nil {
		pkg.SendJSONError(w, "internal server error", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, respBytes)
}

func (h *Handler) handleRename(w http.ResponseWriter, r *http.Request) {
	session := auth.SessionFromContext(r.Context())

	templateID, ok := templateIDFromRequest(w, r)
	if !ok {
		return
	}

	var req templateNameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkg.SendJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		pkg.SendJSONError(w, "name required", http.StatusBadRequest)
		return
	}

	if err := h.repo.Rename(r.Context(), session.UserID, templateID, req.Name); err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			pkg.SendJSONError(w, "not found", http.StatusNotFound)
		case errors.Is(err, ErrNameTaken):
			pkg.SendJSONError(w, "template name taken", http.StatusConflict)
		default:
			log.Errorf("rename template [%d / %d]: %s", session.UserID, templateID, err)
			pkg.SendJSONError(w, "internal server error", http.StatusInternalServerError)
		}
		return
	}
	pkg.WriteTextResponseOK(w, "renamed")
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	session := auth.SessionFromContext(r.Context())

	templateID, ok := templateIDFromRequest(w, r)
	if !ok {
		return
	}

	if err := h.repo.Delete(r.Context(), session.UserID, templateID); err != nil {
		if errors.Is(err, ErrNotFound) {
			pkg.SendJSONError(w, "not found", http.StatusNotFound)
			return
		}
		log.Errorf("delete template [%d / %d]: %s", session.UserID, templateID, err)
		pkg.SendJSONError(w, "internal server error", http.StatusInternalServerError)
		return
	}
	pkg.WriteTextResponseOK(w, "deleted")
}

func (h *Handler) handleSave(w http.ResponseWriter, r *http.Request) {
	session := auth.SessionFromContext(r.Context())

	templateID, ok := templateIDFromRequest(w, r)
	if !ok {
		return
	}

	var payload SavePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		pkg.SendJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.reconciler.Save(r.Context(), session.UserID, templateID, payload); err != nil {
		var validationErr *ValidationError
		switch {
		case errors.Is(err, ErrNotFound):
			pkg.SendJSONError(w, "not found", http.StatusNotFound)
		case errors.As(err, &validationErr):
			pkg.SendJSONError(w, validationErr.Reason, http.StatusBadRequest)
		case errors.Is(err, ErrStateConflict):
			pkg.SendJSONError(w, "template changed since loading, reload and retry", http.StatusConflict)
		default:
			log.Errorf("save template [%d / %d]: %s", session.UserID, templateID, err)
			pkg.SendJSONError(w, "save failed", http.StatusInternalServerError)
		}
		return
	}

	pkg.WriteJSONResponseOK(w, `{"success":true}`)
}

func (h *Handler) handleMove(w http.ResponseWriter, r *http.Request) {
	session := auth.SessionFromContext(r.Context())

	templateID, ok := templateIDFromRequest(w, r)
	if !ok {
		return
	}
	templateExerciseID, err := strconv.Atoi(mux.Vars(r)["teID"])
	if err != nil {
		pkg.SendJSONError(w, "invalid exercise row id", http.StatusBadRequest)
		return
	}

	direction := r.URL.Query().Get("direction")
	if direction != "up" && direction != "down" {
		pkg.SendJSONError(w, "direction must be up or down", http.StatusBadRequest)
		return
	}

	if err := h.repo.Move(r.Context(), session.UserID, templateID, templateExerciseID, direction == "up"); err != nil {
		if errors.Is(err, ErrNotFound) {
			pkg.SendJSONError(w, "not found", http.StatusNotFound)
			return
		}
		log.Errorf("move template exercise [%d / %d / %d]: %s",
			session.UserID, templateID, templateExerciseID, err)
		pkg.SendJSONError(w, "internal server error", http.StatusInternalServerError)
		return
	}
	pkg.WriteTextResponseOK(w, "moved")
}
