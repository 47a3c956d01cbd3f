package catalog

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

const maxSuggestLimit = 25

type store interface {
	Kind() Kind
	Visible(ctx context.Context, userID int) ([]Item, error)
	GetByID(ctx context.Context, userID, id int) (*Item, error)
	Suggest(ctx context.Context, userID int, query string, limit int) ([]Item, error)
	Insert(ctx context.Context, params InsertParams) (*Item, error)
	Update(ctx context.Context, id int, params UpdateParams) error
	Delete(ctx context.Context, id int) error
}

type notesStore interface {
	Upsert(ctx context.Context, userID, exerciseID int, notes string) error
	Get(ctx context.Context, userID, exerciseID int) (string, error)
	AllForUser(ctx context.Context, userID int) (map[int]string, error)
	Delete(ctx context.Context, userID, exerciseID int) error
}

type Handler struct {
	stores map[Kind]store
	notes  notesStore
	cache  *SuggestCache
}

func NewHandler(exercises, foods store, notes notesStore, cache *SuggestCache) *Handler {
	return &Handler{
		stores: map[Kind]store{
			KindExercise: exercises,
			KindFood:     foods,
		},
		notes: notes,
		cache: cache,
	}
}

// SetupSuggestRoutes adds the autosuggest endpoints.
func (h *Handler) SetupSuggestRoutes(router *mux.Router) {
	router.HandleFunc("/{kind}", h.handleSuggest).Methods("GET", "OPTIONS").Name("suggest")
}

func (h *Handler) SetupRoutes(router *mux.Router) {
	router.HandleFunc("/{kind}", h.handleList).Methods("GET", "OPTIONS").Name("catalog-list")
	router.HandleFunc("/{kind}", h.handleAdd).Methods("POST", "OPTIONS").Name("catalog-add")
	// registered before /{kind}/{id} so "notes" is not parsed as an id
	router.HandleFunc("/exercise/notes", h.handleAllNotes).Methods("GET", "OPTIONS").Name("exercise-notes-all")
	router.HandleFunc("/{kind}/{id}", h.handleGet).Methods("GET", "OPTIONS").Name("catalog-get")
	router.HandleFunc("/{kind}/{id}", h.handleUpdate).Methods("PUT", "OPTIONS").Name("catalog-update")
	router.HandleFunc("/{kind}/{id}", h.handleDelete).Methods("DELETE", "OPTIONS").Name("catalog-delete")
	router.HandleFunc("/exercise/{id}/notes", h.handleGetNotes).Methods("GET", "OPTIONS").Name("exercise-notes-get")
	router.HandleFunc("/exercise/{id}/notes", h.handleSetNotes).Methods("PUT", "OPTIONS").Name("exercise-notes-set")
	router.HandleFunc("/exercise/{id}/notes", h.handleDeleteNotes).Methods("DELETE", "OPTIONS").Name("exercise-notes-delete")
}

func (h *Handler) storeFromRequest(w http.ResponseWriter, r *http.Request) (store, bool) {
	kind, err := KindFromString(mux.Vars(r)["kind"])
	if err != nil {
		pkg.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return nil, false
	}
	return h.stores[kind], true
}

func itemIDFromRequest(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		pkg.SendJSONError(w, "invalid id", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func (h *Handler) handleSuggest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	session := auth.SessionFromContext(ctx)

	catalogStore, ok := h.storeFromRequest(w, r)
	if !ok {
		return
	}

	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		pkg.SendJSONError(w, "missing query", http.StatusBadRequest)
		return
	}

	limit := DefaultSuggestLimit
	if limitParam := r.URL.Query().Get("limit"); limitParam != "" {
		parsed, err := strconv.Atoi(limitParam)
		if err != nil || parsed < 1 {
			pkg.SendJSONError(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = parsed
	}
	if limit > maxSuggestLimit {
		limit = maxSuggestLimit
	}

	kind := catalogStore.Kind()
	if items, found := h.cache.Get(kind, session.UserID, query, limit); found {
		h.writeSuggestions(w, items)
		return
	}

	items, err := catalogStore.Suggest(ctx, session.UserID, query, limit)
	if err != nil {
		log.Errorf("suggest %s [%s]: %s", kind, query, err)
		pkg.SendJSONError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	h.cache.Set(kind, session.UserID, query, limit, items)
	h.writeSuggestions(w, items)
}

type suggestion struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	IsGlobal bool   `json:"is_global"`
}

func (h *Handler) writeSuggestions(w http.ResponseWriter, items []Item) {
	results := make([]suggestion, 0, len(items))
	for i := range items {
		results = append(results, suggestion{
			ID:       items[i].ID,
			Name:     items[i].Name,
			IsGlobal: items[i].Global(),
		})
	}
	respBytes, err := json.Marshal(map[string][]suggestion{"results": results})
	if err != nil {
		log.Errorf("marshal suggestions: %s", err)
		pkg.SendJSONError(w, "internal server error", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, respBytes)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	session := auth.SessionFromContext(ctx)

	catalogStore, ok := h.storeFromRequest(w, r)
	if !ok {
		return
	}

	items, err := catalogStore.Visible(ctx, session.UserID)
	if err != nil {
		log.Errorf("list %s: %s", catalogStore.Kind(), err)
		pkg.SendJSONError(w, "internal server error", http.StatusInternalServerError)
		return
	}
	h.writeItems(w, items)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	session := auth.SessionFromContext(ctx)

	catalogStore, ok := h.storeFromRequest(w, r)
	if !ok {
		return
	}
	id, ok := itemIDFromRequest(w, r)
	if !ok {
		return
	}

	item, err := catalogStore.GetByID(ctx, session.UserID, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			pkg.SendJSONError(w, "not found", http.StatusNotFound)
			return
		}
		log.Errorf("get %s %d: %s", catalogStore.Kind(), id, err)
		pkg.SendJSONError(w, "internal server error", http.StatusInternalServerError)
		return
	}
	h.writeItem(w, item, http.StatusOK)
}

type addItemRequest struct {
	Name   string `json:"name"`
	Global bool   `json:"global"`

	RefWeight *float64 `json:"refWeight"`
	Protein   *float64 `json:"protein"`
	Carbs     *float64 `json:"carbs"`
	Fat       *float64 `json:"fat"`
}

func (h *Handler) handleAdd(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	session := auth.SessionFromContext(ctx)

	catalogStore, ok := h.storeFromRequest(w, r)
	if !ok {
		return
	}

	var req addItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkg.SendJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		pkg.SendJSONError(w, "name required", http.StatusBadRequest)
		return
	}
	if req.Global && !CanManageGlobal(session) {
		pkg.SendJSONError(w, "forbidden", http.StatusForbidden)
		return
	}

	params := InsertParams{
		Name:      req.Name,
		RefWeight: req.RefWeight,
		Protein:   req.Protein,
		Carbs:     req.Carbs,
		Fat:       req.Fat,
	}
	if !req.Global {
		userID := session.UserID
		params.OwnerID = &userID
	}

	item, err := catalogStore.Insert(ctx, params)
	if err != nil {
		if errors.Is(err, ErrNameTaken) {
			pkg.SendJSONError(w, "name already taken", http.StatusConflict)
			return
		}
		log.Errorf("add %s [%s]: %s", catalogStore.Kind(), req.Name, err)
		pkg.SendJSONError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	h.cache.Clear()
	h.writeItem(w, item, http.StatusCreated)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	session := auth.SessionFromContext(ctx)

	catalogStore, ok := h.storeFromRequest(w, r)
	if !ok {
		return
	}
	id, ok := itemIDFromRequest(w, r)
	if !ok {
		return
	}

	item, err := catalogStore.GetByID(ctx, session.UserID, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			pkg.SendJSONError(w, "not found", http.StatusNotFound)
			return
		}
		log.Errorf("update %s %d: get: %s", catalogStore.Kind(), id, err)
		pkg.SendJSONError(w, "internal server error", http.StatusInternalServerError)
		return
	}
	if !CanMutate(session, item) {
		pkg.SendJSONError(w, "forbidden", http.StatusForbidden)
		return
	}

	var req addItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkg.SendJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		pkg.SendJSONError(w, "name required", http.StatusBadRequest)
		return
	}

	if err := catalogStore.Update(ctx, id, UpdateParams{
		Name:      req.Name,
		RefWeight: req.RefWeight,
		Protein:   req.Protein,
		Carbs:     req.Carbs,
		Fat:       req.Fat,
	}); err != nil {
		if errors.Is(err, ErrNameTaken) {
			pkg.SendJSONError(w, "name already taken", http.StatusConflict)
			return
		}
		log.Errorf("update %s %d: %s", catalogStore.Kind(), id, err)
		pkg.SendJSONError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	h.cache.Clear()
	pkg.WriteTextResponseOK(w, "updated")
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	session := auth.SessionFromContext(ctx)

	catalogStore, ok := h.storeFromRequest(w, r)
	if !ok {
		return
	}
	id, ok := itemIDFromRequest(w, r)
	if !ok {
		return
	}

	item, err := catalogStore.GetByID(ctx, session.UserID, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			pkg.SendJSONError(w, "not found", http.StatusNotFound)
			return
		}
		log.Errorf("delete %s %d: get: %s", catalogStore.Kind(), id, err)
		pkg.SendJSONError(w, "internal server error", http.StatusInternalServerError)
		return
	}
	if !CanMutate(session, item) {
		pkg.SendJSONError(w, "forbidden", http.StatusForbidden)
		return
	}

	if err := catalogStore.Delete(ctx, id); err != nil {
		log.Errorf("delete %s %d: %s", catalogStore.Kind(), id, err)
		pkg.SendJSONError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	h.cache.Clear()
	pkg.WriteTextResponseOK(w, "deleted")
}

func (h *Handler) handleAllNotes(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	session := auth.SessionFromContext(ctx)

	notesPerExercise, err := h.notes.AllForUser(ctx, session.UserID)
	if err != nil {
		log.Errorf("get all exercise notes for user %d: %s", session.UserID, err)
		pkg.SendJSONError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	respBytes, err := json.Marshal(map[string]map[int]string{"notes": notesPerExercise})
	if err != nil {
		pkg.SendJSONError(w, "internal server error", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, respBytes)
}

func (h *Handler) handleGetNotes(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	session := auth.SessionFromContext(ctx)

	id, ok := itemIDFromRequest(w, r)
	if !ok {
		return
	}

	notes, err := h.notes.Get(ctx, session.UserID, id)
	if err != nil {
		log.Errorf("get notes for exercise %d: %s", id, err)
		pkg.SendJSONError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	respBytes, err := json.Marshal(map[string]string{"notes": notes})
	if err != nil {
		pkg.SendJSONError(w, "internal server error", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, respBytes)
}

func (h *Handler) handleSetNotes(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	session := auth.SessionFromContext(ctx)

	id, ok := itemIDFromRequest(w, r)
	if !ok {
		return
	}

	var req struct {
		Notes string `json:"notes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkg.SendJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	// confirm the exercise is visible to this user before attaching a note
	if _, err := h.stores[KindExercise].GetByID(ctx, session.UserID, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			pkg.SendJSONError(w, "not found", http.StatusNotFound)
			return
		}
		log.Errorf("set notes for exercise %d: get: %s", id, err)
		pkg.SendJSONError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	if err := h.notes.Upsert(ctx, session.UserID, id, req.Notes); err != nil {
		log.Errorf("set notes for exercise %d: %s", id, err)
		pkg.SendJSONError(w, "internal server error", http.StatusInternalServerError)
		return
	}
	pkg.WriteTextResponseOK(w, "saved")
}

func (h *Handler) handleDeleteNotes(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	session := auth.SessionFromContext(ctx)

	id, ok := itemIDFromRequest(w, r)
	if !ok {
		return
	}

	if err := h.notes.Delete(ctx, session.UserID, id); err != nil {
		log.Errorf("delete notes for exercise %d: %s", id, err)
		pkg.SendJSONError(w, "internal server error", http.StatusInternalServerError)
		return
	}
	pkg.WriteTextResponseOK(w, "deleted")
}

func (h *Handler) writeItems(w http.ResponseWriter, items []Item) {
	if items == nil {
		items = []Item{}
	}
	itemsJson, err := json.Marshal(items)
	if err != nil {
		log.Errorf("marshal catalog items: %s", err)
		pkg.SendJSONError(w, "internal server error", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, itemsJson)
}

func (h *Handler) writeItem(w http.ResponseWriter, item *Item, statusCode int) {
	itemJson, err := json.Marshal(item)
	if err != nil {
		log.Errorf("marshal catalog item: %s", err)
		pkg.SendJSONError(w, "internal server error", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, itemJson, statusCode)
}
