package users

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/2beens/fitlog/internal/auth"
	"github.com/2beens/fitlog/pkg"
)

const (
	minUsernameLength = 3
	minPasswordLength = 8
)

type usersRepo interface {
	Add(ctx context.Context, username, passwordHash string) (*User, error)
	GetByID(ctx context.Context, id int) (*User, error)
	All(ctx context.Context) ([]User, error)
	UpdatePassword(ctx context.Context, userID int, passwordHash string) error
	TouchLastActive(ctx context.Context, userID int) error
	Delete(ctx context.Context, userID int) error
}

type Handler struct {
	repo usersRepo
}

func NewHandler(repo usersRepo) *Handler {
	return &Handler{repo: repo}
}

// SetupAuthRoutes adds the endpoints reachable without a session.
func (h *Handler) SetupAuthRoutes(router *mux.Router) {
	router.HandleFunc("/register", h.handleRegister).Methods("POST", "OPTIONS").Name("register")
}

func (h *Handler) SetupRoutes(router *mux.Router) {
	router.HandleFunc("", h.handleList).Methods("GET", "OPTIONS").Name("users-list")
	router.HandleFunc("/me", h.handleGetMe).Methods("GET", "OPTIONS").Name("users-me")
	router.HandleFunc("/me", h.handleDeleteMe).Methods("DELETE", "OPTIONS").Name("users-delete-me")
	router.HandleFunc("/password", h.handleChangePassword).Methods("POST", "OPTIONS").Name("users-password")
	router.HandleFunc("/ping", h.handlePing).Methods("POST", "OPTIONS").Name("users-ping")
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := r.ParseForm(); err != nil {
		pkg.SendJSONError(w, "parse form error", http.StatusBadRequest)
		return
	}

	username := strings.TrimSpace(r.Form.Get("username"))
	password := r.Form.Get("password")
	if len(username) < minUsernameLength {
		pkg.SendJSONError(w, "username too short", http.StatusBadRequest)
		return
	}
	if len(password) < minPasswordLength {
		pkg.SendJSONError(w, "password too short", http.StatusBadRequest)
		return
	}

	passwordHash, err := pkg.HashPassword(password)
	if err != nil {
		log.Errorf("register: hash password: %s", err)
		pkg.SendJSONError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	user, err := h.repo.Add(ctx, username, passwordHash)
	if err != nil {
		if errors.Is(err, ErrUsernameTaken) {
			pkg.SendJSONError(w, "username taken", http.StatusConflict)
			return
		}
		log.Errorf("register [%s]: %s", username, err)
		pkg.SendJSONError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	log.Tracef("new user registered: %s", user.Username)
	h.writeUserJSON(w, user, http.StatusCreated)
}

func (h *Handler) handleGetMe(w http.ResponseWriter, r *http.Request) {
	session := auth.SessionFromContext(r.Context())
	user, err := h.repo.GetByID(r.Context(), session.UserID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			pkg.SendJSONError(w, "user not found", http.StatusNotFound)
			return
		}
		log.Errorf("get user [%d]: %s", session.UserID, err)
		pkg.SendJSONError(w, "internal server error", http.StatusInternalServerError)
		return
	}
	h.writeUserJSON(w, user, http.StatusOK)
}

func (h *Handler) handleDeleteMe(w http.ResponseWriter, r *http.Request) {
	session := auth.SessionFromContext(r.Context())
	if err := h.repo.Delete(r.Context(), session.UserID); err != nil {
		log.Errorf("delete user [%d]: %s", session.UserID, err)
		pkg.SendJSONError(w, "internal server error", http.StatusInternalServerError)
		return
	}
	log.Warnf("user [%s] deleted their account", session.Username)
	pkg.WriteTextResponseOK(w, "deleted")
}

func (h *Handler) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	session := auth.SessionFromContext(ctx)

	if err := r.ParseForm(); err != nil {
		pkg.SendJSONError(w, "parse form error", http.StatusBadRequest)
		return
	}

	oldPassword := r.Form.Get("old_password")
	newPassword := r.Form.Get("new_password")
	if len(newPassword) < minPasswordLength {
		pkg.SendJSONError(w, "password too short", http.StatusBadRequest)
		return
	}

	user, err := h.repo.GetByID(ctx, session.UserID)
	if err != nil {
		log.Errorf("change password: get user [%d]: %s", session.UserID, err)
		pkg.SendJSONError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	if !pkg.CheckPasswordHash(oldPassword, user.PasswordHash) {
		pkg.SendJSONError(w, "wrong password", http.StatusBadRequest)
		return
	}

	newHash, err := pkg.HashPassword(newPassword)
	if err != nil {
		log.Errorf("change password: hash: %s", err)
		pkg.SendJSONError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	if err := h.repo.UpdatePassword(ctx, session.UserID, newHash); err != nil {
		log.Errorf("change password: update [%d]: %s", session.UserID, err)
		pkg.SendJSONError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	pkg.WriteTextResponseOK(w, "updated")
}

func (h *Handler) handlePing(w http.ResponseWriter, r *http.Request) {
	session := auth.SessionFromContext(r.Context())
	if err := h.repo.TouchLastActive(r.Context(), session.UserID); err != nil {
		log.Errorf("ping: touch last active [%d]: %s", session.UserID, err)
	}
	pkg.WriteTextResponseOK(w, "pong")
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	session := auth.SessionFromContext(r.Context())
	if !session.IsAdmin {
		pkg.SendJSONError(w, "forbidden", http.StatusForbidden)
		return
	}

	allUsers, err := h.repo.All(r.Context())
	if err != nil {
		log.Errorf("list users: %s", err)
		pkg.SendJSONError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	respBytes, err := json.Marshal(allUsers)
	if err != nil {
		log.Errorf("list users: marshal: %s", err)
		pkg.SendJSONError(w, "internal server error", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, respBytes)
}

func (h *Handler) writeUserJSON(w http.ResponseWriter, user *User, statusCode int) {
	userBytes, err := json.Marshal(user)
	if err != nil {
		log.Errorf("marshal user: %s", err)
		pkg.SendJSONError(w, "internal server error", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, userBytes, statusCode)
}
