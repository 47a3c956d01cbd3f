package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/2beens/fitlog/internal/telemetry/metrics"
	"github.com/2beens/fitlog/pkg"
)

var ErrAccountNotFound = errors.New("account not found")

// Account is the stored-user snapshot needed to verify a login.
type Account struct {
	ID           int
	Username     string
	PasswordHash string
	IsAdmin      bool
	IsSuperuser  bool
}

type accountGetter interface {
	GetAccount(ctx context.Context, username string) (*Account, error)
}

type loginThrottle interface {
	Status(ctx context.Context, userID int) (bool, time.Time, error)
	RegisterFailure(ctx context.Context, userID int) (FailureOutcome, error)
	Reset(ctx context.Context, userID int) error
}

type Handler struct {
	accounts accountGetter
	sessions *Service
	throttle loginThrottle
	metrics  *metrics.Manager
}

func NewHandler(
	accounts accountGetter,
	sessions *Service,
	throttle loginThrottle,
	metricsManager *metrics.Manager,
) *Handler {
	return &Handler{
		accounts: accounts,
		sessions: sessions,
		throttle: throttle,
		metrics:  metricsManager,
	}
}

func (h *Handler) SetupRoutes(router *mux.Router) {
	router.HandleFunc("/login", h.handleLogin).Methods("POST", "OPTIONS").Name("login")
	router.HandleFunc("/logout", h.handleLogout).Methods("GET", "POST", "OPTIONS").Name("logout")
}

type loginResponse struct {
	Token       string `json:"token"`
	Username    string `json:"username"`
	IsAdmin     bool   `json:"isAdmin"`
	IsSuperuser bool   `json:"isSuperuser"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := r.ParseForm(); err != nil {
		log.Errorf("login: parse form: %s", err)
		pkg.SendJSONError(w, "parse form error", http.StatusBadRequest)
		return
	}

	username := r.Form.Get("username")
	password := r.Form.Get("password")
	if username == "" || password == "" {
		pkg.SendJSONError(w, "username and password required", http.StatusBadRequest)
		return
	}

	account, err := h.accounts.GetAccount(ctx, username)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			pkg.SendJSONError(w, "wrong credentials", http.StatusBadRequest)
			return
		}
		log.Errorf("login: get account [%s]: %s", username, err)
		pkg.SendJSONError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	locked, until, err := h.throttle.Status(ctx, account.ID)
	if err != nil {
		log.Errorf("login: throttle status [%s]: %s", username, err)
		pkg.SendJSONError(w, "internal server error", http.StatusInternalServerError)
		return
	}
	if locked {
		h.writeLocked(w, until)
		return
	}

	if !pkg.CheckPasswordHash(password, account.PasswordHash) {
		outcome, err := h.throttle.RegisterFailure(ctx, account.ID)
		if err != nil {
			log.Errorf("login: register failure [%s]: %s", username, err)
			pkg.SendJSONError(w, "internal server error", http.StatusInternalServerError)
			return
		}
		if outcome.Locked {
			h.metrics.CounterAccountLockouts.Inc()
			log.Warnf("login: account [%s] locked until %s", username, outcome.LockedUntil)
			h.writeLocked(w, outcome.LockedUntil)
			return
		}
		log.Tracef("login: wrong password for [%s], %d attempts left", username, outcome.AttemptsLeft)
		pkg.SendJSONError(w, "wrong credentials", http.StatusBadRequest)
		return
	}

	if err := h.throttle.Reset(ctx, account.ID); err != nil {
		log.Errorf("login: reset throttle [%s]: %s", username, err)
	}

	token, err := h.sessions.Login(ctx, account.ID, account.Username, account.IsAdmin, account.IsSuperuser)
	if err != nil {
		log.Errorf("login: create session [%s]: %s", username, err)
		pkg.SendJSONError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	log.Tracef("user [%s] logged in", username)

	respBytes, err := json.Marshal(loginResponse{
		Token:       token,
		Username:    account.Username,
		IsAdmin:     account.IsAdmin,
		IsSuperuser: account.IsSuperuser,
	})
	if err != nil {
		log.Errorf("login: marshal response: %s", err)
		pkg.SendJSONError(w, "internal server error", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, respBytes)
}

func (h *Handler) writeLocked(w http.ResponseWriter, until time.Time) {
	retryAfter := int(time.Until(until).Seconds())
	if retryAfter < 1 {
		retryAfter = 1
	}
	w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
	msg := fmt.Sprintf("account locked, try again in %s", time.Until(until).Round(time.Second))
	pkg.SendJSONError(w, msg, http.StatusForbidden)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	token := r.Header.Get("X-FITLOG-TOKEN")
	if token == "" {
		pkg.SendJSONError(w, "no token", http.StatusBadRequest)
		return
	}

	if err := h.sessions.Logout(ctx, token); err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			pkg.SendJSONError(w, "session not found", http.StatusBadRequest)
			return
		}
		log.Errorf("logout: %s", err)
		pkg.SendJSONError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	pkg.WriteTextResponseOK(w, "logged-out")
}
