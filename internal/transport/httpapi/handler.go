// Package httpapi exposes the app over a local JSON HTTP API for the UI and
// the reminder service worker.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/roach88/givemewater/internal/analytics"
	"github.com/roach88/givemewater/internal/daykey"
	"github.com/roach88/givemewater/internal/engine"
	"github.com/roach88/givemewater/internal/model"
	"github.com/roach88/givemewater/internal/retention"
	"github.com/roach88/givemewater/internal/state"
)

// Service is the app surface the API drives. Implemented by *app.App.
type Service interface {
	Now() time.Time
	State() model.AppState
	Refresh() model.AppState

	AddDrink(ctx context.Context, drinkID string, rawAmountML int, source model.Source) (model.HydrationEvent, error)
	QuickAdd(ctx context.Context, amountML int, source model.Source) (model.HydrationEvent, error)
	SetGoal(goal int) error
	UpdateSettings(patch model.SettingsPatch) error

	SignIn(ctx context.Context, s engine.Session) error
	SignOut()
	Sync(ctx context.Context) []model.Result
	ResetAllData(ctx context.Context) model.Result
	RegisterPushSubscription(ctx context.Context, sub model.PushSubscription) model.Result
}

// RetentionFunc runs server-side monthly compaction for a user.
type RetentionFunc func(ctx context.Context, userID string) (retention.RemoteReport, error)

// Options configures a Handler.
type Options struct {
	Service  Service
	Verifier TokenVerifier // nil disables /login and /admin routes
	Logger   *slog.Logger

	// Retention backs POST /admin/monthly-retention. Nil disables the route.
	Retention RetentionFunc
}

// Handler serves the API.
type Handler struct {
	svc       Service
	verifier  TokenVerifier
	retention RetentionFunc
	log       *slog.Logger
	router    *mux.Router
}

// New builds the router with its middleware chain.
func New(opts Options) *Handler {
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	h := &Handler{
		svc:       opts.Service,
		verifier:  opts.Verifier,
		retention: opts.Retention,
		log:       log.With("component", "httpapi"),
	}

	r := mux.NewRouter()
	r.HandleFunc("/healthz", h.health).Methods(http.MethodGet)
	r.HandleFunc("/state", h.getState).Methods(http.MethodGet)
	r.HandleFunc("/progress", h.progress).Methods(http.MethodGet)
	r.HandleFunc("/events", h.addEvent).Methods(http.MethodPost)
	r.HandleFunc("/quick-add", h.quickAdd).Methods(http.MethodPost)
	r.HandleFunc("/goal", h.setGoal).Methods(http.MethodPut)
	r.HandleFunc("/settings", h.updateSettings).Methods(http.MethodPatch)
	r.HandleFunc("/login", h.login).Methods(http.MethodPost)
	r.HandleFunc("/logout", h.logout).Methods(http.MethodPost)
	r.HandleFunc("/sync", h.sync).Methods(http.MethodPost)
	r.HandleFunc("/reset", h.reset).Methods(http.MethodPost)
	r.HandleFunc("/push-subscriptions", h.registerPush).Methods(http.MethodPost)
	r.HandleFunc("/analytics/weekly", h.weekly).Methods(http.MethodGet)
	r.HandleFunc("/analytics/monthly", h.monthly).Methods(http.MethodGet)
	r.HandleFunc("/admin/monthly-retention", h.monthlyRetention).Methods(http.MethodPost)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, codeNotFound, "not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, codeBadRequest, "method not allowed")
	})

	r.Use(mux.MiddlewareFunc(RequestID))
	r.Use(mux.MiddlewareFunc(Recovery(log)))
	r.Use(mux.MiddlewareFunc(Auth(opts.Verifier)))
	r.Use(mux.MiddlewareFunc(Logger(log)))

	h.router = r
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) getState(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Refresh())
}

// ProgressResponse is today's view.
type ProgressResponse struct {
	DayKey       string                 `json:"dayKey"`
	Current      int                    `json:"current"`
	Goal         int                    `json:"goal"`
	Percentage   float64                `json:"percentage"`
	Today        []model.HydrationEvent `json:"today"`
	PendingCount int                    `json:"pendingCount"`
	SignedIn     bool                   `json:"signedIn"`
}

func (h *Handler) progress(w http.ResponseWriter, _ *http.Request) {
	st := h.svc.Refresh()
	now := h.svc.Now()

	today := state.TodayHistory(st, now)
	if today == nil {
		today = []model.HydrationEvent{}
	}
	writeJSON(w, http.StatusOK, ProgressResponse{
		DayKey:       daykey.DayKey(now, st.Settings.EndOfDayTime),
		Current:      st.Current,
		Goal:         st.Goal,
		Percentage:   state.ProgressPercentage(st),
		Today:        today,
		PendingCount: st.Sync.PendingCount,
		SignedIn:     st.Sync.SignedIn(),
	})
}

// AddEventRequest is the body of POST /events.
type AddEventRequest struct {
	DrinkID  string       `json:"drinkId"`
	AmountML int          `json:"amountMl"`
	Source   model.Source `json:"source,omitempty"`
}

func (h *Handler) addEvent(w http.ResponseWriter, r *http.Request) {
	var req AddEventRequest
	if !decodeBody(w, r, &req) {
		return
	}

	ev, err := h.svc.AddDrink(r.Context(), req.DrinkID, req.AmountML, req.Source)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, ev)
}

// QuickAddRequest is the optional body of POST /quick-add. The amount may
// also come from the amount query parameter.
type QuickAddRequest struct {
	AmountML int          `json:"amountMl"`
	Source   model.Source `json:"source,omitempty"`
}

func (h *Handler) quickAdd(w http.ResponseWriter, r *http.Request) {
	var req QuickAddRequest
	if v := r.URL.Query().Get("amount"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, codeBadRequest, "amount must be an integer")
			return
		}
		req.AmountML = n
		req.Source = model.Source(r.URL.Query().Get("source"))
	} else if !decodeBody(w, r, &req) {
		return
	}

	ev, err := h.svc.QuickAdd(r.Context(), req.AmountML, req.Source)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, ev)
}

func (h *Handler) setGoal(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Goal int `json:"goal"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.svc.SetGoal(req.Goal); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.svc.State())
}

func (h *Handler) updateSettings(w http.ResponseWriter, r *http.Request) {
	var patch model.SettingsPatch
	if !decodeBody(w, r, &patch) {
		return
	}
	if err := h.svc.UpdateSettings(patch); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.svc.State().Settings)
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	s, ok := h.requireSession(w, r)
	if !ok {
		return
	}
	if err := h.svc.SignIn(r.Context(), s); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.svc.State().Sync)
}

func (h *Handler) logout(w http.ResponseWriter, _ *http.Request) {
	h.svc.SignOut()
	writeJSON(w, http.StatusOK, h.svc.State().Sync)
}

func (h *Handler) sync(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Sync(r.Context()))
}

func (h *Handler) reset(w http.ResponseWriter, r *http.Request) {
	res := h.svc.ResetAllData(r.Context())
	if !res.Success {
		writeError(w, http.StatusBadGateway, codeRemote, res.Message)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) registerPush(w http.ResponseWriter, r *http.Request) {
	var sub model.PushSubscription
	if !decodeBody(w, r, &sub) {
		return
	}
	if sub.UserAgent == "" {
		sub.UserAgent = r.UserAgent()
	}
	res := h.svc.RegisterPushSubscription(r.Context(), sub)
	if !res.Success {
		writeError(w, http.StatusBadGateway, codeRemote, res.Message)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) weekly(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, analytics.Weekly(h.svc.Refresh(), h.svc.Now()))
}

func (h *Handler) monthly(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, analytics.MonthlySeries(h.svc.Refresh(), h.svc.Now()))
}

func (h *Handler) monthlyRetention(w http.ResponseWriter, r *http.Request) {
	if h.retention == nil {
		writeError(w, http.StatusNotFound, codeNotFound, "remote retention not configured")
		return
	}
	s, ok := h.requireSession(w, r)
	if !ok {
		return
	}

	report, err := h.retention(r.Context(), s.UserID)
	if err != nil {
		h.log.ErrorContext(r.Context(), "remote retention failed",
			slog.String("user_id", s.UserID), slog.String("error", err.Error()))
		writeError(w, http.StatusBadGateway, codeRemote, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (h *Handler) requireSession(w http.ResponseWriter, r *http.Request) (engine.Session, bool) {
	if h.verifier == nil {
		writeError(w, http.StatusNotFound, codeNotFound, "authentication not configured")
		return engine.Session{}, false
	}
	s, ok := SessionFromCtx(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, codeUnauthorized, "bearer token required")
		return engine.Session{}, false
	}
	return s, true
}

// writeDomainError maps app errors to client errors; anything unknown is a
// 500.
func (h *Handler) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, model.ErrUnknownDrink):
		writeError(w, http.StatusBadRequest, codeUnknownDrink, err.Error())
	case errors.Is(err, model.ErrInvalidAmount),
		errors.Is(err, model.ErrInvalidGoal),
		errors.Is(err, model.ErrInvalidSettings),
		errors.Is(err, engine.ErrInvalidSession):
		writeError(w, http.StatusBadRequest, codeInvalidInput, err.Error())
	default:
		h.log.ErrorContext(r.Context(), "request failed",
			slog.String("path", r.URL.Path), slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, codeInternal, "internal server error")
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "invalid JSON body: "+err.Error())
		return false
	}
	return true
}
