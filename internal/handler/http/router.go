package http

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/webitel/push-bridge-service/internal/adapter/sdk"
	"github.com/webitel/push-bridge-service/internal/domain/event"
	"github.com/webitel/push-bridge-service/internal/domain/model"
	"github.com/webitel/push-bridge-service/internal/handler/ws"
	"github.com/webitel/push-bridge-service/internal/service"
)

const maxNativeBody = 1 << 20

// StatsSource yields the bridge snapshot.
type StatsSource interface {
	Stats() model.BridgeStats
}

// SessionCounter yields the number of open host sessions.
type SessionCounter interface {
	Sessions() int
}

type Handler struct {
	logger    *slog.Logger
	stats     StatsSource
	sessions  SessionCounter
	loopback  *sdk.Loopback
	displayer service.Displayer
}

func NewHandler(logger *slog.Logger, stats StatsSource, sessions SessionCounter, loopback *sdk.Loopback, displayer service.Displayer) *Handler {
	return &Handler{
		logger:    logger,
		stats:     stats,
		sessions:  sessions,
		loopback:  loopback,
		displayer: displayer,
	}
}

// NewRouter wires every HTTP route of the service.
func NewRouter(h *Handler, wsHandler *ws.WSHandler, gatherer prometheus.Gatherer, metrics *Metrics) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/stats", h.Stats)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	r.Method(http.MethodGet, "/ws", wsHandler)

	r.Post("/native/{event}", h.InjectNative)
	r.Post("/notifications/{id}/display", h.Display)
	r.Post("/notifications/{id}/prevent-default", h.PreventDefault)
	return r
}

func (h *Handler) Stats(w http.ResponseWriter, _ *http.Request) {
	st := h.stats.Stats()
	st.Sessions = h.sessions.Sessions()
	writeJSON(w, http.StatusOK, st)
}

type injectResponse struct {
	Event     string `json:"event"`
	Observers int    `json:"observers"`
}

// InjectNative plays a native SDK callback into the observer registry.
func (h *Handler) InjectNative(w http.ResponseWriter, r *http.Request) {
	name, err := event.ParseName(chi.URLParam(r, "event"))
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxNativeBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	n, _, err := h.loopback.FireJSON(name, body)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, event.ErrUnknownName) {
			status = http.StatusNotFound
		}
		writeError(w, status, err)
		return
	}

	h.logger.Debug("NATIVE_CALLBACK_INJECTED", "event", name, "observers", n)
	writeJSON(w, http.StatusAccepted, injectResponse{Event: name.String(), Observers: n})
}

func (h *Handler) Display(w http.ResponseWriter, r *http.Request) {
	h.decide(w, h.displayer.Display(chi.URLParam(r, "id")))
}

func (h *Handler) PreventDefault(w http.ResponseWriter, r *http.Request) {
	h.decide(w, h.displayer.PreventDefault(chi.URLParam(r, "id")))
}

func (h *Handler) decide(w http.ResponseWriter, ok bool) {
	if !ok {
		writeError(w, http.StatusNotFound, errors.New("no parked notification"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
