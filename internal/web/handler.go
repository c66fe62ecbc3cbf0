package web

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/heimgewebe/mitschreiber/internal/config"
	"github.com/heimgewebe/mitschreiber/internal/models"
	"github.com/heimgewebe/mitschreiber/internal/reporter"
)

const defaultEventLimit = 100

// Journal is the read side of the event journal
type Journal interface {
	reporter.Source
	GetStates(sessionID string, limit int) ([]*models.StateEvent, error)
	GetLatest(sessionID string) (*models.StateEvent, error)
	ListSessions() ([]models.SessionInfo, error)
}

// Live reports on sampler sessions running in this process
type Live interface {
	Sessions() []string
	Buffered(id string) int
}

type Handler struct {
	config   *config.Config
	journal  Journal
	reporter *reporter.Reporter
	live     Live
	metrics  http.Handler
	log      *zap.Logger
}

// NewHandler wires the API handlers. live and metrics may be nil.
func NewHandler(cfg *config.Config, journal Journal, live Live, metrics http.Handler, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{
		config:   cfg,
		journal:  journal,
		reporter: reporter.New(journal),
		live:     live,
		metrics:  metrics,
		log:      log,
	}
}

func (h *Handler) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/sessions", h.handleSessions)
	mux.HandleFunc("GET /api/sessions/{id}/events", h.handleEvents)
	mux.HandleFunc("GET /api/sessions/{id}/latest", h.handleLatestEvent)
	mux.HandleFunc("GET /api/sessions/{id}/report", h.handleReport)
	mux.HandleFunc("GET /api/status", h.handleStatus)

	mux.HandleFunc("GET /health", h.handleHealth)

	if h.metrics != nil {
		mux.Handle("GET /metrics", h.metrics)
	}
}

func (h *Handler) handleSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.journal.ListSessions()
	if err != nil {
		h.fail(w, "failed to list sessions", err)
		return
	}
	if sessions == nil {
		sessions = []models.SessionInfo{}
	}

	h.respondJSON(w, sessions)
}

func (h *Handler) handleEvents(w http.ResponseWriter, r *http.Request) {
	limit := defaultEventLimit
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		l, err := strconv.Atoi(limitStr)
		if err != nil || l <= 0 {
			http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = l
	}

	events, err := h.journal.GetStates(r.PathValue("id"), limit)
	if err != nil {
		h.fail(w, "failed to fetch events", err)
		return
	}
	if events == nil {
		events = []*models.StateEvent{}
	}

	h.respondJSON(w, events)
}

func (h *Handler) handleLatestEvent(w http.ResponseWriter, r *http.Request) {
	event, err := h.journal.GetLatest(r.PathValue("id"))
	if err != nil {
		h.fail(w, "failed to fetch latest event", err)
		return
	}

	if event == nil {
		http.Error(w, "No events found", http.StatusNotFound)
		return
	}

	h.respondJSON(w, event)
}

func (h *Handler) handleReport(w http.ResponseWriter, r *http.Request) {
	interval := h.config.Sampler.PollInterval
	if ms := r.URL.Query().Get("interval_ms"); ms != "" {
		n, err := strconv.Atoi(ms)
		if err != nil || n <= 0 {
			http.Error(w, "interval_ms must be a positive integer", http.StatusBadRequest)
			return
		}
		interval = time.Duration(n) * time.Millisecond
	}

	report, err := h.reporter.GenerateReport(r.PathValue("id"), interval)
	if err != nil {
		h.fail(w, "failed to generate report", err)
		return
	}

	h.respondJSON(w, report)
}

type liveSession struct {
	ID       string `json:"session"`
	Buffered int    `json:"buffered"`
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	live := []liveSession{}
	if h.live != nil {
		for _, id := range h.live.Sessions() {
			live = append(live, liveSession{ID: id, Buffered: h.live.Buffered(id)})
		}
	}

	status := map[string]interface{}{
		"poll_interval": h.config.Sampler.PollInterval.String(),
		"journal_path":  h.config.Journal.Path,
		"sessions":      live,
	}

	if latest, err := h.journal.GetLatest(""); err == nil && latest != nil {
		status["latest_event"] = latest
	}

	h.respondJSON(w, status)
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}

func (h *Handler) fail(w http.ResponseWriter, msg string, err error) {
	h.log.Warn(msg, zap.Error(err))
	http.Error(w, msg+": "+err.Error(), http.StatusInternalServerError)
}

func (h *Handler) respondJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error("error encoding JSON", zap.Error(err))
	}
}
