// Package gateway is the mnemo HTTP/WebSocket surface: chat, memory admin,
// consolidation triggers, and event history.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/mnemo-ai/mnemo/internal/assistant"
	"github.com/mnemo-ai/mnemo/internal/events"
	"github.com/mnemo-ai/mnemo/internal/gateway/ws"
	"github.com/mnemo-ai/mnemo/internal/memory"
	"github.com/mnemo-ai/mnemo/internal/scanner"
	"github.com/mnemo-ai/mnemo/internal/storage"
)

// Config wires a Server.
type Config struct {
	Host      string
	Port      int
	Bus       *events.Bus
	Assistant *assistant.Assistant
	Scanner   *scanner.Scanner
	Store     *memory.VectorStore
	Audit     *storage.AuditLog // optional
	Dispatch  *Dispatcher
}

// Server is the mnemo gateway HTTP server.
type Server struct {
	httpServer *http.Server
	hub        *ws.Hub
	bus        *events.Bus
	assistant  *assistant.Assistant
	scanner    *scanner.Scanner
	store      *memory.VectorStore
	audit      *storage.AuditLog
}

// NewServer creates a gateway server and its WebSocket hub.
func NewServer(cfg Config) *Server {
	hub := ws.NewHub(cfg.Bus)
	if cfg.Dispatch != nil {
		hub.SetChatHandler(cfg.Dispatch)
	}

	s := &Server{
		hub:       hub,
		bus:       cfg.Bus,
		assistant: cfg.Assistant,
		scanner:   cfg.Scanner,
		store:     cfg.Store,
		audit:     cfg.Audit,
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)

	r.Get("/api/health", s.handleHealth)
	r.Get("/api/status", s.handleStatus)
	r.Get("/api/ws", hub.ServeWS)
	r.Get("/api/events", s.handleEvents)

	r.Post("/api/chat", s.handleChat)
	r.Delete("/api/history/{conversation}", s.handleClearHistory)

	r.Post("/api/consolidate/{source}", s.handleConsolidate)
	r.Post("/api/watch/{source}", s.handleWatch)
	r.Delete("/api/watch/{source}", s.handleUnwatch)

	r.Get("/api/memories", s.handleMemories)
	r.Get("/api/memories/search", s.handleMemorySearch)
	r.Delete("/api/memories/{id}", s.handleMemoryDelete)
	r.Get("/api/audit", s.handleAudit)

	s.httpServer = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler: r,
	}

	return s
}

// Hub exposes the WebSocket hub so the conversation source can deliver
// through it.
func (s *Server) Hub() *ws.Hub {
	return s.hub
}

// Start begins listening. It blocks until the server is stopped.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return err
	}
	slog.Info("mnemo gateway listening", "addr", ln.Addr().String())
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.hub.Close()
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	watched := s.scanner.Watched()
	states := make(map[string]string, len(watched))
	for _, id := range watched {
		states[id] = string(s.scanner.StateOf(id))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"watched": watched,
		"states":  states,
		"facts":   s.store.Count(),
	})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ConversationID string `json:"conversation_id"`
		RequesterID    string `json:"requester_id"`
		Text           string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.ConversationID == "" || req.RequesterID == "" || req.Text == "" {
		http.Error(w, "conversation_id, requester_id and text are required", http.StatusBadRequest)
		return
	}

	answer, err := s.assistant.HandleRequest(r.Context(), req.ConversationID, req.RequesterID, req.Text)
	if err != nil {
		if errors.Is(err, assistant.ErrBudgetExceeded) {
			http.Error(w, err.Error(), http.StatusTooManyRequests)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"answer": answer})
}

func (s *Server) handleClearHistory(w http.ResponseWriter, r *http.Request) {
	s.assistant.ClearHistory(chi.URLParam(r, "conversation"))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleConsolidate(w http.ResponseWriter, r *http.Request) {
	sourceID := chi.URLParam(r, "source")
	if err := s.scanner.ConsolidateNow(r.Context(), sourceID); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "done", "source": sourceID})
}

func (s *Server) handleWatch(w http.ResponseWriter, r *http.Request) {
	sourceID := chi.URLParam(r, "source")
	s.scanner.Watch(sourceID)
	writeJSON(w, http.StatusOK, map[string]any{"watched": s.scanner.Watched()})
}

func (s *Server) handleUnwatch(w http.ResponseWriter, r *http.Request) {
	sourceID := chi.URLParam(r, "source")
	s.scanner.Unwatch(sourceID)
	writeJSON(w, http.StatusOK, map[string]any{"watched": s.scanner.Watched()})
}

func (s *Server) handleMemories(w http.ResponseWriter, r *http.Request) {
	facts := s.store.List()
	if limit := queryInt(r, "limit", 0); limit > 0 && limit < len(facts) {
		facts = facts[len(facts)-limit:]
	}
	writeJSON(w, http.StatusOK, facts)
}

func (s *Server) handleMemorySearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		http.Error(w, "q is required", http.StatusBadRequest)
		return
	}

	hits, err := s.store.SearchText(r.Context(), q, queryInt(r, "limit", 8))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, hits)
}

func (s *Server) handleMemoryDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.store.Delete(r.Context(), id); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAudit(w http.ResponseWriter, r *http.Request) {
	if s.audit == nil {
		http.Error(w, "audit log not available", http.StatusServiceUnavailable)
		return
	}

	records, err := s.audit.Recent(r.Context(), r.URL.Query().Get("source"), queryInt(r, "limit", 50))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	history := s.bus.History(queryInt(r, "limit", 50))

	type eventJSON struct {
		ID             string             `json:"id"`
		ConversationID string             `json:"conversation_id,omitempty"`
		Type           string             `json:"type"`
		Timestamp      string             `json:"timestamp"`
		Source         events.EventSource `json:"source"`
		Payload        map[string]any     `json:"payload"`
	}

	result := make([]eventJSON, len(history))
	for i, e := range history {
		result[i] = eventJSON{
			ID:             e.ID,
			ConversationID: e.ConversationID,
			Type:           string(e.Type),
			Timestamp:      e.Timestamp.Format(time.RFC3339Nano),
			Source:         e.Source,
			Payload:        e.Payload,
		}
	}
	writeJSON(w, http.StatusOK, result)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}
