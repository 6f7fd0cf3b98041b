package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/cloudwego/eino/components/embedding"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/mnemo-ai/mnemo/internal/assistant"
	"github.com/mnemo-ai/mnemo/internal/events"
	"github.com/mnemo-ai/mnemo/internal/memory"
	"github.com/mnemo-ai/mnemo/internal/scanner"
	"github.com/mnemo-ai/mnemo/internal/sessions"
	"github.com/mnemo-ai/mnemo/internal/source"
	"github.com/mnemo-ai/mnemo/internal/storage"
)

// hashEmbedder produces deterministic unit vectors, no network involved.
type hashEmbedder struct{}

func (hashEmbedder) EmbedStrings(_ context.Context, texts []string, _ ...embedding.Option) ([][]float64, error) {
	out := make([][]float64, len(texts))
	for i, text := range texts {
		v := make([]float64, 8)
		for j, r := range text {
			v[j%8] += float64(r%13) + 1
		}
		var norm float64
		for _, x := range v {
			norm += x * x
		}
		norm = math.Sqrt(norm)
		if norm == 0 {
			norm = 1
		}
		for j := range v {
			v[j] /= norm
		}
		out[i] = v
	}
	return out, nil
}

// cannedModel always answers with the same text.
type cannedModel struct{ answer string }

func (m *cannedModel) Generate(context.Context, []*schema.Message, ...model.Option) (*schema.Message, error) {
	return &schema.Message{Role: schema.Assistant, Content: m.answer}, nil
}

func (m *cannedModel) Stream(context.Context, []*schema.Message, ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("not streamed")
}

func (m *cannedModel) WithTools([]*schema.ToolInfo) (model.ToolCallingChatModel, error) {
	return m, nil
}

type noopRunner struct{}

func (noopRunner) RunPass(context.Context, string, []source.Turn) ([]memory.AuditEntry, error) {
	return nil, nil
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	bus := events.NewBus(64)
	t.Cleanup(func() { bus.Close() })

	store, err := memory.NewVectorStore(t.TempDir(), hashEmbedder{})
	if err != nil {
		t.Fatalf("NewVectorStore: %v", err)
	}

	audit, err := storage.OpenAuditLog(filepath.Join(t.TempDir(), "audit.db"))
	if err != nil {
		t.Fatalf("OpenAuditLog: %v", err)
	}
	t.Cleanup(func() { audit.Close() })

	hub := source.NewChannelHub(nil)
	a, err := assistant.New(context.Background(), assistant.Config{
		Model:    &cannedModel{answer: `{"type": "answer", "content": "hello there"}`},
		Sessions: sessions.NewRegistry(10, 5*time.Minute),
		Source:   hub,
		Replies:  hub,
		Bus:      bus,
	})
	if err != nil {
		t.Fatalf("assistant.New: %v", err)
	}

	sc := scanner.New(scanner.Config{
		Source:  hub,
		Runner:  noopRunner{},
		Sources: []string{"general"},
	})

	srv := NewServer(Config{
		Host:      "localhost",
		Port:      0,
		Bus:       bus,
		Assistant: a,
		Scanner:   sc,
		Store:     store,
		Audit:     audit,
		Dispatch:  NewDispatcher(hub, a),
	})
	t.Cleanup(func() { srv.hub.Close() })
	return srv
}

func do(srv *Server, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	srv.httpServer.Handler.ServeHTTP(w, req)
	return w
}

func TestHandleHealth(t *testing.T) {
	srv := newTestServer(t)

	w := do(srv, http.MethodGet, "/api/health", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var body map[string]string
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["status"] != "ok" {
		t.Fatalf("expected status ok, got %q", body["status"])
	}
}

func TestHandleChat(t *testing.T) {
	srv := newTestServer(t)

	w := do(srv, http.MethodPost, "/api/chat",
		`{"conversation_id": "conv-1", "requester_id": "alice", "text": "hi"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var body map[string]string
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["answer"] != "hello there" {
		t.Fatalf("expected answer, got %q", body["answer"])
	}
}

func TestHandleChatValidation(t *testing.T) {
	srv := newTestServer(t)

	if w := do(srv, http.MethodPost, "/api/chat", `{"text": "hi"}`); w.Code != http.StatusBadRequest {
		t.Errorf("missing ids: expected 400, got %d", w.Code)
	}
	if w := do(srv, http.MethodPost, "/api/chat", `{broken`); w.Code != http.StatusBadRequest {
		t.Errorf("bad json: expected 400, got %d", w.Code)
	}
}

func TestMemoriesListSearchDelete(t *testing.T) {
	srv := newTestServer(t)
	ctx := context.Background()

	id, err := srv.store.Insert(ctx, memory.Fact{Text: "Alice lives in Lisbon", UserID: "alice"})
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if _, err := srv.store.Insert(ctx, memory.Fact{Text: "Bob plays bass", UserID: "bob"}); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	w := do(srv, http.MethodGet, "/api/memories", "")
	if w.Code != http.StatusOK {
		t.Fatalf("list: expected 200, got %d", w.Code)
	}
	var facts []memory.Fact
	if err := json.NewDecoder(w.Body).Decode(&facts); err != nil {
		t.Fatalf("decode facts: %v", err)
	}
	if len(facts) != 2 {
		t.Fatalf("expected 2 facts, got %d", len(facts))
	}

	w = do(srv, http.MethodGet, "/api/memories/search?q=Lisbon&limit=1", "")
	if w.Code != http.StatusOK {
		t.Fatalf("search: expected 200, got %d", w.Code)
	}
	var hits []memory.SearchHit
	if err := json.NewDecoder(w.Body).Decode(&hits); err != nil {
		t.Fatalf("decode hits: %v", err)
	}
	if len(hits) != 1 {
		t.Fatalf("expected 1 hit, got %d", len(hits))
	}

	if w = do(srv, http.MethodDelete, "/api/memories/"+id, ""); w.Code != http.StatusNoContent {
		t.Fatalf("delete: expected 204, got %d", w.Code)
	}
	if got := srv.store.Count(); got != 1 {
		t.Fatalf("expected 1 fact after delete, got %d", got)
	}

	if w = do(srv, http.MethodGet, "/api/memories/search", ""); w.Code != http.StatusBadRequest {
		t.Errorf("search without q: expected 400, got %d", w.Code)
	}
}

func TestWatchEndpoints(t *testing.T) {
	srv := newTestServer(t)

	w := do(srv, http.MethodPost, "/api/watch/random", "")
	if w.Code != http.StatusOK {
		t.Fatalf("watch: expected 200, got %d", w.Code)
	}
	var body map[string][]string
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body["watched"]) != 2 {
		t.Fatalf("expected 2 watched sources, got %v", body["watched"])
	}

	if w = do(srv, http.MethodDelete, "/api/watch/random", ""); w.Code != http.StatusOK {
		t.Fatalf("unwatch: expected 200, got %d", w.Code)
	}
}

func TestHandleStatus(t *testing.T) {
	srv := newTestServer(t)

	w := do(srv, http.MethodGet, "/api/status", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var body struct {
		Watched []string          `json:"watched"`
		States  map[string]string `json:"states"`
		Facts   int               `json:"facts"`
	}
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Watched) != 1 || body.States["general"] != "idle" {
		t.Fatalf("unexpected status payload: %+v", body)
	}
}

func TestHandleConsolidate(t *testing.T) {
	srv := newTestServer(t)
	if w := do(srv, http.MethodPost, "/api/consolidate/general", ""); w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestHandleClearHistory(t *testing.T) {
	srv := newTestServer(t)
	if w := do(srv, http.MethodDelete, "/api/history/conv-1", ""); w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", w.Code)
	}
}

func TestHandleAudit(t *testing.T) {
	srv := newTestServer(t)

	err := srv.audit.SaveAudit(context.Background(), "general", []memory.AuditEntry{
		{Action: memory.ActionAdd, FactID: "fact_1", Text: "Alice lives in Lisbon", At: time.Now()},
	})
	if err != nil {
		t.Fatalf("SaveAudit: %v", err)
	}

	w := do(srv, http.MethodGet, "/api/audit?source=general", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var records []storage.AuditRecord
	if err := json.NewDecoder(w.Body).Decode(&records); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(records) != 1 || records[0].FactID != "fact_1" {
		t.Fatalf("unexpected audit payload: %+v", records)
	}
}

func TestHandleEvents(t *testing.T) {
	srv := newTestServer(t)

	srv.bus.Publish(events.NewEvent(events.EventScanCompleted, events.SourceScanner, map[string]any{"source_id": "general"}))
	waitForEvents(srv.bus, 1)

	w := do(srv, http.MethodGet, "/api/events?limit=10", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var result []map[string]any
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(result) != 1 || result[0]["type"] != string(events.EventScanCompleted) {
		t.Fatalf("unexpected events payload: %+v", result)
	}
}

// waitForEvents polls the bus history until at least n events are present.
func waitForEvents(bus *events.Bus, n int) {
	for i := 0; i < 200; i++ {
		if len(bus.History(100)) >= n {
			return
		}
		runtime.Gosched()
		time.Sleep(time.Millisecond)
	}
}
