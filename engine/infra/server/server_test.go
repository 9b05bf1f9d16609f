package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/k2brd/k2brd/engine/brd"
	"github.com/k2brd/k2brd/engine/card"
	"github.com/k2brd/k2brd/engine/infra/monitoring"
	"github.com/k2brd/k2brd/engine/infra/server/appstate"
	"github.com/k2brd/k2brd/engine/tracker"
	"github.com/k2brd/k2brd/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTracker struct {
	boards     []tracker.Board
	boardCards map[string][]*card.Record
	cards      map[string]*card.Record
	err        error
}

func (f *fakeTracker) ListBoards(context.Context) ([]tracker.Board, error) {
	return f.boards, f.err
}

func (f *fakeTracker) ListBoardCards(_ context.Context, boardID string) ([]*card.Record, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.boardCards[boardID], nil
}

func (f *fakeTracker) GetCards(_ context.Context, ids []string) ([]*card.Record, error) {
	out := make([]*card.Record, 0, len(ids))
	for _, id := range ids {
		c, ok := f.cards[id]
		if !ok {
			return nil, &tracker.RecordNotFoundError{Path: "/cards/" + id}
		}
		out = append(out, c)
	}
	return out, f.err
}

func (f *fakeTracker) ListCardsOnBoards(_ context.Context, boardIDs []string) ([]*card.Record, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []*card.Record
	for _, id := range boardIDs {
		out = append(out, f.boardCards[id]...)
	}
	return out, nil
}

type fakeGenerator struct {
	calls int
	err   error
}

func (f *fakeGenerator) GenerateForCards(_ context.Context, cards []*card.Record) ([]brd.Result, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	out := make([]brd.Result, 0, len(cards))
	for _, c := range cards {
		out = append(out, brd.Result{Card: c, BRD: "BRD for " + c.Name})
	}
	return out, nil
}

type fakeHealth struct {
	available bool
}

func (f fakeHealth) HealthCheck(context.Context) bool { return f.available }

type fixture struct {
	tracker   *fakeTracker
	generator *fakeGenerator
	handler   http.Handler
}

func newFixture(t *testing.T, available bool, mutate ...func(*config.Config)) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	cfg := config.Default()
	for _, m := range mutate {
		m(cfg)
	}
	alpha := &card.Record{ID: "c1", Name: "Alpha", Description: "Build alpha", Labels: []string{}}
	beta := &card.Record{ID: "c2", Name: "Beta", Description: "Build beta", Project: "Apollo"}
	ft := &fakeTracker{
		boards:     []tracker.Board{{ID: "b1", Name: "Roadmap"}},
		boardCards: map[string][]*card.Record{"b1": {alpha}, "b2": {beta}},
		cards:      map[string]*card.Record{"c1": alpha, "c2": beta},
	}
	fg := &fakeGenerator{}
	mon, err := monitoring.NewService(t.Context(), &cfg.Monitoring)
	require.NoError(t, err)
	deps := appstate.NewBaseDeps(cfg, ft, fg, fakeHealth{available: available}, nil)
	state, err := appstate.NewState(deps, mon)
	require.NoError(t, err)
	srv, err := NewServer(t.Context(), state, mon)
	require.NoError(t, err)
	return &fixture{tracker: ft, generator: fg, handler: srv.Handler()}
}

func (f *fixture) do(method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, http.NoBody)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	f.handler.ServeHTTP(w, req)
	return w
}

type envelope struct {
	Status  int             `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Details string `json:"details"`
	} `json:"error"`
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return env
}

func TestNewServer(t *testing.T) {
	t.Run("Should require app state", func(t *testing.T) {
		_, err := NewServer(t.Context(), nil, nil)
		assert.Error(t, err)
	})

	t.Run("Should build without monitoring", func(t *testing.T) {
		cfg := config.Default()
		deps := appstate.NewBaseDeps(cfg, &fakeTracker{}, &fakeGenerator{}, fakeHealth{}, nil)
		state, err := appstate.NewState(deps, nil)
		require.NoError(t, err)
		srv, err := NewServer(t.Context(), state, nil)
		require.NoError(t, err)
		w := httptest.NewRecorder()
		srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody))
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestHealthRoutes(t *testing.T) {
	t.Run("Should answer ok on versioned and bare paths", func(t *testing.T) {
		f := newFixture(t, false)
		for _, path := range []string{"/api/v1/health", "/health"} {
			w := f.do(http.MethodGet, path, "")
			require.Equal(t, http.StatusOK, w.Code, path)
			env := decodeEnvelope(t, w)
			assert.Contains(t, string(env.Data), `"status":"ok"`)
		}
	})

	t.Run("Should assign a request id", func(t *testing.T) {
		f := newFixture(t, true)
		w := f.do(http.MethodGet, "/api/v1/health", "")
		assert.Len(t, w.Header().Get("X-Request-ID"), 36)
	})

	t.Run("Should propagate an inbound request id", func(t *testing.T) {
		f := newFixture(t, true)
		req := httptest.NewRequest(http.MethodGet, "/api/v1/health", http.NoBody)
		req.Header.Set("X-Request-ID", "req-123")
		w := httptest.NewRecorder()
		f.handler.ServeHTTP(w, req)
		assert.Equal(t, "req-123", w.Header().Get("X-Request-ID"))
	})
}

func TestTrelloRoutes(t *testing.T) {
	t.Run("Should list boards", func(t *testing.T) {
		f := newFixture(t, true)
		w := f.do(http.MethodGet, "/api/v1/trello/boards", "")
		require.Equal(t, http.StatusOK, w.Code)
		var boards []tracker.Board
		require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &boards))
		require.Len(t, boards, 1)
		assert.Equal(t, "Roadmap", boards[0].Name)
	})

	t.Run("Should hide tracker failures behind a generic message", func(t *testing.T) {
		f := newFixture(t, true)
		f.tracker.err = errors.New("dial tcp: connection refused")
		w := f.do(http.MethodGet, "/api/v1/trello/boards", "")
		require.Equal(t, http.StatusInternalServerError, w.Code)
		env := decodeEnvelope(t, w)
		require.NotNil(t, env.Error)
		assert.Equal(t, "INTERNAL_ERROR", env.Error.Code)
		assert.Equal(t, "Failed to fetch Trello boards.", env.Error.Message)
		assert.Empty(t, env.Error.Details)
	})

	t.Run("Should list board cards on the legacy alias too", func(t *testing.T) {
		f := newFixture(t, true)
		for _, path := range []string{"/api/v1/trello/boards/b1/cards", "/api/v1/boards/b1/cards"} {
			w := f.do(http.MethodGet, path, "")
			require.Equal(t, http.StatusOK, w.Code, path)
			var cards []*card.Record
			require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &cards))
			require.Len(t, cards, 1)
			assert.Equal(t, "c1", cards[0].ID)
		}
	})

	t.Run("Should answer an empty array for a board without cards", func(t *testing.T) {
		f := newFixture(t, true)
		w := f.do(http.MethodGet, "/api/v1/trello/boards/empty/cards", "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `[]`, string(decodeEnvelope(t, w).Data))
	})

	t.Run("Should reject an empty card id list", func(t *testing.T) {
		f := newFixture(t, true)
		w := f.do(http.MethodPost, "/api/v1/trello/cards", `{"card_ids":[]}`)
		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "No card IDs provided.", decodeEnvelope(t, w).Error.Message)
	})

	t.Run("Should answer 404 for a missing card", func(t *testing.T) {
		f := newFixture(t, true)
		w := f.do(http.MethodPost, "/api/v1/cards", `{"card_ids":["c1","missing"]}`)
		require.Equal(t, http.StatusNotFound, w.Code)
		env := decodeEnvelope(t, w)
		assert.Equal(t, "NOT_FOUND", env.Error.Code)
		assert.Contains(t, env.Error.Details, "/cards/missing")
	})

	t.Run("Should return cards in request order", func(t *testing.T) {
		f := newFixture(t, true)
		w := f.do(http.MethodPost, "/api/v1/trello/cards", `{"card_ids":["c2","c1"]}`)
		require.Equal(t, http.StatusOK, w.Code)
		var cards []*card.Record
		require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &cards))
		require.Len(t, cards, 2)
		assert.Equal(t, "c2", cards[0].ID)
		assert.Equal(t, "Apollo", cards[0].Project)
		assert.Equal(t, "c1", cards[1].ID)
	})

	t.Run("Should reject a malformed body", func(t *testing.T) {
		f := newFixture(t, true)
		w := f.do(http.MethodPost, "/api/v1/trello/cards", `{"card_ids":`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestExportRoute(t *testing.T) {
	t.Run("Should export CSV as an attachment", func(t *testing.T) {
		f := newFixture(t, true)
		w := f.do(http.MethodPost, "/api/v1/trello/cards/export", `{"board_ids":["b1","b2"],"format":"csv"}`)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "text/csv; charset=utf-8", w.Header().Get("Content-Type"))
		assert.Contains(t, w.Header().Get("Content-Disposition"), "cards.csv")
		lines := strings.Split(strings.TrimSpace(w.Body.String()), "\n")
		require.Len(t, lines, 3)
		assert.True(t, strings.HasPrefix(lines[0], "id,name,list_name"))
		assert.True(t, strings.HasPrefix(lines[1], "c1,Alpha"))
		assert.True(t, strings.HasPrefix(lines[2], "c2,Beta"))
	})

	t.Run("Should default to JSON", func(t *testing.T) {
		f := newFixture(t, true)
		w := f.do(http.MethodPost, "/api/v1/cards/export", `{"board_ids":["b1"]}`)
		require.Equal(t, http.StatusOK, w.Code)
		var cards []map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &cards))
		require.Len(t, cards, 1)
		assert.Equal(t, "c1", cards[0]["id"])
	})

	t.Run("Should reject an unknown format", func(t *testing.T) {
		f := newFixture(t, true)
		w := f.do(http.MethodPost, "/api/v1/trello/cards/export", `{"board_ids":["b1"],"format":"xml"}`)
		require.Equal(t, http.StatusBadRequest, w.Code)
		env := decodeEnvelope(t, w)
		assert.Equal(t, "BAD_REQUEST", env.Error.Code)
		assert.Contains(t, env.Error.Details, "xml")
	})

	t.Run("Should reject an empty board list", func(t *testing.T) {
		f := newFixture(t, true)
		w := f.do(http.MethodPost, "/api/v1/trello/cards/export", `{"board_ids":[]}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestGenerateRoute(t *testing.T) {
	const twoCards = `{"cards":[{"id":"c1","name":"Alpha","description":"Build alpha"},` +
		`{"id":"c2","name":"Beta","description":"Build beta","project":"Apollo"}]}`

	t.Run("Should generate one document per card in order", func(t *testing.T) {
		f := newFixture(t, true)
		w := f.do(http.MethodPost, "/api/v1/brd/generate", twoCards)
		require.Equal(t, http.StatusOK, w.Code)
		var results []struct {
			Card *card.Record `json:"card"`
			BRD  string       `json:"brd"`
		}
		require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &results))
		require.Len(t, results, 2)
		assert.Equal(t, "c1", results[0].Card.ID)
		assert.Equal(t, "BRD for Alpha", results[0].BRD)
		assert.Equal(t, "Apollo", results[1].Card.Project)
	})

	t.Run("Should answer 503 before generating when the provider is down", func(t *testing.T) {
		f := newFixture(t, false)
		w := f.do(http.MethodPost, "/api/v1/brd/generate", twoCards)
		require.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Equal(t, "SERVICE_UNAVAILABLE", decodeEnvelope(t, w).Error.Code)
		assert.Equal(t, 0, f.generator.calls)
	})

	t.Run("Should check provider health before rejecting an empty batch", func(t *testing.T) {
		f := newFixture(t, false)
		w := f.do(http.MethodPost, "/api/v1/brd/generate", `{"cards":[]}`)
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})

	t.Run("Should reject an empty batch", func(t *testing.T) {
		f := newFixture(t, true)
		w := f.do(http.MethodPost, "/api/v1/brd/generate", `{"cards":[]}`)
		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "No card data provided for BRD generation.", decodeEnvelope(t, w).Error.Message)
		assert.Equal(t, 0, f.generator.calls)
	})

	t.Run("Should reject malformed and null cards", func(t *testing.T) {
		f := newFixture(t, true)
		for _, body := range []string{`{"cards":[{"id":"","name":"x"}]}`, `{"cards":[null]}`} {
			w := f.do(http.MethodPost, "/api/v1/brd/generate", body)
			assert.Equal(t, http.StatusBadRequest, w.Code, body)
		}
		assert.Equal(t, 0, f.generator.calls)
	})

	t.Run("Should answer one generic message on failure", func(t *testing.T) {
		f := newFixture(t, true)
		f.generator.err = &brd.GenerationError{Index: 1, CardID: "c2", Err: errors.New("upstream 502")}
		w := f.do(http.MethodPost, "/api/v1/brd/generate", twoCards)
		require.Equal(t, http.StatusInternalServerError, w.Code)
		env := decodeEnvelope(t, w)
		assert.Equal(t, "Failed to generate BRD.", env.Error.Message)
		assert.NotContains(t, w.Body.String(), "upstream 502")
		assert.Empty(t, env.Data)
	})
}

func TestDebugRoute(t *testing.T) {
	t.Run("Should acknowledge selected card ids", func(t *testing.T) {
		f := newFixture(t, true)
		w := f.do(http.MethodPost, "/api/v1/debug/log-selected-cards", `{"selectedCardIds":["c1","c2"]}`)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "Logged successfully", decodeEnvelope(t, w).Message)
	})

	t.Run("Should accept a body without ids", func(t *testing.T) {
		f := newFixture(t, true)
		w := f.do(http.MethodPost, "/api/v1/debug/log-selected-cards", `{}`)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("Should reject invalid JSON", func(t *testing.T) {
		f := newFixture(t, true)
		w := f.do(http.MethodPost, "/api/v1/debug/log-selected-cards", `not json`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestLabelRoutes(t *testing.T) {
	t.Run("Should expose the taxonomy", func(t *testing.T) {
		f := newFixture(t, true)
		w := f.do(http.MethodGet, "/api/v1/labels", "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, string(decodeEnvelope(t, w).Data), `"priority"`)
	})

	t.Run("Should map labels onto categories", func(t *testing.T) {
		f := newFixture(t, true)
		w := f.do(http.MethodPost, "/api/v1/labels/map", `{"labels":["bug","Priority: high","unrelated"]}`)
		require.Equal(t, http.StatusOK, w.Code)
		var mapped map[string]string
		require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &mapped))
		assert.Equal(t, map[string]string{"type": "Bug", "priority": "High"}, mapped)
	})
}

func TestMiddleware(t *testing.T) {
	t.Run("Should echo an allowed origin", func(t *testing.T) {
		f := newFixture(t, true)
		req := httptest.NewRequest(http.MethodGet, "/api/v1/health", http.NoBody)
		req.Header.Set("Origin", "http://localhost:5173")
		w := httptest.NewRecorder()
		f.handler.ServeHTTP(w, req)
		assert.Equal(t, "http://localhost:5173", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
	})

	t.Run("Should not echo an unknown origin", func(t *testing.T) {
		f := newFixture(t, true)
		req := httptest.NewRequest(http.MethodGet, "/api/v1/health", http.NoBody)
		req.Header.Set("Origin", "http://evil.example")
		w := httptest.NewRecorder()
		f.handler.ServeHTTP(w, req)
		assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("Should answer preflight requests", func(t *testing.T) {
		f := newFixture(t, true)
		req := httptest.NewRequest(http.MethodOptions, "/api/v1/brd/generate", http.NoBody)
		req.Header.Set("Origin", "http://localhost:5173")
		w := httptest.NewRecorder()
		f.handler.ServeHTTP(w, req)
		assert.Equal(t, http.StatusNoContent, w.Code)
	})

	t.Run("Should expose metrics for served requests", func(t *testing.T) {
		f := newFixture(t, true)
		f.do(http.MethodGet, "/api/v1/trello/boards", "")
		w := f.do(http.MethodGet, "/metrics", "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `path="/api/v1/trello/boards"`)
	})

	t.Run("Should rate limit API routes but not health", func(t *testing.T) {
		f := newFixture(t, true, func(cfg *config.Config) {
			cfg.RateLimit = config.RateLimitConfig{Enabled: true, Limit: 1, Period: time.Minute}
		})
		require.Equal(t, http.StatusOK, f.do(http.MethodGet, "/api/v1/trello/boards", "").Code)
		require.Equal(t, http.StatusTooManyRequests, f.do(http.MethodGet, "/api/v1/trello/boards", "").Code)
		for range 3 {
			assert.Equal(t, http.StatusOK, f.do(http.MethodGet, "/api/v1/health", "").Code)
		}
		w := f.do(http.MethodGet, "/metrics", "")
		assert.Contains(t, w.Body.String(), "k2brd_rate_limit_blocks_total")
	})
}
