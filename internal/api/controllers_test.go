package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"intraday-core/internal/engine"
	"intraday-core/internal/events"
	"intraday-core/internal/journal"
	"intraday-core/internal/strategy"
	"intraday-core/pkg/broker/kite"
	"intraday-core/pkg/config"
	"intraday-core/pkg/db"
)

type emptySource struct{}

func (emptySource) Candles(ctx context.Context, symbol string) ([]strategy.Candle, error) {
	return nil, nil
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		Exchange:           "NSE",
		SMAPeriod:          50,
		CandleInterval:     time.Hour,
		MinWickPercent:     15,
		RiskRewardRatio:    5,
		MarketOpen:         config.ClockTime{Hour: 9, Minute: 15},
		MarketClose:        config.ClockTime{Hour: 15, Minute: 30},
		EntryOpen:          config.ClockTime{Hour: 10},
		EntryCutoff:        config.ClockTime{Hour: 13},
		ForceExit:          config.ClockTime{Hour: 15},
		DryRun:             true,
		OrderType:          "LIMIT",
		PositionSizing:     "fixed_capital",
		CapitalPerTrade:    100000,
		Leverage:           1,
		StatusPollInterval: time.Hour,
		OrderWindow:        20,
		JWTSecret:          "test-secret",
		DashboardPassword:  "hunter22",
	}

	database, err := db.New(":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	if err := db.ApplyMigrations(database); err != nil {
		t.Fatalf("migrations: %v", err)
	}
	queries := db.NewQueries(database.DB)

	bus := events.NewBus()
	jnl := journal.New(bus, queries)
	broker := kite.NewClient("key", "secret", true)
	instruments := kite.NewInstruments(broker)
	eng := engine.New(cfg, broker, instruments, emptySource{}, bus, jnl, queries)

	return NewServer(eng, bus, jnl, queries, broker, instruments, cfg)
}

func doJSON(t *testing.T, s *Server, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.Router.ServeHTTP(w, req)
	return w
}

func loginToken(t *testing.T, s *Server) string {
	t.Helper()
	w := doJSON(t, s, http.MethodPost, "/api/login", "", gin.H{"password": "hunter22"})
	if w.Code != http.StatusOK {
		t.Fatalf("login status = %d, body %s", w.Code, w.Body.String())
	}
	var resp struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode login response: %v", err)
	}
	return resp.Token
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	w := doJSON(t, s, http.MethodGet, "/health", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("health status = %d", w.Code)
	}
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	s := newTestServer(t)
	w := doJSON(t, s, http.MethodPost, "/api/login", "", gin.H{"password": "wrong"})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	s := newTestServer(t)

	w := doJSON(t, s, http.MethodGet, "/api/live_status", "", nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("unauthenticated status = %d, want 401", w.Code)
	}

	token := loginToken(t, s)
	w = doJSON(t, s, http.MethodGet, "/api/live_status", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("authenticated status = %d, body %s", w.Code, w.Body.String())
	}

	var status engine.LiveStatus
	if err := json.Unmarshal(w.Body.Bytes(), &status); err != nil {
		t.Fatalf("decode live status: %v", err)
	}
	if status.LiveTrading {
		t.Fatal("fresh engine reports live trading")
	}
	if !status.DryRun {
		t.Fatal("dry run flag lost in status")
	}
}

func TestStartStopTrading(t *testing.T) {
	s := newTestServer(t)
	token := loginToken(t, s)

	w := doJSON(t, s, http.MethodPost, "/api/start_live_trading", token, gin.H{"symbols": []string{"RELIANCE"}})
	if w.Code != http.StatusOK {
		t.Fatalf("start status = %d, body %s", w.Code, w.Body.String())
	}

	// A second start conflicts.
	w = doJSON(t, s, http.MethodPost, "/api/start_live_trading", token, gin.H{"symbols": []string{"RELIANCE"}})
	if w.Code != http.StatusConflict {
		t.Fatalf("second start status = %d, want 409", w.Code)
	}

	w = doJSON(t, s, http.MethodPost, "/api/stop_live_trading", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("stop status = %d, body %s", w.Code, w.Body.String())
	}

	// Stopping again conflicts.
	w = doJSON(t, s, http.MethodPost, "/api/stop_live_trading", token, nil)
	if w.Code != http.StatusConflict {
		t.Fatalf("second stop status = %d, want 409", w.Code)
	}
}

func TestSettingsLockedWhileLive(t *testing.T) {
	s := newTestServer(t)
	token := loginToken(t, s)

	settings := Settings{
		RiskRewardRatio: 3,
		MinWickPercent:  20,
		PositionSizing:  "fixed_risk",
		TotalCapital:    500000,
		RiskPercent:     1,
		Leverage:        1,
		DryRun:          true,
	}
	w := doJSON(t, s, http.MethodPut, "/api/settings", token, settings)
	if w.Code != http.StatusOK {
		t.Fatalf("update while stopped = %d, body %s", w.Code, w.Body.String())
	}
	if tun := s.Cfg.Tunables(); tun.RiskRewardRatio != 3 || tun.PositionSizing != "fixed_risk" {
		t.Fatalf("settings not applied: %+v", tun)
	}

	w = doJSON(t, s, http.MethodPost, "/api/start_live_trading", token, gin.H{"symbols": []string{"RELIANCE"}})
	if w.Code != http.StatusOK {
		t.Fatalf("start status = %d", w.Code)
	}
	defer doJSON(t, s, http.MethodPost, "/api/stop_live_trading", token, nil)

	w = doJSON(t, s, http.MethodPut, "/api/settings", token, settings)
	if w.Code != http.StatusConflict {
		t.Fatalf("update while live = %d, want 409", w.Code)
	}
}

func TestGetInstruments(t *testing.T) {
	s := newTestServer(t)
	token := loginToken(t, s)

	w := doJSON(t, s, http.MethodGet, "/api/instruments", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp struct {
		Nifty50 []string `json:"nifty50"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Nifty50) != 50 {
		t.Fatalf("nifty50 has %d symbols, want 50", len(resp.Nifty50))
	}
}
