package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"intraday-core/internal/engine"
	"intraday-core/internal/risk"
	"intraday-core/pkg/broker/kite"
	"intraday-core/pkg/config"
)

// startLiveTrading begins a session over the requested symbols, or the
// configured watchlist when none are given.
func (s *Server) startLiveTrading(c *gin.Context) {
	var req struct {
		Symbols []string `json:"symbols"`
	}
	// Empty body is allowed; it means "use the watchlist".
	_ = c.BindJSON(&req)

	symbols := req.Symbols
	if len(symbols) == 0 {
		wl, err := s.loadWatchlist()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		symbols = wl
	}

	if err := s.Engine.StartTrading(c.Request.Context(), symbols); err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, engine.ErrAlreadyLive) {
			status = http.StatusConflict
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "started", "symbols": symbols})
}

func (s *Server) stopLiveTrading(c *gin.Context) {
	if err := s.Engine.StopTrading(c.Request.Context()); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, engine.ErrNotLive) {
			status = http.StatusConflict
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "stopped"})
}

func (s *Server) getLiveStatus(c *gin.Context) {
	c.JSON(http.StatusOK, s.Engine.Status())
}

// getOrders returns the monitor's view plus the persisted history.
func (s *Server) getOrders(c *gin.Context) {
	limit := intQuery(c, "limit", 50)

	history, err := s.Queries.RecentOrders(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"live":    s.Engine.RecentOrders(),
		"history": history,
	})
}

func (s *Server) getPositions(c *gin.Context) {
	limit := intQuery(c, "limit", 50)

	history, err := s.Queries.RecentPositions(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"open":    s.Engine.OpenPositions(),
		"history": history,
	})
}

func (s *Server) closePosition(c *gin.Context) {
	symbol := c.Param("symbol")
	if err := s.Engine.ClosePosition(c.Request.Context(), symbol); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "closed", "symbol": symbol})
}

func (s *Server) getLogs(c *gin.Context) {
	limit := intQuery(c, "limit", 100)
	c.JSON(http.StatusOK, gin.H{"logs": s.Journal.Recent(limit)})
}

// Settings is the runtime-tunable subset of configuration.
type Settings struct {
	RiskRewardRatio  float64 `json:"risk_reward_ratio"`
	MinWickPercent   float64 `json:"min_wick_percent"`
	PositionSizing   string  `json:"position_sizing"`
	CapitalPerTrade  float64 `json:"capital_per_trade"`
	TotalCapital     float64 `json:"total_capital"`
	RiskPercent      float64 `json:"risk_percent"`
	Leverage         float64 `json:"leverage"`
	MaxPositionValue float64 `json:"max_position_value"`
	MaxDailyLoss     float64 `json:"max_daily_loss"`
	MaxOpenPositions int     `json:"max_open_positions"`
	DryRun           bool    `json:"dry_run"`
}

func (s *Server) getSettings(c *gin.Context) {
	t := s.Cfg.Tunables()
	c.JSON(http.StatusOK, Settings{
		RiskRewardRatio:  t.RiskRewardRatio,
		MinWickPercent:   t.MinWickPercent,
		PositionSizing:   t.PositionSizing,
		CapitalPerTrade:  t.CapitalPerTrade,
		TotalCapital:     t.TotalCapital,
		RiskPercent:      t.RiskPercent,
		Leverage:         t.Leverage,
		MaxPositionValue: t.MaxPositionValue,
		MaxDailyLoss:     t.MaxDailyLoss,
		MaxOpenPositions: t.MaxOpenPositions,
		DryRun:           t.DryRun,
	})
}

// updateSettings applies new tunables. Only allowed while trading is
// stopped so a running session never changes behavior mid-pass.
func (s *Server) updateSettings(c *gin.Context) {
	if s.Engine.IsLive() {
		c.JSON(http.StatusConflict, gin.H{"error": "stop live trading before changing settings"})
		return
	}

	var req Settings
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid settings payload"})
		return
	}
	if req.RiskRewardRatio <= 0 || req.MinWickPercent <= 0 || req.MinWickPercent > 100 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ratio and wick percent must be positive"})
		return
	}
	if req.PositionSizing != risk.SizingFixedCapital && req.PositionSizing != risk.SizingFixedRisk {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown position sizing mode"})
		return
	}

	s.Cfg.SetTunables(config.Tunables{
		RiskRewardRatio:  req.RiskRewardRatio,
		MinWickPercent:   req.MinWickPercent,
		PositionSizing:   req.PositionSizing,
		CapitalPerTrade:  req.CapitalPerTrade,
		TotalCapital:     req.TotalCapital,
		RiskPercent:      req.RiskPercent,
		Leverage:         req.Leverage,
		MaxPositionValue: req.MaxPositionValue,
		MaxDailyLoss:     req.MaxDailyLoss,
		MaxOpenPositions: req.MaxOpenPositions,
		DryRun:           req.DryRun,
	})

	s.Journal.Info("", "settings updated from dashboard")
	s.getSettings(c)
}

func (s *Server) getInstruments(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"nifty50":   kite.Nifty50,
		"banknifty": kite.BankNifty,
		"loaded":    s.Instruments.Loaded(),
	})
}

func (s *Server) getBrokerLoginURL(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"login_url": s.Broker.LoginURL()})
}

func (s *Server) completeBrokerLogin(c *gin.Context) {
	var req struct {
		RequestToken string `json:"request_token"`
	}
	if err := c.BindJSON(&req); err != nil || req.RequestToken == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "request_token is required"})
		return
	}

	if err := s.Broker.CompleteLogin(c.Request.Context(), req.RequestToken); err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	if err := s.Instruments.Load(c.Request.Context(), s.Cfg.Exchange); err != nil {
		s.Journal.Warn("", "instrument master load failed: "+err.Error())
	}
	s.Journal.Info("", "broker session established")
	c.JSON(http.StatusOK, gin.H{"status": "connected"})
}

func (s *Server) loadWatchlist() ([]string, error) {
	wl, err := config.LoadWatchlist(s.Cfg.WatchlistPath)
	if err != nil {
		return nil, err
	}
	return wl.Names(), nil
}

func intQuery(c *gin.Context, name string, def int) int {
	if v := c.Query(name); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}
