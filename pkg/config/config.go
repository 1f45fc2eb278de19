package config

import (
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
)

// ClockTime is a time of day on the exchange clock.
type ClockTime struct {
	Hour   int
	Minute int
}

// Minutes returns the clock time as minutes since midnight.
func (c ClockTime) Minutes() int {
	return c.Hour*60 + c.Minute
}

// Reached reports whether t has reached (or passed) the clock time.
func (c ClockTime) Reached(t time.Time) bool {
	return t.Hour()*60+t.Minute() >= c.Minutes()
}

func (c ClockTime) String() string {
	return strconv.Itoa(c.Hour) + ":" + pad2(c.Minute)
}

func pad2(n int) string {
	if n < 10 {
		return "0" + strconv.Itoa(n)
	}
	return strconv.Itoa(n)
}

// Config holds environment-driven settings for the intraday core.
// Everything is fixed after Load except the Tunables subset, which the
// dashboard may replace through SetTunables; concurrent readers must go
// through the Tunables snapshot.
type Config struct {
	mu sync.RWMutex

	Port string

	// Zerodha / Kite credentials
	KiteAPIKey    string
	KiteAPISecret string
	Exchange      string

	// Strategy parameters
	SMAPeriod       int
	CandleInterval  time.Duration
	MinWickPercent  float64
	RiskRewardRatio float64

	// Market timing (exchange-local clock)
	MarketOpen  ClockTime
	MarketClose ClockTime
	EntryOpen   ClockTime
	EntryCutoff ClockTime
	ForceExit   ClockTime

	// Execution
	DryRun          bool
	OrderType       string
	StopLossPercent float64
	TargetPercent   float64

	// Position sizing
	PositionSizing  string
	CapitalPerTrade float64
	TotalCapital    float64
	RiskPercent     float64
	Leverage        float64

	// Risk limits
	MaxPositionValue float64
	MaxDailyLoss     float64
	MaxOpenPositions int

	// Monitoring
	StatusPollInterval time.Duration
	OrderWindow        int

	// Persistence
	DBPath string

	// Dashboard auth
	JWTSecret         string
	DashboardPassword string

	// Instrument universe
	WatchlistPath string
}

// Tunables is the subset of configuration the dashboard can change
// between sessions.
type Tunables struct {
	RiskRewardRatio  float64
	MinWickPercent   float64
	PositionSizing   string
	CapitalPerTrade  float64
	TotalCapital     float64
	RiskPercent      float64
	Leverage         float64
	MaxPositionValue float64
	MaxDailyLoss     float64
	MaxOpenPositions int
	DryRun           bool
}

// Tunables returns a consistent snapshot of the adjustable fields.
func (c *Config) Tunables() Tunables {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Tunables{
		RiskRewardRatio:  c.RiskRewardRatio,
		MinWickPercent:   c.MinWickPercent,
		PositionSizing:   c.PositionSizing,
		CapitalPerTrade:  c.CapitalPerTrade,
		TotalCapital:     c.TotalCapital,
		RiskPercent:      c.RiskPercent,
		Leverage:         c.Leverage,
		MaxPositionValue: c.MaxPositionValue,
		MaxDailyLoss:     c.MaxDailyLoss,
		MaxOpenPositions: c.MaxOpenPositions,
		DryRun:           c.DryRun,
	}
}

// SetTunables replaces the adjustable fields in one step.
func (c *Config) SetTunables(t Tunables) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.RiskRewardRatio = t.RiskRewardRatio
	c.MinWickPercent = t.MinWickPercent
	c.PositionSizing = t.PositionSizing
	c.CapitalPerTrade = t.CapitalPerTrade
	c.TotalCapital = t.TotalCapital
	c.RiskPercent = t.RiskPercent
	c.Leverage = t.Leverage
	c.MaxPositionValue = t.MaxPositionValue
	c.MaxDailyLoss = t.MaxDailyLoss
	c.MaxOpenPositions = t.MaxOpenPositions
	c.DryRun = t.DryRun
}

// Load reads configuration from the environment, optionally seeded by .env.
func Load() (*Config, error) {
	// Missing .env is fine; real deployments export vars directly.
	_ = godotenv.Load()

	return &Config{
		Port:          getEnv("PORT", "8080"),
		KiteAPIKey:    os.Getenv("KITE_API_KEY"),
		KiteAPISecret: os.Getenv("KITE_API_SECRET"),
		Exchange:      getEnv("EXCHANGE", "NSE"),

		SMAPeriod:       getEnvInt("SMA_PERIOD", 50),
		CandleInterval:  getEnvDuration("CANDLE_INTERVAL", 3*time.Minute),
		MinWickPercent:  getEnvFloat("MIN_WICK_PERCENT", 15),
		RiskRewardRatio: getEnvFloat("RISK_REWARD_RATIO", 5),

		MarketOpen:  getEnvClock("MARKET_OPEN", ClockTime{9, 15}),
		MarketClose: getEnvClock("MARKET_CLOSE", ClockTime{15, 30}),
		EntryOpen:   getEnvClock("ENTRY_OPEN", ClockTime{10, 0}),
		EntryCutoff: getEnvClock("ENTRY_CUTOFF", ClockTime{13, 0}),
		ForceExit:   getEnvClock("FORCE_EXIT", ClockTime{15, 0}),

		DryRun:          getEnv("DRY_RUN", "true") == "true",
		OrderType:       getEnv("ORDER_TYPE", "LIMIT"),
		StopLossPercent: getEnvFloat("STOP_LOSS_PERCENT", 2),
		TargetPercent:   getEnvFloat("TARGET_PERCENT", 10),

		PositionSizing:  getEnv("POSITION_SIZING", "fixed_capital"),
		CapitalPerTrade: getEnvFloat("CAPITAL_PER_TRADE", 100000),
		TotalCapital:    getEnvFloat("TOTAL_CAPITAL", 500000),
		RiskPercent:     getEnvFloat("RISK_PERCENT", 1.0),
		Leverage:        getEnvFloat("LEVERAGE", 1.0),

		MaxPositionValue: getEnvFloat("MAX_POSITION_VALUE", 100000),
		MaxDailyLoss:     getEnvFloat("MAX_DAILY_LOSS", 10000),
		MaxOpenPositions: getEnvInt("MAX_OPEN_POSITIONS", 5),

		StatusPollInterval: getEnvDuration("STATUS_POLL_INTERVAL", 30*time.Second),
		OrderWindow:        getEnvInt("ORDER_WINDOW", 20),

		DBPath: getEnv("DB_PATH", "./data/intraday.db"),

		JWTSecret:         getEnv("JWT_SECRET", "dev-secret"),
		DashboardPassword: getEnv("DASHBOARD_PASSWORD", ""),

		WatchlistPath: getEnv("WATCHLIST_PATH", "watchlist.yaml"),
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return def
}

// getEnvClock parses "HH:MM" values such as "09:15".
func getEnvClock(key string, def ClockTime) ClockTime {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	parts := strings.SplitN(v, ":", 2)
	if len(parts) != 2 {
		return def
	}
	h, err1 := strconv.Atoi(parts[0])
	m, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil || h < 0 || h > 23 || m < 0 || m > 59 {
		return def
	}
	return ClockTime{Hour: h, Minute: m}
}
