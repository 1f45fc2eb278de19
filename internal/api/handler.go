package api

import (
	"net/http"
	"time"

	"intraday-core/internal/engine"
	"intraday-core/internal/events"
	"intraday-core/internal/journal"
	"intraday-core/pkg/broker/kite"
	"intraday-core/pkg/config"
	"intraday-core/pkg/db"

	"github.com/gin-gonic/gin"
)

// Server wires the dashboard HTTP endpoints around the engine.
type Server struct {
	Router      *gin.Engine
	Engine      *engine.Engine
	Bus         *events.Bus
	Journal     *journal.Journal
	Queries     *db.Queries
	Broker      *kite.Client
	Instruments *kite.Instruments
	Cfg         *config.Config
}

// NewServer builds the router with the full middleware stack.
func NewServer(eng *engine.Engine, bus *events.Bus, jnl *journal.Journal, queries *db.Queries,
	broker *kite.Client, instruments *kite.Instruments, cfg *config.Config) *Server {

	r := gin.New()

	// Middleware stack (order matters!)
	r.Use(gin.Recovery())                      // Panic recovery (first)
	r.Use(RequestIDMiddleware())               // Request ID tracking
	r.Use(RequestLogger())                     // Request logging (after ID is set)
	r.Use(RateLimitMiddleware())               // Rate limiting
	r.Use(TimeoutMiddleware(30 * time.Second)) // Request timeout (30s)
	r.Use(CORSMiddleware())                    // CORS (last before routes)

	s := &Server{
		Router:      r,
		Engine:      eng,
		Bus:         bus,
		Journal:     jnl,
		Queries:     queries,
		Broker:      broker,
		Instruments: instruments,
		Cfg:         cfg,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.Router.GET("/health", s.health)
	s.Router.GET("/ws", s.websocket)

	api := s.Router.Group("/api")
	{
		api.POST("/login", s.login)

		protected := api.Group("")
		protected.Use(AuthMiddleware(s.Cfg.JWTSecret))
		{
			protected.POST("/start_live_trading", s.startLiveTrading)
			protected.POST("/stop_live_trading", s.stopLiveTrading)
			protected.GET("/live_status", s.getLiveStatus)

			protected.GET("/orders", s.getOrders)
			protected.GET("/positions", s.getPositions)
			protected.POST("/positions/:symbol/close", s.closePosition)
			protected.GET("/logs", s.getLogs)

			protected.GET("/settings", s.getSettings)
			protected.PUT("/settings", s.updateSettings)
			protected.GET("/instruments", s.getInstruments)

			// Broker session bootstrap
			protected.GET("/broker/login_url", s.getBrokerLoginURL)
			protected.POST("/broker/session", s.completeBrokerLogin)
		}
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Start runs the HTTP server.
func (s *Server) Start(addr string) error {
	return s.Router.Run(addr)
}
