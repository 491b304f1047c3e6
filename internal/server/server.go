package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/emilythestrangee/commpolls/backend/internal/config"
	"github.com/emilythestrangee/commpolls/backend/internal/database"
	"github.com/emilythestrangee/commpolls/backend/internal/handlers"
	"github.com/emilythestrangee/commpolls/backend/internal/middleware"
	"github.com/emilythestrangee/commpolls/backend/internal/notify"
	"github.com/emilythestrangee/commpolls/backend/internal/service"
)

type Server struct {
	cfg      config.Config
	db       database.Service
	services *service.Services
	handler  *handlers.Handler
}

// New wires services and handlers around an open database.
func New(cfg config.Config, db database.Service, notifier notify.Notifier) *Server {
	services := service.New(db.GetDB(), notifier)
	return &Server{
		cfg:      cfg,
		db:       db,
		services: services,
		handler:  handlers.NewHandler(services, cfg),
	}
}

// NewServer creates and configures a new server. The returned closer releases the
// database and must be called after the server has shut down.
func NewServer(cfg config.Config) (*http.Server, io.Closer, error) {
	// Initialize database
	db, err := database.New(cfg)
	if err != nil {
		return nil, nil, err
	}

	newServer := New(cfg, db, notify.New(cfg))

	if err := newServer.bootstrapManagers(context.Background()); err != nil {
		_ = db.Close()
		return nil, nil, err
	}

	// Create HTTP server
	server := &http.Server{
		Addr:         "0.0.0.0:" + cfg.Port,
		Handler:      newServer.RegisterRoutes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	log.Printf("🚀 Server starting on port %s", cfg.Port)
	return server, db, nil
}

// bootstrapManagers promotes the accounts named in BOOTSTRAP_MANAGERS. Accounts that do
// not exist yet are skipped so the list can name users who have still to sign up.
func (s *Server) bootstrapManagers(ctx context.Context) error {
	for _, username := range s.cfg.BootstrapManagers {
		err := s.services.Users.Promote(ctx, username)
		if service.KindOf(err) == service.KindNotFound {
			log.WithField("username", username).Warn("bootstrap manager not found, skipping")
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to bootstrap managers: %w", err)
		}
		log.WithField("username", username).Info("👑 Bootstrap manager promoted")
	}
	return nil
}

// RegisterRoutes sets up all application routes
func (s *Server) RegisterRoutes() *gin.Engine {
	r := gin.New()
	r.Use(middleware.RequestLogger(), gin.Recovery())
	r.Use(cors.New(s.corsConfig()))

	secret := []byte(s.cfg.JWTSecret)
	requireAuth := middleware.AuthMiddleware(secret, s.services.Users)
	optionalAuth := middleware.OptionalAuth(secret, s.services.Users)
	requireManager := middleware.RequireManager()

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		health := s.db.Health()
		status := http.StatusOK
		if health["status"] != "up" {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, health)
	})

	// Public routes
	r.POST("/signup/", s.handler.Auth.Register)
	r.POST("/login/", s.handler.Auth.Login)
	r.GET("/api/polls/:id/results/", s.handler.Result.ResultsAPI)
	r.GET("/api/server-time/", s.handler.Result.ServerTime)

	// Routes that personalise when a token is present
	optional := r.Group("")
	optional.Use(optionalAuth)
	{
		optional.GET("/", s.handler.Poll.ListPolls)
		optional.GET("/polls/:id/results/", s.handler.Result.Results)
	}

	// Protected routes (authentication required)
	protected := r.Group("")
	protected.Use(requireAuth)
	{
		protected.GET("/account/", s.handler.User.GetAccount)
		protected.POST("/account/", s.handler.User.UpdateAccount)
		protected.GET("/polls/mine/", s.handler.User.MyPolls)
		protected.GET("/my-votes/", s.handler.User.MyVotes)

		protected.GET("/polls/:id/vote/", s.handler.Vote.VoteForm)
		protected.POST("/polls/:id/vote/", s.handler.Vote.CastVote)
		protected.GET("/polls/:id/countdown/", s.handler.Vote.Countdown)

		protected.GET("/polls/:id/manage/", s.handler.Poll.ManagePoll)
		protected.POST("/polls/:id/manage/", s.handler.Poll.ClosePoll)
		protected.POST("/polls/:id/delete/", s.handler.Poll.DeletePoll)

		protected.GET("/become-manager/", s.handler.Request.RequestStatus)
		protected.POST("/become-manager/", s.handler.Request.SubmitRequest)

		// Manager routes
		managers := protected.Group("")
		managers.Use(requireManager)
		{
			managers.GET("/polls/create/", s.handler.Poll.CreateForm)
			managers.POST("/polls/create/", s.handler.Poll.CreatePoll)
			managers.POST("/polls/:id/suspend/", s.handler.Poll.SuspendPoll)
			managers.GET("/manage-requests/", s.handler.Request.ListPending)
			managers.POST("/manage-requests/", s.handler.Request.Decide)
		}
	}

	return r
}

func (s *Server) corsConfig() cors.Config {
	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Accept", "Authorization", "Content-Type", "X-Requested-With", middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", "Location", middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(s.cfg.CORSOrigins) == 0 || (len(s.cfg.CORSOrigins) == 1 && s.cfg.CORSOrigins[0] == "*") {
		// credentials cannot be combined with a literal "*"
		cfg.AllowOriginFunc = func(string) bool { return true }
	} else {
		cfg.AllowOrigins = s.cfg.CORSOrigins
	}
	return cfg
}

// Shutdown stops srv gracefully within timeout.
func Shutdown(srv *http.Server, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	return nil
}
