package main

import (
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/emilythestrangee/commpolls/backend/internal/config"
	"github.com/emilythestrangee/commpolls/backend/internal/server"
)

const shutdownTimeout = 5 * time.Second

func configureLogging(cfg config.Config) {
	if cfg.IsProduction() {
		log.SetFormatter(&log.JSONFormatter{})
		gin.SetMode(gin.ReleaseMode)
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}

	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = log.InfoLevel
	}
	log.SetLevel(level)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	configureLogging(cfg)

	srv, db, err := server.NewServer(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize server: %v", err)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serveErr := make(chan error, 1)
	go func() {
		log.Println("📝 Press Ctrl+C to stop the server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case sig := <-quit:
		log.Printf("🛑 Received %s, shutting down", sig)
	case err, ok := <-serveErr:
		if ok {
			log.Errorf("Server error: %v", err)
		}
	}

	if err := server.Shutdown(srv, shutdownTimeout); err != nil {
		log.Error(err)
	}
	if err := db.Close(); err != nil {
		log.Errorf("Failed to close database: %v", err)
	}

	log.Println("👋 Server exited")
}
