package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"billdesk/m/internal/api"
	"billdesk/m/internal/cache"
	"billdesk/m/internal/config"
	"billdesk/m/internal/database"
	"billdesk/m/internal/migrations"
	"billdesk/m/internal/seed"
)

func main() {
	cfg := config.Load()
	db := database.Connect(cfg.DatabaseDSN)
	defer db.Close()

	if err := migrations.Run(db); err != nil {
		log.Fatalf("migrations failed: %v", err)
	}
	if cfg.CatalogCSV != "" {
		seed.LoadProducts(db, cfg.CatalogCSV)
	}

	handler := api.New(db, cfg.Secret).RequireAuth(cfg.AuthRequired)
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Printf("redis at %s unavailable, search cache disabled: %v", cfg.RedisAddr, err)
		} else {
			handler.WithSearchCache(cache.NewRedisCache(rdb, cfg.SearchCacheTTL))
			log.Printf("search cache enabled on %s (ttl %s)", cfg.RedisAddr, cfg.SearchCacheTTL)
		}
		cancel()
	}

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      handler.Router(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("billing ledger starting on :%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("server forced to shutdown: %v", err)
	}
	log.Println("server exited")
}
