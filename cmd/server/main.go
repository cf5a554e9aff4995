package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"almacen/backend/internal/cache"
	"almacen/backend/internal/config"
	"almacen/backend/internal/httpapi"
	"almacen/backend/internal/service"
	"almacen/backend/internal/store"
	"almacen/backend/internal/store/memory"
	pgstore "almacen/backend/internal/store/postgres"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	if err := validateSecurityConfig(cfg); err != nil {
		log.Fatalf("invalid security configuration: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var repo store.Repository
	closers := make([]func() error, 0, 2)

	if cfg.DatabaseURL != "" {
		pg, err := pgstore.New(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("postgres unavailable (%v) and DATABASE_URL is set; refusing to start with in-memory fallback", err)
		}
		repo = pg
		closers = append(closers, pg.Close)
		log.Println("repository: postgres")
	} else {
		repo = memory.NewSeeded()
		log.Println("repository: in-memory")
	}

	catalogCache := cache.CatalogCache(cache.NoopCatalogCache{})
	if cfg.RedisAddr != "" {
		redisCache := cache.NewRedisCatalogCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err := redisCache.Ping(ctx); err != nil {
			log.Printf("redis unavailable (%v), using noop cache", err)
		} else {
			catalogCache = redisCache
			closers = append(closers, redisCache.Close)
			log.Println("cache: redis")
		}
	} else {
		log.Println("cache: noop")
	}

	svc := service.New(repo, catalogCache, cfg.UploadDir, time.Duration(cfg.CatalogTTLSeconds)*time.Second)
	auth := httpapi.NewAuthManager(cfg.AuthSecret, time.Duration(cfg.AccessTokenTTLMinutes)*time.Minute, repo)
	api := httpapi.New(svc, auth, cfg.AllowedOrigin)

	server := &http.Server{
		Addr:              cfg.Address(),
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Printf("almacen backend listening on %s", cfg.Address())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}

	for _, closeFn := range closers {
		if err := closeFn(); err != nil {
			log.Printf("close error: %v", err)
		}
	}

	log.Println("server stopped")
}

func validateSecurityConfig(cfg config.Config) error {
	if len(cfg.AuthSecret) < 32 {
		return fmt.Errorf("AUTH_SECRET must be set and at least 32 characters")
	}
	return nil
}
