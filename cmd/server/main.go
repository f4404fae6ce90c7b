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

	"dastak/backend/internal/backup"
	"dastak/backend/internal/cache"
	"dastak/backend/internal/config"
	"dastak/backend/internal/httpapi"
	"dastak/backend/internal/license"
	"dastak/backend/internal/service"
	"dastak/backend/internal/store"
	"dastak/backend/internal/store/memory"
	pgstore "dastak/backend/internal/store/postgres"
)

func main() {
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

	reports := cache.ReportCache(cache.NoopReportCache{})
	if cfg.RedisAddr != "" {
		redisCache, err := cache.NewRedisReportCache(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			log.Printf("redis unavailable (%v), using noop cache", err)
		} else {
			reports = redisCache
			closers = append(closers, redisCache.Close)
			log.Println("report cache: redis")
		}
	} else {
		log.Println("report cache: noop")
	}

	lic := license.NewManager(repo, cfg.LicenseSecret, cfg.TrialDays)
	if err := lic.EnsureFirstLaunch(ctx); err != nil {
		log.Fatalf("license bootstrap: %v", err)
	}

	auth := httpapi.NewAuthManager(repo, cfg.AuthSecret, time.Duration(cfg.AccessTokenTTLMinutes)*time.Minute)
	if err := auth.SeedOwnerPassword(ctx, cfg.OwnerPassword); err != nil {
		log.Fatalf("owner password bootstrap: %v", err)
	}

	var backups *backup.Manager
	if cfg.BackupConfigured() {
		mgr, err := backup.NewManager(ctx, repo, backup.Options{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			UseSSL:    cfg.MinioUseSSL,
		})
		if err != nil {
			log.Printf("backup storage unavailable (%v), backups disabled", err)
		} else {
			backups = mgr
			log.Println("backup: minio")
		}
	} else {
		log.Println("backup: disabled")
	}

	svc := service.New(repo, reports, cfg.WeekStartsOn, time.Duration(cfg.ReportTTLSeconds)*time.Second)
	api := httpapi.New(svc, auth, lic, backups, cfg.ShopName, cfg.AllowedOrigin)

	server := &http.Server{
		Addr:              cfg.Address(),
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Printf("retail backend listening on %s", cfg.Address())
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
	if cfg.OwnerPassword != "" && len(cfg.OwnerPassword) < 8 {
		return fmt.Errorf("OWNER_PASSWORD must be at least 8 characters")
	}
	return nil
}
