package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/geocoder89/captionhub/internal/auth"
	"github.com/geocoder89/captionhub/internal/captioner"
	"github.com/geocoder89/captionhub/internal/config"
	"github.com/geocoder89/captionhub/internal/db"
	httpx "github.com/geocoder89/captionhub/internal/http"
	"github.com/geocoder89/captionhub/internal/http/handlers"
	"github.com/geocoder89/captionhub/internal/observability"
	"github.com/geocoder89/captionhub/internal/redisclient"
	"github.com/geocoder89/captionhub/internal/repo/memory"
	"github.com/geocoder89/captionhub/internal/repo/postgres"
	"github.com/geocoder89/captionhub/internal/security"
	"github.com/geocoder89/captionhub/internal/storage"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// logger config depends on cfg, so report through the default one
		slog.Error("invalid configuration", "err", err)
		os.Exit(1)
	}

	log := observability.NewLogger(cfg.Env, cfg.ServiceName)
	slog.SetDefault(log)

	if err := run(cfg, log); err != nil {
		log.Error("server failed", "err", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := observability.InitTracer(ctx, observability.TracerConfig{
		ServiceName: cfg.ServiceName,
		Env:         cfg.Env,
		Endpoint:    cfg.OTLPEndpoint,
		SampleRatio: cfg.TraceSampleRatio,
	})
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := config.WithTimeout(5 * time.Second)
		defer cancel()
		_ = shutdownTracer(sctx)
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	prom := observability.NewProm(reg)

	tokens, err := auth.NewManager(cfg.JWTSecret, cfg.JWTTTL)
	if err != nil {
		return err
	}
	hasher := security.NewHasher(cfg.BcryptCost)

	var (
		users    handlers.UserStore
		captions handlers.CaptionStore
		admins   db.AdminStore
		ready    []handlers.Checker
	)

	switch cfg.StoreDriver {
	case "postgres":
		if cfg.DBAutoMigrate {
			m, err := db.NewMigrator(cfg.DBURL, log)
			if err != nil {
				return err
			}
			if err := m.Up(ctx); err != nil {
				return err
			}
		}

		pool, err := db.NewPool(ctx, cfg.DBURL,
			db.WithMaxConns(int32(cfg.DBMaxConns)),
			db.WithApplicationName(cfg.ServiceName),
		)
		if err != nil {
			return err
		}
		defer pool.Close()

		u := postgres.NewUsersRepo(pool, prom)
		users, admins = u, u
		captions = postgres.NewCaptionsRepo(pool, prom)
		ready = append(ready, handlers.Checker{Name: "postgres", Ping: pool.Ping})
	default:
		log.Warn("using in-memory store, data is lost on restart")
		u, c := memory.New()
		users, admins, captions = u, u, c
	}

	if err := db.EnsureAdminUser(ctx, admins, hasher, db.AdminSeed{
		Email:    cfg.AdminEmail,
		Password: cfg.AdminPassword,
		Name:     cfg.AdminName,
	}, log); err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}

	deps := httpx.Deps{
		Log:            log,
		Env:            cfg.Env,
		ServiceName:    cfg.ServiceName,
		Users:          users,
		Captions:       captions,
		Hasher:         hasher,
		Tokens:         tokens,
		Captioner:      buildCaptioner(cfg, prom),
		AuthRateLimit:  cfg.AuthRateLimit,
		AuthRateWindow: cfg.AuthRateWindow,
		CORSOrigins:    cfg.CORSOrigins,
		Prom:           prom,
		Gatherer:       reg,
		Tracing:        cfg.OTLPEndpoint != "",
	}

	switch cfg.StorageDriver {
	case "s3":
		s3, err := storage.NewS3(ctx, storage.S3Config(cfg.S3))
		if err != nil {
			return err
		}
		deps.Images = s3
		ready = append(ready, handlers.Checker{Name: "s3", Ping: s3.Ping})
	default:
		local, err := storage.NewLocal(cfg.UploadDir)
		if err != nil {
			return err
		}
		deps.Images = local
		deps.UploadDir = local.Dir()
	}

	if cfg.RedisAddr != "" {
		rc := redisclient.New(redisclient.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer rc.Close()

		deps.RateCounter = rc
		ready = append(ready, handlers.Checker{Name: "redis", Ping: rc.Ping})
	}
	deps.Ready = ready

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           httpx.NewRouter(deps),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      cfg.CaptionTimeout + 15*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("Server starting", "port", cfg.Port, "env", cfg.Env, "store", cfg.StoreDriver, "captioner", cfg.Captioner)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("server shutting down")

	sctx, cancel := config.WithTimeout(10 * time.Second)
	defer cancel()

	if err := srv.Shutdown(sctx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}

	log.Info("shutdown complete")
	return nil
}

func buildCaptioner(cfg config.Config, prom *observability.Prom) captioner.Captioner {
	var inner captioner.Captioner
	switch cfg.Captioner {
	case "static":
		inner = captioner.Static{}
	default:
		inner = captioner.NewHuggingFace(cfg.HFModelURL, cfg.HFAPIKey, &http.Client{})
	}

	return captioner.NewProtected(
		captioner.NewRetrying(inner, cfg.CaptionRetries),
		captioner.ProtectedConfig{Timeout: cfg.CaptionTimeout},
		prom,
	)
}
