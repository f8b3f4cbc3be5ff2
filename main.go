package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"lg/stride-api/internal/contentgen"
	"lg/stride-api/internal/logger"
	"lg/stride-api/internal/planservice"
	"lg/stride-api/internal/store"
)

const redisLockTTL = 2 * time.Minute

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "stride-api: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// A missing .env is fine; the environment may already be set.
	_ = godotenv.Load()
	cfg := loadConfig()
	if cfg.DBURL == "" {
		return errors.New("DB_URL is required")
	}

	log, err := logger.New(cfg.AppEnv)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing := initTracing(ctx, log, cfg.AppEnv)
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		shutdownTracing(flushCtx)
	}()

	pool, err := getDBPool(ctx, cfg.DBURL)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer pool.Close()
	log.Info("db pool ready")

	svc := &planservice.Service{
		Plans:            store.NewPostgres(pool),
		Logs:             pgLogSource{db: pool},
		Profiles:         pgLogSource{db: pool},
		Log:              log.With("service", "planservice"),
		ContentTimeout:   cfg.ContentTimeout,
		SweepConcurrency: cfg.RevisionConcurrency,
	}

	if cfg.RedisAddr != "" {
		locker, err := store.NewRedisLocker(ctx, cfg.RedisAddr, redisLockTTL)
		if err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		defer locker.Close()
		svc.Locker = locker
		log.Info("using redis plan locks", "addr", cfg.RedisAddr)
	} else {
		svc.Locker = store.NewPGAdvisoryLocker(pool)
	}

	var content *contentgen.Client
	if cfg.OpenAIAPIKey != "" {
		content = contentgen.New(contentgen.Config{
			BaseURL: cfg.OpenAIBaseURL,
			APIKey:  cfg.OpenAIAPIKey,
			Model:   cfg.OpenAIModel,
			Timeout: cfg.ContentTimeout,
		})
		svc.Content = content
	} else {
		log.Warn("OPENAI_API_KEY not set, plans use fallback content")
	}

	scheduler, err := startRevisionScheduler(cfg.RevisionCron, svc, log)
	if err != nil {
		return err
	}
	defer scheduler.Stop()

	if cfg.AppEnv == "production" || cfg.AppEnv == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}
	h := &Handler{db: pool, log: log, plans: svc, content: content}
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           newRouter(h, cfg.CORSOrigins),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", "port", cfg.Port)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
	case <-ctx.Done():
		log.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
