package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"lg/stride-api/engine"
	"lg/stride-api/internal/contentgen"
	"lg/stride-api/internal/logger"
	"lg/stride-api/internal/planservice"
)

// Handler holds shared dependencies for all route handlers. db is nil in
// tests that only exercise the plan and suggest routes.
type Handler struct {
	db      *pgxpool.Pool
	log     *logger.Logger
	plans   *planservice.Service
	content *contentgen.Client
}

/* ─── Database helpers ────────────────────────────────────────────────── */

// querier is satisfied by *pgxpool.Pool, *pgxpool.Conn and pgx.Tx.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// queryOne runs a query and scans the first row into T using RowToStructByName.
// pgx.ErrNoRows stays matchable with errors.Is.
func queryOne[T any](ctx context.Context, q querier, sql string, args pgx.NamedArgs) (T, error) {
	var zero T
	rows, err := q.Query(ctx, sql, args)
	if err != nil {
		return zero, fmt.Errorf("query: %w", err)
	}
	result, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[T])
	if err != nil {
		return zero, fmt.Errorf("scan %T: %w", zero, err)
	}
	return result, nil
}

// queryMany runs a query and scans all rows into []T using RowToStructByName.
func queryMany[T any](ctx context.Context, q querier, sql string, args pgx.NamedArgs) ([]T, error) {
	rows, err := q.Query(ctx, sql, args)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	results, err := pgx.CollectRows(rows, pgx.RowToStructByName[T])
	if err != nil {
		var zero T
		return nil, fmt.Errorf("scan %T: %w", zero, err)
	}
	return results, nil
}

// apiError returns a consistent JSON error response: {"error": "message"}.
func apiError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"error": message})
}

// configError reports an invalid profile answer with the offending field.
func configError(c *gin.Context, err error) bool {
	var cfgErr *engine.ConfigurationError
	if !errors.As(err, &cfgErr) {
		return false
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": cfgErr.Error(), "field": cfgErr.Field})
	return true
}

/* ─── Server setup ────────────────────────────────────────────────────── */

// getDBPool creates a connection pool. The simple query protocol avoids
// "cached plan must not change result type" errors from a pooled server-side
// statement cache after schema changes.
func getDBPool(ctx context.Context, dbURL string) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(dbURL)
	if err != nil {
		return nil, fmt.Errorf("parse DB URL: %w", err)
	}
	config.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol
	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return pool, nil
}

// newRouter builds the gin engine with CORS, tracing and all routes.
func newRouter(h *Handler, corsOrigins []string) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())
	router.Use(otelgin.Middleware("stride-api"))
	router.Use(cors.New(cors.Config{
		AllowOrigins:     corsOrigins,
		AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	router.SetTrustedProxies(nil)
	h.registerRoutes(router)
	return router
}

// registerRoutes registers all API routes on the router.
func (h *Handler) registerRoutes(router *gin.Engine) {
	// Public routes
	router.GET("/healthz", h.healthz)
	router.POST("/api/login", h.login)

	// Authenticated routes
	api := router.Group("/api", h.authMiddleware())
	api.GET("/profile", h.getProfile)
	api.PATCH("/profile", h.patchProfile)

	api.POST("/meal-log/items", h.createMealLogItem)
	api.DELETE("/meal-log/items/:id", h.deleteMealLogItem)
	api.GET("/meal-log/week-summary", h.getWeekSummary)
	api.POST("/meal-log/suggest", h.suggestMealLogItem)

	api.GET("/weight-log", h.getWeightLog)
	api.POST("/weight-log", h.upsertWeightEntry)
	api.DELETE("/weight-log/:id", h.deleteWeightEntry)

	api.POST("/workout-log", h.createWorkoutEntry)
	api.POST("/sleep-log", h.upsertSleepEntry)
	api.POST("/mood-log", h.createMoodEntry)

	api.POST("/plans/generate", h.generatePlan)
	api.GET("/plans/latest", h.getLatestPlan)
	api.POST("/plans/revise", h.revisePlan)
	api.GET("/plans/adherence", h.getAdherenceHistory)
}

// healthz reports whether the database answers.
// GET /healthz (public).
func (h *Handler) healthz(c *gin.Context) {
	if h.db != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := h.db.Ping(ctx); err != nil {
			h.log.Warn("health check failed", "component", "http", "error", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
