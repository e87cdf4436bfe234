package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"dms-object-service/internal/adapters/primary/http/handlers"
	"dms-object-service/internal/adapters/primary/http/middleware"
	"dms-object-service/internal/adapters/secondary/archive"
	"dms-object-service/internal/adapters/secondary/memory"
	"dms-object-service/internal/adapters/secondary/postgres"
	"dms-object-service/internal/adapters/secondary/roles"
	"dms-object-service/internal/adapters/secondary/sqlite"
	"dms-object-service/internal/config"
	"dms-object-service/internal/core/ports/output"
	"dms-object-service/internal/core/services"
	"dms-object-service/internal/metrics"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	initLogger(cfg)

	ctx := context.Background()

	// ============================================================================
	// Hexagonal Architecture Wiring
	// ============================================================================

	// Secondary Adapters (Output Ports)
	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatalf("open store: %v", err)
	}
	defer closeStore()
	log.WithField("driver", cfg.Store.Driver).Info("entity store ready")

	manifests, err := archive.Open(ctx, cfg.Archive)
	if err != nil {
		log.Fatalf("open manifest archive: %v", err)
	}
	if manifests == nil {
		log.Info("manifest archive disabled")
	} else {
		log.WithField("driver", cfg.Archive.Driver).Info("manifest archive ready")
	}

	resolver, err := openRoles(cfg)
	if err != nil {
		log.Fatalf("init role resolver: %v", err)
	}

	var lifecycle ports.LifecycleMetrics = ports.NopMetrics{}
	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
		lifecycle = m
	}

	// Core Services (Application Layer)
	entitySvc := services.NewEntityService(store, resolver, lifecycle)
	deletionSvc := services.NewDeletionService(store, resolver, manifests, lifecycle)
	copySvc := services.NewContentCopyService(store, resolver, lifecycle)

	// Primary Adapter (HTTP Handlers)
	h := handlers.New(entitySvc, deletionSvc, copySvc)

	// Setup router
	router := gin.New()
	router.Use(middleware.RequestID(), middleware.Logging(), gin.Recovery())
	if m != nil {
		router.Use(middleware.Metrics(m))
		router.GET(cfg.Metrics.Path, gin.WrapH(m.Handler()))
	}

	api := router.Group("/api/v1/dms")
	h.RegisterRoutes(api)

	// Health check with store ping
	router.GET("/healthz", func(c *gin.Context) {
		if err := store.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Start server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		log.Infof("starting server on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorf("server forced shutdown: %v", err)
		return
	}

	log.Info("server stopped")
}

func openStore(ctx context.Context, cfg *config.Config) (ports.EntityStore, func(), error) {
	switch cfg.Store.Driver {
	case "postgres":
		poolCfg, err := pgxpool.ParseConfig(cfg.Database.DSN())
		if err != nil {
			return nil, nil, fmt.Errorf("parse db config: %w", err)
		}
		poolCfg.MaxConns = int32(cfg.Database.MaxOpenConns)
		poolCfg.MinConns = int32(cfg.Database.MaxIdleConns)
		poolCfg.MaxConnLifetime = cfg.Database.ConnMaxLifetime

		pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
		if err != nil {
			return nil, nil, fmt.Errorf("create db pool: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("ping db: %w", err)
		}
		store := postgres.NewStore(pool)
		if err := store.Migrate(ctx); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("migrate: %w", err)
		}
		return store, pool.Close, nil
	case "sqlite":
		store, err := sqlite.Open(cfg.SQLite.Path)
		if err != nil {
			return nil, nil, err
		}
		return store, func() {
			if err := store.Close(); err != nil {
				log.WithError(err).Warn("close sqlite store")
			}
		}, nil
	default:
		log.Warn("using in-memory entity store; data is lost on restart")
		return memory.NewStore(), func() {}, nil
	}
}

func openRoles(cfg *config.Config) (ports.RoleResolver, error) {
	static, err := roles.NewStatic(cfg.Roles.Static)
	if err != nil {
		return nil, err
	}
	if !cfg.Kubernetes.Enabled {
		log.Info("Kubernetes role ConfigMap disabled")
		return static, nil
	}
	cm, err := roles.NewConfigMapResolver(&cfg.Kubernetes)
	if err != nil {
		return nil, err
	}
	log.WithFields(log.Fields{
		"namespace": cfg.Kubernetes.DefaultNS,
		"configmap": cfg.Kubernetes.RolesConfigMap,
	}).Info("Kubernetes role resolver initialized")
	return roles.Chain{static, cm}, nil
}

func initLogger(cfg *config.Config) {
	level, err := log.ParseLevel(cfg.Logger.Level)
	if err != nil {
		level = log.InfoLevel
	}
	log.SetLevel(level)

	if cfg.Logger.Format == "json" {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
}
