package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"campus-audit/internal/catalog"
	"campus-audit/internal/config"
	"campus-audit/internal/httpapi"
	"campus-audit/internal/repository"
	"campus-audit/internal/rotation"
	"campus-audit/internal/service"
	"campus-audit/internal/session"
	"campus-audit/internal/store"
	"campus-audit/internal/ticketing"

	"github.com/go-redis/redis/v8"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

func main() {
	// 1. 加载配置
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// 2. 初始化日志
	logger, err := initLogger(cfg)
	if err != nil {
		panic(fmt.Sprintf("Failed to init logger: %v", err))
	}
	defer logger.Sync()

	// 3. 加载区域目录（版本化静态表，启动时加载一次）
	cat, err := catalog.Load(cfg.Audit.CatalogPath)
	if err != nil {
		logger.Fatal("Failed to load zone catalog",
			zap.String("path", cfg.Audit.CatalogPath),
			zap.Error(err),
		)
	}
	logger.Info("Zone catalog loaded",
		zap.String("path", cfg.Audit.CatalogPath),
		zap.Int("version", cat.Version),
	)

	// 4. 连接数据库
	db, err := sql.Open("postgres", cfg.Database.GetDSN())
	if err != nil {
		logger.Fatal("Failed to open database", zap.Error(err))
	}
	defer db.Close()
	db.SetMaxOpenConns(cfg.Database.MaxConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdle)
	if err := db.Ping(); err != nil {
		logger.Fatal("Failed to ping database", zap.Error(err))
	}

	// 5. 连接 Redis
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		logger.Fatal("Failed to ping redis", zap.Error(err))
	}

	// 6. 组装服务
	roomsRepo := repository.NewRoomsRepository(db, logger)
	rotationRepo := repository.NewRotationRepository(db, logger)
	submissionsRepo := repository.NewSubmissionsRepository(db, logger)

	sessionStore := store.NewSessionStore(
		redisClient,
		cfg.Audit.Cache.SessionKeyPrefix,
		time.Duration(cfg.Audit.Cache.SessionTTL)*time.Second,
		logger,
	)

	var submitter ticketing.Submitter
	if cfg.Ticketing.Enabled {
		submitter = ticketing.NewClient(
			cfg.Ticketing.BaseURL,
			time.Duration(cfg.Ticketing.Timeout)*time.Second,
			logger,
		)
	} else {
		submitter = ticketing.NewNoopSubmitter(logger)
	}

	auditService := service.NewAuditService(
		cat,
		rotation.NewPlanner(cfg.Audit.Rotation.CycleLength, cfg.Audit.Rotation.AlwaysTypes),
		roomsRepo,
		rotationRepo,
		submissionsRepo,
		sessionStore,
		redisClient,
		cfg.Audit.SubmissionStream,
		submitter,
		cfg.Audit.Rating.AmberThreshold,
		session.Limits{
			MaxExplanationLen: cfg.Audit.Issue.MaxExplanationLen,
			MaxPhotos:         cfg.Audit.Issue.MaxPhotos,
		},
		logger,
	)

	// 7. 恢复进程重启前未完成的会话
	if _, err := auditService.RecoverSessions(context.Background()); err != nil {
		logger.Warn("Failed to recover sessions from snapshots", zap.Error(err))
	}

	// 8. 注册路由
	router := httpapi.NewRouter(logger)
	router.RegisterAuditRoutes(httpapi.NewAuditHandler(auditService, logger))
	router.RegisterCatalogRoutes(httpapi.NewCatalogHandler(cat))
	router.RegisterCampusRoutes(
		httpapi.NewRoomsHandler(roomsRepo, logger),
		httpapi.NewSubmissionsHandler(submissionsRepo),
	)
	router.RegisterHealthRoute()

	server := &http.Server{
		Addr:    cfg.HTTP.Addr,
		Handler: router,
	}

	// 9. 启动 HTTP 服务（在 goroutine 中）
	serverErrChan := make(chan error, 1)
	go func() {
		logger.Info("Audit service listening", zap.String("addr", cfg.HTTP.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- err
		}
	}()

	// 10. 等待信号（优雅关闭）
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("Received signal, shutting down",
			zap.String("signal", sig.String()),
		)
	case err := <-serverErrChan:
		logger.Fatal("HTTP server error", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Failed to shut down HTTP server", zap.Error(err))
	}

	logger.Info("Audit service stopped")
}

// initLogger 初始化日志
func initLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.Log.Format == "json" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}
