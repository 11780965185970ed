package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/medconfirm/internal/auth"
	"github.com/hitoshi/medconfirm/internal/config"
	"github.com/hitoshi/medconfirm/internal/confirmation"
	"github.com/hitoshi/medconfirm/internal/database"
	"github.com/hitoshi/medconfirm/internal/handler"
	"github.com/hitoshi/medconfirm/internal/logger"
	"github.com/hitoshi/medconfirm/internal/medication"
	"github.com/hitoshi/medconfirm/internal/metrics"
	"github.com/hitoshi/medconfirm/internal/middleware"
	"github.com/hitoshi/medconfirm/internal/relationship"
	"github.com/hitoshi/medconfirm/internal/reminder"
	"github.com/hitoshi/medconfirm/internal/repository"
	"github.com/hitoshi/medconfirm/internal/security"
	"github.com/hitoshi/medconfirm/internal/worker/cleanup"
	"github.com/hitoshi/medconfirm/internal/worker/resync"
)

// Init はアプリケーションの初期化を行う。
// JSON構造化ログをセットアップし、環境変数からConfigを読み込み、
// 通知の表示方法を確定させる。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// 3. 通知の表示方法はプロセスで1回だけ設定する
	reminder.Configure(reminder.DefaultDisplayOptions())

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch cmd {
	case CommandWorker:
		return runWorker(ctx, cfg)
	case CommandMigrate:
		return runMigrate(cfg, MigrateDirection(args))
	default:
		return runServe(ctx, cfg)
	}
}

// runServe はAPIサーバーモードで起動する。
// 全依存関係をワイヤリングし、HTTPサーバーを起動する。
// ctxがキャンセルされるとグレースフルシャットダウンを行う。
func runServe(ctx context.Context, cfg *config.Config) error {
	// 1. DB接続
	db, err := openDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	// 2. メトリクス
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// 3. リマインダー配信ストアと写真ストレージ
	scheduler, closeScheduler, err := newReminderScheduler(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeScheduler()

	photoStore, err := newPhotoStore(ctx, cfg)
	if err != nil {
		return err
	}

	// 4. リポジトリの初期化
	userRepo := repository.NewPostgresUserRepo(db)
	relRepo := repository.NewPostgresRelationshipRepo(db)
	medRepo := repository.NewPostgresMedicationRepo(db)
	confirmRepo := repository.NewPostgresConfirmationRepo(db)

	// 5. ドメインサービスの初期化
	sanitizer := security.NewTextSanitizer()
	authService := auth.NewService(userRepo, auth.NewTokenManager(cfg.JWTSecret, cfg.TokenTTL))
	syncService := reminder.NewSyncService(medRepo, reminder.NewSyncer(scheduler, slog.Default(), collector))
	medService := medication.NewService(medRepo, relRepo, confirmRepo, syncService, sanitizer, collector)
	relService := relationship.NewService(userRepo, relRepo)

	var signer confirmation.PhotoURLSigner
	var photos handler.PhotoSaver
	if photoStore != nil {
		signer = photoStore
		photos = photoStore
	}
	confirmService := confirmation.NewService(confirmRepo, medRepo, signer, sanitizer, collector)

	// 6. ルーターの構築
	rateLimiter := middleware.NewRateLimiter(middleware.NewRateLimiterConfig(cfg.RateLimitGeneral, cfg.RateLimitAuth))
	defer rateLimiter.Stop()

	router := handler.NewRouter(&handler.RouterDeps{
		Logger:            slog.Default(),
		TokenVerifier:     authService,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       rateLimiter,
		Metrics:           collector,
		MetricsHandler:    metrics.Handler(registry),
		HealthChecker:     dependencyChecker{db: db, photos: photoStore},

		AuthService:         authService,
		MedicationService:   medService,
		RelationshipService: relService,
		ConfirmationService: confirmService,

		PhotoStore:    photos,
		PhotoMaxBytes: cfg.PhotoMaxBytes,
	})

	// 7. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server listen error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	slog.Info("shutting down API server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runWorker はワーカーモードで起動する。
// リマインダー再同期スケジューラと通知クリーンアップジョブを起動し、
// ctxがキャンセルされるまでブロックする。
func runWorker(ctx context.Context, cfg *config.Config) error {
	// 1. DB接続
	db, err := openDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	// 2. リマインダー配信ストア
	scheduler, closeScheduler, err := newReminderScheduler(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeScheduler()

	// 3. 再同期スケジューラの初期化
	medRepo := repository.NewPostgresMedicationRepo(db)
	syncService := reminder.NewSyncService(medRepo, reminder.NewSyncer(scheduler, slog.Default(), nil))
	resyncScheduler := resync.NewScheduler(syncService, syncService, slog.Default(), cfg.ReminderMaxConcurrent)

	// 4. クリーンアップジョブの初期化
	cleanupJob := cleanup.NewCleanupJob(db, slog.Default())
	cleanupJob.RetentionDays = cfg.NotificationRetain

	slog.Info("worker starting",
		slog.Duration("resync_interval", cfg.ReminderResyncInterval),
		slog.Int("max_concurrent", cfg.ReminderMaxConcurrent),
		slog.Int("notification_retention_days", cfg.NotificationRetain),
	)

	// クリーンアップジョブを日次でバックグラウンド実行
	go cleanupJob.Start(ctx, 24*time.Hour)

	// 再同期スケジューラをメインgoroutineで実行（ブロッキング）
	resyncScheduler.Start(ctx, cfg.ReminderResyncInterval)

	slog.Info("worker stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// directionが"down"の場合は直近の1つを戻し、それ以外は未適用分をすべて適用する。
func runMigrate(cfg *config.Config, direction string) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
		slog.String("direction", direction),
	)

	if direction == "down" {
		if err := database.RollbackMigration(cfg.DatabaseURL); err != nil {
			return fmt.Errorf("migration rollback failed: %w", err)
		}
		slog.Info("database migration rolled back")
		return nil
	}

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully")
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}
