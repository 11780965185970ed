package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hitoshi/medconfirm/internal/config"
	"github.com/hitoshi/medconfirm/internal/database"
	"github.com/hitoshi/medconfirm/internal/reminder"
	"github.com/hitoshi/medconfirm/internal/storage"
)

// openDatabase はDBに接続し、疎通を確認する。
func openDatabase(ctx context.Context, cfg *config.Config) (*sql.DB, error) {
	db, err := database.Open(cfg.DatabaseURL, database.PoolOptions{
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
	})
	if err != nil {
		return nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established")
	return db, nil
}

// newReminderScheduler はREDIS_ADDRが設定されていればRedis、なければインメモリの配信ストアを返す。
// 戻り値の関数で接続を閉じる。
func newReminderScheduler(ctx context.Context, cfg *config.Config) (reminder.Scheduler, func(), error) {
	if cfg.RedisAddr == "" {
		slog.Warn("REDIS_ADDR is not set; reminders are kept in memory only")
		return reminder.NewMemoryScheduler(), func() {}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	slog.Info("redis connection established", slog.String("addr", cfg.RedisAddr))
	return reminder.NewRedisScheduler(client), func() { client.Close() }, nil
}

// newPhotoStore はMinIOが設定されていれば写真ストレージを返す。未設定の場合はnil。
func newPhotoStore(ctx context.Context, cfg *config.Config) (*storage.PhotoStore, error) {
	if !cfg.PhotoStorageEnabled() {
		slog.Warn("MINIO_ENDPOINT is not set; photo uploads are disabled")
		return nil, nil
	}

	store, err := storage.NewPhotoStore(ctx, storage.Options{
		Endpoint:  cfg.MinIOEndpoint,
		AccessKey: cfg.MinIOAccessKey,
		SecretKey: cfg.MinIOSecretKey,
		Bucket:    cfg.MinIOBucket,
		UseSSL:    cfg.MinIOUseSSL,
		URLTTL:    cfg.PhotoURLTTL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to init photo storage: %w", err)
	}

	slog.Info("photo storage ready", slog.String("bucket", cfg.MinIOBucket))
	return store, nil
}

// dependencyChecker は /health で疎通を確認する依存先。写真ストレージは設定時のみ確認する。
type dependencyChecker struct {
	db     *sql.DB
	photos *storage.PhotoStore
}

func (c dependencyChecker) PingContext(ctx context.Context) error {
	if err := c.db.PingContext(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if c.photos != nil {
		if err := c.photos.Ping(ctx); err != nil {
			return fmt.Errorf("photo storage: %w", err)
		}
	}
	return nil
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "***"
	}
	if u.User != nil {
		u.User = url.User("***")
	}
	return u.Redacted()
}
