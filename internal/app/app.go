// Package app assembles the service: configuration, logging, database, cache,
// metrics and the domain modules, with a lifecycle the binaries drive.
package app

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/echoverse/server/internal/module/extract"
	"github.com/echoverse/server/internal/module/intake"
	"github.com/echoverse/server/internal/module/quota"
	"github.com/echoverse/server/internal/module/storage"
	"github.com/echoverse/server/internal/module/usage"
	"github.com/echoverse/server/internal/module/user"
	"github.com/echoverse/server/internal/shared/cache"
	"github.com/echoverse/server/internal/shared/config"
	"github.com/echoverse/server/internal/shared/database"
	"github.com/echoverse/server/internal/shared/httpclient"
	"github.com/echoverse/server/internal/shared/logger"
	"github.com/echoverse/server/internal/utils/metrics"
)

// Application is the composed service.
type Application struct {
	Config  *config.Config
	Logger  *zap.Logger
	DB      *gorm.DB
	Redis   *redis.Client // nil when disabled
	Metrics *metrics.Metrics

	Users    *user.Service
	Guard    *quota.Guard
	Ledger   usage.Repository
	Intake   *intake.Service
	recorder *usage.Recorder
}

// New builds the application from configuration. Construction is explicit and
// ordered; wire.go carries the equivalent provider sets for generation.
func New(cfg *config.Config) (*Application, error) {
	zapLogger, err := logger.NewZapLogger(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	db, err := database.New(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if err := db.AutoMigrate(&user.Profile{}, &user.Plan{}, &usage.Event{}); err != nil {
		return nil, fmt.Errorf("migrate schema: %w", err)
	}

	m := metrics.New("echoverse")

	var redisClient *redis.Client
	var counter quota.DayCounter
	if cfg.Redis.Address != "" {
		redisClient, err = cache.NewRedisClient(&cfg.Redis)
		if err != nil {
			// The day counter is an optional cache; run without it.
			zapLogger.Warn("redis unavailable, day counter disabled", zap.Error(err))
		} else {
			counter = usage.NewDayCounter(redisClient)
		}
	}

	userRepo := user.NewRepository(db)
	users := user.NewService(userRepo, zapLogger)
	if err := userRepo.SeedPlans(context.Background(), user.DefaultPlans()); err != nil {
		return nil, fmt.Errorf("seed plans: %w", err)
	}

	ledger := usage.NewRepository(db, m)
	recorder := usage.NewRecorder(ledger, zapLogger, 1000)

	policy, err := quota.NewPolicy(cfg.Quota.FreeLimits)
	if err != nil {
		return nil, fmt.Errorf("quota policy: %w", err)
	}
	guard := quota.NewGuard(users, ledger, recorder, counter, policy, nil, zapLogger, m)

	blobs, err := newBlobStore(&cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("blob store: %w", err)
	}

	registry := extract.NewDefaultRegistry(&cfg.Extract, httpclient.New(cfg.HTTP))
	svc := intake.NewService(users, guard, blobs, registry, zapLogger, m)

	return &Application{
		Config:   cfg,
		Logger:   zapLogger,
		DB:       db,
		Redis:    redisClient,
		Metrics:  m,
		Users:    users,
		Guard:    guard,
		Ledger:   ledger,
		Intake:   svc,
		recorder: recorder,
	}, nil
}

// Close flushes the audit recorder and releases connections.
func (a *Application) Close() {
	if a.recorder != nil {
		a.recorder.Close()
	}
	if a.Redis != nil {
		if err := cache.Close(a.Redis); err != nil {
			a.Logger.Warn("close redis", zap.Error(err))
		}
	}
	if a.DB != nil {
		if err := database.Close(a.DB); err != nil {
			a.Logger.Warn("close database", zap.Error(err))
		}
	}
	_ = a.Logger.Sync()
}

func newBlobStore(cfg *config.StorageConfig) (storage.Store, error) {
	switch cfg.Backend {
	case "", "filesystem":
		return storage.NewFilesystemStore(cfg.BaseDir)
	case "s3":
		return storage.NewS3Store(&storage.S3Config{
			Endpoint:        cfg.Endpoint,
			Region:          cfg.Region,
			AccessKeyID:     cfg.AccessKeyID,
			SecretAccessKey: cfg.SecretAccessKey,
			Bucket:          cfg.Bucket,
		})
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}
