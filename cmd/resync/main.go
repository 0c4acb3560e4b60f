package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/dhanki/token-platform/internal/config"
	"github.com/dhanki/token-platform/internal/logger"
	"github.com/dhanki/token-platform/internal/referral"
	"github.com/dhanki/token-platform/internal/store"
)

var (
	configFile = flag.String("config", "", "Path to configuration file")
	envPath    = flag.String("env", "config/", "Path to environment files")
)

// resync rebuilds the referral downline index from the sponsor-code chain.
// Run it after restoring from a backup or repairing account data by hand.
func main() {
	flag.Parse()

	config.ChdirRepoRoot()
	cfg, err := config.LoadResyncConfig(*configFile, *envPath)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	ctx := context.Background()

	err = logger.Initialize(logger.Config{
		Debug:           cfg.Debug,
		SentryDSN:       cfg.SentryDSN,
		BreadcrumbLevel: zapcore.InfoLevel,
		Tags: map[string]string{
			"service": "resync",
		},
	})
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Flush(2 * time.Second)

	var db *gorm.DB
	connect := func() error {
		var err error
		db, err = gorm.Open(postgres.Open(cfg.Database.DSN()), &gorm.Config{})
		return err
	}
	policy := backoff.NewExponentialBackOff()
	policy.MaxElapsedTime = 30 * time.Second
	if err := backoff.Retry(connect, backoff.WithContext(policy, ctx)); err != nil {
		logger.FatalCtx(ctx, "Failed to connect to database", zap.Error(err))
	}

	if err := store.ConfigureConnectionPool(db, cfg.Database.MaxOpenConns, cfg.Database.MaxIdleConns, cfg.Database.ConnMaxLifetime, cfg.Database.ConnMaxIdleTime); err != nil {
		logger.FatalCtx(ctx, "Failed to configure connection pool", zap.Error(err))
	}

	dataStore := store.NewPGStore(db)
	tree := referral.NewTree(dataStore)

	started := time.Now()
	logger.InfoCtx(ctx, "Rebuilding referral downline index")

	if err := tree.RebuildAll(ctx); err != nil {
		logger.FatalCtx(ctx, "Resync failed", zap.Error(err))
	}

	logger.InfoCtx(ctx, "Resync complete", zap.Duration("took", time.Since(started)))
}
