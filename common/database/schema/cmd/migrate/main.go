package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"tradewages/common/database"
	"tradewages/common/database/schema"
	"tradewages/common/database/schema/migrations"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func getEnv(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return defaultValue
}

func main() {
	down := flag.Int("down", 0, "roll back the migration with this version instead of migrating up")
	flag.Parse()

	_ = godotenv.Load()

	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	db, err := database.New(ctx, database.Options{
		DSN:      getEnv("CLICKHOUSE_DSN", "127.0.0.1:9000"),
		Username: getEnv("CLICKHOUSE_USERNAME", "default"),
		Password: getEnv("CLICKHOUSE_PASSWORD", ""),
		Database: getEnv("CLICKHOUSE_DATABASE", "tradewages"),
	}, logger)
	if err != nil {
		logger.Fatal("Failed to connect to ClickHouse", zap.Error(err))
	}
	defer db.Close()

	migrator := schema.NewMigrator(db.Conn(), logger)

	if *down > 0 {
		for _, migration := range migrations.All() {
			if migration.Version != *down {
				continue
			}
			if err := migrator.RollbackMigration(ctx, migration); err != nil {
				logger.Fatal("Failed to roll back migration",
					zap.Int("version", migration.Version),
					zap.Error(err))
			}
			logger.Info("Rolled back migration", zap.Int("version", migration.Version))
			return
		}
		logger.Fatal("Unknown migration version", zap.Int("version", *down))
	}

	applied, err := migrator.Migrate(ctx, migrations.All())
	if err != nil {
		logger.Fatal("Failed to apply migrations", zap.Error(err))
	}

	logger.Info("All migrations completed successfully", zap.Int("applied", applied))
}
