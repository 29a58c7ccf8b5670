package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"equipdata/internal/config"
	"equipdata/internal/database"
	"equipdata/internal/repository"
	"equipdata/internal/service"
	"equipdata/internal/store"
	"equipdata/internal/tabular"
)

// Operational tool: ingest a measurement file from disk for an owner and
// print the structured result. With -dry-run the pipeline runs against an
// in-memory repository, which is handy for checking a file before a real
// upload.
func main() {
	var (
		file   = flag.String("file", "", "Path to the CSV or XLSX file to ingest")
		owner  = flag.String("owner", "", "Owner identity the dataset belongs to")
		name   = flag.String("name", "", "Dataset name (default: file basename)")
		dryRun = flag.Bool("dry-run", false, "Validate and aggregate without touching the database")
	)
	flag.Parse()

	if *file == "" || *owner == "" {
		flag.Usage()
		os.Exit(2)
	}
	if *name == "" {
		*name = filepath.Base(*file)
	}

	cfg := config.Load()

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	f, err := os.Open(*file)
	if err != nil {
		log.Fatalf("Failed to open file: %v", err)
	}
	defer f.Close()

	var table *tabular.Table
	if strings.EqualFold(filepath.Ext(*file), ".xlsx") {
		table, err = tabular.ReadXLSX(f)
	} else {
		table, err = tabular.ReadCSV(f)
	}
	if err != nil {
		log.Fatalf("Failed to parse file: %v", err)
	}

	var repo repository.DatasetsRepository
	if *dryRun || !cfg.DBEnabled {
		repo = repository.NewMemoryDatasetsRepository()
	} else {
		db, err := database.NewPostgresDB(&cfg.Database)
		if err != nil {
			log.Fatalf("Cannot connect to database: %v", err)
		}
		defer db.Close()
		repo = repository.NewPostgresDatasetsRepository(db)
	}

	retention := service.NewRetentionManager(repo, cfg.RetentionLimit, logger)
	ingest := service.NewIngestService(repo, retention, logger)

	if !*dryRun && cfg.DBEnabled {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
		cache := store.NewSummaryCache(store.NewRedisKV(redisClient))
		ingest.SetSummaryCache(cache)
		retention.SetSummaryCache(cache)
	}
	if cfg.Webhook.Enabled && cfg.Webhook.URL != "" {
		ingest.SetNotifier(service.NewCompletionNotifier(cfg.Webhook.URL, logger))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	result, err := ingest.Ingest(ctx, service.IngestRequest{
		OwnerID: *owner,
		Name:    *name,
		Table:   table,
	})
	if err != nil {
		log.Fatalf("Ingestion failed: %v", err)
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		log.Fatalf("Failed to encode result: %v", err)
	}
	fmt.Println(string(out))

	if !result.Accepted {
		os.Exit(1)
	}
}
