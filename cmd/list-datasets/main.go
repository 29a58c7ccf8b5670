package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"go.uber.org/zap"

	"equipdata/internal/config"
	"equipdata/internal/database"
	"equipdata/internal/repository"
	"equipdata/internal/service"
)

// Operational tool: show an owner's retained datasets, or export one
// dataset's records to a spreadsheet.
func main() {
	var (
		owner   = flag.String("owner", "", "Owner identity to inspect")
		export  = flag.String("export", "", "Dataset ID whose records should be exported")
		outPath = flag.String("out", "records.xlsx", "Output path for -export")
	)
	flag.Parse()

	if *owner == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg := config.Load()

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	db, err := database.NewPostgresDB(&cfg.Database)
	if err != nil {
		log.Fatalf("Cannot connect to database: %v", err)
	}
	defer db.Close()

	repo := repository.NewPostgresDatasetsRepository(db)
	datasets := service.NewDatasetService(repo, cfg.RetentionLimit, logger)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	if *export != "" {
		data, err := datasets.ExportRecords(ctx, *owner, *export)
		if err != nil {
			log.Fatalf("Export failed: %v", err)
		}
		if err := os.WriteFile(*outPath, data, 0o644); err != nil {
			log.Fatalf("Failed to write %s: %v", *outPath, err)
		}
		fmt.Printf("Exported records of %s to %s\n", *export, *outPath)
		return
	}

	items, err := datasets.ListDatasets(ctx, *owner)
	if err != nil {
		log.Fatalf("Failed to list datasets: %v", err)
	}
	out, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		log.Fatalf("Failed to encode datasets: %v", err)
	}
	fmt.Println(string(out))
}
