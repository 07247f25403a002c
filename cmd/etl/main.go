package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/redis/go-redis/v9"

	"github.com/ignite/property-etl/internal/api"
	"github.com/ignite/property-etl/internal/config"
	"github.com/ignite/property-etl/internal/loader"
	"github.com/ignite/property-etl/internal/pipeline"
	"github.com/ignite/property-etl/internal/pkg/logger"
	"github.com/ignite/property-etl/internal/store"
	"github.com/ignite/property-etl/internal/transform"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	filePath := flag.String("file", "", "process a single JSON file instead of the data directory")
	validate := flag.Bool("validate", false, "run post-load validation checks and print the report")
	flag.Parse()

	cfg, err := config.LoadFromEnv(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logger.SetLevel(logger.ParseLevel(cfg.Logging.Level))
	if cfg.Logging.RedactContacts != nil {
		logger.SetRedactContacts(*cfg.Logging.RedactContacts)
	}

	if cfg.Database.URL == "" {
		log.Fatal("database url is required (config database.url or DATABASE_URL)")
	}

	ctx := context.Background()

	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()

	pg := store.NewPostgres(db)
	if err := pg.Ping(ctx); err != nil {
		log.Fatalf("database unavailable: %v", err)
	}
	logger.Info("connected to database")

	mapping := loadMapping(cfg.Ingest.FieldConfig)
	transformer := transform.NewTransformer(mapping)

	ld, err := loader.New(ctx, pg)
	if err != nil {
		log.Fatalf("initialize loader: %v", err)
	}

	var tracker pipeline.ProgressTracker
	if cfg.Redis.Enabled {
		client := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
		if err := client.Ping(ctx).Err(); err != nil {
			logger.Warn("redis unreachable, progress tracking disabled", "addr", cfg.Redis.Addr, "error", err)
		} else {
			tracker = pipeline.NewRedisTracker(client)
		}
	}

	runner := pipeline.NewRunner(transformer, ld, tracker)

	if cfg.Server.Enabled {
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		go func() {
			logger.Info("status API listening", "addr", addr)
			if err := http.ListenAndServe(addr, api.NewRouter(runner)); err != nil {
				logger.Error("status API stopped", "error", err)
			}
		}()
	}

	sources, err := buildSources(ctx, cfg, *filePath)
	if err != nil {
		log.Fatalf("resolve sources: %v", err)
	}
	if len(sources) == 0 {
		log.Fatalf("no JSON sources found (data dir %s)", cfg.Ingest.DataDir)
	}

	reports, runErr := runner.RunAll(ctx, sources)
	for _, r := range reports {
		fmt.Printf("%s: %d/%d succeeded (%.1f%%), %d failed\n",
			r.Source, r.Succeeded, r.Total, r.SuccessRate, r.Failed)
	}
	if runErr != nil {
		log.Fatalf("pipeline aborted: %v", runErr)
	}

	if *validate {
		report, err := pg.Validate(ctx)
		if err != nil {
			log.Fatalf("validation failed: %v", err)
		}
		out, _ := json.MarshalIndent(report, "", "  ")
		fmt.Println(string(out))
		if !report.Clean() {
			os.Exit(1)
		}
	}
}

func loadMapping(path string) transform.FieldMapping {
	mapping, err := transform.LoadFieldConfig(path)
	if err != nil {
		logger.Warn("field config unavailable, using default mapping",
			"path", path, "error", err)
		return transform.DefaultMapping()
	}
	return mapping
}

func buildSources(ctx context.Context, cfg *config.Config, filePath string) ([]pipeline.Source, error) {
	if filePath != "" {
		return []pipeline.Source{pipeline.FileSource{Path: filePath}}, nil
	}

	sources, err := pipeline.DirSources(cfg.Ingest.DataDir)
	if err != nil {
		return nil, err
	}

	if cfg.Ingest.S3.Enabled {
		bucket, err := pipeline.NewS3Bucket(ctx,
			cfg.Ingest.S3.Bucket, cfg.Ingest.S3.Prefix,
			cfg.Ingest.S3.Region, cfg.Ingest.S3.Profile)
		if err != nil {
			return nil, err
		}
		s3Sources, err := bucket.Sources(ctx)
		if err != nil {
			return nil, err
		}
		sources = append(sources, s3Sources...)
	}

	return sources, nil
}
