package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/smukkama/aqi-forecast/internal/database"
	"github.com/smukkama/aqi-forecast/internal/dataset"
	"github.com/smukkama/aqi-forecast/internal/forecast"
	"github.com/smukkama/aqi-forecast/internal/logging"
	"github.com/smukkama/aqi-forecast/internal/presentation"
	"github.com/smukkama/aqi-forecast/pkg/config"
)

func main() {
	asJSON := flag.Bool("json", false, "print the forecast view as JSON")
	timeout := flag.Duration("timeout", 2*time.Minute, "maximum run time")
	flag.Parse()

	os.Exit(run(*asJSON, *timeout))
}

func run(asJSON bool, timeout time.Duration) int {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Printf("Failed to load configuration: %v", err)
		return 1
	}

	// stdout is reserved for the report
	logger, closer, err := logging.NewWithConsole(cfg.Log, os.Stderr)
	if err != nil {
		log.Printf("Failed to set up logging: %v", err)
		return 1
	}
	defer closer.Close()

	var runner dataset.QueryRunner
	if cfg.Pipeline.DataSource == config.SourcePostgres {
		db, err := database.Connect(cfg.Database.ConnectionString())
		if err != nil {
			logger.WithError(err).Error("Failed to connect to database")
			return 1
		}
		defer db.Close()
		runner = db
	}

	source, err := forecast.NewSource(cfg.Pipeline, runner)
	if err != nil {
		logger.WithError(err).Error("Failed to create dataset source")
		return 1
	}

	pipeline, err := forecast.New(cfg.Pipeline, source, logger)
	if err != nil {
		logger.WithError(err).Error("Failed to create pipeline")
		return 1
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	result, err := pipeline.Run(ctx)
	if err != nil {
		logger.WithError(err).WithField("kind", forecast.Classify(err)).Error("Forecast failed")
		fmt.Fprintf(os.Stderr, "%s\n", err)
		return 1
	}

	view := presentation.Build(result, presentation.DefaultOptions(cfg.Pipeline.WindowSize))
	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		err = enc.Encode(view)
	} else {
		err = presentation.RenderText(os.Stdout, view)
	}
	if err != nil {
		logger.WithError(err).Error("Failed to write report")
		return 1
	}
	return 0
}
