// Command reorder-sweep runs one auto-reorder sweep pass and exits.
// Intended for Cloud Scheduler / cron; safe to re-run for the same day
// because each setting is keyed on settings-id + target date.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"github.com/farmdirect/marketplace_backend/config"
	"github.com/farmdirect/marketplace_backend/workflow"
)

func main() {
	var nowFlag string
	flag.StringVar(&nowFlag, "now", "", "sweep reference time, RFC3339 (default: current time)")
	flag.Parse()

	now := time.Now()
	if nowFlag != "" {
		parsed, err := time.Parse(time.RFC3339, nowFlag)
		if err != nil {
			log.Fatalf("invalid -now value: %v", err)
		}
		now = parsed
	}

	db := config.ConnectDatabaseWithRetry()
	defer config.CloseDatabase(db)

	if os.Getenv("REDIS_ADDRESS") != "" {
		config.ConnectRedisWithRetry()
	}

	result, err := workflow.RunAutoReorderSweep(db, context.Background(), now)
	if err != nil {
		log.Fatalf("sweep failed: %v", err)
	}
	log.Printf("sweep done: fired=%d skipped=%d failed=%d reminders=%d",
		result.Fired, result.Skipped, result.Failed, result.Reminders)
	if result.Failed > 0 {
		os.Exit(1)
	}
}
