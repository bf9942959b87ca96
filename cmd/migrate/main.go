package main

import (
	"fmt"
	"os"

	"github.com/placard/signcore/common/config"
	"github.com/placard/signcore/common/db"
	"github.com/placard/signcore/common/logger"
)

// Standalone migration runner for deploy pipelines where the server is not
// allowed to apply schema changes itself.
func main() {
	cfg, err := config.Load("migrate")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Service.LogLevel, cfg.Service.LogFormat)

	if err := db.Migrate(cfg, log); err != nil {
		log.Error("migration failed", "error", err)
		os.Exit(1)
	}

	log.Info("migrations applied")
}
