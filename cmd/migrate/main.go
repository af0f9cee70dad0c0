// cmd/migrate applies or rolls back the embedded schema migrations.
// Usage: migrate [up | down N]
package main

import (
	"os"
	"strconv"
	"time"

	"restopos/internal/config"
	"restopos/internal/infra"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	db, err := infra.NewDatabase(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}

	cmd := "up"
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}
	switch cmd {
	case "up":
		err = infra.RunMigrations(db)
	case "down":
		steps := 1
		if len(os.Args) > 2 {
			if steps, err = strconv.Atoi(os.Args[2]); err != nil || steps < 1 {
				log.Fatal().Str("steps", os.Args[2]).Msg("down expects a positive step count")
			}
		}
		err = infra.RollbackMigrations(db, steps)
	default:
		log.Fatal().Str("command", cmd).Msg("usage: migrate [up | down N]")
	}
	if err != nil {
		log.Fatal().Err(err).Msg("migration failed")
	}
}
