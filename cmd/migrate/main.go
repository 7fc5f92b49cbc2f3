// Command migrate applies or rolls back the database schema.
//
//	migrate up
//	migrate down [version]
//	migrate status
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/geocoder89/captionhub/internal/config"
	"github.com/geocoder89/captionhub/internal/db"
	"github.com/geocoder89/captionhub/internal/observability"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "migrate:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: migrate up|down [version]|status")
	}

	log := observability.NewLogger(os.Getenv("APP_ENV"), "captionhub-migrate")

	m, err := db.NewMigrator(config.DatabaseURL(), log)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch args[0] {
	case "up":
		return m.Up(ctx)
	case "down":
		var target int64
		if len(args) > 1 {
			target, err = strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid version %q: %w", args[1], err)
			}
		}
		return m.Down(ctx, target)
	case "status":
		return m.Status(ctx)
	default:
		return fmt.Errorf("unknown command %q", args[0])
	}
}
