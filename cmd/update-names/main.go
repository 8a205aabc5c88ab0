// Command update-names corrects attendee names from a CSV file with columns
// name,email, matching tickets by exact email. Without --execute the run is
// rolled back.
package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/farellandr/confpass/config"
	"github.com/farellandr/confpass/internal/batch"
	"github.com/farellandr/confpass/internal/helpers"
	"github.com/farellandr/confpass/internal/logging"
	"github.com/farellandr/confpass/internal/store"
)

func main() {
	os.Exit(run())
}

func run() int {
	args, err := batch.ParseArgs("update-names", os.Args[1:], os.Stderr)
	if errors.Is(err, pflag.ErrHelp) {
		return 0
	}
	if err != nil {
		slog.Error("invalid arguments", "error", err)
		return 2
	}

	if err := godotenv.Load(".env"); err != nil && !os.IsNotExist(err) {
		slog.Error("failed to load .env file", "error", err)
		return 1
	}
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		return 1
	}
	logging.Setup(cfg.LogLevel, cfg.LogFormat)

	f, err := helpers.OpenCSVFile(args.Path, helpers.UploadConfig{
		MaxSizeBytes:     cfg.CSVMaxFileSize,
		AllowedMimeTypes: helpers.DefaultCSVUploadConfig.AllowedMimeTypes,
	})
	if err != nil {
		slog.Error("failed to open csv", "path", args.Path, "error", err)
		return 1
	}
	defer f.Close()

	rows, err := batch.ReadNameRows(f)
	if err != nil {
		slog.Error("failed to read csv", "path", args.Path, "error", err)
		return 1
	}

	db, err := config.OpenDatabase(cfg.WriterDSN())
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	summary, err := batch.NewNameCorrector(store.NewAttendeeStore(db), os.Stdout).Run(ctx, rows, args.Execute)
	if err != nil {
		slog.Error("name update failed", "path", args.Path, "error", err)
		return 1
	}

	slog.Info("name update finished",
		"updated", summary.Updated,
		"missing", summary.Missing,
		"executed", summary.Executed,
	)
	return 0
}
