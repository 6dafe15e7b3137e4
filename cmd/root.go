package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/dhcgn/mail-export/config"
	"github.com/dhcgn/mail-export/exporter"
	"github.com/dhcgn/mail-export/filter"
	"github.com/dhcgn/mail-export/mailstore"
	"github.com/dhcgn/mail-export/progress"
	"github.com/dhcgn/mail-export/render"
	"github.com/dhcgn/mail-export/stats"
)

var rootCmd = &cobra.Command{
	Use:   "mail-export",
	Short: "Export the most recent messages of a mail folder to PDF plus a contact report",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig(cmd)
		if err != nil {
			return err
		}

		logger, cleanup, err := setupLogger(cfg)
		if err != nil {
			return err
		}
		defer func() {
			_ = cleanup()
		}()

		slog.SetDefault(logger)
		logger.Info("starting mail-export", "source", cfg.Source, "folder", cfg.FolderRef().String(), "count", cfg.Count, "output", cfg.OutputDir)

		return run(cmd, cfg, logger)
	},
}

// Execute runs the CLI.
func Execute() {
	if err := config.RegisterFlags(rootCmd); err != nil {
		fmt.Fprintf(os.Stderr, "failed to register CLI flags: %v\n", err)
		os.Exit(1)
	}

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, cfg config.Config, logger *slog.Logger) error {
	store, err := newStore(cfg, logger)
	if err != nil {
		return fmt.Errorf("mail store: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warn("closing mail store failed", "err", err)
		}
	}()

	f, err := filter.New(filter.Options{
		IncludeHeader: cfg.IncludeHeader,
		IncludeBody:   cfg.IncludeBody,
		ExcludeHeader: cfg.ExcludeHeader,
		ExcludeBody:   cfg.ExcludeBody,
	})
	if err != nil {
		return fmt.Errorf("filter: %w", err)
	}

	renderer := render.NewChromeRenderer(cfg.RenderTimeout, logger)

	ex, err := exporter.New(store, renderer, f, exporter.Options{
		Folder:    cfg.FolderRef(),
		OutputDir: cfg.OutputDir,
		Count:     cfg.Count,
		KeepRaw:   cfg.KeepRaw,
	}, logger)
	if err != nil {
		return fmt.Errorf("exporter.New: %w", err)
	}

	stats.NewReporter(ex, logger)
	bar := progress.New(cfg.Count, cfg.LogLevel)
	ex.SubscribeStats("progress-bar", bar.Subscriber)

	res, err := ex.Run(cmd.Context())
	bar.Stop()
	if err != nil {
		return err
	}

	switch {
	case res.Processed == 0:
		pterm.Info.Println("No messages found to export.")
	case res.Exported == 0 && len(res.Artifacts) == 0:
		pterm.Warning.Printf("Processed %d messages but none could be exported.\n", res.Processed)
	default:
		pterm.Success.Printf("Exported %d of %d messages to %s\n", res.Exported, res.Processed, cfg.OutputDir)
	}
	if res.ReportPath != "" {
		pterm.Info.Printf("Contact report: %s\n", res.ReportPath)
	}

	return nil
}

func newStore(cfg config.Config, logger *slog.Logger) (mailstore.Store, error) {
	switch cfg.Source {
	case config.SourceMbox:
		return mailstore.NewMboxStore(cfg.MboxPath, logger)
	default:
		return mailstore.NewIMAPStore(mailstore.IMAPOptions{
			Host:               cfg.IMAPHost,
			Port:               cfg.IMAPPort,
			Username:           cfg.IMAPUser,
			Password:           cfg.IMAPPass,
			UseTLS:             cfg.UseTLS,
			InsecureSkipVerify: cfg.InsecureSkipVerify,
		}, logger)
	}
}

// setupLogger builds the slog logger. The debug log file lands in the output
// directory next to the artifacts, one timestamped file per run.
func setupLogger(cfg config.Config) (*slog.Logger, func() error, error) {
	level := new(slog.LevelVar)
	level.Set(slog.LevelInfo)

	switch cfg.LogLevel {
	case "debug":
		level.Set(slog.LevelDebug)
	case "info":
		level.Set(slog.LevelInfo)
	case "warn":
		level.Set(slog.LevelWarn)
	case "error":
		level.Set(slog.LevelError)
	}

	opts := &slog.HandlerOptions{Level: level}
	cleanup := func() error { return nil }

	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return nil, cleanup, err
	}

	logFilePath := filepath.Join(cfg.OutputDir, fmt.Sprintf("export-debug-%s.log", time.Now().Format("20060102T150405")))
	file, err := os.OpenFile(logFilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, cleanup, err
	}

	handler := slog.NewTextHandler(io.MultiWriter(os.Stdout, file), opts)
	cleanup = func() error {
		return file.Close()
	}
	return slog.New(handler), cleanup, nil
}
