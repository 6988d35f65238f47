package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/use-agent/bestip/browser"
	"github.com/use-agent/bestip/config"
	"github.com/use-agent/bestip/logbook"
	"github.com/use-agent/bestip/models"
	"github.com/use-agent/bestip/session"
)

// Version is set at build time via -ldflags "-X main.Version=...".
var Version = "dev"

func newRootCmd() *cobra.Command {
	cfg := config.Load()

	root := &cobra.Command{
		Use:           "bestip",
		Short:         "Run the CloudFlare best-IP latency test and log its results",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			initLogger(cfg.Log)
		},
	}
	root.PersistentFlags().StringVar(&cfg.Logbook.Path, "log-file", cfg.Logbook.Path, "result log file")
	root.PersistentFlags().IntVar(&cfg.Logbook.RotateAfterDays, "rotate-after-days", cfg.Logbook.RotateAfterDays, "rotate the log once its newest record is this many days old")
	root.PersistentFlags().StringVar(&cfg.Log.Level, "log-level", cfg.Log.Level, "debug, info, warn or error")
	root.PersistentFlags().StringVar(&cfg.Log.Format, "log-format", cfg.Log.Format, "text or json")

	run := newRunCmd(cfg)
	root.RunE = run.RunE
	root.Flags().AddFlagSet(run.Flags())

	root.AddCommand(run, newInspectCmd(cfg))
	root.SetVersionTemplate("{{printf \"%s\\n\" .Version}}")
	return root
}

func newRunCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Drive the page through one test and persist the result",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runSession(ctx, cfg)
		},
	}
	f := cmd.Flags()
	f.BoolVar(&cfg.Automation, "automation", cfg.Automation, "launch a headless browser (defaults to on under GITHUB_ACTIONS)")
	f.StringVar(&cfg.Session.TargetURL, "url", cfg.Session.TargetURL, "measurement page")
	f.StringVar(&cfg.Session.Source, "source", cfg.Session.Source, "IP source option value")
	f.StringVar(&cfg.Session.Port, "port", cfg.Session.Port, "port option value")
	f.DurationVar(&cfg.Poller.InitialDelay, "initial-delay", cfg.Poller.InitialDelay, "wait before the first completion check")
	f.DurationVar(&cfg.Poller.Interval, "poll-interval", cfg.Poller.Interval, "spacing between completion checks")
	f.IntVar(&cfg.Poller.MaxChecks, "poll-checks", cfg.Poller.MaxChecks, "completion checks before giving up")
	f.StringVar(&cfg.Logbook.Marker, "marker", cfg.Logbook.Marker, "body label the run token is inserted after")
	return cmd
}

func newInspectCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect",
		Short: "Report whether the next record would append to or rotate the log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d := newBook(cfg).Decide()
			last := d.LastRecord
			if last == "" {
				last = "-"
			}
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "file: %s\nmode: %s\nreason: %s\nlast record: %s\nage days: %d\n",
				cfg.Logbook.Path, d.Mode, d.Reason, last, d.AgeDays)
			return err
		},
	}
}

func newBook(cfg *config.Config) *logbook.Manager {
	return logbook.New(cfg.Logbook.Path,
		logbook.WithRotateAfterDays(cfg.Logbook.RotateAfterDays),
		logbook.WithMarker(cfg.Logbook.Marker),
	)
}

func runSession(ctx context.Context, cfg *config.Config) error {
	slog.Info("bestip starting",
		"version", Version,
		"automation", cfg.Automation,
		"url", cfg.Session.TargetURL,
		"logFile", cfg.Logbook.Path,
	)

	var drv browser.Driver
	if cfg.Automation {
		d, err := browser.Launch(cfg.Browser)
		if err != nil {
			slog.Error("browser unavailable", "error", err)
			return err
		}
		drv = d
	}

	orch := session.New(drv, newBook(cfg), cfg.Session, cfg.Poller)
	defer orch.Close()

	res, err := orch.Run(ctx)
	if err != nil {
		var se *models.StageError
		if errors.As(err, &se) {
			slog.Error("run failed", "stage", se.Stage, "code", se.Code, "error", se.Err)
		} else {
			slog.Error("run failed", "error", err)
		}
		return err
	}

	if res.Skipped {
		slog.Info("run finished in local mode, nothing persisted")
		return nil
	}
	slog.Info("run succeeded",
		"mode", res.Decision.Mode.String(),
		"reason", res.Decision.Reason,
		"token", res.Token,
	)
	return nil
}

// initLogger configures slog based on the LogConfig.
func initLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}
