package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/user/lector/internal/audio"
	"github.com/user/lector/internal/clock"
	"github.com/user/lector/internal/feed"
	"github.com/user/lector/internal/notify"
	"github.com/user/lector/internal/runner"
	"github.com/user/lector/internal/scheduler"
	"github.com/user/lector/internal/speech"
	"github.com/user/lector/internal/state"
	"github.com/user/lector/internal/timer"
	"github.com/user/lector/internal/types"
	"github.com/user/lector/internal/webhook"
)

func init() {
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the lector daemon",
	RunE:  runServe,
}

func writePIDFile(dataDir string) (string, error) {
	pidPath := filepath.Join(dataDir, "lector.pid")
	pid := os.Getpid()
	if err := os.WriteFile(pidPath, []byte(strconv.Itoa(pid)+"\n"), 0644); err != nil {
		return "", fmt.Errorf("write PID file: %w", err)
	}
	return pidPath, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	setupLogging(cfg)

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	pidPath, err := writePIDFile(cfg.DataDir)
	if err != nil {
		return err
	}
	defer os.Remove(pidPath)

	clk := clock.System()

	// Stores
	sessions := state.NewSessionStore(cfg.DataDir)
	articles := state.NewArticleStore(cfg.DataDir)
	ledger := state.NewAlarmLedger(cfg.DataDir, clk)

	// Speaker
	speaker, err := speech.NewCommandSpeaker(cfg.Speech.Command)
	if err != nil {
		return fmt.Errorf("create speaker: %w", err)
	}

	// Audio arbiter
	arbiter := audio.New()

	// Runner
	refresher := feed.NewRefresher(articles)
	run := runner.New(arbiter, speaker, articles, refresher, runner.NewHub())
	arbiter.SetHandlers(run.PauseFromFocusLoss, run.ResumeFromFocusGain)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Scheduler
	timers := timer.New(clk, func() bool { return cfg.Alarms.AllowExact })
	sched := scheduler.New(sessions, timers, ledger, clk, func(params types.StartParams) {
		if err := run.Start(ctx, params); err != nil {
			slog.Error("scheduled start failed", "session_id", params.SessionID, "error", err)
		}
	})
	run.SetRescheduler(sched)

	// Arm all eligible rules on boot.
	sessionList, err := sessions.List(ctx)
	if err != nil {
		return fmt.Errorf("list sessions: %w", err)
	}
	for _, sess := range sessionList {
		if err := sched.RescheduleSession(ctx, sess.ID); err != nil {
			slog.Error("arm session rules failed", "session_id", sess.ID, "error", err)
		}
	}

	slog.Info("lector started",
		"data_dir", cfg.DataDir,
		"log_level", cfg.LogLevel,
		"speech_command", cfg.Speech.Command,
		"sessions", len(sessionList),
		"pid_file", pidPath,
	)

	// Telegram notifier
	if cfg.Telegram.Token != "" && cfg.Telegram.ChatID != 0 {
		tg, err := notify.NewTelegram(cfg.Telegram.Token, cfg.Telegram.ChatID, func(params types.StartParams) {
			if err := run.Start(ctx, params); err != nil {
				slog.Error("override start failed", "session_id", params.SessionID, "error", err)
			}
		})
		if err != nil {
			return fmt.Errorf("create telegram notifier: %w", err)
		}
		tg.Attach(run.Hub())
		go tg.Start(ctx)
		slog.Info("telegram notifier started")
	} else {
		slog.Warn("telegram notifier disabled (no token or chat id)")
	}

	// Webhook HTTP server
	if cfg.HTTP.Enabled {
		srv := webhook.NewServer(sessions, run, sched)
		httpServer := &http.Server{
			Addr:    cfg.HTTP.Listen,
			Handler: srv,
		}
		go func() {
			slog.Info("webhook server started", "listen", cfg.HTTP.Listen)
			if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				slog.Error("webhook server error", "error", err)
			}
		}()
		go func() {
			<-ctx.Done()
			httpServer.Close()
		}()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	for {
		sig := <-sigChan
		if sig == syscall.SIGHUP {
			slog.Info("received SIGHUP, restarting")
			execPath, err := os.Executable()
			if err != nil {
				slog.Error("failed to get executable path", "error", err)
				continue
			}
			run.Stop()
			os.Remove(pidPath)
			if err := syscall.Exec(execPath, os.Args, os.Environ()); err != nil {
				slog.Error("failed to re-exec", "error", err)
				if _, writeErr := writePIDFile(cfg.DataDir); writeErr != nil {
					slog.Error("failed to re-write PID file", "error", writeErr)
				}
				continue
			}
		}
		// SIGINT or SIGTERM
		slog.Info("shutting down", "signal", sig)
		run.Stop()
		return nil
	}
}
