// Package main provides the formgate server.
//
// formgate exposes a Slack slash command (/formulario) that opens a
// data-entry modal, validates the submission, appends it as a row to a
// Google Sheets spreadsheet, and notifies the submitter by direct message.
//
// Usage:
//
//	SLACK_BOT_TOKEN=xoxb-... \
//	SLACK_SIGNING_SECRET=... \
//	SHEETS_SPREADSHEET_ID=... \
//	SHEETS_CREDENTIALS_JSON='{"type":"service_account",...}' \
//	./formgate
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/slack-go/slack"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/formgate/internal/config"
	"github.com/fyrsmithlabs/formgate/internal/logging"
	"github.com/fyrsmithlabs/formgate/internal/pipeline"
	"github.com/fyrsmithlabs/formgate/internal/server"
	"github.com/fyrsmithlabs/formgate/internal/sheets"
	"github.com/fyrsmithlabs/formgate/internal/slackbot"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to optional YAML config file")
	flag.Parse()

	// Local development convenience; ignored when no .env file exists.
	_ = godotenv.Load()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logCfg, err := logging.ParseConfig(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return fmt.Errorf("parsing log configuration: %w", err)
	}
	logger, err := logging.NewLogger(logCfg)
	if err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info(ctx, "formgate starting",
		zap.String("host", cfg.Server.Host),
		zap.Int("port", cfg.Server.Port),
		zap.String("spreadsheet_id", cfg.Sheets.SpreadsheetID),
		zap.String("timezone", cfg.Sheets.Timezone),
	)

	client := slack.New(cfg.Slack.BotToken.Value())

	gateway, err := sheets.New(&sheets.Config{
		SpreadsheetID:   cfg.Sheets.SpreadsheetID,
		CredentialsJSON: cfg.Sheets.CredentialsJSON,
		Timezone:        cfg.Sheets.Timezone,
	}, logger.Named("sheets"))
	if err != nil {
		return fmt.Errorf("creating sheets gateway: %w", err)
	}

	notifier, err := slackbot.NewNotifier(client, logger.Named("notifier"), cfg.Sheets.Timezone)
	if err != nil {
		return fmt.Errorf("creating notifier: %w", err)
	}

	pipe, err := pipeline.New(gateway, notifier, logger.Named("pipeline"))
	if err != nil {
		return fmt.Errorf("creating pipeline: %w", err)
	}

	bot, err := slackbot.New(client, pipe, logger.Named("slackbot"))
	if err != nil {
		return fmt.Errorf("creating slack bot: %w", err)
	}

	srv, err := server.NewServer(bot, cfg.Slack.SigningSecret, logger.Named("server"), &server.Config{
		Host: cfg.Server.Host,
		Port: cfg.Server.Port,
	})
	if err != nil {
		return fmt.Errorf("creating http server: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	logger.Info(ctx, "shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down http server: %w", err)
	}

	logger.Info(context.Background(), "formgate stopped")
	return nil
}
