/*
edgarwatch watches SEC EDGAR for ETF-relevant filings (485APOS, 485BPOS and
crypto S-1s), summarizes them, and emails a reporter.
*/
package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"edgarwatch/internal/ai"
	"edgarwatch/internal/config"
	"edgarwatch/internal/edgar"
	"edgarwatch/internal/engine"
	"edgarwatch/internal/logging"
	"edgarwatch/internal/notify"
	"edgarwatch/internal/state"
)

var (
	flagDryRun       bool
	flagBackfillDays int
	flagInterval     time.Duration
)

func main() {
	root := &cobra.Command{
		Use:           "edgarwatch",
		Short:         "SEC EDGAR ETF filing watcher",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pollCmd := &cobra.Command{
		Use:   "poll",
		Short: "Poll the current-filings feed once (or on an interval) and alert on new filings",
		RunE:  runPoll,
	}
	pollCmd.Flags().BoolVar(&flagDryRun, "dry-run", false, "process filings without sending email")
	pollCmd.Flags().IntVar(&flagBackfillDays, "backfill-days", 0, "also scan daily master indexes this many days back")
	pollCmd.Flags().DurationVar(&flagInterval, "interval", 0, "keep polling on this interval (0 = run once)")

	streamCmd := &cobra.Command{
		Use:   "stream",
		Short: "Consume the raw push-feed TCP stream and alert on framed documents",
		RunE:  runStream,
	}
	streamCmd.Flags().BoolVar(&flagDryRun, "dry-run", false, "process documents without sending email")

	repairCmd := &cobra.Command{
		Use:   "repair",
		Short: "Patch stale links and regenerate low-quality synopses in the alert history",
		RunE:  runRepair,
	}

	root.AddCommand(pollCmd, streamCmd, repairCmd)

	if err := root.Execute(); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}

// buildEngine loads configuration and assembles the pipeline.
func buildEngine() (*engine.Engine, *config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	logging.Setup(cfg.LogLevel, cfg.LogFile)

	store, err := state.NewStore(cfg.DataDir, cfg.AlertRetention)
	if err != nil {
		return nil, nil, err
	}

	var sender notify.Sender
	switch {
	case cfg.ResendAPIKey != "":
		sender = notify.NewResendSender(cfg.ResendAPIKey, cfg.ResendFrom)
	case cfg.SMTPHost != "":
		sender = notify.NewSMTPSender(notify.SMTPConfig{
			Host:      cfg.SMTPHost,
			Port:      cfg.SMTPPort,
			Username:  cfg.SMTPUsername,
			Password:  cfg.SMTPPassword,
			FromEmail: cfg.SMTPFromEmail,
		})
	default:
		log.Warn().Msg("no email provider configured, running in dry-run mode")
		sender = notify.DryRunSender{}
	}

	var summarizer ai.Summarizer
	if gemini := ai.NewGeminiSummarizer(cfg.GeminiAPIKey, cfg.GeminiModel); gemini != nil {
		summarizer = gemini
	} else {
		log.Info().Msg("GEMINI_API_KEY not set, synopses use heuristic extraction only")
	}

	eng := engine.New(engine.Options{
		Client:         edgar.NewClient(cfg.SECUserAgent, cfg.RequestTimeout),
		Store:          store,
		Summarizer:     summarizer,
		Sender:         sender,
		ReporterEmail:  cfg.ReporterEmail,
		CryptoKeywords: cfg.CryptoKeywords,
	})
	return eng, cfg, nil
}

func runPoll(cmd *cobra.Command, args []string) error {
	eng, _, err := buildEngine()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if flagInterval <= 0 {
		return eng.RunOnce(ctx, flagDryRun, flagBackfillDays)
	}

	ticker := time.NewTicker(flagInterval)
	defer ticker.Stop()
	for {
		if err := eng.RunOnce(ctx, flagDryRun, flagBackfillDays); err != nil {
			log.Error().Err(err).Msg("poll run failed")
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func runStream(cmd *cobra.Command, args []string) error {
	eng, cfg, err := buildEngine()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	addr := net.JoinHostPort(cfg.StreamHost, fmt.Sprintf("%d", cfg.StreamPort))
	chunk := make([]byte, cfg.StreamChunkSize)

	for ctx.Err() == nil {
		if err := consumeStream(ctx, eng, addr, chunk); err != nil {
			log.Warn().Err(err).
				Str("addr", addr).
				Dur("retry_in", cfg.StreamReconnect).
				Msg("stream connection lost, reconnecting")
		}
		select {
		case <-ctx.Done():
		case <-time.After(cfg.StreamReconnect):
		}
	}
	return nil
}

// consumeStream reads one connection until it drops, feeding every chunk
// into the framer.
func consumeStream(ctx context.Context, eng *engine.Engine, addr string, chunk []byte) error {
	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", addr, err)
	}
	defer conn.Close()
	log.Info().Str("addr", addr).Msg("connected to push-feed stream")

	// Unblock the blocking Read when the context is canceled.
	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	for {
		n, err := conn.Read(chunk)
		if n > 0 {
			eng.IngestChunk(ctx, chunk[:n], flagDryRun)
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("stream read failed: %w", err)
		}
	}
}

func runRepair(cmd *cobra.Command, args []string) error {
	eng, _, err := buildEngine()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repaired, err := eng.RepairAlerts(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("repaired %d alert record(s)\n", repaired)
	return nil
}
