package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/daniltm/prodbot/internal/assistant"
	"github.com/daniltm/prodbot/internal/bus"
	"github.com/daniltm/prodbot/internal/channels/telegram"
	"github.com/daniltm/prodbot/internal/classifier"
	"github.com/daniltm/prodbot/internal/config"
	"github.com/daniltm/prodbot/internal/pipeline"
	"github.com/daniltm/prodbot/internal/store/file"
	"github.com/daniltm/prodbot/internal/transcribe"
	"github.com/daniltm/prodbot/internal/vocab"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the bot daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}
}

func runServe() error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := file.NewStore(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}

	voc, err := vocab.New(cfg.OpenAI.APIKey, cfg.OpenAI.VisionModel, store)
	if err != nil {
		return fmt.Errorf("init vocabulary service: %w", err)
	}

	mb := bus.New()
	defer mb.Close()

	p := pipeline.New(classifier.New(cfg.OpenAI.APIKey, cfg.OpenAI.Model), cfg.Location())
	svc := assistant.New(mb, store, p, transcribe.New(cfg.OpenAI.APIKey, cfg.OpenAI.VoiceLanguage), voc)

	channel, err := telegram.New(cfg.Telegram.BotToken, mb, store)
	if err != nil {
		return err
	}

	errCh := make(chan error, 2)
	go func() { errCh <- svc.Run(ctx) }()
	go func() { errCh <- channel.Run(ctx) }()

	slog.Info("prodbot started", "data_dir", cfg.DataDir, "timezone", cfg.Timezone)

	select {
	case <-ctx.Done():
		slog.Info("shutting down")
		return nil
	case err := <-errCh:
		if err != nil && ctx.Err() == nil {
			return err
		}
		return nil
	}
}
