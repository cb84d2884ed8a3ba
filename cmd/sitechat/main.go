// sitechat - retrieval-grounded chat backend for the Timeless NP site.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/timelessnp/sitechat/internal/api"
	"github.com/timelessnp/sitechat/internal/domain/chat"
	"github.com/timelessnp/sitechat/internal/domain/index"
	"github.com/timelessnp/sitechat/internal/domain/ingest"
	"github.com/timelessnp/sitechat/internal/domain/tool"
	"github.com/timelessnp/sitechat/internal/infra/config"
	"github.com/timelessnp/sitechat/internal/infra/llm"
	"github.com/timelessnp/sitechat/internal/pkg/errs"
	"github.com/timelessnp/sitechat/internal/server"
	"github.com/timelessnp/sitechat/internal/version"
)

const shutdownGrace = 10 * time.Second

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:           "sitechat",
		Short:         "retrieval-grounded site assistant backend",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "path to config.yaml")

	rootCmd.AddCommand(
		newServeCmd(&configPath),
		newIngestCmd(&configPath),
		newVersionCmd(),
	)
	return rootCmd
}

func newServeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "serve the chat API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			logger, err := newLogger(cfg.Log.Level)
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck

			provider, err := buildProvider(cfg)
			if err != nil {
				return err
			}
			provider = llm.WrapEmbedCache(provider, cfg.LLM.EmbedCacheSize, cfg.LLM.EmbedCacheTTL.Duration)

			idx, err := loadIndex(cfg, logger)
			if err != nil {
				return err
			}

			deps := api.Deps{
				Chat: chat.NewService(chat.Options{
					Provider:     provider,
					Index:        idx,
					TopK:         cfg.Retrieval.TopK,
					AllowedPages: cfg.Site.AllowedPages,
					Logger:       logger,
				}),
				Tools: tool.NewRegistry(
					tool.NewNavigateHandler(cfg.Site.AllowedPages, cfg.Site.BasePath),
					tool.NewScrollHandler(cfg.Site.Sections),
				),
				Config: cfg,
				Logger: logger,
			}
			return runServer(server.New(deps), logger)
		},
	}
}

func newIngestCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "ingest",
		Short: "embed the document corpus and write the vector index",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			logger, err := newLogger(cfg.Log.Level)
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck

			// no embed cache here: every corpus text is embedded exactly once
			provider, err := buildProvider(cfg)
			if err != nil {
				return err
			}

			svc := ingest.NewService(provider, logger)
			_, err = svc.Run(cmd.Context(), cfg.Retrieval.CorpusPath, cfg.Retrieval.IndexPath)
			return err
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.String())
		},
	}
}

func buildProvider(cfg *config.Config) (llm.Provider, error) {
	key, err := cfg.APIKey()
	if err != nil {
		return nil, err
	}
	return llm.New(cfg.LLM.Provider, llm.Options{
		APIKey:     key,
		BaseURL:    cfg.LLM.BaseURL,
		ChatModel:  cfg.LLM.ChatModel,
		EmbedModel: cfg.LLM.EmbedModel,
		Timeout:    cfg.LLM.RequestTimeout.Duration,
	})
}

// loadIndex reads the persisted index and checks it was built with the
// configured embedding model. Embedding spaces from different models are not
// comparable, so a mismatch refuses to serve.
func loadIndex(cfg *config.Config, logger *zap.Logger) (*index.Index, error) {
	idx, err := index.Load(cfg.Retrieval.IndexPath)
	if err != nil {
		return nil, err
	}
	switch idx.EmbedModel() {
	case cfg.LLM.EmbedModel:
	case "":
		logger.Warn("index has no embedding model recorded, re-run ingest to tag it",
			zap.String("path", cfg.Retrieval.IndexPath))
	default:
		return nil, errs.Configurationf("index %s was built with embedding model %q but llm.embed_model is %q: re-run ingest",
			cfg.Retrieval.IndexPath, idx.EmbedModel(), cfg.LLM.EmbedModel)
	}
	logger.Info("index loaded",
		zap.String("path", cfg.Retrieval.IndexPath),
		zap.Int("records", idx.Len()),
		zap.String("embed_model", idx.EmbedModel()))
	return idx, nil
}

func runServer(srv *server.Server, logger *zap.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		logger.Info("signal received", zap.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	return srv.Shutdown(ctx)
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, fmt.Errorf("parse log level %q: %w", level, err)
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = lvl
	return cfg.Build()
}
