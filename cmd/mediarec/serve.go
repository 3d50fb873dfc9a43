package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/halcyonlabs/mediarec/internal/api"
	"github.com/halcyonlabs/mediarec/internal/config"
	"github.com/halcyonlabs/mediarec/internal/embed"
	"github.com/halcyonlabs/mediarec/internal/logging"
	"github.com/halcyonlabs/mediarec/internal/qdrant"
	"github.com/halcyonlabs/mediarec/internal/recommend"
	"github.com/halcyonlabs/mediarec/internal/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the recommendation API server",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx := cmd.Context()

	st, err := store.Open(cfg.Database.DSN(), logger)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer func() { _ = st.Close() }()

	vectors, err := newQdrantClient(cfg, logger)
	if err != nil {
		return fmt.Errorf("connecting to qdrant: %w", err)
	}
	defer func() { _ = vectors.Close() }()

	embedder, err := newEmbedder(cfg)
	if err != nil {
		return fmt.Errorf("creating embedder: %w", err)
	}

	processor, err := recommend.NewQueryProcessor(recommend.LLMConfig{
		BaseURL: cfg.LLM.BaseURL,
		Model:   cfg.LLM.Model,
		APIKey:  cfg.LLM.APIKey,
	}, logger)
	if err != nil {
		return fmt.Errorf("creating query processor: %w", err)
	}

	retriever := recommend.NewRetriever(vectors, st, cfg.Qdrant.MediaCollection, logger)
	pipeline := recommend.NewPipeline(processor, embedder, retriever, recommend.Config{
		TopK:      cfg.Recommender.TopK,
		NSelected: cfg.Recommender.NSelected,
	}, logger)

	server, err := api.NewServer(pipeline, logger, &api.Config{Port: cfg.Server.Port})
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		logger.Info(ctx, "shutting down", zap.String("signal", sig.String()))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// newQdrantClient builds the vector-store client from configuration.
func newQdrantClient(cfg *config.Config, logger *logging.Logger) (qdrant.Client, error) {
	clientCfg := &qdrant.ClientConfig{
		Host:   cfg.Qdrant.Host,
		Port:   cfg.Qdrant.Port,
		UseTLS: cfg.Qdrant.UseTLS,
		APIKey: cfg.Qdrant.APIKey,
	}
	return qdrant.NewGRPCClient(clientCfg, logger)
}

// newEmbedder builds the embedding service from configuration.
func newEmbedder(cfg *config.Config) (embed.Embedder, error) {
	return embed.NewService(embed.Config{
		BaseURL:    cfg.Embeddings.BaseURL,
		Model:      cfg.Embeddings.Model,
		APIKey:     cfg.Embeddings.APIKey,
		Dimensions: cfg.Embeddings.Dimensions,
	})
}
