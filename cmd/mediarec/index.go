package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/halcyonlabs/mediarec/internal/index"
	"github.com/halcyonlabs/mediarec/internal/store"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Build the vector-store collections from the relational catalog",
}

var indexMediaCmd = &cobra.Command{
	Use:   "media",
	Short: "Embed and index every media record",
	Long: `Embed and index every media record into the media collection.

Progress is checkpointed in the recovery file after each batch, so an
interrupted run resumes where it left off instead of re-embedding the whole
catalog.`,
	RunE: runIndexMedia,
}

var indexDescriptorsCmd = &cobra.Command{
	Use:   "descriptors",
	Short: "Embed and index every content descriptor",
	RunE:  runIndexDescriptors,
}

func init() {
	indexCmd.AddCommand(indexMediaCmd)
	indexCmd.AddCommand(indexDescriptorsCmd)
}

func newIndexer() (*index.Indexer, func(), error) {
	cfg, logger, err := setup()
	if err != nil {
		return nil, nil, err
	}

	st, err := store.Open(cfg.Database.DSN(), logger)
	if err != nil {
		return nil, nil, fmt.Errorf("opening store: %w", err)
	}

	vectors, err := newQdrantClient(cfg, logger)
	if err != nil {
		_ = st.Close()
		return nil, nil, fmt.Errorf("connecting to qdrant: %w", err)
	}

	embedder, err := newEmbedder(cfg)
	if err != nil {
		_ = vectors.Close()
		_ = st.Close()
		return nil, nil, fmt.Errorf("creating embedder: %w", err)
	}

	ix := index.New(st, vectors, embedder, index.Config{
		MediaCollection:      cfg.Qdrant.MediaCollection,
		DescriptorCollection: cfg.Qdrant.DescriptorCollection,
		BatchSize:            cfg.Embeddings.BatchSize,
		RequestsPerMinute:    cfg.Embeddings.RequestsPerMinute,
		MaxRetries:           cfg.Embeddings.MaxRetries,
		RecoveryFile:         cfg.Embeddings.RecoveryFile,
	}, logger)

	cleanup := func() {
		_ = vectors.Close()
		_ = st.Close()
		_ = logger.Sync()
	}
	return ix, cleanup, nil
}

func runIndexMedia(cmd *cobra.Command, _ []string) error {
	ix, cleanup, err := newIndexer()
	if err != nil {
		return err
	}
	defer cleanup()
	return ix.IndexMedia(cmd.Context())
}

func runIndexDescriptors(cmd *cobra.Command, _ []string) error {
	ix, cleanup, err := newIndexer()
	if err != nil {
		return err
	}
	defer cleanup()
	return ix.IndexDescriptors(cmd.Context())
}
