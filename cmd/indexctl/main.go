// Command indexctl inspects and builds the vector index file pair offline.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/akolanti/ClinicalRAG/internal/config"
	"github.com/akolanti/ClinicalRAG/internal/rag/embedding"
	"github.com/akolanti/ClinicalRAG/internal/rag/ingest"
	"github.com/akolanti/ClinicalRAG/internal/rag/vectorDB/flatIndex"
	"github.com/akolanti/ClinicalRAG/pkg/logger_i"
	"github.com/urfave/cli/v2"
)

var errIndexExists = errors.New("an index already exists in the output directory")

// embedderFactory is swapped in tests.
var embedderFactory = embedding.NewEmbedder

func main() {
	settings := config.Get()
	logger_i.InitWith(os.Stderr, settings.IsProd, settings.LogLevel, "indexctl")
	if err := newApp(settings, os.Stdout).Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "indexctl:", err)
		os.Exit(1)
	}
}

func newApp(settings *config.Settings, out io.Writer) *cli.App {
	dirFlag := func() cli.Flag {
		return &cli.StringFlag{
			Name:    "dir",
			Aliases: []string{"d"},
			Usage:   "Directory holding vector_store.idx and metadata_store.json",
			Value:   settings.IndexDir,
		}
	}
	return &cli.App{
		Name:      "indexctl",
		Usage:     "Inspect and build the clinical vector index",
		Writer:    out,
		ErrWriter: out,
		Commands: []*cli.Command{
			{
				Name:  "verify",
				Usage: "Load the pair, check the checksum and the entry count",
				Flags: []cli.Flag{dirFlag()},
				Action: func(c *cli.Context) error {
					snap, err := flatIndex.Load(pathsIn(c.String("dir")))
					if err != nil {
						return err
					}
					fmt.Fprintf(c.App.Writer, "ok: %d entries, dimension %d\n", snap.Len(), snap.Dimension())
					return nil
				},
			},
			{
				Name:  "stats",
				Usage: "Print size, dimension, model and entries per type",
				Flags: []cli.Flag{dirFlag()},
				Action: func(c *cli.Context) error {
					snap, err := flatIndex.Load(pathsIn(c.String("dir")))
					if err != nil {
						return err
					}
					printStats(c.App.Writer, snap)
					return nil
				},
			},
			{
				Name:  "bootstrap",
				Usage: "Build a new pair from the knowledge base CSVs",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "data-dir", Usage: "Directory of knowledge base CSVs", Value: settings.DefaultDataDir},
					&cli.StringFlag{Name: "out-dir", Aliases: []string{"o"}, Usage: "Where to write the pair", Required: true},
					&cli.IntFlag{Name: "workers", Usage: "Embedding pool size", Value: config.BootstrapPoolSize},
				},
				Action: func(c *cli.Context) error {
					return bootstrapCommand(c, settings)
				},
			},
			{
				Name:  "search",
				Usage: "Embed a query and print the nearest entries",
				Flags: []cli.Flag{
					dirFlag(),
					&cli.StringFlag{Name: "query", Aliases: []string{"q"}, Usage: "Text to search for", Required: true},
					&cli.IntFlag{Name: "k", Usage: "Number of results", Value: settings.TopK},
				},
				Action: func(c *cli.Context) error {
					return searchCommand(c, settings)
				},
			},
		},
	}
}

func pathsIn(dir string) flatIndex.Paths {
	return flatIndex.Paths{
		Index:    filepath.Join(dir, config.IndexFileName),
		Metadata: filepath.Join(dir, config.MetadataFileName),
	}
}

func printStats(w io.Writer, snap *flatIndex.Snapshot) {
	fmt.Fprintf(w, "ntotal: %d\n", snap.Len())
	fmt.Fprintf(w, "dimension: %d\n", snap.Dimension())
	fmt.Fprintf(w, "embedding_model: %s\n", snap.Model())

	counts := snap.CountByType()
	types := make([]string, 0, len(counts))
	for t := range counts {
		types = append(types, t)
	}
	sort.Strings(types)
	for _, t := range types {
		fmt.Fprintf(w, "  %s: %d\n", t, counts[t])
	}
}

func bootstrapCommand(c *cli.Context, settings *config.Settings) error {
	ctx := context.Background()
	embedder, err := embedderFactory(ctx, settings)
	if err != nil {
		return fmt.Errorf("embedder: %w", err)
	}

	outDir := c.String("out-dir")
	if err := os.MkdirAll(outDir, 0o750); err != nil {
		return err
	}
	store, created, err := flatIndex.OpenOrCreate(pathsIn(outDir), embedder.Model(), settings.EmbeddingDimension)
	if err != nil {
		return err
	}
	if !created {
		return fmt.Errorf("%w: %s", errIndexExists, outDir)
	}

	n, err := ingest.Bootstrap(ctx, store, embedder, c.String("data-dir"), c.Int("workers"))
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "wrote %d entries to %s\n", n, outDir)
	return nil
}

func searchCommand(c *cli.Context, settings *config.Settings) error {
	ctx := context.Background()
	snap, err := flatIndex.Load(pathsIn(c.String("dir")))
	if err != nil {
		return err
	}
	embedder, err := embedderFactory(ctx, settings)
	if err != nil {
		return fmt.Errorf("embedder: %w", err)
	}
	if embedder.Model() != snap.Model() {
		return fmt.Errorf("%w: index has %q, configured %q", flatIndex.ErrModelMismatch, snap.Model(), embedder.Model())
	}

	vector, err := embedder.GetEmbedding(ctx, c.String("query"))
	if err != nil {
		return err
	}
	matches, err := snap.Search(ctx, vector, c.Int("k"))
	if err != nil {
		return err
	}
	for i, m := range matches {
		fmt.Fprintf(c.App.Writer, "%d. [%.4f] %s (%s)\n   %s\n", i+1, m.Distance, m.Entry.Source, m.Entry.Type, m.Entry.TextContent)
	}
	return nil
}
