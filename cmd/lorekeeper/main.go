// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/poiesic/lorekeeper"
	"github.com/poiesic/lorekeeper/config"
	"github.com/poiesic/lorekeeper/core"
	"github.com/poiesic/lorekeeper/ingestion"
	"github.com/urfave/cli/v2"
)

func main() {
	app := newApp()
	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "lorekeeper",
		Usage: "Import tabletop RPG books into a vector store",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
			&cli.StringFlag{
				Name:  "env-file",
				Usage: "Path to a .env file with configuration",
				Value: ".env",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			importCmd(),
			{
				Name:   "validate",
				Usage:  "Check configuration and prepare the destination collections",
				Action: validateCommand,
			},
			{
				Name:   "stats",
				Usage:  "Show point counts for every collection",
				Action: statsCommand,
			},
			searchCmd(),
			{
				Name:      "purge",
				Usage:     "Delete every record imported from a file",
				ArgsUsage: "<path>",
				Action:    purgeCommand,
			},
		},
	}
}

func importCmd() *cli.Command {
	return &cli.Command{
		Name:      "import",
		Usage:     "Import files or directories into the library",
		ArgsUsage: "<path|s3://bucket/prefix>...",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "recursive",
				Aliases: []string{"r"},
				Usage:   "Descend into subdirectories",
			},
			&cli.BoolFlag{
				Name:  "skip-existing",
				Usage: "Skip documents that were already imported",
				Value: true,
			},
			&cli.BoolFlag{
				Name:  "extract-npcs",
				Usage: "Extract NPC stat blocks from rulebooks",
				Value: true,
			},
			&cli.IntFlag{
				Name:    "workers",
				Aliases: []string{"w"},
				Usage:   "Number of documents processed concurrently (0 uses WORKERS)",
			},
			&cli.IntFlag{
				Name:  "chunk-size",
				Usage: "Chunk size in characters (0 uses CHUNK_SIZE)",
			},
			&cli.IntFlag{
				Name:  "chunk-overlap",
				Usage: "Chunk overlap in characters (-1 uses CHUNK_OVERLAP)",
				Value: -1,
			},
			&cli.StringFlag{
				Name:  "prefix",
				Usage: "Collection name prefix (empty uses LOREKEEPER_COLLECTION_PREFIX)",
			},
			&cli.Float64Flag{
				Name:  "threshold",
				Usage: "NPC confidence threshold (negative uses NPC_CONFIDENCE_THRESHOLD)",
				Value: -1,
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Directory for the import summary (empty uses OUTPUT_DIRECTORY)",
			},
			&cli.BoolFlag{
				Name:  "no-summary",
				Usage: "Do not write the import summary file",
			},
		},
		Action: importCommand,
	}
}

func searchCmd() *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "Search a collection by similarity",
		ArgsUsage: "<query>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "category",
				Aliases: []string{"c"},
				Usage:   "Collection to search (rulebook, adventure_path, npc)",
				Value:   core.CategoryRulebook.String(),
			},
			&cli.IntFlag{
				Name:    "limit",
				Aliases: []string{"n"},
				Usage:   "Maximum number of hits",
				Value:   lorekeeper.DefaultSearchLimit,
			},
		},
		Action: searchCommand,
	}
}

// loadConfig reads the env file named by the root flag.
func loadConfig(c *cli.Context) (config.Config, error) {
	cfg, err := config.Load(c.String("env-file"))
	if err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// applyImportFlags layers explicitly set import flags over cfg.
func applyImportFlags(c *cli.Context, cfg config.Config) config.Config {
	if n := c.Int("workers"); n > 0 {
		cfg = cfg.WithWorkers(n)
	}
	size, overlap := cfg.ChunkSize, cfg.ChunkOverlap
	if n := c.Int("chunk-size"); n > 0 {
		size = n
	}
	if n := c.Int("chunk-overlap"); n >= 0 {
		overlap = n
	}
	cfg = cfg.WithChunking(size, overlap)
	if p := c.String("prefix"); p != "" {
		cfg = cfg.WithCollectionPrefix(p)
	}
	if t := c.Float64("threshold"); t >= 0 {
		cfg = cfg.WithConfidenceThreshold(t)
	}
	if o := c.String("output"); o != "" {
		cfg.OutputDirectory = o
	}
	return cfg
}

func signalContext(c *cli.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
}

func importCommand(c *cli.Context) error {
	if c.NArg() == 0 {
		return errors.New("import requires at least one path")
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	cfg = applyImportFlags(c, cfg)

	ctx, cancel := signalContext(c)
	defer cancel()

	lib, err := lorekeeper.Open(ctx, cfg, lorekeeper.WithProgress(os.Stderr))
	if err != nil {
		return fmt.Errorf("failed to open library: %w", err)
	}
	defer lib.Close()

	opts := ingestion.DirectoryOptions{
		FileOptions: ingestion.FileOptions{
			SkipIfExists: c.Bool("skip-existing"),
			ExtractNPCs:  c.Bool("extract-npcs"),
		},
		Recursive: c.Bool("recursive"),
	}

	var results []*ingestion.Result
	for _, target := range c.Args().Slice() {
		fmt.Fprintf(os.Stderr, "Importing %s\n", target)
		batch, err := lib.Import(ctx, target, opts)
		if err != nil {
			slog.Error("import failed", "target", target, "err", err)
			results = append(results, &ingestion.Result{
				Path:     target,
				Status:   ingestion.StatusFailed,
				Category: lib.Pipeline().Router().Route(target),
				Error:    err.Error(),
			})
			continue
		}
		results = append(results, batch...)
	}

	summary := ingestion.Summarize(results)
	printSummary(summary)

	if !c.Bool("no-summary") {
		path := filepath.Join(cfg.OutputDirectory, ingestion.SummaryFileName(time.Now()))
		if err := ingestion.WriteSummary(path, summary); err != nil {
			return fmt.Errorf("failed to write summary: %w", err)
		}
		fmt.Fprintf(os.Stderr, "Summary written to %s\n", path)
	}

	if summary.Failed > 0 {
		return cli.Exit(fmt.Sprintf("%d of %d documents failed", summary.Failed, summary.TotalFiles), 1)
	}
	return nil
}

func printSummary(s *ingestion.Summary) {
	fmt.Fprintf(os.Stderr, "\nImport complete\n")
	fmt.Fprintf(os.Stderr, "  Files:      %d\n", s.TotalFiles)
	fmt.Fprintf(os.Stderr, "  Successful: %d\n", s.Successful)
	fmt.Fprintf(os.Stderr, "  Skipped:    %d\n", s.Skipped)
	fmt.Fprintf(os.Stderr, "  Failed:     %d\n", s.Failed)
	fmt.Fprintf(os.Stderr, "  Chunks:     %d\n", s.TotalChunks)
	fmt.Fprintf(os.Stderr, "  NPCs:       %d\n", s.TotalNPCs)
	for collection, n := range s.CollectionDistribution {
		fmt.Fprintf(os.Stderr, "  %s: %d\n", collection, n)
	}
	for _, r := range s.FailedResults() {
		fmt.Fprintf(os.Stderr, "  FAILED %s [%s]: %s\n", r.Path, r.FailedStage, r.Error)
	}
}

func validateCommand(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, cancel := signalContext(c)
	defer cancel()

	lib, err := lorekeeper.Open(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to open library: %w", err)
	}
	defer lib.Close()

	dim, err := lib.Init(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize collections: %w", err)
	}

	cols := lib.Pipeline().Collections()
	fmt.Printf("Configuration OK\n")
	fmt.Printf("  Store:            %s\n", cfg.StoreBackend)
	fmt.Printf("  Vector dimension: %d\n", dim)
	for _, category := range core.Categories() {
		fmt.Printf("  Collection:       %s\n", cols.Name(category))
	}
	return nil
}

func statsCommand(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext(c)
	defer cancel()

	lib, err := lorekeeper.Open(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to open library: %w", err)
	}
	defer lib.Close()

	stats, err := lib.Stats(ctx)
	if err != nil {
		return err
	}
	for _, category := range core.Categories() {
		s := stats[category]
		fmt.Printf("%-24s points=%-8d vectors=%-8d size=%-5d distance=%s status=%s\n",
			s.Name, s.PointCount, s.VectorCount, s.VectorSize, s.Distance, s.Status)
	}
	return nil
}

func searchCommand(c *cli.Context) error {
	query := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if query == "" {
		return errors.New("search requires a query")
	}
	category, err := core.ParseCategory(c.String("category"))
	if err != nil {
		return err
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext(c)
	defer cancel()

	lib, err := lorekeeper.Open(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to open library: %w", err)
	}
	defer lib.Close()

	hits, err := lib.Search(ctx, category, query, c.Int("limit"))
	if err != nil {
		return err
	}
	if len(hits) == 0 {
		fmt.Println("No results found")
		return nil
	}
	for i, hit := range hits {
		name, _ := hit.Payload["name"].(string)
		if name == "" {
			name, _ = hit.Payload["filename"].(string)
		}
		fmt.Printf("%d. [%.4f] %s\n", i+1, hit.Score, name)
		if text, ok := hit.Payload["text"].(string); ok {
			fmt.Printf("   %s\n", preview(text, 160))
		}
	}
	return nil
}

func preview(text string, n int) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[:n]) + "..."
}

func purgeCommand(c *cli.Context) error {
	if c.NArg() != 1 {
		return errors.New("purge requires exactly one path")
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext(c)
	defer cancel()

	lib, err := lorekeeper.Open(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to open library: %w", err)
	}
	defer lib.Close()

	deleted, err := lib.Purge(ctx, c.Args().First())
	if err != nil {
		return err
	}
	for _, category := range core.Categories() {
		fmt.Printf("%s: %d deleted\n", lib.Pipeline().Collections().Name(category), deleted[category])
	}
	return nil
}

func setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
