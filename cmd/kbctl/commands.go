package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"bodymind-ai/internal/app"
	"bodymind-ai/internal/bootstrap"
	"bodymind-ai/internal/knowledge"
)

func newIngestCmd(open engineOpener) *cobra.Command {
	var (
		text     string
		title    string
		source   string
		category string
	)
	cmd := &cobra.Command{
		Use:   "ingest [path]",
		Short: "Ingest a file, a directory of files, or --text",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 && strings.TrimSpace(text) == "" {
				return errors.New("either a path or --text is required")
			}
			req := knowledge.IngestRequest{Title: title, Source: source, Category: category}
			return withEngine(cmd, open, func(ctx context.Context, a *bootstrap.App) error {
				if len(args) == 0 {
					req.Text = text
					result, err := a.Knowledge.IngestText(ctx, req)
					if err != nil {
						return err
					}
					return printJSON(cmd, result)
				}
				return ingestPath(ctx, cmd, a.Knowledge, args[0], req)
			})
		},
	}
	cmd.Flags().StringVar(&text, "text", "", "raw text to ingest instead of a file")
	cmd.Flags().StringVar(&title, "title", "", "document title")
	cmd.Flags().StringVar(&source, "source", "", "citation source")
	cmd.Flags().StringVar(&category, "category", "", "document category")
	return cmd
}

func ingestPath(ctx context.Context, cmd *cobra.Command, svc *app.KnowledgeService, path string, req knowledge.IngestRequest) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		result, err := svc.IngestPath(ctx, path, req)
		if err != nil {
			return err
		}
		return printJSON(cmd, result)
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return err
	}
	var failed int
	for _, entry := range entries {
		if entry.IsDir() || !app.SupportedFile(entry.Name()) {
			continue
		}
		full := filepath.Join(path, entry.Name())
		result, err := svc.IngestPath(ctx, full, knowledge.IngestRequest{Category: req.Category})
		if err != nil {
			failed++
			cmd.PrintErrf("%s: %v\n", full, err)
			continue
		}
		cmd.Printf("%s: %d chunks\n", full, result.ChunksAdded)
	}
	if failed > 0 {
		return fmt.Errorf("%d files failed to ingest", failed)
	}
	return nil
}

func newSearchCmd(open engineOpener) *cobra.Command {
	var (
		topK      int
		threshold float64
	)
	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Retrieve reference material for a query",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd, open, func(ctx context.Context, a *bootstrap.App) error {
				k := topK
				if k <= 0 {
					k = a.Config.RAG.TopK
				}
				t := threshold
				if t <= 0 {
					t = a.Config.RAG.ScoreThreshold
				}
				result, err := a.Retrieval.Retrieve(ctx, args[0], k, knowledge.Distance(t))
				if err != nil {
					return err
				}
				if result.Empty() {
					cmd.Println("No results found.")
					return nil
				}
				return printJSON(cmd, result)
			})
		},
	}
	cmd.Flags().IntVarP(&topK, "top-k", "k", 0, "maximum number of hits (default from config)")
	cmd.Flags().Float64Var(&threshold, "threshold", 0, "maximum cosine distance (default from config)")
	return cmd
}

func newStatsCmd(open engineOpener) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show knowledge index statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withEngine(cmd, open, func(ctx context.Context, a *bootstrap.App) error {
				return printJSON(cmd, a.Knowledge.Stats(ctx))
			})
		},
	}
}

func newClearCmd(open engineOpener) *cobra.Command {
	var yes, sessions bool
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove every indexed chunk",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !yes {
				return errors.New("refusing to clear without --yes")
			}
			return withEngine(cmd, open, func(ctx context.Context, a *bootstrap.App) error {
				if sessions && a.Config.Memory.Backend != "redis" {
					return errors.New("--sessions needs memory.backend = redis; local memory lives in the server process")
				}
				if err := a.Knowledge.Clear(ctx); err != nil {
					return err
				}
				cmd.Println("Knowledge base cleared.")
				if sessions {
					if err := a.Chat.ClearAllSessions(ctx); err != nil {
						return err
					}
					cmd.Println("Conversation memory cleared.")
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm clearing the index")
	cmd.Flags().BoolVar(&sessions, "sessions", false, "also clear conversation memory (redis backend only)")
	return cmd
}

func newSeedCmd(open engineOpener) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load the preset fat-loss corpus",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withEngine(cmd, open, func(ctx context.Context, a *bootstrap.App) error {
				seed := a.Knowledge.SeedIfEmpty
				if force {
					seed = a.Knowledge.Seed
				}
				n, err := seed(ctx)
				if err != nil {
					return err
				}
				cmd.Printf("Seeded %d documents.\n", n)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "seed even when the index already has content")
	return cmd
}
