// Package main provides the ingest command: scrape, photo and text extraction from a terminal.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"recipe-ingest/internal/core/ai/cache"
	"recipe-ingest/internal/core/ai/image"
	"recipe-ingest/internal/core/ai/openrouter"
	"recipe-ingest/internal/core/extraction"
	"recipe-ingest/internal/core/recipe"
	"recipe-ingest/internal/core/scraper"
	"recipe-ingest/internal/infrastructure/config"
	"recipe-ingest/internal/pkg/common"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type options struct {
	configPath string
	logLevel   string
	noClean    bool
}

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:           "ingest",
		Short:         "Turn recipe pages, photos and text into structured recipes",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "Config file path (yaml, json or env)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().BoolVar(&opts.noClean, "no-clean", false, "Print the raw result without repair and validation")

	cmd.AddCommand(scrapeCmd(opts), imageCmd(opts), textCmd(opts))
	return cmd
}

func scrapeCmd(opts *options) *cobra.Command {
	var htmlPath, host string

	cmd := &cobra.Command{
		Use:   "scrape <url>",
		Short: "Scrape a recipe page, or a saved copy of it with --html",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := setup(opts)
			if err != nil {
				return err
			}

			req := scraper.Request{URL: args[0], Host: host}
			if htmlPath != "" {
				raw, err := os.ReadFile(htmlPath)
				if err != nil {
					return fmt.Errorf("read page: %w", err)
				}
				req.HTML = string(raw)
			}

			s := scraper.New(scraper.NewRegistry(), scraper.NewFetcher(scraper.FetcherConfig{
				UserAgent:     cfg.Scrape.UserAgent,
				Timeout:       cfg.Scrape.Timeout,
				MaxBodyBytes:  cfg.Scrape.MaxBodyBytes,
				RespectRobots: cfg.Scrape.RespectRobots,
			}))

			return run(cmd.Context(), cfg, opts, "scrape", func(ctx context.Context) (*recipe.ScrapedRecipe, error) {
				return s.Scrape(ctx, req)
			})
		},
	}

	cmd.Flags().StringVar(&htmlPath, "html", "", "Saved page to read instead of fetching the url")
	cmd.Flags().StringVar(&host, "host", "", "Host whose extractor should be used")
	return cmd
}

func imageCmd(opts *options) *cobra.Command {
	var hint string

	cmd := &cobra.Command{
		Use:   "image <file>",
		Short: "Read a recipe from a photo",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := setup(opts)
			if err != nil {
				return err
			}
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read image: %w", err)
			}

			p, closeStore, err := newPipeline(cfg)
			if err != nil {
				return err
			}
			defer closeStore()

			return run(cmd.Context(), cfg, opts, "image", func(ctx context.Context) (*recipe.ScrapedRecipe, error) {
				return p.FromImage(ctx, data, hint)
			})
		},
	}

	cmd.Flags().StringVar(&hint, "hint", "", "Free-text hint passed to the model")
	return cmd
}

func textCmd(opts *options) *cobra.Command {
	var hint string

	cmd := &cobra.Command{
		Use:   "text <file>",
		Short: "Structure a recipe from plain text (use - for stdin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := setup(opts)
			if err != nil {
				return err
			}

			var data []byte
			if args[0] == "-" {
				data, err = io.ReadAll(cmd.InOrStdin())
			} else {
				data, err = os.ReadFile(args[0])
			}
			if err != nil {
				return fmt.Errorf("read text: %w", err)
			}

			p, closeStore, err := newPipeline(cfg)
			if err != nil {
				return err
			}
			defer closeStore()

			return run(cmd.Context(), cfg, opts, "text", func(ctx context.Context) (*recipe.ScrapedRecipe, error) {
				return p.FromText(ctx, string(data), hint)
			})
		},
	}

	cmd.Flags().StringVar(&hint, "hint", "", "Free-text hint passed to the model")
	return cmd
}

func setup(opts *options) (*config.Config, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}
	level := opts.logLevel
	if level == "" {
		level = cfg.LogLevel
	}
	if err := common.InitLogger(level, cfg.LogDir); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newPipeline(cfg *config.Config) (*extraction.Pipeline, func(), error) {
	if !cfg.OpenRouter.Enabled {
		return nil, nil, fmt.Errorf("extraction is disabled: set OPENROUTER_ENABLED and OPENROUTER_API_KEY")
	}

	store, err := cache.New(cfg.Cache)
	if err != nil {
		return nil, nil, fmt.Errorf("init cache: %w", err)
	}
	closeStore := func() {}
	if store != nil {
		closeStore = func() { _ = store.Close() }
	}

	p := extraction.NewPipeline(
		cfg.OpenRouter,
		openrouter.NewClient(cfg.OpenRouter),
		image.NewProcessor(cfg.Image.MaxSizeBytes, cfg.Image.MaxDimension, cfg.Image.MaxPixels),
		store,
	)
	return p, closeStore, nil
}

// run executes one extraction, cleans the result unless --no-clean is set and prints it as JSON.
func run(parent context.Context, cfg *config.Config, opts *options, kind string, extract func(context.Context) (*recipe.ScrapedRecipe, error)) error {
	defer common.Sync()

	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()
	if timeout := cfg.Server.RequestTimeout; timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	runID := uuid.New().String()
	common.LogInfo("Ingest started", zap.String("run_id", runID), zap.String("kind", kind))

	out, err := extract(ctx)
	if err != nil {
		common.LogError("Ingest failed", zap.String("run_id", runID), zap.Error(err))
		return err
	}

	if !opts.noClean {
		if err := out.Clean(recipe.CleanOptions{StrictLanguage: cfg.Validation.StrictLanguage}); err != nil {
			_ = printJSON(out)
			return err
		}
	}

	common.LogInfo("Ingest finished",
		zap.String("run_id", runID),
		zap.String("title", out.Title),
		zap.Int("ingredients", out.Ingredients.Count()),
	)
	return printJSON(out)
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
