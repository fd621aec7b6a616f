package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/scipunch/readmefeed/config"
	"github.com/scipunch/readmefeed/fetcher"
	"github.com/scipunch/readmefeed/filter"
	"github.com/scipunch/readmefeed/history"
	"github.com/scipunch/readmefeed/parser"
	"github.com/scipunch/readmefeed/pipeline"
	"github.com/scipunch/readmefeed/readme"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		slog.Error("readmefeed failed", "error", err)
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "readmefeed",
		Short:         "Refresh the blog posts section of a README from an RSS feed",
		Args:          cobra.NoArgs,
		RunE:          runHandler,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringP("config", "c", config.DefaultPath(), "path to a TOML config")
	cmd.PersistentFlags().BoolP("verbose", "v", false, "enable debug logging")

	cmd.Flags().StringP("readme", "r", "", "document to update (overrides readme_path)")
	cmd.Flags().StringP("html", "o", "", "also write an HTML preview of the updated document")
	cmd.Flags().BoolP("dry-run", "n", false, "print the updated document instead of writing it")

	cmd.AddCommand(historyCmd(), configCmd())

	cmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		verbose, _ := cmd.Flags().GetBool("verbose")
		setupLogging(verbose)
	}

	return cmd
}

func setupLogging(verbose bool) {
	if verbose || os.Getenv("DEBUG") != "" {
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
	}
}

func runHandler(cmd *cobra.Command, args []string) error {
	cfgPath, _ := cmd.Flags().GetString("config")
	readmeOverride, _ := cmd.Flags().GetString("readme")
	htmlPath, _ := cmd.Flags().GetString("html")
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	conf, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("failed to load config with %w", err)
	}
	if readmeOverride != "" {
		conf.ReadmePath = readmeOverride
	}

	p, err := parser.Init(conf.ParserT)
	if err != nil {
		return fmt.Errorf("failed to initialize parser with %w", err)
	}

	filters := filter.NewFilterPipeline(conf.Filters, conf.FilterNames)
	if len(conf.FilterNames) > 0 {
		slog.Info("initialized filters", "count", len(conf.FilterNames))
	}

	f := fetcher.New(fetcher.Options{
		UserAgent:  conf.UserAgent,
		MaxRetries: conf.MaxRetries,
	})

	readmePath := conf.ReadmePath
	if readmeOverride == "" {
		readmePath = readme.Resolve(conf.ReadmePath, sourceDir())
	}

	run := pipeline.New(pipeline.Options{
		FeedURL:           conf.FeedURL,
		ReadmePath:        readmePath,
		Marker:            conf.Marker,
		MaxPosts:          conf.MaxPosts,
		WaitTimeout:       conf.WaitTimeout.Duration,
		FailOnTimeout:     conf.FailOnTimeout,
		ClearOnFetchError: conf.OnFetchError == config.ClearOnFetchError,
		DryRun:            dryRun,
		HTMLPath:          htmlPath,
	}, f, p, filters).WithOutput(cmd.OutOrStdout())

	if conf.HistoryPath != "" {
		store, err := history.Open(conf.HistoryPath)
		if err != nil {
			slog.Warn("run history disabled", "path", conf.HistoryPath, "error", err)
		} else {
			defer store.Close()
			run.WithHistory(store)
		}
	}

	_, err = run.Run(cmd.Context())
	return err
}

func historyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath, _ := cmd.Flags().GetString("config")
			limit, _ := cmd.Flags().GetInt("limit")
			clearRuns, _ := cmd.Flags().GetBool("clear")

			conf, err := config.Load(cfgPath)
			if err != nil {
				return fmt.Errorf("failed to load config with %w", err)
			}
			if conf.HistoryPath == "" {
				return fmt.Errorf("history_path is not set in %s", cfgPath)
			}

			store, err := history.Open(conf.HistoryPath)
			if err != nil {
				return err
			}
			defer store.Close()

			if clearRuns {
				if err := store.Clear(cmd.Context()); err != nil {
					return err
				}
				slog.Info("history cleared successfully")
				return nil
			}

			runs, err := store.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "STARTED\tSTATUS\tPOSTS\tDURATION\tERROR")
			for _, r := range runs {
				fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n",
					r.StartedAt.Format(time.RFC3339), r.Status, r.Posts,
					r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond), r.Error)
			}
			return w.Flush()
		},
	}

	cmd.Flags().IntP("limit", "l", 10, "number of runs to show")
	cmd.Flags().Bool("clear", false, "remove all recorded runs")
	return cmd
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the configuration file",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "init [path]",
		Short: "Write the default configuration",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath, _ := cmd.Flags().GetString("config")
			if len(args) == 1 {
				cfgPath = args[0]
			}
			if _, err := os.Stat(cfgPath); err == nil {
				return fmt.Errorf("config already exists at %s", cfgPath)
			}
			return config.Write(cfgPath, config.Default())
		},
	})
	return cmd
}

// sourceDir is the directory this program was built from, so the default
// README next to the sources is found regardless of the working directory.
// Returns "" when the sources are not around, e.g. for a copied binary.
func sourceDir() string {
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		return ""
	}
	dir := filepath.Dir(file)
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return ""
	}
	return dir
}
