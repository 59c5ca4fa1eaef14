package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"pricegrid/internal/browser"
	"pricegrid/internal/catalog"
	"pricegrid/internal/config"
	"pricegrid/internal/fetch"
	"pricegrid/internal/orchestrator"
	"pricegrid/internal/pivot"
	"pricegrid/internal/report"
	"pricegrid/internal/sites"
	_ "pricegrid/internal/sites/alphaweld"
	_ "pricegrid/internal/sites/bilba"
	_ "pricegrid/internal/sites/ebay"
	_ "pricegrid/internal/sites/electroweld"
	_ "pricegrid/internal/sites/hampdon"
	_ "pricegrid/internal/sites/nationalwelding"
	_ "pricegrid/internal/sites/sydneytools"
	_ "pricegrid/internal/sites/toolswarehouse"
	_ "pricegrid/internal/sites/weldconnect"
	"pricegrid/internal/store"
)

var version = "dev"

var (
	configPath   string
	catalogPath  string
	dataDir      string
	sourceName   string
	workers      int
	timeout      time.Duration
	delay        time.Duration
	logLevel     string
	showUI       bool
	combineDir   string
	pivotInput   string
	outputFormat string
	outputFile   string
)

var log = logrus.New()

func main() {
	var rootCmd = &cobra.Command{
		Use:     "pricegrid",
		Short:   "Scrapes retailer prices for a product catalog and builds a comparison table",
		Version: version,
		Long: `pricegrid reads a product catalog CSV, scrapes the current price for
each product link from the matching retailer, and writes per-source and
combined CSV artifacts into a timestamped run directory. The pivot
command turns a combined artifact into a wide comparison table with the
cheapest shop per product highlighted.`,
		Example: `  # Scrape every source in the catalog
  pricegrid scrape --catalog products.csv

  # Scrape a single retailer
  pricegrid scrape --catalog products.csv --source HAMPDON

  # Rebuild the combined artifact from an earlier run without re-scraping
  pricegrid combine --dir data/2026-08-31T09-15-00

  # Render the comparison table from a combined artifact
  pricegrid pivot --in data/2026-08-31T09-15-00/combined_20260831_091500.csv -f html -o comparison.html`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setupLogging(logLevel)
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to JSON config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	scrapeCmd := &cobra.Command{
		Use:   "scrape",
		Short: "Scrape prices for every product in the catalog",
		RunE:  runScrape,
	}
	scrapeCmd.Flags().StringVar(&catalogPath, "catalog", "products.csv", "Path to the product catalog CSV")
	scrapeCmd.Flags().StringVar(&sourceName, "source", "", "Scrape only this source (registry name)")
	scrapeCmd.Flags().StringVarP(&dataDir, "out", "o", "", "Base directory for run artifacts (default from config)")
	scrapeCmd.Flags().IntVarP(&workers, "workers", "w", 0, "Concurrent source budget (default from config)")
	scrapeCmd.Flags().DurationVarP(&timeout, "timeout", "t", 0, "Per-call fetch timeout (default from config)")
	scrapeCmd.Flags().DurationVar(&delay, "delay", 0, "Per-row throttle within a source (default from config)")
	scrapeCmd.Flags().BoolVar(&showUI, "show-ui", false, "Show browser UI for browser-backed sources")

	combineCmd := &cobra.Command{
		Use:   "combine",
		Short: "Rebuild the combined CSV from per-source artifacts in a run directory",
		RunE:  runCombine,
	}
	combineCmd.Flags().StringVarP(&combineDir, "dir", "d", "", "Run directory holding per-source CSV files")
	combineCmd.MarkFlagRequired("dir")

	pivotCmd := &cobra.Command{
		Use:   "pivot",
		Short: "Render the wide comparison table from a combined artifact",
		RunE:  runPivot,
	}
	pivotCmd.Flags().StringVar(&pivotInput, "in", "", "Path to a combined CSV artifact")
	pivotCmd.Flags().StringVarP(&outputFormat, "format", "f", "csv", "Output format (csv, html, markdown, json)")
	pivotCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file path (format inferred from extension if -f not specified)")
	pivotCmd.MarkFlagRequired("in")

	rootCmd.AddCommand(scrapeCmd, combineCmd, pivotCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setupLogging(level string) error {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level: %s", level)
	}
	log.SetLevel(lvl)
	log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	return nil
}

func loadConfig() (*config.Config, error) {
	if configPath == "" {
		return config.Default(), nil
	}
	return config.Load(configPath)
}

func runScrape(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	// Flags win over the config file.
	if workers > 0 {
		cfg.Workers = workers
	}
	if timeout > 0 {
		cfg.TimeoutSeconds = int(timeout.Seconds())
	}
	if delay > 0 {
		cfg.DelayMS = int(delay.Milliseconds())
	}
	if dataDir != "" {
		cfg.DataDir = dataDir
	}
	if showUI {
		cfg.ShowUI = true
	}

	rows, err := catalog.Load(catalogPath, cfg.Aliases)
	if err != nil {
		return err
	}
	log.WithFields(logrus.Fields{
		"catalog": catalogPath,
		"rows":    len(rows),
	}).Info("catalog loaded")

	env := sites.Env{
		Client:  fetch.NewClient(cfg.Timeout()),
		Browser: browser.Config{Headless: !cfg.ShowUI},
		Timeout: cfg.Timeout(),
	}
	runners, err := orchestrator.BuildRunners(cfg, env, sourceName)
	if err != nil {
		return err
	}

	sink, err := store.NewSink(cfg.DataDir, time.Now())
	if err != nil {
		return err
	}

	ctx := context.Background()
	if rt := cfg.RunTimeout(); rt > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, rt)
		defer cancel()
	}

	res := orchestrator.New(sink, cfg.Workers, log).Run(ctx, rows, runners)

	if res.CombinedPath != "" {
		if err := writeComparison(res.CombinedPath, cfg.Pinned, sink.Dir()); err != nil {
			log.WithError(err).Warn("comparison table not written")
		}
	}

	fmt.Printf("Run %s: %s\n", res.ID, res.Status)
	fmt.Printf("Artifacts: %s\n", res.Dir)
	for _, out := range res.Outcomes {
		line := fmt.Sprintf("  %-28s %d/%d prices in %s", out.Source, out.Stats.Extracted, out.Stats.ValidLinks, out.Duration.Round(time.Millisecond))
		if out.Err != nil {
			line += fmt.Sprintf(" (error: %v)", out.Err)
		}
		fmt.Println(line)
	}
	if len(res.Missing) > 0 {
		fmt.Printf("%d links yielded no price; see the log for details\n", len(res.Missing))
	}
	return nil
}

// writeComparison renders the highlighted table next to the run
// artifacts so every scrape ends with a ready comparison.
func writeComparison(combinedPath string, pinned []string, dir string) error {
	records, err := store.ReadRecords(combinedPath)
	if err != nil {
		return err
	}
	table := pivot.Build(records, pinned)
	out, err := report.ToHTML(table)
	if err != nil {
		return err
	}
	path := filepath.Join(dir, "comparison.html")
	if err := os.WriteFile(path, []byte(out), 0644); err != nil {
		return err
	}
	log.WithField("path", path).Info("comparison table written")
	return nil
}

func runCombine(cmd *cobra.Command, args []string) error {
	sink, err := store.Open(combineDir)
	if err != nil {
		return err
	}
	path, err := sink.Combine(time.Now())
	if err != nil {
		return err
	}
	fmt.Printf("Combined artifact written to: %s\n", path)
	return nil
}

func runPivot(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// If output file is specified but format is not, infer format from file extension
	if outputFile != "" && outputFormat == "csv" {
		if inferred := inferFormatFromExtension(outputFile); inferred != "" {
			outputFormat = inferred
		}
	}

	records, err := store.ReadRecords(pivotInput)
	if err != nil {
		return err
	}
	table := pivot.Build(records, cfg.Pinned)

	out, err := report.Format(table, outputFormat)
	if err != nil {
		return err
	}

	if outputFile != "" {
		if err := os.WriteFile(outputFile, []byte(out), 0644); err != nil {
			return fmt.Errorf("failed to write to file: %w", err)
		}
		fmt.Fprintf(os.Stderr, "Output written to: %s\n", outputFile)
	} else {
		fmt.Println(out)
	}
	return nil
}

// inferFormatFromExtension infers output format from file extension
func inferFormatFromExtension(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".md", ".markdown":
		return "markdown"
	case ".json":
		return "json"
	case ".html", ".htm":
		return "html"
	case ".csv":
		return "csv"
	default:
		return ""
	}
}
