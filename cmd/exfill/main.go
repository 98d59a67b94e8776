// Package main provides the CLI entry point for exfill-go.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"github.com/ukaji3/exfill-go/pkg/exfill/config"
	"go.uber.org/zap"
)

var (
	configPath string
	verbose    bool

	outputPath   string
	pretty       bool
	strategy     string
	workers      int
	topK         int
	sheet        string
	organization string
	tracePath    string
	printResult  bool

	source string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "exfill",
		Short: "Fill questionnaire spreadsheets with grounded answers",
		Long: `exfill-go answers due-diligence questionnaires in Excel workbooks.
It identifies the sheet layout, retrieves evidence for every question from a
local knowledge store and writes answers only into cells that are still blank.`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "exfill.yaml", "Config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	fillCmd := &cobra.Command{
		Use:   "fill [input.xlsx]",
		Short: "Answer a questionnaire and save a filled copy",
		Args:  cobra.ExactArgs(1),
		RunE:  runFill,
	}
	fillCmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output file path (default: filled_<input> next to the input)")
	fillCmd.Flags().StringVar(&strategy, "strategy", "", "Answering strategy: batch or question")
	fillCmd.Flags().IntVar(&workers, "workers", 0, "Units answered concurrently")
	fillCmd.Flags().IntVar(&topK, "top-k", 0, "Evidence chunks per unit")
	fillCmd.Flags().StringVar(&sheet, "sheet", "", "Worksheet to fill (default: active sheet)")
	fillCmd.Flags().StringVar(&organization, "org", "", "Organisation answering the questionnaire")
	fillCmd.Flags().StringVar(&tracePath, "trace", "", "Write the reasoning trace of every unit to this file")
	fillCmd.Flags().BoolVar(&printResult, "json", false, "Print the run result as JSON")
	fillCmd.Flags().BoolVar(&pretty, "pretty", false, "Pretty-print JSON output")

	rowsCmd := &cobra.Command{
		Use:   "rows [input.xlsx]",
		Short: "Print the row-wise text of a sheet",
		Args:  cobra.ExactArgs(1),
		RunE:  runRows,
	}
	rowsCmd.Flags().StringVar(&sheet, "sheet", "", "Worksheet to read (default: active sheet)")

	structureCmd := &cobra.Command{
		Use:   "structure [input.xlsx]",
		Short: "Identify the layout of a questionnaire sheet and print it as JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  runStructure,
	}
	structureCmd.Flags().StringVar(&sheet, "sheet", "", "Worksheet to read (default: active sheet)")
	structureCmd.Flags().StringVar(&strategy, "strategy", "", "batch prints batches, question prints per-question instructions")
	structureCmd.Flags().BoolVar(&pretty, "pretty", false, "Pretty-print JSON output")

	ingestCmd := &cobra.Command{
		Use:   "ingest [file...]",
		Short: "Add text documents to the knowledge store",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runIngest,
	}
	ingestCmd.Flags().StringVar(&source, "source", "", "Source label (default: file name)")

	searchCmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search the knowledge store",
		Args:  cobra.ExactArgs(1),
		RunE:  runSearch,
	}
	searchCmd.Flags().IntVar(&topK, "top-k", 0, "Number of chunks to return")
	searchCmd.Flags().BoolVar(&pretty, "pretty", false, "Pretty-print JSON output")

	rootCmd.AddCommand(fillCmd, rowsCmd, structureCmd, ingestCmd, searchCmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// setup loads configuration, applies command-line overrides and builds the
// logger.
func setup(cmd *cobra.Command) (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("strategy") {
		cfg.Pipeline.Strategy = strategy
	}
	if flags.Changed("workers") {
		cfg.Pipeline.Workers = workers
	}
	if flags.Changed("top-k") {
		cfg.Pipeline.TopK = topK
	}
	if flags.Changed("sheet") {
		cfg.Pipeline.Sheet = sheet
	}
	if flags.Changed("org") {
		cfg.Pipeline.Organization = organization
	}
	if flags.Changed("trace") {
		cfg.Pipeline.Trace = tracePath
	}
	if verbose {
		cfg.Logging.Level = "debug"
	}

	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid config: %w", err)
	}

	logger, err := buildLogger(cfg.Logging)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

func buildLogger(lc config.LoggingConfig) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if lc.Format == "console" {
		zc = zap.NewDevelopmentConfig()
	}
	if lc.Level != "" {
		level, err := zap.ParseAtomicLevel(lc.Level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level: %w", err)
		}
		zc.Level = level
	}
	zc.OutputPaths = []string{"stderr"}
	return zc.Build()
}
