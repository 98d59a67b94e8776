package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/ukaji3/exfill-go/pkg/exfill"
	"github.com/ukaji3/exfill-go/pkg/exfill/output"
	"github.com/ukaji3/exfill-go/pkg/exfill/structure"
	"go.uber.org/zap"
)

func runFill(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx := cmd.Context()
	completer, err := newCompleter(ctx, cfg)
	if err != nil {
		return err
	}
	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	opts, err := cfg.PipelineOptions()
	if err != nil {
		return err
	}
	opts.Logger = logger

	result, err := exfill.New(completer, store, opts).FillWorkbook(ctx, args[0], outputPath)
	// A partial result still carries the unit traces.
	if traceErr := output.WriteTraceFile(cfg.Pipeline.Trace, result); traceErr != nil {
		logger.Error("failed to write trace", zap.String("trace", cfg.Pipeline.Trace), zap.Error(traceErr))
		if err == nil {
			return fmt.Errorf("failed to write trace: %w", traceErr)
		}
	}
	if err != nil {
		logger.Error("fill failed", zap.String("file", args[0]), zap.Error(err))
		return fmt.Errorf("fill failed: %w", err)
	}

	if printResult {
		jsonData, err := output.ToJSON(result, pretty)
		if err != nil {
			return fmt.Errorf("serialization failed: %w", err)
		}
		fmt.Println(string(jsonData))
		return nil
	}

	fmt.Printf("%s: %d cell(s) written, %d already filled, %d unit(s) failed, est. cost $%.6f\n",
		result.OutputPath, len(result.Write.Written), result.Write.SkippedFilled,
		len(result.Failed()), result.Usage.CostUSD)
	return nil
}

func runRows(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync()

	text, _, err := exfill.ExtractRowWise(args[0], cfg.Pipeline.Sheet)
	if err != nil {
		return fmt.Errorf("extraction failed: %w", err)
	}
	fmt.Println(text)
	return nil
}

func runStructure(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx := cmd.Context()
	text, sheetName, err := exfill.ExtractRowWise(args[0], cfg.Pipeline.Sheet)
	if err != nil {
		return fmt.Errorf("extraction failed: %w", err)
	}

	completer, err := newCompleter(ctx, cfg)
	if err != nil {
		return err
	}
	opts, err := cfg.PipelineOptions()
	if err != nil {
		return err
	}
	identifier := structure.NewIdentifier(completer, opts.Pricing, logger)

	var v any
	if opts.Strategy == exfill.StrategyQuestion {
		v, _, err = identifier.IdentifyQuestions(ctx, text, sheetName)
	} else {
		v, _, err = identifier.Identify(ctx, text)
	}
	if err != nil {
		return fmt.Errorf("structure identification failed: %w", err)
	}

	jsonData, err := output.ToJSON(v, pretty)
	if err != nil {
		return fmt.Errorf("serialization failed: %w", err)
	}
	fmt.Println(string(jsonData))
	return nil
}

func runIngest(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx := cmd.Context()
	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	total := 0
	for _, path := range args {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}
		label := source
		if label == "" {
			label = filepath.Base(path)
		}
		n, err := store.Ingest(ctx, label, string(data))
		if err != nil {
			return err
		}
		total += n
	}

	count, err := store.Count(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("ingested %d chunk(s); store holds %d\n", total, count)
	return nil
}

func runSearch(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx := cmd.Context()
	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	chunks, err := store.Search(ctx, args[0], cfg.Pipeline.TopK)
	if err != nil {
		return err
	}
	jsonData, err := output.ToJSON(chunks, pretty)
	if err != nil {
		return fmt.Errorf("serialization failed: %w", err)
	}
	fmt.Println(string(jsonData))
	return nil
}
