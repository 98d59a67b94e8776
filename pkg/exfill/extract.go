package exfill

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ukaji3/exfill-go/pkg/exfill/parser"
	"github.com/ukaji3/exfill-go/pkg/exfill/writeback"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// ExtractRowWise renders a sheet of the workbook at path as row-wise text.
// An empty sheet name selects the active sheet. The resolved sheet name is
// returned with the text.
func ExtractRowWise(path, sheet string) (string, string, error) {
	f, err := openWorkbook(path)
	if err != nil {
		return "", "", err
	}
	defer f.Close()

	name, err := resolveSheet(f, sheet)
	if err != nil {
		return "", "", err
	}
	text, err := parser.ExtractRowWise(f, name)
	if err != nil {
		return "", "", fmt.Errorf("extract %s: %w", name, err)
	}
	return text, name, nil
}

// OutputPath returns the default output path for input: the same directory
// with prefix prepended to the file name.
func OutputPath(input, prefix string) string {
	if prefix == "" {
		prefix = DefaultOutputPrefix
	}
	return filepath.Join(filepath.Dir(input), prefix+filepath.Base(input))
}

// FillWorkbook answers the configured sheet of the workbook at input and saves
// the filled copy to output. An empty output selects OutputPath. The input
// file is never modified. When the sheet structure cannot be parsed nothing is
// saved.
func (p *Pipeline) FillWorkbook(ctx context.Context, input, output string) (*Result, error) {
	f, err := openWorkbook(input)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheet, err := resolveSheet(f, p.opts.Sheet)
	if err != nil {
		return nil, err
	}
	text, err := parser.ExtractRowWise(f, sheet)
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", sheet, err)
	}
	p.logger.Info("extracted sheet", zap.String("file", input), zap.String("sheet", sheet))

	result, err := p.Run(ctx, writeback.NewSheet(f, sheet), text, sheet)
	if err != nil {
		return result, err
	}

	if output == "" {
		output = OutputPath(input, p.opts.EffectiveOutputPrefix())
	}
	if err := f.SaveAs(output); err != nil {
		return result, fmt.Errorf("save %s: %w", output, err)
	}
	result.OutputPath = output

	p.logger.Info("saved",
		zap.String("output", output),
		zap.Int("written", len(result.Write.Written)),
		zap.Int("skipped_filled", result.Write.SkippedFilled))
	return result, nil
}

func openWorkbook(path string) (*excelize.File, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
	}
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	return f, nil
}

func resolveSheet(f *excelize.File, name string) (string, error) {
	if name == "" {
		name = f.GetSheetName(f.GetActiveSheetIndex())
	}
	idx, err := f.GetSheetIndex(name)
	if err != nil || idx < 0 || name == "" {
		return "", fmt.Errorf("%w: %q", ErrNoSheet, name)
	}
	return f.GetSheetName(idx), nil
}
