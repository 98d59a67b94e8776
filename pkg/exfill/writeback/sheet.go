package writeback

import (
	"github.com/ukaji3/exfill-go/pkg/exfill/models"
	"github.com/ukaji3/exfill-go/pkg/exfill/parser"
	"github.com/xuri/excelize/v2"
)

// Sheet adapts one worksheet of an excelize workbook to Document.
type Sheet struct {
	file *excelize.File
	name string
}

// NewSheet returns the Document for sheet name of f.
func NewSheet(f *excelize.File, name string) *Sheet {
	return &Sheet{file: f, name: name}
}

func (s *Sheet) GetCellValue(cell string) (string, error) {
	return s.file.GetCellValue(s.name, cell)
}

func (s *Sheet) SetCellValue(cell, value string) error {
	return s.file.SetCellValue(s.name, cell, value)
}

func (s *Sheet) MergedRanges() ([]models.MergedRange, error) {
	return parser.ExtractMergedRanges(s.file, s.name)
}
