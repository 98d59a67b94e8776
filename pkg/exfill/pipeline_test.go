package exfill

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukaji3/exfill-go/pkg/exfill/llm"
	"github.com/ukaji3/exfill-go/pkg/exfill/models"
	"github.com/ukaji3/exfill-go/pkg/exfill/retrieval"
	"github.com/ukaji3/exfill-go/pkg/exfill/structure"
	"github.com/ukaji3/exfill-go/pkg/exfill/writeback"
	"github.com/xuri/excelize/v2"
	"go.uber.org/goleak"
)

// The genai dependency starts an opencensus stats worker at init.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m, goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"))
}

const ddqStructure = `{"sheet_name": "DDQ", "header_row": 6,
 "columns": {"Question": "A", "Answer": "D", "Comment": "E"},
 "batches": [{"batch_id": 1, "rows": [7, 8]}, {"batch_id": 2, "rows": [9]}]}`

const ddqText = `Row 1
A1 = "Vendor Security Questionnaire"
Row 6
A6 = "Question"
D6 = "Answer"
E6 = "Comment"
Row 7
A7 = "Have you had a data breach?"
Row 8
A8 = "Is data encrypted at rest?"
Row 9
A9 = "Do you have a DPO?"
D9 = "Yes"`

// scripted routes requests by prompt shape: structure and question
// identification get fixed replies, everything else goes to answer.
type scripted struct {
	structure string
	questions string
	answer    func(req llm.Request) (string, error)

	mu      sync.Mutex
	answers int
}

func (s *scripted) Complete(ctx context.Context, req llm.Request) (llm.Response, error) {
	switch {
	case strings.HasPrefix(req.Prompt, "Here is the extracted sheet:"):
		return llm.Response{Text: s.structure}, nil
	case strings.HasPrefix(req.Prompt, "SHEET:"):
		return llm.Response{Text: s.questions}, nil
	}
	s.mu.Lock()
	s.answers++
	s.mu.Unlock()
	text, err := s.answer(req)
	return llm.Response{Text: text}, err
}

func (s *scripted) answerCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.answers
}

func trace(decision string) string {
	return "<THINKING>What is asked?</THINKING>\n" +
		"<HEADER_CHECK>Free text.</HEADER_CHECK>\n" +
		"<CONTEXT_SEARCH>Scanning context.</CONTEXT_SEARCH>\n" +
		"<VALIDATION>Checked.</VALIDATION>\n" +
		"<DECISION>" + decision + "</DECISION>\n"
}

// ddqAnswers answers the DDQ rows present in a batch prompt, grounded on the
// context it carries.
func ddqAnswers(req llm.Request) (string, error) {
	var out strings.Builder
	if strings.Contains(req.Prompt, "A7 = ") {
		if strings.Contains(req.Prompt, "No breaches occurred") {
			out.WriteString(trace("Fill") + "D7 = \"No\"\n")
		} else {
			out.WriteString(trace("Blank") + "D7 = \"\"\n")
		}
	}
	if strings.Contains(req.Prompt, "A8 = ") {
		if strings.Contains(req.Prompt, "AES-256") {
			out.WriteString(trace("Fill") + "E8 = \"AES-256 at rest\"\n")
		} else {
			out.WriteString(trace("Blank") + "D8 = \"\"\n")
		}
	}
	if strings.Contains(req.Prompt, "A9 = ") {
		out.WriteString(trace("Fill") + "D9 = \"No\"\n")
	}
	return out.String(), nil
}

func ddqSearcher() retrieval.Searcher {
	return retrieval.SearcherFunc(func(ctx context.Context, query string, topK int) ([]models.EvidenceChunk, error) {
		var chunks []models.EvidenceChunk
		if strings.Contains(query, "breach") {
			chunks = append(chunks, models.EvidenceChunk{Text: "No breaches occurred in the last five years.", Score: 0.91})
		}
		if strings.Contains(query, "encrypted") {
			chunks = append(chunks, models.EvidenceChunk{Text: "All data at rest uses AES-256.", Score: 0.84})
		}
		return chunks, nil
	})
}

func writeDDQ(t *testing.T) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", "DDQ"); err != nil {
		t.Fatalf("Failed to rename sheet: %v", err)
	}
	sheetName := "DDQ"
	f.SetCellValue(sheetName, "A1", "Vendor Security Questionnaire")
	f.SetCellValue(sheetName, "A6", "Question")
	f.SetCellValue(sheetName, "D6", "Answer")
	f.SetCellValue(sheetName, "E6", "Comment")
	f.SetCellValue(sheetName, "A7", "Have you had a data breach?")
	f.SetCellValue(sheetName, "A8", "Is data encrypted at rest?")
	f.SetCellValue(sheetName, "A9", "Do you have a DPO?")
	f.SetCellValue(sheetName, "D9", "Yes")
	if err := f.MergeCell(sheetName, "D8", "E8"); err != nil {
		t.Fatalf("Failed to merge cells: %v", err)
	}

	path := filepath.Join(t.TempDir(), "ddq.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("Failed to save test file: %v", err)
	}
	return path
}

func cellValue(t *testing.T, path, cell string) string {
	t.Helper()
	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	v, err := f.GetCellValue("DDQ", cell)
	require.NoError(t, err)
	return v
}

func TestFillWorkbookBatch(t *testing.T) {
	input := writeDDQ(t)
	c := &scripted{structure: ddqStructure, answer: ddqAnswers}
	p := New(c, ddqSearcher(), DefaultOptions())

	result, err := p.FillWorkbook(context.Background(), input, "")
	require.NoError(t, err)

	output := filepath.Join(filepath.Dir(input), "filled_ddq.xlsx")
	assert.Equal(t, output, result.OutputPath)
	assert.Equal(t, "DDQ", result.Sheet)
	assert.Equal(t, StrategyBatch, result.Strategy)
	assert.NotEmpty(t, result.RunID)

	wantLines := []string{`D7 = "No"`, `E8 = "AES-256 at rest"`, `D9 = "No"`}
	if diff := cmp.Diff(wantLines, result.Assignments); diff != "" {
		t.Errorf("Assignments mismatch (-want +got):\n%s", diff)
	}

	assert.Equal(t, "No", cellValue(t, output, "D7"))
	assert.Equal(t, "AES-256 at rest", cellValue(t, output, "D8"))
	assert.Equal(t, "Yes", cellValue(t, output, "D9"))
	assert.Equal(t, []string{"D7", "D8"}, result.Write.Written)
	assert.Equal(t, 1, result.Write.SkippedFilled)

	// The input workbook is left untouched.
	assert.Equal(t, "", cellValue(t, input, "D7"))

	require.Len(t, result.Units, 2)
	assert.Equal(t, "batch-1", result.Units[0].ID)
	assert.Equal(t, []int{7, 8}, result.Units[0].Rows)
	assert.Equal(t, "Have you had a data breach?\nIs data encrypted at rest?", result.Units[0].Query)
	assert.Len(t, result.Units[0].Evidence, 2)
	assert.Contains(t, result.Units[0].Raw, "<DECISION>Fill</DECISION>")
	assert.Equal(t, 3, result.Usage.Calls)
}

func TestFillWorkbookStructureParseError(t *testing.T) {
	input := writeDDQ(t)
	c := &scripted{structure: "I'm sorry, but I can't analyse this sheet.", answer: ddqAnswers}
	output := filepath.Join(t.TempDir(), "out.xlsx")

	_, err := New(c, ddqSearcher(), DefaultOptions()).FillWorkbook(context.Background(), input, output)
	require.Error(t, err)
	assert.ErrorIs(t, err, structure.ErrStructureParse)

	_, statErr := os.Stat(output)
	assert.True(t, os.IsNotExist(statErr), "no output may be written")
	assert.Zero(t, c.answerCalls())
}

func TestFillWorkbookErrors(t *testing.T) {
	c := &scripted{structure: ddqStructure, answer: ddqAnswers}

	_, err := New(c, nil, DefaultOptions()).FillWorkbook(context.Background(), filepath.Join(t.TempDir(), "missing.xlsx"), "")
	assert.ErrorIs(t, err, ErrFileNotFound)

	opts := DefaultOptions()
	opts.Sheet = "Nope"
	_, err = New(c, nil, opts).FillWorkbook(context.Background(), writeDDQ(t), "")
	assert.ErrorIs(t, err, ErrNoSheet)

	bogus := filepath.Join(t.TempDir(), "bogus.xlsx")
	require.NoError(t, os.WriteFile(bogus, []byte("not a workbook"), 0o644))
	_, err = New(c, nil, DefaultOptions()).FillWorkbook(context.Background(), bogus, "")
	assert.ErrorIs(t, err, ErrInvalidFormat)
}

func TestFillWorkbookSaveErrorKeepsResult(t *testing.T) {
	input := writeDDQ(t)
	c := &scripted{structure: ddqStructure, answer: ddqAnswers}
	output := filepath.Join(t.TempDir(), "missing", "out.xlsx")

	result, err := New(c, ddqSearcher(), DefaultOptions()).FillWorkbook(context.Background(), input, output)
	require.Error(t, err)
	require.NotNil(t, result)
	assert.Len(t, result.Units, 2)
	assert.Empty(t, result.OutputPath)
	assert.Contains(t, result.Units[0].Raw, "<DECISION>Fill</DECISION>")
}

func TestAnswerIsolatesFailedUnits(t *testing.T) {
	t.Run("retrieval failure", func(t *testing.T) {
		boom := errors.New("retrieval timeout")
		searcher := retrieval.SearcherFunc(func(ctx context.Context, query string, topK int) ([]models.EvidenceChunk, error) {
			if strings.Contains(query, "DPO") {
				return nil, boom
			}
			return ddqSearcher().Search(ctx, query, topK)
		})
		c := &scripted{structure: ddqStructure, answer: ddqAnswers}

		result, err := New(c, searcher, DefaultOptions()).Answer(context.Background(), ddqText, "DDQ")
		require.NoError(t, err)

		assert.Equal(t, []string{`D7 = "No"`, `E8 = "AES-256 at rest"`}, result.Assignments)
		failed := result.Failed()
		require.Len(t, failed, 1)

		var unitErr *UnitError
		require.True(t, errors.As(failed[0].Err, &unitErr))
		assert.Equal(t, "batch-2", unitErr.Unit)
		assert.Equal(t, StageRetrieve, unitErr.Stage)
		assert.ErrorIs(t, failed[0].Err, boom)
		assert.Empty(t, failed[0].Lines)
	})

	t.Run("generation failure", func(t *testing.T) {
		c := &scripted{structure: ddqStructure, answer: func(req llm.Request) (string, error) {
			if strings.Contains(req.Prompt, "A9 = ") {
				return "", llm.ErrUnavailable
			}
			return ddqAnswers(req)
		}}

		result, err := New(c, ddqSearcher(), DefaultOptions()).Answer(context.Background(), ddqText, "DDQ")
		require.NoError(t, err)

		assert.Equal(t, []string{`D7 = "No"`, `E8 = "AES-256 at rest"`}, result.Assignments)
		require.Len(t, result.Failed(), 1)
		assert.ErrorIs(t, result.Units[1].Err, llm.ErrUnavailable)

		var unitErr *UnitError
		require.True(t, errors.As(result.Units[1].Err, &unitErr))
		assert.Equal(t, StageGenerate, unitErr.Stage)
	})
}

func TestAnswerWithoutEvidenceLeavesBlank(t *testing.T) {
	c := &scripted{structure: ddqStructure, answer: ddqAnswers}
	result, err := New(c, nil, DefaultOptions()).Answer(context.Background(), ddqText, "DDQ")
	require.NoError(t, err)

	assert.Equal(t, []string{`D7 = ""`, `D8 = ""`, `D9 = "No"`}, result.Assignments)
	assert.Empty(t, result.Units[0].Evidence)
}

func TestAnswerQuestionStrategy(t *testing.T) {
	questions := `{"questions": [
		{"question_text": "Have you had a data breach?", "cell_location": "D7", "response_instruction": "Yes or No"},
		{"question_text": "Is data encrypted at rest?", "cell_location": "d8", "response_instruction": "Describe the cipher"},
		{"question_text": "", "cell_location": "D10", "response_instruction": ""}
	]}`
	c := &scripted{questions: questions, answer: func(req llm.Request) (string, error) {
		switch {
		case strings.Contains(req.Prompt, "Answer cell: D7") && strings.Contains(req.Prompt, "No breaches occurred"):
			return trace("Fill") + `D7 = "No"`, nil
		case strings.Contains(req.Prompt, "Answer cell: D8"):
			return trace("Blank") + "D8 = \"\"\nD9 = \"out of scope\"", nil
		}
		return "", fmt.Errorf("unexpected prompt")
	}}

	opts := DefaultOptions()
	opts.Strategy = StrategyQuestion

	f := excelize.NewFile()
	defer f.Close()

	result, err := New(c, ddqSearcher(), opts).Run(context.Background(), writeback.NewSheet(f, "Sheet1"), ddqText, "Sheet1")
	require.NoError(t, err)

	assert.Equal(t, StrategyQuestion, result.Strategy)
	require.Len(t, result.Questions, 3)
	require.Len(t, result.Units, 2)
	assert.Equal(t, "D7", result.Units[0].Cell)
	assert.Equal(t, "D8", result.Units[1].Cell)
	assert.Equal(t, []string{`D9 = "out of scope"`}, result.Units[1].Dropped)
	assert.Equal(t, []string{`D7 = "No"`, `D8 = ""`}, result.Assignments)

	v, err := f.GetCellValue("Sheet1", "D7")
	require.NoError(t, err)
	assert.Equal(t, "No", v)
	assert.Equal(t, []string{"D7"}, result.Write.Written)
	assert.Equal(t, 1, result.Write.SkippedEmpty)
}

func TestAnswerWithoutQuestionColumn(t *testing.T) {
	c := &scripted{
		structure: `{"header_row": 6, "columns": {"Answer": "D"}, "batches": [{"batch_id": 1, "rows": [7]}]}`,
		answer:    ddqAnswers,
	}
	result, err := New(c, ddqSearcher(), DefaultOptions()).Answer(context.Background(), ddqText, "DDQ")
	require.NoError(t, err)

	assert.Empty(t, result.Units)
	assert.Empty(t, result.Assignments)
	assert.Zero(t, c.answerCalls())
}

func TestAnswerBlankText(t *testing.T) {
	c := &scripted{structure: ddqStructure, answer: ddqAnswers}
	_, err := New(c, nil, DefaultOptions()).Answer(context.Background(), " \n", "DDQ")
	assert.ErrorIs(t, err, ErrNoUnits)
}

func TestAnswerBoundsConcurrencyAndKeepsOrder(t *testing.T) {
	const units = 8
	var (
		text    strings.Builder
		batches []string
		want    []string
	)
	for i := 0; i < units; i++ {
		row := 10 + i
		fmt.Fprintf(&text, "Row %d\nA%d = \"Question %d?\"\n", row, row, i)
		batches = append(batches, fmt.Sprintf(`{"batch_id": %d, "rows": [%d]}`, i+1, row))
		want = append(want, fmt.Sprintf(`D%d = "answer %d"`, row, i))
	}
	structureJSON := `{"header_row": 9, "columns": {"Question": "A", "Answer": "D"}, "batches": [` +
		strings.Join(batches, ",") + `]}`

	var inFlight, peak atomic.Int32
	c := &scripted{structure: structureJSON, answer: func(req llm.Request) (string, error) {
		n := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)

		for i := 0; i < units; i++ {
			row := 10 + i
			if strings.Contains(req.Prompt, fmt.Sprintf("A%d = ", row)) {
				return fmt.Sprintf(`D%d = "answer %d"`, row, i), nil
			}
		}
		return "", nil
	}}

	opts := DefaultOptions()
	opts.Workers = 3
	result, err := New(c, nil, opts).Answer(context.Background(), text.String(), "Sheet1")
	require.NoError(t, err)

	assert.Equal(t, want, result.Assignments)
	assert.LessOrEqual(t, peak.Load(), int32(3))
	assert.Equal(t, units, c.answerCalls())
}

func TestAnswerCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := &scripted{structure: ddqStructure, answer: ddqAnswers}
	result, err := New(c, ddqSearcher(), DefaultOptions()).Answer(ctx, ddqText, "DDQ")
	require.NoError(t, err)

	assert.Empty(t, result.Assignments)
	require.Len(t, result.Units, 2)
	for _, u := range result.Units {
		assert.ErrorIs(t, u.Err, context.Canceled)
	}
	assert.Zero(t, c.answerCalls())
}
