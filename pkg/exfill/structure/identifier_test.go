package structure

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukaji3/exfill-go/pkg/exfill/llm"
	"github.com/ukaji3/exfill-go/pkg/exfill/models"
)

func reply(text string) llm.Completer {
	return llm.CompleterFunc(func(ctx context.Context, req llm.Request) (llm.Response, error) {
		return llm.Response{Text: text}, nil
	})
}

const sheetText = "Row 6\nA6 = \"Question\"\nD6 = \"Answer\"\nRow 7\nA7 = \"breach?\"\nD7 = \"\""

func TestIdentify(t *testing.T) {
	raw := "```json\n<reasoning>header is row 6</reasoning>\n" +
		`{"sheet_name": "DDQ", "header_row": 6, "columns": {"Question": "A", "Answer": "D"},` +
		` "batches": [{"batch_id": 1, "rows": [7]}, {"batch_id": 2, "rows": []}, {"batch_id": 3, "rows": [7, 8]}]}` +
		"\n```"

	var gotReq llm.Request
	c := llm.CompleterFunc(func(ctx context.Context, req llm.Request) (llm.Response, error) {
		gotReq = req
		return llm.Response{Text: raw}, nil
	})

	s, usage, err := NewIdentifier(c, llm.DefaultPricing(), nil).Identify(context.Background(), sheetText)
	require.NoError(t, err)

	want := &models.Structure{
		SheetName: "DDQ",
		HeaderRow: 6,
		Columns:   map[string]string{"Question": "A", "Answer": "D"},
		Batches:   []models.Batch{{ID: 1, Rows: []int{7}}, {ID: 3, Rows: []int{7, 8}}},
	}
	if diff := cmp.Diff(want, s); diff != "" {
		t.Errorf("Identify() mismatch (-want +got):\n%s", diff)
	}
	assert.Contains(t, gotReq.Prompt, sheetText)
	assert.Equal(t, structureSystemPrompt, gotReq.System)
	assert.Equal(t, 1, usage.Calls)
}

func TestIdentifyRejectsProse(t *testing.T) {
	raw := "I'm sorry, I cannot determine the structure of this sheet."
	_, _, err := NewIdentifier(reply(raw), llm.DefaultPricing(), nil).Identify(context.Background(), sheetText)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStructureParse)

	var parseErr *StructureParseError
	require.True(t, errors.As(err, &parseErr))
	assert.Equal(t, raw, parseErr.Raw)
}

func TestIdentifyPropagatesServiceError(t *testing.T) {
	c := llm.CompleterFunc(func(ctx context.Context, req llm.Request) (llm.Response, error) {
		return llm.Response{}, llm.ErrRateLimited
	})
	_, _, err := NewIdentifier(c, llm.DefaultPricing(), nil).Identify(context.Background(), sheetText)
	assert.ErrorIs(t, err, llm.ErrRateLimited)
	assert.NotErrorIs(t, err, ErrStructureParse)
}

func TestDecodeStructure(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr bool
	}{
		{"plain", `{"header_row": 1}`, false},
		{"fenced without language", "```\n{\"header_row\": 1}\n```", false},
		{"thinking block", "<thinking>\nrows\n</thinking>\n{\"header_row\": 1}", false},
		{"truncated", `{"header_row": 1`, true},
		{"empty", "", true},
		{"array", `[1, 2]`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := DecodeStructure(tt.raw)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrStructureParse)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, 1, s.HeaderRow)
		})
	}
}

func TestIdentifyQuestions(t *testing.T) {
	raw := "Here is the analysis:\n" +
		`{"questions": [` +
		`{"question_text": "Any breach {in 2023}?", "cell_location": "d7", "response_instruction": "Yes or No"},` +
		`{"question_text": "Orphan", "cell_location": "n/a", "response_instruction": ""}` +
		`]} trailing {"ignored": true}`

	var gotReq llm.Request
	c := llm.CompleterFunc(func(ctx context.Context, req llm.Request) (llm.Response, error) {
		gotReq = req
		return llm.Response{Text: raw}, nil
	})

	items, _, err := NewIdentifier(c, llm.DefaultPricing(), nil).IdentifyQuestions(context.Background(), sheetText, "DDQ")
	require.NoError(t, err)

	want := []models.QuestionItem{{
		QuestionText:        "Any breach {in 2023}?",
		CellLocation:        "D7",
		ResponseInstruction: "Yes or No",
	}}
	if diff := cmp.Diff(want, items); diff != "" {
		t.Errorf("IdentifyQuestions() mismatch (-want +got):\n%s", diff)
	}
	assert.Contains(t, gotReq.Prompt, "SHEET: DDQ")
	assert.Equal(t, questionsSystemPrompt, gotReq.System)
}

func TestDecodeQuestionsErrors(t *testing.T) {
	_, err := DecodeQuestions("no json here")
	assert.ErrorIs(t, err, ErrStructureParse)

	_, err = DecodeQuestions(`{"questions": [`)
	assert.ErrorIs(t, err, ErrStructureParse)
}

func TestFirstObject(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{`{"a": 1} tail`, `{"a": 1}`},
		{`{"a": {"b": "}"}} {}`, `{"a": {"b": "}"}}`},
		{`{"a": "\"}"}x`, `{"a": "\"}"}`},
		{`{"a": 1`, `{"a": 1`},
	}
	for _, tt := range tests {
		if got := firstObject(tt.in); got != tt.want {
			t.Errorf("firstObject(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
