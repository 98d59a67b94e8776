package generator

import (
	"fmt"
	"strings"

	"github.com/ukaji3/exfill-go/pkg/exfill/models"
)

// DefaultOrganization is the respondent named in prompts when none is configured.
const DefaultOrganization = "the responding organisation"

const protocol = `For EACH question work through these phases in order, each inside its own tag pair:
1. <THINKING>What information does this question need?</THINKING>
2. <HEADER_CHECK>Do the headers or nearby rows give response options, formats or constraints?</HEADER_CHECK>
3. <CONTEXT_SEARCH>Quote the parts of the context that bear on this question.</CONTEXT_SEARCH>
4. <VALIDATION>Does that evidence directly and sufficiently answer this specific question?</VALIDATION>
5. <DECISION>Fill the cell, or leave it blank because the evidence is insufficient.</DECISION>
After the DECISION tag write exactly one line per cell you address:
<CellRef> = "<Value>"
Write <CellRef> = "" when the evidence does not support an answer.`

const rules = `Rules:
- Answer only from the supplied context. Do not assume, infer or guess.
- When the context is missing or does not clearly answer a question, leave its cell blank. A blank cell is the correct answer in that case.
- Keep cell references exactly as they appear in the rows. Never invent or renumber cells.
- When options are given in the headers, answer with one of those options only.
- Write like a member of a compliance team, in plain professional language, without phrases such as "based on the context".
- No markdown, tabs or extra spaces in values.
- Outside the tag pairs, output nothing but the cell lines.`

// BatchSystemPrompt returns the system instruction for answering a batch of
// related rows in one call.
func BatchSystemPrompt(organization string) string {
	return fmt.Sprintf(`You are a compliance team member at %s completing a client due-diligence questionnaire.
The rows you receive form one batch: a main question and its follow-ups. Process every question in the batch individually.

%s

Fill only the answer columns of the rows you are given, and only cells that are currently empty.

%s`, orgName(organization), protocol, rules)
}

// BatchPrompt returns the user prompt for a batch.
func BatchPrompt(structureJSON, rowText, context string) string {
	return fmt.Sprintf(`Questionnaire structure:
%s

Rows to fill:
%s

Context:
%s

Process each question individually through THINKING, HEADER_CHECK, CONTEXT_SEARCH, VALIDATION and DECISION before writing its cell lines.`,
		structureJSON, rowText, contextOrNone(context))
}

// QuestionSystemPrompt returns the system instruction for answering a single
// question.
func QuestionSystemPrompt(organization string) string {
	return fmt.Sprintf(`You are a compliance team member at %s completing a client due-diligence questionnaire.
You answer exactly one question and write exactly one cell.

%s

%s`, orgName(organization), protocol, rules)
}

// QuestionPrompt returns the user prompt for one question.
func QuestionPrompt(item models.QuestionItem, tableText, context string) string {
	return fmt.Sprintf(`Question: %s
Answer cell: %s
Response instruction: %s

Sheet:
%s

Context:
%s

Work through THINKING, HEADER_CHECK, CONTEXT_SEARCH, VALIDATION and DECISION, then write the single line for %s.`,
		item.QuestionText, item.CellLocation, item.ResponseInstruction, tableText, contextOrNone(context), item.CellLocation)
}

func orgName(organization string) string {
	if strings.TrimSpace(organization) == "" {
		return DefaultOrganization
	}
	return strings.TrimSpace(organization)
}

func contextOrNone(context string) string {
	if strings.TrimSpace(context) == "" {
		return "(no context was found)"
	}
	return context
}
