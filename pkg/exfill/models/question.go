package models

// QuestionItem is a single question answered on its own in the fine-grained
// strategy.
type QuestionItem struct {
	// QuestionText is the literal question.
	QuestionText string `json:"question_text"`
	// CellLocation is the coordinate the answer goes to (e.g. "D23").
	CellLocation string `json:"cell_location"`
	// ResponseInstruction describes format, options and constraints for the answer.
	ResponseInstruction string `json:"response_instruction"`
}
