package structure

const structureSystemPrompt = `You analyse the layout of questionnaire spreadsheets so that answers can be written back into the same sheet.

The sheet is given row by row. Each block starts with "Row <N>" and lists the non-empty cells of that row as <Column><N> = "<text>".

Do the following:
1. Find the header row, the row that names the columns (Question, Answer, Comments and similar).
2. Map every role to its exact column letter. Question is the column holding the questions. Answer and any other fillable column (Comment, Remarks, Notes, Evidence) are the columns to be filled.
3. Ignore rows above the questions such as titles, instructions and submitter details.
4. Group the question rows into batches. A batch holds a main question together with its immediate follow-up questions, in sequential row order, so the whole batch can be answered in one retrieval round.

Reply with JSON only. No explanation, no code fences, no text before or after the object.

{
  "sheet_name": "<sheet name>",
  "header_row": <row number>,
  "columns": {"Question": "<col>", "Answer": "<col>", "Comment": "<col>"},
  "batches": [
    {"batch_id": 1, "rows": [<row>, <row>]},
    {"batch_id": 2, "rows": [<row>]}
  ]
}`

const questionsSystemPrompt = `You extract questions from questionnaire spreadsheets and describe exactly how each one must be answered.

The sheet is given row by row. Each block starts with "Row <N>" and lists the non-empty cells of that row as <Column><N> = "<text>".

For every question return:
- question_text: the question as written.
- cell_location: the single cell where the answer belongs, for example "D23".
- response_instruction: everything needed to answer it correctly. Include the expected answer type (Yes/No, free text, a choice), every allowed option, format rules such as dates or lengths, and any constraint stated in the header or nearby rows.

Return only valid JSON. Start with { and end with }.

{
  "questions": [
    {"question_text": "<question>", "cell_location": "<cell>", "response_instruction": "<instruction>"}
  ]
}`
