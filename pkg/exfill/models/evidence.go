package models

// EvidenceChunk is a retrieved snippet used to ground an answer.
type EvidenceChunk struct {
	// Text is the snippet content.
	Text string `json:"text"`
	// Score is the retrieval similarity. Higher is more relevant.
	Score float64 `json:"score"`
}
