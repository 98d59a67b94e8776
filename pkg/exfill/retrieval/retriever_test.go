package retrieval

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukaji3/exfill-go/pkg/exfill/models"
)

func static(chunks ...models.EvidenceChunk) (Searcher, *int) {
	calls := 0
	return SearcherFunc(func(ctx context.Context, query string, topK int) ([]models.EvidenceChunk, error) {
		calls++
		return chunks, nil
	}), &calls
}

func TestRetrieveOrdersAndBounds(t *testing.T) {
	s, _ := static(
		models.EvidenceChunk{Text: "low", Score: 0.1},
		models.EvidenceChunk{Text: "high", Score: 0.9},
		models.EvidenceChunk{Text: "mid-a", Score: 0.5},
		models.EvidenceChunk{Text: "mid-b", Score: 0.5},
		models.EvidenceChunk{Text: "high", Score: 0.9},
	)

	got, err := NewRetriever(s, 4, nil).Retrieve(context.Background(), "breach?")
	require.NoError(t, err)

	want := []models.EvidenceChunk{
		{Text: "high", Score: 0.9},
		{Text: "high", Score: 0.9},
		{Text: "mid-a", Score: 0.5},
		{Text: "mid-b", Score: 0.5},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Retrieve() mismatch (-want +got):\n%s", diff)
	}
}

func TestRetrieveDefaultTopK(t *testing.T) {
	var chunks []models.EvidenceChunk
	for i := 0; i < 8; i++ {
		chunks = append(chunks, models.EvidenceChunk{Text: "c", Score: float64(i)})
	}
	var gotK int
	s := SearcherFunc(func(ctx context.Context, query string, topK int) ([]models.EvidenceChunk, error) {
		gotK = topK
		return chunks, nil
	})

	r := NewRetriever(s, 0, nil)
	got, err := r.Retrieve(context.Background(), "q")
	require.NoError(t, err)
	assert.Equal(t, DefaultTopK, r.TopK())
	assert.Equal(t, DefaultTopK, gotK)
	assert.Len(t, got, DefaultTopK)
	assert.Equal(t, []float64{7, 6, 5, 4, 3}, Scores(got))
}

func TestRetrieveEmpty(t *testing.T) {
	s, calls := static()

	got, err := NewRetriever(s, 5, nil).Retrieve(context.Background(), "   ")
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Equal(t, 0, *calls)

	got, err = NewRetriever(s, 5, nil).Retrieve(context.Background(), "q")
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Equal(t, 1, *calls)

	got, err = NewRetriever(nil, 5, nil).Retrieve(context.Background(), "q")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestRetrieveError(t *testing.T) {
	boom := errors.New("timeout")
	s := SearcherFunc(func(ctx context.Context, query string, topK int) ([]models.EvidenceChunk, error) {
		return nil, boom
	})
	_, err := NewRetriever(s, 5, nil).Retrieve(context.Background(), "q")
	assert.ErrorIs(t, err, boom)
}

func TestJoinEvidence(t *testing.T) {
	got := JoinEvidence([]models.EvidenceChunk{{Text: "a"}, {Text: "b"}})
	assert.Equal(t, "a\n\nb", got)
	assert.Equal(t, "", JoinEvidence(nil))
}
