package services

import (
	"strings"
	"testing"
	"time"

	"github.com/voxnote/voxnote-backend/internal/logger"
)

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a    []float32
		b    []float32
		want float64
	}{
		{name: "identical", a: []float32{1, 2, 3}, b: []float32{1, 2, 3}, want: 1},
		{name: "orthogonal", a: []float32{1, 0}, b: []float32{0, 1}, want: 0},
		{name: "opposite", a: []float32{1, 0}, b: []float32{-1, 0}, want: -1},
		{name: "zero vector", a: []float32{0, 0}, b: []float32{1, 1}, want: 0},
		{name: "length mismatch", a: []float32{1, 2}, b: []float32{1, 2, 3}, want: 0},
		{name: "both empty", a: nil, b: nil, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := cosineSimilarity(tt.a, tt.b)
			if diff := got - tt.want; diff > 1e-9 || diff < -1e-9 {
				t.Errorf("cosineSimilarity() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCosineSimilaritySymmetric(t *testing.T) {
	pairs := []struct {
		name string
		a    []float32
		b    []float32
	}{
		{name: "asymmetric values", a: []float32{0.9, 0.1, -0.3}, b: []float32{0.2, 0.8, 0.5}},
		{name: "different magnitudes", a: []float32{3, 0}, b: []float32{1, 1}},
		{name: "length mismatch", a: []float32{1, 2}, b: []float32{1, 2, 3}},
		{name: "one empty", a: nil, b: []float32{1, 2}},
	}
	for _, tt := range pairs {
		t.Run(tt.name, func(t *testing.T) {
			ab := cosineSimilarity(tt.a, tt.b)
			ba := cosineSimilarity(tt.b, tt.a)
			if ab != ba {
				t.Errorf("cosineSimilarity(a,b) = %v but cosineSimilarity(b,a) = %v", ab, ba)
			}
		})
	}
}

func TestRankOrdersBySimilarity(t *testing.T) {
	ranker := NewCosineRanker(logger.NewNop())

	candidates := []CandidateSource{
		{ID: 1, Kind: SourceKindReel, URL: "https://www.instagram.com/reel/a", Embedding: "[0.0,1.0]"},
		{ID: 2, Kind: SourceKindReel, URL: "https://www.instagram.com/reel/b", Embedding: "[1.0,0.0]"},
		{ID: 3, Kind: SourceKindDoc, Name: "notes.txt", Embedding: "not json"},
	}
	query := []float32{0.9, 0.1}

	ranked := ranker.Rank(query, candidates, 10)
	if len(ranked) != 3 {
		t.Fatalf("Rank() returned %d results, want 3", len(ranked))
	}
	if ranked[0].ID != 2 {
		t.Errorf("top result = %d, want 2", ranked[0].ID)
	}
	if ranked[2].ID != 3 || ranked[2].Similarity != 0 {
		t.Errorf("corrupt embedding should rank last with similarity 0, got id=%d sim=%v", ranked[2].ID, ranked[2].Similarity)
	}
	for i := 1; i < len(ranked); i++ {
		if ranked[i].Similarity > ranked[i-1].Similarity {
			t.Errorf("results not in descending order at %d", i)
		}
	}
}

func TestRankTruncatesToK(t *testing.T) {
	ranker := NewCosineRanker(logger.NewNop())
	candidates := make([]CandidateSource, 15)
	for i := range candidates {
		candidates[i] = CandidateSource{ID: int64(i + 1), Embedding: "[1.0,0.0]"}
	}
	ranked := ranker.Rank([]float32{1, 0}, candidates, 10)
	if len(ranked) != 10 {
		t.Errorf("Rank() returned %d results, want 10", len(ranked))
	}
}

func TestRankEmptyInputs(t *testing.T) {
	ranker := NewCosineRanker(logger.NewNop())

	if got := ranker.Rank([]float32{1, 0}, nil, 10); len(got) != 0 {
		t.Errorf("no candidates should yield empty slice, got %d", len(got))
	}
	candidates := []CandidateSource{{ID: 1, Embedding: "[1.0,0.0]"}}
	if got := ranker.Rank([]float32{1, 0}, candidates, 0); len(got) != 0 {
		t.Errorf("k=0 should yield empty slice, got %d", len(got))
	}
}

func TestRankIsDeterministicOnTies(t *testing.T) {
	ranker := NewCosineRanker(logger.NewNop())
	candidates := []CandidateSource{
		{ID: 1, Embedding: "[1.0,0.0]"},
		{ID: 2, Embedding: "[1.0,0.0]"},
		{ID: 3, Embedding: "[1.0,0.0]"},
	}
	first := ranker.Rank([]float32{1, 0}, candidates, 3)
	second := ranker.Rank([]float32{1, 0}, candidates, 3)
	for i := range first {
		if first[i].ID != second[i].ID {
			t.Fatalf("tie order differs between runs at %d: %d vs %d", i, first[i].ID, second[i].ID)
		}
	}
	if first[0].ID != 1 || first[1].ID != 2 || first[2].ID != 3 {
		t.Errorf("ties should keep insertion order, got %d,%d,%d", first[0].ID, first[1].ID, first[2].ID)
	}
}

func TestBuildContextEmpty(t *testing.T) {
	if got := BuildContext(nil); got != NoContextMarker {
		t.Errorf("BuildContext(nil) = %q, want marker", got)
	}
}

func TestBuildContextLabels(t *testing.T) {
	created := time.Date(2026, 2, 23, 9, 5, 7, 0, time.UTC)
	ranked := []RankedSource{
		{CandidateSource: CandidateSource{
			Kind:      SourceKindReel,
			URL:       "https://www.instagram.com/reel/abc",
			Content:   "逐字稿內容",
			CreatedAt: created,
		}},
		{CandidateSource: CandidateSource{
			Kind:      SourceKindDoc,
			Name:      "meeting.txt",
			Content:   "文件內容",
			CreatedAt: created,
		}},
	}
	got := BuildContext(ranked)

	if !strings.Contains(got, "[來源: Reel URL: https://www.instagram.com/reel/abc]") {
		t.Errorf("missing reel label in %q", got)
	}
	if !strings.Contains(got, "[來源: 文件名稱: meeting.txt]") {
		t.Errorf("missing document label in %q", got)
	}
	if !strings.Contains(got, "(存入日期: 2026/2/23 09:05:07)") {
		t.Errorf("missing ingestion date in %q", got)
	}
	if !strings.Contains(got, "\n\n---\n\n") {
		t.Errorf("missing block separator in %q", got)
	}
}

func TestEmbeddingRoundTrip(t *testing.T) {
	encoded, err := EncodeEmbedding([]float32{0.5, -1.25, 0})
	if err != nil {
		t.Fatalf("EncodeEmbedding() error = %v", err)
	}
	decoded, err := decodeEmbedding(encoded)
	if err != nil {
		t.Fatalf("decodeEmbedding() error = %v", err)
	}
	if len(decoded) != 3 || decoded[0] != 0.5 || decoded[1] != -1.25 || decoded[2] != 0 {
		t.Errorf("round trip = %v", decoded)
	}
}
