package services

import (
	"encoding/json"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/voxnote/voxnote-backend/internal/logger"
)

const (
	SourceKindReel = "reel"
	SourceKindDoc  = "doc"
)

// NoContextMarker is emitted instead of an empty context so the model can
// tell "nothing relevant stored" apart from "nothing retrieved yet".
const NoContextMarker = "資料庫中沒有相關資訊。"

// CandidateSource is one indexed record offered to the ranker. Embedding is
// the serialized vector as stored; decoding failures degrade to similarity 0.
type CandidateSource struct {
	ID        int64
	Kind      string
	URL       string
	Name      string
	Filename  string
	Content   string
	Embedding string
	CreatedAt time.Time
}

type RankedSource struct {
	CandidateSource
	Similarity float64
}

// Ranker scores candidates against a query vector and returns the top k.
// The brute-force cosine implementation is O(N*d); an indexed structure can
// replace it behind the same contract.
type Ranker interface {
	Rank(query []float32, candidates []CandidateSource, k int) []RankedSource
}

type cosineRanker struct {
	log *logger.Logger
}

func NewCosineRanker(baseLog *logger.Logger) Ranker {
	return &cosineRanker{log: baseLog.With("component", "CosineRanker")}
}

func (r *cosineRanker) Rank(query []float32, candidates []CandidateSource, k int) []RankedSource {
	if k <= 0 || len(candidates) == 0 {
		return []RankedSource{}
	}

	ranked := make([]RankedSource, 0, len(candidates))
	for _, c := range candidates {
		vec, err := decodeEmbedding(c.Embedding)
		similarity := 0.0
		if err != nil {
			// One corrupt record must never fail the whole turn.
			r.log.Warn("Skipping unparseable embedding", "source_id", c.ID, "kind", c.Kind, "error", err)
		} else {
			similarity = cosineSimilarity(query, vec)
		}
		ranked = append(ranked, RankedSource{CandidateSource: c, Similarity: similarity})
	}

	// Stable sort keeps insertion order on ties, so identical inputs always
	// produce identical output.
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Similarity > ranked[j].Similarity
	})

	if len(ranked) > k {
		ranked = ranked[:k]
	}
	return ranked
}

// cosineSimilarity is dot(a,b)/(|a|*|b|), 0 on zero-norm or mismatched input.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

func decodeEmbedding(s string) ([]float32, error) {
	var vec []float32
	if err := json.Unmarshal([]byte(s), &vec); err != nil {
		return nil, err
	}
	return vec, nil
}

// EncodeEmbedding serializes a vector for storage on a record.
func EncodeEmbedding(vec []float32) (string, error) {
	raw, err := json.Marshal(vec)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// BuildContext renders ranked sources into the prompt-context block. Every
// item keeps its provenance label and verbatim ingestion date; the system
// prompt's date-scoping rules depend on those dates being preserved.
func BuildContext(ranked []RankedSource) string {
	if len(ranked) == 0 {
		return NoContextMarker
	}
	blocks := make([]string, 0, len(ranked))
	for _, r := range ranked {
		var label string
		if r.Kind == SourceKindReel {
			label = "[來源: Reel URL: " + r.URL + "]"
		} else {
			label = "[來源: 文件名稱: " + r.Name + "]"
		}
		blocks = append(blocks, label+" (存入日期: "+formatIngestionDate(r.CreatedAt)+")\n"+r.Content)
	}
	return strings.Join(blocks, "\n\n---\n\n")
}

func formatIngestionDate(t time.Time) string {
	return t.Format("2006/1/2 15:04:05")
}
