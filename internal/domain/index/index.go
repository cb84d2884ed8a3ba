// Package index holds the in-memory vector index and cosine ranking over
// embedded site documents.
package index

import (
	"encoding/json"
	"math"
	"os"
	"sort"

	"github.com/timelessnp/sitechat/internal/pkg/errs"
)

// DefaultTopK is the number of passages retrieved when no limit is configured.
const DefaultTopK = 4

// Record is one embedded document in the index file.
type Record struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Text      string    `json:"text"`
	Embedding []float32 `json:"embedding"`
}

// File is the on-disk index envelope. EmbedModel records which embedding
// model produced the vectors so serve can refuse a mismatched configuration.
type File struct {
	EmbedModel string   `json:"embed_model,omitempty"`
	Records    []Record `json:"records"`
}

// Match is a ranked retrieval hit.
type Match struct {
	Record Record
	Score  float32
}

// Index ranks query vectors against a fixed set of document embeddings.
type Index struct {
	embedModel string
	records    []Record
}

// Load reads an index file and validates every record. Older index files
// written as a bare record array still load; they carry no model id.
func Load(path string) (*Index, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.Configurationf("read index %s: %v", path, err)
	}
	var file File
	if err := json.Unmarshal(raw, &file); err != nil {
		var legacy []Record
		if legacyErr := json.Unmarshal(raw, &legacy); legacyErr != nil {
			return nil, errs.Configurationf("index %s is not a valid index file: %v", path, err)
		}
		file = File{Records: legacy}
	}
	idx := &Index{embedModel: file.EmbedModel, records: file.Records}
	if err := idx.validate(path); err != nil {
		return nil, err
	}
	return idx, nil
}

// New builds an index directly from records, as produced by ingestion.
func New(embedModel string, records []Record) (*Index, error) {
	idx := &Index{embedModel: embedModel, records: records}
	if err := idx.validate("index"); err != nil {
		return nil, err
	}
	return idx, nil
}

// validate enforces that the index is usable before any query runs:
// at least one record, and all embeddings present with one shared dimension.
func (x *Index) validate(origin string) error {
	if len(x.records) == 0 {
		return errs.Configurationf("%s contains no records", origin)
	}
	dim := len(x.records[0].Embedding)
	for i, r := range x.records {
		if r.ID == "" {
			return errs.Configurationf("%s record %d has no id", origin, i)
		}
		if len(r.Embedding) == 0 {
			return errs.Configurationf("%s record %q has an empty embedding", origin, r.ID)
		}
		if len(r.Embedding) != dim {
			return errs.Configurationf("%s record %q has dimension %d, expected %d", origin, r.ID, len(r.Embedding), dim)
		}
	}
	return nil
}

// EmbedModel returns the embedding model id recorded at ingest time,
// or "" for a legacy index file.
func (x *Index) EmbedModel() string { return x.embedModel }

// Len returns the number of indexed records.
func (x *Index) Len() int { return len(x.records) }

// Rank scores every record against the query vector and returns the top k
// matches by cosine similarity, highest first. Ties keep corpus order.
// k <= 0 falls back to DefaultTopK; k larger than the index is capped.
func (x *Index) Rank(queryVec []float32, k int) []Match {
	if k <= 0 {
		k = DefaultTopK
	}
	scored := make([]Match, 0, len(x.records))
	for _, r := range x.records {
		scored = append(scored, Match{Record: r, Score: cosineSimilarity(queryVec, r.Embedding)})
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	if k > len(scored) {
		k = len(scored)
	}
	return scored[:k]
}

// Save writes the index envelope to path via a temp file and rename, so a
// crash mid-write never leaves a truncated index behind.
func (x *Index) Save(path string) error {
	file := File{EmbedModel: x.embedModel, Records: x.records}
	raw, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return errs.Configurationf("encode index: %v", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return errs.Configurationf("write index %s: %v", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return errs.Configurationf("replace index %s: %v", path, err)
	}
	return nil
}

// cosineSimilarity computes cosine similarity between two float32 vectors.
// Returns 0 if either vector has zero magnitude or the lengths differ.
func cosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	denom := math.Sqrt(normA) * math.Sqrt(normB)
	if denom == 0 {
		return 0
	}
	return float32(dot / denom)
}
