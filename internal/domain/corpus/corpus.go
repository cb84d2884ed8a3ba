// Package corpus loads the static document set the assistant answers from.
// Documents are operator-maintained content records; the serving path never
// mutates them.
package corpus

import (
	"encoding/json"
	"os"
	"strings"

	"github.com/timelessnp/sitechat/internal/pkg/errs"
)

// Document is one site content record.
type Document struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Text  string `json:"text"`
}

// EmbeddingInput is the text actually embedded for a document: the title and
// body joined so short titles still influence retrieval.
func (d Document) EmbeddingInput() string {
	return d.Title + "\n\n" + d.Text
}

// Load reads the document corpus from a JSON array file. The corpus must be
// a non-empty array of records carrying id, title and text, with unique ids;
// anything else is a configuration error.
func Load(path string) ([]Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.Configurationf("read corpus %s: %v", path, err)
	}

	var docs []Document
	if err := json.Unmarshal(data, &docs); err != nil {
		return nil, errs.Configurationf("corpus %s must be a JSON array of documents: %v", path, err)
	}
	if err := Validate(docs); err != nil {
		return nil, err
	}
	return docs, nil
}

// Validate checks the structural invariants of a document set.
func Validate(docs []Document) error {
	if len(docs) == 0 {
		return errs.Configurationf("corpus must contain at least one document")
	}
	seen := make(map[string]struct{}, len(docs))
	for i, d := range docs {
		if strings.TrimSpace(d.ID) == "" {
			return errs.Configurationf("document %d has no id", i)
		}
		if strings.TrimSpace(d.Title) == "" {
			return errs.Configurationf("document %q has no title", d.ID)
		}
		if strings.TrimSpace(d.Text) == "" {
			return errs.Configurationf("document %q has no text", d.ID)
		}
		if _, dup := seen[d.ID]; dup {
			return errs.Configurationf("duplicate document id %q", d.ID)
		}
		seen[d.ID] = struct{}{}
	}
	return nil
}
