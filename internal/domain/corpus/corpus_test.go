package corpus

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/timelessnp/sitechat/internal/pkg/errs"
)

func writeCorpus(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "docs.json")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write corpus: %v", err)
	}
	return path
}

func TestLoad_OK(t *testing.T) {
	docs, err := Load(writeCorpus(t, `[
		{"id":"1","title":"Fund","text":"Kickstart Fund supports student projects."},
		{"id":"2","title":"History","text":"Founded in 1960."}
	]`))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("expected 2 documents, got %d", len(docs))
	}
	if docs[0].ID != "1" || docs[0].Title != "Fund" {
		t.Errorf("unexpected first document %+v", docs[0])
	}
}

func TestLoad_Malformed(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{name: "empty array", body: `[]`, want: "at least one document"},
		{name: "not an array", body: `{"id":"1"}`, want: "JSON array"},
		{name: "not json", body: `hello`, want: "JSON array"},
		{name: "missing id", body: `[{"title":"t","text":"x"}]`, want: "no id"},
		{name: "missing title", body: `[{"id":"1","text":"x"}]`, want: "no title"},
		{name: "missing text", body: `[{"id":"1","title":"t"}]`, want: "no text"},
		{name: "duplicate id", body: `[{"id":"1","title":"a","text":"x"},{"id":"1","title":"b","text":"y"}]`, want: "duplicate"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeCorpus(t, tt.body))
			if !errs.IsConfiguration(err) {
				t.Fatalf("expected configuration error, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error mentioning %q, got %v", tt.want, err)
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	if !errs.IsConfiguration(err) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestEmbeddingInput(t *testing.T) {
	d := Document{ID: "1", Title: "Fund", Text: "Supports students."}
	want := "Fund\n\nSupports students."
	if got := d.EmbeddingInput(); got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}
