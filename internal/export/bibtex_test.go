package export

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/matsen/paperchat/internal/reference"
)

func samplePaper() reference.Paper {
	return reference.Paper{
		ID:    "2401.12345",
		Title: "The Geometry of Phylogenetic Tree Space",
		Authors: []reference.Author{
			{First: "Ada", Last: "Lovelace"},
			{First: "Alan", Last: "Turing"},
		},
		Abstract: "We study 100% of trees & more.",
	}
}

func TestToBibTeX(t *testing.T) {
	got := ToBibTeX(samplePaper())

	wants := []string{
		"@misc{lovelace2024geometry,\n",
		"  title = {The Geometry of Phylogenetic Tree Space},\n",
		"  author = {Lovelace, Ada and Turing, Alan},\n",
		"  year = {2024},\n",
		"  eprint = {2401.12345},\n",
		"  archivePrefix = {arXiv},\n",
		"  url = {https://arxiv.org/abs/2401.12345},\n",
		`  abstract = {We study 100\% of trees \& more.},` + "\n",
	}
	for _, want := range wants {
		if !strings.Contains(got, want) {
			t.Errorf("ToBibTeX() missing %q, got:\n%s", want, got)
		}
	}
	if !strings.HasSuffix(got, "}\n") {
		t.Errorf("ToBibTeX() should end with closing brace, got:\n%s", got)
	}
}

func TestToBibTeX_MinimalPaper(t *testing.T) {
	p := reference.Paper{ID: "hep-th/9901001", Title: "Old Style", URL: "https://example.org/p"}
	got := ToBibTeX(p)

	if !strings.HasPrefix(got, "@misc{arxivhepth9901001,") {
		t.Errorf("unexpected key, got:\n%s", got)
	}
	if strings.Contains(got, "author =") || strings.Contains(got, "abstract =") {
		t.Errorf("empty fields should be omitted, got:\n%s", got)
	}
	if !strings.Contains(got, "year = {1999}") {
		t.Errorf("year should come from the id, got:\n%s", got)
	}
	if !strings.Contains(got, "url = {https://example.org/p}") {
		t.Errorf("explicit URL should win, got:\n%s", got)
	}
}

func TestCitationKey(t *testing.T) {
	tests := []struct {
		name  string
		paper reference.Paper
		want  string
	}{
		{"skips stop words", reference.Paper{ID: "2305.00001", Title: "On the Rate of Things", Authors: []reference.Author{{Last: "Smith"}}}, "smith2023rate"},
		{"explicit year", reference.Paper{ID: "x", Year: 2019, Title: "Graphs", Authors: []reference.Author{{Last: "Doe"}}}, "doe2019graphs"},
		{"non-ascii name", reference.Paper{ID: "2101.00001", Title: "Über Alles", Authors: []reference.Author{{Last: "Gödel"}}}, "gdel2021ber"},
		{"no authors", reference.Paper{ID: "2101.00001v2"}, "arxiv210100001v2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CitationKey(tt.paper); got != tt.want {
				t.Errorf("CitationKey() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFormatAuthors(t *testing.T) {
	tests := []struct {
		authors []reference.Author
		want    string
	}{
		{[]reference.Author{{First: "John", Last: "Smith"}}, "Smith, John"},
		{[]reference.Author{{First: "John", Last: "Smith"}, {Last: "WHO"}}, "Smith, John and WHO"},
	}
	for _, tt := range tests {
		if got := formatAuthors(tt.authors); got != tt.want {
			t.Errorf("formatAuthors() = %q, want %q", got, tt.want)
		}
	}
}

func TestEscapeLatex(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"plain text", "plain text"},
		{"A & B: $100 for {item} #1", `A \& B: \$100 for \{item\} \#1`},
		{"x^2~y_i", `x\textasciicircum{}2\textasciitilde{}y\_i`},
	}
	for _, tt := range tests {
		if got := escapeLatex(tt.input); got != tt.want {
			t.Errorf("escapeLatex(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestToBibTeXList(t *testing.T) {
	a := samplePaper()
	b := reference.Paper{ID: "2402.00002", Title: "Second", Authors: []reference.Author{{Last: "Doe"}}}
	got := ToBibTeXList([]reference.Paper{a, b})
	if strings.Count(got, "@misc{") != 2 {
		t.Errorf("expected two entries, got:\n%s", got)
	}
	if ToBibTeXList(nil) != "" {
		t.Error("empty list should render nothing")
	}
}

func TestParseBibTeXFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "refs.bib")
	content := `@misc{lovelace2024geometry,
  title = {The Geometry},
  eprint = {arXiv:2401.12345v3},
}

@article{doe2019graphs,
  title = {Graphs},
}
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	idx, err := ParseBibTeXFile(path)
	if err != nil {
		t.Fatalf("ParseBibTeXFile: %v", err)
	}
	if !idx.HasEntry("other-key", "2401.12345") {
		t.Error("eprint match should ignore prefix and version")
	}
	if !idx.HasEntry("doe2019graphs", "") {
		t.Error("key match failed")
	}
	if idx.HasEntry("new", "2402.99999") {
		t.Error("unexpected match")
	}

	idx.Add("new", "2402.99999v1")
	if !idx.HasEntry("x", "2402.99999") {
		t.Error("Add did not index eprint")
	}
}

func TestParseBibTeXFile_Missing(t *testing.T) {
	idx, err := ParseBibTeXFile(filepath.Join(t.TempDir(), "none.bib"))
	if err != nil {
		t.Fatal(err)
	}
	if len(idx.Keys) != 0 || len(idx.EPrints) != 0 {
		t.Error("missing file should give an empty index")
	}
}

func TestAppendToBibFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.bib")
	if err := AppendToBibFile(path, ToBibTeX(samplePaper())); err != nil {
		t.Fatal(err)
	}
	idx, err := ParseBibTeXFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !idx.HasEntry("", "2401.12345") {
		t.Error("appended entry not found")
	}
}
