package chunker

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/marrow-labs/biblio-cli/internal/core/domain"
)

func TestNew(t *testing.T) {
	t.Run("default values", func(t *testing.T) {
		p := New()
		if p.maxChars != DefaultMaxChunkChars {
			t.Errorf("expected maxChars %d, got %d", DefaultMaxChunkChars, p.maxChars)
		}
	})

	t.Run("custom limit", func(t *testing.T) {
		p := New(WithMaxChars(500))
		if p.maxChars != 500 {
			t.Errorf("expected maxChars 500, got %d", p.maxChars)
		}
	})

	t.Run("zero value ignored", func(t *testing.T) {
		p := New(WithMaxChars(0))
		if p.maxChars != DefaultMaxChunkChars {
			t.Errorf("expected default maxChars, got %d", p.maxChars)
		}
	})
}

// sampleDoc builds a document with three sections and two tables, the
// second table in a section without narrative.
func sampleDoc() *domain.ParsedDocument {
	return &domain.ParsedDocument{
		ID:      "PMC42",
		Title:   "Magnesium and sleep",
		Authors: []string{"Jane Doe"},
		Year:    "2020",
		Journal: "J Sleep Res",
		Sections: []domain.Section{
			{Label: "Introduction", Paragraphs: []string{
				strings.Repeat("intro ", 50),
				strings.Repeat("more intro ", 30),
			}},
			{Label: "Methods", Paragraphs: []string{
				"Participants received magnesium.",
				"Outcomes were measured weekly.",
			}},
			{Label: "Results", Paragraphs: []string{
				strings.Repeat("results ", 80),
			}},
		},
		Tables: []domain.Table{
			{
				Label:        "Table 1",
				Caption:      "Doses",
				Rows:         [][]string{{"Group", "Dose"}, {"A", "320 mg"}},
				SectionLabel: "Methods",
				Position:     1,
			},
			{
				Label:        "Table 2",
				Caption:      "Adverse events",
				Rows:         [][]string{{"Event", "N"}, {"Nausea", "3"}},
				SectionLabel: "Appendix",
				Position:     0,
			},
		},
	}
}

func TestProcess_SizeLimitAndTableAtomicity(t *testing.T) {
	chunks := New(WithMaxChars(500)).Process(sampleDoc())

	tableChunks := 0
	for _, c := range chunks {
		if c.IsTable {
			tableChunks++
			continue
		}
		if len(c.Text) > 500 {
			t.Errorf("narrative chunk %d exceeds limit: %d chars", c.Index, len(c.Text))
		}
	}
	if tableChunks != 2 {
		t.Errorf("expected 2 table chunks, got %d", tableChunks)
	}
}

func TestProcess_ContiguousIndices(t *testing.T) {
	chunks := New(WithMaxChars(500)).Process(sampleDoc())

	if len(chunks) == 0 {
		t.Fatal("expected chunks")
	}
	for i, c := range chunks {
		if c.Index != i {
			t.Errorf("chunk %d has index %d", i, c.Index)
		}
		if c.TotalChunks != len(chunks) {
			t.Errorf("chunk %d has total %d, want %d", i, c.TotalChunks, len(chunks))
		}
		if c.DocumentID != "PMC42" {
			t.Errorf("chunk %d has document %q", i, c.DocumentID)
		}
	}
}

func TestProcess_TablePosition(t *testing.T) {
	chunks := New(WithMaxChars(500)).Process(sampleDoc())

	// Table 1 sits at position 1 in Methods: after the first paragraph,
	// before the second.
	var methodsTexts []string
	for _, c := range chunks {
		if c.SectionLabel == "Methods" {
			methodsTexts = append(methodsTexts, c.Text)
		}
	}
	if len(methodsTexts) != 3 {
		t.Fatalf("expected 3 Methods chunks, got %d", len(methodsTexts))
	}
	if !strings.Contains(methodsTexts[0], "Participants") {
		t.Errorf("first Methods chunk wrong: %q", methodsTexts[0])
	}
	if !strings.HasPrefix(methodsTexts[1], "Table 1: Doses") {
		t.Errorf("second Methods chunk should be the table: %q", methodsTexts[1])
	}
	if !strings.Contains(methodsTexts[2], "Outcomes") {
		t.Errorf("third Methods chunk wrong: %q", methodsTexts[2])
	}
}

func TestProcess_OrphanTableEmittedOnce(t *testing.T) {
	chunks := New(WithMaxChars(500)).Process(sampleDoc())

	count := 0
	for _, c := range chunks {
		if strings.Contains(c.Text, "Adverse events") {
			count++
			if !c.IsTable {
				t.Error("orphan table chunk not marked as table")
			}
			if c.SectionLabel != "Appendix" {
				t.Errorf("orphan table section %q", c.SectionLabel)
			}
		}
	}
	if count != 1 {
		t.Errorf("orphan table appeared %d times", count)
	}
}

func TestProcess_MetadataOnEveryChunk(t *testing.T) {
	chunks := New(WithMaxChars(500)).Process(sampleDoc())

	for _, c := range chunks {
		if c.Title != "Magnesium and sleep" || c.Year != "2020" || c.Journal != "J Sleep Res" {
			t.Errorf("chunk %d missing metadata: %+v", c.Index, c)
		}
		if len(c.Authors) != 1 || c.Authors[0] != "Jane Doe" {
			t.Errorf("chunk %d missing authors", c.Index)
		}
	}
}

func TestProcess_OversizedParagraphSplit(t *testing.T) {
	doc := &domain.ParsedDocument{
		ID: "PMC1",
		Sections: []domain.Section{
			{Label: "Body", Paragraphs: []string{strings.Repeat("x", 1200)}},
		},
	}

	chunks := New(WithMaxChars(500)).Process(doc)
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks from a 1200-char paragraph, got %d", len(chunks))
	}
	for _, c := range chunks {
		if len(c.Text) > 500 {
			t.Errorf("split chunk exceeds limit: %d chars", len(c.Text))
		}
	}
}

func TestProcess_OversizedParagraphSplitsOnRuneBoundary(t *testing.T) {
	// Two-byte runes with an odd byte limit: a byte-offset cut would
	// land mid-rune.
	para := strings.Repeat("µ", 200)
	doc := &domain.ParsedDocument{
		ID: "PMC1",
		Sections: []domain.Section{
			{Label: "Body", Paragraphs: []string{para}},
		},
	}

	chunks := New(WithMaxChars(101)).Process(doc)
	if len(chunks) < 2 {
		t.Fatalf("expected the paragraph to split, got %d chunks", len(chunks))
	}

	var rebuilt strings.Builder
	for _, c := range chunks {
		if !utf8.ValidString(c.Text) {
			t.Errorf("chunk %d is not valid UTF-8: %q", c.Index, c.Text)
		}
		if len(c.Text) > 101 {
			t.Errorf("chunk %d exceeds limit: %d bytes", c.Index, len(c.Text))
		}
		rebuilt.WriteString(c.Text)
	}
	if rebuilt.String() != para {
		t.Error("split chunks do not reassemble the original paragraph")
	}
}

func TestProcess_DuplicateSectionLabels(t *testing.T) {
	// Two sections share a label; the table must appear exactly once.
	doc := &domain.ParsedDocument{
		ID: "PMC2",
		Sections: []domain.Section{
			{Label: "Body", Paragraphs: []string{"first"}},
			{Label: "Body", Paragraphs: []string{"second"}},
		},
		Tables: []domain.Table{
			{Label: "Table 1", Rows: [][]string{{"a"}}, SectionLabel: "Body", Position: 0},
		},
	}

	chunks := New().Process(doc)
	tables := 0
	for _, c := range chunks {
		if c.IsTable {
			tables++
		}
	}
	if tables != 1 {
		t.Errorf("table appeared %d times", tables)
	}
}

func TestProcess_EmptyDocument(t *testing.T) {
	chunks := New().Process(&domain.ParsedDocument{ID: "PMC3"})
	if len(chunks) != 0 {
		t.Errorf("expected no chunks, got %d", len(chunks))
	}
}

func TestRenderTable(t *testing.T) {
	text := renderTable(domain.Table{
		Label:   "Table 1",
		Caption: "Doses",
		Rows:    [][]string{{"Group", "Dose"}, {"A", "320 mg"}},
	})

	want := "Table 1: Doses\nGroup | Dose\nA | 320 mg"
	if text != want {
		t.Errorf("renderTable = %q, want %q", text, want)
	}
}
