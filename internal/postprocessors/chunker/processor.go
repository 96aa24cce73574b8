// Package chunker splits parsed documents into ordered, retrieval-sized
// chunks. Narrative content is accumulated per section and flushed at
// section boundaries or when the size limit would be exceeded; tables are
// never merged into narrative and always become their own chunk.
package chunker

import (
	"strings"
	"unicode/utf8"

	"github.com/marrow-labs/biblio-cli/internal/core/domain"
)

// DefaultMaxChunkChars is the default chunk size limit in characters.
const DefaultMaxChunkChars = 2048

// Processor converts a parsed document into chunks.
type Processor struct {
	maxChars int
}

// Option configures the chunker processor.
type Option func(*Processor)

// WithMaxChars sets the chunk size limit in characters.
func WithMaxChars(n int) Option {
	return func(p *Processor) {
		if n > 0 {
			p.maxChars = n
		}
	}
}

// New creates a chunker with the given options.
func New(opts ...Option) *Processor {
	p := &Processor{maxChars: DefaultMaxChunkChars}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Process splits the document into chunks. Output order matches source
// document order: sections in sequence, tables at their recorded position
// within their section. Every chunk is stamped with a contiguous 0-based
// index and the document's final chunk count.
func (p *Processor) Process(doc *domain.ParsedDocument) []domain.Chunk {
	var chunks []domain.Chunk

	appendChunk := func(text, section string, isTable bool) {
		chunks = append(chunks, domain.Chunk{
			DocumentID:   doc.ID,
			Index:        len(chunks),
			Text:         text,
			IsTable:      isTable,
			SectionLabel: section,
			Title:        doc.Title,
			Authors:      doc.Authors,
			Year:         doc.Year,
			Journal:      doc.Journal,
		})
	}

	// Bucket tables by section label; each bucket is consumed by the
	// first section walked with that label so every table appears in
	// exactly one chunk.
	tablesBySection := make(map[string][]domain.Table)
	for _, t := range doc.Tables {
		tablesBySection[t.SectionLabel] = append(tablesBySection[t.SectionLabel], t)
	}

	for _, section := range doc.Sections {
		tables := tablesBySection[section.Label]
		delete(tablesBySection, section.Label)

		var buf strings.Builder

		flush := func() {
			if buf.Len() > 0 {
				appendChunk(buf.String(), section.Label, false)
				buf.Reset()
			}
		}

		emitTablesBefore := func(position int) {
			for len(tables) > 0 && tables[0].Position <= position {
				// A table interrupts the narrative buffer: flush
				// first so document order is preserved, then emit
				// the table whole. A table chunk may exceed the
				// size limit; truncating a table breaks its meaning.
				flush()
				appendChunk(renderTable(tables[0]), section.Label, true)
				tables = tables[1:]
			}
		}

		for i, para := range section.Paragraphs {
			// A table with position i was recorded after i paragraphs,
			// so it precedes this one.
			emitTablesBefore(i)

			// Flush when appending would exceed the limit.
			if buf.Len() > 0 && buf.Len()+len("\n\n")+len(para) > p.maxChars {
				flush()
			}

			// An oversized single paragraph is split hard so only
			// table chunks ever exceed the limit.
			for len(para) > p.maxChars {
				cut := splitIndex(para, p.maxChars)
				appendChunk(para[:cut], section.Label, false)
				para = para[cut:]
			}

			if buf.Len() > 0 {
				buf.WriteString("\n\n")
			}
			buf.WriteString(para)
		}

		flush()
		emitTablesBefore(len(section.Paragraphs))
	}

	// Tables whose section produced no narrative still must appear
	// exactly once. Iterate doc.Tables to keep document order.
	for _, t := range doc.Tables {
		if remaining, ok := tablesBySection[t.SectionLabel]; ok && len(remaining) > 0 {
			appendChunk(renderTable(t), t.SectionLabel, true)
		}
	}

	for i := range chunks {
		chunks[i].TotalChunks = len(chunks)
	}
	return chunks
}

// splitIndex returns the largest cut point <= max that does not land
// inside a multi-byte rune.
func splitIndex(s string, max int) int {
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	if cut == 0 {
		// Not valid UTF-8 at all; a byte cut is the only option left.
		return max
	}
	return cut
}

// renderTable flattens a table into retrievable text: label and caption
// first, then one line per row with cells separated by " | ".
func renderTable(t domain.Table) string {
	var sb strings.Builder

	switch {
	case t.Label != "" && t.Caption != "":
		sb.WriteString(t.Label + ": " + t.Caption)
	case t.Label != "":
		sb.WriteString(t.Label)
	case t.Caption != "":
		sb.WriteString(t.Caption)
	}

	for _, row := range t.Rows {
		if sb.Len() > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(strings.Join(row, " | "))
	}
	return sb.String()
}
