package domain

import "time"

// SourceRecord is a raw article as fetched from the bibliographic source.
// It is immutable once stored: re-fetching the same ID is a checkpoint bug,
// not an update.
type SourceRecord struct {
	// ID is the source-assigned identifier (e.g. a PMC accession).
	ID string

	// XML is the raw JATS markup exactly as returned by the source.
	XML []byte

	// FetchedAt is when the record was retrieved.
	FetchedAt time.Time
}

// Section is a contiguous run of narrative content under one heading.
type Section struct {
	// Label is the section heading ("Abstract", "Methods", ...).
	Label string

	// Paragraphs holds the narrative elements in document order.
	Paragraphs []string
}

// Table is an atomic structured unit extracted from a document.
// Tables are recorded separately from narrative content but keep their
// document-order position so chunking can reassemble the original order.
type Table struct {
	// Label is the table designator from the source ("Table 1").
	Label string

	// Caption is the table caption text.
	Caption string

	// Rows holds the cell text, one slice per row.
	Rows [][]string

	// SectionLabel names the section the table appeared in.
	SectionLabel string

	// Position is the document-order index among the owning section's
	// elements, counting paragraphs before the table.
	Position int
}

// DefaultSectionLabel is assigned to content that appears before the first
// heading and to tables outside any titled section.
const DefaultSectionLabel = "Body"

// ParsedDocument is the typed result of parsing one SourceRecord.
// Element order matches source document order.
type ParsedDocument struct {
	// ID is the source record identifier.
	ID string

	// Title is the article title. Empty when the source omits it.
	Title string

	// Authors lists author display names in source order.
	Authors []string

	// Year is the publication year. Empty when unknown.
	Year string

	// Journal is the publishing journal name.
	Journal string

	// Sections holds narrative content in document order.
	Sections []Section

	// Tables holds atomic tables in document order.
	Tables []Table
}

// Chunk is the minimal retrievable unit of a document.
// For any document the Index values form the contiguous range
// [0, TotalChunks) with no gaps or duplicates.
type Chunk struct {
	// DocumentID is the owning document.
	DocumentID string `json:"document_id"`

	// Index is the 0-based position of this chunk within the document.
	Index int `json:"chunk_index"`

	// TotalChunks is the number of chunks the document produced.
	TotalChunks int `json:"total_chunks"`

	// Text is the chunk payload.
	Text string `json:"text"`

	// IsTable is true when the chunk holds exactly one atomic table.
	// A table chunk may exceed the nominal chunk size limit; splitting
	// a table would break its meaning.
	IsTable bool `json:"is_table"`

	// SectionLabel names the enclosing section.
	SectionLabel string `json:"section_label"`

	// Document metadata carried on every chunk so results are
	// self-describing without a second lookup.
	Title   string   `json:"title"`
	Authors []string `json:"authors"`
	Year    string   `json:"year"`
	Journal string   `json:"journal"`
}

// EmbeddedChunk pairs a chunk with its vector.
// The vector dimension is constant for an entire index and the same
// embedding model must be used at index and query time.
type EmbeddedChunk struct {
	Chunk

	// Vector is the fixed-dimension embedding.
	Vector []float32
}

// DocumentChunks is the persisted per-document artifact consumed by the
// indexer: document metadata plus the ordered chunk list.
type DocumentChunks struct {
	// DocumentID is the owning document.
	DocumentID string `json:"document_id"`

	// Title, Authors, Year and Journal mirror the parsed metadata.
	Title   string   `json:"title"`
	Authors []string `json:"authors"`
	Year    string   `json:"year"`
	Journal string   `json:"journal"`

	// Chunks is the ordered chunk list.
	Chunks []Chunk `json:"chunks"`
}
