// Package jats converts JATS XML articles into typed parsed documents.
//
// JATS (Journal Article Tag Suite) is the archival markup used by PubMed
// Central. The normaliser extracts front-matter metadata, walks the body
// in document order using heading elements to open sections, and lifts
// tables out as atomic structured units. Reference lists, figures and
// other non-narrative noise are discarded.
package jats

import (
	"bytes"
	"encoding/xml"
	"io"
	"strings"

	"github.com/marrow-labs/biblio-cli/internal/core/domain"
)

// maxAuthors bounds the author list; beyond this the list adds noise
// without aiding retrieval.
const maxAuthors = 10

// Normaliser parses JATS XML into domain.ParsedDocument.
// It is stateless and safe for concurrent use.
type Normaliser struct{}

// New creates a JATS normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// Parse converts one raw record into a parsed document. Failures return a
// *domain.ParseError for that document only; the caller logs and continues.
func (n *Normaliser) Parse(rec domain.SourceRecord) (*domain.ParsedDocument, error) {
	doc := &domain.ParsedDocument{ID: rec.ID}

	dec := xml.NewDecoder(bytes.NewReader(rec.XML))
	dec.Strict = false

	var (
		sawArticle bool
		current    *domain.Section
		position   int
	)

	// openSection flushes the current section (if non-empty) and starts
	// a new one with the given label.
	openSection := func(label string) {
		if current != nil && len(current.Paragraphs) > 0 {
			doc.Sections = append(doc.Sections, *current)
		}
		current = &domain.Section{Label: label}
	}

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &domain.ParseError{RecordID: rec.ID, Reason: "malformed XML", Err: err}
		}

		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}

		switch start.Name.Local {
		case "article":
			sawArticle = true

		case "front":
			if err := n.parseFront(dec, doc); err != nil {
				return nil, &domain.ParseError{RecordID: rec.ID, Reason: "malformed front matter", Err: err}
			}

		case "abstract":
			text := collectText(dec)
			if text != "" {
				doc.Sections = append(doc.Sections, domain.Section{
					Label:      "Abstract",
					Paragraphs: []string{text},
				})
			}

		case "body":
			current = &domain.Section{Label: domain.DefaultSectionLabel}
			position = 0

		case "title":
			// A heading opens a new section; everything that follows
			// belongs to it until the next heading.
			if current != nil {
				label := collectText(dec)
				if label == "" {
					label = domain.DefaultSectionLabel
				}
				openSection(label)
				position = 0
			} else {
				dec.Skip() //nolint:errcheck
			}

		case "p":
			if current != nil {
				if text := collectText(dec); text != "" {
					current.Paragraphs = append(current.Paragraphs, text)
					position++
				}
			}

		case "table-wrap":
			if current == nil {
				dec.Skip() //nolint:errcheck
				continue
			}
			table, err := parseTableWrap(dec)
			if err != nil {
				return nil, &domain.ParseError{RecordID: rec.ID, Reason: "malformed table", Err: err}
			}
			table.SectionLabel = current.Label
			table.Position = position
			doc.Tables = append(doc.Tables, table)

		case "fig", "ref-list", "ack", "fn-group", "app-group":
			// Non-narrative noise.
			dec.Skip() //nolint:errcheck
		}
	}

	if !sawArticle {
		return nil, &domain.ParseError{RecordID: rec.ID, Reason: "no article root element"}
	}

	// Flush the open section.
	if current != nil && len(current.Paragraphs) > 0 {
		doc.Sections = append(doc.Sections, *current)
	}

	if len(doc.Sections) == 0 {
		return nil, &domain.ParseError{RecordID: rec.ID, Reason: "document produced zero sections"}
	}

	return doc, nil
}

// parseFront extracts metadata from the front-matter subtree. Missing
// optional fields stay empty; they never abort parsing.
func (n *Normaliser) parseFront(dec *xml.Decoder, doc *domain.ParsedDocument) error {
	var (
		depth      = 1
		inAuthor   bool
		surname    string
		givenNames string
		pubType    string
		yearByType = map[string]string{}
		yearOrder  []string
	)

	for depth > 0 {
		tok, err := dec.Token()
		if err != nil {
			return err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			switch t.Name.Local {
			case "article-title":
				if doc.Title == "" {
					doc.Title = collectText(dec)
				} else {
					dec.Skip() //nolint:errcheck
				}
				depth--
			case "journal-title":
				if doc.Journal == "" {
					doc.Journal = collectText(dec)
				} else {
					dec.Skip() //nolint:errcheck
				}
				depth--
			case "abstract":
				// The abstract is front matter but reads as the first
				// narrative section of the document.
				if text := collectText(dec); text != "" {
					doc.Sections = append(doc.Sections, domain.Section{
						Label:      "Abstract",
						Paragraphs: []string{text},
					})
				}
				depth--
			case "article-id":
				if attr(t, "pub-id-type") == "pmc" {
					if id := collectText(dec); id != "" {
						doc.ID = "PMC" + strings.TrimPrefix(id, "PMC")
					}
					depth--
				}
			case "contrib":
				inAuthor = attr(t, "contrib-type") == "author"
				surname, givenNames = "", ""
			case "surname":
				if inAuthor {
					surname = collectText(dec)
					depth--
				}
			case "given-names":
				if inAuthor {
					givenNames = collectText(dec)
					depth--
				}
			case "pub-date":
				pubType = attr(t, "pub-type")
			case "year":
				year := collectText(dec)
				depth--
				if _, seen := yearByType[pubType]; !seen && year != "" {
					yearByType[pubType] = year
					yearOrder = append(yearOrder, pubType)
				}
			}

		case xml.EndElement:
			depth--
			switch t.Name.Local {
			case "contrib":
				if inAuthor && surname != "" && len(doc.Authors) < maxAuthors {
					name := strings.TrimSpace(givenNames + " " + surname)
					doc.Authors = append(doc.Authors, name)
				}
				inAuthor = false
			case "pub-date":
				pubType = ""
			}
		}
	}

	// Electronic publication year wins; otherwise first year seen.
	if year, ok := yearByType["epub"]; ok {
		doc.Year = year
	} else if len(yearOrder) > 0 {
		doc.Year = yearByType[yearOrder[0]]
	}

	return nil
}

// parseTableWrap consumes a table-wrap subtree and returns the table.
func parseTableWrap(dec *xml.Decoder) (domain.Table, error) {
	var (
		table domain.Table
		depth = 1
		row   []string
		inRow bool
	)

	for depth > 0 {
		tok, err := dec.Token()
		if err != nil {
			return table, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			switch t.Name.Local {
			case "label":
				table.Label = collectText(dec)
				depth--
			case "caption":
				table.Caption = collectText(dec)
				depth--
			case "tr":
				inRow = true
				row = nil
			case "td", "th":
				if inRow {
					row = append(row, collectText(dec))
					depth--
				}
			}

		case xml.EndElement:
			depth--
			if t.Name.Local == "tr" && inRow {
				table.Rows = append(table.Rows, row)
				inRow = false
			}
		}
	}

	return table, nil
}

// collectText consumes the element's subtree and returns its flattened
// text with whitespace normalised, the way inline markup (italic, bold,
// xref) should read as plain narrative.
func collectText(dec *xml.Decoder) string {
	var (
		sb    strings.Builder
		depth = 1
	)

	for depth > 0 {
		tok, err := dec.Token()
		if err != nil {
			break
		}
		switch t := tok.(type) {
		case xml.StartElement:
			depth++
		case xml.EndElement:
			depth--
		case xml.CharData:
			sb.Write(t)
			sb.WriteByte(' ')
		}
	}

	return strings.Join(strings.Fields(sb.String()), " ")
}

// attr returns the value of the named attribute, empty if absent.
func attr(el xml.StartElement, name string) string {
	for _, a := range el.Attr {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}
