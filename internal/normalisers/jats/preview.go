package jats

import (
	"bytes"
	"encoding/xml"

	"github.com/marrow-labs/biblio-cli/internal/core/domain"
)

// Preview scans a raw record for its title and abstract text without a
// full parse. The relevance filter runs on this preview, so rejected
// records never pay the cost of body parsing. The scan is tolerant:
// malformed markup yields empty strings, and the full parse later reports
// the real error for accepted records.
func Preview(rec domain.SourceRecord) (title, abstract string) {
	dec := xml.NewDecoder(bytes.NewReader(rec.XML))
	dec.Strict = false

	for {
		tok, err := dec.Token()
		if err != nil {
			return title, abstract
		}

		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}

		switch start.Name.Local {
		case "article-title":
			if title == "" {
				title = collectText(dec)
			}
		case "abstract":
			if abstract == "" {
				abstract = collectText(dec)
			}
		case "body":
			// Title and abstract live in the front matter.
			return title, abstract
		}

		if title != "" && abstract != "" {
			return title, abstract
		}
	}
}
