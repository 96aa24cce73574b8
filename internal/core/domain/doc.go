// Package domain holds the core types of the biblio pipeline: raw source
// records, parsed documents, chunks, checkpoints and retrieval results,
// together with the error taxonomy shared by every stage.
//
// The package has no dependencies outside the standard library. Services
// and adapters depend on it; it depends on nothing.
package domain
