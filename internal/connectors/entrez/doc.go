// Package entrez implements the bibliographic source connector for the
// NCBI Entrez E-utilities, fetching open-access articles from the PubMed
// Central archive.
//
// # Endpoints
//
// Two endpoints are used:
//
//   - esearch.fcgi lists article UIDs matching a query, paged with
//     retstart/retmax.
//   - efetch.fcgi returns full JATS XML for a comma-separated UID batch.
//
// # Rate limiting
//
// NCBI permits 3 requests per second without an API key and 10 with one.
// A single token bucket governs every request the connector makes, across
// all concurrent queries, so interleaved topic searches cannot exceed the
// quota. A 429 response additionally sets a shared backoff period.
//
// # Retries
//
// Transient failures (network errors, 429, 5xx) are retried with
// exponential backoff up to a bounded attempt count. Exhausted batches
// surface an error to the caller, who logs the IDs and continues; a failed
// batch never aborts a run.
package entrez
