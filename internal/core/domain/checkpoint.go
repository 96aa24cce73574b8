package domain

// CheckpointVersion is the current checkpoint schema version.
const CheckpointVersion = 1

// Checkpoint is the durable record of fetch progress. It is created empty
// on the first run, rewritten atomically after every committed batch, and
// read at startup so a resumed run fetches strictly the not-yet-seen IDs.
//
// The fetch service is the only writer. Nothing else mutates a checkpoint.
type Checkpoint struct {
	// Version is the schema version for future migrations.
	Version int `json:"v"`

	// ProcessedIDs holds every record ID that has been committed.
	ProcessedIDs map[string]bool `json:"processed_ids"`

	// QueryCursors maps a topic query to the paging offset of the next
	// ID listing request for that query.
	QueryCursors map[string]int `json:"query_cursors"`

	// FailedIDs holds record IDs whose fetch failed after retries. They
	// are not processed, so a later run retries them; the set exists for
	// operator auditing and is cleared per ID on a successful fetch.
	FailedIDs map[string]bool `json:"failed_ids,omitempty"`
}

// NewCheckpoint creates an empty checkpoint.
func NewCheckpoint() *Checkpoint {
	return &Checkpoint{
		Version:      CheckpointVersion,
		ProcessedIDs: make(map[string]bool),
		QueryCursors: make(map[string]int),
		FailedIDs:    make(map[string]bool),
	}
}

// Seen reports whether the ID has already been committed.
func (c *Checkpoint) Seen(id string) bool {
	return c.ProcessedIDs[id]
}

// MarkProcessed records a batch of committed IDs.
func (c *Checkpoint) MarkProcessed(ids ...string) {
	if c.ProcessedIDs == nil {
		c.ProcessedIDs = make(map[string]bool)
	}
	for _, id := range ids {
		c.ProcessedIDs[id] = true
	}
}

// MarkFailed records a batch of IDs whose fetch failed.
func (c *Checkpoint) MarkFailed(ids ...string) {
	if c.FailedIDs == nil {
		c.FailedIDs = make(map[string]bool)
	}
	for _, id := range ids {
		c.FailedIDs[id] = true
	}
}

// ClearFailed removes IDs from the failed set after a successful fetch.
func (c *Checkpoint) ClearFailed(ids ...string) {
	for _, id := range ids {
		delete(c.FailedIDs, id)
	}
}

// Cursor returns the paging offset for a query, zero if never seen.
func (c *Checkpoint) Cursor(query string) int {
	return c.QueryCursors[query]
}

// SetCursor stores the paging offset for a query.
func (c *Checkpoint) SetCursor(query string, offset int) {
	if c.QueryCursors == nil {
		c.QueryCursors = make(map[string]int)
	}
	c.QueryCursors[query] = offset
}

// Normalise initialises nil maps after deserialisation.
func (c *Checkpoint) Normalise() {
	if c.ProcessedIDs == nil {
		c.ProcessedIDs = make(map[string]bool)
	}
	if c.QueryCursors == nil {
		c.QueryCursors = make(map[string]int)
	}
	if c.FailedIDs == nil {
		c.FailedIDs = make(map[string]bool)
	}
	if c.Version == 0 {
		c.Version = CheckpointVersion
	}
}
