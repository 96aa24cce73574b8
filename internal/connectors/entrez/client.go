package entrez

import (
	"bytes"
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/marrow-labs/biblio-cli/internal/core/domain"
	"github.com/marrow-labs/biblio-cli/internal/core/ports/driven"
	"github.com/marrow-labs/biblio-cli/internal/logger"
)

// Ensure Client implements the interface.
var _ driven.BibliographicSource = (*Client)(nil)

// Default configuration values.
const (
	DefaultBaseURL = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils"
	DefaultDB      = "pmc"
	DefaultTool    = "biblio-cli"
	DefaultTimeout = 60 * time.Second

	// DefaultMaxAttempts bounds retries per request.
	DefaultMaxAttempts = 4

	// retryBaseDelay is the first backoff step; it doubles per attempt.
	retryBaseDelay = 500 * time.Millisecond
)

// Config holds configuration for the Entrez client.
type Config struct {
	// BaseURL is the E-utilities root (default: the NCBI production URL).
	BaseURL string

	// DB is the Entrez database to query (default: pmc).
	DB string

	// Email identifies the caller to NCBI, which requires it for bulk use.
	Email string

	// Tool names the calling application (default: biblio-cli).
	Tool string

	// APIKey is the optional long-lived NCBI credential. With a key the
	// request budget rises from 3 to 10 requests per second.
	APIKey string

	// RequestsPerSecond overrides the quota-derived throttle rate.
	RequestsPerSecond float64

	// MaxAttempts bounds retries per request (default 4).
	MaxAttempts int

	// Timeout is the per-request timeout (default 60s).
	Timeout time.Duration
}

// Client is the Entrez bibliographic source connector.
type Client struct {
	baseURL     string
	db          string
	email       string
	tool        string
	apiKey      string
	client      *http.Client
	throttle    *Throttle
	maxAttempts int
}

// NewClient creates an Entrez client.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.DB == "" {
		cfg.DB = DefaultDB
	}
	if cfg.Tool == "" {
		cfg.Tool = DefaultTool
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}

	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		if cfg.APIKey != "" {
			rps = KeyedRate
		} else {
			rps = AnonymousRate
		}
	}

	return &Client{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		db:          cfg.DB,
		email:       cfg.Email,
		tool:        cfg.Tool,
		apiKey:      cfg.APIKey,
		client:      &http.Client{Timeout: cfg.Timeout},
		throttle:    NewThrottle(rps),
		maxAttempts: cfg.MaxAttempts,
	}
}

// SearchIDs lists article UIDs matching a query, one page at a time.
func (c *Client) SearchIDs(ctx context.Context, query string, offset, limit int) ([]string, int, error) {
	if strings.TrimSpace(query) == "" {
		return nil, 0, ErrEmptyQuery
	}

	params := c.commonParams()
	params.Set("term", query)
	params.Set("retstart", strconv.Itoa(offset))
	params.Set("retmax", strconv.Itoa(limit))
	params.Set("retmode", "json")
	params.Set("sort", "relevance")

	body, err := c.get(ctx, c.baseURL+"/esearch.fcgi", params)
	if err != nil {
		return nil, 0, err
	}

	var resp struct {
		ESearchResult struct {
			Count  string   `json:"count"`
			IDList []string `json:"idlist"`
		} `json:"esearchresult"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, 0, fmt.Errorf("entrez: decode esearch response: %w", err)
	}

	total, err := strconv.Atoi(resp.ESearchResult.Count)
	if err != nil {
		return nil, 0, fmt.Errorf("entrez: bad esearch count %q: %w", resp.ESearchResult.Count, err)
	}

	return resp.ESearchResult.IDList, total, nil
}

// FetchRecords retrieves full JATS XML for a UID batch. UIDs the archive
// no longer serves are omitted, not reported as errors.
func (c *Client) FetchRecords(ctx context.Context, ids []string) ([]domain.SourceRecord, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	params := c.commonParams()
	params.Set("id", strings.Join(ids, ","))
	params.Set("rettype", "xml")
	params.Set("retmode", "xml")

	body, err := c.get(ctx, c.baseURL+"/efetch.fcgi", params)
	if err != nil {
		return nil, err
	}

	return splitArticleSet(body, ids, time.Now())
}

// Close releases resources.
func (c *Client) Close() error {
	return nil
}

// commonParams builds the identification parameters NCBI wants on every
// request.
func (c *Client) commonParams() url.Values {
	params := url.Values{}
	params.Set("db", c.db)
	if c.email != "" {
		params.Set("email", c.email)
	}
	if c.tool != "" {
		params.Set("tool", c.tool)
	}
	if c.apiKey != "" {
		params.Set("api_key", c.apiKey)
	}
	return params
}

// get performs a throttled GET with bounded exponential-backoff retries.
func (c *Client) get(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	requestURL := endpoint + "?" + params.Encode()

	var lastErr error
	for attempt := 0; attempt < c.maxAttempts; attempt++ {
		if attempt > 0 {
			delay := retryBaseDelay << (attempt - 1)
			logger.Debug("Entrez retry %d/%d in %s: %v", attempt, c.maxAttempts-1, delay, lastErr)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		if err := c.throttle.Wait(ctx); err != nil {
			return nil, err
		}

		body, err := c.doOnce(ctx, requestURL)
		if err == nil {
			return body, nil
		}
		if !IsRetryable(err) {
			return nil, err
		}
		lastErr = err
	}

	return nil, fmt.Errorf("%w after %d attempts: %w", ErrRetriesExhausted, c.maxAttempts, lastErr)
}

// doOnce performs a single request and classifies the response.
func (c *Client) doOnce(ctx context.Context, requestURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("entrez: create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("entrez: send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		retryAfter := parseRetryAfter(resp.Header.Get("Retry-After"))
		c.throttle.RecordRateLimit(retryAfter)
		return nil, &RateLimitError{RetryAfter: retryAfter}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("entrez: read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		msg := strings.TrimSpace(string(body))
		if len(msg) > 200 {
			msg = msg[:200]
		}
		return nil, &APIError{StatusCode: resp.StatusCode, Message: msg, URL: requestURL}
	}

	return body, nil
}

// parseRetryAfter reads a Retry-After header in seconds, zero if absent.
func parseRetryAfter(header string) time.Duration {
	if header == "" {
		return 0
	}
	seconds, err := strconv.Atoi(header)
	if err != nil || seconds < 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}

// splitArticleSet slices an efetch pmc-articleset response into one raw
// record per article. Records are identified by their embedded PMC
// article-id; an article without one falls back to the requested UID at
// the same position.
func splitArticleSet(data []byte, requested []string, fetchedAt time.Time) ([]domain.SourceRecord, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.Strict = false

	var records []domain.SourceRecord

	for {
		before := dec.InputOffset()
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("entrez: decode efetch response: %w", err)
		}

		start, ok := tok.(xml.StartElement)
		if !ok || start.Name.Local != "article" {
			continue
		}

		// Slice the raw bytes of this article subtree.
		from := bytes.IndexByte(data[before:], '<')
		if from < 0 {
			continue
		}
		from += int(before)
		if err := dec.Skip(); err != nil {
			return nil, fmt.Errorf("entrez: decode efetch response: %w", err)
		}
		raw := data[from:dec.InputOffset()]

		id := extractPMCID(raw)
		if id == "" && len(records) < len(requested) {
			id = requested[len(records)]
		}
		if id == "" {
			logger.Warn("Entrez: article without PMC id in batch, skipped")
			continue
		}

		rec := domain.SourceRecord{
			ID:        id,
			XML:       append([]byte(nil), raw...),
			FetchedAt: fetchedAt,
		}
		records = append(records, rec)
	}

	return records, nil
}

// extractPMCID scans one article subtree for its PMC accession.
func extractPMCID(raw []byte) string {
	dec := xml.NewDecoder(bytes.NewReader(raw))
	dec.Strict = false

	for {
		tok, err := dec.Token()
		if err != nil {
			return ""
		}
		start, ok := tok.(xml.StartElement)
		if !ok || start.Name.Local != "article-id" {
			continue
		}
		for _, a := range start.Attr {
			if a.Name.Local == "pub-id-type" && a.Value == "pmc" {
				var id string
				if err := dec.DecodeElement(&id, &start); err != nil {
					return ""
				}
				return strings.TrimPrefix(strings.TrimSpace(id), "PMC")
			}
		}
	}
}
