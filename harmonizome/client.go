// Package harmonizome is a small client for the Harmonizome REST API
// (https://maayanlab.cloud/Harmonizome/documentation).
package harmonizome

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/geometax/refdata/logging"
	"github.com/geometax/refdata/metrics"
	"github.com/juju/ratelimit"
)

// Endpoint labels used in metrics
const (
	EndpointGeneSet = "gene_set"
	EndpointGene    = "gene"
)

// GeneRef is the gene part of a gene set association
type GeneRef struct {
	Symbol string `json:"symbol"`
	Href   string `json:"href"`
}

// Association links a gene to a gene set
type Association struct {
	Gene              GeneRef  `json:"gene"`
	StandardizedValue *float64 `json:"standardizedValue,omitempty"`
	ThresholdValue    *float64 `json:"thresholdValue,omitempty"`
}

type geneSetResponse struct {
	Name         string         `json:"name"`
	Associations *[]Association `json:"associations"`
}

// ErrNoAssociations is returned when a gene set document lacks an
// associations list. An empty list is valid.
var ErrNoAssociations = errors.New("gene set response has no associations")

// Gene is the subset of the gene detail document the installer uses
type Gene struct {
	Symbol      string   `json:"symbol"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Synonyms    []string `json:"synonyms"`
}

// StatusError is returned for any non-2xx API response
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("harmonizome request %s failed with status %d", e.URL, e.StatusCode)
}

// Client talks to one Harmonizome host
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *ratelimit.Bucket
	userAgent  string
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the default http.Client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithRateLimit caps outgoing requests per second; zero or less disables it
func WithRateLimit(perSecond float64) Option {
	return func(c *Client) {
		if perSecond <= 0 {
			c.limiter = nil
			return
		}
		capacity := int64(math.Max(1, math.Ceil(perSecond)))
		c.limiter = ratelimit.NewBucketWithRate(perSecond, capacity)
	}
}

// WithUserAgent sets the User-Agent header of every request
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// NewClient creates a client for baseURL, e.g. https://maayanlab.cloud/Harmonizome
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GeneSetURL builds the gene set endpoint, spaces encoded as '+'
func (c *Client) GeneSetURL(name, library string) string {
	return c.baseURL + "/api/1.0/gene_set/" + url.QueryEscape(name) + "/" + url.QueryEscape(library)
}

// GeneURL resolves a gene href such as /api/1.0/gene/SMARCA4 against the host
func (c *Client) GeneURL(href string) string {
	if !strings.HasPrefix(href, "/") {
		href = "/" + href
	}
	return c.baseURL + href
}

// GeneSet lists the associations of a gene set in API order
func (c *Client) GeneSet(ctx context.Context, name, library string) ([]Association, error) {
	var resp geneSetResponse
	rawURL := c.GeneSetURL(name, library)
	if err := c.getJSON(ctx, EndpointGeneSet, rawURL, &resp); err != nil {
		return nil, err
	}
	if resp.Associations == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoAssociations, rawURL)
	}
	return *resp.Associations, nil
}

// Gene fetches the detail document behind an association's href
func (c *Client) Gene(ctx context.Context, href string) (Gene, error) {
	var gene Gene
	if err := c.getJSON(ctx, EndpointGene, c.GeneURL(href), &gene); err != nil {
		return Gene{}, err
	}
	return gene, nil
}

// wait blocks until the limiter grants a token or ctx is done
func (c *Client) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	delay := c.limiter.Take(1)
	if delay <= 0 {
		return nil
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (c *Client) getJSON(ctx context.Context, endpoint, rawURL string, v any) error {
	if err := c.wait(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request for %s: %w", rawURL, err)
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	response, err := c.httpClient.Do(req)
	if err != nil {
		metrics.APIRequestsTotal.WithLabelValues(endpoint, "error").Inc()
		return fmt.Errorf("request to %s failed: %w", rawURL, err)
	}
	defer func() {
		if err := response.Body.Close(); err != nil {
			logging.Warn("Failed to close response body", "error", err)
		}
	}()

	metrics.APIRequestsTotal.WithLabelValues(endpoint, strconv.Itoa(response.StatusCode)).Inc()

	if response.StatusCode < 200 || response.StatusCode > 299 {
		return &StatusError{URL: rawURL, StatusCode: response.StatusCode}
	}

	if err := json.NewDecoder(response.Body).Decode(v); err != nil {
		return fmt.Errorf("failed to decode %s response from %s: %w", endpoint, rawURL, err)
	}

	logging.Debug("Harmonizome request completed", "endpoint", endpoint, "url", rawURL)
	return nil
}
