// FILE: pkg/axiom/client.go
// Package axiom is a typed client for the Axiom ingest/query API, covering
// the three operations this service needs: batch ingestion, APL queries with
// cursor pagination, and a lightweight dataset reachability probe.
package axiom

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Accepted deployment regions and their API base URLs.
const (
	RegionUS = "us"
	RegionEU = "eu"
)

var regionBaseURLs = map[string]string{
	RegionUS: "https://api.axiom.co",
	RegionEU: "https://api.eu.axiom.co",
}

const defaultTimeout = 10 * time.Second

// Config carries the connection settings for the Axiom API.
// BaseURL overrides the region-derived URL (self-hosted deployments, tests).
type Config struct {
	Token   string
	Dataset string
	Region  string
	Timeout time.Duration
	BaseURL string
}

// Client talks to a single Axiom dataset.
type Client struct {
	baseURL    string
	token      string
	dataset    string
	httpClient *http.Client
}

// NewClient validates the config and builds a client. Token and dataset are
// required; region must be one of the accepted values unless BaseURL is set.
func NewClient(cfg Config) (*Client, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("axiom: API token is required")
	}
	if cfg.Dataset == "" {
		return nil, fmt.Errorf("axiom: dataset name is required")
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		url, ok := regionBaseURLs[cfg.Region]
		if !ok {
			return nil, fmt.Errorf("axiom: invalid region %q (accepted: %s, %s)", cfg.Region, RegionUS, RegionEU)
		}
		baseURL = url
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Client{
		baseURL:    baseURL,
		token:      cfg.Token,
		dataset:    cfg.Dataset,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

// Dataset returns the dataset this client writes to.
func (c *Client) Dataset() string {
	return c.dataset
}

// Event is one JSON-like record. The backend auto-indexes the _time field.
type Event map[string]interface{}

// IngestFailure captures one rejected event.
type IngestFailure struct {
	Timestamp time.Time `json:"timestamp"`
	Error     string    `json:"error"`
}

// IngestStatus is the outcome of an ingest call.
type IngestStatus struct {
	Ingested int64            `json:"ingested"`
	Failed   int64            `json:"failed"`
	Failures []*IngestFailure `json:"failures"`
}

// QueryMatch is one raw record returned by a query.
type QueryMatch struct {
	Time time.Time              `json:"_time"`
	Data map[string]interface{} `json:"data"`
}

// QueryResult is one page of query matches. A non-empty Cursor means more
// results exist beyond this page.
type QueryResult struct {
	Matches []*QueryMatch `json:"matches"`
	Cursor  string        `json:"cursor,omitempty"`
}

type queryRequest struct {
	APL       string `json:"apl"`
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
	Cursor    string `json:"cursor,omitempty"`
}

type datasetResponse struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Ingest sends a batch of events to the dataset. It never returns an error:
// logging must not disrupt the caller, so transport and backend failures
// degrade to a status with every event counted as failed.
func (c *Client) Ingest(ctx context.Context, events []Event) *IngestStatus {
	if len(events) == 0 {
		return &IngestStatus{}
	}

	body, err := json.Marshal(events)
	if err != nil {
		return ingestFailure(len(events), err)
	}

	url := fmt.Sprintf("%s/v1/datasets/%s/ingest", c.baseURL, c.dataset)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return ingestFailure(len(events), err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return ingestFailure(len(events), err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return ingestFailure(len(events), err)
	}

	if resp.StatusCode != http.StatusOK {
		return ingestFailure(len(events), fmt.Errorf("ingest failed: status %d: %s", resp.StatusCode, string(respBody)))
	}

	var status IngestStatus
	if err := json.Unmarshal(respBody, &status); err != nil {
		return ingestFailure(len(events), err)
	}

	return &status
}

// Query runs an APL expression over the time range and returns one page of
// matches. Cursor continues a previous page; pass "" for the first page.
// Unlike Ingest, errors propagate: callers must be able to tell an empty
// result from a broken query.
func (c *Client) Query(ctx context.Context, apl string, startTime, endTime time.Time, cursor string) (*QueryResult, error) {
	reqBody := queryRequest{
		APL:       apl,
		StartTime: startTime.UTC().Format(time.RFC3339Nano),
		EndTime:   endTime.UTC().Format(time.RFC3339Nano),
		Cursor:    cursor,
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal query request: %w", err)
	}

	url := fmt.Sprintf("%s/v1/datasets/_apl?format=legacy", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build query request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("query request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read query response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("query failed: status %d: %s", resp.StatusCode, string(respBody))
	}

	var result QueryResult
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("decode query response: %w", err)
	}

	return &result, nil
}

// CheckHealth probes the dataset. True only when the API answers 200 and the
// payload names the dataset; every failure mode reads as unreachable.
func (c *Client) CheckHealth(ctx context.Context) bool {
	url := fmt.Sprintf("%s/v1/datasets/%s", c.baseURL, c.dataset)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false
	}

	var ds datasetResponse
	if err := json.NewDecoder(resp.Body).Decode(&ds); err != nil {
		return false
	}

	return ds.Name != ""
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")
}

func ingestFailure(count int, err error) *IngestStatus {
	return &IngestStatus{
		Failed: int64(count),
		Failures: []*IngestFailure{
			{Timestamp: time.Now().UTC(), Error: err.Error()},
		},
	}
}
