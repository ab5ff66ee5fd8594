package dexscreener

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

const DefaultHost = "https://api.dexscreener.com/latest"

type Client struct {
	host       string
	httpClient *http.Client
}

type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("dexscreener API error (%d): %s", e.Status, e.Body)
}

func NewClient(httpClient *http.Client, host string) *Client {
	if host == "" {
		host = DefaultHost
	}
	host = strings.TrimRight(host, "/")
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		host:       host,
		httpClient: httpClient,
	}
}

func (c *Client) doRequest(ctx context.Context, path string, query url.Values) ([]byte, error) {
	fullURL := c.host + path
	if len(query) > 0 {
		fullURL = fullURL + "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{Status: resp.StatusCode, Body: string(body)}
	}
	return body, nil
}

// PairsByChain returns the pairs listed on the chain-wide endpoint.
func (c *Client) PairsByChain(ctx context.Context, chainID string) ([]Pair, error) {
	if chainID == "" {
		return nil, fmt.Errorf("chain_id is required")
	}
	body, err := c.doRequest(ctx, "/dex/pairs/"+url.PathEscape(chainID), nil)
	if err != nil {
		return nil, err
	}
	return parsePairs(body)
}

// Search returns pairs matching a free-text query across all chains.
func (c *Client) Search(ctx context.Context, q string) ([]Pair, error) {
	if q == "" {
		return nil, fmt.Errorf("query is required")
	}
	query := url.Values{}
	query.Set("q", q)
	body, err := c.doRequest(ctx, "/dex/search", query)
	if err != nil {
		return nil, err
	}
	return parsePairs(body)
}
