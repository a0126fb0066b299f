package wikiapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/yungbote/kinview-backend/internal/loader"
	"github.com/yungbote/kinview-backend/internal/person"
)

type Options struct {
	BaseURL string
	// AppID identifies this application to the API.
	AppID   string
	Timeout time.Duration

	HTTPClient *http.Client
}

// Client calls the getPerson action of a WikiTree-style genealogy API.
type Client struct {
	baseURL    string
	appID      string
	timeout    time.Duration
	httpClient *http.Client
}

var _ loader.Loader = (*Client)(nil)

func New(opts Options) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("wikiapi: base url required")
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("wikiapi: invalid base url: %w", err)
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   10 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			ForceAttemptHTTP2:     true,
			MaxIdleConns:          100,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
		}}
	}
	return &Client{
		baseURL:    baseURL,
		appID:      strings.TrimSpace(opts.AppID),
		timeout:    timeout,
		httpClient: hc,
	}, nil
}

type getPersonResult struct {
	Key    string          `json:"user_name"`
	Status json.RawMessage `json:"status"`
	Person *person.Raw     `json:"person"`
}

func (c *Client) Get(ctx context.Context, id person.ID, relations person.Richness) (*person.Raw, error) {
	if id == "" {
		return nil, errors.New("wikiapi: empty person id")
	}
	q := url.Values{}
	q.Set("action", "getPerson")
	q.Set("key", id.String())
	q.Set("fields", strings.Join(loader.Fields(relations), ","))
	if c.appID != "" {
		q.Set("appId", c.appID)
	}

	var results []getPersonResult
	if err := c.doJSON(ctx, q, &results); err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, &APIError{Key: id.String(), Status: "empty response"}
	}
	res := results[0]
	if status := statusText(res.Status); status != "" {
		return nil, &APIError{Key: id.String(), Status: status}
	}
	if res.Person == nil || res.Person.ID == "" {
		return nil, fmt.Errorf("wikiapi: %s: %w", id, loader.ErrNotFound)
	}
	return res.Person, nil
}

// statusText returns "" for a success status (0, "0", "" or absent).
func statusText(raw json.RawMessage) string {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" || s == "0" {
		return ""
	}
	var str string
	if err := json.Unmarshal(raw, &str); err == nil {
		str = strings.TrimSpace(str)
		if str == "0" {
			return ""
		}
		return str
	}
	return s
}

func (c *Client) doJSON(ctx context.Context, q url.Values, out any) error {
	ctx2, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx2, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("wikiapi: request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return fmt.Errorf("wikiapi: read body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return parseHTTPError(resp.StatusCode, raw)
	}
	if err := json.NewDecoder(bytes.NewReader(raw)).Decode(out); err != nil {
		return fmt.Errorf("wikiapi: decode: %w", err)
	}
	return nil
}
