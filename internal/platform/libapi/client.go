package libapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"textbridge/internal/logger"
	"textbridge/internal/platform/secrets"
)

// Client talks to a content platform's page API. The same client serves
// source reads and destination writes; the library identifier selects the
// host and the signing credentials per call.
type Client struct {
	baseFor func(lib string) string
	secrets *secrets.Provider
	user    string
	httpc   *http.Client
	log     *logger.Logger
}

// New builds a client whose base URL pattern carries one %s for the
// library identifier, e.g. "https://%s.example.edu/@api".
func New(pattern string, provider *secrets.Provider, botUser string) *Client {
	return newClient(func(lib string) string { return fmt.Sprintf(pattern, lib) }, provider, botUser)
}

// NewWithBase builds a client that sends every call to one fixed base
// URL regardless of library.
func NewWithBase(base string, provider *secrets.Provider, botUser string) *Client {
	return newClient(func(string) string { return base }, provider, botUser)
}

func newClient(baseFor func(lib string) string, provider *secrets.Provider, botUser string) *Client {
	return &Client{
		baseFor: baseFor,
		secrets: provider,
		user:    botUser,
		httpc:   &http.Client{Timeout: 30 * time.Second},
		log:     logger.New("LibAPI"),
	}
}

func (c *Client) do(ctx context.Context, lib, method, path string, body io.Reader, contentType string) (*http.Response, error) {
	creds, err := c.secrets.For(lib)
	if err != nil {
		return nil, fmt.Errorf("auth for %s: %w", lib, err)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseFor(lib)+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-Deki-Token", Token(creds, c.user))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(b)))
	}
	return resp, nil
}

func (c *Client) getJSON(ctx context.Context, lib, path string, dest interface{}) error {
	resp, err := c.do(ctx, lib, http.MethodGet, path, nil, "")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return json.NewDecoder(resp.Body).Decode(dest)
}

// pageRef encodes a page path (or "=id" reference) for use in a URL segment.
func pageRef(pathOrID string) string {
	return url.PathEscape(pathOrID)
}

// GetPage fetches a page's identity record by platform path.
func (c *Client) GetPage(ctx context.Context, lib, path string) (Page, error) {
	var p Page
	err := c.getJSON(ctx, lib, "/pages/"+pageRef(path)+"/info", &p)
	return p, err
}

// GetSubpages lists the direct children of a page.
func (c *Client) GetSubpages(ctx context.Context, lib, id string) ([]Page, error) {
	var out subpagesResponse
	if err := c.getJSON(ctx, lib, "/pages/"+pageRef(id)+"/subpages", &out); err != nil {
		return nil, err
	}
	return out.Subpages, nil
}

// GetContents fetches a page's body HTML.
func (c *Client) GetContents(ctx context.Context, lib, id string) (string, error) {
	resp, err := c.do(ctx, lib, http.MethodGet, "/pages/"+pageRef(id)+"/contents", nil, "")
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// GetProperties lists a page's properties in platform order.
func (c *Client) GetProperties(ctx context.Context, lib, id string) ([]Property, error) {
	var out propertiesResponse
	if err := c.getJSON(ctx, lib, "/pages/"+pageRef(id)+"/properties", &out); err != nil {
		return nil, err
	}
	return out.Properties, nil
}

// CreatePage creates a page at the given platform path with the given body.
func (c *Client) CreatePage(ctx context.Context, lib, path, title, contents string) error {
	q := "?title=" + url.QueryEscape(title)
	resp, err := c.do(ctx, lib, http.MethodPost, "/pages/"+pageRef(path)+"/contents"+q, strings.NewReader(contents), "text/html")
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

// SetTags replaces the tag set of the page at path.
func (c *Client) SetTags(ctx context.Context, lib, path string, tags []string) error {
	b, err := json.Marshal(map[string][]string{"tags": tags})
	if err != nil {
		return err
	}
	resp, err := c.do(ctx, lib, http.MethodPut, "/pages/"+pageRef(path)+"/tags", bytes.NewReader(b), "application/json")
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

// SetProperty sets one named property on the page at path.
func (c *Client) SetProperty(ctx context.Context, lib, path, name, value string) error {
	resp, err := c.do(ctx, lib, http.MethodPut, "/pages/"+pageRef(path)+"/properties/"+url.PathEscape(name), strings.NewReader(value), "text/plain")
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

// GetThumbnail reads a page's thumbnail asset.
func (c *Client) GetThumbnail(ctx context.Context, lib, id string) ([]byte, error) {
	resp, err := c.do(ctx, lib, http.MethodGet, "/pages/"+pageRef(id)+"/thumbnail", nil, "")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

// PutThumbnail attaches a thumbnail asset to the page at path.
func (c *Client) PutThumbnail(ctx context.Context, lib, path string, data []byte) error {
	resp, err := c.do(ctx, lib, http.MethodPut, "/pages/"+pageRef(path)+"/thumbnail", bytes.NewReader(data), "image/png")
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}
