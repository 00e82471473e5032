package api

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/MadhavanR1204/toonzy/pkg/models"
)

// ErrNoCacheDir is returned by Cached when the client has no cache directory
var ErrNoCacheDir = errors.New("no cache directory configured")

// Client downloads remote chapter documents and catalogs
type Client struct {
	token      string
	cacheDir   string
	httpClient *http.Client
}

// NewClient creates a new API client. Downloads made through Cached are
// kept in cacheDir.
func NewClient(token, cacheDir string) *Client {
	return &Client{
		token:    token,
		cacheDir: cacheDir,
		httpClient: &http.Client{
			Timeout: 5 * time.Minute,
		},
	}
}

// SetToken updates the authentication token
func (c *Client) SetToken(token string) {
	c.token = token
}

// request makes a GET request with the bearer token, if any
func (c *Client) request(ctx context.Context, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return c.httpClient.Do(req)
}

// checkResponse turns an error status into an error, using the server's
// JSON error message when it sent one. The body is closed on error.
func checkResponse(resp *http.Response) error {
	if resp.StatusCode < 400 {
		return nil
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	var errResp models.ErrorResponse
	if err := json.Unmarshal(body, &errResp); err != nil || errResp.Error == "" {
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body))
	}
	return fmt.Errorf("HTTP %d: %s", resp.StatusCode, errResp.Error)
}

// parseResponse reads and unmarshals a JSON response body
func parseResponse[T any](resp *http.Response) (T, error) {
	var result T
	if err := checkResponse(resp); err != nil {
		return result, err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return result, fmt.Errorf("failed to decode response: %w", err)
	}
	return result, nil
}

// Catalog fetches a chapter list. Relative chapter sources are resolved
// against the catalog URL.
func (c *Client) Catalog(ctx context.Context, rawURL string) (*models.Catalog, error) {
	resp, err := c.request(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	catalog, err := parseResponse[*models.Catalog](resp)
	if err != nil {
		return nil, err
	}
	if catalog == nil {
		return nil, errors.New("empty catalog")
	}

	base, err := url.Parse(rawURL)
	if err != nil {
		return nil, err
	}
	for i, ch := range catalog.Chapters {
		if ch.Index == 0 {
			catalog.Chapters[i].Index = i + 1
		}
		if ch.Source == "" {
			continue
		}
		ref, err := url.Parse(ch.Source)
		if err != nil {
			return nil, fmt.Errorf("chapter %d: invalid source: %w", i+1, err)
		}
		catalog.Chapters[i].Source = base.ResolveReference(ref).String()
	}
	return catalog, nil
}

// Download opens a remote document. The caller must close the body. size
// is -1 when the server does not report it.
func (c *Client) Download(ctx context.Context, rawURL string) (body io.ReadCloser, size int64, err error) {
	resp, err := c.request(ctx, rawURL)
	if err != nil {
		return nil, 0, err
	}
	if err := checkResponse(resp); err != nil {
		return nil, 0, err
	}
	return resp.Body, resp.ContentLength, nil
}

// FetchDocument copies a remote document into dst
func (c *Client) FetchDocument(ctx context.Context, rawURL string, dst io.Writer) (int64, error) {
	body, _, err := c.Download(ctx, rawURL)
	if err != nil {
		return 0, err
	}
	defer body.Close()
	return io.Copy(dst, body)
}

// CachePath returns the file a remote document is cached in
func (c *Client) CachePath(rawURL string) string {
	sum := sha256.Sum256([]byte(rawURL))
	name := hex.EncodeToString(sum[:12])

	ext := ""
	if u, err := url.Parse(rawURL); err == nil {
		ext = path.Ext(u.Path)
	}
	return filepath.Join(c.cacheDir, "documents", name+ext)
}

// IsCached reports whether a remote document has already been downloaded
func (c *Client) IsCached(rawURL string) bool {
	if c.cacheDir == "" {
		return false
	}
	info, err := os.Stat(c.CachePath(rawURL))
	return err == nil && info.Size() > 0
}

// Cached downloads a remote document into the cache directory once and
// returns the local file, reusing it afterwards.
func (c *Client) Cached(ctx context.Context, rawURL string) (string, error) {
	if c.cacheDir == "" {
		return "", ErrNoCacheDir
	}
	if c.IsCached(rawURL) {
		return c.CachePath(rawURL), nil
	}
	return c.Store(rawURL, func(w io.Writer) error {
		_, err := c.FetchDocument(ctx, rawURL, w)
		return err
	})
}

// writeFileAtomic writes through a temp file so an interrupted download never
// looks cached
func writeFileAtomic(dst string, write func(io.Writer) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(dst), ".download-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := write(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), dst)
}

// Store saves a downloaded document into the cache under rawURL
func (c *Client) Store(rawURL string, write func(io.Writer) error) (string, error) {
	if c.cacheDir == "" {
		return "", ErrNoCacheDir
	}
	dst := c.CachePath(rawURL)
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return "", err
	}
	if err := writeFileAtomic(dst, write); err != nil {
		return "", err
	}
	return dst, nil
}
