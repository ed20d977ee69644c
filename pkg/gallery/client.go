package gallery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/matzehuels/masonry/pkg/cache"
	"github.com/matzehuels/masonry/pkg/errors"
	"github.com/matzehuels/masonry/pkg/httputil"
	"github.com/matzehuels/masonry/pkg/observability"
)

const (
	httpTimeout       = 10 * time.Second
	defaultAttempts   = 3
	defaultRetryDelay = time.Second
	maxResponseBytes  = 8 << 20
)

// Client talks to the gallery REST API. It implements [Source] and
// [Deleter]. Reads are retried with backoff; writes are attempted once.
type Client struct {
	base     *url.URL
	http     *http.Client
	creds    CredentialProvider
	cache    cache.Cache
	keyer    cache.Keyer
	attempts int
	delay    time.Duration
	logger   *log.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the default http.Client (10s timeout).
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.http = hc }
}

// WithCredentials attaches a bearer token provider.
func WithCredentials(p CredentialProvider) ClientOption {
	return func(c *Client) { c.creds = p }
}

// WithCache caches list pages for cache.TTLPage.
func WithCache(ch cache.Cache, keyer cache.Keyer) ClientOption {
	return func(c *Client) {
		c.cache = ch
		if keyer == nil {
			keyer = cache.NewDefaultKeyer()
		}
		c.keyer = keyer
	}
}

// WithRetry sets the number of attempts and the first backoff delay for reads.
func WithRetry(attempts int, delay time.Duration) ClientOption {
	return func(c *Client) {
		c.attempts = attempts
		c.delay = delay
	}
}

// WithClientLogger sets the logger for request diagnostics.
func WithClientLogger(l *log.Logger) ClientOption {
	return func(c *Client) { c.logger = l }
}

// NewClient creates a client for the API rooted at baseURL, for example
// "https://gallery.example.com/api/v1/".
func NewClient(baseURL string, opts ...ClientOption) (*Client, error) {
	if err := errors.ValidateURL(baseURL); err != nil {
		return nil, err
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "parse base URL")
	}
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}

	c := &Client{
		base:     u,
		http:     &http.Client{Timeout: httpTimeout},
		cache:    cache.NewNullCache(),
		keyer:    cache.NewDefaultKeyer(),
		attempts: defaultAttempts,
		delay:    defaultRetryDelay,
		logger:   log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the API root.
func (c *Client) BaseURL() string { return c.base.String() }

// String names the source in logs.
func (c *Client) String() string { return fmt.Sprintf("api(%s)", c.base.Host) }

// =============================================================================
// Files
// =============================================================================

type listResponse struct {
	Results []MediaItem `json:"results"`
	Next    *string     `json:"next"`
}

// FetchInitialPage fetches the first page of files.
func (c *Client) FetchInitialPage(ctx context.Context) (Page, error) {
	return c.fetchList(ctx, c.endpoint("file/"))
}

// FetchPage fetches the page at token, the "next" URL of a previous page.
// Tokens pointing at another host are rejected so the bearer token never
// leaves the API.
func (c *Client) FetchPage(ctx context.Context, token string) (Page, error) {
	ref, err := url.Parse(token)
	if err != nil || token == "" {
		return Page{}, errors.New(errors.ErrCodeInvalidPageToken, "invalid page token %q", token)
	}
	u := c.base.ResolveReference(ref)
	if u.Host != c.base.Host {
		return Page{}, errors.New(errors.ErrCodeInvalidPageToken, "page token points at foreign host %q", u.Host)
	}
	return c.fetchList(ctx, u)
}

func (c *Client) fetchList(ctx context.Context, u *url.URL) (Page, error) {
	var resp listResponse
	if err := c.getCached(ctx, u, &resp); err != nil {
		return Page{}, err
	}
	p := Page{Items: resp.Results}
	if p.Items == nil {
		p.Items = []MediaItem{}
	}
	if resp.Next != nil {
		p.Next = *resp.Next
	}
	c.logger.Debug("fetched page", "url", u.String(), "items", len(p.Items), "next", p.Next != "")
	return p, nil
}

// DeleteFile deletes a file by ID.
func (c *Client) DeleteFile(ctx context.Context, fileID int64) error {
	err := c.do(ctx, http.MethodDelete, c.endpoint(filePath(fileID)), nil, nil)
	if errors.Is(err, errors.ErrCodeNotFound) {
		return errors.Wrap(errors.ErrCodeFileNotFound, err, "file %d not found", fileID)
	}
	if err != nil {
		return err
	}
	c.invalidatePages(ctx)
	return nil
}

// =============================================================================
// Interactions
// =============================================================================

type interactionRequest struct {
	Type    InteractionType `json:"interaction_type"`
	Comment string          `json:"comment,omitempty"`
}

// Like records a like on a file by the authenticated user.
func (c *Client) Like(ctx context.Context, fileID int64) (Interaction, error) {
	return c.interact(ctx, fileID, interactionRequest{Type: InteractionLike})
}

// Comment adds a comment to a file.
func (c *Client) Comment(ctx context.Context, fileID int64, text string) (Interaction, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Interaction{}, errors.New(errors.ErrCodeInvalidInput, "comment cannot be empty")
	}
	return c.interact(ctx, fileID, interactionRequest{Type: InteractionComment, Comment: text})
}

func (c *Client) interact(ctx context.Context, fileID int64, req interactionRequest) (Interaction, error) {
	var out Interaction
	err := c.do(ctx, http.MethodPost, c.endpoint(filePath(fileID)+"interactions/"), req, &out)
	return out, err
}

// Interactions returns the interaction summary of a file.
func (c *Client) Interactions(ctx context.Context, fileID int64) (Interactions, error) {
	var out Interactions
	err := c.get(ctx, c.endpoint(filePath(fileID)+"interactions/"), &out)
	return out, err
}

// =============================================================================
// Uploads
// =============================================================================

// UploadRequest asks for a pre-signed upload URL for one file.
type UploadRequest struct {
	ObjectKey string   `json:"object_key"`
	FileType  FileType `json:"file_type"`
}

// PresignedURL is the server's answer to an UploadRequest.
type PresignedURL struct {
	OriginalObjectKey string `json:"original_object_key"`
	UniqueObjectKey   string `json:"unique_object_key"`
	URL               string `json:"pre_signed_url"`
	ContentType       string `json:"content_type,omitempty"`
}

// PresignUploads requests pre-signed upload URLs, one per request.
func (c *Client) PresignUploads(ctx context.Context, reqs []UploadRequest) ([]PresignedURL, error) {
	if len(reqs) == 0 {
		return []PresignedURL{}, nil
	}
	for _, r := range reqs {
		if err := errors.ValidateObjectKey(r.ObjectKey); err != nil {
			return nil, err
		}
	}
	var out []PresignedURL
	err := c.do(ctx, http.MethodPost, c.endpoint("get-pre-signed-urls/"), reqs, &out)
	return out, err
}

// =============================================================================
// Authentication
// =============================================================================

// TokenPair is a JWT access/refresh pair.
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// ObtainToken exchanges credentials for a token pair.
func (c *Client) ObtainToken(ctx context.Context, username, password string) (TokenPair, error) {
	var out TokenPair
	body := map[string]string{"username": username, "password": password}
	if err := c.send(ctx, http.MethodPost, c.endpoint("token/"), body, &out, false); err != nil {
		return TokenPair{}, err
	}
	if out.Access == "" {
		return TokenPair{}, errors.New(errors.ErrCodeUnauthorized, "token response carried no access token")
	}
	return out, nil
}

// RefreshToken exchanges a refresh token for a new access token.
func (c *Client) RefreshToken(ctx context.Context, refresh string) (string, error) {
	var out TokenPair
	body := map[string]string{"refresh": refresh}
	if err := c.send(ctx, http.MethodPost, c.endpoint("token/refresh/"), body, &out, false); err != nil {
		return "", err
	}
	return out.Access, nil
}

// =============================================================================
// Transport
// =============================================================================

// envelope is the API's standard response wrapper. Endpoints served by
// generic views (lists, tokens) answer without it.
type envelope struct {
	Success *bool           `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (c *Client) endpoint(p string) *url.URL {
	return c.base.ResolveReference(&url.URL{Path: p})
}

func filePath(id int64) string {
	return "file/" + strconv.FormatInt(id, 10) + "/"
}

// pageGenKey holds the current page generation of the API host. Cached
// pages are keyed under it, so replacing it drops every cached page of
// the host, in this process and in others sharing the cache.
func (c *Client) pageGenKey() string {
	return c.keyer.HTTPKey("pagegen", c.base.Host)
}

func (c *Client) pageGeneration(ctx context.Context) string {
	if data, ok, err := c.cache.Get(ctx, c.pageGenKey()); err == nil && ok {
		return string(data)
	}
	return ""
}

// invalidatePages starts a new page generation after a write.
func (c *Client) invalidatePages(ctx context.Context) {
	if err := c.cache.Set(ctx, c.pageGenKey(), []byte(uuid.NewString()), 0); err != nil {
		c.logger.Warn("page cache invalidation failed", "host", c.base.Host, "error", err)
	}
}

func (c *Client) getCached(ctx context.Context, u *url.URL, out any) error {
	key := c.keyer.PageKey(c.base.Host+"@"+c.pageGeneration(ctx), u.String())
	if data, ok, err := c.cache.Get(ctx, key); err == nil && ok {
		if json.Unmarshal(data, out) == nil {
			observability.Cache().OnCacheHit(ctx, "page")
			return nil
		}
	}
	observability.Cache().OnCacheMiss(ctx, "page")

	var raw json.RawMessage
	if err := c.get(ctx, u, &raw); err != nil {
		return err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "decode %s", u.Path)
	}
	if err := c.cache.Set(ctx, key, raw, cache.TTLPage); err != nil {
		c.logger.Debug("page cache write failed", "error", err)
	} else {
		observability.Cache().OnCacheSet(ctx, "page", len(raw))
	}
	return nil
}

func (c *Client) get(ctx context.Context, u *url.URL, out any) error {
	return httputil.Retry(ctx, c.attempts, c.delay, func() error {
		return c.send(ctx, http.MethodGet, u, nil, out, true)
	})
}

func (c *Client) do(ctx context.Context, method string, u *url.URL, body, out any) error {
	return c.send(ctx, method, u, body, out, true)
}

func (c *Client) send(ctx context.Context, method string, u *url.URL, body, out any, auth bool) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(errors.ErrCodeInvalidInput, err, "encode request")
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "build request")
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if auth && c.creds != nil {
		token, err := c.creds.Token(ctx)
		if err != nil {
			return err
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	hooks := observability.HTTP()
	hooks.OnRequest(ctx, method, u.Host, u.Path)
	start := time.Now()

	resp, err := c.http.Do(req)
	if err != nil {
		hooks.OnError(ctx, method, u.Host, u.Path, err)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return errors.Wrap(errors.ErrCodeNetwork, err, "%s %s", method, u.Path)
	}
	defer resp.Body.Close()
	hooks.OnResponse(ctx, method, u.Host, u.Path, resp.StatusCode, time.Since(start))

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return errors.Wrap(errors.ErrCodeNetwork, err, "read %s", u.Path)
	}

	var env envelope
	wrapped := json.Unmarshal(data, &env) == nil && env.Success != nil

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := ""
		if wrapped {
			msg = env.Message
		}
		c.logger.Debug("request failed", "method", method, "path", u.Path, "status", resp.StatusCode)
		return httputil.StatusError(resp.StatusCode, msg)
	}
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if wrapped {
		if !*env.Success {
			return errors.New(errors.ErrCodeInternal, "%s", env.Message)
		}
		data = env.Data
	}
	if err := json.Unmarshal(data, out); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "decode %s %s", method, u.Path)
	}
	return nil
}

var (
	_ Source  = (*Client)(nil)
	_ Deleter = (*Client)(nil)
)
