package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"
)

// perPage is the page size used when fetching link listings.
const perPage = 50

// HTTPClient is the production implementation of Client.
type HTTPClient struct {
	baseURL string
	token   string
	httpc   *http.Client
	limiter *RateLimiter
	logger  *log.Logger
}

// NewHTTPClient creates a client for the service at baseURL authenticating
// with the given bearer token. If logger is nil, a default logger writing
// to stderr is used.
func NewHTTPClient(baseURL, token string, logger *log.Logger) *HTTPClient {
	if logger == nil {
		logger = log.New(os.Stderr, "[remote] ", log.LstdFlags)
	}
	return &HTTPClient{
		baseURL: baseURL,
		token:   token,
		httpc:   &http.Client{Timeout: 30 * time.Second},
		limiter: NewRateLimiter(),
		logger:  logger,
	}
}

// Limiter exposes the rate limiter fed by this client's responses.
func (c *HTTPClient) Limiter() *RateLimiter {
	return c.limiter
}

// envelope is the success flag carried by every API response.
type envelope struct {
	Result       bool   `json:"result"`
	ErrorMessage string `json:"errorMessage,omitempty"`
}

// do issues one API call and decodes the response body into out (if
// non-nil). Transport failures, auth rejections, and 429s map to the typed
// errors of this package.
func (c *HTTPClient) do(ctx context.Context, method, path string, body, out interface{}) error {
	op := method + " " + path

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode %s request: %w", op, err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("failed to build %s request: %w", op, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return &NetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	c.limiter.Record(resp.Header)

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &NetworkError{Op: op, Err: err}
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return &AuthenticationError{Message: apiMessage(data)}
	case resp.StatusCode == http.StatusForbidden:
		return &AuthorizationError{Message: apiMessage(data)}
	case resp.StatusCode == http.StatusTooManyRequests:
		return &RateLimitError{
			Message:    apiMessage(data),
			RetryAfter: retryAfter(resp.Header),
		}
	case resp.StatusCode >= 500:
		return &NetworkError{Op: op, Err: fmt.Errorf("server returned %s", resp.Status)}
	case resp.StatusCode >= 400:
		return fmt.Errorf("%s failed: %s: %s", op, resp.Status, apiMessage(data))
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", op, err)
	}
	if !env.Result {
		return fmt.Errorf("%s rejected by service: %s", op, env.ErrorMessage)
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("failed to decode %s payload: %w", op, err)
		}
	}
	return nil
}

func apiMessage(data []byte) string {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return ""
	}
	return env.ErrorMessage
}

func retryAfter(h http.Header) time.Duration {
	secs, err := strconv.Atoi(h.Get("Retry-After"))
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

// ListCollections implements Client.ListCollections.
func (c *HTTPClient) ListCollections(ctx context.Context) ([]Collection, error) {
	var resp struct {
		Items []Collection `json:"items"`
	}
	if err := c.do(ctx, http.MethodGet, "/collections", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Items, nil
}

// CreateCollection implements Client.CreateCollection.
func (c *HTTPClient) CreateCollection(ctx context.Context, col Collection) (int64, error) {
	var resp struct {
		Item Collection `json:"item"`
	}
	if err := c.do(ctx, http.MethodPost, "/collection", col, &resp); err != nil {
		return 0, err
	}
	return resp.Item.ID, nil
}

// UpdateCollection implements Client.UpdateCollection.
func (c *HTTPClient) UpdateCollection(ctx context.Context, col Collection) error {
	path := fmt.Sprintf("/collection/%d", col.ID)
	return c.do(ctx, http.MethodPut, path, col, nil)
}

// DeleteCollection implements Client.DeleteCollection.
func (c *HTTPClient) DeleteCollection(ctx context.Context, remoteID int64) error {
	path := fmt.Sprintf("/collection/%d", remoteID)
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

// CollectionLinks implements Client.CollectionLinks. Pages are fetched
// until a short page signals the end.
func (c *HTTPClient) CollectionLinks(ctx context.Context, remoteID int64) ([]Link, error) {
	var all []Link
	for page := 0; ; page++ {
		var resp struct {
			Items []Link `json:"items"`
		}
		path := fmt.Sprintf("/raindrops/%d?perpage=%d&page=%d", remoteID, perPage, page)
		if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
			return nil, err
		}
		all = append(all, resp.Items...)
		if len(resp.Items) < perPage {
			return all, nil
		}
	}
}

// UncategorizedLinks implements Client.UncategorizedLinks.
func (c *HTTPClient) UncategorizedLinks(ctx context.Context) ([]Link, error) {
	return c.CollectionLinks(ctx, UncategorizedID)
}

// ListLinks implements Client.ListLinks.
func (c *HTTPClient) ListLinks(ctx context.Context, limit, offset int) ([]Link, error) {
	var resp struct {
		Items []Link `json:"items"`
	}
	path := fmt.Sprintf("/raindrops/0?perpage=%d&page=%d", limit, offset/max(limit, 1))
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Items, nil
}

// CreateLink implements Client.CreateLink.
func (c *HTTPClient) CreateLink(ctx context.Context, l Link) (int64, error) {
	var resp struct {
		Item Link `json:"item"`
	}
	if err := c.do(ctx, http.MethodPost, "/raindrop", l, &resp); err != nil {
		return 0, err
	}
	return resp.Item.ID, nil
}

// UpdateLink implements Client.UpdateLink.
func (c *HTTPClient) UpdateLink(ctx context.Context, l Link) error {
	path := fmt.Sprintf("/raindrop/%d", l.ID)
	return c.do(ctx, http.MethodPut, path, l, nil)
}

// DeleteLink implements Client.DeleteLink.
func (c *HTTPClient) DeleteLink(ctx context.Context, remoteID int64) error {
	path := fmt.Sprintf("/raindrop/%d", remoteID)
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

// CheckPremiumStatus implements Client.CheckPremiumStatus.
func (c *HTTPClient) CheckPremiumStatus(ctx context.Context) (bool, error) {
	var resp struct {
		User struct {
			Pro bool `json:"pro"`
		} `json:"user"`
	}
	if err := c.do(ctx, http.MethodGet, "/user", nil, &resp); err != nil {
		return false, err
	}
	return resp.User.Pro, nil
}
