package wordpress

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"

	"newswire/internal/config"
	"newswire/internal/services"
)

const defaultTimeout = 30 * time.Second

// Post is the payload for creating or updating a remote post.
type Post struct {
	// RemoteID is the post ID on the site. Zero means create.
	RemoteID   int64
	Title      string
	Content    string
	Excerpt    string
	Categories []int
	Tags       []int
}

// PostResult identifies the remote post after an upsert.
type PostResult struct {
	ID   int64
	Link string
}

// Client talks to a WordPress site over the REST v2 API with application
// password auth. Mutating calls are throttled so bursts of publishes do not
// trip the site's rate limiting.
type Client struct {
	http     *resty.Client
	throttle time.Duration

	mu       sync.Mutex
	lastCall time.Time
}

// New builds a client from configuration, resolving credentials from the
// environment variables it names.
func New(cfg config.WordPress) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, services.Wrap(services.ErrConfiguration, "publish", "init", "wordpress base_url is empty", nil)
	}
	username := strings.TrimSpace(os.Getenv(cfg.UsernameEnv))
	password := strings.TrimSpace(os.Getenv(cfg.PasswordEnv))
	if username == "" || password == "" {
		return nil, services.Wrap(
			services.ErrConfiguration,
			"publish",
			"init",
			fmt.Sprintf("wordpress credentials missing (%s, %s)", cfg.UsernameEnv, cfg.PasswordEnv),
			nil,
		)
	}
	timeout := defaultTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	return &Client{
		http: resty.New().
			SetBaseURL(base + "/wp-json/wp/v2").
			SetTimeout(timeout).
			SetBasicAuth(username, password).
			SetHeader("Accept", "application/json"),
		throttle: time.Duration(cfg.ThrottleSeconds * float64(time.Second)),
	}, nil
}

type postPayload struct {
	Title      string `json:"title"`
	Content    string `json:"content"`
	Excerpt    string `json:"excerpt,omitempty"`
	Status     string `json:"status"`
	Categories []int  `json:"categories,omitempty"`
	Tags       []int  `json:"tags,omitempty"`
}

type postResponse struct {
	ID   int64  `json:"id"`
	Link string `json:"link"`
}

// UpsertPost creates the post, or updates it in place when RemoteID is set.
// Updating a post that no longer exists on the site is a not-found row
// failure; the stored remote ID stays authoritative either way.
func (c *Client) UpsertPost(ctx context.Context, post Post) (PostResult, error) {
	payload := postPayload{
		Title:      post.Title,
		Content:    post.Content,
		Excerpt:    post.Excerpt,
		Status:     "publish",
		Categories: post.Categories,
		Tags:       post.Tags,
	}
	path := "/posts"
	operation := "create post"
	if post.RemoteID > 0 {
		path = fmt.Sprintf("/posts/%d", post.RemoteID)
		operation = "update post"
	}

	c.waitThrottle(ctx)
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(payload).
		Post(path)
	if err != nil {
		return PostResult{}, services.Wrap(services.ErrTransport, "publish", operation, "", err)
	}
	if err := classifyStatus("publish", operation, resp); err != nil {
		return PostResult{}, err
	}

	var decoded postResponse
	if err := json.Unmarshal(resp.Body(), &decoded); err != nil {
		return PostResult{}, services.Wrap(services.ErrTransport, "publish", operation, "decode response", err)
	}
	if decoded.ID == 0 {
		return PostResult{}, services.Wrap(services.ErrTransport, "publish", operation, "response missing post id", nil)
	}
	return PostResult{ID: decoded.ID, Link: decoded.Link}, nil
}

type termResponse struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type termError struct {
	Code string `json:"code"`
	Data struct {
		TermID int64 `json:"term_id"`
	} `json:"data"`
}

// EnsureTags resolves tag names to term IDs, creating the ones the site does
// not have yet. Name matching is case-insensitive, the way WordPress treats
// term slugs.
func (c *Client) EnsureTags(ctx context.Context, names []string) ([]int, error) {
	ids := make([]int, 0, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		id, err := c.ensureTag(ctx, name)
		if err != nil {
			return nil, err
		}
		ids = append(ids, int(id))
	}
	return ids, nil
}

func (c *Client) ensureTag(ctx context.Context, name string) (int64, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("search", name).
		SetQueryParam("per_page", "100").
		Get("/tags")
	if err != nil {
		return 0, services.Wrap(services.ErrTransport, "publish", "search tag", name, err)
	}
	if err := classifyStatus("publish", "search tag", resp); err != nil {
		return 0, err
	}
	var terms []termResponse
	if err := json.Unmarshal(resp.Body(), &terms); err != nil {
		return 0, services.Wrap(services.ErrTransport, "publish", "search tag", "decode response", err)
	}
	for _, term := range terms {
		if strings.EqualFold(term.Name, name) {
			return term.ID, nil
		}
	}

	c.waitThrottle(ctx)
	resp, err = c.http.R().
		SetContext(ctx).
		SetBody(map[string]string{"name": name}).
		Post("/tags")
	if err != nil {
		return 0, services.Wrap(services.ErrTransport, "publish", "create tag", name, err)
	}
	if resp.StatusCode() == http.StatusBadRequest {
		// Lost a create race or matched an existing slug. WordPress reports
		// the surviving term ID in the error payload.
		var detail termError
		if json.Unmarshal(resp.Body(), &detail) == nil &&
			detail.Code == "term_exists" && detail.Data.TermID > 0 {
			return detail.Data.TermID, nil
		}
	}
	if err := classifyStatus("publish", "create tag", resp); err != nil {
		return 0, err
	}
	var created termResponse
	if err := json.Unmarshal(resp.Body(), &created); err != nil {
		return 0, services.Wrap(services.ErrTransport, "publish", "create tag", "decode response", err)
	}
	return created.ID, nil
}

// PostCategories returns the category term IDs currently set on a post.
func (c *Client) PostCategories(ctx context.Context, postID int64) ([]int, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		Get(fmt.Sprintf("/posts/%d", postID))
	if err != nil {
		return nil, services.Wrap(services.ErrTransport, "curate", "fetch post", "", err)
	}
	if err := classifyStatus("curate", "fetch post", resp); err != nil {
		return nil, err
	}
	var decoded struct {
		Categories []int `json:"categories"`
	}
	if err := json.Unmarshal(resp.Body(), &decoded); err != nil {
		return nil, services.Wrap(services.ErrTransport, "curate", "fetch post", "decode response", err)
	}
	return decoded.Categories, nil
}

// SetPostCategories replaces the category term IDs on a post.
func (c *Client) SetPostCategories(ctx context.Context, postID int64, categories []int) error {
	c.waitThrottle(ctx)
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]any{"categories": categories}).
		Post(fmt.Sprintf("/posts/%d", postID))
	if err != nil {
		return services.Wrap(services.ErrTransport, "curate", "set categories", "", err)
	}
	return classifyStatus("curate", "set categories", resp)
}

func classifyStatus(stage, operation string, resp *resty.Response) error {
	code := resp.StatusCode()
	switch {
	case code >= http.StatusOK && code < http.StatusMultipleChoices:
		return nil
	case code == http.StatusNotFound:
		return services.Wrap(services.ErrNotFound, stage, operation, fmt.Sprintf("http %d", code), nil)
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return services.Wrap(services.ErrConfiguration, stage, operation,
			fmt.Sprintf("http %d: %s", code, bodySnippet(resp)), nil)
	default:
		return services.Wrap(services.ErrTransport, stage, operation,
			fmt.Sprintf("http %d: %s", code, bodySnippet(resp)), nil)
	}
}

func bodySnippet(resp *resty.Response) string {
	body := strings.Join(strings.Fields(string(resp.Body())), " ")
	if len(body) > 160 {
		body = body[:160] + "..."
	}
	return body
}

func (c *Client) waitThrottle(ctx context.Context) {
	if c.throttle <= 0 {
		return
	}
	c.mu.Lock()
	slot := c.lastCall.Add(c.throttle)
	if now := time.Now(); slot.Before(now) {
		slot = now
	}
	c.lastCall = slot
	c.mu.Unlock()
	wait := time.Until(slot)
	if wait <= 0 {
		return
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
