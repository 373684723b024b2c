package micropub

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
	"strconv"
	"strings"
	"time"

	"content-sync/core/dates"
	"content-sync/core/retry"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"golang.org/x/oauth2"
)

// Config holds configuration for the Micropub endpoint.
type Config struct {
	// Endpoint is the Micropub URL.
	Endpoint string `mapstructure:"endpoint" default:"https://micro.blog/micropub"`
	// Token is the app token sent as a bearer token.
	Token string `mapstructure:"token" default:""`
	// PageSize is the number of posts requested per query page.
	PageSize int `mapstructure:"page_size" default:"100"`
	// TimeoutSeconds bounds every request.
	TimeoutSeconds int `mapstructure:"timeout_seconds" default:"30"`
}

const maxResponseBytes = 8 << 20

var errNotAdvancing = fmt.Errorf("micropub query: pagination is not advancing: %w", retry.ErrMalformedResponse)

// HTTPClient is the Micropub client used against real endpoints.
type HTTPClient struct {
	endpoint string
	http     *http.Client
	markdown *md.Converter
}

// NewClient creates a client. It fails when no token is configured.
func NewClient(cfg Config) (*HTTPClient, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, fmt.Errorf("micropub token not set: %w", retry.ErrMissingCredentials)
	}
	if _, err := url.ParseRequestURI(cfg.Endpoint); err != nil {
		return nil, fmt.Errorf("invalid micropub endpoint %q: %w", cfg.Endpoint, err)
	}

	timeout := cfg.TimeoutSeconds
	if timeout <= 0 {
		timeout = 30
	}
	timeoutDuration := time.Duration(timeout) * time.Second

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   timeoutDuration,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   timeoutDuration,
		ResponseHeaderTimeout: timeoutDuration,
	}

	// oauth2 picks the base client up from the context
	base := context.WithValue(context.Background(), oauth2.HTTPClient, &http.Client{Transport: transport})
	client := oauth2.NewClient(base, oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: cfg.Token,
		TokenType:   "Bearer",
	}))
	client.Timeout = timeoutDuration

	return newHTTPClient(cfg.Endpoint, client), nil
}

func newHTTPClient(endpoint string, client *http.Client) *HTTPClient {
	return &HTTPClient{
		endpoint: endpoint,
		http:     client,
		markdown: md.NewConverter("", true, nil),
	}
}

type sourceResponse struct {
	Items []sourceItem `json:"items"`
}

type sourceItem struct {
	URL        string `json:"url"`
	Properties struct {
		URL       []string          `json:"url"`
		Content   []json.RawMessage `json:"content"`
		Category  []string          `json:"category"`
		Published []string          `json:"published"`
	} `json:"properties"`
}

// Query returns one page of posts.
func (c *HTTPClient) Query(ctx context.Context, offset, limit int) ([]Post, error) {
	q := url.Values{}
	q.Set("q", "source")
	q.Set("offset", strconv.Itoa(offset))
	q.Set("limit", strconv.Itoa(limit))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.withQuery(q), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	body, _, err := c.do(req, "micropub.query")
	if err != nil {
		return nil, err
	}

	var parsed sourceResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("micropub query: %w: %w", retry.ErrMalformedResponse, err)
	}

	posts := make([]Post, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		post, err := c.toPost(item)
		if err != nil {
			return nil, err
		}
		posts = append(posts, post)
	}
	return posts, nil
}

// Create publishes entry and returns the URL from the Location header.
func (c *HTTPClient) Create(ctx context.Context, entry Entry) (string, error) {
	payload := map[string]any{
		"type": []string{"h-entry"},
		"properties": map[string]any{
			"content":   []string{entry.Content},
			"category":  []string{entry.Category},
			"published": []string{dates.Format(entry.Published)},
		},
	}

	req, err := c.jsonRequest(ctx, payload)
	if err != nil {
		return "", err
	}

	_, resp, err := c.do(req, "micropub.create")
	if err != nil {
		return "", err
	}

	location := resp.Header.Get("Location")
	if location == "" {
		return "", fmt.Errorf("micropub create: no Location header: %w", retry.ErrMalformedResponse)
	}
	return location, nil
}

// Update replaces the changed properties of the post at postURL.
func (c *HTTPClient) Update(ctx context.Context, postURL string, changes Changes) error {
	if changes.IsEmpty() {
		return nil
	}

	replace := map[string][]string{}
	if changes.Content != nil {
		replace["content"] = []string{*changes.Content}
	}
	if changes.Category != nil {
		replace["category"] = []string{*changes.Category}
	}
	if changes.Published != nil {
		replace["published"] = []string{dates.Format(*changes.Published)}
	}

	req, err := c.jsonRequest(ctx, map[string]any{
		"action":  "update",
		"url":     postURL,
		"replace": replace,
	})
	if err != nil {
		return err
	}

	_, _, err = c.do(req, "micropub.update")
	return err
}

// Delete removes the post at postURL. A 404 returns ErrAlreadyGone.
func (c *HTTPClient) Delete(ctx context.Context, postURL string) error {
	form := url.Values{}
	form.Set("action", "delete")
	form.Set("url", postURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	_, _, err = c.do(req, "micropub.delete")
	var statusErr *retry.StatusError
	if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound {
		return ErrAlreadyGone
	}
	return err
}

func (c *HTTPClient) withQuery(q url.Values) string {
	sep := "?"
	if strings.Contains(c.endpoint, "?") {
		sep = "&"
	}
	return c.endpoint + sep + q.Encode()
}

func (c *HTTPClient) jsonRequest(ctx context.Context, payload any) (*http.Request, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	return req, nil
}

// do sends req and returns the body of a 2xx response, or a *retry.StatusError.
func (c *HTTPClient) do(req *http.Request, op string) ([]byte, *http.Response, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, resp, fmt.Errorf("%s: reading body: %w", op, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, resp, retry.NewStatusError(op, resp, body)
	}
	return body, resp, nil
}

func (c *HTTPClient) toPost(item sourceItem) (Post, error) {
	post := Post{URL: item.URL}
	if len(item.Properties.URL) > 0 {
		post.URL = item.Properties.URL[0]
	}
	if len(item.Properties.Category) > 0 {
		post.Category = item.Properties.Category[0]
		post.Categories = item.Properties.Category
	}
	if len(item.Properties.Published) > 0 {
		post.Published = item.Properties.Published[0]
	}
	if len(item.Properties.Content) > 0 {
		content, err := c.decodeContent(item.Properties.Content[0])
		if err != nil {
			return Post{}, fmt.Errorf("micropub query: content of %s: %w", post.URL, err)
		}
		post.Content = content
	}
	return post, nil
}

// decodeContent accepts a plain string or a {"html", "value"} object.
func (c *HTTPClient) decodeContent(raw json.RawMessage) (string, error) {
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return text, nil
	}

	var rich struct {
		HTML  string `json:"html"`
		Value string `json:"value"`
	}
	if err := json.Unmarshal(raw, &rich); err != nil {
		return "", fmt.Errorf("%w: %w", retry.ErrMalformedResponse, err)
	}
	if rich.HTML == "" {
		return rich.Value, nil
	}

	converted, err := c.markdown.ConvertString(rich.HTML)
	if err != nil {
		return "", fmt.Errorf("converting html: %w", err)
	}
	return converted, nil
}
