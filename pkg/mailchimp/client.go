// Package mailchimp is a minimal Mailchimp Marketing API v3 client covering
// the list-member, tag, segment, and campaign operations the campaign runner
// needs.
package mailchimp

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Client defines the Mailchimp operations used by the campaign flow.
type Client interface {
	// UpsertMember creates or updates a list member with its merge fields,
	// reactivating archived contacts.
	UpsertMember(ctx context.Context, member Member) error
	// TagMember applies a static tag to a member.
	TagMember(ctx context.Context, email, tag string) error
	// SegmentIDByTag finds the static segment Mailchimp materializes for a
	// tag name.
	SegmentIDByTag(ctx context.Context, tag string) (int, error)
	// CreateCampaign creates a regular campaign addressed at a saved
	// segment and returns the campaign ID.
	CreateCampaign(ctx context.Context, segmentID int, title string) (string, error)
	// SetCampaignHTML sets the campaign's HTML content.
	SetCampaignHTML(ctx context.Context, campaignID, html string) error
	// SendCampaign sends the campaign immediately.
	SendCampaign(ctx context.Context, campaignID string) error
}

// Member is a list contact plus its merge fields.
type Member struct {
	Email       string
	MergeFields map[string]string
}

// Settings holds the fixed campaign settings for a deployment.
type Settings struct {
	FromName    string
	ReplyTo     string
	SubjectLine string
}

// APIError is a decoded Mailchimp problem response.
type APIError struct {
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("mailchimp: %s (status %d): %s", e.Title, e.Status, e.Detail)
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the API base URL (for testing).
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = strings.TrimRight(url, "/")
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithRateLimit overrides the request rate limit.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *httpClient) {
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithSegmentSettleDelay overrides the wait before segment lookups (zero in
// tests).
func WithSegmentSettleDelay(d time.Duration) Option {
	return func(c *httpClient) {
		c.settleDelay = d
	}
}

type httpClient struct {
	apiKey      string
	listID      string
	baseURL     string
	settings    Settings
	http        *http.Client
	limiter     *rate.Limiter
	settleDelay time.Duration
}

// NewClient creates a Mailchimp client for one list. serverPrefix is the
// datacenter suffix of the API key (e.g. "us14").
func NewClient(apiKey, serverPrefix, listID string, settings Settings, opts ...Option) Client {
	c := &httpClient{
		apiKey:   apiKey,
		listID:   listID,
		baseURL:  fmt.Sprintf("https://%s.api.mailchimp.com/3.0", serverPrefix),
		settings: settings,
		http: &http.Client{
			Timeout: 30 * time.Second,
		},
		// Mailchimp allows 10 concurrent connections; stay under it.
		limiter:     rate.NewLimiter(rate.Limit(8), 8),
		settleDelay: 2 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SubscriberHash returns Mailchimp's member identifier: the MD5 of the
// lowercased email address.
func SubscriberHash(email string) string {
	sum := md5.Sum([]byte(strings.ToLower(strings.TrimSpace(email))))
	return fmt.Sprintf("%x", sum)
}

func (c *httpClient) UpsertMember(ctx context.Context, member Member) error {
	memberPath := fmt.Sprintf("/lists/%s/members/%s", c.listID, SubscriberHash(member.Email))

	err := c.do(ctx, http.MethodGet, memberPath, nil, nil)
	if err == nil {
		// Existing member: refresh merge fields only.
		body := map[string]any{"merge_fields": member.MergeFields}
		return c.do(ctx, http.MethodPatch, memberPath, body, nil)
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusNotFound {
		return eris.Wrapf(err, "mailchimp: get member %s", member.Email)
	}

	createBody := map[string]any{
		"email_address": member.Email,
		"status":        "subscribed",
		"merge_fields":  member.MergeFields,
	}
	createErr := c.do(ctx, http.MethodPost, fmt.Sprintf("/lists/%s/members", c.listID), createBody, nil)
	if createErr == nil {
		return nil
	}

	// An archived contact is invisible to GET but still rejects creation;
	// updating it reactivates the subscription.
	if errors.As(createErr, &apiErr) && apiErr.Title == "Member Exists" {
		body := map[string]any{
			"status":       "subscribed",
			"merge_fields": member.MergeFields,
		}
		return c.do(ctx, http.MethodPatch, memberPath, body, nil)
	}
	return eris.Wrapf(createErr, "mailchimp: create member %s", member.Email)
}

func (c *httpClient) TagMember(ctx context.Context, email, tag string) error {
	path := fmt.Sprintf("/lists/%s/members/%s/tags", c.listID, SubscriberHash(email))
	body := map[string]any{
		"tags": []map[string]string{{"name": tag, "status": "active"}},
	}
	if err := c.do(ctx, http.MethodPost, path, body, nil); err != nil {
		return eris.Wrapf(err, "mailchimp: tag member %s", email)
	}
	return nil
}

func (c *httpClient) SegmentIDByTag(ctx context.Context, tag string) (int, error) {
	// Mailchimp materializes tag segments asynchronously; give it a moment
	// before the first lookup.
	if c.settleDelay > 0 {
		select {
		case <-time.After(c.settleDelay):
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}

	var resp struct {
		Segments []struct {
			ID          int    `json:"id"`
			Name        string `json:"name"`
			Type        string `json:"type"`
			MemberCount int    `json:"member_count"`
		} `json:"segments"`
	}
	path := fmt.Sprintf("/lists/%s/segments?count=1000", c.listID)
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return 0, eris.Wrap(err, "mailchimp: list segments")
	}

	for _, s := range resp.Segments {
		if s.Name == tag && s.Type == "static" {
			zap.L().Info("segment found for tag",
				zap.String("tag", tag),
				zap.Int("segment_id", s.ID),
				zap.Int("members", s.MemberCount),
			)
			return s.ID, nil
		}
	}
	return 0, eris.Errorf("mailchimp: no static segment for tag %s", tag)
}

func (c *httpClient) CreateCampaign(ctx context.Context, segmentID int, title string) (string, error) {
	body := map[string]any{
		"type": "regular",
		"recipients": map[string]any{
			"list_id": c.listID,
			"segment_opts": map[string]any{
				"saved_segment_id": segmentID,
			},
		},
		"settings": map[string]any{
			"subject_line": c.settings.SubjectLine,
			"from_name":    c.settings.FromName,
			"reply_to":     c.settings.ReplyTo,
			"title":        title,
		},
	}
	var resp struct {
		ID string `json:"id"`
	}
	if err := c.do(ctx, http.MethodPost, "/campaigns", body, &resp); err != nil {
		return "", eris.Wrap(err, "mailchimp: create campaign")
	}
	return resp.ID, nil
}

func (c *httpClient) SetCampaignHTML(ctx context.Context, campaignID, html string) error {
	path := fmt.Sprintf("/campaigns/%s/content", campaignID)
	if err := c.do(ctx, http.MethodPut, path, map[string]any{"html": html}, nil); err != nil {
		return eris.Wrapf(err, "mailchimp: set content for campaign %s", campaignID)
	}
	return nil
}

func (c *httpClient) SendCampaign(ctx context.Context, campaignID string) error {
	path := fmt.Sprintf("/campaigns/%s/actions/send", campaignID)
	if err := c.do(ctx, http.MethodPost, path, nil, nil); err != nil {
		return eris.Wrapf(err, "mailchimp: send campaign %s", campaignID)
	}
	return nil
}

// do performs one rate-limited API call. A non-2xx response decodes into an
// *APIError so callers can branch on title and status.
func (c *httpClient) do(ctx context.Context, method, path string, body, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return eris.Wrap(err, "mailchimp: rate limiter")
	}

	var reqBody io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return eris.Wrap(err, "mailchimp: encode request")
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return eris.Wrap(err, "mailchimp: build request")
	}
	// Mailchimp basic auth ignores the username.
	req.SetBasicAuth("anystring", c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return eris.Wrapf(err, "mailchimp: %s %s", method, path)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return eris.Wrap(err, "mailchimp: read response")
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode}
		if jsonErr := json.Unmarshal(data, apiErr); jsonErr != nil || apiErr.Title == "" {
			apiErr.Title = http.StatusText(resp.StatusCode)
			apiErr.Detail = string(data)
		}
		apiErr.Status = resp.StatusCode
		return apiErr
	}

	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return eris.Wrap(err, "mailchimp: decode response")
		}
	}
	return nil
}
