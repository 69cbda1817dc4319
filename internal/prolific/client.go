// Package prolific is a read-only client for the parts of the Prolific public
// API the cost report needs.
package prolific

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/emilianohg/studycost/internal/apperr"
	"github.com/emilianohg/studycost/internal/models"
)

const (
	DefaultBaseURL  = "https://api.prolific.com/api/v1"
	DefaultTimeout  = 30 * time.Second
	DefaultPageSize = 100

	maxErrorBody = 4 << 10
)

type ClientConfig struct {
	BaseURL     string
	Token       string
	Timeout     time.Duration
	PageSize    int
	StudyStates []string

	// HTTPClient overrides the default client; Timeout is ignored when set.
	HTTPClient *http.Client
	Logger     *slog.Logger
}

type Client struct {
	baseURL     *url.URL
	token       string
	pageSize    int
	studyStates []string
	httpClient  *http.Client
	logger      *slog.Logger
}

func NewClient(cfg ClientConfig) (*Client, error) {
	token := strings.TrimSpace(cfg.Token)
	if token == "" {
		return nil, fmt.Errorf("api token is empty: %w", apperr.ErrConfig)
	}

	raw := cfg.BaseURL
	if raw == "" {
		raw = DefaultBaseURL
	}
	base, err := url.Parse(strings.TrimRight(raw, "/") + "/")
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid api base url %q: %w", raw, apperr.ErrConfig)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		baseURL:     base,
		token:       token,
		pageSize:    pageSize,
		studyStates: cfg.StudyStates,
		httpClient:  httpClient,
		logger:      logger,
	}, nil
}

// GetProject fetches the project, mainly for its title.
func (c *Client) GetProject(ctx context.Context, projectID string) (models.Project, error) {
	var resp projectResponse
	if err := c.getJSON(ctx, "get project", c.endpoint(nil, "projects", projectID, ""), &resp); err != nil {
		return models.Project{}, err
	}
	return resp.toModel(projectID), nil
}

// ListStudies returns the project's studies in the order the API lists them.
func (c *Client) ListStudies(ctx context.Context, projectID string) ([]models.Study, error) {
	q := url.Values{}
	for _, state := range c.studyStates {
		q.Add("state", state)
	}
	q.Set("page_size", strconv.Itoa(c.pageSize))

	raw, err := listAll[studyResponse](ctx, c, "list studies", c.endpoint(q, "projects", projectID, "studies", ""))
	if err != nil {
		return nil, err
	}

	studies := make([]models.Study, 0, len(raw))
	for _, s := range raw {
		study, err := s.toModel()
		if err != nil {
			return nil, &APIError{
				Op:     "list studies",
				Detail: fmt.Sprintf("study %s: bad published_at %q", s.ID, s.PublishedAt),
				Err:    apperr.ErrUpstream,
			}
		}
		studies = append(studies, study)
	}
	return studies, nil
}

// ListSubmissions returns every submission of a study, whatever its status.
func (c *Client) ListSubmissions(ctx context.Context, studyID string) ([]models.Submission, error) {
	q := url.Values{}
	q.Set("page_size", strconv.Itoa(c.pageSize))

	raw, err := listAll[submissionResponse](ctx, c, "list submissions", c.endpoint(q, "studies", studyID, "submissions", ""))
	if err != nil {
		return nil, err
	}

	subs := make([]models.Submission, 0, len(raw))
	for _, s := range raw {
		subs = append(subs, s.toModel())
	}
	return subs, nil
}

// GetStudyCost returns the fees and taxes billed for a study's rewards and bonuses.
func (c *Client) GetStudyCost(ctx context.Context, studyID string) (models.Charges, error) {
	var resp costResponse
	if err := c.getJSON(ctx, "get study cost", c.endpoint(nil, "studies", studyID, "cost"), &resp); err != nil {
		return models.Charges{}, err
	}
	return resp.toModel(), nil
}

// listAll walks the _links.next cursor until the API stops returning one.
// Relative links resolve against the page that carried them.
func listAll[T any](ctx context.Context, c *Client, op, first string) ([]T, error) {
	var all []T
	seen := map[string]bool{}

	next := first
	for next != "" {
		if seen[next] {
			return nil, &APIError{Op: op, URL: next, Detail: "pagination loop", Err: apperr.ErrUpstream}
		}
		seen[next] = true

		var p page[T]
		if err := c.getJSON(ctx, op, next, &p); err != nil {
			return nil, err
		}
		all = append(all, p.Results...)

		current := next
		next = ""
		if href := p.Links.Next.Href; href != nil && *href != "" {
			resolved, err := resolveAgainst(current, *href)
			if err != nil {
				return nil, &APIError{Op: op, URL: current, Detail: fmt.Sprintf("bad next link %q", *href), Err: apperr.ErrUpstream}
			}
			next = resolved
		}
	}
	return all, nil
}

// endpoint joins escaped path segments onto the base URL. A trailing ""
// segment yields a trailing slash, which the API expects on collections.
func (c *Client) endpoint(q url.Values, segments ...string) string {
	escaped := make([]string, len(segments))
	for i, s := range segments {
		escaped[i] = url.PathEscape(s)
	}
	ref := &url.URL{Path: strings.Join(segments, "/"), RawPath: strings.Join(escaped, "/")}
	u := c.baseURL.ResolveReference(ref)
	if len(q) > 0 {
		u.RawQuery = q.Encode()
	}
	return u.String()
}

func resolveAgainst(current, href string) (string, error) {
	base, err := url.Parse(current)
	if err != nil {
		return "", err
	}
	ref, err := url.Parse(href)
	if err != nil {
		return "", err
	}
	return base.ResolveReference(ref).String(), nil
}

func (c *Client) getJSON(ctx context.Context, op, target string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return &APIError{Op: op, URL: target, Detail: err.Error(), Err: apperr.ErrUpstream}
	}
	req.Header.Set("Authorization", "Token "+c.token)
	req.Header.Set("Accept", "application/json")

	c.logger.Debug("api request", "op", op, "url", target)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("%s: %w", op, ctxErr)
		}
		return &APIError{Op: op, URL: target, Detail: unwrapURLError(err), Err: apperr.ErrTransient}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &APIError{
			Op:         op,
			URL:        target,
			StatusCode: resp.StatusCode,
			Detail:     errorDetail(body),
			Err:        kindForStatus(resp.StatusCode),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &APIError{Op: op, URL: target, StatusCode: resp.StatusCode, Detail: "decode body: " + err.Error(), Err: apperr.ErrUpstream}
	}
	return nil
}

func unwrapURLError(err error) string {
	var uerr *url.Error
	if errors.As(err, &uerr) {
		if uerr.Timeout() {
			return "request timed out"
		}
		return uerr.Err.Error()
	}
	return err.Error()
}
