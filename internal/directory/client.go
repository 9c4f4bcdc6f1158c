package directory

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

	"ingestion-portal/internal/config"
	"ingestion-portal/internal/logger"
	"ingestion-portal/internal/model"
	perrors "ingestion-portal/pkg/errors"

	"github.com/rs/zerolog"
)

const (
	groupFields = "id,displayName,description"
	userFields  = "id,displayName,givenName,surname,mail,userPrincipalName,accountEnabled"
)

// Client talks to a Graph-style directory REST API.
type Client struct {
	cfg         config.DirectoryConfig
	httpClient  *http.Client
	authManager *TokenManager
	log         zerolog.Logger
}

func NewClient(cfg config.DirectoryConfig) *Client {
	httpClient := &http.Client{Timeout: cfg.Timeout}
	return &Client{
		cfg:         cfg,
		httpClient:  httpClient,
		authManager: NewTokenManager(cfg, httpClient),
		log:         logger.Component("directory"),
	}
}

type listEnvelope[T any] struct {
	Value    []T    `json:"value"`
	NextLink string `json:"@odata.nextLink"`
}

type graphError struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *Client) ListGroups(ctx context.Context) ([]model.DirectoryGroup, error) {
	return listAll[model.DirectoryGroup](ctx, c, "/groups?$select="+groupFields)
}

func (c *Client) GetGroup(ctx context.Context, id string) (*model.DirectoryGroup, error) {
	var group model.DirectoryGroup
	if err := c.do(ctx, http.MethodGet, "/groups/"+url.PathEscape(id)+"?$select="+groupFields, nil, &group); err != nil {
		return nil, err
	}
	return &group, nil
}

func (c *Client) CreateGroup(ctx context.Context, displayName, description string) (*model.DirectoryGroup, error) {
	body := map[string]interface{}{
		"displayName":     displayName,
		"mailEnabled":     false,
		"mailNickname":    mailNickname(displayName),
		"securityEnabled": true,
	}
	if description != "" {
		body["description"] = description
	}

	var group model.DirectoryGroup
	if err := c.do(ctx, http.MethodPost, "/groups", body, &group); err != nil {
		return nil, err
	}
	return &group, nil
}

func (c *Client) UpdateGroup(ctx context.Context, id string, patch map[string]interface{}) error {
	return c.do(ctx, http.MethodPatch, "/groups/"+url.PathEscape(id), patch, nil)
}

func (c *Client) DeleteGroup(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/groups/"+url.PathEscape(id), nil, nil)
}

func (c *Client) ListGroupMembers(ctx context.Context, id string) ([]model.DirectoryUser, error) {
	return listAll[model.DirectoryUser](ctx, c, "/groups/"+url.PathEscape(id)+"/members?$select="+userFields)
}

func (c *Client) ListUsers(ctx context.Context) ([]model.DirectoryUser, error) {
	return listAll[model.DirectoryUser](ctx, c, "/users?$select="+userFields)
}

func (c *Client) GetUser(ctx context.Context, id string) (*model.DirectoryUser, error) {
	var user model.DirectoryUser
	if err := c.do(ctx, http.MethodGet, "/users/"+url.PathEscape(id)+"?$select="+userFields, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// ListUserGroups returns the groups the user is a direct member of.
func (c *Client) ListUserGroups(ctx context.Context, userID string) ([]model.DirectoryGroup, error) {
	return listAll[model.DirectoryGroup](ctx, c, "/users/"+url.PathEscape(userID)+"/memberOf?$select="+groupFields)
}

// Batch posts items to the batch endpoint in sequential chunks of the configured size.
// A failing chunk stops processing; responses from earlier chunks are returned with the error
// and are not undone.
func (c *Client) Batch(ctx context.Context, items []model.BatchRequestItem) ([]model.BatchResponseItem, error) {
	size := c.cfg.BatchSize
	if size <= 0 {
		size = 3
	}

	responses := make([]model.BatchResponseItem, 0, len(items))
	for start := 0; start < len(items); start += size {
		end := start + size
		if end > len(items) {
			end = len(items)
		}

		var resp model.BatchResponse
		if err := c.do(ctx, http.MethodPost, "/$batch", model.BatchRequest{Requests: items[start:end]}, &resp); err != nil {
			c.log.Warn().Err(err).Int("chunk_start", start).Int("completed", len(responses)).Msg("Batch chunk failed")
			return responses, err
		}
		responses = append(responses, resp.Responses...)
	}

	return responses, nil
}

func listAll[T any](ctx context.Context, c *Client, path string) ([]T, error) {
	items := []T{}
	next := path
	for next != "" {
		var page listEnvelope[T]
		if err := c.do(ctx, http.MethodGet, next, nil, &page); err != nil {
			return nil, err
		}
		items = append(items, page.Value...)
		next = page.NextLink
	}
	return items, nil
}

// do sends one request, retrying throttling and transient failures with a linear backoff.
func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	attempts := c.cfg.RetryAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.cfg.RetryDelay * time.Duration(attempt)):
			}
		}

		err := c.send(ctx, method, path, body, out)
		if err == nil {
			return nil
		}
		lastErr = err

		if _, retryable := err.(perrors.RetryableError); !retryable {
			return err
		}
		c.log.Warn().Err(err).Str("method", method).Str("path", path).Int("attempt", attempt+1).Msg("Directory request failed, retrying")
	}

	return lastErr
}

func (c *Client) send(ctx context.Context, method, path string, body, out interface{}) error {
	token, err := c.authManager.GetToken(ctx)
	if err != nil {
		return err
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	target := path
	if !strings.HasPrefix(path, "http://") && !strings.HasPrefix(path, "https://") {
		target = strings.TrimRight(c.cfg.BaseURL, "/") + path
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return perrors.NewRetryableError(fmt.Errorf("%w: %v", perrors.ErrExternalAPITimeout, err), "HTTP request failed")
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		if out == nil || resp.StatusCode == http.StatusNoContent {
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
		return nil
	case resp.StatusCode == http.StatusUnauthorized:
		// Token might be revoked, retry will refresh it
		c.authManager.Invalidate()
		return perrors.NewRetryableError(upstreamError(resp), "authentication failed")
	case resp.StatusCode == http.StatusTooManyRequests, resp.StatusCode == http.StatusServiceUnavailable:
		return perrors.NewRetryableError(upstreamError(resp), "directory service unavailable")
	default:
		return upstreamError(resp)
	}
}

func upstreamError(resp *http.Response) perrors.UpstreamError {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	message := strings.TrimSpace(string(data))
	var gErr graphError
	if json.Unmarshal(data, &gErr) == nil && gErr.Error.Message != "" {
		message = gErr.Error.Message
	}
	if message == "" {
		message = http.StatusText(resp.StatusCode)
	}

	return perrors.UpstreamError{StatusCode: resp.StatusCode, Message: message}
}

func mailNickname(displayName string) string {
	var b strings.Builder
	for _, r := range displayName {
		if r < 128 && (r == '-' || r == '_' || r == '.' || ('0' <= r && r <= '9') || ('a' <= r && r <= 'z') || ('A' <= r && r <= 'Z')) {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "group"
	}
	return b.String()
}
