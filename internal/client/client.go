// Package client is a small HTTP client for the DMS object service API.
package client

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

	log "github.com/sirupsen/logrus"

	"dms-object-service/internal/adapters/primary/http/dto"
	"dms-object-service/internal/core/domain"
)

const basePath = "/api/v1/dms"

// APIError is a non-2xx response from the service.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%d %s: %s", e.StatusCode, http.StatusText(e.StatusCode), e.Message)
}

// UserError reports whether the request itself was at fault (4xx).
func (e *APIError) UserError() bool {
	return e.StatusCode >= 400 && e.StatusCode < 500
}

type Client struct {
	httpClient *http.Client
	baseURL    string
	userID     string
}

func New(baseURL, userID string, timeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: strings.TrimRight(baseURL, "/"),
		userID:  userID,
	}
}

// Delete moves ids and their dependents to the trash. It returns nil when
// ids is empty.
func (c *Client) Delete(ctx context.Context, ids []string, reason string) (*dto.DeleteResponse, error) {
	var out dto.DeleteResponse
	err := c.do(ctx, http.MethodPost, "/deletions", dto.DeleteRequest{IDs: ids, Reason: reason}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Revert(ctx context.Context, deletionID string) error {
	return c.do(ctx, http.MethodPost, "/deletions/"+url.PathEscape(deletionID)+"/revert", nil, nil)
}

func (c *Client) Purge(ctx context.Context, deletionID string) error {
	return c.do(ctx, http.MethodDelete, "/deletions/"+url.PathEscape(deletionID), nil, nil)
}

func (c *Client) GetDeletion(ctx context.Context, deletionID string) (*dto.DeletionResponse, error) {
	var out dto.DeletionResponse
	if err := c.do(ctx, http.MethodGet, "/deletions/"+url.PathEscape(deletionID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListDeletions(ctx context.Context, status string, limit, offset int) (*dto.ListDeletionsResponse, error) {
	q := url.Values{}
	if status != "" {
		q.Set("status", status)
	}
	q.Set("limit", fmt.Sprint(limit))
	q.Set("offset", fmt.Sprint(offset))

	var out dto.ListDeletionsResponse
	if err := c.do(ctx, http.MethodGet, "/deletions?"+q.Encode(), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetEntity(ctx context.Context, id string) (*dto.EntityResponse, error) {
	var out dto.EntityResponse
	if err := c.do(ctx, http.MethodGet, "/entities/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Freeze(ctx context.Context, id string, flags domain.FreezeFlags) (*dto.EntityResponse, error) {
	req := dto.FreezeRequest{
		Frozen:               flags.Frozen,
		FrozenForProjects:    flags.FrozenForProjects,
		FrozenForExperiments: flags.FrozenForExperiments,
		FrozenForSamples:     flags.FrozenForSamples,
		FrozenForDataSets:    flags.FrozenForDataSets,
		FrozenForComponents:  flags.FrozenForComponents,
	}
	var out dto.EntityResponse
	if err := c.do(ctx, http.MethodPost, "/entities/"+url.PathEscape(id)+"/freeze", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) History(ctx context.Context, id string) (*dto.HistoryResponse, error) {
	var out dto.HistoryResponse
	if err := c.do(ctx, http.MethodGet, "/entities/"+url.PathEscape(id)+"/history", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	u := c.baseURL + basePath + path
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-User-ID", c.userID)

	log.WithFields(log.Fields{
		"method": method,
		"url":    u,
	}).Debug("Sending request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 300 {
		var e struct {
			Error string `json:"error"`
		}
		msg := strings.TrimSpace(string(payload))
		if json.Unmarshal(payload, &e) == nil && e.Error != "" {
			msg = e.Error
		}
		return &APIError{StatusCode: resp.StatusCode, Message: msg}
	}
	if out == nil || len(payload) == 0 {
		return nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
