package memory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// RemoteStore talks to an external memory service over HTTP. Failures are
// returned to the caller as-is; retry policy, if any, belongs to the
// service's own client configuration, not here.
type RemoteStore struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewRemoteStore creates a client for the external memory service.
func NewRemoteStore(baseURL, apiKey string) *RemoteStore {
	return &RemoteStore{
		baseURL: baseURL,
		apiKey:  apiKey,
		client: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

type saveRequest struct {
	Identity string `json:"identity"`
	Content  string `json:"content"`
}

type searchResponse struct {
	Results []Result `json:"results"`
}

type countResponse struct {
	Count int `json:"count"`
}

// Save persists content for the given identity.
func (s *RemoteStore) Save(ctx context.Context, identity, content string) (*Entry, error) {
	body, err := json.Marshal(saveRequest{Identity: identity, Content: content})
	if err != nil {
		return nil, err
	}

	var entry Entry
	if err := s.do(ctx, http.MethodPost, "/v1/memories", bytes.NewReader(body), &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

// Search returns ranked entries for the identity.
func (s *RemoteStore) Search(ctx context.Context, identity, query string, limit int) ([]Result, error) {
	q := url.Values{}
	q.Set("identity", identity)
	q.Set("query", query)
	q.Set("limit", strconv.Itoa(limit))

	var resp searchResponse
	if err := s.do(ctx, http.MethodGet, "/v1/memories/search?"+q.Encode(), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Results, nil
}

// Count returns the number of entries stored for the identity.
func (s *RemoteStore) Count(ctx context.Context, identity string) (int, error) {
	q := url.Values{}
	q.Set("identity", identity)

	var resp countResponse
	if err := s.do(ctx, http.MethodGet, "/v1/memories/count?"+q.Encode(), nil, &resp); err != nil {
		return 0, err
	}
	return resp.Count, nil
}

// Close releases client resources.
func (s *RemoteStore) Close() error {
	s.client.CloseIdleConnections()
	return nil
}

func (s *RemoteStore) do(ctx context.Context, method, path string, body *bytes.Reader, out any) error {
	var req *http.Request
	var err error
	if body != nil {
		req, err = http.NewRequestWithContext(ctx, method, s.baseURL+path, body)
	} else {
		req, err = http.NewRequestWithContext(ctx, method, s.baseURL+path, nil)
	}
	if err != nil {
		return err
	}

	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("memory service returned status %d", resp.StatusCode)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode memory service response: %w", err)
		}
	}
	return nil
}
