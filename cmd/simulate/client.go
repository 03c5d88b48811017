package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"trawell-be/internal/pkg/serverutils"
)

// apiClient keeps one caller identity across requests. Anonymous callers
// adopt the handle the server echoes back on the first response.
type apiClient struct {
	http    *http.Client
	baseURL string
	token   string
	anonID  string
}

func newAPIClient(anonID string) *apiClient {
	return &apiClient{
		http:    &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		anonID:  anonID,
	}
}

func (c *apiClient) do(method, path string, body interface{}, out interface{}) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	} else if c.anonID != "" {
		req.Header.Set(serverutils.AnonymousIDHeader, c.anonID)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if id := resp.Header.Get(serverutils.AnonymousIDHeader); id != "" && c.token == "" {
		c.anonID = id
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		var failure serverutils.BaseResponse[any]
		if json.Unmarshal(raw, &failure) == nil && failure.Message != "" {
			return fmt.Errorf("%s %s: %d %s", method, path, resp.StatusCode, failure.Message)
		}
		return fmt.Errorf("%s %s: %s", method, path, resp.Status)
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(raw, out)
}
