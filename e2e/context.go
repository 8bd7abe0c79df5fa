// Package e2e runs the Gherkin features against a live order API.
package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// TestContext carries HTTP state between the steps of one scenario.
type TestContext struct {
	BaseURL    string
	AdminToken string

	client     *http.Client
	lastStatus int
	lastHeader http.Header
	lastBody   []byte
	saved      map[string]string
}

func NewTestContext(baseURL, adminToken string) *TestContext {
	return &TestContext{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		AdminToken: adminToken,
		client:     &http.Client{Timeout: 10 * time.Second},
		saved:      make(map[string]string),
	}
}

// Reset clears per-scenario state.
func (tc *TestContext) Reset() {
	tc.lastStatus = 0
	tc.lastHeader = nil
	tc.lastBody = nil
	tc.saved = make(map[string]string)
}

func (tc *TestContext) GET(path string) error {
	return tc.do(http.MethodGet, path, nil, nil)
}

func (tc *TestContext) POST(path string, body interface{}) error {
	return tc.do(http.MethodPost, path, body, nil)
}

func (tc *TestContext) POSTWithHeaders(path string, body interface{}, headers map[string]string) error {
	return tc.do(http.MethodPost, path, body, headers)
}

func (tc *TestContext) POSTAsAdmin(path string, body interface{}) error {
	return tc.do(http.MethodPost, path, body, map[string]string{"Authorization": "Bearer " + tc.AdminToken})
}

func (tc *TestContext) do(method, path string, body interface{}, headers map[string]string) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, tc.BaseURL+tc.Expand(path), reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, tc.Expand(v))
	}

	resp, err := tc.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	tc.lastBody, err = io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	tc.lastStatus = resp.StatusCode
	tc.lastHeader = resp.Header
	return nil
}

func (tc *TestContext) GetLastResponseStatus() int {
	return tc.lastStatus
}

func (tc *TestContext) GetLastResponseBody() []byte {
	return tc.lastBody
}

func (tc *TestContext) GetLastResponseHeader(name string) string {
	return tc.lastHeader.Get(name)
}

// GetResponseField reads a dot-separated path such as "total_amount.amount"
// from the last JSON body.
func (tc *TestContext) GetResponseField(field string) (interface{}, error) {
	var current interface{}
	if err := json.Unmarshal(tc.lastBody, &current); err != nil {
		return nil, fmt.Errorf("response is not JSON: %w", err)
	}
	for _, part := range strings.Split(field, ".") {
		obj, ok := current.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("field %q: %q is not an object", field, part)
		}
		if current, ok = obj[part]; !ok {
			return nil, fmt.Errorf("field %q not found in %s", field, tc.lastBody)
		}
	}
	return current, nil
}

func (tc *TestContext) Save(name, value string) {
	tc.saved[name] = value
}

func (tc *TestContext) Saved(name string) string {
	return tc.saved[name]
}

// Expand substitutes {name} placeholders with saved values.
func (tc *TestContext) Expand(s string) string {
	for name, value := range tc.saved {
		s = strings.ReplaceAll(s, "{"+name+"}", value)
	}
	return s
}
