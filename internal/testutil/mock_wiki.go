// Package testutil provides testing utilities for the wiki API client.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"time"
)

// MockResponse defines the behavior for a mock api.php response.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockWiki is a configurable mock MediaWiki api.php server for testing.
//
// Backlink pages are keyed by the blcontinue value of the request ("" for the
// first page), so scripted walks are deterministic and can be repeated.
type MockWiki struct {
	server        *httptest.Server
	mu            sync.RWMutex
	handlers      map[string]func(w http.ResponseWriter, r *http.Request)
	backlinkPages map[string]MockResponse
	entities      map[string]MockResponse

	// Tracking
	requests      []url.Values
	lastUserAgent string
}

// NewMockWiki creates a new mock wiki server.
func NewMockWiki() *MockWiki {
	mock := &MockWiki{
		handlers:      make(map[string]func(w http.ResponseWriter, r *http.Request)),
		backlinkPages: make(map[string]MockResponse),
		entities:      make(map[string]MockResponse),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		params := r.URL.Query()

		mock.mu.Lock()
		mock.requests = append(mock.requests, params)
		mock.lastUserAgent = r.Header.Get("User-Agent")
		handler, exists := mock.handlers[params.Get("action")]
		mock.mu.Unlock()

		if exists {
			handler(w, r)
			return
		}

		mock.defaultHandler(w, params)
	}))

	return mock
}

// URL returns the mock api.php URL.
func (m *MockWiki) URL() string {
	return m.server.URL + "/w/api.php"
}

// Close shuts down the mock server.
func (m *MockWiki) Close() {
	m.server.Close()
}

// Reset clears all recorded requests.
func (m *MockWiki) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = nil
	m.lastUserAgent = ""
}

// SetHandler overrides handling of a whole action (e.g. "query").
func (m *MockWiki) SetHandler(action string, handler func(w http.ResponseWriter, r *http.Request)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[action] = handler
}

// SetBacklinkPage configures the response served when a backlinks request
// carries the given blcontinue value. Use "" for the first page.
func (m *MockWiki) SetBacklinkPage(blcontinue string, resp MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.backlinkPages[blcontinue] = resp
}

// SetEntity configures the wbgetentities response for ids=id.
func (m *MockWiki) SetEntity(id string, resp MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entities[id] = resp
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockWiki) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.requests)
}

// Requests returns a copy of the query parameters of every request, in order.
func (m *MockWiki) Requests() []url.Values {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]url.Values, len(m.requests))
	copy(out, m.requests)
	return out
}

// LastUserAgent returns the User-Agent header of the most recent request.
func (m *MockWiki) LastUserAgent() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastUserAgent
}

// defaultHandler routes scripted backlink pages and entities, and answers
// anything unscripted the way MediaWiki does: HTTP 200 with an error envelope.
func (m *MockWiki) defaultHandler(w http.ResponseWriter, params url.Values) {
	var (
		resp MockResponse
		ok   bool
	)

	m.mu.RLock()
	switch {
	case params.Get("action") == "query" && params.Get("list") == "backlinks":
		resp, ok = m.backlinkPages[params.Get("blcontinue")]
		if !ok {
			resp = NewAPIErrorResponse("badcontinue", "Invalid continue param. You should pass the original value returned by the previous query.")
			ok = true
		}
	case params.Get("action") == "wbgetentities":
		resp, ok = m.entities[params.Get("ids")]
		if !ok {
			resp = NewAPIErrorResponse("no-such-entity", fmt.Sprintf("Could not find an entity with the ID %q.", params.Get("ids")))
			ok = true
		}
	}
	m.mu.RUnlock()

	if !ok {
		resp = NewAPIErrorResponse("badvalue", fmt.Sprintf("Unrecognized value for parameter \"action\": %s.", params.Get("action")))
	}

	writeResponse(w, resp)
}

func writeResponse(w http.ResponseWriter, resp MockResponse) {
	if resp.Delay > 0 {
		time.Sleep(resp.Delay)
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	for key, value := range resp.Headers {
		w.Header().Set(key, value)
	}

	status := resp.StatusCode
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	if resp.Body != "" {
		w.Write([]byte(resp.Body))
	}
}

// Continue is the continuation pair MediaWiki returns for list=backlinks.
type Continue struct {
	Continue   string `json:"continue"`
	BLContinue string `json:"blcontinue"`
}

// NewBacklinksResponse builds a 200 list=backlinks page with the given titles.
// A nil cont marks the last page.
func NewBacklinksResponse(titles []string, cont *Continue) MockResponse {
	type backlink struct {
		PageID int    `json:"pageid"`
		NS     int    `json:"ns"`
		Title  string `json:"title"`
	}

	links := make([]backlink, len(titles))
	for i, title := range titles {
		links[i] = backlink{PageID: 1000 + i, NS: 0, Title: title}
	}

	body := map[string]any{
		"batchcomplete": "",
		"query": map[string]any{
			"backlinks": links,
		},
	}
	if cont != nil {
		body["continue"] = cont
	}

	return NewJSONResponse(body)
}

// NewJSONResponse marshals v into a 200 response.
func NewJSONResponse(v any) MockResponse {
	data, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("testutil: marshal mock body: %v", err))
	}
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       string(data),
	}
}

// NewAPIErrorResponse creates a MediaWiki error envelope, which upstream sends with status 200.
func NewAPIErrorResponse(code, info string) MockResponse {
	return NewJSONResponse(map[string]any{
		"error": map[string]any{
			"code": code,
			"info": info,
		},
	})
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"error": "Internal server error"}`,
	}
}

// NewRateLimitResponse creates a 429 Too Many Requests response.
func NewRateLimitResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusTooManyRequests,
		Body:       "Too many requests",
		Headers: map[string]string{
			"Retry-After":  "5",
			"Content-Type": "text/plain; charset=utf-8",
		},
	}
}

// Titles generates n distinct page titles: "<prefix>1" ... "<prefix>n".
func Titles(prefix string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("%s%d", prefix, i+1)
	}
	return out
}
