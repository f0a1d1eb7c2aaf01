package integration

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/Sternrassler/wiki-api-client/internal/testutil"
	"github.com/Sternrassler/wiki-api-client/pkg/client"
	"github.com/Sternrassler/wiki-api-client/pkg/metrics"
	"github.com/Sternrassler/wiki-api-client/pkg/store"
	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupRedis creates a Redis container for integration testing.
func setupRedis(t *testing.T) (*redis.Client, func()) {
	t.Helper()

	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Skipf("Redis container not available: %v", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := container.MappedPort(ctx, "6379")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr: host + ":" + port.Port(),
	})

	cleanup := func() {
		redisClient.Close()
		container.Terminate(ctx)
	}

	return redisClient, cleanup
}

// testTransport redirects requests for the production endpoint to the mock server.
type testTransport struct {
	mockServer *testutil.MockWiki
}

func (t *testTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	mockURL, err := url.Parse(t.mockServer.URL())
	if err != nil {
		return nil, err
	}
	if req.URL.Host == "www.wikidata.org" {
		req.URL.Scheme = mockURL.Scheme
		req.URL.Host = mockURL.Host
	}
	return http.DefaultTransport.RoundTrip(req)
}

// newClient builds a client for the default endpoint whose traffic lands on mock.
func newClient(t *testing.T, mock *testutil.MockWiki) *client.Client {
	t.Helper()

	cfg := client.DefaultConfig()
	cfg.UserAgent = "wiki-integration-test/1.0 (test@example.com)"
	cfg.HTTPClient = &http.Client{
		Timeout:   5 * time.Second,
		Transport: &testTransport{mockServer: mock},
	}

	c, err := client.New(cfg)
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}
	return c
}

// TestFullEnumerationFlow tests the complete flow: Walk Continuations → Collect → Save Snapshot → Load Snapshot.
func TestFullEnumerationFlow(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	mock := testutil.NewMockWiki()
	defer mock.Close()

	first := testutil.Titles("Q", 500)
	second := testutil.Titles("P", 50)
	mock.SetBacklinkPage("", testutil.NewBacklinksResponse(first, &testutil.Continue{Continue: "-||", BLContinue: "0|1234567"}))
	mock.SetBacklinkPage("0|1234567", testutil.NewBacklinksResponse(second, nil))

	wikiClient := newClient(t, mock)
	snapshots := store.New(redisClient, store.Config{TTL: time.Hour})
	ctx := context.Background()

	titles, err := wikiClient.Backlinks(ctx, "Q5", 5000)
	if err != nil {
		t.Fatalf("Backlinks failed: %v", err)
	}
	if len(titles) != 550 {
		t.Fatalf("Expected 550 titles, got %d", len(titles))
	}
	if mock.GetRequestCount() != 2 {
		t.Errorf("Expected 2 upstream requests, got %d", mock.GetRequestCount())
	}

	snap := &store.BacklinkSnapshot{
		Endpoint: wikiClient.Endpoint(),
		Title:    "Q5",
		Limit:    5000,
		Titles:   titles,
	}
	if err := snapshots.SaveBacklinks(ctx, snap); err != nil {
		t.Fatalf("SaveBacklinks failed: %v", err)
	}

	// Snapshot key follows the production endpoint, not the mock.
	if got := snap.Key().String(); got != "wiki:www.wikidata.org/w/api.php:backlinks:Q5" {
		t.Errorf("Unexpected snapshot key %q", got)
	}

	loaded, err := snapshots.LoadBacklinks(ctx, wikiClient.Endpoint(), "Q5")
	if err != nil {
		t.Fatalf("LoadBacklinks failed: %v", err)
	}
	if !reflect.DeepEqual(loaded.Titles, titles) {
		t.Error("Loaded titles differ from enumerated titles")
	}
	if loaded.Count != 550 || loaded.Limit != 5000 {
		t.Errorf("Unexpected metadata: count=%d limit=%d", loaded.Count, loaded.Limit)
	}
}

// TestLimitBelowFirstPage tests that a small limit still returns the whole first page.
func TestLimitBelowFirstPage(t *testing.T) {
	mock := testutil.NewMockWiki()
	defer mock.Close()

	mock.SetBacklinkPage("", testutil.NewBacklinksResponse(testutil.Titles("Q", 500), &testutil.Continue{Continue: "-||", BLContinue: "0|500"}))

	titles, err := newClient(t, mock).Backlinks(context.Background(), "Q5", 10)
	if err != nil {
		t.Fatalf("Backlinks failed: %v", err)
	}
	if len(titles) != 500 {
		t.Errorf("Expected 500 titles, got %d", len(titles))
	}
	if mock.GetRequestCount() != 1 {
		t.Errorf("Expected 1 upstream request, got %d", mock.GetRequestCount())
	}
}

// TestEntityFlow tests fetching an entity and persisting the raw payload.
func TestEntityFlow(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	mock := testutil.NewMockWiki()
	defer mock.Close()

	payload := map[string]any{
		"entities": map[string]any{
			"P569": map[string]any{
				"id":       "P569",
				"type":     "property",
				"datatype": "time",
				"labels": map[string]any{
					"en": map[string]any{"language": "en", "value": "date of birth"},
				},
			},
		},
		"lastrevid": json.Number("2042103482"),
		"success":   json.Number("1"),
	}
	mock.SetEntity("P569", testutil.NewJSONResponse(payload))

	wikiClient := newClient(t, mock)
	snapshots := store.New(redisClient, store.Config{})
	ctx := context.Background()

	data, err := wikiClient.EntityData(ctx, "P569")
	if err != nil {
		t.Fatalf("EntityData failed: %v", err)
	}
	if !reflect.DeepEqual(data, payload) {
		t.Fatalf("EntityData = %v, want %v", data, payload)
	}

	if err := snapshots.SaveEntity(ctx, &store.EntitySnapshot{Endpoint: wikiClient.Endpoint(), ID: "P569", Payload: data}); err != nil {
		t.Fatalf("SaveEntity failed: %v", err)
	}

	loaded, err := snapshots.LoadEntity(ctx, wikiClient.Endpoint(), "P569")
	if err != nil {
		t.Fatalf("LoadEntity failed: %v", err)
	}
	if !reflect.DeepEqual(loaded.Payload, payload) {
		t.Errorf("Loaded payload differs: %v", loaded.Payload)
	}
}

// TestNoRetryOnErrors tests that failed requests are never retried.
func TestNoRetryOnErrors(t *testing.T) {
	tests := []struct {
		name      string
		response  testutil.MockResponse
		wantClass client.ErrorClass
	}{
		{"server error", testutil.NewServerErrorResponse(), client.ErrorClassServer},
		{"rate limited", testutil.NewRateLimitResponse(), client.ErrorClassClient},
		{"api error", testutil.NewAPIErrorResponse("maxlag", "Waiting for a database server."), client.ErrorClassAPI},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := testutil.NewMockWiki()
			defer mock.Close()
			mock.SetBacklinkPage("", tt.response)

			_, err := newClient(t, mock).Backlinks(context.Background(), "Q5", 10)

			var transportErr *client.TransportError
			if !errors.As(err, &transportErr) {
				t.Fatalf("Expected TransportError, got %v", err)
			}
			if transportErr.ErrorClass != tt.wantClass {
				t.Errorf("ErrorClass = %s, want %s", transportErr.ErrorClass, tt.wantClass)
			}
			if mock.GetRequestCount() != 1 {
				t.Errorf("Expected exactly 1 request (no retries), got %d", mock.GetRequestCount())
			}
		})
	}
}

// TestSnapshotExpiration tests that snapshots disappear after their TTL.
func TestSnapshotExpiration(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	snapshots := store.New(redisClient, store.Config{TTL: time.Second})
	ctx := context.Background()

	snap := &store.BacklinkSnapshot{
		Endpoint: client.DefaultEndpoint,
		Title:    "Q5",
		Limit:    10,
		Titles:   []string{"Q42"},
	}
	if err := snapshots.SaveBacklinks(ctx, snap); err != nil {
		t.Fatalf("SaveBacklinks failed: %v", err)
	}

	if _, err := snapshots.LoadBacklinks(ctx, client.DefaultEndpoint, "Q5"); err != nil {
		t.Fatalf("Snapshot should exist before TTL: %v", err)
	}

	time.Sleep(1500 * time.Millisecond)

	_, err := snapshots.LoadBacklinks(ctx, client.DefaultEndpoint, "Q5")
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Expected ErrNotFound after TTL, got %v", err)
	}
}

// TestMetricsIncremented tests that request and pagination metrics are exported.
func TestMetricsIncremented(t *testing.T) {
	mock := testutil.NewMockWiki()
	defer mock.Close()
	mock.SetBacklinkPage("", testutil.NewBacklinksResponse([]string{"Q42"}, nil))

	if _, err := newClient(t, mock).Backlinks(context.Background(), "Q5", 10); err != nil {
		t.Fatalf("Backlinks failed: %v", err)
	}

	w := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(w.Result().Body)

	for _, series := range []string{
		`wiki_requests_total{action="query",status="200"}`,
		`wiki_pagination_pages_total{list="backlinks"}`,
	} {
		if !strings.Contains(string(body), series) {
			t.Errorf("Expected metrics output to contain %s", series)
		}
	}
}

// TestUserAgentSent tests that every request identifies the client.
func TestUserAgentSent(t *testing.T) {
	mock := testutil.NewMockWiki()
	defer mock.Close()
	mock.SetEntity("Q42", testutil.NewJSONResponse(map[string]any{"success": 1}))

	if _, err := newClient(t, mock).EntityData(context.Background(), "Q42"); err != nil {
		t.Fatalf("EntityData failed: %v", err)
	}

	if got := mock.LastUserAgent(); got != "wiki-integration-test/1.0 (test@example.com)" {
		t.Errorf("User-Agent = %q", got)
	}
}
