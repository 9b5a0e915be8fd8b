//go:build functional

// Package functional provides functional tests for the catalog REST API and WebSocket sessions.
package functional

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/vyrodovalexey/region-catalog/internal/catalog"
	"github.com/vyrodovalexey/region-catalog/internal/config"
	"github.com/vyrodovalexey/region-catalog/internal/events"
	"github.com/vyrodovalexey/region-catalog/internal/model"
	"github.com/vyrodovalexey/region-catalog/internal/server"
	"github.com/vyrodovalexey/region-catalog/internal/store"
)

// Environment variable names for test configuration.
const (
	EnvTestServerHost = "TEST_SERVER_HOST"
	EnvTestTimeout    = "TEST_TIMEOUT"
	EnvTestLogLevel   = "TEST_LOG_LEVEL"
)

// Default test configuration values.
const (
	DefaultTestHost         = "localhost"
	DefaultTestTimeout      = 30 * time.Second
	DefaultRequestTimeout   = 5 * time.Second
	DefaultWebSocketTimeout = 10 * time.Second
	DefaultShutdownTimeout  = 5 * time.Second
	DefaultConfirmTimeout   = 2 * time.Second
	DefaultLogLevel         = "error"
)

// TestRegions are seeded into every test server.
var TestRegions = []model.Region{
	{ID: "north", Name: "Nord"},
	{ID: "south", Name: "Süd"},
}

// TestConfig holds test configuration loaded from environment.
type TestConfig struct {
	Host     string
	Timeout  time.Duration
	LogLevel string
}

// LoadTestConfig loads test configuration from environment variables.
func LoadTestConfig() *TestConfig {
	cfg := &TestConfig{
		Host:     DefaultTestHost,
		Timeout:  DefaultTestTimeout,
		LogLevel: DefaultLogLevel,
	}

	if host := os.Getenv(EnvTestServerHost); host != "" {
		cfg.Host = host
	}

	if timeoutStr := os.Getenv(EnvTestTimeout); timeoutStr != "" {
		if timeout, err := time.ParseDuration(timeoutStr); err == nil {
			cfg.Timeout = timeout
		}
	}

	if logLevel := os.Getenv(EnvTestLogLevel); logLevel != "" {
		cfg.LogLevel = logLevel
	}

	return cfg
}

// TestServer wraps a catalog server on a free local port.
type TestServer struct {
	Server   *server.Server
	Store    *store.MemoryStore
	BaseURL  string
	WSURL    string
	Port     int
	timeout  time.Duration
	listener net.Listener
	t        *testing.T
	mu       sync.Mutex
	started  bool
}

// NewTestServer creates a new test server instance backed by an in-memory store.
func NewTestServer(t *testing.T) *TestServer {
	t.Helper()

	testCfg := LoadTestConfig()

	// Find an available port
	listener, err := net.Listen("tcp", fmt.Sprintf("%s:0", testCfg.Host))
	if err != nil {
		t.Fatalf("Failed to find available port: %v", err)
	}

	port := listener.Addr().(*net.TCPAddr).Port

	cfg := &config.Config{
		ServerPort:      port,
		LogLevel:        testCfg.LogLevel,
		ShutdownTimeout: DefaultShutdownTimeout,
		StoreBackend:    config.StoreBackendMemory,
		Regions:         TestRegions,
		CollationLocale: config.DefaultCollationLocale,
		ConfirmTimeout:  DefaultConfirmTimeout,
	}

	logger := zap.NewNop()
	itemStore := store.NewMemoryStore()
	bus := events.NewLocalBus(logger)
	svc := catalog.NewService(itemStore, itemStore, bus, logger)
	if err := svc.SeedRegions(context.Background(), cfg.Regions); err != nil {
		t.Fatalf("Failed to seed regions: %v", err)
	}

	return &TestServer{
		Server:   server.New(cfg, logger, svc, bus),
		Store:    itemStore,
		BaseURL:  fmt.Sprintf("http://%s:%d", testCfg.Host, port),
		WSURL:    fmt.Sprintf("ws://%s:%d/ws", testCfg.Host, port),
		Port:     port,
		timeout:  testCfg.Timeout,
		listener: listener,
		t:        t,
	}
}

// Start starts the test server and waits until it answers health checks.
func (ts *TestServer) Start() {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	if ts.started {
		return
	}

	// Close the listener we used to find the port
	ts.listener.Close()

	go func() {
		if err := ts.Server.Start(); err != nil && err != http.ErrServerClosed {
			ts.t.Logf("Server error: %v", err)
		}
	}()

	ts.waitForReady()
	ts.started = true
}

func (ts *TestServer) waitForReady() {
	ctx, cancel := context.WithTimeout(context.Background(), ts.timeout)
	defer cancel()

	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			ts.t.Fatalf("Server did not become ready within timeout")
		case <-ticker.C:
			resp, err := http.Get(ts.BaseURL + "/health")
			if err == nil {
				resp.Body.Close()
				if resp.StatusCode == http.StatusOK {
					return
				}
			}
		}
	}
}

// Stop stops the test server.
func (ts *TestServer) Stop() {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	if !ts.started {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), DefaultShutdownTimeout)
	defer cancel()

	if err := ts.Server.Shutdown(ctx); err != nil {
		ts.t.Logf("Server shutdown error: %v", err)
	}

	ts.started = false
}

// Seed stores an item directly, bypassing the API.
func (ts *TestServer) Seed(name, region string, order int) model.Item {
	ts.t.Helper()

	created, err := ts.Store.Create(context.Background(), &model.Item{
		Name:    name,
		Regions: []string{region},
		Order:   order,
	})
	if err != nil {
		ts.t.Fatalf("Failed to seed item %q: %v", name, err)
	}
	return *created
}

// HTTPClient provides a configured HTTP client for tests.
type HTTPClient struct {
	client  *http.Client
	baseURL string
	t       *testing.T
}

// NewHTTPClient creates a new HTTP client for testing.
func NewHTTPClient(t *testing.T, baseURL string) *HTTPClient {
	return &HTTPClient{
		client: &http.Client{
			Timeout: DefaultRequestTimeout,
		},
		baseURL: baseURL,
		t:       t,
	}
}

// Response represents an HTTP response.
type Response struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
}

// Do executes an HTTP request and returns the response.
func (c *HTTPClient) Do(ctx context.Context, method, path string, body interface{}) (*Response, error) {
	var bodyReader io.Reader
	if body != nil {
		switch v := body.(type) {
		case string:
			bodyReader = bytes.NewBufferString(v)
		default:
			jsonBody, err := json.Marshal(body)
			if err != nil {
				return nil, fmt.Errorf("failed to marshal request body: %w", err)
			}
			bodyReader = bytes.NewBuffer(jsonBody)
		}
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Body:       data,
	}, nil
}

// MustDo executes a request with the default timeout and fails the test on transport errors.
func (c *HTTPClient) MustDo(method, path string, body interface{}) *Response {
	c.t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), DefaultRequestTimeout)
	defer cancel()

	resp, err := c.Do(ctx, method, path, body)
	if err != nil {
		c.t.Fatalf("%s %s failed: %v", method, path, err)
	}
	return resp
}

// APIResponse represents a generic API response structure.
type APIResponse struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// ParseAPIResponse parses an API response from bytes.
func ParseAPIResponse(t *testing.T, body []byte) *APIResponse {
	t.Helper()

	var resp APIResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		t.Fatalf("Failed to parse API response %s: %v", string(body), err)
	}
	return &resp
}

// ParseItems parses a list of items from a response body.
func ParseItems(t *testing.T, body []byte) []model.Item {
	t.Helper()

	apiResp := ParseAPIResponse(t, body)
	if len(apiResp.Data) == 0 || string(apiResp.Data) == "null" {
		return []model.Item{}
	}

	var items []model.Item
	if err := json.Unmarshal(apiResp.Data, &items); err != nil {
		t.Fatalf("Failed to parse items: %v", err)
	}
	return items
}

// ItemNames joins item names with commas.
func ItemNames(items []model.Item) string {
	names := make([]string, 0, len(items))
	for _, i := range items {
		names = append(names, i.Name)
	}
	return strings.Join(names, ",")
}

// ItemOrders maps item names to their order values.
func ItemOrders(items []model.Item) map[string]int {
	orders := make(map[string]int, len(items))
	for _, i := range items {
		orders[i.Name] = i.Order
	}
	return orders
}

// AssertStatusCode asserts that the response has the expected status code.
func AssertStatusCode(t *testing.T, resp *Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		t.Errorf("Expected status code %d, got %d. Body: %s", expected, resp.StatusCode, string(resp.Body))
	}
}

// LogTestStart logs the start of a test.
func LogTestStart(t *testing.T, testID, testName string) {
	t.Helper()
	t.Logf("Starting test %s: %s", testID, testName)
}

// LogTestEnd logs the end of a test.
func LogTestEnd(t *testing.T, testID string) {
	t.Helper()
	t.Logf("Completed test %s", testID)
}
