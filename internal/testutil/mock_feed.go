// Package testutil provides testing utilities for the parking feed client.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Envelope is the envelope name served by the mock.
const Envelope = "SearchParkingInfoRealtime"

// Row is one feed row as the upstream service serializes it.
type Row struct {
	Code       any `json:"PARKING_CODE,omitempty"`
	Name       any `json:"PARKING_NAME,omitempty"`
	Lat        any `json:"LAT,omitempty"`
	Lng        any `json:"LNG,omitempty"`
	Capacity   any `json:"CAPACITY,omitempty"`
	CurParking any `json:"CUR_PARKING,omitempty"`
}

// NewRow creates a well-formed row with quoted coordinates, the way the
// service usually sends them.
func NewRow(code string, capacity, current int) Row {
	return Row{
		Code:       code,
		Name:       "주차장 " + code,
		Lat:        "37.566696",
		Lng:        "126.977942",
		Capacity:   capacity,
		CurParking: current,
	}
}

// FeedBody renders a complete feed document.
func FeedBody(total int, rows ...Row) string {
	if rows == nil {
		rows = []Row{}
	}
	doc := map[string]any{
		Envelope: map[string]any{
			"list_total_count": total,
			"RESULT":           map[string]string{"CODE": "INFO-000", "MESSAGE": "정상 처리되었습니다"},
			"row":              rows,
		},
	}
	data, err := json.Marshal(doc)
	if err != nil {
		panic(err)
	}
	return string(data)
}

// NoDataBody is what the service returns for a window past the end.
const NoDataBody = `{"RESULT":{"CODE":"INFO-200","MESSAGE":"해당하는 데이터가 없습니다."}}`

// MockResponse defines the behavior for a mock feed response.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
	// Gate, when set, holds the response until it is closed or the request
	// is cancelled.
	Gate <-chan struct{}
}

// MockFeed is a configurable mock of the open-data endpoint.
type MockFeed struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]http.HandlerFunc
	rows     []Row

	// Tracking
	RequestCount      int
	Paths             []string
	LastRequestHeader http.Header
}

// NewMockFeed creates a new mock feed server. Without custom handlers it
// serves the rows set by SetRows, windowed by the trailing START/END path
// segments.
func NewMockFeed() *MockFeed {
	mock := &MockFeed{
		handlers: make(map[string]http.HandlerFunc),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		mock.RequestCount++
		mock.Paths = append(mock.Paths, r.URL.EscapedPath())
		mock.LastRequestHeader = r.Header.Clone()
		handler, exists := mock.handlers[r.URL.EscapedPath()]
		mock.mu.Unlock()

		if exists {
			handler(w, r)
			return
		}

		mock.windowHandler(w, r)
	}))

	return mock
}

// URL returns the mock server URL.
func (m *MockFeed) URL() string {
	return m.server.URL
}

// BaseURL returns a feed base URL with a fake access key, ending in "/".
func (m *MockFeed) BaseURL() string {
	return m.server.URL + "/test-key/json/" + Envelope + "/"
}

// Close shuts down the mock server.
func (m *MockFeed) Close() {
	m.server.Close()
}

// Reset clears all tracking counters.
func (m *MockFeed) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RequestCount = 0
	m.Paths = nil
	m.LastRequestHeader = nil
}

// SetRows sets the rows served by the default windowed handler.
func (m *MockFeed) SetRows(rows ...Row) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows = rows
}

// SetHandler sets a custom handler for a specific escaped path.
func (m *MockFeed) SetHandler(path string, handler http.HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetResponse configures a fixed response for a path.
func (m *MockFeed) SetResponse(path string, resp MockResponse) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		if resp.Delay > 0 {
			select {
			case <-time.After(resp.Delay):
			case <-r.Context().Done():
				return
			}
		}
		if resp.Gate != nil {
			select {
			case <-resp.Gate:
			case <-r.Context().Done():
				return
			}
		}

		for key, value := range resp.Headers {
			w.Header().Set(key, value)
		}

		w.WriteHeader(resp.StatusCode)
		if resp.Body != "" {
			w.Write([]byte(resp.Body))
		}
	})
}

// SetDefaultResponse configures a fixed response for every path without a
// dedicated handler.
func (m *MockFeed) SetDefaultResponse(resp MockResponse) {
	m.SetResponse("*", resp)
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockFeed) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestCount
}

// GetPaths returns the escaped request paths in arrival order.
func (m *MockFeed) GetPaths() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.Paths...)
}

// windowHandler mimics the service: the last two integer path segments are a
// 1-based inclusive START/END pair.
func (m *MockFeed) windowHandler(w http.ResponseWriter, r *http.Request) {
	m.mu.RLock()
	fallback, hasFallback := m.handlers["*"]
	rows := m.rows
	m.mu.RUnlock()

	if hasFallback {
		fallback(w, r)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")

	start, end, ok := window(r.URL.Path)
	if !ok {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"RESULT":{"CODE":"ERROR-336","MESSAGE":"요청위치 값을 확인하십시오."}}`))
		return
	}

	if start > len(rows) || start < 1 {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(NoDataBody))
		return
	}
	if end > len(rows) {
		end = len(rows)
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte(FeedBody(len(rows), rows[start-1:end]...)))
}

func window(path string) (int, int, bool) {
	var nums []int
	for _, seg := range strings.Split(strings.Trim(path, "/"), "/") {
		if n, err := strconv.Atoi(seg); err == nil {
			nums = append(nums, n)
		}
	}
	if len(nums) < 2 {
		return 0, 0, false
	}
	start, end := nums[len(nums)-2], nums[len(nums)-1]
	if end < start {
		return 0, 0, false
	}
	return start, end, true
}

// NewOKResponse creates a standard 200 response carrying body.
func NewOKResponse(body string) MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       body,
		Headers:    map[string]string{"Content-Type": "application/json; charset=utf-8"},
	}
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `<html><body>Internal Server Error</body></html>`,
		Headers:    map[string]string{"Content-Type": "text/html"},
	}
}

// NewStatusResponse creates an empty response with the given status.
func NewStatusResponse(statusCode int) MockResponse {
	return MockResponse{StatusCode: statusCode, Body: fmt.Sprintf("status %d", statusCode)}
}
