package remote

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fieldsync-backend/config"
	"fieldsync-backend/internal/model"
)

var fixedNow = time.Date(2025, time.March, 7, 12, 0, 0, 0, time.UTC)

const sampleMillis int64 = 1741357815000 // 07/03/2025 14:30:15 UTC

func newTestClient(url string) *Client {
	c := NewClient(config.RemoteConfig{URL: url, Timezone: "UTC", Timeout: 2 * time.Second})
	c.now = func() time.Time { return fixedNow }
	return c
}

func samplePushInput() ([]model.Report, []model.PendingItem) {
	reports := []model.Report{{
		ID:        "r1",
		Timestamp: sampleMillis,
		Area:      "BOMBEAMENTO",
		Operator:  "carlos",
		Crew:      model.CrewC,
		Shift:     model.ShiftNight,
		Items: []model.ChecklistItem{
			{Label: "BOMBA 01", Status: model.ItemFail},
			{Label: "- selagem", Status: model.ItemWarning},
			{Label: "TQ-05", Status: model.ItemOK},
		},
		GeneralNotes: "vazamento\x00 leve",
	}}
	pending := []model.PendingItem{
		{
			ID: "p1", Tag: "BOMBA 01", Area: "BOMBEAMENTO", Discipline: "MECANICA",
			Description: "out of service", Priority: model.PriorityHigh, Status: model.StatusOpen,
			Operator: "carlos", Crew: model.CrewC, Timestamp: sampleMillis,
		},
		{
			ID: "p2", Tag: "v-22", Area: "DFP 2", Discipline: "OPERATION",
			Description: "leak", Priority: model.PriorityLow, Status: model.StatusResolved,
			Operator: "ANA", Crew: model.CrewA, ResolvedBy: "JOAO", ResolvedByCrew: model.CrewB,
		},
	}
	return reports, pending
}

func TestBuildPayload_Golden(t *testing.T) {
	reports, pending := samplePushInput()

	payload := BuildPayload(reports, pending, time.UTC, fixedNow)
	body, err := json.MarshalIndent(payload, "", "  ")
	require.NoError(t, err)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "push_payload", body)
}

func TestPush_PostsPayload(t *testing.T) {
	var mu sync.Mutex
	var got Payload
	var contentType, customHeader string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		assert.Equal(t, http.MethodPost, r.Method)
		contentType = r.Header.Get("Content-Type")
		customHeader = r.Header.Get("X-Device")
		body, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(body, &got))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	c := NewClient(config.RemoteConfig{URL: server.URL, Headers: map[string]string{"X-Device": "tablet-3"}})
	reports, pending := samplePushInput()

	ack := c.Push(context.Background(), reports, pending)

	assert.True(t, ack.Success)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "application/json", contentType)
	assert.Equal(t, "tablet-3", customHeader)
	assert.Equal(t, "sync", got.Action)
	assert.Equal(t, ProtocolVersion, got.Version)
	assert.Len(t, got.Reports, 1)
	assert.Len(t, got.Pending, 2)
}

func TestPush_NonSuccessStatusStillCountsAsDispatched(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	ack := newTestClient(server.URL).Push(context.Background(), nil, nil)
	assert.True(t, ack.Success)
}

func TestPush_NotConfigured(t *testing.T) {
	ack := newTestClient("").Push(context.Background(), nil, nil)
	assert.False(t, ack.Success)
	assert.Equal(t, "remote endpoint not configured", ack.Message)
}

func TestPush_NetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	ack := newTestClient(url).Push(context.Background(), nil, nil)
	assert.False(t, ack.Success)
}

func TestPullItems(t *testing.T) {
	var query string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"id":"","tag":" p-101 ","status":"OPEN","priority":"HIGH","discipline":"eletrica","originOperator":"","originCrew":"","resolvedBy":"-","resolvedByCrew":"-","date":"07/03/2025 14:30:15"},
			{"id":"x9","tag":"V-22","status":"closed","priority":"urgent","resolvedBy":"-","resolvedByCrew":"-","date":"garbage"},
			{"id":"x10","tag":"  ","status":"OPEN"}
		]`))
	}))
	defer server.Close()

	items, ok := newTestClient(server.URL).PullItems(context.Background())

	require.True(t, ok)
	assert.Equal(t, "action=listPending&t=1741348800000", query)
	require.Len(t, items, 2, "records without a tag are dropped")

	open := items[0]
	assert.Equal(t, "cloud-P-101", open.ID)
	assert.Equal(t, "P-101", open.Tag)
	assert.Equal(t, model.StatusOpen, open.Status)
	assert.Equal(t, model.PriorityHigh, open.Priority)
	assert.Equal(t, "ELETRICA", open.Discipline)
	assert.Equal(t, "SYSTEM", open.Operator)
	assert.Equal(t, model.CrewA, open.Crew)
	assert.Empty(t, open.ResolvedBy)
	assert.Equal(t, sampleMillis, open.Timestamp)
	assert.True(t, open.Synced)

	resolved := items[1]
	assert.Equal(t, "x9", resolved.ID)
	assert.Equal(t, model.StatusResolved, resolved.Status)
	assert.Equal(t, model.PriorityLow, resolved.Priority)
	assert.Equal(t, "OPERATION", resolved.Discipline)
	assert.Equal(t, "SYSTEM", resolved.ResolvedBy, "a resolved record always names a resolver")
	assert.Empty(t, resolved.ResolvedByCrew)
	assert.Equal(t, int64(0), resolved.Timestamp)
}

func TestPullItems_FailsClosed(t *testing.T) {
	testCases := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "Login page instead of JSON",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "text/html")
				_, _ = w.Write([]byte("<html><body>Sign in</body></html>"))
			},
		},
		{
			name: "Server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			},
		},
		{
			name: "JSON object instead of array",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"error":"quota"}`))
			},
		},
		{
			name: "JSON null",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(" null\n"))
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(tc.handler)
			defer server.Close()

			items, ok := newTestClient(server.URL).PullItems(context.Background())
			assert.False(t, ok)
			assert.Nil(t, items)
		})
	}
}

func TestPullItems_EmptyArrayIsSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	}))
	defer server.Close()

	items, ok := newTestClient(server.URL).PullItems(context.Background())
	assert.True(t, ok)
	assert.Empty(t, items)
}

func TestPullStats(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "stats", r.URL.Query().Get("action"))
		_, _ = w.Write([]byte(`{"ok":10,"warning":2,"fail":1,"na":0,"total":13}`))
	}))
	defer server.Close()

	stats := newTestClient(server.URL).PullStats(context.Background())
	require.NotNil(t, stats)
	assert.Equal(t, model.Stats{OK: 10, Warning: 2, Fail: 1, NA: 0, Total: 13}, *stats)

	assert.Nil(t, newTestClient("").PullStats(context.Background()))
}

func TestPing(t *testing.T) {
	testCases := []struct {
		name     string
		body     string
		expected bool
	}{
		{name: "Success marker", body: "SUCCESS", expected: true},
		{name: "Protocol marker", body: `{"version":"v1.3_stable"}`, expected: true},
		{name: "Unrelated page", body: "<html>hello</html>", expected: false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "test", r.URL.Query().Get("action"))
				_, _ = w.Write([]byte(tc.body))
			}))
			defer server.Close()

			ack := newTestClient(server.URL).Ping(context.Background())
			assert.Equal(t, tc.expected, ack.Success)
		})
	}
}

func TestPing_InvalidURL(t *testing.T) {
	assert.False(t, newTestClient("ftp://example.com/x").Ping(context.Background()).Success)
	assert.False(t, newTestClient("").Ping(context.Background()).Success)
}
