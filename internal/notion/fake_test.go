package notion

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const testDatabaseID = "0f3c6b1e-5d2a-4c8e-9a57-1b2d3e4f5a6b"

// fakeNotion records requests and serves canned responses.
type fakeNotion struct {
	t *testing.T

	mu       sync.Mutex
	schema   map[string]PropertySchema
	existing []Page
	created  []map[string]any
	queries  []map[string]any
	headers  []http.Header

	// Overrides: status and body per route, applied when status != 0.
	queryStatus  int
	queryBody    string
	schemaStatus int
	schemaBody   string
	createStatus int
	createBody   string

	// createFailures answers the first N creates with failStatus.
	createFailures int
	failStatus     int
	createCalls    int
}

func newFakeNotion(t *testing.T) (*fakeNotion, *Client) {
	t.Helper()
	f := &fakeNotion{
		t: t,
		schema: map[string]PropertySchema{
			"Name":           {Type: TypeTitle},
			"Email":          {Type: TypeEmail},
			"Phone":          {Type: TypePhoneNumber},
			"Company":        {Type: TypeRichText},
			"Position":       {Type: TypeSelect},
			"GraduationTime": {Type: TypeRichText},
			"URL":            {Type: TypeURL},
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /databases/{id}/query", f.handleQuery)
	mux.HandleFunc("GET /databases/{id}", f.handleSchema)
	mux.HandleFunc("POST /pages", f.handleCreate)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.headers = append(f.headers, r.Header.Clone())
		f.mu.Unlock()
		mux.ServeHTTP(w, r)
	}))
	t.Cleanup(server.Close)

	client := NewClient(ClientOptions{
		APIKey:      "ntn_test_key",
		BaseURL:     server.URL,
		RateLimit:   1000,
		BaseBackoff: time.Millisecond,
	})
	return f, client
}

func (f *fakeNotion) decode(r *http.Request) map[string]any {
	raw, err := io.ReadAll(r.Body)
	require.NoError(f.t, err)
	var body map[string]any
	require.NoError(f.t, json.Unmarshal(raw, &body))
	return body
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

func (f *fakeNotion) handleQuery(w http.ResponseWriter, r *http.Request) {
	body := f.decode(r)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, body)

	if f.queryStatus != 0 {
		writeJSON(w, f.queryStatus, f.queryBody)
		return
	}
	resp, _ := json.Marshal(QueryResponse{Results: f.existing})
	writeJSON(w, http.StatusOK, string(resp))
}

func (f *fakeNotion) handleSchema(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.schemaStatus != 0 {
		writeJSON(w, f.schemaStatus, f.schemaBody)
		return
	}
	resp, _ := json.Marshal(Database{ID: r.PathValue("id"), Properties: f.schema})
	writeJSON(w, http.StatusOK, string(resp))
}

func (f *fakeNotion) handleCreate(w http.ResponseWriter, r *http.Request) {
	body := f.decode(r)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls++

	if f.createCalls <= f.createFailures {
		writeJSON(w, f.failStatus, `{"object": "error", "code": "service_unavailable", "message": "try again"}`)
		return
	}
	if f.createStatus != 0 {
		writeJSON(w, f.createStatus, f.createBody)
		return
	}
	f.created = append(f.created, body)
	writeJSON(w, http.StatusOK, `{"object": "page", "id": "page-123", "url": "https://www.notion.so/page-123"}`)
}
