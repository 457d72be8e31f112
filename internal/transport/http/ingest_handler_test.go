package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"indexcli/pkg/contracts/domain"
)

type fakeService struct {
	mu      sync.Mutex
	runs    []string
	results []*domain.IngestionResult
	ran     chan string
}

func newFakeService() *fakeService {
	return &fakeService{ran: make(chan string, 8)}
}

func (f *fakeService) Families() []string { return []string{"cpi", "ppi", "cci"} }

func (f *fakeService) RunFamily(ctx context.Context, id string) (*domain.IngestionResult, error) {
	f.mu.Lock()
	f.runs = append(f.runs, id)
	f.mu.Unlock()
	f.ran <- id
	return &domain.IngestionResult{RunID: "run-" + id, Family: id}, nil
}

func (f *fakeService) LastResults() []*domain.IngestionResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.results
}

func TestHealth(t *testing.T) {
	svc := newFakeService()
	srv := httptest.NewServer(NewRouter(svc, nil))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Status   string   `json:"status"`
		Families []string `json:"families"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, []string{"cpi", "ppi", "cci"}, body.Families)
}

func TestResults(t *testing.T) {
	svc := newFakeService()
	svc.results = []*domain.IngestionResult{
		{RunID: "run-1", Family: "cpi", SuccessCount: 3},
	}
	srv := httptest.NewServer(NewRouter(svc, nil))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/results")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body []struct {
		RunID        string `json:"run_id"`
		Family       string `json:"family"`
		SuccessCount int    `json:"success_count"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Len(t, body, 1)
	assert.Equal(t, "cpi", body[0].Family)
	assert.Equal(t, 3, body[0].SuccessCount)
}

func TestTriggerAccepted(t *testing.T) {
	svc := newFakeService()
	srv := httptest.NewServer(NewRouter(svc, nil))
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/api/ingest/cpi", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	select {
	case id := <-svc.ran:
		assert.Equal(t, "cpi", id)
	case <-time.After(5 * time.Second):
		t.Fatal("triggered run never started")
	}
}

func TestTriggerUnknownFamily(t *testing.T) {
	svc := newFakeService()
	srv := httptest.NewServer(NewRouter(svc, nil))
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/api/ingest/gdp", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Empty(t, svc.runs)
}
