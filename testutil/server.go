package testutil

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

// FakeAPI is an in-memory session backend served over HTTP
type FakeAPI struct {
	Server *httptest.Server

	mu       sync.Mutex
	list     string
	details  map[string]string
	failList bool
	deleted  []string
	requests []*http.Request
}

// NewFakeAPI starts a fake backend that serves list as the session list
func NewFakeAPI(t *testing.T, list string, details map[string]string) *FakeAPI {
	t.Helper()
	api := &FakeAPI{list: list, details: make(map[string]string)}
	for id, body := range details {
		api.details[id] = body
	}
	api.Server = httptest.NewServer(http.HandlerFunc(api.serve))
	t.Cleanup(api.Server.Close)
	return api
}

// URL returns the base URL of the fake backend
func (a *FakeAPI) URL() string {
	return a.Server.URL
}

// SetList replaces the session list body
func (a *FakeAPI) SetList(list string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.list = list
}

// FailList makes list requests return 500 while fail is true
func (a *FakeAPI) FailList(fail bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.failList = fail
}

// Deleted returns the ids deleted so far
func (a *FakeAPI) Deleted() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.deleted...)
}

// Requests returns the requests received so far
func (a *FakeAPI) Requests() []*http.Request {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]*http.Request(nil), a.requests...)
}

func (a *FakeAPI) serve(w http.ResponseWriter, r *http.Request) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.requests = append(a.requests, r.Clone(r.Context()))

	if r.URL.Path == "/api/sessions" && r.Method == http.MethodGet {
		if a.failList {
			http.Error(w, "unavailable", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(a.list))
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/api/sessions/")
	if id == r.URL.Path || id == "" {
		http.NotFound(w, r)
		return
	}
	body, ok := a.details[id]
	if !ok {
		http.NotFound(w, r)
		return
	}

	switch r.Method {
	case http.MethodGet:
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	case http.MethodDelete:
		delete(a.details, id)
		a.deleted = append(a.deleted, id)
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}
