package testutil

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/releasedesk/backend/internal/config"
)

// Request is a call received by the fake distribution API
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Header http.Header
	Body   []byte
	Form   map[string]string
	Files  map[string][]byte
}

// DecodeJSON decodes the request body into v
func (r Request) DecodeJSON(v interface{}) error {
	return json.Unmarshal(r.Body, v)
}

// HandlerFunc answers one recorded request
type HandlerFunc func(w http.ResponseWriter, r Request)

// Upstream is a fake distribution API on an httptest server
type Upstream struct {
	Server *httptest.Server

	mu       sync.Mutex
	routes   map[string]HandlerFunc
	requests []Request
}

func NewUpstream(t testing.TB) *Upstream {
	u := &Upstream{routes: map[string]HandlerFunc{}}
	u.Server = httptest.NewServer(http.HandlerFunc(u.serve))
	t.Cleanup(u.Server.Close)
	return u
}

// Config returns a config pointed at the fake API
func (u *Upstream) Config() *config.Config {
	cfg := config.New()
	cfg.UpstreamBaseURL = u.Server.URL
	cfg.UpstreamClientID = "test-client"
	cfg.UpstreamTimeout = 5 * time.Second
	cfg.JWTSecret = "test-secret"
	return cfg
}

// Handle registers h for method and path
func (u *Upstream) Handle(method, path string, h HandlerFunc) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.routes[method+" "+path] = h
}

// JSON answers method and path with a fixed status and JSON body
func (u *Upstream) JSON(method, path string, status int, body interface{}) {
	u.Handle(method, path, func(w http.ResponseWriter, _ Request) {
		WriteJSON(w, status, body)
	})
}

// Requests returns the calls received on path in order
func (u *Upstream) Requests(path string) []Request {
	u.mu.Lock()
	defer u.mu.Unlock()
	var out []Request
	for _, r := range u.requests {
		if r.Path == path {
			out = append(out, r)
		}
	}
	return out
}

// Paths returns the path of every call received in order
func (u *Upstream) Paths() []string {
	u.mu.Lock()
	defer u.mu.Unlock()
	paths := make([]string, 0, len(u.requests))
	for _, r := range u.requests {
		paths = append(paths, r.Path)
	}
	return paths
}

// WriteJSON writes body as JSON with status
func WriteJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func (u *Upstream) serve(w http.ResponseWriter, r *http.Request) {
	rec := Request{
		Method: r.Method,
		Path:   r.URL.Path,
		Query:  r.URL.Query(),
		Header: r.Header.Clone(),
		Form:   map[string]string{},
		Files:  map[string][]byte{},
	}
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
		if err := r.ParseMultipartForm(64 << 20); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		for k, v := range r.MultipartForm.Value {
			rec.Form[k] = v[0]
		}
		for k, headers := range r.MultipartForm.File {
			f, err := headers[0].Open()
			if err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			rec.Files[k], _ = io.ReadAll(f)
			f.Close()
		}
	} else {
		rec.Body, _ = io.ReadAll(r.Body)
	}

	u.mu.Lock()
	u.requests = append(u.requests, rec)
	h, ok := u.routes[r.Method+" "+r.URL.Path]
	u.mu.Unlock()

	if !ok {
		WriteJSON(w, http.StatusNotFound, map[string]string{"message": "route not found"})
		return
	}
	h(w, rec)
}
