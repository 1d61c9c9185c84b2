package dialog

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"Agent311/internal/api"
	"Agent311/internal/auth"
	"Agent311/internal/backend"
	"Agent311/internal/session"
	"Agent311/internal/telemetry"
)

type memKV map[string]string

func (m memKV) Get(key string) (string, bool, error) {
	v, ok := m[key]
	return v, ok, nil
}

func (m memKV) Set(key, value string) error {
	m[key] = value
	return nil
}

func (m memKV) Delete(key string) error {
	delete(m, key)
	return nil
}

type fetchFixture struct {
	status int
	file   session.FetchedFile
}

// fakeBackend is an in-memory agent server.
type fakeBackend struct {
	t *testing.T

	mu             sync.Mutex
	clock          time.Time
	sessions       map[string]*session.Session
	sessionPatches map[string][]backend.SessionPatch
	messagePatches map[string]string
	chatRequests   []backend.ChatRequest
	chatStatus     int
	chatScript     func(w http.ResponseWriter, r *http.Request)
	files          map[string]fetchFixture
	fetched        []string
	reports        []session.ReportFile
	uploads        []string
	deletedReports []string
	blobs          map[string]string
}

func newFakeBackend(t *testing.T) *fakeBackend {
	return &fakeBackend{
		t:              t,
		clock:          time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		sessions:       map[string]*session.Session{},
		sessionPatches: map[string][]backend.SessionPatch{},
		messagePatches: map[string]string{},
		files:          map[string]fetchFixture{},
		blobs:          map[string]string{},
	}
}

// tick returns a strictly increasing timestamp. Callers hold mu.
func (f *fakeBackend) tick() session.Timestamp {
	f.clock = f.clock.Add(time.Minute)
	return session.Timestamp{Time: f.clock}
}

func (f *fakeBackend) addSession(id, title string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := f.tick()
	f.sessions[id] = &session.Session{ID: id, Title: title, CreatedAt: now, UpdatedAt: now}
}

func (f *fakeBackend) writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	require.NoError(f.t, json.NewEncoder(w).Encode(v))
}

func (f *fakeBackend) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/sessions", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		list := make([]session.Session, 0, len(f.sessions))
		for _, s := range f.sessions {
			summary := *s
			summary.Messages = nil
			list = append(list, summary)
		}
		f.mu.Unlock()
		sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
		f.writeJSON(w, list)
	})

	mux.HandleFunc("GET /api/sessions/{id}", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		s, ok := f.sessions[r.PathValue("id")]
		var out session.Session
		if ok {
			out = *s
		}
		f.mu.Unlock()
		if !ok {
			http.Error(w, `{"detail":"Session not found"}`, http.StatusNotFound)
			return
		}
		f.writeJSON(w, out)
	})

	mux.HandleFunc("POST /api/sessions", func(w http.ResponseWriter, r *http.Request) {
		var req backend.CreateSessionRequest
		require.NoError(f.t, json.NewDecoder(r.Body).Decode(&req))
		f.mu.Lock()
		now := f.tick()
		s := &session.Session{ID: req.ID, Title: req.Title, CreatedAt: now, UpdatedAt: now}
		f.sessions[req.ID] = s
		out := *s
		f.mu.Unlock()
		f.writeJSON(w, out)
	})

	mux.HandleFunc("PATCH /api/sessions/{id}", func(w http.ResponseWriter, r *http.Request) {
		var patch backend.SessionPatch
		require.NoError(f.t, json.NewDecoder(r.Body).Decode(&patch))
		id := r.PathValue("id")
		f.mu.Lock()
		defer f.mu.Unlock()
		f.sessionPatches[id] = append(f.sessionPatches[id], patch)
		if s, ok := f.sessions[id]; ok {
			if patch.Title != nil {
				s.Title = *patch.Title
			}
			if patch.IsFavorite != nil {
				s.IsFavorite = *patch.IsFavorite
			}
			s.UpdatedAt = f.tick()
		}
		w.WriteHeader(http.StatusNoContent)
	})

	mux.HandleFunc("DELETE /api/sessions/{id}", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		delete(f.sessions, r.PathValue("id"))
		f.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	})

	mux.HandleFunc("PATCH /api/messages/{id}", func(w http.ResponseWriter, r *http.Request) {
		var patch backend.MessagePatch
		require.NoError(f.t, json.NewDecoder(r.Body).Decode(&patch))
		f.mu.Lock()
		f.messagePatches[r.PathValue("id")] = patch.Content
		f.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	})

	mux.HandleFunc("POST /api/chat", func(w http.ResponseWriter, r *http.Request) {
		var req backend.ChatRequest
		require.NoError(f.t, json.NewDecoder(r.Body).Decode(&req))
		f.mu.Lock()
		f.chatRequests = append(f.chatRequests, req)
		status, script := f.chatStatus, f.chatScript
		if s, ok := f.sessions[req.SessionID]; ok {
			s.UpdatedAt = f.tick()
		}
		f.mu.Unlock()

		if status != 0 {
			w.WriteHeader(status)
			return
		}
		w.Header().Set("Content-Type", "text/event-stream")
		if script != nil {
			script(w, r)
		}
	})

	mux.HandleFunc("GET /api/reports", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		files := append([]session.ReportFile{}, f.reports...)
		f.mu.Unlock()
		f.writeJSON(w, map[string]interface{}{"files": files})
	})

	mux.HandleFunc("GET /api/fetch_file", func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Query().Get("path")
		f.mu.Lock()
		f.fetched = append(f.fetched, path)
		fixture, ok := f.files[path]
		f.mu.Unlock()
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if fixture.status != 0 {
			w.WriteHeader(fixture.status)
			return
		}
		f.writeJSON(w, fixture.file)
	})

	mux.HandleFunc("GET /api/reports/download", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		blob, ok := f.blobs[r.URL.Query().Get("path")]
		f.mu.Unlock()
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		io.WriteString(w, blob)
	})

	mux.HandleFunc("POST /api/reports/upload", func(w http.ResponseWriter, r *http.Request) {
		_, header, err := r.FormFile("file")
		require.NoError(f.t, err)
		f.mu.Lock()
		f.uploads = append(f.uploads, header.Filename)
		file := session.ReportFile{Name: header.Filename, Path: "reports/" + header.Filename, ModifiedAt: f.tick()}
		f.reports = append(f.reports, file)
		f.mu.Unlock()
		f.writeJSON(w, file)
	})

	mux.HandleFunc("DELETE /api/reports/{name}", func(w http.ResponseWriter, r *http.Request) {
		name := r.PathValue("name")
		f.mu.Lock()
		defer f.mu.Unlock()
		f.deletedReports = append(f.deletedReports, name)
		kept := f.reports[:0]
		for _, rf := range f.reports {
			if rf.Name != name {
				kept = append(kept, rf)
			}
		}
		f.reports = kept
		w.WriteHeader(http.StatusNoContent)
	})

	return mux
}

// streamDeltas writes each delta as a text-delta event and flushes.
func streamDeltas(w http.ResponseWriter, deltas ...string) {
	flusher := w.(http.Flusher)
	fmt.Fprint(w, "data: {\"type\":\"start\"}\n")
	for _, d := range deltas {
		payload, _ := json.Marshal(backend.StreamEvent{Type: backend.EventTextDelta, Delta: &d})
		fmt.Fprintf(w, "data: %s\n", payload)
		flusher.Flush()
	}
}

type harness struct {
	backend *fakeBackend
	ctrl    *Controller
	tokens  *auth.TokenStore
	authc   *auth.Client
	logins  int
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	fb := newFakeBackend(t)
	srv := httptest.NewServer(fb.handler())
	t.Cleanup(srv.Close)

	h := &harness{backend: fb}
	h.tokens = auth.NewTokenStore(memKV{auth.TokenKey: "tok"}, nil)
	h.authc = auth.NewClient(srv.URL, srv.Client(), h.tokens, nil)
	h.authc.SetNavigator(auth.NavigatorFunc(func() { h.logins++ }))

	var n int
	var idMu sync.Mutex
	h.ctrl = New(api.New(h.authc, telemetry.Noop(), nil), h.tokens, Options{
		DownloadDir: t.TempDir(),
		NewID: func() string {
			idMu.Lock()
			defer idMu.Unlock()
			n++
			return fmt.Sprintf("id-%d", n)
		},
	})
	return h
}
