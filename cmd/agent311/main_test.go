package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Agent311/internal/backend"
	"Agent311/internal/robots"
	"Agent311/internal/session"
)

type backendStub struct {
	mu       sync.Mutex
	sessions []session.Session
}

func (b *backendStub) server(t *testing.T) *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var req backend.LoginRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if req.Password != "password" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode(backend.LoginResponse{Token: "tok"})
	})
	mux.HandleFunc("GET /api/sessions", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		b.mu.Lock()
		defer b.mu.Unlock()
		json.NewEncoder(w).Encode(b.sessions)
	})
	mux.HandleFunc("PATCH /api/sessions/{id}", func(w http.ResponseWriter, r *http.Request) {
		var patch backend.SessionPatch
		require.NoError(t, json.NewDecoder(r.Body).Decode(&patch))
		b.mu.Lock()
		defer b.mu.Unlock()
		for i := range b.sessions {
			if b.sessions[i].ID != r.PathValue("id") {
				continue
			}
			if patch.IsFavorite != nil {
				b.sessions[i].IsFavorite = *patch.IsFavorite
			}
			if patch.Title != nil {
				b.sessions[i].Title = *patch.Title
			}
		}
	})
	mux.HandleFunc("GET /api/reports", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"files":[{"name":"q1.pdf","path":"reports/q1.pdf","type":"pdf","sizeBytes":42}]}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root, closeApp := newRootCmd()
	defer closeApp()

	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRobotsCommand(t *testing.T) {
	out, err := execute(t, "robots")
	require.NoError(t, err)
	assert.Equal(t, robots.Text(), out)
}

func TestLoginSessionsReportsLogout(t *testing.T) {
	stub := &backendStub{sessions: []session.Session{
		{ID: "s1", Title: "Pothole trends"},
		{ID: "s2", Title: "Graffiti hotspots", IsFavorite: true},
	}}
	srv := stub.server(t)
	common := []string{"--api-url", srv.URL, "--data-dir", t.TempDir()}
	run := func(args ...string) (string, error) {
		return execute(t, append(append([]string{}, common...), args...)...)
	}

	out, err := run("login")
	require.NoError(t, err)
	assert.Contains(t, out, "Logged in as default@agentaustin.org")

	out, err = run("sessions")
	require.NoError(t, err)
	assert.Contains(t, out, "Favorites")
	assert.Contains(t, out, "Graffiti hotspots")
	assert.Contains(t, out, "Recent")
	assert.Contains(t, out, "Pothole trends")

	out, err = run("sessions", "fav", "s1")
	require.NoError(t, err)
	assert.Contains(t, out, "Pothole trends favorite: true")

	out, err = run("sessions", "rename", "s1", "Potholes", "by", "district")
	require.NoError(t, err)
	assert.Contains(t, out, `Renamed s1 to "Potholes by district"`)
	stub.mu.Lock()
	assert.Equal(t, "Potholes by district", stub.sessions[0].Title)
	stub.mu.Unlock()

	out, err = run("reports")
	require.NoError(t, err)
	assert.Contains(t, out, "q1.pdf")
	assert.Contains(t, out, "42 bytes")

	out, err = run("logout")
	require.NoError(t, err)
	assert.Contains(t, out, "Logged out")

	_, err = run("sessions")
	assert.Error(t, err)
}

func TestLoginFailure(t *testing.T) {
	srv := (&backendStub{}).server(t)

	out, err := execute(t, "--api-url", srv.URL, "--data-dir", t.TempDir(), "login", "--password", "wrong")
	assert.Error(t, err)
	assert.Contains(t, out, "Login failed. Please try again.")
}

func TestUploadRejectsUnsupportedFiles(t *testing.T) {
	srv := (&backendStub{}).server(t)
	dir := t.TempDir()

	_, err := execute(t, "--api-url", srv.URL, "--data-dir", dir, "login")
	require.NoError(t, err)

	out, err := execute(t, "--api-url", srv.URL, "--data-dir", dir, "reports", "upload", "notes.txt")
	assert.Error(t, err)
	assert.Contains(t, out, "Skipped notes.txt (only .pdf and .html)")
}
