package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/desertthunder/ytmigrate/internal/models"
	"github.com/desertthunder/ytmigrate/internal/repositories"
	"github.com/desertthunder/ytmigrate/internal/services"
	"github.com/desertthunder/ytmigrate/internal/shared"
	"github.com/desertthunder/ytmigrate/internal/tasks"
)

type testApp struct {
	server *httptest.Server
	exec   *services.MemoryExecutor
	logs   *bytes.Buffer
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	shared.ConfigureDatabase(db, 1, 1)
	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	exec := services.NewMemoryExecutor([]services.Candidate{
		{VideoID: "vA", Title: "A", Artists: []string{"Artist"}},
		{VideoID: "vC", Title: "C", Artists: []string{"Artist"}},
	})
	exec.Seed("PL1", "Target",
		models.SongDetail{Title: "B", Artist: "Artist", ProviderRef: models.ProviderRef{VideoID: "vB"}},
	)

	logs := &bytes.Buffer{}
	logger := shared.NewLogger(logs)
	runs := repositories.NewMigrationRunRepository(db)
	svc := tasks.NewService(repositories.NewPlaylistRepository(db), exec, tasks.ServiceOpts{Runs: runs, Logger: logger})

	srv := httptest.NewServer(NewServer(svc, runs, logger))
	t.Cleanup(srv.Close)
	return &testApp{server: srv, exec: exec, logs: logs}
}

func (a *testApp) do(t *testing.T, method, path, body string, out any) int {
	t.Helper()
	req, err := http.NewRequest(method, a.server.URL+path, strings.NewReader(body))
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
			t.Fatalf("failed to decode %s %s: %v", method, path, err)
		}
	}
	return resp.StatusCode
}

func (a *testApp) seed(t *testing.T) {
	t.Helper()
	doc := `{"id":"SRC","name":"Road Trip","songs":["Artist - A","Artist - B","Artist - C"]}`
	if status := a.do(t, http.MethodPost, "/api/sources", doc, nil); status != http.StatusCreated {
		t.Fatalf("import status = %d", status)
	}
	if status := a.do(t, http.MethodPost, "/api/targets/sync?songs=true", "", nil); status != http.StatusOK {
		t.Fatalf("sync status = %d", status)
	}
}

func TestHealth(t *testing.T) {
	app := newTestApp(t)

	resp, err := http.Get(app.server.URL + "/health")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK || string(body) != "OK" {
		t.Errorf("unexpected health reply: %d %q", resp.StatusCode, body)
	}
	if !strings.Contains(app.logs.String(), "/health") {
		t.Errorf("expected request to be logged, got %q", app.logs.String())
	}
}

func TestAPI(t *testing.T) {
	t.Run("Playlists", func(t *testing.T) {
		app := newTestApp(t)
		app.seed(t)

		var list struct {
			Playlists []models.Playlist `json:"playlists"`
		}
		if status := app.do(t, http.MethodGet, "/api/playlists?kind=target", "", &list); status != http.StatusOK {
			t.Fatalf("status = %d", status)
		}
		if len(list.Playlists) != 1 || list.Playlists[0].ID != "PL1" || !list.Playlists[0].SongsLoaded {
			t.Errorf("unexpected targets: %+v", list.Playlists)
		}

		if status := app.do(t, http.MethodGet, "/api/playlists?kind=other", "", nil); status != http.StatusBadRequest {
			t.Errorf("expected 400 for bad kind, got %d", status)
		}

		var p models.Playlist
		if status := app.do(t, http.MethodGet, "/api/playlists/SRC", "", &p); status != http.StatusOK || p.Len() != 3 {
			t.Errorf("unexpected source: %d %+v", status, p)
		}
		if status := app.do(t, http.MethodGet, "/api/playlists/nope", "", nil); status != http.StatusNotFound {
			t.Errorf("expected 404, got %d", status)
		}
	})

	t.Run("Diff Then Migrate", func(t *testing.T) {
		app := newTestApp(t)
		app.seed(t)

		var report tasks.DiffReport
		if status := app.do(t, http.MethodGet, "/api/diff?source=SRC&target=PL1", "", &report); status != http.StatusOK {
			t.Fatalf("diff status = %d", status)
		}
		if report.Result.Summary != (tasks.DiffSummary{Missing: 2, Shifted: 1}) {
			t.Fatalf("unexpected summary: %+v", report.Result.Summary)
		}

		keys := tasks.PositionalKeysAt(report.Source, tasks.PendingIndices(report.Result, nil, false))
		body, _ := json.Marshal(tasks.MigrationRequest{SourceID: "SRC", TargetID: "PL1", SelectedKeys: keys, PreservePosition: true})

		var migrated struct {
			Outcome  tasks.Outcome `json:"outcome"`
			Summary  string        `json:"summary"`
			Migrated []models.MigratedSong
		}
		if status := app.do(t, http.MethodPost, "/api/migrations", string(body), &migrated); status != http.StatusOK {
			t.Fatalf("migrate status = %d", status)
		}
		if migrated.Outcome != tasks.OutcomeSuccess || len(migrated.Migrated) != 2 {
			t.Errorf("unexpected migration: %+v", migrated)
		}

		app.do(t, http.MethodGet, "/api/diff?source=SRC&target=PL1", "", &report)
		if report.Result.Summary != (tasks.DiffSummary{Matched: 3}) {
			t.Errorf("summary after migration = %+v", report.Result.Summary)
		}
		if report.Source.MigratedKeys.Len() != 2 {
			t.Errorf("expected migrated keys stored, got %d", report.Source.MigratedKeys.Len())
		}

		var history struct {
			Runs []models.RunView `json:"runs"`
		}
		if status := app.do(t, http.MethodGet, "/api/migrations?target=PL1&limit=5", "", &history); status != http.StatusOK {
			t.Fatalf("history status = %d", status)
		}
		if len(history.Runs) != 1 || history.Runs[0].Status != models.RunCompleted || history.Runs[0].ItemsMigrated != 2 {
			t.Errorf("unexpected history: %+v", history.Runs)
		}
		if status := app.do(t, http.MethodGet, "/api/migrations?limit=zero", "", nil); status != http.StatusBadRequest {
			t.Errorf("expected 400 for bad limit, got %d", status)
		}
	})

	t.Run("Mutations", func(t *testing.T) {
		app := newTestApp(t)
		app.exec.Seed("PL1", "Target",
			models.SongDetail{Title: "A", Artist: "Artist", ProviderRef: models.ProviderRef{VideoID: "vA"}},
			models.SongDetail{Title: "B", Artist: "Artist", ProviderRef: models.ProviderRef{VideoID: "vB"}},
		)
		app.seed(t)

		var target models.Playlist
		app.do(t, http.MethodGet, "/api/playlists/PL1", "", &target)
		keys := target.PositionalKeys()

		var moved services.MoveResult
		body := fmt.Sprintf(`{"key":%q,"direction":"down","positions":1}`, keys[0])
		if status := app.do(t, http.MethodPost, "/api/targets/PL1/move", body, &moved); status != http.StatusOK || !moved.Moved {
			t.Errorf("unexpected move: %d %+v", status, moved)
		}

		body = fmt.Sprintf(`{"key":%q,"direction":"sideways"}`, keys[0])
		if status := app.do(t, http.MethodPost, "/api/targets/PL1/move", body, nil); status != http.StatusBadRequest {
			t.Errorf("expected 400 for bad direction, got %d", status)
		}

		// positional keys change with every move
		app.do(t, http.MethodGet, "/api/playlists/PL1", "", &target)
		var inserted services.InsertResult
		body = fmt.Sprintf(`{"key":%q,"index":0}`, target.PositionalKeys()[1])
		if status := app.do(t, http.MethodPost, "/api/targets/PL1/insert", body, &inserted); status != http.StatusOK || inserted.VideoID != "vA" {
			t.Errorf("unexpected insert: %d %+v", status, inserted)
		}

		before := len(app.exec.Calls())
		body = fmt.Sprintf(`{"key":%q}`, target.PositionalKeys()[0])
		if status := app.do(t, http.MethodPost, "/api/targets/PL1/insert", body, nil); status != http.StatusBadRequest {
			t.Errorf("expected 400 for insert without index, got %d", status)
		}
		if len(app.exec.Calls()) != before {
			t.Errorf("insert without index reached the executor: %v", app.exec.Calls()[before:])
		}

		var removed services.RemoveResult
		app.do(t, http.MethodGet, "/api/playlists/PL1", "", &target)
		body = fmt.Sprintf(`{"keys":[%q]}`, target.PositionalKeys()[0])
		if status := app.do(t, http.MethodPost, "/api/targets/PL1/remove", body, &removed); status != http.StatusOK || removed.DeletedCount != 1 {
			t.Errorf("unexpected remove: %d %+v", status, removed)
		}

		var failure errorBody
		if status := app.do(t, http.MethodPost, "/api/targets/PL1/remove", `{"keys":["ghost|x||0"]}`, &failure); status != http.StatusUnprocessableEntity {
			t.Errorf("expected 422 for unresolved key, got %d", status)
		}
		if failure.OK || failure.Error == "" {
			t.Errorf("unexpected error body: %+v", failure)
		}
	})

	t.Run("Mark And Resolve", func(t *testing.T) {
		app := newTestApp(t)
		app.seed(t)

		var p models.Playlist
		if status := app.do(t, http.MethodPost, "/api/sources/SRC/migrated", `{"indices":[0,2]}`, &p); status != http.StatusOK {
			t.Fatalf("status = %d", status)
		}
		if p.MigratedKeys.Len() != 2 {
			t.Errorf("expected 2 migrated keys, got %d", p.MigratedKeys.Len())
		}

		app.do(t, http.MethodPost, "/api/sources/SRC/migrated", `{"keys":["a|artist"],"remove":true}`, &p)
		if p.MigratedKeys.Has("a|artist") || !p.MigratedKeys.Has("c|artist") {
			t.Errorf("unexpected migrated keys: %v", p.MigratedKeys.Sorted())
		}

		app.do(t, http.MethodPost, "/api/sources/SRC/resolved", `{"keys":["c|artist"]}`, &p)
		var report tasks.DiffReport
		app.do(t, http.MethodGet, "/api/diff?source=SRC&target=PL1", "", &report)
		if len(report.Visible) != 2 {
			t.Errorf("expected resolved song hidden, got %d visible", len(report.Visible))
		}

		if status := app.do(t, http.MethodPost, "/api/sources/SRC/resolved", `{}`, nil); status != http.StatusBadRequest {
			t.Errorf("expected 400 for empty selection, got %d", status)
		}
	})

	t.Run("Errors", func(t *testing.T) {
		app := newTestApp(t)
		app.seed(t)
		app.exec.FailNext(services.ActionCreatePlaylist, &services.ExecutorError{
			Action: services.ActionCreatePlaylist, Status: 429, Code: "quota_exceeded", Message: "Quota exceeded", Details: "try later",
		})

		tests := []struct {
			name   string
			method string
			path   string
			body   string
			status int
		}{
			{name: "malformed import", method: http.MethodPost, path: "/api/sources", body: "{", status: http.StatusBadRequest},
			{name: "diff kinds swapped", method: http.MethodGet, path: "/api/diff?source=PL1&target=SRC", status: http.StatusBadRequest},
			{name: "executor error status", method: http.MethodPost, path: "/api/targets", body: `{"name":"New"}`, status: http.StatusTooManyRequests},
			{name: "migrate without selection", method: http.MethodPost, path: "/api/migrations", body: `{"sourceId":"SRC","targetId":"PL1"}`, status: http.StatusBadRequest},
			{name: "fix out of range", method: http.MethodPost, path: "/api/diff/fix", body: `{"sourceId":"SRC","targetId":"PL1","index":5}`, status: http.StatusBadRequest},
			{name: "delete unknown source", method: http.MethodDelete, path: "/api/sources/nope", status: http.StatusNotFound},
			{name: "wrong method", method: http.MethodPut, path: "/api/diff", status: http.StatusMethodNotAllowed},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				if status := app.do(t, tt.method, tt.path, tt.body, nil); status != tt.status {
					t.Errorf("status = %d, want %d", status, tt.status)
				}
			})
		}
	})

	t.Run("Executor Error Fields", func(t *testing.T) {
		app := newTestApp(t)
		app.exec.FailNext(services.ActionStatus, &services.ExecutorError{
			Action: services.ActionStatus, Status: 429, Code: "quota_exceeded", Message: "Quota exceeded",
			Reason: "rateLimitExceeded", Quota: json.RawMessage(`{"remaining":0}`),
		})

		var failure errorBody
		if status := app.do(t, http.MethodGet, "/api/executor/status", "", &failure); status != http.StatusTooManyRequests {
			t.Errorf("status = %d, want 429", status)
		}
		if failure.Code != "quota_exceeded" || failure.Reason != "rateLimitExceeded" {
			t.Errorf("unexpected error body: %+v", failure)
		}
		if string(failure.Quota) != `{"remaining":0}` {
			t.Errorf("quota = %s, want {\"remaining\":0}", failure.Quota)
		}
	})

	t.Run("Targets", func(t *testing.T) {
		app := newTestApp(t)

		var status services.StatusResult
		if code := app.do(t, http.MethodGet, "/api/executor/status", "", &status); code != http.StatusOK || !status.Connected {
			t.Errorf("unexpected status: %d %+v", code, status)
		}

		var created models.Playlist
		if code := app.do(t, http.MethodPost, "/api/targets", `{"name":"Fresh"}`, &created); code != http.StatusCreated {
			t.Fatalf("create status = %d", code)
		}
		if code := app.do(t, http.MethodPost, "/api/targets/"+created.ID+"/refresh", "", nil); code != http.StatusOK {
			t.Errorf("refresh status = %d", code)
		}
		if code := app.do(t, http.MethodDelete, "/api/targets/"+created.ID, "", nil); code != http.StatusNoContent {
			t.Errorf("delete status = %d", code)
		}
		if code := app.do(t, http.MethodGet, "/api/playlists/"+created.ID, "", nil); code != http.StatusNotFound {
			t.Errorf("expected deleted target gone, got %d", code)
		}
	})
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "validation", err: fmt.Errorf("%w: x", shared.ErrValidation), want: http.StatusBadRequest},
		{name: "unresolved", err: shared.ErrUnresolvedReference, want: http.StatusUnprocessableEntity},
		{name: "busy", err: shared.ErrPlaylistBusy, want: http.StatusConflict},
		{name: "not loaded", err: shared.ErrTargetNotLoaded, want: http.StatusConflict},
		{name: "transport", err: fmt.Errorf("%w: down", shared.ErrExecutorTransport), want: http.StatusBadGateway},
		{name: "executor without status", err: &services.ExecutorError{Message: "x"}, want: http.StatusBadGateway},
		{name: "executor 404", err: &services.ExecutorError{Status: 404, Message: "x"}, want: http.StatusNotFound},
		{name: "unknown", err: errors.New("boom"), want: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := statusFor(tt.err); got != tt.want {
				t.Errorf("statusFor = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestRouterMiddlewareOrder(t *testing.T) {
	var order []string
	mark := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	router := NewRouter()
	router.Use(mark("first"), mark("second"))
	router.Handle(http.MethodGet, "/ping", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		order = append(order, "handler")
	}))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))

	if strings.Join(order, ",") != "first,second,handler" {
		t.Errorf("unexpected order: %v", order)
	}

	order = nil
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/missing", nil))
	if rec.Code != http.StatusNotFound || strings.Join(order, ",") != "first,second" {
		t.Errorf("middleware should wrap unmatched routes: %d %v", rec.Code, order)
	}
}

func TestRecoverer(t *testing.T) {
	logs := &bytes.Buffer{}
	h := Recoverer(shared.NewLogger(logs))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("kaboom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d", rec.Code)
	}
	if !strings.Contains(logs.String(), "kaboom") {
		t.Errorf("expected panic to be logged, got %q", logs.String())
	}
}
