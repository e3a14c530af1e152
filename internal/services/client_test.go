package services

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/desertthunder/ytmigrate/internal/models"
	"github.com/desertthunder/ytmigrate/internal/shared"
	tu "github.com/desertthunder/ytmigrate/internal/testing"
)

// stubTransport replies with fixed output and records payloads.
type stubTransport struct {
	out      []byte
	err      error
	payloads [][]byte
}

func (s *stubTransport) Do(_ context.Context, _ Action, payload []byte) ([]byte, error) {
	s.payloads = append(s.payloads, payload)
	return s.out, s.err
}

func (s *stubTransport) lastPayload(t *testing.T) map[string]any {
	t.Helper()
	if len(s.payloads) == 0 {
		t.Fatal("expected a payload to be sent")
	}
	var m map[string]any
	if err := json.Unmarshal(s.payloads[len(s.payloads)-1], &m); err != nil {
		t.Fatalf("payload is not JSON: %v", err)
	}
	return m
}

func TestClient(t *testing.T) {
	ctx := context.Background()

	t.Run("decodeReply", func(t *testing.T) {
		tests := []struct {
			name      string
			raw       string
			transport bool
			business  bool
		}{
			{name: "empty output", raw: "  ", transport: true},
			{name: "invalid JSON", raw: "Traceback (most recent call last)", transport: true},
			{name: "missing ok", raw: `{"connected":true}`, transport: true},
			{name: "ok false", raw: `{"ok":false,"error":"nope","status":404}`, business: true},
			{name: "ok true", raw: `{"ok":true,"connected":true}`},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				var out StatusResult
				err := decodeReply(ActionStatus, []byte(tt.raw), &out)

				if got := errors.Is(err, shared.ErrExecutorTransport); got != tt.transport {
					t.Errorf("transport error = %v, want %v (err: %v)", got, tt.transport, err)
				}
				if got := errors.Is(err, shared.ErrExecutorBusiness); got != tt.business {
					t.Errorf("business error = %v, want %v (err: %v)", got, tt.business, err)
				}
				if !tt.transport && !tt.business && !out.Connected {
					t.Error("expected connected to be decoded")
				}
			})
		}
	})

	t.Run("ExecutorError Fields Pass Through", func(t *testing.T) {
		raw := `{"ok":false,"error":"Quota exceeded","code":"quota_exceeded","status":429,"details":"try later","reason":"rateLimitExceeded","quota":{"remaining":0}}`
		st := &stubTransport{out: []byte(raw)}
		c := NewClient(st, ClientOpts{})

		_, err := c.PlaylistSongs(ctx, "PL1")
		ee, ok := AsExecutorError(err)
		if !ok {
			t.Fatalf("expected ExecutorError, got %v", err)
		}
		if ee.Status != 429 || ee.Code != "quota_exceeded" || ee.Message != "Quota exceeded" {
			t.Errorf("unexpected error fields: %+v", ee)
		}
		if ee.Details != "try later" || ee.Reason != "rateLimitExceeded" {
			t.Errorf("expected details and reason, got %+v", ee)
		}
		if string(ee.Quota) != `{"remaining":0}` {
			t.Errorf("expected quota to pass through, got %s", ee.Quota)
		}
		if ee.Action != ActionPlaylistSongs {
			t.Errorf("expected action %s, got %s", ActionPlaylistSongs, ee.Action)
		}
		if got := ErrorMessage(err); got != "Quota exceeded: try later" {
			t.Errorf("ErrorMessage = %q", got)
		}
	})

	t.Run("ExecutorError Defaults", func(t *testing.T) {
		st := &stubTransport{out: []byte(`{"ok":false}`)}
		c := NewClient(st, ClientOpts{})

		err := c.DeletePlaylist(ctx, "PL1")
		ee, ok := AsExecutorError(err)
		if !ok {
			t.Fatalf("expected ExecutorError, got %v", err)
		}
		if ee.Status != 500 {
			t.Errorf("expected default status 500, got %d", ee.Status)
		}
		if ee.Message != "executor request failed" {
			t.Errorf("expected default message, got %q", ee.Message)
		}
	})

	t.Run("Transport Failure Is Returned", func(t *testing.T) {
		st := &stubTransport{err: transportError(ActionStatus, "boom")}
		c := NewClient(st, ClientOpts{})

		if _, err := c.Status(ctx); !errors.Is(err, shared.ErrExecutorTransport) {
			t.Errorf("expected transport error, got %v", err)
		}
	})

	t.Run("Requests", func(t *testing.T) {
		t.Run("Remove Sends Refs Under Songs", func(t *testing.T) {
			st := &stubTransport{out: []byte(`{"ok":true,"playlistId":"PL1","deletedCount":2}`)}
			c := NewClient(st, ClientOpts{})

			res, err := c.RemovePlaylistItems(ctx, "PL1", []models.ProviderRef{{SetVideoID: "S1"}, {VideoID: "v2"}})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if res.DeletedCount != 2 {
				t.Errorf("expected 2 deleted, got %d", res.DeletedCount)
			}

			p := st.lastPayload(t)
			if p["action"] != "removePlaylistItems" || p["playlistId"] != "PL1" {
				t.Errorf("unexpected payload: %v", p)
			}
			songs, ok := p["songs"].([]any)
			if !ok || len(songs) != 2 {
				t.Fatalf("expected 2 songs, got %v", p["songs"])
			}
			if first := songs[0].(map[string]any); first["setVideoId"] != "S1" {
				t.Errorf("expected setVideoId S1, got %v", first)
			}
		})

		t.Run("Insert Sends Zero Expected Index", func(t *testing.T) {
			st := &stubTransport{out: []byte(`{"ok":true,"playlistId":"PL1","videoId":"v1","insertedIndex":0,"moved":true}`)}
			c := NewClient(st, ClientOpts{})

			res, err := c.InsertVideoAtPosition(ctx, "PL1", "v1", 0)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !res.Moved || res.InsertedIndex != 0 {
				t.Errorf("unexpected result: %+v", res)
			}
			p := st.lastPayload(t)
			if v, ok := p["expectedIndex"]; !ok || v.(float64) != 0 {
				t.Errorf("expected expectedIndex 0 in payload, got %v", p)
			}
		})

		t.Run("Move", func(t *testing.T) {
			st := &stubTransport{out: []byte(`{"ok":true,"playlistId":"PL1","moved":true,"fromIndex":2,"toIndex":0}`)}
			c := NewClient(st, ClientOpts{})

			res, err := c.MovePlaylistSong(ctx, "PL1", models.ProviderRef{SetVideoID: "S3"}, Up, 5)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if res.FromIndex != 2 || res.ToIndex != 0 {
				t.Errorf("unexpected result: %+v", res)
			}
			p := st.lastPayload(t)
			if p["direction"] != "up" || p["positions"].(float64) != 5 {
				t.Errorf("unexpected payload: %v", p)
			}
			if song := p["song"].(map[string]any); song["setVideoId"] != "S3" {
				t.Errorf("unexpected song ref: %v", song)
			}
		})

		t.Run("Migrate Sends Items And PreservePosition", func(t *testing.T) {
			reply := `{"ok":true,"playlistId":"PL1","migrated":[{"songKey":"a|x","title":"A","artist":"X","album":"","videoId":"v1"}],"failed":[{"songKey":"b|y","title":"B","artist":"Y","error":"No matching song found on YouTube Music."}]}`
			st := &stubTransport{out: []byte(reply)}
			c := NewClient(st, ClientOpts{})

			idx := 3
			res, err := c.Migrate(ctx, MigrateRequest{
				PlaylistID: "PL1",
				Songs:      []models.MigrationItem{{SourceKey: "a|x", Title: "A", Artist: "X", ExpectedIndex: &idx}},
			})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(res.Migrated) != 1 || res.Migrated[0].VideoID != "v1" {
				t.Errorf("unexpected migrated: %+v", res.Migrated)
			}
			if len(res.Failed) != 1 || res.Failed[0].SourceKey != "b|y" {
				t.Errorf("unexpected failed: %+v", res.Failed)
			}

			p := st.lastPayload(t)
			if p["preservePosition"] != false {
				t.Errorf("expected preservePosition false to be sent, got %v", p["preservePosition"])
			}
			songs := p["songs"].([]any)
			item := songs[0].(map[string]any)
			if item["songKey"] != "a|x" || item["expectedIndex"].(float64) != 3 {
				t.Errorf("unexpected item: %v", item)
			}
		})

		t.Run("Create Requires Playlist ID", func(t *testing.T) {
			st := &stubTransport{out: []byte(`{"ok":true,"playlist":{"name":"x"}}`)}
			c := NewClient(st, ClientOpts{})

			if _, err := c.CreatePlaylist(ctx, "x", ""); !errors.Is(err, shared.ErrExecutorTransport) {
				t.Errorf("expected transport error, got %v", err)
			}
		})
	})

	t.Run("Over HTTP", func(t *testing.T) {
		srv := tu.NewActionServer(t, map[string]any{
			"playlists": map[string]any{
				"ok":        true,
				"playlists": []map[string]any{{"id": "PL1", "name": "Road Trip", "songs": []string{}}},
			},
		})
		c := NewClient(NewHTTPTransport(srv.URL, "", nil), ClientOpts{})

		lists, err := c.Playlists(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(lists) != 1 || lists[0].Name != "Road Trip" {
			t.Errorf("unexpected playlists: %+v", lists)
		}

		_, err = c.Status(ctx)
		if ee, ok := AsExecutorError(err); !ok || ee.Code != "invalid_input" {
			t.Errorf("expected invalid_input executor error, got %v", err)
		}
		if got := strings.Join(srv.Actions(), ","); got != "playlists,status" {
			t.Errorf("unexpected actions: %s", got)
		}
	})

	t.Run("Rate Limiter Honors Context", func(t *testing.T) {
		st := &stubTransport{out: []byte(`{"ok":true,"connected":true}`)}
		c := NewClient(st, ClientOpts{RateLimit: 0.001})

		if _, err := c.Status(ctx); err != nil {
			t.Fatalf("first call should use the burst: %v", err)
		}

		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		if _, err := c.Status(cancelled); err == nil {
			t.Error("expected limiter wait to fail on a cancelled context")
		}
		if len(st.payloads) != 1 {
			t.Errorf("expected 1 call to reach the transport, got %d", len(st.payloads))
		}
	})
}

func TestParseDirection(t *testing.T) {
	tests := []struct {
		in      string
		want    Direction
		wantErr bool
	}{
		{in: "up", want: Up},
		{in: " DOWN ", want: Down},
		{in: "sideways", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDirection(tt.in)
			if tt.wantErr {
				if !errors.Is(err, shared.ErrValidation) {
					t.Errorf("expected validation error, got %v", err)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Errorf("ParseDirection(%q) = %q, %v", tt.in, got, err)
			}
		})
	}
}
