package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ytmigrate/internal/models"
	"github.com/desertthunder/ytmigrate/internal/shared"
	"golang.org/x/time/rate"
)

// Transport moves one JSON request to the executor and returns its raw reply.
//
// A reply that carries ok:false is not a transport failure; implementations
// return it as output so the [Client] can decode it.
type Transport interface {
	Do(ctx context.Context, action Action, payload []byte) ([]byte, error)
}

// ClientOpts configures a [Client].
type ClientOpts struct {
	RateLimit float64 // executor calls per second, 0 disables throttling
	Logger    *log.Logger
}

// Client implements [MutationExecutor] over a [Transport] using the executor's JSON envelope.
type Client struct {
	transport Transport
	limiter   *rate.Limiter
	logger    *log.Logger
}

// NewClient creates a Client.
func NewClient(t Transport, opts ClientOpts) *Client {
	c := &Client{transport: t, logger: opts.Logger}
	if c.logger == nil {
		c.logger = shared.NewLogger(nil)
	}
	if opts.RateLimit > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	}
	return c
}

// request is the union of every action's fields.
type request struct {
	Action           Action                 `json:"action"`
	PlaylistID       string                 `json:"playlistId,omitempty"`
	Name             string                 `json:"name,omitempty"`
	Description      string                 `json:"description,omitempty"`
	VideoID          string                 `json:"videoId,omitempty"`
	ExpectedIndex    *int                   `json:"expectedIndex,omitempty"`
	Song             *models.ProviderRef    `json:"song,omitempty"`
	Refs             []models.ProviderRef   `json:"-"`
	Items            []models.MigrationItem `json:"-"`
	Direction        Direction              `json:"direction,omitempty"`
	Positions        int                    `json:"positions,omitempty"`
	PreservePosition *bool                  `json:"preservePosition,omitempty"`
	Debug            bool                   `json:"debug,omitempty"`
}

// MarshalJSON writes Refs or Items under the shared "songs" field.
func (r request) MarshalJSON() ([]byte, error) {
	type plain request
	var songs any
	switch {
	case r.Items != nil:
		songs = r.Items
	case r.Refs != nil:
		songs = r.Refs
	}
	return json.Marshal(struct {
		plain
		Songs any `json:"songs,omitempty"`
	}{plain(r), songs})
}

type envelope struct {
	OK      *bool           `json:"ok"`
	Error   string          `json:"error"`
	Status  int             `json:"status"`
	Code    string          `json:"code"`
	Details string          `json:"details"`
	Reason  string          `json:"reason"`
	Quota   json.RawMessage `json:"quota"`
}

// call sends req and decodes a successful reply into out.
func (c *Client) call(ctx context.Context, req request, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("%w: failed to encode %s request: %v", shared.ErrValidation, req.Action, err)
	}

	start := time.Now()
	raw, err := c.transport.Do(ctx, req.Action, payload)
	c.logger.Debug("executor call", "action", req.Action, "playlist", req.PlaylistID, "duration", time.Since(start), "error", err)
	if err != nil {
		return err
	}

	return decodeReply(req.Action, raw, out)
}

func decodeReply(action Action, raw []byte, out any) error {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return transportError(action, "executor returned no output")
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return transportError(action, "executor output is not valid JSON: %v", err)
	}
	if env.OK == nil {
		return transportError(action, "executor output is missing the ok field")
	}

	if !*env.OK {
		status := env.Status
		if status == 0 {
			status = defaultErrorStatus
		}
		msg := env.Error
		if msg == "" {
			msg = "executor request failed"
		}
		return &ExecutorError{
			Action:  action,
			Status:  status,
			Code:    env.Code,
			Message: msg,
			Details: env.Details,
			Reason:  env.Reason,
			Quota:   env.Quota,
		}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return transportError(action, "failed to decode reply: %v", err)
	}
	return nil
}

// Status checks that the executor can authenticate against the provider.
func (c *Client) Status(ctx context.Context) (*StatusResult, error) {
	var out StatusResult
	if err := c.call(ctx, request{Action: ActionStatus}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Playlists lists the account's target playlists.
func (c *Client) Playlists(ctx context.Context) ([]PlaylistSummary, error) {
	var out struct {
		Playlists []PlaylistSummary `json:"playlists"`
	}
	if err := c.call(ctx, request{Action: ActionPlaylists}, &out); err != nil {
		return nil, err
	}
	return out.Playlists, nil
}

// CreatePlaylist creates an empty private playlist.
func (c *Client) CreatePlaylist(ctx context.Context, name, description string) (*PlaylistSummary, error) {
	var out struct {
		Playlist PlaylistSummary `json:"playlist"`
	}
	if err := c.call(ctx, request{Action: ActionCreatePlaylist, Name: name, Description: description}, &out); err != nil {
		return nil, err
	}
	if out.Playlist.ID == "" {
		return nil, transportError(ActionCreatePlaylist, "reply did not include a playlist id")
	}
	return &out.Playlist, nil
}

func (c *Client) DeletePlaylist(ctx context.Context, playlistID string) error {
	return c.call(ctx, request{Action: ActionDeletePlaylist, PlaylistID: playlistID}, nil)
}

// PlaylistSongs loads the current songs of a target playlist.
func (c *Client) PlaylistSongs(ctx context.Context, playlistID string) (*PlaylistSongs, error) {
	var out PlaylistSongs
	if err := c.call(ctx, request{Action: ActionPlaylistSongs, PlaylistID: playlistID}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) RemovePlaylistItems(ctx context.Context, playlistID string, refs []models.ProviderRef) (*RemoveResult, error) {
	if refs == nil {
		refs = []models.ProviderRef{}
	}
	var out RemoveResult
	if err := c.call(ctx, request{Action: ActionRemoveItems, PlaylistID: playlistID, Refs: refs}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) InsertVideoAtPosition(ctx context.Context, playlistID, videoID string, expectedIndex int) (*InsertResult, error) {
	var out InsertResult
	req := request{Action: ActionInsertVideo, PlaylistID: playlistID, VideoID: videoID, ExpectedIndex: &expectedIndex}
	if err := c.call(ctx, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) MovePlaylistSong(ctx context.Context, playlistID string, ref models.ProviderRef, direction Direction, positions int) (*MoveResult, error) {
	var out MoveResult
	req := request{Action: ActionMoveSong, PlaylistID: playlistID, Song: &ref, Direction: direction, Positions: positions}
	if err := c.call(ctx, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Migrate searches for and adds a batch of songs to the target playlist.
func (c *Client) Migrate(ctx context.Context, mr MigrateRequest) (*MigrateResponse, error) {
	items := mr.Songs
	if items == nil {
		items = []models.MigrationItem{}
	}
	preserve := mr.PreservePosition
	req := request{
		Action:           ActionMigrate,
		PlaylistID:       mr.PlaylistID,
		Items:            items,
		PreservePosition: &preserve,
		Debug:            mr.Debug,
	}

	var out MigrateResponse
	if err := c.call(ctx, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
