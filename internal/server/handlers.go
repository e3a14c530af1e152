package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ytmigrate/internal/models"
	"github.com/desertthunder/ytmigrate/internal/services"
	"github.com/desertthunder/ytmigrate/internal/shared"
	"github.com/desertthunder/ytmigrate/internal/tasks"
	"github.com/gorilla/mux"
)

const maxBodyBytes = 8 << 20

// RunLister lists recorded migration runs.
// Implemented by repositories.MigrationRunRepository.
type RunLister interface {
	List(criteria map[string]any) ([]*models.MigrationRun, error)
}

// APIHandler wires HTTP endpoints to a [tasks.Service].
type APIHandler struct {
	svc    *tasks.Service
	runs   RunLister
	logger *log.Logger
}

// NewAPIHandler creates an APIHandler. runs may be nil, which disables history.
func NewAPIHandler(svc *tasks.Service, runs RunLister, logger *log.Logger) *APIHandler {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &APIHandler{svc: svc, runs: runs, logger: logger}
}

// Register mounts the API routes on router.
func (h *APIHandler) Register(router *mux.Router) {
	router.HandleFunc("/executor/status", h.status).Methods(http.MethodGet)

	router.HandleFunc("/playlists", h.listPlaylists).Methods(http.MethodGet)
	router.HandleFunc("/playlists/{id}", h.getPlaylist).Methods(http.MethodGet)

	router.HandleFunc("/sources", h.importSource).Methods(http.MethodPost)
	router.HandleFunc("/sources/{id}", h.deleteSource).Methods(http.MethodDelete)
	router.HandleFunc("/sources/{id}/migrated", h.markMigrated).Methods(http.MethodPost)
	router.HandleFunc("/sources/{id}/resolved", h.markResolved).Methods(http.MethodPost)

	router.HandleFunc("/targets", h.createTarget).Methods(http.MethodPost)
	router.HandleFunc("/targets/sync", h.syncTargets).Methods(http.MethodPost)
	router.HandleFunc("/targets/{id}", h.deleteTarget).Methods(http.MethodDelete)
	router.HandleFunc("/targets/{id}/refresh", h.refreshTarget).Methods(http.MethodPost)
	router.HandleFunc("/targets/{id}/insert", h.insert).Methods(http.MethodPost)
	router.HandleFunc("/targets/{id}/move", h.move).Methods(http.MethodPost)
	router.HandleFunc("/targets/{id}/remove", h.remove).Methods(http.MethodPost)

	router.HandleFunc("/diff", h.diff).Methods(http.MethodGet)
	router.HandleFunc("/diff/fix", h.fixPosition).Methods(http.MethodPost)

	router.HandleFunc("/migrations", h.migrate).Methods(http.MethodPost)
	router.HandleFunc("/migrations", h.history).Methods(http.MethodGet)
}

type errorBody struct {
	OK      bool            `json:"ok"`
	Error   string          `json:"error"`
	Code    string          `json:"code,omitempty"`
	Details string          `json:"details,omitempty"`
	Reason  string          `json:"reason,omitempty"`
	Quota   json.RawMessage `json:"quota,omitempty"`
}

// statusFor maps service errors onto HTTP status codes.
func statusFor(err error) int {
	if ee, ok := services.AsExecutorError(err); ok {
		if ee.Status >= 400 && ee.Status < 600 {
			return ee.Status
		}
		return http.StatusBadGateway
	}
	switch {
	case errors.Is(err, shared.ErrValidation), errors.Is(err, shared.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, shared.ErrUnresolvedReference):
		return http.StatusUnprocessableEntity
	case errors.Is(err, shared.ErrPlaylistNotFound), errors.Is(err, shared.ErrRunNotFound):
		return http.StatusNotFound
	case errors.Is(err, shared.ErrPlaylistBusy), errors.Is(err, shared.ErrTargetNotLoaded):
		return http.StatusConflict
	case errors.Is(err, shared.ErrExecutorTransport):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (h *APIHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	body := errorBody{OK: false, Error: err.Error()}
	if ee, ok := services.AsExecutorError(err); ok {
		body.Error, body.Code, body.Details = ee.Message, ee.Code, ee.Details
		body.Reason, body.Quota = ee.Reason, ee.Quota
	}
	if status >= 500 {
		h.logger.Error("request failed", "path", r.URL.Path, "error", err)
	}
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		_ = json.NewEncoder(w).Encode(payload)
	}
}

func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(v); err != nil {
		return fmt.Errorf("%w: invalid request body: %v", shared.ErrInvalidInput, err)
	}
	return nil
}

func (h *APIHandler) status(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.ExecutorStatus(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *APIHandler) listPlaylists(w http.ResponseWriter, r *http.Request) {
	kind := models.PlaylistKind(r.URL.Query().Get("kind"))
	if kind != "" && !kind.Valid() {
		h.fail(w, r, fmt.Errorf("%w: kind must be source or target", shared.ErrValidation))
		return
	}
	playlists, err := h.svc.Playlists(kind)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if playlists == nil {
		playlists = []models.Playlist{}
	}
	writeJSON(w, http.StatusOK, map[string][]models.Playlist{"playlists": playlists})
}

func (h *APIHandler) getPlaylist(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.Playlist(mux.Vars(r)["id"])
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *APIHandler) importSource(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		h.fail(w, r, fmt.Errorf("%w: %v", shared.ErrInvalidInput, err))
		return
	}
	imported, err := h.svc.ImportSource(data)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string][]models.Playlist{"playlists": imported})
}

func (h *APIHandler) deleteSource(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteSource(mux.Vars(r)["id"]); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// markRequest selects source songs by comparison key or by index.
type markRequest struct {
	Keys    []models.SongKey `json:"keys"`
	Indices []int            `json:"indices"`
	Remove  bool             `json:"remove"`
}

func (h *APIHandler) markKeys(w http.ResponseWriter, r *http.Request, add, remove func(string, ...models.SongKey) (models.Playlist, error)) {
	id := mux.Vars(r)["id"]
	var req markRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	keys := req.Keys
	if len(req.Indices) > 0 {
		source, err := h.svc.Playlist(id)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		keys = append(keys, tasks.KeysAt(source, req.Indices)...)
	}
	if len(keys) == 0 {
		h.fail(w, r, fmt.Errorf("%w: no songs selected", shared.ErrValidation))
		return
	}

	apply := add
	if req.Remove {
		apply = remove
	}
	p, err := apply(id, keys...)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *APIHandler) markMigrated(w http.ResponseWriter, r *http.Request) {
	h.markKeys(w, r, h.svc.MarkMigrated, h.svc.UnmarkMigrated)
}

func (h *APIHandler) markResolved(w http.ResponseWriter, r *http.Request) {
	h.markKeys(w, r, h.svc.ResolveDiff, h.svc.UnresolveDiff)
}

type createTargetRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (h *APIHandler) createTarget(w http.ResponseWriter, r *http.Request) {
	var req createTargetRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	p, err := h.svc.CreateTarget(r.Context(), req.Name, req.Description)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (h *APIHandler) syncTargets(w http.ResponseWriter, r *http.Request) {
	loadSongs, _ := strconv.ParseBool(r.URL.Query().Get("songs"))
	targets, err := h.svc.SyncTargets(r.Context(), loadSongs, nil)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]models.Playlist{"playlists": targets})
}

func (h *APIHandler) deleteTarget(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteTarget(r.Context(), mux.Vars(r)["id"]); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *APIHandler) refreshTarget(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.RefreshTarget(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

type insertRequest struct {
	FromID string `json:"fromId,omitempty"`
	Key    string `json:"key"`
	Index  *int   `json:"index"`
}

func (h *APIHandler) insert(w http.ResponseWriter, r *http.Request) {
	var req insertRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	if req.Index == nil {
		h.fail(w, r, fmt.Errorf("%w: index is required", shared.ErrValidation))
		return
	}
	res, err := h.svc.InsertByKey(r.Context(), tasks.InsertByKeyRequest{
		TargetID:      mux.Vars(r)["id"],
		FromID:        req.FromID,
		PositionalKey: req.Key,
		Index:         *req.Index,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type moveRequest struct {
	Key       string `json:"key"`
	Direction string `json:"direction"`
	Positions int    `json:"positions"`
}

func (h *APIHandler) move(w http.ResponseWriter, r *http.Request) {
	var req moveRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	direction, err := services.ParseDirection(req.Direction)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	res, err := h.svc.MoveByKey(r.Context(), mux.Vars(r)["id"], req.Key, direction, req.Positions)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type removeRequest struct {
	Keys []string `json:"keys"`
}

func (h *APIHandler) remove(w http.ResponseWriter, r *http.Request) {
	var req removeRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	res, err := h.svc.RemoveByKeys(r.Context(), mux.Vars(r)["id"], req.Keys)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *APIHandler) diff(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	report, err := h.svc.GetDiff(q.Get("source"), q.Get("target"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

type fixRequest struct {
	SourceID string `json:"sourceId"`
	TargetID string `json:"targetId"`
	Index    int    `json:"index"`
}

func (h *APIHandler) fixPosition(w http.ResponseWriter, r *http.Request) {
	var req fixRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	res, err := h.svc.FixPosition(r.Context(), req.SourceID, req.TargetID, req.Index)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type migrationResponse struct {
	*tasks.MigrationReport
	Outcome tasks.Outcome `json:"outcome"`
	Summary string        `json:"summary"`
}

func (h *APIHandler) migrate(w http.ResponseWriter, r *http.Request) {
	var req tasks.MigrationRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	report, err := h.svc.RunMigration(r.Context(), req, nil)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, migrationResponse{MigrationReport: report, Outcome: report.Outcome(), Summary: report.Summary()})
}

func (h *APIHandler) history(w http.ResponseWriter, r *http.Request) {
	if h.runs == nil {
		writeJSON(w, http.StatusOK, map[string][]models.RunView{"runs": {}})
		return
	}

	q := r.URL.Query()
	criteria := map[string]any{
		"source_playlist_id": q.Get("source"),
		"target_playlist_id": q.Get("target"),
		"status":             q.Get("status"),
	}
	if s := q.Get("limit"); s != "" {
		limit, err := strconv.Atoi(s)
		if err != nil || limit < 1 {
			h.fail(w, r, fmt.Errorf("%w: limit must be a positive integer", shared.ErrValidation))
			return
		}
		criteria["limit"] = limit
	}

	runs, err := h.runs.List(criteria)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	out := make([]models.RunView, 0, len(runs))
	for _, run := range runs {
		out = append(out, run.View())
	}
	writeJSON(w, http.StatusOK, map[string][]models.RunView{"runs": out})
}

// NewServer builds the application router: health check, request logging and the API.
func NewServer(svc *tasks.Service, runs RunLister, logger *log.Logger) *MuxRouter {
	router := NewRouter()
	router.Use(Recoverer(logger), RequestLogger(logger))
	router.Handle(http.MethodGet, "/health", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	}))
	router.Handler(NewAPIHandler(svc, runs, logger))
	return router
}
