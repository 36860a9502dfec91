package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/ayusman/mudra/internal/config"
	"github.com/ayusman/mudra/internal/store"
)

// ConfigSource rebuilds the configuration, optionally with pending settings.
type ConfigSource interface {
	Load() (*config.Config, error)
	LoadWith(overrides map[string]string) (*config.Config, error)
}

// ApplyFunc pushes a freshly loaded configuration into the running process.
type ApplyFunc func(*config.Config) error

// SettingsHandler serves /api/settings.
//
// A setting is only stored after the configuration rebuilt with it passes
// validation. Dispatcher settings take effect immediately; the rest are
// reported as needing a restart.
type SettingsHandler struct {
	repo   *store.SettingsRepository
	source ConfigSource
	apply  ApplyFunc
}

// NewSettingsHandler creates a SettingsHandler. apply may be nil.
func NewSettingsHandler(repo *store.SettingsRepository, source ConfigSource, apply ApplyFunc) *SettingsHandler {
	return &SettingsHandler{repo: repo, source: source, apply: apply}
}

type settingRequest struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type settingResponse struct {
	Key             string `json:"key"`
	Value           string `json:"value,omitempty"`
	Applied         bool   `json:"applied"`
	RestartRequired bool   `json:"restart_required"`
}

type listSettingsResponse struct {
	Settings  []store.Setting        `json:"settings"`
	Effective map[string]interface{} `json:"effective"`
	Keys      []string               `json:"keys"`
}

// ServeHTTP routes /api/settings and /api/settings/{key}.
func (h *SettingsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	key := strings.TrimPrefix(strings.TrimPrefix(r.URL.Path, "/api/settings"), "/")

	if key == "" {
		switch r.Method {
		case http.MethodGet:
			h.list(w, r)
		case http.MethodPut:
			h.put(w, r, "")
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.get(w, r, key)
	case http.MethodPut:
		h.put(w, r, key)
	case http.MethodDelete:
		h.delete(w, r, key)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// list handles GET /api/settings.
func (h *SettingsHandler) list(w http.ResponseWriter, r *http.Request) {
	settings, err := h.repo.List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list settings")
		return
	}
	cfg, err := h.source.Load()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if settings == nil {
		settings = []store.Setting{}
	}

	writeJSON(w, http.StatusOK, listSettingsResponse{
		Settings:  settings,
		Effective: cfg.Flatten(),
		Keys:      config.Keys(),
	})
}

// get handles GET /api/settings/{key}.
func (h *SettingsHandler) get(w http.ResponseWriter, r *http.Request, key string) {
	value, err := h.repo.Get(key)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Setting not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get setting")
		return
	}
	writeJSON(w, http.StatusOK, settingRequest{Key: key, Value: value})
}

// put handles PUT /api/settings with {"key","value"} or PUT
// /api/settings/{key} with {"value"}.
func (h *SettingsHandler) put(w http.ResponseWriter, r *http.Request, key string) {
	var req settingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if key != "" {
		req.Key = key
	}
	if req.Key == "" {
		writeError(w, http.StatusBadRequest, "Key is required")
		return
	}
	if !config.IsKnownKey(req.Key) {
		writeError(w, http.StatusBadRequest, "Unknown setting: "+req.Key)
		return
	}

	cfg, err := h.source.LoadWith(map[string]string{req.Key: req.Value})
	if err != nil {
		writeError(w, configStatus(err), err.Error())
		return
	}

	if err := h.repo.Set(req.Key, req.Value); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save setting")
		return
	}

	writeJSON(w, http.StatusOK, h.applied(req.Key, req.Value, cfg))
}

// delete handles DELETE /api/settings/{key}, reverting to the file or
// default value.
func (h *SettingsHandler) delete(w http.ResponseWriter, r *http.Request, key string) {
	if err := h.repo.Delete(key); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Setting not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete setting")
		return
	}

	cfg, err := h.source.Load()
	if err != nil {
		writeError(w, configStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, h.applied(key, "", cfg))
}

func (h *SettingsHandler) applied(key, value string, cfg *config.Config) settingResponse {
	resp := settingResponse{Key: key, Value: value}
	if !strings.HasPrefix(key, "dispatcher.") {
		resp.RestartRequired = true
		return resp
	}
	if h.apply != nil {
		resp.Applied = h.apply(cfg) == nil
	}
	return resp
}

func configStatus(err error) int {
	if errors.Is(err, config.ErrInvalidConfig) || errors.Is(err, config.ErrUnknownKey) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
